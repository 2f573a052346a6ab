package tracker

import (
	"context"
	"sync"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/telemetry"
)

// Scheduler refreshes every tracked case on a cron spec.
type Scheduler struct {
	tracker *Tracker
	cron    chrono.CronAPI
	spec    string
	tel     telemetry.API

	mutex      sync.Mutex
	registered bool
	running    bool
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewScheduler(tracker *Tracker, cron chrono.CronAPI, spec string, tel telemetry.API) *Scheduler {
	assert.NotNil(tracker)
	assert.NotNil(cron)
	assert.NotNil(tel)
	return &Scheduler{
		tracker: tracker,
		cron:    cron,
		spec:    spec,
		tel:     telemetry.NewScopedAPI("tracker", tel),
	}
}

// Start begins firing scheduled batches, it does nothing when already running.
func (s *Scheduler) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.running {
		return nil
	}
	if !s.registered {
		err := s.cron.Cron(s.spec, s.run)
		if err != nil {
			return err
		}
		s.registered = true
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.running = true
	s.cron.Start()
	s.tel.ReportDebug("scheduler started", s.spec)
	return nil
}

// Stop cancels the batch in flight and waits for it to return or for ctx to be
// done. It does nothing when not running.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.cancel()
	done := s.cron.Stop()
	s.mutex.Unlock()

	select {
	case <-done.Done():
		s.tel.ReportDebug("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Running() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

func (s *Scheduler) run() {
	s.mutex.Lock()
	ctx := s.ctx
	running := s.running
	s.mutex.Unlock()
	if !running {
		return
	}

	result, err := s.tracker.RefreshAll(ctx, false)
	if err != nil {
		s.tel.ReportWarning(report_tracker_scheduler, err)
	}
	s.tel.ReportCount(report_tracker_scheduler, int64(result.Failed))
	s.tel.ReportDebug("scheduled refresh completed", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
}

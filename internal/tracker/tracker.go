// Package tracker keeps tracked cases in sync with the ecourts portal.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casetrack-backend/internal/calendar"
	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/client"
	"casetrack-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/semaphore"
)

var (
	tracer = otel.Tracer("casetrack/internal/tracker")
	meter  = otel.Meter("casetrack/internal/tracker")
)

const (
	report_tracker_refresh       = "tracker.refresh"
	report_tracker_refresh_batch = "tracker.refresh-batch"
	report_tracker_notify        = "tracker.notify"
	report_tracker_case_types    = "tracker.case-types"
	report_tracker_scheduler     = "scheduler.run"
	report_tracker_session       = "tracker.session"
)

// ErrInvalidRequest is returned for add requests that cannot be searched.
var ErrInvalidRequest = errors.New("tracker: invalid request")

// Phase is the step of a refresh that failed.
type Phase string

const (
	PhaseLoad   Phase = "load"
	PhaseFetch  Phase = "fetch"
	PhaseParse  Phase = "parse"
	PhaseStore  Phase = "store"
	PhaseNotify Phase = "notify"
)

// RefreshError carries the identifier and phase of a failed refresh.
type RefreshError struct {
	CNR   string
	Phase Phase
	Err   error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %s: %v", e.CNR, e.Phase, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// Client is the subset of *client.Client the tracker depends on.
type Client interface {
	SearchByCNR(ctx context.Context, cnr string) (ecourts.Case, error)
	SearchByNumber(ctx context.Context, caseType, number, year string) (ecourts.Case, error)
	CaseHistory(ctx context.Context, sparse ecourts.Case) (client.History, error)
	CaseTypes(ctx context.Context) ([]ecourts.CaseType, error)
}

// ClientSource hands out the client holding the session of a court.
type ClientSource interface {
	Get(court ecourts.Court) (Client, error)
	// Evict drops the session of court, the next Get starts a new one.
	Evict(court ecourts.Court)
}

type poolSource struct {
	pool *client.Pool
}

// PoolSource adapts a client pool to a ClientSource.
func PoolSource(pool *client.Pool) ClientSource {
	return poolSource{pool: pool}
}

func (s poolSource) Get(court ecourts.Court) (Client, error) {
	c, err := s.pool.Get(court)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s poolSource) Evict(court ecourts.Court) {
	s.pool.Evict(court)
}

type Store interface {
	Get(ctx context.Context, cnr string) (store.Record, error)
	Create(ctx context.Context, rec store.Record) error
	Upsert(ctx context.Context, rec store.Record) error
	Delete(ctx context.Context, cnr string) (bool, error)
	AllCNRs(ctx context.Context) ([]string, error)
	SetCalendarEventID(ctx context.Context, cnr, eventID string) error
	CaseTypes(ctx context.Context, court ecourts.Court) ([]ecourts.CaseType, error)
	PutCaseTypes(ctx context.Context, court ecourts.Court, types []ecourts.CaseType) error
}

type Options struct {
	// Pacing is the pause between two cases of a batch.
	Pacing time.Duration
	// Workers bounds how many refreshes talk to upstream at once.
	Workers int64
	// MatchThreshold is the lowest similarity a case type description may have to
	// the requested one.
	MatchThreshold float64
}

func DefaultOptions() Options {
	return Options{
		Pacing:         time.Second * 2,
		Workers:        2,
		MatchThreshold: 0.85,
	}
}

type Tracker struct {
	store    Store
	clients  ClientSource
	calendar calendar.Calendar
	time     chrono.TimeAPI
	tel      telemetry.API
	options  Options

	locks    *keyedMutex
	workers  *semaphore.Weighted
	outcomes metric.Int64Counter
}

func New(
	st Store,
	clients ClientSource,
	cal calendar.Calendar,
	timeAPI chrono.TimeAPI,
	options Options,
	tel telemetry.API,
) (*Tracker, error) {
	assert.NotNil(st)
	assert.NotNil(clients)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	if cal == nil {
		cal = calendar.Noop{}
	}
	if options.Workers <= 0 {
		options.Workers = 1
	}

	outcomes, err := meter.Int64Counter(
		"casetrack.refresh.outcomes",
		metric.WithDescription("Case refreshes by outcome."),
	)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		store:    st,
		clients:  clients,
		calendar: cal,
		time:     timeAPI,
		tel:      telemetry.NewScopedAPI("tracker", tel),
		options:  options,
		locks:    newKeyedMutex(),
		workers:  semaphore.NewWeighted(options.Workers),
		outcomes: outcomes,
	}, nil
}

// offload runs fn holding a worker slot.
func (t *Tracker) offload(ctx context.Context, fn func() error) error {
	err := t.workers.Acquire(ctx, 1)
	if err != nil {
		return err
	}
	defer t.workers.Release(1)
	return fn()
}

// expire drops the session of court when err says upstream expired it.
func (t *Tracker) expire(court ecourts.Court, err error) {
	if !errors.Is(err, ecourts.ErrSessionExpired) {
		return
	}
	t.tel.ReportWarning(report_tracker_session, err, court.String())
	t.clients.Evict(court)
}

func event(rec store.Record) calendar.Event {
	number := rec.Case.CaseNumber
	if number == "" {
		number = rec.Case.CNRNumber
	}
	ev := calendar.Event{
		CaseNumber: number,
		Court:      rec.Court.Name(),
	}
	if rec.Case.NextHearingDate != nil {
		ev.Date = *rec.Case.NextHearingDate
	}
	if len(rec.Case.Petitioners) > 0 {
		ev.Petitioner = rec.Case.Petitioners[0].Name
	}
	if len(rec.Case.Respondents) > 0 {
		ev.Respondent = rec.Case.Respondents[0].Name
	}
	return ev
}

// notify puts the next hearing of rec on the calendar, failures are only reported.
func (t *Tracker) notify(ctx context.Context, rec *store.Record) {
	if !rec.SyncCalendar || rec.Case.NextHearingDate == nil {
		return
	}
	cnr := rec.Case.CNRNumber

	if rec.CalendarEventID != "" {
		err := t.calendar.Update(ctx, rec.CalendarEventID, event(*rec))
		if err != nil {
			t.tel.ReportWarning(report_tracker_notify, &RefreshError{CNR: cnr, Phase: PhaseNotify, Err: err})
		}
		return
	}

	eventID, err := t.calendar.Create(ctx, event(*rec))
	if err != nil {
		t.tel.ReportWarning(report_tracker_notify, &RefreshError{CNR: cnr, Phase: PhaseNotify, Err: err})
		return
	}
	if eventID == "" {
		return
	}
	rec.CalendarEventID = eventID
	err = t.store.SetCalendarEventID(ctx, cnr, eventID)
	if err != nil {
		t.tel.ReportWarning(report_tracker_notify, &RefreshError{CNR: cnr, Phase: PhaseNotify, Err: err})
	}
}

func sameDate(a, b *ecourts.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b.Time)
}

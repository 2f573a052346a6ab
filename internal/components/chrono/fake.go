package chrono

import (
	"context"
	"sync"
	"time"
)

// FakeTime is a TimeAPI whose sleeps return immediately and are recorded.
type FakeTime struct {
	mutex sync.Mutex
	now   time.Time
	Slept []time.Duration
}

func NewFakeTime(now time.Time) *FakeTime {
	return &FakeTime{now: now}
}

func (f *FakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

func (f *FakeTime) Sleep(ctx context.Context, d time.Duration) error {
	f.mutex.Lock()
	f.Slept = append(f.Slept, d)
	f.now = f.now.Add(d)
	f.mutex.Unlock()
	return ctx.Err()
}

// FakeCron is a CronAPI that only fires when Trigger is called.
type FakeCron struct {
	mutex     sync.Mutex
	specs     []string
	callbacks []func()
	running   bool
	inflight  sync.WaitGroup
}

func NewFakeCron() *FakeCron {
	return &FakeCron{}
}

func (f *FakeCron) Cron(spec string, callback func()) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.specs = append(f.specs, spec)
	f.callbacks = append(f.callbacks, callback)
	return nil
}

func (f *FakeCron) Specs() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.specs...)
}

func (f *FakeCron) Running() bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.running
}

func (f *FakeCron) Start() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.running = true
}

func (f *FakeCron) Stop() context.Context {
	f.mutex.Lock()
	f.running = false
	f.mutex.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		f.inflight.Wait()
		cancel()
	}()
	return ctx
}

// Trigger runs every registered callback in its own goroutine, as a tick of the
// real scheduler would, and returns without waiting. It does nothing while stopped.
func (f *FakeCron) Trigger() {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if !f.running {
		return
	}
	for _, callback := range f.callbacks {
		f.inflight.Add(1)
		go func(callback func()) {
			defer f.inflight.Done()
			callback()
		}(callback)
	}
}

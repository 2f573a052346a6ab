package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call recorded by TestAPI.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// TestAPI records every report in memory so tests can assert on them.
type TestAPI struct {
	mutex   sync.Mutex
	reports []Report
	counts  map[string]int64
}

func NewTestAPI() *TestAPI {
	return &TestAPI{counts: map[string]int64{}}
}

func (t *TestAPI) record(kind, id string, params []any) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.reports = append(t.reports, Report{Kind: kind, ID: id, Params: params})
}

func (t *TestAPI) ReportBroken(id string, params ...any) {
	t.record("broken", id, params)
}

func (t *TestAPI) ReportWarning(id string, params ...any) {
	t.record("warning", id, params)
}

func (t *TestAPI) ReportDebug(msg string, params ...any) {}

func (t *TestAPI) ReportCount(id string, count int64) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.counts[id] = count
}

// Reports returns the reports of a kind ("broken" or "warning") whose id contains substr.
func (t *TestAPI) Reports(kind, substr string) []Report {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var out []Report
	for _, r := range t.reports {
		if r.Kind == kind && strings.Contains(r.ID, substr) {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the last count reported under an id containing substr.
func (t *TestAPI) Count(substr string) (int64, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	for id, n := range t.counts {
		if strings.Contains(id, substr) {
			return n, true
		}
	}
	return 0, false
}

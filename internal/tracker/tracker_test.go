package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"casetrack-backend/internal/calendar"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/client"
	"casetrack-backend/internal/ecourts/gateway"
	"casetrack-backend/internal/store"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

type fakeClient struct {
	mutex     sync.Mutex
	histories map[string]ecourts.Case
	failures  map[string]error
	found     ecourts.Case
	types     []ecourts.CaseType
	searched  []string
	fetched   []string
	block     chan struct{}
	started   chan struct{}
	blockErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		histories: map[string]ecourts.Case{},
		failures:  map[string]error{},
	}
}

func (f *fakeClient) SearchByCNR(_ context.Context, cnr string) (ecourts.Case, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.searched = append(f.searched, "cnr:"+cnr)
	return ecourts.Case{}, fmt.Errorf("%w: cnr %s", ecourts.ErrNotFound, cnr)
}

func (f *fakeClient) SearchByNumber(_ context.Context, caseType, number, year string) (ecourts.Case, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.searched = append(f.searched, fmt.Sprintf("%s/%s/%s", caseType, number, year))
	if f.found.CNRNumber == "" {
		return ecourts.Case{}, ecourts.ErrNotFound
	}
	return f.found, nil
}

func (f *fakeClient) CaseHistory(ctx context.Context, sparse ecourts.Case) (client.History, error) {
	if f.block != nil {
		close(f.started)
		select {
		case <-f.block:
		case <-ctx.Done():
			f.mutex.Lock()
			f.blockErr = ctx.Err()
			f.mutex.Unlock()
			return client.History{}, ctx.Err()
		}
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.fetched = append(f.fetched, sparse.CNRNumber)
	err := f.failures[sparse.CNRNumber]
	if err != nil {
		return client.History{}, err
	}
	c, ok := f.histories[sparse.CNRNumber]
	if !ok {
		return client.History{}, ecourts.ErrTransient
	}
	c, err = ecourts.NewCase(c)
	if err != nil {
		return client.History{}, err
	}
	return client.History{Case: c, CurrentStatus: c.CaseStatus}, nil
}

func (f *fakeClient) CaseTypes(context.Context) ([]ecourts.CaseType, error) {
	return f.types, nil
}

func (f *fakeClient) setHistory(c ecourts.Case) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.histories[c.CNRNumber] = c
}

func (f *fakeClient) fetchCount() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return len(f.fetched)
}

// fakeSource hands out current until it is evicted, then builds a new client with next.
type fakeSource struct {
	mutex   sync.Mutex
	next    func() *fakeClient
	current *fakeClient
	builds  int
	evicted []string
}

func (s *fakeSource) Get(ecourts.Court) (Client, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.current == nil {
		s.current = s.next()
		s.builds++
	}
	return s.current, nil
}

func (s *fakeSource) Evict(court ecourts.Court) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.current = nil
	s.evicted = append(s.evicted, court.String())
}

type calendarCall struct {
	method  string
	eventID string
	date    string
}

type fakeCalendar struct {
	mutex sync.Mutex
	calls []calendarCall
	err   error
	next  int
}

func (f *fakeCalendar) Create(_ context.Context, event calendar.Event) (string, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.next++
	eventID := fmt.Sprintf("evt-%d", f.next)
	f.calls = append(f.calls, calendarCall{method: "create", eventID: eventID, date: event.Date.String()})
	return eventID, nil
}

func (f *fakeCalendar) Update(_ context.Context, eventID string, event calendar.Event) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, calendarCall{method: "update", eventID: eventID, date: event.Date.String()})
	return nil
}

func (f *fakeCalendar) Delete(_ context.Context, eventID string) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, calendarCall{method: "delete", eventID: eventID})
	return nil
}

type fixture struct {
	tracker  *Tracker
	store    *store.Store
	client   *fakeClient
	source   *fakeSource
	calendar *fakeCalendar
	clock    *chrono.FakeTime
	tel      *telemetry.TestAPI
	court    ecourts.Court
}

func setup(t testing.TB) fixture {
	database, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	t.Cleanup(func() { database.Close() })

	clock := chrono.NewFakeTime(time.Date(2024, time.January, 1, 3, 0, 0, 0, chrono.IST()))
	tel := telemetry.NewTestAPI()
	st, err := store.Open(context.Background(), database, clock, tel)
	require.NoError(t, err)

	court, err := ecourts.NewCourt("10", "", "")
	require.NoError(t, err)

	fc := newFakeClient()
	cal := &fakeCalendar{}
	source := &fakeSource{current: fc, builds: 1, next: newFakeClient}
	tr, err := New(st, source, cal, clock, DefaultOptions(), tel)
	require.NoError(t, err)

	return fixture{
		tracker:  tr,
		store:    st,
		client:   fc,
		source:   source,
		calendar: cal,
		clock:    clock,
		tel:      tel,
		court:    court,
	}
}

func testCase(cnr string, next *ecourts.Date) ecourts.Case {
	return ecourts.Case{
		CNRNumber:          cnr,
		CaseType:           "WP(C)",
		RegistrationNumber: "20/2020",
		CaseNumber:         "CT/0020/2020/1",
		Token:              "TOKEN",
		CaseStatus:         "ADMISSION",
		NextHearingDate:    next,
		Petitioners:        []ecourts.Party{{Name: "ACME"}},
		Respondents:        []ecourts.Party{{Name: "STATE"}},
	}
}

func date(year int, month time.Month, day int) *ecourts.Date {
	d := ecourts.NewDate(year, month, day)
	return &d
}

// track stores a case directly and registers its upstream history.
func (f fixture) track(t testing.TB, cnr string, sync bool) store.Record {
	c := testCase(cnr, date(2024, time.January, 15))
	f.client.setHistory(c)
	require.NoError(t, f.store.Upsert(context.Background(), store.Record{Case: c, Court: f.court, SyncCalendar: sync}))
	rec, err := f.store.Get(context.Background(), cnr)
	require.NoError(t, err)
	return rec
}

func TestAddCaseByNumber(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.client.types = []ecourts.CaseType{
		{Code: 1, Description: "W.P.(C)", Court: f.court},
		{Code: 2, Description: "CRL.A.", Court: f.court},
	}
	f.client.found = ecourts.Case{CNRNumber: "DLHC010000202020", CaseNumber: "CT/0020/2020/1", Token: "TOKEN"}
	f.client.setHistory(testCase("DLHC010000202020", date(2024, time.January, 15)))

	rec, created, err := f.tracker.AddCase(ctx, SearchRequest{
		Kind:      SearchCase,
		CaseType:  "wp(c)",
		Number:    "20/2020",
		Year:      "2020",
		StateCode: "10",
	}, true)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "DLHC010000202020", rec.Case.CNRNumber)
	require.True(t, rec.SyncCalendar)
	require.Equal(t, "evt-1", rec.CalendarEventID)
	require.Equal(t, []string{"1/20/2020/2020"}, f.client.searched)
	require.Equal(t, []calendarCall{{method: "create", eventID: "evt-1", date: "2024-01-15"}}, f.calendar.calls)

	cached, err := f.store.CaseTypes(ctx, f.court)
	require.NoError(t, err)
	require.Len(t, cached, 2)

	again, created, err := f.tracker.AddCase(ctx, SearchRequest{
		Kind:      SearchCase,
		CaseType:  "1",
		Number:    "20",
		Year:      "2020",
		StateCode: "10",
	}, true)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, rec.Fingerprint, again.Fingerprint)
	require.Equal(t, 1, f.client.fetchCount())
}

func TestAddCaseInvalid(t *testing.T) {
	cases := []struct {
		name string
		req  SearchRequest
	}{
		{name: "no kind", req: SearchRequest{StateCode: "10"}},
		{name: "cnr missing", req: SearchRequest{Kind: SearchCNR, StateCode: "10"}},
		{name: "case missing year", req: SearchRequest{Kind: SearchCase, CaseType: "1", Number: "2", StateCode: "10"}},
		{name: "unknown case type", req: SearchRequest{Kind: SearchCase, CaseType: "MADE UP", Number: "2", Year: "2020", StateCode: "10"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			f.client.types = []ecourts.CaseType{{Code: 1, Description: "W.P.(C)", Court: f.court}}
			_, _, err := f.tracker.AddCase(context.Background(), tc.req, false)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}

	f := setup(t)
	_, _, err := f.tracker.AddCase(context.Background(), SearchRequest{Kind: SearchCNR, CNR: "X", StateCode: "99"}, false)
	require.ErrorIs(t, err, ecourts.ErrInvalidCourt)
}

func TestAddCaseByCNR(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.tracker.AddCase(ctx, SearchRequest{Kind: SearchCNR, CNR: "DLHC010000202020", StateCode: "10"}, false)
	require.ErrorIs(t, err, ecourts.ErrNotFound)
	require.Equal(t, []string{"cnr:DLHC010000202020"}, f.client.searched)

	f.track(t, "DLHC010000202020", false)
	rec, created, err := f.tracker.AddCase(ctx, SearchRequest{Kind: SearchCNR, CNR: "DLHC01-000020-2020", StateCode: "10"}, false)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, "DLHC010000202020", rec.Case.CNRNumber)
	require.Len(t, f.client.searched, 1)
}

func TestRefresh(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	stored := f.track(t, "DLHC010000202020", true)
	require.NoError(t, f.store.SetCalendarEventID(ctx, "DLHC010000202020", "evt-9"))

	refreshed, err := f.tracker.Refresh(ctx, "DLHC010000202020", false)
	require.NoError(t, err)
	require.False(t, refreshed.Changed)
	require.Equal(t, stored.LastUpdated, refreshed.Record.LastUpdated)

	f.clock.Sleep(ctx, time.Hour)
	refreshed, err = f.tracker.Refresh(ctx, "DLHC010000202020", true)
	require.NoError(t, err)
	require.True(t, refreshed.Changed)
	require.False(t, refreshed.HearingMoved)
	require.Equal(t, f.clock.Now().Unix(), refreshed.Record.LastUpdated.Unix())
	require.Empty(t, f.calendar.calls)

	moved := testCase("DLHC010000202020", date(2024, time.February, 2))
	f.client.setHistory(moved)
	refreshed, err = f.tracker.Refresh(ctx, "DLHC010000202020", false)
	require.NoError(t, err)
	require.True(t, refreshed.Changed)
	require.True(t, refreshed.HearingMoved)
	require.Equal(t, "2024-02-02", refreshed.Record.Case.NextHearingDate.String())
	require.NotEqual(t, stored.Fingerprint, refreshed.Record.Fingerprint)
	require.Equal(t, []calendarCall{{method: "update", eventID: "evt-9", date: "2024-02-02"}}, f.calendar.calls)
}

func TestRefreshCalendarFailureIsIsolated(t *testing.T) {
	f := setup(t)
	f.track(t, "DLHC010000202020", true)
	f.calendar.err = errors.New("smtp down")
	f.client.setHistory(testCase("DLHC010000202020", date(2024, time.March, 3)))

	refreshed, err := f.tracker.Refresh(context.Background(), "DLHC010000202020", false)
	require.NoError(t, err)
	require.True(t, refreshed.HearingMoved)
	require.Equal(t, "2024-03-03", refreshed.Record.Case.NextHearingDate.String())
	require.Len(t, f.tel.Reports("warning", report_tracker_notify), 1)
}

func TestRefreshPhases(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		phase Phase
	}{
		{name: "exhausted", err: &ecourts.RetryExhaustedError{Operation: "case-history", Attempts: 3, Last: ecourts.ErrTransient}, phase: PhaseFetch},
		{name: "session expired", err: ecourts.ErrSessionExpired, phase: PhaseParse},
		{name: "missing token", err: ecourts.ErrMissingParams, phase: PhaseFetch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			f.track(t, "DLHC010000202020", false)
			f.client.failures["DLHC010000202020"] = tc.err

			_, err := f.tracker.Refresh(context.Background(), "DLHC010000202020", false)
			var refreshErr *RefreshError
			require.ErrorAs(t, err, &refreshErr)
			require.Equal(t, "DLHC010000202020", refreshErr.CNR)
			require.Equal(t, tc.phase, refreshErr.Phase)
			require.ErrorIs(t, err, tc.err)

			if errors.Is(tc.err, ecourts.ErrSessionExpired) {
				require.Equal(t, []string{f.court.String()}, f.source.evicted)
			} else {
				require.Empty(t, f.source.evicted)
			}
		})
	}

	f := setup(t)
	_, err := f.tracker.Refresh(context.Background(), "DLHC019999992020", false)
	var refreshErr *RefreshError
	require.ErrorAs(t, err, &refreshErr)
	require.Equal(t, PhaseLoad, refreshErr.Phase)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestRefreshSessionExpiredStartsNewSession(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	cnr := "DLHC010000202020"
	rec := f.track(t, cnr, false)
	f.client.failures[cnr] = fmt.Errorf("parse history of %s: %w", cnr, ecourts.ErrSessionExpired)

	_, err := f.tracker.Refresh(ctx, cnr, false)
	require.ErrorIs(t, err, ecourts.ErrSessionExpired)
	require.Equal(t, []string{f.court.String()}, f.source.evicted)
	require.Len(t, f.tel.Reports("warning", report_tracker_session), 1)

	fresh := newFakeClient()
	fresh.setHistory(rec.Case)
	f.source.next = func() *fakeClient { return fresh }

	refreshed, err := f.tracker.Refresh(ctx, cnr, true)
	require.NoError(t, err)
	require.True(t, refreshed.Changed)
	require.Equal(t, 2, f.source.builds)
	require.Equal(t, 1, fresh.fetchCount())
	require.Equal(t, 1, f.client.fetchCount())
}

func TestRefreshBatchIsolatesFailures(t *testing.T) {
	cases := []struct {
		total   int
		failing []int
	}{
		{total: 1},
		{total: 1, failing: []int{0}},
		{total: 5, failing: []int{1, 3}},
		{total: 4, failing: []int{0, 1, 2, 3}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d/m=%d", tc.total, len(tc.failing)), func(t *testing.T) {
			f := setup(t)
			var cnrs []string
			for i := 0; i < tc.total; i++ {
				cnr := fmt.Sprintf("DLHC01%06d2020", i)
				f.track(t, cnr, false)
				cnrs = append(cnrs, cnr)
			}
			for _, i := range tc.failing {
				f.client.failures[cnrs[i]] = ecourts.ErrTransient
			}
			failures := len(tc.failing)

			result, err := f.tracker.RefreshBatch(context.Background(), cnrs, true)
			require.NoError(t, err)
			require.Equal(t, tc.total, result.Total)
			require.Equal(t, tc.total-failures, result.Succeeded)
			require.Equal(t, failures, result.Failed)
			require.Len(t, result.Details, tc.total)
			for i, detail := range result.Details {
				require.Equal(t, cnrs[i], detail.CNR)
				_, failed := f.client.failures[detail.CNR]
				if failed {
					require.Equal(t, StatusError, detail.Status)
					require.NotEmpty(t, detail.Error)
				} else {
					require.Equal(t, StatusSuccess, detail.Status)
				}
			}

			require.Len(t, f.clock.Slept, tc.total-1)
			for _, d := range f.clock.Slept {
				require.Equal(t, 2*time.Second, d)
			}
			require.Equal(t, cnrs, f.client.fetched)
			require.Len(t, f.tel.Reports("warning", report_tracker_refresh_batch), failures)
		})
	}
}

func TestRefreshBatchCancelled(t *testing.T) {
	f := setup(t)
	f.track(t, "DLHC010000012020", false)
	f.track(t, "DLHC010000022020", false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := f.tracker.RefreshBatch(ctx, []string{"DLHC010000012020", "DLHC010000022020"}, false)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, result.Details)
}

func TestUpdateDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.track(t, "DLHC010000202020", false)

	rec, err := f.tracker.Update(ctx, "DLHC010000202020", true)
	require.NoError(t, err)
	require.True(t, rec.SyncCalendar)
	require.Equal(t, "evt-1", rec.CalendarEventID)

	rec, err = f.tracker.Update(ctx, "DLHC010000202020", false)
	require.NoError(t, err)
	require.False(t, rec.SyncCalendar)
	require.Empty(t, rec.CalendarEventID)

	_, err = f.tracker.Update(ctx, "DLHC010000202020", true)
	require.NoError(t, err)

	deleted, err := f.tracker.Delete(ctx, "DLHC01-000020-2020")
	require.NoError(t, err)
	require.True(t, deleted)
	require.Equal(t, []calendarCall{
		{method: "create", eventID: "evt-1", date: "2024-01-15"},
		{method: "delete", eventID: "evt-1"},
		{method: "create", eventID: "evt-2", date: "2024-01-15"},
		{method: "delete", eventID: "evt-2"},
	}, f.calendar.calls)

	deleted, err = f.tracker.Delete(ctx, "DLHC010000202020")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = f.tracker.Update(ctx, "DLHC010000202020", true)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestKeyedMutex(t *testing.T) {
	k := newKeyedMutex()
	unlockA := k.Lock("a")

	acquired := make(chan struct{})
	go func() {
		unlock := k.Lock("a")
		close(acquired)
		unlock()
	}()

	unlockB := k.Lock("b")
	unlockB()

	select {
	case <-acquired:
		t.Fatal("second lock of the same key acquired while held")
	case <-time.After(20 * time.Millisecond):
	}
	unlockA()
	<-acquired

	require.Eventually(t, func() bool {
		k.mutex.Lock()
		defer k.mutex.Unlock()
		return len(k.locks) == 0
	}, time.Second, time.Millisecond)
}

func TestPoolSourceEvict(t *testing.T) {
	builds := 0
	pool := client.NewPool(4, time.Hour, func(court ecourts.Court) (*client.Client, error) {
		builds++
		gw, err := gateway.New(court, gateway.DefaultOptions(), telemetry.NewTestAPI())
		if err != nil {
			return nil, err
		}
		return client.New(gw, nil, telemetry.NewTestAPI()), nil
	})
	court, err := ecourts.NewCourt("10", "", "")
	require.NoError(t, err)

	source := PoolSource(pool)
	first, err := source.Get(court)
	require.NoError(t, err)
	again, err := source.Get(court)
	require.NoError(t, err)
	require.Same(t, first, again)

	source.Evict(court)
	fresh, err := source.Get(court)
	require.NoError(t, err)
	require.NotSame(t, first, fresh)
	require.Equal(t, 2, builds)
}

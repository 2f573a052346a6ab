package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/store"
	"casetrack-backend/lib/textutil"
)

type SearchKind string

const (
	SearchCNR  SearchKind = "cnr"
	SearchCase SearchKind = "case"
)

// SearchRequest locates a case upstream, either by cnr or by type, number and year.
type SearchRequest struct {
	Kind SearchKind
	CNR  string
	// CaseType is a numeric case type code or a description of one.
	CaseType  string
	Number    string
	Year      string
	StateCode string
	CourtCode string
}

func (r SearchRequest) validate() error {
	switch r.Kind {
	case SearchCNR:
		if r.CNR == "" {
			return fmt.Errorf("%w: cnr search requires a cnr", ErrInvalidRequest)
		}
	case SearchCase:
		if r.CaseType == "" || r.Number == "" || r.Year == "" {
			return fmt.Errorf("%w: case search requires case type, number and year", ErrInvalidRequest)
		}
	default:
		return fmt.Errorf("%w: unknown search kind '%s'", ErrInvalidRequest, r.Kind)
	}
	return nil
}

// resolveCaseType turns a case type description into its code for court. The known
// types are fetched from upstream and cached in the store on first use.
func (t *Tracker) resolveCaseType(ctx context.Context, c Client, court ecourts.Court, caseType string) (string, error) {
	_, err := strconv.Atoi(caseType)
	if err == nil {
		return caseType, nil
	}

	types, err := t.store.CaseTypes(ctx, court)
	if err != nil {
		return "", err
	}
	if len(types) == 0 {
		err = t.offload(ctx, func() error {
			var fetchErr error
			types, fetchErr = c.CaseTypes(ctx)
			return fetchErr
		})
		if err != nil {
			return "", fmt.Errorf("resolve case type '%s': %w", caseType, err)
		}
		err = t.store.PutCaseTypes(ctx, court, types)
		if err != nil {
			t.tel.ReportWarning(report_tracker_case_types, err)
		}
	}

	descriptions := make([]string, len(types))
	for i, ct := range types {
		descriptions[i] = ct.Description
	}
	idx, similarity := textutil.Closest(caseType, descriptions)
	if idx < 0 || similarity < t.options.MatchThreshold {
		return "", fmt.Errorf("%w: unknown case type '%s'", ErrInvalidRequest, caseType)
	}
	t.tel.ReportDebug("resolved case type", caseType, types[idx].Description, similarity)
	return strconv.Itoa(types[idx].Code), nil
}

// AddCase searches upstream, expands the hit into its full history and starts
// tracking it. A case that is already tracked is returned as is, created reports
// whether a new record was written.
func (t *Tracker) AddCase(ctx context.Context, req SearchRequest, syncCalendar bool) (rec store.Record, created bool, err error) {
	err = req.validate()
	if err != nil {
		return store.Record{}, false, err
	}
	court, err := ecourts.NewCourt(req.StateCode, "", req.CourtCode)
	if err != nil {
		return store.Record{}, false, err
	}

	if req.Kind == SearchCNR {
		existing, err := t.store.Get(ctx, req.CNR)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return store.Record{}, false, err
		}
	}

	c, err := t.clients.Get(court)
	if err != nil {
		return store.Record{}, false, err
	}

	search := func() (ecourts.Case, error) {
		return c.SearchByCNR(ctx, req.CNR)
	}
	if req.Kind == SearchCase {
		caseType, err := t.resolveCaseType(ctx, c, court, req.CaseType)
		if err != nil {
			return store.Record{}, false, err
		}
		search = func() (ecourts.Case, error) {
			return c.SearchByNumber(ctx, caseType, req.Number, req.Year)
		}
	}

	var found ecourts.Case
	err = t.offload(ctx, func() error {
		var searchErr error
		found, searchErr = search()
		return searchErr
	})
	if err != nil {
		return store.Record{}, false, err
	}
	cnr := ecourts.NormalizeCNR(found.CNRNumber)

	unlock := t.locks.Lock(cnr)
	defer unlock()

	existing, err := t.store.Get(ctx, cnr)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Record{}, false, err
	}

	var expanded ecourts.Case
	err = t.offload(ctx, func() error {
		history, historyErr := c.CaseHistory(ctx, found)
		expanded = history.Case
		return historyErr
	})
	if err != nil {
		t.expire(court, err)
		return store.Record{}, false, &RefreshError{CNR: cnr, Phase: fetchPhase(err), Err: err}
	}

	rec = store.Record{
		Case:         expanded,
		Court:        court,
		SyncCalendar: syncCalendar,
	}
	err = t.store.Create(ctx, rec)
	if errors.Is(err, store.ErrConflict) {
		existing, err := t.store.Get(ctx, cnr)
		return existing, false, err
	}
	if err != nil {
		return store.Record{}, false, &RefreshError{CNR: cnr, Phase: PhaseStore, Err: err}
	}
	t.notify(ctx, &rec)

	rec, err = t.store.Get(ctx, cnr)
	return rec, true, err
}

// Update toggles calendar sync for a tracked case. Enabling it puts the next hearing
// on the calendar, disabling it removes the existing event.
func (t *Tracker) Update(ctx context.Context, cnr string, syncCalendar bool) (store.Record, error) {
	cnr = ecourts.NormalizeCNR(cnr)
	unlock := t.locks.Lock(cnr)
	defer unlock()

	rec, err := t.store.Get(ctx, cnr)
	if err != nil {
		return store.Record{}, err
	}
	if rec.SyncCalendar == syncCalendar {
		return rec, nil
	}

	rec.SyncCalendar = syncCalendar
	if !syncCalendar && rec.CalendarEventID != "" {
		t.deleteEvent(ctx, cnr, rec.CalendarEventID)
		rec.CalendarEventID = ""
	}
	err = t.store.Upsert(ctx, rec)
	if err != nil {
		return store.Record{}, err
	}
	if syncCalendar {
		t.notify(ctx, &rec)
	}
	return t.store.Get(ctx, cnr)
}

// Delete stops tracking cnr and removes its calendar event, it reports whether the
// case was tracked.
func (t *Tracker) Delete(ctx context.Context, cnr string) (bool, error) {
	cnr = ecourts.NormalizeCNR(cnr)
	unlock := t.locks.Lock(cnr)
	defer unlock()

	rec, err := t.store.Get(ctx, cnr)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if rec.CalendarEventID != "" {
		t.deleteEvent(ctx, cnr, rec.CalendarEventID)
	}
	return t.store.Delete(ctx, cnr)
}

func (t *Tracker) deleteEvent(ctx context.Context, cnr, eventID string) {
	err := t.calendar.Delete(ctx, eventID)
	if err != nil {
		t.tel.ReportWarning(report_tracker_notify, &RefreshError{CNR: cnr, Phase: PhaseNotify, Err: err})
	}
}

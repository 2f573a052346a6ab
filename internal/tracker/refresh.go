package tracker

import (
	"context"
	"errors"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/fingerprint"
	"casetrack-backend/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Refreshed is the outcome of one successful refresh.
type Refreshed struct {
	Record store.Record
	// Changed is true when the record was written.
	Changed bool
	// HearingMoved is true when the next hearing date differs from the stored one.
	HearingMoved bool
}

func fetchPhase(err error) Phase {
	if errors.Is(err, ecourts.ErrParse) ||
		errors.Is(err, ecourts.ErrSessionExpired) ||
		errors.Is(err, ecourts.ErrInvalidCNR) {
		return PhaseParse
	}
	return PhaseFetch
}

// Refresh fetches the current state of a tracked case and writes it when its
// fingerprint changed or force is set. Refreshes of the same cnr never overlap.
func (t *Tracker) Refresh(ctx context.Context, cnr string, force bool) (Refreshed, error) {
	cnr = ecourts.NormalizeCNR(cnr)
	ctx, span := tracer.Start(ctx, "tracker.refresh", trace.WithAttributes(
		attribute.String("ecourts.cnr", cnr),
		attribute.Bool("tracker.force", force),
	))
	defer span.End()

	unlock := t.locks.Lock(cnr)
	defer unlock()

	result, err := t.refresh(ctx, cnr, force)
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case result.Changed:
		outcome = "updated"
	}
	t.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	return result, err
}

func (t *Tracker) refresh(ctx context.Context, cnr string, force bool) (Refreshed, error) {
	rec, err := t.store.Get(ctx, cnr)
	if err != nil {
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: PhaseLoad, Err: err}
	}
	c, err := t.clients.Get(rec.Court)
	if err != nil {
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: PhaseFetch, Err: err}
	}

	var fetched ecourts.Case
	err = t.offload(ctx, func() error {
		history, historyErr := c.CaseHistory(ctx, rec.Case)
		fetched = history.Case
		return historyErr
	})
	if err != nil {
		t.expire(rec.Court, err)
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: fetchPhase(err), Err: err}
	}
	if fetched.CNRNumber != cnr {
		return Refreshed{}, &RefreshError{
			CNR:   cnr,
			Phase: PhaseParse,
			Err:   errors.New("upstream returned a different case"),
		}
	}

	changed, digest, err := fingerprint.Changed(rec.Fingerprint, fetched)
	if err != nil {
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: PhaseParse, Err: err}
	}
	if !changed && !force {
		t.tel.ReportDebug("case unchanged", cnr)
		return Refreshed{Record: rec}, nil
	}

	moved := !sameDate(rec.Case.NextHearingDate, fetched.NextHearingDate)
	rec.Case = fetched
	rec.Fingerprint = digest
	err = t.store.Upsert(ctx, rec)
	if err != nil {
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: PhaseStore, Err: err}
	}
	if moved {
		t.notify(ctx, &rec)
	}

	updated, err := t.store.Get(ctx, cnr)
	if err != nil {
		return Refreshed{}, &RefreshError{CNR: cnr, Phase: PhaseStore, Err: err}
	}
	return Refreshed{Record: updated, Changed: true, HearingMoved: moved}, nil
}

type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Detail is the outcome of one case of a batch.
type Detail struct {
	CNR     string
	Status  Status
	Changed bool
	Error   string
}

type BatchResult struct {
	Total     int
	Succeeded int
	Failed    int
	Details   []Detail
}

// RefreshBatch refreshes cnrs one after another, pausing between cases. A failed
// case is reported and counted and never stops the batch, only cancelling ctx does.
func (t *Tracker) RefreshBatch(ctx context.Context, cnrs []string, force bool) (BatchResult, error) {
	result := BatchResult{
		Total:   len(cnrs),
		Details: make([]Detail, 0, len(cnrs)),
	}
	for i, cnr := range cnrs {
		if i > 0 {
			err := t.time.Sleep(ctx, t.options.Pacing)
			if err != nil {
				return result, err
			}
		}

		refreshed, err := t.Refresh(ctx, cnr, force)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			t.tel.ReportWarning(report_tracker_refresh_batch, err)
			result.Failed++
			result.Details = append(result.Details, Detail{
				CNR:    ecourts.NormalizeCNR(cnr),
				Status: StatusError,
				Error:  err.Error(),
			})
			continue
		}
		result.Succeeded++
		result.Details = append(result.Details, Detail{
			CNR:     ecourts.NormalizeCNR(cnr),
			Status:  StatusSuccess,
			Changed: refreshed.Changed,
		})
	}

	t.tel.ReportCount(report_tracker_refresh_batch, int64(result.Succeeded))
	t.tel.ReportDebug("refresh batch completed", "total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}

// RefreshAll runs a batch over every tracked case, oldest first.
func (t *Tracker) RefreshAll(ctx context.Context, force bool) (BatchResult, error) {
	cnrs, err := t.store.AllCNRs(ctx)
	if err != nil {
		t.tel.ReportBroken(report_tracker_refresh, err)
		return BatchResult{}, err
	}
	return t.RefreshBatch(ctx, cnrs, force)
}

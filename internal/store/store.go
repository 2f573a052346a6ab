// Package store persists tracked cases and the per court code lookups.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/chrono"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/db"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/fingerprint"
)

const (
	report_store_list     = "store.list"
	report_store_put_type = "store.put-types"
)

var (
	ErrNotFound = errors.New("store: case not found")
	ErrConflict = errors.New("store: case already exists")
)

// Record is a tracked case with its bookkeeping.
type Record struct {
	Case  ecourts.Case
	Court ecourts.Court
	// Fingerprint is the digest of Case when it was last written.
	Fingerprint     string
	CalendarEventID string
	// SyncCalendar enables calendar notifications when the next hearing moves.
	SyncCalendar bool
	CreatedAt    time.Time
	LastUpdated  time.Time
	ScrapedAt    time.Time
}

// Filter narrows List, empty fields match everything and a zero Limit means no limit.
type Filter struct {
	Status   string
	CaseType string
	Limit    int
	Offset   int
}

type Store struct {
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.TimeAPI
	tel    telemetry.API
}

// Open applies the schema to database and returns a store over it.
func Open(ctx context.Context, database *sql.DB, timeAPI chrono.TimeAPI, tel telemetry.API) (*Store, error) {
	assert.NotNil(database)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)

	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{
		qry:    db.New(database),
		makeTx: db.NewMakeTx(database),
		time:   timeAPI,
		tel:    telemetry.NewScopedAPI("store", tel),
	}, nil
}

func (s *Store) row(rec Record, now time.Time) (db.Case, error) {
	c, err := ecourts.NewCase(rec.Case)
	if err != nil {
		return db.Case{}, err
	}
	if rec.Court.IsZero() {
		return db.Case{}, fmt.Errorf("%w: record %s has no court", ecourts.ErrInvalidCourt, c.CNRNumber)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return db.Case{}, err
	}
	digest := rec.Fingerprint
	if digest == "" {
		digest, err = fingerprint.Of(c)
		if err != nil {
			return db.Case{}, err
		}
	}

	next := ""
	if c.NextHearingDate != nil {
		next = c.NextHearingDate.String()
	}
	return db.Case{
		CnrNumber:          c.CNRNumber,
		StateCode:          rec.Court.StateCode(),
		DistrictCode:       rec.Court.DistrictCode(),
		CourtCode:          rec.Court.CourtCode(),
		CaseType:           c.CaseType,
		RegistrationNumber: c.RegistrationNumber,
		CaseStatus:         c.CaseStatus,
		NextHearingDate:    next,
		CaseData:           string(data),
		Fingerprint:        digest,
		CalendarEventID:    rec.CalendarEventID,
		SyncCalendar:       rec.SyncCalendar,
		CreatedAt:          now.Unix(),
		LastUpdated:        now.Unix(),
		ScrapedAt:          now.Unix(),
	}, nil
}

func fromRow(row db.Case) (Record, error) {
	var c ecourts.Case
	err := json.Unmarshal([]byte(row.CaseData), &c)
	if err != nil {
		return Record{}, fmt.Errorf("decode case %s: %w", row.CnrNumber, err)
	}
	c, err = ecourts.NewCase(c)
	if err != nil {
		return Record{}, err
	}
	court, err := ecourts.NewCourt(row.StateCode, row.DistrictCode, row.CourtCode)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Case:            c,
		Court:           court,
		Fingerprint:     row.Fingerprint,
		CalendarEventID: row.CalendarEventID,
		SyncCalendar:    row.SyncCalendar,
		CreatedAt:       time.Unix(row.CreatedAt, 0),
		LastUpdated:     time.Unix(row.LastUpdated, 0),
		ScrapedAt:       time.Unix(row.ScrapedAt, 0),
	}, nil
}

// Upsert writes rec keyed by its cnr, replacing any existing record. An empty
// Fingerprint is computed from the case.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	row, err := s.row(rec, s.time.Now())
	if err != nil {
		return err
	}
	return s.qry.UpsertCase(ctx, row)
}

// Create writes rec, failing with ErrConflict if its cnr is already tracked.
func (s *Store) Create(ctx context.Context, rec Record) (err error) {
	row, err := s.row(rec, s.time.Now())
	if err != nil {
		return err
	}

	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			discard()
		}
	}()

	exists, err := tx.CaseExists(ctx, row.CnrNumber)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrConflict, row.CnrNumber)
	}
	err = tx.InsertCase(ctx, row)
	if err != nil {
		return err
	}
	return commit()
}

func (s *Store) Get(ctx context.Context, cnr string) (Record, error) {
	row, err := s.qry.GetCase(ctx, ecourts.NormalizeCNR(cnr))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, cnr)
	}
	if err != nil {
		return Record{}, err
	}
	return fromRow(row)
}

// List streams the records matching filter to fn, most recently updated first.
// Rows that cannot be decoded are reported and skipped. fn must not call back into
// the store.
func (s *Store) List(ctx context.Context, filter Filter, fn func(Record) error) error {
	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = -1
	}
	return s.qry.ListCases(ctx, db.ListCasesParams{
		CaseStatus: filter.Status,
		CaseType:   filter.CaseType,
		Limit:      limit,
		Offset:     int64(filter.Offset),
	}, func(row db.Case) error {
		rec, err := fromRow(row)
		if err != nil {
			s.tel.ReportWarning(report_store_list, err)
			return nil
		}
		return fn(rec)
	})
}

// Delete reports whether a record was removed.
func (s *Store) Delete(ctx context.Context, cnr string) (bool, error) {
	n, err := s.qry.DeleteCase(ctx, ecourts.NormalizeCNR(cnr))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) AllCNRs(ctx context.Context) ([]string, error) {
	return s.qry.ListCNRs(ctx)
}

func (s *Store) SetCalendarEventID(ctx context.Context, cnr, eventID string) error {
	return s.qry.SetCalendarEventID(ctx, eventID, ecourts.NormalizeCNR(cnr))
}

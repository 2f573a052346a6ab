package store

import (
	"context"

	"casetrack-backend/internal/db"
	"casetrack-backend/internal/ecourts"
)

// putTypes replaces the lookup rows of court in table.
func (s *Store) putTypes(ctx context.Context, table db.TypeTable, court ecourts.Court, rows []ecourts.TypeRow) (err error) {
	tx, discard, commit, err := s.makeTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			discard()
		}
	}()

	err = tx.DeleteTypes(ctx, table, court.StateCode(), court.CourtCode())
	if err != nil {
		return err
	}
	for _, r := range rows {
		err = tx.InsertType(ctx, table, db.TypeRow{
			Code:           int64(r.Code),
			Description:    r.Description,
			CourtStateCode: r.CourtStateCode,
			CourtCourtCode: r.CourtCourtCode,
		})
		if err != nil {
			s.tel.ReportWarning(report_store_put_type, err, string(table), r.Code)
			return err
		}
	}
	return commit()
}

func (s *Store) listTypes(ctx context.Context, table db.TypeTable, court ecourts.Court) ([]ecourts.TypeRow, error) {
	rows, err := s.qry.ListTypes(ctx, table, court.StateCode(), court.CourtCode())
	if err != nil {
		return nil, err
	}
	out := make([]ecourts.TypeRow, len(rows))
	for i, r := range rows {
		out[i] = ecourts.TypeRow{
			Code:           int(r.Code),
			Description:    r.Description,
			CourtStateCode: r.CourtStateCode,
			CourtCourtCode: r.CourtCourtCode,
		}
	}
	return out, nil
}

func (s *Store) PutCaseTypes(ctx context.Context, court ecourts.Court, types []ecourts.CaseType) error {
	rows := make([]ecourts.TypeRow, len(types))
	for i, t := range types {
		rows[i] = t.Row()
	}
	return s.putTypes(ctx, db.CASE_TYPES, court, rows)
}

func (s *Store) CaseTypes(ctx context.Context, court ecourts.Court) ([]ecourts.CaseType, error) {
	rows, err := s.listTypes(ctx, db.CASE_TYPES, court)
	if err != nil {
		return nil, err
	}
	out := make([]ecourts.CaseType, len(rows))
	for i, r := range rows {
		out[i] = ecourts.CaseType{Code: r.Code, Description: r.Description, Court: court}
	}
	return out, nil
}

func (s *Store) PutActTypes(ctx context.Context, court ecourts.Court, types []ecourts.ActType) error {
	rows := make([]ecourts.TypeRow, len(types))
	for i, t := range types {
		rows[i] = t.Row()
	}
	return s.putTypes(ctx, db.ACT_TYPES, court, rows)
}

func (s *Store) ActTypes(ctx context.Context, court ecourts.Court) ([]ecourts.ActType, error) {
	rows, err := s.listTypes(ctx, db.ACT_TYPES, court)
	if err != nil {
		return nil, err
	}
	out := make([]ecourts.ActType, len(rows))
	for i, r := range rows {
		out[i] = ecourts.ActType{Code: r.Code, Description: r.Description, Court: court}
	}
	return out, nil
}

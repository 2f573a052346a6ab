package db

import (
	"context"
	"database/sql"
	"fmt"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

const caseColumns = `cnr_number, state_code, district_code, court_code, case_type,
registration_number, case_status, next_hearing_date, case_data, fingerprint,
calendar_event_id, sync_calendar, created_at, last_updated, scraped_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCase(row scanner) (Case, error) {
	var i Case
	err := row.Scan(
		&i.CnrNumber,
		&i.StateCode,
		&i.DistrictCode,
		&i.CourtCode,
		&i.CaseType,
		&i.RegistrationNumber,
		&i.CaseStatus,
		&i.NextHearingDate,
		&i.CaseData,
		&i.Fingerprint,
		&i.CalendarEventID,
		&i.SyncCalendar,
		&i.CreatedAt,
		&i.LastUpdated,
		&i.ScrapedAt,
	)
	return i, err
}

const insertCase = `insert into cases(` + caseColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertCase(ctx context.Context, arg Case) error {
	_, err := q.db.ExecContext(ctx, insertCase,
		arg.CnrNumber,
		arg.StateCode,
		arg.DistrictCode,
		arg.CourtCode,
		arg.CaseType,
		arg.RegistrationNumber,
		arg.CaseStatus,
		arg.NextHearingDate,
		arg.CaseData,
		arg.Fingerprint,
		arg.CalendarEventID,
		arg.SyncCalendar,
		arg.CreatedAt,
		arg.LastUpdated,
		arg.ScrapedAt,
	)
	return err
}

const upsertCase = insertCase + `
on conflict (cnr_number) do update set
    state_code = excluded.state_code,
    district_code = excluded.district_code,
    court_code = excluded.court_code,
    case_type = excluded.case_type,
    registration_number = excluded.registration_number,
    case_status = excluded.case_status,
    next_hearing_date = excluded.next_hearing_date,
    case_data = excluded.case_data,
    fingerprint = excluded.fingerprint,
    calendar_event_id = excluded.calendar_event_id,
    sync_calendar = excluded.sync_calendar,
    last_updated = excluded.last_updated,
    scraped_at = excluded.scraped_at`

// UpsertCase inserts or replaces a case, created_at is kept from the first insert.
func (q *Queries) UpsertCase(ctx context.Context, arg Case) error {
	_, err := q.db.ExecContext(ctx, upsertCase,
		arg.CnrNumber,
		arg.StateCode,
		arg.DistrictCode,
		arg.CourtCode,
		arg.CaseType,
		arg.RegistrationNumber,
		arg.CaseStatus,
		arg.NextHearingDate,
		arg.CaseData,
		arg.Fingerprint,
		arg.CalendarEventID,
		arg.SyncCalendar,
		arg.CreatedAt,
		arg.LastUpdated,
		arg.ScrapedAt,
	)
	return err
}

const getCase = `select ` + caseColumns + ` from cases where cnr_number = ?`

func (q *Queries) GetCase(ctx context.Context, cnrNumber string) (Case, error) {
	row := q.db.QueryRowContext(ctx, getCase, cnrNumber)
	return scanCase(row)
}

const caseExists = `select count(*) from cases where cnr_number = ?`

func (q *Queries) CaseExists(ctx context.Context, cnrNumber string) (bool, error) {
	row := q.db.QueryRowContext(ctx, caseExists, cnrNumber)
	var count int64
	err := row.Scan(&count)
	return count > 0, err
}

const listCases = `select ` + caseColumns + ` from cases
where (?1 = '' or case_status = ?1)
and (?2 = '' or case_type = ?2)
order by last_updated desc, cnr_number
limit ?3 offset ?4`

type ListCasesParams struct {
	CaseStatus string
	CaseType   string
	Limit      int64
	Offset     int64
}

// ListCases calls fn for every matching row, in order, stopping at the first error.
func (q *Queries) ListCases(ctx context.Context, arg ListCasesParams, fn func(Case) error) error {
	rows, err := q.db.QueryContext(ctx, listCases,
		arg.CaseStatus,
		arg.CaseType,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		i, err := scanCase(rows)
		if err != nil {
			return err
		}
		err = fn(i)
		if err != nil {
			return err
		}
	}
	if err := rows.Close(); err != nil {
		return err
	}
	return rows.Err()
}

const listCNRs = `select cnr_number from cases order by created_at, cnr_number`

func (q *Queries) ListCNRs(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listCNRs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var cnr string
		if err := rows.Scan(&cnr); err != nil {
			return nil, err
		}
		items = append(items, cnr)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCase = `delete from cases where cnr_number = ?`

func (q *Queries) DeleteCase(ctx context.Context, cnrNumber string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCase, cnrNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setCalendarEventID = `update cases set calendar_event_id = ? where cnr_number = ?`

func (q *Queries) SetCalendarEventID(ctx context.Context, calendarEventID, cnrNumber string) error {
	_, err := q.db.ExecContext(ctx, setCalendarEventID, calendarEventID, cnrNumber)
	return err
}

func (q *Queries) DeleteTypes(ctx context.Context, table TypeTable, courtStateCode, courtCourtCode string) error {
	_, err := q.db.ExecContext(
		ctx,
		fmt.Sprintf(`delete from %s where court_state_code = ? and court_court_code = ?`, table),
		courtStateCode, courtCourtCode,
	)
	return err
}

func (q *Queries) InsertType(ctx context.Context, table TypeTable, arg TypeRow) error {
	_, err := q.db.ExecContext(
		ctx,
		fmt.Sprintf(`insert into %s(code, description, court_state_code, court_court_code)
values (?, ?, ?, ?)
on conflict (code, court_state_code, court_court_code) do update set
    description = excluded.description`, table),
		arg.Code, arg.Description, arg.CourtStateCode, arg.CourtCourtCode,
	)
	return err
}

func (q *Queries) ListTypes(ctx context.Context, table TypeTable, courtStateCode, courtCourtCode string) ([]TypeRow, error) {
	rows, err := q.db.QueryContext(
		ctx,
		fmt.Sprintf(`select code, description, court_state_code, court_court_code from %s
where court_state_code = ? and court_court_code = ?
order by code`, table),
		courtStateCode, courtCourtCode,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TypeRow
	for rows.Next() {
		var i TypeRow
		if err := rows.Scan(
			&i.Code,
			&i.Description,
			&i.CourtStateCode,
			&i.CourtCourtCode,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

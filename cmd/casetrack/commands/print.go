package commands

import (
	"os"
	"time"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/store"

	"github.com/jedib0t/go-pretty/v6/table"
)

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

func formatDate(d *ecourts.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "-"
	}
	return t.Format(time.DateTime)
}

func recordRow(rec store.Record) table.Row {
	return table.Row{
		rec.Case.CNRNumber,
		rec.Case.Name(),
		rec.Case.CaseType,
		rec.Case.RegistrationNumber,
		rec.Case.CaseStatus,
		formatDate(rec.Case.NextHearingDate),
		rec.Court.Name(),
		formatTime(rec.LastUpdated),
	}
}

var recordHeader = table.Row{"CNR", "Case", "Type", "Registration", "Status", "Next hearing", "Court", "Last updated"}

func printRecords(records ...store.Record) {
	t := newTable()
	t.AppendHeader(recordHeader)
	for _, rec := range records {
		t.AppendRow(recordRow(rec))
	}
	t.Render()
}

func printCase(rec store.Record) {
	c := rec.Case

	t := newTable()
	t.SetTitle(c.Name())
	t.AppendRows([]table.Row{
		{"CNR", c.CNRNumber},
		{"Court", rec.Court.Name()},
		{"Case type", c.CaseType},
		{"Registration number", c.RegistrationNumber},
		{"Filing number", c.FilingNumber},
		{"Filing date", formatDate(c.FilingDate)},
		{"Registration date", formatDate(c.RegistrationDate)},
		{"First hearing", formatDate(c.FirstHearingDate)},
		{"Next hearing", formatDate(c.NextHearingDate)},
		{"Decision date", formatDate(c.DecisionDate)},
		{"Status", c.CaseStatus},
		{"Nature of disposal", c.NatureOfDisposal},
		{"Coram", c.Coram},
		{"Bench", c.Bench},
		{"Category", c.Category},
		{"Sub category", c.SubCategory},
		{"Calendar sync", rec.SyncCalendar},
		{"Calendar event", rec.CalendarEventID},
		{"Fingerprint", rec.Fingerprint},
		{"Last updated", formatTime(rec.LastUpdated)},
	})
	t.Render()

	parties := newTable()
	parties.AppendHeader(table.Row{"Side", "Name", "Advocate"})
	for _, p := range c.Petitioners {
		parties.AppendRow(table.Row{"Petitioner", p.Name, p.Advocate})
	}
	for _, p := range c.Respondents {
		parties.AppendRow(table.Row{"Respondent", p.Name, p.Advocate})
	}
	parties.Render()

	if len(c.Hearings) > 0 {
		hearings := newTable()
		hearings.SetTitle("Hearings")
		hearings.AppendHeader(table.Row{"#", "Cause list", "Judge", "Date", "Next date", "Purpose"})
		for i, h := range c.Hearings {
			hearings.AppendRow(table.Row{i, h.CauseListType, h.Judge, h.Date, h.NextDate, h.Purpose})
		}
		hearings.Render()
	}

	if len(c.Orders) > 0 {
		orders := newTable()
		orders.SetTitle("Orders")
		orders.AppendHeader(table.Row{"#", "Judge", "Date", "File"})
		for i, o := range c.Orders {
			orders.AppendRow(table.Row{i, o.Judge, o.Date, o.Filename})
		}
		orders.Render()
	}

	if len(c.Objections) > 0 {
		objections := newTable()
		objections.SetTitle("Objections")
		objections.AppendHeader(table.Row{"Scrutiny", "Objection", "Compliance", "Receipt"})
		for _, o := range c.Objections {
			objections.AppendRow(table.Row{o.ScrutinyDate, o.Objection, o.ComplianceDate, o.ReceiptDate})
		}
		objections.Render()
	}
}

package parsers

import (
	"fmt"
	"strings"
	"time"

	"casetrack-backend/internal/ecourts"
)

// dateLayouts are tried in order, the first one that parses wins.
var dateLayouts = []string{
	"20060102",
	"2-1-2006",
	"2/1/2006",
	"2th January 2006",
	"2st January 2006",
	"2nd January 2006",
	"2rd January 2006",
	"2 January 2006",
	"2006-1-2",
}

const (
	minPlausibleYear = 1990
	maxPlausibleYear = 2030
)

func isPlaceholderDate(s string) bool {
	switch s {
	case "", "-", "N/A":
		return true
	}
	return false
}

// Date normalizes one of the date spellings upstream uses. Placeholders, unparseable
// text and implausible years all yield nil, the latter two are reported.
func (p Parser) Date(raw string) *ecourts.Date {
	s := strings.TrimSpace(raw)
	if isPlaceholderDate(s) {
		return nil
	}

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() <= minPlausibleYear || t.Year() >= maxPlausibleYear {
			p.tel.ReportWarning(report_parser_date, fmt.Errorf("%w: implausible year in date '%s'", ecourts.ErrParse, s))
			return nil
		}
		d := ecourts.NewDate(t.Year(), t.Month(), t.Day())
		return &d
	}

	p.tel.ReportWarning(report_parser_date, fmt.Errorf("%w: unknown date format '%s'", ecourts.ErrParse, s))
	return nil
}

package parsers

import (
	"fmt"
	"strings"

	"casetrack-backend/internal/ecourts"
)

const (
	recordSeparator = "##"
	fieldSeparator  = "~"
	// records have at least this many fields, shorter blocks are skipped.
	minRecordFields = 8
)

// list result field layout:
//
//	0: case number (internal, may be empty)
//	1: "<case type>/<year>/<number>"
//	2: "<petitioner> Versus <respondent>"
//	3: cnr
//	4-6: unused
//	7: continuation token
const (
	fieldCaseNumber = 0
	fieldCaseID     = 1
	fieldParties    = 2
	fieldCNR        = 3
	fieldToken      = 7
)

// CheckPayload returns the error marker a payload starts with, if any.
func CheckPayload(raw string, prefixLen int) error {
	head := raw
	if len(head) > prefixLen {
		head = head[:prefixLen]
	}
	head = strings.ToUpper(head)
	if strings.Contains(head, "ERROR") {
		return fmt.Errorf("%w: got invalid result", ecourts.ErrValidation)
	}
	if strings.Contains(head, "INVALID CAPTCHA") {
		return fmt.Errorf("%w: upstream rejected the captcha", ecourts.ErrCaptcha)
	}
	return nil
}

// Cases parses a list search result.
//
// The list results are sparse search hits: the cnr is taken as printed (with hyphens
// removed) and is validated later, when a hit becomes a tracked case.
func (p Parser) Cases(raw string) ([]ecourts.Case, error) {
	if raw == "" {
		return nil, nil
	}
	err := CheckPayload(raw, 15)
	if err != nil {
		return nil, err
	}

	var out []ecourts.Case
	for i, block := range strings.Split(raw, recordSeparator) {
		fields := strings.Split(block, fieldSeparator)
		if len(fields) < minRecordFields {
			if strings.TrimSpace(block) != "" {
				p.tel.ReportDebug("skipped short record", i, len(fields))
			}
			continue
		}

		c, err := p.listRecord(fields)
		if err != nil {
			p.tel.ReportWarning(report_parser_cases, err, i)
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (p Parser) listRecord(fields []string) (ecourts.Case, error) {
	idParts := strings.Split(fields[fieldCaseID], "/")
	if len(idParts) < 3 {
		return ecourts.Case{}, fmt.Errorf("%w: case id '%s' has fewer than 3 parts", ecourts.ErrParse, fields[fieldCaseID])
	}
	caseType := strings.TrimSpace(idParts[0])
	year := strings.TrimSpace(idParts[1])
	number := strings.TrimSpace(idParts[2])

	petitioner, respondent := splitParties(fields[fieldParties])

	cnr := ecourts.NormalizeCNR(fields[fieldCNR])
	if cnr == "" {
		return ecourts.Case{}, fmt.Errorf("%w: empty cnr", ecourts.ErrParse)
	}

	c := ecourts.Case{
		CNRNumber:          cnr,
		CaseType:           caseType,
		RegistrationNumber: fmt.Sprintf("%s/%s", year, number),
		CaseNumber:         strings.TrimSpace(fields[fieldCaseNumber]),
		Token:              strings.TrimSpace(fields[fieldToken]),
		Petitioners:        []ecourts.Party{{Name: petitioner}},
		Respondents:        []ecourts.Party{{Name: respondent}},
		Hearings:           []ecourts.Hearing{},
		Orders:             []ecourts.Order{},
		Objections:         []ecourts.Objection{},
	}
	return c, nil
}

func splitParties(text string) (petitioner, respondent string) {
	text = strings.TrimSpace(strings.ReplaceAll(text, "<br/>", ""))
	before, after, found := strings.Cut(text, "Versus")
	if !found {
		return text, "Unknown"
	}
	petitioner = strings.TrimSpace(before)
	respondent = strings.TrimSpace(after)
	if respondent == "" {
		respondent = "Unknown"
	}
	return petitioner, respondent
}

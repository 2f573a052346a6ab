// Package parsers turns raw upstream payloads into ecourts records.
//
// Every parser is total: malformed individual records are reported and skipped,
// only payload level failures (error markers, expired sessions) are returned.
package parsers

import (
	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/telemetry"
)

const (
	report_parser_cases   = "parser.cases"
	report_parser_options = "parser.options"
	report_parser_date    = "parser.date"
	report_parser_js_call = "parser.js-call"
	report_parser_detail  = "parser.detail"
)

// Parser holds the telemetry the parsers report skipped records to, it has no other
// state.
type Parser struct {
	tel telemetry.API
}

func NewParser(tel telemetry.API) Parser {
	assert.NotNil(tel)
	return Parser{tel: telemetry.NewScopedAPI("parsers", tel)}
}

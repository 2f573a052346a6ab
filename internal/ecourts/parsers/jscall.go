package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"casetrack-backend/internal/ecourts"
)

type ArgKind int

const (
	ArgString ArgKind = iota
	ArgInt
)

// Arg names one positional argument of a script call.
type Arg struct {
	Name string
	Kind ArgKind
}

// hearingCallSignature is the argument layout of the onclick handler attached to
// hearing dates.
var hearingCallSignature = []Arg{
	{Name: "court_code"},
	{Name: "district_code"},
	{Name: "next_date"},
	{Name: "case_number"},
	{Name: "state_code"},
	{Name: "disposal_flag"},
	{Name: "business_date"},
	{Name: "court_no"},
	{Name: "srno"},
}

var callArgs = regexp.MustCompile(`\((.*)\)`)

// JSCall extracts the arguments of an inline call like "viewBusiness('1','2',3)" and
// maps them positionally onto signature. Arguments that fail to convert to their
// declared kind are kept as strings. On a count mismatch the positions present in
// both are mapped and the mismatch is reported.
func (p Parser) JSCall(expr string, signature []Arg) (map[string]any, error) {
	match := callArgs.FindStringSubmatch(expr)
	if match == nil {
		return nil, fmt.Errorf("%w: no call arguments in '%s'", ecourts.ErrParse, expr)
	}

	raw := strings.Split(match[1], ",")
	if len(raw) != len(signature) {
		p.tel.ReportWarning(
			report_parser_js_call,
			fmt.Errorf("%w: expected %d call arguments, got %d", ecourts.ErrParse, len(signature), len(raw)),
		)
	}

	out := make(map[string]any, len(signature))
	for i, arg := range signature[:min(len(raw), len(signature))] {
		value := strings.Trim(strings.TrimSpace(raw[i]), `'"`)
		switch arg.Kind {
		case ArgInt:
			n, err := strconv.Atoi(value)
			if err != nil {
				p.tel.ReportDebug("js call argument kept as string", arg.Name, value)
				out[arg.Name] = value
				continue
			}
			out[arg.Name] = n
		default:
			out[arg.Name] = value
		}
	}
	return out, nil
}

func stringArg(args map[string]any, name string) string {
	v, ok := args[name]
	if !ok {
		return ""
	}
	return fmt.Sprint(v)
}

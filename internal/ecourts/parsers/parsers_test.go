package parsers

import (
	"os"
	"testing"
	"time"

	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestParser() (Parser, *telemetry.TestAPI) {
	tel := telemetry.NewTestAPI()
	return NewParser(tel), tel
}

func TestCases(t *testing.T) {
	p, _ := newTestParser()

	cases, err := p.Cases("CT/0020/2020/1~1234/2020/20~Alice Versus Bob~AB010020202020~x~x~x~TOKEN123")
	require.NoError(t, err)
	require.Len(t, cases, 1)

	expected := ecourts.Case{
		CNRNumber:          "AB010020202020",
		CaseType:           "1234",
		RegistrationNumber: "2020/20",
		CaseNumber:         "CT/0020/2020/1",
		Token:              "TOKEN123",
		Petitioners:        []ecourts.Party{{Name: "Alice"}},
		Respondents:        []ecourts.Party{{Name: "Bob"}},
		Hearings:           []ecourts.Hearing{},
		Orders:             []ecourts.Order{},
		Objections:         []ecourts.Objection{},
	}
	if diff := cmp.Diff(expected, cases[0]); diff != "" {
		t.Fatal(diff)
	}
}

func TestCasesSkipsMalformedRecords(t *testing.T) {
	p, tel := newTestParser()

	raw := "a~b~c~d~e" +
		"##~1234~Alice Versus Bob~AB010020202020~x~x~x~T1" +
		"##~WPC/2021/7~ACME<br/> Versus <br/>STATE~DLHC-01-0000012021~x~x~x~T2" +
		"##~WPC/2021/8~LONE PETITIONER~DLHC010000082021~x~x~x~T3"
	cases, err := p.Cases(raw)
	require.NoError(t, err)
	require.Len(t, cases, 2)

	require.Equal(t, "DLHC010000012021", cases[0].CNRNumber)
	require.Equal(t, "WPC", cases[0].CaseType)
	require.Equal(t, "2021/7", cases[0].RegistrationNumber)
	require.Equal(t, "", cases[0].CaseNumber)
	require.Equal(t, "ACME vs STATE", cases[0].Name())

	require.Equal(t, "LONE PETITIONER", cases[1].Petitioners[0].Name)
	require.Equal(t, "Unknown", cases[1].Respondents[0].Name)

	require.Len(t, tel.Reports("warning", report_parser_cases), 1)
}

func TestCasesErrorMarkers(t *testing.T) {
	p, _ := newTestParser()

	cases, err := p.Cases("")
	require.NoError(t, err)
	require.Empty(t, cases)

	_, err = p.Cases("ERROR: no records")
	require.ErrorIs(t, err, ecourts.ErrValidation)

	_, err = p.Cases("Invalid Captcha~~")
	require.ErrorIs(t, err, ecourts.ErrCaptcha)

	// markers past the prefix are part of the data
	_, err = p.Cases("CT/0020/2020/1~1234/2020/20~ERROR Versus Bob~AB010020202020~x~x~x~T")
	require.NoError(t, err)
}

func TestOptions(t *testing.T) {
	p, _ := newTestParser()

	options := p.Options("~Select\n1~WP(C)\nnot an option\n 27 ~ CRL.A. \n")
	expected := []Option{
		{Code: "", Description: "Select"},
		{Code: "1", Description: "WP(C)"},
		{Code: "27", Description: "CRL.A."},
	}
	if diff := cmp.Diff(expected, options); diff != "" {
		t.Fatal(diff)
	}
}

func TestDate(t *testing.T) {
	p, tel := newTestParser()

	cases := []struct {
		name     string
		input    string
		expected *ecourts.Date
	}{
		{name: "compact", input: "20240115", expected: ptr(ecourts.NewDate(2024, time.January, 15))},
		{name: "dashed", input: "05-03-2019", expected: ptr(ecourts.NewDate(2019, time.March, 5))},
		{name: "slashed", input: "7/3/2019", expected: ptr(ecourts.NewDate(2019, time.March, 7))},
		{name: "ordinal th", input: "12th March 2019", expected: ptr(ecourts.NewDate(2019, time.March, 12))},
		{name: "ordinal st", input: "1st March 2019", expected: ptr(ecourts.NewDate(2019, time.March, 1))},
		{name: "ordinal nd", input: "22nd March 2019", expected: ptr(ecourts.NewDate(2019, time.March, 22))},
		{name: "ordinal rd", input: "3rd March 2019", expected: ptr(ecourts.NewDate(2019, time.March, 3))},
		{name: "plain", input: "9 June 2021", expected: ptr(ecourts.NewDate(2021, time.June, 9))},
		{name: "iso", input: "2021-06-09", expected: ptr(ecourts.NewDate(2021, time.June, 9))},
		{name: "padded", input: "  2021-06-09 ", expected: ptr(ecourts.NewDate(2021, time.June, 9))},
		{name: "dash placeholder", input: "-"},
		{name: "empty placeholder", input: ""},
		{name: "n/a placeholder", input: "N/A"},
		{name: "too old", input: "01-01-1990"},
		{name: "too new", input: "01-01-2030"},
		{name: "garbage", input: "next week"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.expected, p.Date(tc.input)); diff != "" {
				t.Fatal(diff)
			}
		})
	}

	require.Len(t, tel.Reports("warning", report_parser_date), 3)
}

func ptr[T any](v T) *T {
	return &v
}

func TestJSCall(t *testing.T) {
	p, tel := newTestParser()

	args, err := p.JSCall(
		`viewBusiness('1', "2", '15-01-2024','WPC/9876/2019','26','N','12-12-2023','7','33')`,
		hearingCallSignature,
	)
	require.NoError(t, err)
	require.Equal(t, "7", args["court_no"])
	require.Equal(t, "33", args["srno"])
	require.Equal(t, "2", args["district_code"])

	signature := []Arg{{Name: "count", Kind: ArgInt}, {Name: "label", Kind: ArgInt}}
	args, err = p.JSCall("f(12, 'abc')", signature)
	require.NoError(t, err)
	require.Equal(t, 12, args["count"])
	require.Equal(t, "abc", args["label"])

	_, err = p.JSCall("no call here", signature)
	require.ErrorIs(t, err, ecourts.ErrParse)

	require.Empty(t, tel.Reports("warning", report_parser_js_call))
}

func TestJSCallArgumentCountMismatch(t *testing.T) {
	cases := []struct {
		name      string
		expr      string
		signature []Arg
		expected  map[string]any
	}{
		{
			name:      "trailing extra argument",
			expr:      `viewBusiness('1','2','15-01-2024','WPC/9876/2019','26','N','12-12-2023','7','33','extra')`,
			signature: hearingCallSignature,
			expected: map[string]any{
				"court_code":    "1",
				"district_code": "2",
				"next_date":     "15-01-2024",
				"case_number":   "WPC/9876/2019",
				"state_code":    "26",
				"disposal_flag": "N",
				"business_date": "12-12-2023",
				"court_no":      "7",
				"srno":          "33",
			},
		},
		{
			name:      "missing trailing argument",
			expr:      "f(1)",
			signature: []Arg{{Name: "count", Kind: ArgInt}, {Name: "label"}},
			expected:  map[string]any{"count": 1},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, tel := newTestParser()
			args, err := p.JSCall(tc.expr, tc.signature)
			require.NoError(t, err)
			require.Equal(t, tc.expected, args)
			require.Len(t, tel.Reports("warning", report_parser_js_call), 1)
		})
	}
}

func TestDetail(t *testing.T) {
	p, _ := newTestParser()

	doc, err := os.ReadFile("testdata/case_history.html")
	require.NoError(t, err)

	c, err := p.Detail(string(doc))
	require.NoError(t, err)

	expected := ecourts.Case{
		CNRNumber:          "DLHC010123452019",
		CaseType:           "WP(C)",
		RegistrationNumber: "9876/2019",
		FilingNumber:       "1234/2019",
		FilingDate:         ptr(ecourts.NewDate(2019, time.March, 5)),
		RegistrationDate:   ptr(ecourts.NewDate(2019, time.March, 7)),
		FirstHearingDate:   ptr(ecourts.NewDate(2019, time.March, 12)),
		NextHearingDate:    ptr(ecourts.NewDate(2024, time.January, 15)),
		CaseStatus:         "ADMISSION",
		Coram:              "HON'BLE MR. JUSTICE A",
		Bench:              "Single Bench",
		Category:           "SERVICE",
		SubCategory:        "PENSION",
		Petitioners: []ecourts.Party{
			{Name: "ACME LTD", Advocate: "R SHARMA"},
			{Name: "JOHN DOE"},
		},
		Respondents: []ecourts.Party{
			{Name: "UNION OF INDIA", Advocate: "S GUPTA"},
		},
		Hearings: []ecourts.Hearing{
			{
				CauseListType: "Daily List",
				Judge:         "JUSTICE A",
				Date:          "12-12-2023",
				NextDate:      "15-01-2024",
				Purpose:       "ADMISSION",
				CourtNo:       "7",
				SrNo:          "33",
			},
			{
				Judge:    "JUSTICE B",
				Date:     "01-11-2023",
				NextDate: "12-12-2023",
				Purpose:  "NOTICE",
			},
		},
		Orders: []ecourts.Order{
			{Judge: "JUSTICE A", Date: "12-12-2023", Filename: "/orders/2023/abc.pdf"},
		},
		Objections: []ecourts.Objection{
			{
				ScrutinyDate:   "01-03-2019",
				Objection:      "Annexures missing",
				ComplianceDate: "04-03-2019",
				ReceiptDate:    "05-03-2019",
			},
		},
		FIR: &ecourts.FIR{
			PoliceStation: "CENTRAL",
			Number:        "42",
			Year:          "2018",
		},
	}
	if diff := cmp.Diff(expected, c); diff != "" {
		t.Fatal(diff)
	}
}

func TestDetailSessionExpired(t *testing.T) {
	p, _ := newTestParser()

	_, err := p.Detail("<html><body>Your Session Expired, please retry</body></html>")
	require.ErrorIs(t, err, ecourts.ErrSessionExpired)
}

func TestDetailEmptyDocument(t *testing.T) {
	p, _ := newTestParser()

	c, err := p.Detail("<html><body><p>nothing here</p></body></html>")
	require.NoError(t, err)
	require.Empty(t, c.CNRNumber)
	require.Empty(t, c.Hearings)
	require.NotNil(t, c.Hearings)
	require.Nil(t, c.FIR)
}

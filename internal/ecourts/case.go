package ecourts

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is how dates are rendered in records and storage.
const DateLayout = "2006-01-02"

// Date is a calendar day without a time of day.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)
	if str == "" || str == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := time.Parse(DateLayout, str)
	if err != nil {
		return err
	}
	*d = Date{parsed}
	return nil
}

type Party struct {
	Name     string `json:"name"`
	Advocate string `json:"advocate,omitempty"`
}

type Hearing struct {
	CauseListType string `json:"cause_list_type,omitempty"`
	Judge         string `json:"judge,omitempty"`
	Date          string `json:"date,omitempty"`
	NextDate      string `json:"next_date,omitempty"`
	Purpose       string `json:"purpose,omitempty"`
	CourtNo       string `json:"court_no,omitempty"`
	SrNo          string `json:"srno,omitempty"`
}

// ExpandParams returns the parameters needed to request the expanded hearing record.
func (h Hearing) ExpandParams() (map[string]string, error) {
	if h.CourtNo == "" || h.SrNo == "" || h.Date == "" {
		return nil, fmt.Errorf("%w: hearing requires court_no, srno and date", ErrMissingParams)
	}
	return map[string]string{
		"court_no":  h.CourtNo,
		"srno":      h.SrNo,
		"next_date": h.Date,
	}, nil
}

type Order struct {
	Judge    string `json:"judge,omitempty"`
	Date     string `json:"date,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type Objection struct {
	ScrutinyDate   string `json:"scrutiny_date,omitempty"`
	Objection      string `json:"objection,omitempty"`
	ComplianceDate string `json:"compliance_date,omitempty"`
	ReceiptDate    string `json:"receipt_date,omitempty"`
}

type FIR struct {
	State         string `json:"state,omitempty"`
	District      string `json:"district,omitempty"`
	PoliceStation string `json:"police_station,omitempty"`
	Number        string `json:"number,omitempty"`
	Year          string `json:"year,omitempty"`
}

// Case is a litigation record, CNRNumber is its identity across the whole system.
//
// Empty strings and nil dates mean the field is absent, list fields are never nil
// once the case went through NewCase or a parser.
type Case struct {
	CNRNumber          string `json:"cnr_number"`
	CaseType           string `json:"case_type"`
	RegistrationNumber string `json:"registration_number"`
	CaseNumber         string `json:"case_number,omitempty"`
	// Token is the continuation handle upstream hands out in list results.
	Token        string `json:"token,omitempty"`
	FilingNumber string `json:"filing_number,omitempty"`

	FilingDate       *Date `json:"filing_date,omitempty"`
	RegistrationDate *Date `json:"registration_date,omitempty"`
	FirstHearingDate *Date `json:"first_hearing_date,omitempty"`
	DecisionDate     *Date `json:"decision_date,omitempty"`
	NextHearingDate  *Date `json:"next_hearing_date,omitempty"`

	CaseStatus       string `json:"case_status,omitempty"`
	NatureOfDisposal string `json:"nature_of_disposal,omitempty"`
	Coram            string `json:"coram,omitempty"`
	Bench            string `json:"bench,omitempty"`
	State            string `json:"state,omitempty"`
	District         string `json:"district,omitempty"`
	Judicial         string `json:"judicial,omitempty"`
	NotBeforeMe      string `json:"not_before_me,omitempty"`
	Category         string `json:"category,omitempty"`
	SubCategory      string `json:"sub_category,omitempty"`

	Petitioners []Party     `json:"petitioners"`
	Respondents []Party     `json:"respondents"`
	Hearings    []Hearing   `json:"hearings"`
	Orders      []Order     `json:"orders"`
	Objections  []Objection `json:"objections"`
	FIR         *FIR        `json:"fir,omitempty"`
}

// NormalizeCNR strips the hyphens upstream sometimes prints inside a cnr.
func NormalizeCNR(cnr string) string {
	return strings.ReplaceAll(strings.TrimSpace(cnr), "-", "")
}

// ValidateCNR normalizes a cnr and checks that it is exactly 16 characters long.
func ValidateCNR(cnr string) (string, error) {
	cnr = NormalizeCNR(cnr)
	if len(cnr) != 16 {
		return "", fmt.Errorf("%w: length %d", ErrInvalidCNR, len(cnr))
	}
	return cnr, nil
}

// NewCase normalizes c and enforces the cnr invariant.
func NewCase(c Case) (Case, error) {
	cnr, err := ValidateCNR(c.CNRNumber)
	if err != nil {
		return Case{}, err
	}
	c.CNRNumber = cnr
	c.fillDefaults()
	return c, nil
}

func (c *Case) fillDefaults() {
	if c.Petitioners == nil {
		c.Petitioners = []Party{}
	}
	if c.Respondents == nil {
		c.Respondents = []Party{}
	}
	if c.Hearings == nil {
		c.Hearings = []Hearing{}
	}
	if c.Orders == nil {
		c.Orders = []Order{}
	}
	if c.Objections == nil {
		c.Objections = []Objection{}
	}
	if c.NatureOfDisposal == "--" {
		c.NatureOfDisposal = ""
	}
}

// Name renders "<first petitioner> vs <first respondent>", or "" without both parties.
func (c Case) Name() string {
	if len(c.Petitioners) == 0 || len(c.Respondents) == 0 {
		return ""
	}
	return fmt.Sprintf("%s vs %s", c.Petitioners[0].Name, c.Respondents[0].Name)
}

// ExpandParams returns the parameters of the detail (case history) request.
func (c Case) ExpandParams() (map[string]string, error) {
	if c.Token == "" || c.CaseNumber == "" {
		return nil, fmt.Errorf("%w: token/case_number not set on case %s", ErrMissingParams, c.CNRNumber)
	}
	return map[string]string{
		"cino":    c.CNRNumber,
		"token":   c.Token,
		"case_no": c.CaseNumber,
	}, nil
}

// Supersede returns expanded with the identifiers of c preserved, upstream omits
// case_number and token from detail documents.
func (c Case) Supersede(expanded Case) Case {
	if c.CaseNumber != "" {
		expanded.CaseNumber = c.CaseNumber
	}
	if c.Token != "" {
		expanded.Token = c.Token
	}
	if expanded.CNRNumber == "" {
		expanded.CNRNumber = c.CNRNumber
	}
	return expanded
}

// UpcomingHearing returns the first next date in the hearing history that is not a
// placeholder.
func (c Case) UpcomingHearing() string {
	for _, h := range c.Hearings {
		if h.NextDate != "" && h.NextDate != "-" {
			return h.NextDate
		}
	}
	return ""
}

// CaseType is a case category code scoped to a court.
type CaseType struct {
	Code        int
	Description string
	Court       Court
}

// ActType is a statute code scoped to a court.
type ActType struct {
	Code        int
	Description string
	Court       Court
}

// TypeRow is the flat form of CaseType/ActType used by storage, lookups are keyed
// by (code, court_state_code, court_court_code).
type TypeRow struct {
	Code           int    `json:"code"`
	Description    string `json:"description"`
	CourtStateCode string `json:"court_state_code"`
	CourtCourtCode string `json:"court_court_code"`
}

func (t CaseType) Row() TypeRow {
	return TypeRow{
		Code:           t.Code,
		Description:    t.Description,
		CourtStateCode: t.Court.StateCode(),
		CourtCourtCode: t.Court.CourtCode(),
	}
}

func (t ActType) Row() TypeRow {
	return TypeRow{
		Code:           t.Code,
		Description:    t.Description,
		CourtStateCode: t.Court.StateCode(),
		CourtCourtCode: t.Court.CourtCode(),
	}
}

// Court rebuilds the owning court of a row.
func (r TypeRow) Court() (Court, error) {
	return NewCourt(r.CourtStateCode, "", r.CourtCourtCode)
}

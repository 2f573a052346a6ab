package ecourts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

type courtKey struct {
	state string
	// court is "" for the principal seat, "1" is normalized to "".
	court string
}

// courtNames is the whitelist of every high court bench the portal serves.
var courtNames = map[courtKey]string{
	{"1", ""}:   "Bombay High Court - Appellate Side, Bombay",
	{"1", "2"}:  "Bombay High Court - Original Side, Bombay",
	{"1", "3"}:  "Bombay High Court - Bench At Aurangabad",
	{"1", "4"}:  "Bombay High Court - Bench At Nagpur",
	{"1", "5"}:  "Bombay High Court at Goa",
	{"1", "6"}:  "Bombay High Court - Special Court (TORTS)",
	{"2", ""}:   "High Court of Andhra Pradesh",
	{"3", ""}:   "High Court of Karnataka - Principal Bench at Bengaluru",
	{"3", "2"}:  "High Court of Karnataka - Dharwad Bench",
	{"3", "3"}:  "High Court of Karnataka - Kalburagi Bench",
	{"4", ""}:   "High Court of Kerala",
	{"5", ""}:   "High Court of Himachal Pradesh",
	{"6", ""}:   "Gauhati High Court - Principal Seat at Guwahati",
	{"6", "2"}:  "Gauhati High Court - Kohima Bench",
	{"6", "3"}:  "Gauhati High Court - Aizawl Bench",
	{"6", "4"}:  "Gauhati High Court - Itanagar Bench",
	{"7", ""}:   "High Court of Jharkhand",
	{"8", ""}:   "High Court of Judicature at Patna",
	{"9", ""}:   "Rajasthan High Court - Bench at Jaipur",
	{"9", "2"}:  "Rajasthan High Court - Principal Seat, Jodhpur",
	{"10", ""}:  "Madras High Court - Principal Bench",
	{"10", "2"}: "Madras High Court - Madurai Bench",
	{"11", ""}:  "High Court of Orissa",
	{"12", ""}:  "High Court of Jammu and Kashmir - Jammu Wing",
	{"12", "2"}: "High Court of Jammu and Kashmir - Srinagar Wing",
	{"13", ""}:  "High Court of Judicature at Allahabad",
	{"13", "2"}: "Allahabad High Court - Lucknow Bench",
	{"15", ""}:  "High Court of Uttarakhand",
	{"16", ""}:  "Calcutta High Court - Original Side",
	{"16", "2"}: "Calcutta High Court - Circuit Bench At Jalpaiguri",
	{"16", "3"}: "Calcutta High Court - Appellate Side",
	{"16", "4"}: "Calcutta High Court - Circuit Bench At Port Blair",
	{"17", ""}:  "High Court of Gujarat",
	{"18", ""}:  "High Court of Chhattisgarh",
	{"20", ""}:  "High Court of Tripura",
	{"21", ""}:  "High Court of Meghalaya",
	{"24", ""}:  "High Court of Sikkim",
	{"25", ""}:  "High Court of Manipur",
	{"29", ""}:  "High Court for the State of Telangana",
}

const defaultDistrictCode = "1"

func normalizeCourtCode(code string) string {
	if code == "1" {
		return ""
	}
	return code
}

// Court identifies a high court bench. The zero value is not a valid court,
// use NewCourt.
type Court struct {
	stateCode    string
	districtCode string
	courtCode    string
}

// NewCourt validates (stateCode, courtCode) against the whitelist of known benches.
// An empty districtCode defaults to "1", courtCode "1" is equivalent to an empty one.
func NewCourt(stateCode, districtCode, courtCode string) (Court, error) {
	if districtCode == "" {
		districtCode = defaultDistrictCode
	}
	courtCode = normalizeCourtCode(courtCode)
	_, ok := courtNames[courtKey{state: stateCode, court: courtCode}]
	if !ok {
		if courtCode != "" {
			return Court{}, fmt.Errorf("%w: invalid court: state_code=%s, court_code=%s", ErrInvalidCourt, stateCode, courtCode)
		}
		return Court{}, fmt.Errorf("%w: invalid court: state_code=%s", ErrInvalidCourt, stateCode)
	}
	return Court{
		stateCode:    stateCode,
		districtCode: districtCode,
		courtCode:    courtCode,
	}, nil
}

// Courts enumerates every known court, ordered by state code then court code.
func Courts() []Court {
	out := make([]Court, 0, len(courtNames))
	for key := range courtNames {
		out = append(out, Court{
			stateCode:    key.state,
			districtCode: defaultDistrictCode,
			courtCode:    key.court,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		si, _ := strconv.Atoi(out[i].stateCode)
		sj, _ := strconv.Atoi(out[j].stateCode)
		if si != sj {
			return si < sj
		}
		return out[i].CourtCode() < out[j].CourtCode()
	})
	return out
}

func (c Court) StateCode() string    { return c.stateCode }
func (c Court) DistrictCode() string { return c.districtCode }

// CourtCode returns the court code sent upstream, the principal seat is "1".
func (c Court) CourtCode() string {
	if c.courtCode == "" {
		return "1"
	}
	return c.courtCode
}

// IsZero reports whether c was not built by NewCourt.
func (c Court) IsZero() bool {
	return c.stateCode == ""
}

// Equal compares courts with court code "1" and absent treated the same.
func (c Court) Equal(other Court) bool {
	return c.stateCode == other.stateCode &&
		c.districtCode == other.districtCode &&
		c.courtCode == other.courtCode
}

// Name returns the published name of the bench.
func (c Court) Name() string {
	name, ok := courtNames[courtKey{state: c.stateCode, court: c.courtCode}]
	if ok {
		return name
	}
	if c.courtCode != "" {
		return fmt.Sprintf("High Court - State %s - Bench %s", c.stateCode, c.courtCode)
	}
	return fmt.Sprintf("High Court - State %s", c.stateCode)
}

// QueryParams are the court scoping parameters attached to court scoped operations.
func (c Court) QueryParams() map[string]string {
	return map[string]string{
		"state_code": c.stateCode,
		"dist_code":  c.districtCode,
		"court_code": c.CourtCode(),
	}
}

func (c Court) String() string {
	return fmt.Sprintf("%s/%s/%s", c.stateCode, c.districtCode, c.CourtCode())
}

type courtJSON struct {
	StateCode    string `json:"state_code"`
	DistrictCode string `json:"district_code"`
	CourtCode    string `json:"court_code,omitempty"`
}

func (c Court) MarshalJSON() ([]byte, error) {
	return json.Marshal(courtJSON{
		StateCode:    c.stateCode,
		DistrictCode: c.districtCode,
		CourtCode:    c.courtCode,
	})
}

// UnmarshalJSON validates the decoded court the same way NewCourt does.
func (c *Court) UnmarshalJSON(data []byte) error {
	var raw courtJSON
	err := json.Unmarshal(data, &raw)
	if err != nil {
		return err
	}
	court, err := NewCourt(raw.StateCode, raw.DistrictCode, raw.CourtCode)
	if err != nil {
		return err
	}
	*c = court
	return nil
}

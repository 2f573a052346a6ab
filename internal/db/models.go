package db

type Case struct {
	CnrNumber          string
	StateCode          string
	DistrictCode       string
	CourtCode          string
	CaseType           string
	RegistrationNumber string
	CaseStatus         string
	NextHearingDate    string
	CaseData           string
	Fingerprint        string
	CalendarEventID    string
	SyncCalendar       bool
	CreatedAt          int64
	LastUpdated        int64
	ScrapedAt          int64
}

type TypeRow struct {
	Code           int64
	Description    string
	CourtStateCode string
	CourtCourtCode string
}

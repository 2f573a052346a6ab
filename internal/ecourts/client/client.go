// Package client implements the ecourts portal operations on top of a gateway.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"casetrack-backend/internal/components/assert"
	"casetrack-backend/internal/components/telemetry"
	"casetrack-backend/internal/ecourts"
	"casetrack-backend/internal/ecourts/gateway"
	"casetrack-backend/internal/ecourts/parsers"
)

const (
	report_client_search_by_cnr = "client.search-by-cnr"
	report_client_prime         = "client.search-by-case-type"
	report_client_expand_case   = "client.expand-case"
	report_client_archive       = "client.case-history"
	report_client_types         = "client.types"
)

// Gateway is the subset of *gateway.Gateway the client depends on.
type Gateway interface {
	Court() ecourts.Court
	Execute(ctx context.Context, op gateway.Operation, payload map[string]string) (string, error)
	ExecuteBytes(ctx context.Context, op gateway.Operation, payload map[string]string) ([]byte, error)
}

// DocumentArchive keeps case history documents, see archive.Archive.
type DocumentArchive interface {
	PutCase(ctx context.Context, cnr string, document []byte) error
}

// Status filters type and act searches.
type Status string

const (
	Pending  Status = "Pending"
	Disposed Status = "Disposed"
)

func (s Status) validate() error {
	if s != Pending && s != Disposed {
		return fmt.Errorf("status must be %s or %s, got '%s'", Pending, Disposed, s)
	}
	return nil
}

// History is a freshly fetched case history.
type History struct {
	Case ecourts.Case
	// NextHearingDate is the first upcoming date of the hearing history as printed.
	NextHearingDate string
	// CurrentStatus is "Unknown" when the document has none.
	CurrentStatus string
}

type Client struct {
	gw      Gateway
	parser  parsers.Parser
	archive DocumentArchive
	tel     telemetry.API
}

// New builds a client over gw, archive may be nil.
func New(gw Gateway, archive DocumentArchive, tel telemetry.API) *Client {
	assert.NotNil(gw)
	assert.NotNil(tel)
	return &Client{
		gw:      gw,
		parser:  parsers.NewParser(tel),
		archive: archive,
		tel:     telemetry.NewScopedAPI("ecourts_client", tel),
	}
}

func (c *Client) Court() ecourts.Court {
	return c.gw.Court()
}

func (c *Client) search(ctx context.Context, op gateway.Operation, payload map[string]string) ([]ecourts.Case, error) {
	raw, err := c.gw.Execute(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	return c.parser.Cases(raw)
}

// SearchByCNR looks a case up by cnr alone. Upstream usually needs the case type,
// number and year as well, so every failure is reported as ecourts.ErrNotFound.
func (c *Client) SearchByCNR(ctx context.Context, cnr string) (ecourts.Case, error) {
	cnr = ecourts.NormalizeCNR(cnr)
	cases, err := c.search(ctx, opSearchByCNR, map[string]string{
		"cnr_number":       cnr,
		"caseNoType":       "new",
		"displayOldCaseNo": "NO",
	})
	if err != nil {
		if ctx.Err() != nil {
			return ecourts.Case{}, ctx.Err()
		}
		c.tel.ReportWarning(report_client_search_by_cnr, err, cnr)
		return ecourts.Case{}, fmt.Errorf("%w: cnr %s", ecourts.ErrNotFound, cnr)
	}
	if len(cases) == 0 {
		c.tel.ReportDebug("cnr only search found nothing, upstream requires case details", cnr)
		return ecourts.Case{}, fmt.Errorf("%w: cnr %s", ecourts.ErrNotFound, cnr)
	}
	return cases[0], nil
}

// SearchByNumber finds a case by type code, registration number and year. A number
// like "20/2021" is reduced to "20".
func (c *Client) SearchByNumber(ctx context.Context, caseType, number, year string) (ecourts.Case, error) {
	number, _, _ = strings.Cut(number, "/")
	cases, err := c.search(ctx, opSearchByNumber, map[string]string{
		"case_type":        caseType,
		"case_no":          number,
		"rgyear":           year,
		"caseNoType":       "new",
		"displayOldCaseNo": "NO",
	})
	if err != nil {
		return ecourts.Case{}, fmt.Errorf("search case %s/%s/%s: %w", caseType, number, year, err)
	}
	if len(cases) == 0 {
		return ecourts.Case{}, fmt.Errorf("%w: case %s/%s/%s", ecourts.ErrNotFound, caseType, number, year)
	}
	return cases[0], nil
}

// SearchByCaseType lists the cases of a type, year is optional.
func (c *Client) SearchByCaseType(ctx context.Context, caseType string, status Status, year string) ([]ecourts.Case, error) {
	err := status.validate()
	if err != nil {
		return nil, err
	}

	court := c.gw.Court()
	// the search page has to be visited before the query is accepted
	_, err = c.gw.Execute(ctx, opPrimeCaseTypeSearch, map[string]string{
		"state_cd":   court.StateCode(),
		"dist_cd":    "1",
		"court_code": court.CourtCode(),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.tel.ReportWarning(report_client_prime, err)
	}

	payload := map[string]string{
		"f":         string(status),
		"case_type": caseType,
	}
	if year != "" {
		payload["search_year"] = year
	}
	cases, err := c.search(ctx, opSearchByCaseType, payload)
	if err != nil {
		return nil, fmt.Errorf("search cases by type %s: %w", caseType, err)
	}
	return cases, nil
}

func (c *Client) SearchByActType(ctx context.Context, actCode string, status Status) ([]ecourts.Case, error) {
	err := status.validate()
	if err != nil {
		return nil, err
	}
	cases, err := c.search(ctx, opSearchByActType, map[string]string{
		"actcode": actCode,
		"f":       string(status),
	})
	if err != nil {
		return nil, fmt.Errorf("search cases by act %s: %w", actCode, err)
	}
	return cases, nil
}

// CaseHistory fetches and parses the detail document of sparse. The identifiers the
// document lacks (case number, token, and possibly the cnr) are carried over from
// sparse, the result is validated as a tracked case.
func (c *Client) CaseHistory(ctx context.Context, sparse ecourts.Case) (History, error) {
	params, err := sparse.ExpandParams()
	if err != nil {
		return History{}, err
	}
	raw, err := c.gw.ExecuteBytes(ctx, opCaseHistory, params)
	if err != nil {
		return History{}, fmt.Errorf("fetch history of %s: %w", sparse.CNRNumber, err)
	}
	if c.archive != nil {
		err = c.archive.PutCase(ctx, ecourts.NormalizeCNR(sparse.CNRNumber), raw)
		if err != nil {
			c.tel.ReportWarning(report_client_archive, err, sparse.CNRNumber)
		}
	}

	return c.ParseHistory(sparse, raw)
}

// ParseHistory turns a detail document fetched for sparse into a History.
func (c *Client) ParseHistory(sparse ecourts.Case, document []byte) (History, error) {
	doc, err := decodeDocument(document)
	if err != nil {
		return History{}, err
	}
	parsed, err := c.parser.Detail(doc)
	if err != nil {
		return History{}, fmt.Errorf("parse history of %s: %w", sparse.CNRNumber, err)
	}
	expanded, err := ecourts.NewCase(sparse.Supersede(parsed))
	if err != nil {
		return History{}, fmt.Errorf("parse history of %s: %w", sparse.CNRNumber, err)
	}

	status := expanded.CaseStatus
	if status == "" {
		status = "Unknown"
	}
	return History{
		Case:            expanded,
		NextHearingDate: expanded.UpcomingHearing(),
		CurrentStatus:   status,
	}, nil
}

// ExpandCase returns the detailed form of sparse, or sparse itself if it could not
// be fetched.
func (c *Client) ExpandCase(ctx context.Context, sparse ecourts.Case) ecourts.Case {
	history, err := c.CaseHistory(ctx, sparse)
	if err != nil {
		c.tel.ReportWarning(report_client_expand_case, err, sparse.CNRNumber)
		return sparse
	}
	return history.Case
}

func (c *Client) options(ctx context.Context, op gateway.Operation, payload map[string]string) ([]parsers.Option, error) {
	raw, err := c.gw.Execute(ctx, op, payload)
	if err != nil {
		return nil, err
	}
	options := c.parser.Options(raw)
	if len(options) == 0 {
		return nil, nil
	}

	// the first entry is the "select" placeholder
	out := make([]parsers.Option, 0, len(options)-1)
	for _, o := range options[1:] {
		_, err := strconv.Atoi(o.Code)
		if err != nil {
			c.tel.ReportWarning(report_client_types, fmt.Errorf("%w: non numeric code '%s'", ecourts.ErrParse, o.Code))
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (c *Client) CaseTypes(ctx context.Context) ([]ecourts.CaseType, error) {
	options, err := c.options(ctx, opCaseTypes, nil)
	if err != nil {
		return nil, fmt.Errorf("case types: %w", err)
	}
	out := make([]ecourts.CaseType, len(options))
	for i, o := range options {
		code, _ := strconv.Atoi(o.Code)
		out[i] = ecourts.CaseType{Code: code, Description: o.Description, Court: c.gw.Court()}
	}
	return out, nil
}

// ActTypes lists the acts whose name matches query, an empty query lists all.
func (c *Client) ActTypes(ctx context.Context, query string) ([]ecourts.ActType, error) {
	options, err := c.options(ctx, opActTypes, map[string]string{"search_act": query})
	if err != nil {
		return nil, fmt.Errorf("act types: %w", err)
	}
	out := make([]ecourts.ActType, len(options))
	for i, o := range options {
		code, _ := strconv.Atoi(o.Code)
		out[i] = ecourts.ActType{Code: code, Description: o.Description, Court: c.gw.Court()}
	}
	return out, nil
}

// HearingBusiness returns the text of the business recorded for a hearing.
func (c *Client) HearingBusiness(ctx context.Context, h ecourts.Hearing) (string, error) {
	params, err := h.ExpandParams()
	if err != nil {
		return "", err
	}
	raw, err := c.gw.Execute(ctx, opHearingBusiness, params)
	if err != nil {
		return "", fmt.Errorf("hearing business: %w", err)
	}
	return c.parser.Business(raw)
}

// DownloadOrder writes the pdf of an order of owner to w and returns its size.
func (c *Client) DownloadOrder(ctx context.Context, order ecourts.Order, owner ecourts.Case, w io.Writer) (int64, error) {
	if order.Filename == "" {
		return 0, fmt.Errorf("%w: order filename not available", ecourts.ErrMissingParams)
	}
	if owner.CaseType == "" || owner.RegistrationNumber == "" || owner.CNRNumber == "" {
		return 0, fmt.Errorf("%w: case details incomplete for order download", ecourts.ErrMissingParams)
	}

	court := c.gw.Court()
	body, err := c.gw.ExecuteBytes(ctx, opDownloadOrder, map[string]string{
		"filename":   order.Filename,
		"caseno":     fmt.Sprintf("%s/%s", owner.CaseType, owner.RegistrationNumber),
		"cCode":      court.CourtCode(),
		"state_code": court.StateCode(),
		"cino":       owner.CNRNumber,
	})
	if err != nil {
		return 0, fmt.Errorf("download order: %w", err)
	}
	n, err := w.Write(body)
	return int64(n), err
}

func decodeDocument(document []byte) (string, error) {
	if len(document) == 0 {
		return "", errors.New("empty history document")
	}
	return strings.TrimPrefix(string(document), "\ufeff"), nil
}

package parsers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// labels in the case details table are only kept when they contain one of these.
var detailKeyMarkers = []string{"Number", "Key", "Station", "District", "Year", "State", "Type", "Date"}

var (
	firLine   = regexp.MustCompile(`(?m)(?P<k>.*):\s?(?P<v>(\w|\d| )+)\s?`)
	partyLine = regexp.MustCompile(`\d\)\s+(?P<party>[^\n]+)(?:(?:\s|\n)+Advocate\s*-\s*(?P<advocate>[^\n]+))?`)
)

// Detail parses the case history document into a full case.
//
// The cnr is taken from the document if present and is not validated here, callers
// validate after merging identifiers the document does not carry.
func (p Parser) Detail(doc string) (ecourts.Case, error) {
	if strings.Contains(strings.ToLower(doc), "session expired") {
		return ecourts.Case{}, ecourts.ErrSessionExpired
	}

	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ecourts.Case{}, fmt.Errorf("%w: %w", ecourts.ErrParse, err)
	}
	htmlutil.ReplaceBreaks(root)

	details := p.caseDetails(root)
	status := p.caseStatus(root)
	category := p.category(root)

	c := ecourts.Case{
		CNRNumber:          ecourts.NormalizeCNR(details["CNR Number"]),
		CaseType:           details["Case Type"],
		RegistrationNumber: details["Registration Number"],
		FilingNumber:       details["Filing Number"],
		FilingDate:         p.Date(details["Filing Date"]),
		RegistrationDate:   p.Date(details["Registration Date"]),
		FirstHearingDate:   p.Date(status["First Hearing Date"]),
		DecisionDate:       p.Date(status["Decision Date"]),
		CaseStatus:         firstNonEmpty(status["Case Status"], status["Stage of Case"]),
		NatureOfDisposal:   status["Nature of Disposal"],
		Coram:              status["Coram"],
		Bench:              status["Bench"],
		State:              status["State"],
		District:           status["District"],
		Judicial:           status["Judicial"],
		NotBeforeMe:        status["Not Before Me"],
		Category:           category["Category"],
		SubCategory:        category["Sub Category"],
		Petitioners:        p.parties(root, "Petitioner_Advocate_table"),
		Respondents:        p.parties(root, "Respondent_Advocate_table"),
		Hearings:           p.hearings(root),
		Orders:             p.orders(root),
		Objections:         p.objections(root),
		FIR:                p.fir(root),
	}

	c.NextHearingDate = p.Date(status["Next Hearing Date"])
	if c.NextHearingDate == nil {
		c.NextHearingDate = p.Date(c.UpcomingHearing())
	}
	if c.NatureOfDisposal == "--" {
		c.NatureOfDisposal = ""
	}
	return c, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func cleanValue(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", ""))
}

func afterColon(s string) string {
	_, after, _ := strings.Cut(s, ":")
	return cleanValue(after)
}

func (p Parser) caseDetails(root *goquery.Document) map[string]string {
	details := map[string]string{}
	root.Find(".case_details_table label").Each(func(_ int, label *goquery.Selection) {
		key := strings.TrimSpace(strings.TrimSuffix(cleanValue(label.Text()), ":"))
		if !containsAny(key, detailKeyMarkers) {
			return
		}

		var value string
		next := label.Next()
		parent := label.Parent()
		switch {
		case next.Length() > 0 && goquery.NodeName(next) == "label":
			value = cleanValue(strings.ReplaceAll(next.Text(), ":", ""))
		case strings.Contains(parent.Text(), ":"):
			value = afterColon(parent.Text())
		default:
			value = siblingValue(parent)
		}
		details[key] = value
	})
	return details
}

// siblingValue looks for the first sibling after sel (text nodes included) that
// carries a "key: value" pair.
func siblingValue(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	for n := sel.Get(0).NextSibling; n != nil; n = n.NextSibling {
		text := n.Data
		if n.Type != html.TextNode {
			text = htmlutil.GetText(n)
		}
		if strings.Contains(text, ":") {
			return afterColon(text)
		}
	}
	return ""
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

func (p Parser) caseStatus(root *goquery.Document) map[string]string {
	status := map[string]string{}
	heading := root.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(s.Text(), "Case Status")
	}).First()
	if heading.Length() == 0 {
		return status
	}

	heading.Next().Find("label").Each(func(_ int, label *goquery.Selection) {
		strong := label.Find("strong")
		if strong.Length() < 2 {
			return
		}
		key := cleanValue(strong.Eq(0).Text())
		value := strong.Eq(1).Text()
		if strings.Contains(value, ":") {
			value = strings.Split(value, ":")[1]
		}
		status[key] = cleanValue(value)
	})
	return status
}

func (p Parser) fir(root *goquery.Document) *ecourts.FIR {
	span := root.Find("span.FIR_details_table").First()
	if span.Length() == 0 {
		return nil
	}

	text := cleanValue(span.Text())
	fields := map[string]string{}
	for _, m := range firLine.FindAllStringSubmatch(text, -1) {
		key := strings.TrimSpace(m[firLine.SubexpIndex("k")])
		fields[key] = strings.TrimSpace(m[firLine.SubexpIndex("v")])
	}
	if len(fields) == 0 {
		return nil
	}
	return &ecourts.FIR{
		State:         fields["State"],
		District:      fields["District"],
		PoliceStation: fields["Police Station"],
		Number:        fields["FIR Number"],
		Year:          fields["Year"],
	}
}

func (p Parser) parties(root *goquery.Document, class string) []ecourts.Party {
	out := []ecourts.Party{}
	span := root.Find("span." + class).First()
	if span.Length() == 0 {
		return out
	}
	text := cleanValue(span.Text())
	for _, m := range partyLine.FindAllStringSubmatch(text, -1) {
		out = append(out, ecourts.Party{
			Name:     strings.TrimSpace(m[partyLine.SubexpIndex("party")]),
			Advocate: strings.TrimSpace(m[partyLine.SubexpIndex("advocate")]),
		})
	}
	return out
}

// rowsAfter returns the rows of the first table following anchor in document order.
func rowsAfter(anchor *html.Node) *goquery.Selection {
	table := htmlutil.FindNext(anchor, atom.Table)
	if table == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(table).Find("tr")
}

func skipHeader(rows *goquery.Selection) *goquery.Selection {
	if rows.Length() < 2 {
		return rows.Slice(0, 0)
	}
	return rows.Slice(1, goquery.ToEnd)
}

func (p Parser) hearings(root *goquery.Document) []ecourts.Hearing {
	out := []ecourts.Hearing{}
	heading := root.Find("table#historyheading").First()
	if heading.Length() == 0 {
		return out
	}
	rows := rowsAfter(heading.Get(0))
	if rows == nil {
		return out
	}

	skipHeader(rows).EachWithBreak(func(i int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return true
		}

		causeListType := strings.TrimSpace(cells.Eq(0).Text())
		if causeListType == "Order Number" {
			return false
		}
		if len(causeListType) < 4 {
			causeListType = ""
		}

		h := ecourts.Hearing{
			CauseListType: causeListType,
			Judge:         strings.TrimSpace(cells.Eq(1).Text()),
			Date:          strings.TrimSpace(cells.Eq(2).Text()),
			NextDate:      strings.TrimSpace(cells.Eq(3).Text()),
			Purpose:       strings.TrimSpace(cells.Eq(4).Text()),
		}

		onclick, ok := cells.Eq(2).Find("a").Attr("onclick")
		if ok {
			args, err := p.JSCall(onclick, hearingCallSignature)
			if err != nil {
				p.tel.ReportWarning(report_parser_js_call, err, i)
			} else {
				h.CourtNo = stringArg(args, "court_no")
				h.SrNo = stringArg(args, "srno")
			}
		}
		out = append(out, h)
		return true
	})
	return out
}

func (p Parser) orders(root *goquery.Document) []ecourts.Order {
	out := []ecourts.Order{}
	table := root.Find("table.order_table").First()
	if table.Length() == 0 {
		return out
	}

	skipHeader(table.Find("tr")).Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		order := ecourts.Order{
			Judge: strings.TrimSpace(cells.Eq(2).Text()),
			Date:  strings.TrimSpace(cells.Eq(3).Text()),
		}
		href, ok := cells.Eq(4).Find("a").Attr("href")
		if ok {
			link, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				p.tel.ReportWarning(report_parser_detail, fmt.Errorf("%w: order link: %w", ecourts.ErrParse, err), i)
			} else {
				order.Filename = link.Query().Get("filename")
			}
		}
		out = append(out, order)
	})
	return out
}

// tablesAfterMarker yields the row sets of the tables following each table whose text
// contains marker, every target table is visited once.
func tablesAfterMarker(root *goquery.Document, marker string, fn func(rows *goquery.Selection)) {
	seen := map[*html.Node]bool{}
	root.Find("table").Each(func(_ int, table *goquery.Selection) {
		if !strings.Contains(table.Text(), marker) {
			return
		}
		target := htmlutil.FindNext(table.Get(0), atom.Table)
		if target == nil || seen[target] {
			return
		}
		seen[target] = true
		fn(goquery.NewDocumentFromNode(target).Find("tr"))
	})
}

func (p Parser) category(root *goquery.Document) map[string]string {
	out := map[string]string{}
	tablesAfterMarker(root, "Category Details", func(rows *goquery.Selection) {
		rows.Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}
			out[cleanValue(cells.Eq(0).Text())] = cleanValue(cells.Eq(1).Text())
		})
	})
	return out
}

func (p Parser) objections(root *goquery.Document) []ecourts.Objection {
	out := []ecourts.Objection{}
	tablesAfterMarker(root, "OBJECTION", func(rows *goquery.Selection) {
		skipHeader(rows).Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() < 5 {
				return
			}
			out = append(out, ecourts.Objection{
				ScrutinyDate:   strings.TrimSpace(cells.Eq(1).Text()),
				Objection:      strings.TrimSpace(cells.Eq(2).Text()),
				ComplianceDate: strings.TrimSpace(cells.Eq(3).Text()),
				ReceiptDate:    strings.TrimSpace(cells.Eq(4).Text()),
			})
		})
	})
	return out
}

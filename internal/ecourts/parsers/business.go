package parsers

import (
	"fmt"
	"strings"

	"casetrack-backend/internal/ecourts"
	"casetrack-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Business returns the readable text of a hearing business document, one line per
// row or break.
func (p Parser) Business(doc string) (string, error) {
	if strings.Contains(strings.ToLower(doc), "session expired") {
		return "", ecourts.ErrSessionExpired
	}
	root, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ecourts.ErrParse, err)
	}
	htmlutil.ReplaceBreaks(root)
	root.Find("script, style").Remove()

	var lines []string
	rows := root.Find("tr")
	if rows.Length() == 0 {
		return htmlutil.Text(root.Selection), nil
	}
	rows.Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			text := htmlutil.Text(cell)
			if text != "" {
				cells = append(cells, text)
			}
		})
		if len(cells) > 0 {
			lines = append(lines, strings.Join(cells, " "))
		}
	})
	return strings.Join(lines, "\n"), nil
}

package parsers

import "strings"

// Option is one entry of an upstream select list.
type Option struct {
	Code        string
	Description string
}

// Options parses a line oriented option list. The first entry is usually a blank
// placeholder, callers are expected to drop it.
func (p Parser) Options(raw string) []Option {
	var out []Option
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(line, "~") {
			continue
		}
		parts := strings.Split(line, "~")
		out = append(out, Option{
			Code:        strings.TrimSpace(parts[0]),
			Description: strings.TrimSpace(parts[1]),
		})
	}
	return out
}

package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeName lowercases name and removes whitespace and punctuation, so
// "W.P.(C)" and "wp c" compare equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = whitespaceRegex.ReplaceAllString(name, "")
	name = punctuationRegex.ReplaceAllString(name, "")
	return name
}

// Closest returns the index of the candidate most similar to query along with its
// Jaro-Winkler similarity, or -1 when candidates is empty. An exact normalized
// match always wins with similarity 1.
func Closest(query string, candidates []string) (int, float64) {
	query = NormalizeName(query)
	best := -1
	var bestSimilarity float64
	for i, candidate := range candidates {
		normalized := NormalizeName(candidate)
		if normalized == query {
			return i, 1
		}
		similarity := matchr.JaroWinkler(query, normalized, false)
		if similarity > bestSimilarity {
			bestSimilarity = similarity
			best = i
		}
	}
	return best, bestSimilarity
}

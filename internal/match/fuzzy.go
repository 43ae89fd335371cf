package match

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Ratio returns the similarity of a and b in [0, 1], compared rune by rune
// after lower-casing. Two empty strings are identical; one empty string
// matches nothing.
func Ratio(a, b string) float64 {
	a, b = strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b))
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

// BestAlias returns the alias most similar to phrase. Ties keep the earliest
// alias.
func BestAlias(phrase string, aliases []string) (string, float64) {
	best, bestRatio := "", -1.0
	for _, alias := range aliases {
		if r := Ratio(phrase, alias); r > bestRatio {
			best, bestRatio = alias, r
		}
	}
	if bestRatio < 0 {
		return "", 0
	}
	return best, bestRatio
}

package roster

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// minSuggestionRatio is the lowest similarity for a registered name to be suggested.
const minSuggestionRatio = .5

// Suggestion proposes the closest registered name for an unregistered member.
type Suggestion struct {
	Team       string `json:"team"`
	Member     string `json:"member"`
	Suggestion string `json:"suggestion"`
}

// Suggest returns, for every unregistered member occurrence, the most similar registered name.
// Members with no similar enough name get no suggestion.
func Suggest(teams TeamSet, registered []string) []Suggestion {
	known := make(map[string]struct{}, len(registered))
	for _, name := range registered {
		known[name] = struct{}{}
	}

	suggestions := make([]Suggestion, 0)
	for _, t := range teams {
		for _, m := range t.Members {
			if _, ok := known[m]; ok {
				continue
			}
			if best, ok := closest(m, registered); ok {
				suggestions = append(suggestions, Suggestion{Team: t.Name, Member: m, Suggestion: best})
			}
		}
	}
	return suggestions
}

// closest returns the registered name with the highest similarity ratio to name.
// Ties keep the first registered name.
func closest(name string, registered []string) (string, bool) {
	var (
		best      string
		bestRatio float64
	)
	seq := strings.Split(name, "")
	matcher := difflib.NewMatcher(nil, seq)
	for _, candidate := range registered {
		matcher.SetSeq1(strings.Split(candidate, ""))
		if ratio := matcher.Ratio(); ratio > bestRatio {
			best, bestRatio = candidate, ratio
		}
	}
	return best, bestRatio >= minSuggestionRatio
}

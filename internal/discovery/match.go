package discovery

import "sort"

// MatchType names the strategy that produced a FileMatch.
type MatchType string

const (
	MatchName       MatchType = "name"
	MatchContent    MatchType = "content"
	MatchSymbol     MatchType = "symbol"
	MatchDependency MatchType = "dependency"
)

// FileMatch is a candidate file for a query.
type FileMatch struct {
	Path       string    `json:"path"`
	MatchType  MatchType `json:"matchType"`
	Confidence float64   `json:"confidence"`
	Context    string    `json:"context"`
}

// MaxResults bounds every ranked result set.
const MaxResults = 30

// Rank deduplicates matches by path, keeping the first occurrence, sorts them
// by confidence descending (ties keep their order) and truncates to max.
// A max outside 1..MaxResults means MaxResults.
func Rank(matches []FileMatch, max int) []FileMatch {
	if max < 1 || max > MaxResults {
		max = MaxResults
	}
	seen := make(map[string]bool, len(matches))
	ranked := make([]FileMatch, 0, len(matches))
	for _, m := range matches {
		if m.Path == "" || seen[m.Path] {
			continue
		}
		seen[m.Path] = true
		m.Confidence = clamp(m.Confidence)
		ranked = append(ranked, m)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})

	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// Paths returns the paths of matches in order.
func Paths(matches []FileMatch) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Path
	}
	return out
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Package keywords extracts search terms from natural-language queries.
// Discovery, code analysis and response validation share one stopword list
// so that a keyword searched for is the same keyword later checked for.
package keywords

import (
	"regexp"
	"strings"
	"unicode"
)

var stopwords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`
		a an the and or but if then else when where what which who whom whose why how
		is are was were be been being am do does did doing done have has had having
		i me my we our you your he she it its they them their this that these those
		to of in on at by for with from into onto about above below over under up down
		out off again further once here there all any both each few more most other some
		such no nor not only own same so than too very can will just should could would
		shall may might must need let lets please show tell explain give find get make
		work works working use used using file files code codebase thing things happen
		happens happening also like want know see look does doesnt dont isnt`) {
		stopwords[w] = struct{}{}
	}
}

// IsStopword reports whether w (any case) is filtered from keyword extraction.
func IsStopword(w string) bool {
	_, ok := stopwords[strings.ToLower(w)]
	return ok
}

var nonWord = regexp.MustCompile(`[^a-z0-9_]+`)

// Extract returns the distinct lowercase tokens of text that are longer than
// two characters and not stopwords, in first-seen order.
func Extract(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range nonWord.Split(strings.ToLower(text), -1) {
		if len(tok) <= 2 || seen[tok] || IsStopword(tok) {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

var pascalCase = regexp.MustCompile(`\b[A-Z][a-z0-9]+(?:[A-Z][A-Za-z0-9]*)*\b`)

// PascalCase returns the distinct PascalCase identifiers in text, skipping
// capitalised stopwords such as a sentence-initial "How".
func PascalCase(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tok := range pascalCase.FindAllString(text, -1) {
		if seen[tok] || IsStopword(tok) {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

// SplitIdentifier splits an identifier on case humps and non-alphanumerics
// and lowercases the parts: "BaseComponent" -> [base component].
func SplitIdentifier(s string) []string {
	var parts []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r) && i > 0 && (unicode.IsLower(runes[i-1]) ||
			(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return parts
}

// ContainsFold reports whether s contains substr ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

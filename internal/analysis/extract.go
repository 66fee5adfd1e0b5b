package analysis

import (
	"regexp"
	"sort"
	"strings"
)

// Shallow textual heuristics. They recognise the common TypeScript shapes and
// nothing more; a declaration spread over several lines is missed.
var (
	classDecl     = regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)(?:\s*<[^>{]*>)?(?:\s+extends\s+([A-Za-z_$][\w$.]*))?`)
	interfaceDecl = regexp.MustCompile(`(?m)^[ \t]*(?:export\s+)?interface\s+([A-Za-z_$][\w$]*)`)
	functionDecl  = regexp.MustCompile(`(?m)^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`)
	importDecl    = regexp.MustCompile(`(?m)^[ \t]*import\s+(?:[^'";]*?\s*from\s*)?['"]([^'"]+)['"]|require\(\s*['"]([^'"]+)['"]\s*\)`)
	exportDecl    = regexp.MustCompile(`(?m)^[ \t]*export\s+(?:default\s+)?(?:abstract\s+)?(?:async\s+)?(?:class|interface|function|const|let|var|type|enum)\s+([A-Za-z_$][\w$]*)`)
	exportDefault = regexp.MustCompile(`(?m)^[ \t]*export\s+default\s+([A-Za-z_$][\w$]*)\s*;?\s*$`)
	factoryCall   = regexp.MustCompile(`create[A-Z]\w*\(`)
)

var observerIdioms = []string{"addEventListener", ".subscribe(", ".on(", "emit(", "notify("}

// Design patterns recognised by DetectPatterns.
const (
	PatternObserver = "Observer"
	PatternFactory  = "Factory"
)

// Class is a class declaration with its optional superclass.
type Class struct {
	Name    string `json:"name"`
	Extends string `json:"extends,omitempty"`
}

// Relationship is a typed edge between two declarations.
type Relationship struct {
	Type   string `json:"type"`
	Source string `json:"source"`
	Target string `json:"target"`
	File   string `json:"file"`
}

// Snippet is a relevant excerpt with 1-based inclusive line bounds.
type Snippet struct {
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Content   string  `json:"content"`
	Relevance float64 `json:"relevance"`
}

// ExtractClasses returns class declarations in text.
func ExtractClasses(text string) []Class {
	var out []Class
	for _, m := range classDecl.FindAllStringSubmatch(text, -1) {
		out = append(out, Class{Name: m[1], Extends: m[2]})
	}
	return out
}

// ExtractInterfaces returns interface names declared in text.
func ExtractInterfaces(text string) []string {
	return firstGroups(interfaceDecl, text)
}

// ExtractFunctions returns top-level function names declared in text.
func ExtractFunctions(text string) []string {
	return firstGroups(functionDecl, text)
}

// ExtractImports returns import and require targets in text.
func ExtractImports(text string) []string {
	var out []string
	for _, m := range importDecl.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			out = append(out, m[1])
		} else if m[2] != "" {
			out = append(out, m[2])
		}
	}
	return out
}

// ExtractExports returns exported declaration names in text.
func ExtractExports(text string) []string {
	out := firstGroups(exportDecl, text)
	for _, name := range firstGroups(exportDefault, text) {
		out = appendUnique(out, name)
	}
	return out
}

// ExtractRelationships returns extends edges for the classes in text.
func ExtractRelationships(file string, classes []Class) []Relationship {
	var out []Relationship
	for _, c := range classes {
		if c.Extends != "" {
			out = append(out, Relationship{Type: "extends", Source: c.Name, Target: c.Extends, File: file})
		}
	}
	return out
}

// DetectPatterns flags Observer when text uses an event-subscription idiom
// and Factory when it mentions "Factory" together with "create" or calls a
// create<Word>( function.
func DetectPatterns(text string) []string {
	var out []string
	for _, idiom := range observerIdioms {
		if strings.Contains(text, idiom) {
			out = append(out, PatternObserver)
			break
		}
	}
	if (strings.Contains(text, "Factory") && strings.Contains(text, "create")) || factoryCall.MatchString(text) {
		out = append(out, PatternFactory)
	}
	return out
}

// RelevantSnippets scores every line by the share of keywords it contains and
// returns up to limit snippets, highest score first, for lines scoring above
// 0.5. Each snippet spans five lines before to ten lines after its line.
func RelevantSnippets(text string, kws []string, limit int) []Snippet {
	if len(kws) == 0 || limit <= 0 {
		return nil
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	var snippets []Snippet
	for i, line := range lines {
		lower := strings.ToLower(line)
		hits := 0
		for _, kw := range kws {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		score := float64(hits) / float64(len(kws))
		if score > 1 {
			score = 1
		}
		if score <= 0.5 {
			continue
		}

		start := max(i-5, 0) + 1
		end := min(i+10, len(lines)-1) + 1
		snippets = append(snippets, Snippet{
			StartLine: start,
			EndLine:   end,
			Content:   strings.Join(lines[start-1:end], "\n"),
			Relevance: score,
		})
	}

	sort.SliceStable(snippets, func(i, j int) bool { return snippets[i].Relevance > snippets[j].Relevance })
	if len(snippets) > limit {
		snippets = snippets[:limit]
	}
	return snippets
}

func firstGroups(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = appendUnique(out, m[1])
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

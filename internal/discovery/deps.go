package discovery

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

var importSpecifier = regexp.MustCompile(`(?:from\s+|import\s+|require\(\s*)['"]([^'"]+)['"]`)

// byDependency follows the imports of the strongest name matches.
func (e *Engine) byDependency(ctx context.Context, byName []FileMatch, root string) []FileMatch {
	seeds := append([]FileMatch(nil), byName...)
	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].Confidence > seeds[j].Confidence })
	seen := make(map[string]bool)

	var matches []FileMatch
	for _, seed := range seeds {
		if len(seen) >= e.cfg.DependencySeeds {
			break
		}
		if seen[seed.Path] {
			continue
		}
		seen[seed.Path] = true

		specs, err := e.imports(ctx, seed.Path)
		if err != nil {
			logging.Warn("import lookup failed", "file", seed.Path, "error", err)
			continue
		}
		for _, spec := range specs {
			candidates := e.resolveCandidates(spec, seed.Path, root)
			if len(candidates) == 0 {
				continue
			}
			resolved, err := e.ops.FirstExisting(ctx, candidates)
			if err != nil {
				logging.Warn("import resolution failed", "import", spec, "error", err)
				continue
			}
			if resolved == "" || e.ignored(resolved) {
				continue
			}
			matches = append(matches, FileMatch{
				Path:       resolved,
				MatchType:  MatchDependency,
				Confidence: 0.7,
				Context:    fmt.Sprintf("imported by %s", seed.Path),
			})
		}
	}
	return matches
}

// imports returns the first ImportsPerFile module specifiers of file.
func (e *Engine) imports(ctx context.Context, file string) ([]string, error) {
	cmd := fmt.Sprintf(`grep -hoE "(from|import|require\()[[:space:]]*['\"][^'\"]+['\"]" %s 2>/dev/null | head -n %d || true`,
		remote.Quote(file), e.cfg.ImportsPerFile)
	out, err := e.ops.Run(ctx, cmd, "")
	if err != nil {
		return nil, err
	}
	return ParseImports(out, e.cfg.ImportsPerFile), nil
}

// ParseImports extracts module specifiers from import statements in text.
func ParseImports(text string, limit int) []string {
	var out []string
	for _, m := range importSpecifier.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// resolveCandidates lists the files an import specifier may refer to. Relative
// specifiers resolve against the importing file's directory; scoped package
// specifiers resolve to {root}/src/{rest} with root chosen by the package
// mapping. Bare package imports are not followed.
func (e *Engine) resolveCandidates(spec, importer, root string) []string {
	var base string
	switch {
	case strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../"):
		base = path.Join(path.Dir(importer), spec)
	case strings.HasPrefix(spec, "@"):
		parts := strings.SplitN(spec, "/", 3)
		if len(parts) < 3 {
			return nil
		}
		pkgRoot := root
		if kind, ok := e.paths.Packages[parts[0]+"/"+parts[1]]; ok {
			if r := e.paths.BaseRoot(kind); r != "" {
				pkgRoot = r
			}
		}
		base = path.Join(pkgRoot, "src", parts[2])
	default:
		return nil
	}

	candidates := []string{base}
	for _, ext := range e.cfg.SourceExtensions {
		candidates = append(candidates, base+"."+ext)
	}
	for _, ext := range e.cfg.SourceExtensions {
		candidates = append(candidates, base+"/index."+ext)
	}
	return candidates
}

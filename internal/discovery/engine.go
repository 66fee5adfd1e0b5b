// Package discovery finds the source files most likely to answer a question
// about the runtime or codegen libraries. Four strategies run against the
// library root and their results are merged by Rank.
package discovery

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"wavepulse/internal/cache"
	"wavepulse/internal/config"
	"wavepulse/internal/keywords"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

// Base path kinds.
const (
	BaseRuntime = "runtime"
	BaseCodegen = "codegen"
	BaseBoth    = "both"
)

// Engine runs discovery over remote.FileOps.
type Engine struct {
	ops     *remote.FileOps
	cfg     config.DiscoveryConfig
	paths   config.PathsConfig
	lookups *cache.LookupCache
}

// NewEngine creates an engine. lookups may be nil.
func NewEngine(ops *remote.FileOps, cfg config.DiscoveryConfig, paths config.PathsConfig, lookups *cache.LookupCache) *Engine {
	return &Engine{ops: ops, cfg: cfg, paths: paths, lookups: lookups}
}

// Discover returns at most MaxResults matches for query under the root
// selected by basePath. Individual lookup failures are logged and contribute
// nothing; Discover itself never fails.
func (e *Engine) Discover(ctx context.Context, query string, domain []string, basePath string) []FileMatch {
	var all []FileMatch
	for _, kind := range e.kinds(basePath) {
		root := e.paths.BaseRoot(kind)
		if root == "" {
			continue
		}
		all = append(all, e.discoverRoot(ctx, query, domain, root)...)
	}
	ranked := Rank(all, e.cfg.MaxResults)
	logging.Debug("discovery finished", "query", query, "base", basePath, "candidates", len(all), "ranked", len(ranked))
	return ranked
}

func (e *Engine) kinds(basePath string) []string {
	switch basePath {
	case BaseBoth:
		return []string{BaseRuntime, BaseCodegen}
	case BaseCodegen:
		return []string{BaseCodegen}
	default:
		return []string{BaseRuntime}
	}
}

func (e *Engine) discoverRoot(ctx context.Context, query string, domain []string, root string) []FileMatch {
	byName := e.byName(ctx, query, domain, root)

	var matches []FileMatch
	matches = append(matches, byName...)
	matches = append(matches, e.byContent(ctx, query, root)...)
	matches = append(matches, e.bySymbol(ctx, query, root)...)
	matches = append(matches, e.byDependency(ctx, byName, root)...)
	return matches
}

// NameFragments returns the fragments searched for in file names: for each
// PascalCase identifier a lowercase dotted form and the original casing, then
// query keywords, then domain tags.
func NameFragments(query string, domain []string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, ident := range keywords.PascalCase(query) {
		add(strings.Join(keywords.SplitIdentifier(ident), "."))
		add(ident)
	}
	for _, kw := range keywords.Extract(query) {
		add(kw)
	}
	for _, tag := range domain {
		if t := strings.ToLower(strings.TrimSpace(tag)); len(t) > 2 && !keywords.IsStopword(t) {
			add(t)
		}
	}
	return out
}

func (e *Engine) byName(ctx context.Context, query string, domain []string, root string) []FileMatch {
	var matches []FileMatch
	for _, frag := range NameFragments(query, domain) {
		paths, err := e.lookup(ctx, "name", root, frag, func() ([]string, error) {
			return e.ops.FindByName(ctx, root, frag, e.cfg.NameHits)
		})
		if err != nil {
			logging.Warn("name lookup failed", "fragment", frag, "error", err)
			continue
		}
		for _, p := range paths {
			matches = append(matches, FileMatch{
				Path:       p,
				MatchType:  MatchName,
				Confidence: nameConfidence(frag, path.Base(p)),
				Context:    fmt.Sprintf("file name matches %q", frag),
			})
		}
	}
	return matches
}

// nameConfidence is 0.9 when fragment appears in the file name ignoring case,
// otherwise 0.7 times the share of the fragment's tokens found in it.
func nameConfidence(fragment, base string) float64 {
	if keywords.ContainsFold(base, fragment) {
		return 0.9
	}
	tokens := keywords.SplitIdentifier(fragment)
	if len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(base)
	hit := 0
	for _, t := range tokens {
		if strings.Contains(lower, t) {
			hit++
		}
	}
	return float64(hit) / float64(len(tokens)) * 0.7
}

func (e *Engine) byContent(ctx context.Context, query, root string) []FileMatch {
	var matches []FileMatch
	for _, kw := range keywords.Extract(query) {
		paths, err := e.lookup(ctx, "content", root, kw, func() ([]string, error) {
			return e.ops.GrepFiles(ctx, root, kw, remote.GrepOptions{
				Extensions: e.cfg.SourceExtensions,
				IgnoreCase: true,
				Limit:      e.cfg.ContentHits,
			})
		})
		if err != nil {
			logging.Warn("content lookup failed", "keyword", kw, "error", err)
			continue
		}
		for _, p := range paths {
			conf := 0.6
			if keywords.ContainsFold(p, kw) {
				conf = 0.8
			}
			matches = append(matches, FileMatch{
				Path:       p,
				MatchType:  MatchContent,
				Confidence: conf,
				Context:    fmt.Sprintf("contains %q", kw),
			})
		}
	}
	return matches
}

var declarationKinds = []string{"class", "interface", "type"}

func (e *Engine) bySymbol(ctx context.Context, query, root string) []FileMatch {
	var matches []FileMatch
	for _, sym := range keywords.PascalCase(query) {
		for _, kind := range declarationKinds {
			pattern := kind + `[[:space:]]+` + sym + `([^A-Za-z0-9_]|$)`
			paths, err := e.lookup(ctx, "symbol", root, pattern, func() ([]string, error) {
				return e.ops.GrepFiles(ctx, root, pattern, remote.GrepOptions{
					Extensions: e.cfg.SourceExtensions,
					Regex:      true,
					Limit:      e.cfg.SymbolHits,
				})
			})
			if err != nil {
				logging.Warn("symbol lookup failed", "symbol", sym, "kind", kind, "error", err)
				continue
			}
			for _, p := range paths {
				matches = append(matches, FileMatch{
					Path:       p,
					MatchType:  MatchSymbol,
					Confidence: 0.9,
					Context:    fmt.Sprintf("declares %s %s", kind, sym),
				})
			}
		}
	}
	return matches
}

// lookup runs fn through the lookup cache and drops ignored paths.
func (e *Engine) lookup(ctx context.Context, kind, root, term string, fn func() ([]string, error)) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := cache.Key(kind, root, term)
	if paths, ok := e.lookups.Get(key); ok {
		return paths, nil
	}
	paths, err := fn()
	if err != nil {
		return nil, err
	}
	paths = e.filterIgnored(paths)
	e.lookups.Set(key, paths)
	return paths, nil
}

func (e *Engine) filterIgnored(paths []string) []string {
	if len(e.cfg.Ignore) == 0 {
		return paths
	}
	kept := paths[:0:0]
	for _, p := range paths {
		if !e.ignored(p) {
			kept = append(kept, p)
		}
	}
	return kept
}

func (e *Engine) ignored(p string) bool {
	rel := strings.TrimPrefix(p, "/")
	for _, pattern := range e.cfg.Ignore {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/cache"
	"wavepulse/internal/config"
	"wavepulse/internal/remote"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, body := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
}

func newTestEngine(runtime, codegen string, exec remote.Executor) *Engine {
	cfg := config.DefaultConfig()
	paths := cfg.Paths
	paths.RuntimeRoot = runtime
	paths.CodegenRoot = codegen
	return NewEngine(remote.NewFileOps(exec), cfg.Discovery, paths, cache.NewLookupCache(16, time.Minute))
}

func TestRank(t *testing.T) {
	in := []FileMatch{
		{Path: "/a", Confidence: 0.6, MatchType: MatchContent},
		{Path: "/b", Confidence: 0.9, MatchType: MatchSymbol},
		{Path: "/a", Confidence: 0.9, MatchType: MatchName},
		{Path: "/c", Confidence: 0.6},
		{Path: "/d", Confidence: 1.4},
	}
	out := Rank(in, 3)
	require.Len(t, out, 3)
	assert.Equal(t, []string{"/d", "/b", "/a"}, Paths(out))
	assert.Equal(t, 1.0, out[0].Confidence)
	// first occurrence wins
	assert.Equal(t, MatchContent, out[2].MatchType)
	assert.Equal(t, 0.6, out[2].Confidence)
}

func TestRankNeverExceedsBound(t *testing.T) {
	var in []FileMatch
	for i := 0; i < 45; i++ {
		in = append(in, FileMatch{Path: fmt.Sprintf("/x/%02d.ts", i), Confidence: 0.5})
	}
	assert.Len(t, Rank(in, 0), MaxResults)
	assert.Len(t, Rank(in, 100), MaxResults)
}

func TestRankBound(t *testing.T) {
	var in []FileMatch
	for i := 0; i < 50; i++ {
		in = append(in, FileMatch{Path: filepath.Join("/x", string(rune('a'+i%26)), string(rune('a'+i/26))), Confidence: float64(i%7) / 7})
	}
	out := Rank(in, 30)
	assert.Len(t, out, 30)
	seen := map[string]bool{}
	for i, m := range out {
		assert.False(t, seen[m.Path])
		seen[m.Path] = true
		if i > 0 {
			assert.GreaterOrEqual(t, out[i-1].Confidence, m.Confidence)
		}
	}
}

func TestNameFragments(t *testing.T) {
	assert.Equal(t, []string{"base.component", "BaseComponent", "basecomponent"},
		NameFragments("How does BaseComponent work?", nil))
	assert.Equal(t, []string{"button", "styles", "theme"},
		NameFragments("button styles", []string{"theme", "ui"}))
}

func TestNameConfidence(t *testing.T) {
	assert.Equal(t, 0.9, nameConfidence("button", "button.component.tsx"))
	assert.Equal(t, 0.9, nameConfidence("button", "Button.tsx"))
	assert.InDelta(t, 0.7, nameConfidence("BaseComponent", "base.component.tsx"), 1e-9)
	assert.InDelta(t, 0.35, nameConfidence("BaseWidget", "base.component.tsx"), 1e-9)
}

func TestDiscoverFindsAllStrategies(t *testing.T) {
	runtime := t.TempDir()
	codegen := t.TempDir()
	writeTree(t, runtime, map[string]string{
		"src/core/base.component.tsx": "import { Theme } from '../styles/theme';\n" +
			"import injector from '@wavemaker/app-rn-runtime/core/injector';\n" +
			"export abstract class BaseComponent<T> {}\n",
		"src/styles/theme.ts":                        "export class Theme {}\n",
		"src/core/injector/index.ts":                 "export default {};\n",
		"src/components/button/button.component.tsx": "export default class WmButton extends BaseComponent {}\n",
		"node_modules/x/base.component.tsx":          "class BaseComponent {}",
	})
	writeTree(t, codegen, map[string]string{
		"src/transpile/base.component.transformer.ts": "// BaseComponent markup\n",
	})

	e := newTestEngine(runtime, codegen, remote.LocalExecutor{})
	got := e.Discover(context.Background(), "How does BaseComponent work?", nil, BaseRuntime)

	byPath := map[string]FileMatch{}
	for _, m := range got {
		byPath[m.Path] = m
	}

	base := filepath.Join(runtime, "src/core/base.component.tsx")
	require.Contains(t, byPath, base)
	assert.Equal(t, MatchName, byPath[base].MatchType)
	assert.Equal(t, 0.9, byPath[base].Confidence)

	button := filepath.Join(runtime, "src/components/button/button.component.tsx")
	require.Contains(t, byPath, button)
	assert.Equal(t, MatchContent, byPath[button].MatchType)

	theme := filepath.Join(runtime, "src/styles/theme.ts")
	require.Contains(t, byPath, theme)
	assert.Equal(t, MatchDependency, byPath[theme].MatchType)
	assert.Equal(t, "imported by "+base, byPath[theme].Context)

	injector := filepath.Join(runtime, "src/core/injector/index.ts")
	assert.Contains(t, byPath, injector)

	for p := range byPath {
		assert.NotContains(t, p, "node_modules")
		assert.NotContains(t, p, codegen)
	}

	both := e.Discover(context.Background(), "How does BaseComponent work?", nil, BaseBoth)
	assert.Contains(t, Paths(both), filepath.Join(codegen, "src/transpile/base.component.transformer.ts"))
}

func TestDiscoverSwallowsLookupFailures(t *testing.T) {
	failing := remote.ExecutorFunc(func(ctx context.Context, command, workDir string) (string, error) {
		return "", errors.New("connection refused")
	})
	e := newTestEngine("/runtime", "/codegen", failing)
	assert.Empty(t, e.Discover(context.Background(), "How does BaseComponent work?", []string{"architecture"}, BaseBoth))
}

func TestDiscoverUsesLookupCache(t *testing.T) {
	calls := 0
	counting := remote.ExecutorFunc(func(ctx context.Context, command, workDir string) (string, error) {
		calls++
		return "", nil
	})
	e := newTestEngine("/runtime", "", counting)
	e.Discover(context.Background(), "button styles", nil, BaseRuntime)
	first := calls
	e.Discover(context.Background(), "button styles", nil, BaseRuntime)
	assert.Equal(t, first, calls)
}

func TestResolveCandidates(t *testing.T) {
	e := newTestEngine("/rt", "/cg", remote.LocalExecutor{})

	c := e.resolveCandidates("../styles/theme", "/rt/src/core/base.tsx", "/rt")
	assert.Equal(t, "/rt/src/styles/theme", c[0])
	assert.Contains(t, c, "/rt/src/styles/theme.ts")
	assert.Contains(t, c, "/rt/src/styles/theme/index.tsx")

	c = e.resolveCandidates("@wavemaker/rn-codegen/transpile/x", "/rt/src/a.ts", "/rt")
	assert.Equal(t, "/cg/src/transpile/x", c[0])

	c = e.resolveCandidates("@other/pkg/util", "/rt/src/a.ts", "/rt")
	assert.Equal(t, "/rt/src/util", c[0])

	assert.Nil(t, e.resolveCandidates("react", "/rt/src/a.ts", "/rt"))
}

func TestParseImports(t *testing.T) {
	text := "from '../a'\nimport './side'\nrequire('lodash'\nfrom \"@x/y/z\"\n"
	assert.Equal(t, []string{"../a", "./side", "lodash", "@x/y/z"}, ParseImports(text, 10))
	assert.Equal(t, []string{"../a", "./side"}, ParseImports(text, 2))
}

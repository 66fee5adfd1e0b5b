package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/robustness"
)

func newLocalOps() *FileOps {
	return NewFileOps(LocalExecutor{})
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, Quote("plain"))
	assert.Equal(t, `'it'\''s'`, Quote("it's"))
}

func TestWriteReadAppend(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	p := filepath.Join(t.TempDir(), "nested", "a file.txt")

	content := "line one\nit's $HOME and `backticks`\n"
	require.NoError(t, ops.WriteFile(ctx, p, content, ""))
	got, err := ops.ReadFile(ctx, p, "")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, ops.AppendFile(ctx, p, "tail\n", ""))
	got, err = ops.ReadFile(ctx, p, "")
	require.NoError(t, err)
	assert.Equal(t, content+"tail\n", got)

	_, err = ops.ReadFile(ctx, p+".missing", "")
	assert.ErrorIs(t, err, ErrUnreadable)
}

func TestRelativePathsUseWorkDir(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.txt"), []byte("x"), 0o644))

	ok, _, err := ops.Exists(ctx, "rel.txt", dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, out, err := ops.Exists(ctx, "nope.txt", dir)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Contains(t, out, "FILE_NOT_FOUND")
}

func TestReplaceSingleLineEscapesRegex(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	p := filepath.Join(t.TempDir(), "page.xml")
	require.NoError(t, os.WriteFile(p, []byte(`<wm-label caption="a.b*[c]" /> & <x path="/a/b"/>`+"\n"), 0o644))

	_, err := ops.Replace(ctx, p, `caption="a.b*[c]"`, `caption="R&D \ it's"`, "")
	require.NoError(t, err)
	_, err = ops.Replace(ctx, p, `path="/a/b"`, `path="/c"`, "")
	require.NoError(t, err)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, `<wm-label caption="R&D \ it's" /> & <x path="/c"/>`+"\n", string(data))
	_, statErr := os.Stat(p + tmpSuffix)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReplaceMultiLine(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	p := filepath.Join(t.TempDir(), "a.ts")
	require.NoError(t, os.WriteFile(p, []byte("a\nb\nc\nb\n"), 0o644))

	_, err := ops.Replace(ctx, p, "b\nc", "B\nC\nD", "")
	require.NoError(t, err)
	data, _ := os.ReadFile(p)
	assert.Equal(t, "a\nB\nC\nD\nb\n", string(data))
}

func TestFindAndGrep(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	root := t.TempDir()
	files := map[string]string{
		"src/components/button/button.component.tsx": "export class WmButton extends BaseComponent {}",
		"src/core/base.component.tsx":                "export abstract class BaseComponent {}",
		"node_modules/lib/button.js":                 "BaseComponent",
		"README.md":                                  "BaseComponent docs",
	}
	for rel, body := range files {
		full := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}

	found, err := ops.FindByName(ctx, root, "Button", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src/components/button/button.component.tsx")}, found)

	hits, err := ops.GrepFiles(ctx, root, "basecomponent", GrepOptions{Extensions: []string{"tsx"}, IgnoreCase: true, Limit: 20})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(root, "src/components/button/button.component.tsx"),
		filepath.Join(root, "src/core/base.component.tsx"),
	}, hits)

	decl, err := ops.GrepFiles(ctx, root, `class[[:space:]]+BaseComponent\b`, GrepOptions{Regex: true, Extensions: []string{"tsx"}})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "src/core/base.component.tsx")}, decl)

	first, err := ops.FirstExisting(ctx, []string{
		filepath.Join(root, "src/core/base"),
		filepath.Join(root, "src/core/base.component.tsx"),
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src/core/base.component.tsx"), first)
}

func TestLocalExecutorNonZeroExitIsNotError(t *testing.T) {
	out, err := LocalExecutor{}.Execute(context.Background(), "echo out; exit 3", "")
	require.NoError(t, err)
	assert.Equal(t, "out\n", out)

	_, err = LocalExecutor{}.Execute(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestGuardedExecutorOpensBreaker(t *testing.T) {
	calls := 0
	failing := ExecutorFunc(func(ctx context.Context, command, workDir string) (string, error) {
		calls++
		return "", errors.New("connection reset")
	})
	g := NewGuardedExecutor(failing, robustness.NewCircuitBreaker(2, time.Minute), time.Second)

	for i := 0; i < 2; i++ {
		_, err := g.Execute(context.Background(), "true", "")
		require.Error(t, err)
	}
	_, err := g.Execute(context.Background(), "true", "")
	assert.ErrorIs(t, err, robustness.ErrCircuitOpen)
	assert.Equal(t, 2, calls)
}

func TestLineCount(t *testing.T) {
	ctx := context.Background()
	ops := newLocalOps()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.ts"), []byte("one\ntwo\nthree"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ts"), []byte("one\n"), 0o644))

	n, err := ops.LineCount(ctx, filepath.Join(dir, "a.ts"), "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = ops.LineCount(ctx, "b.ts", dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = ops.LineCount(ctx, filepath.Join(dir, "missing.ts"), "")
	assert.ErrorIs(t, err, ErrUnreadable)
}

package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavepulse/internal/cache"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/remote"
)

func newRegistry(t *testing.T) (*Registry, string, *cache.LookupCache) {
	t.Helper()
	dir := t.TempDir()
	ops := remote.NewFileOps(remote.LocalExecutor{})
	lookups := cache.NewLookupCache(8, time.Minute)
	return DefaultRegistry(ops, fileedit.NewVerifier(ops), lookups, dir), dir, lookups
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestRegistryNamesAndDescribe(t *testing.T) {
	r, _, _ := newRegistry(t)
	assert.Equal(t, []string{"append_file", "edit_file", "find_files", "list_directory", "read_file", "search_files", "write_file"}, r.Names())

	desc := r.Describe()
	assert.Contains(t, desc, "- edit_file: Replaces every occurrence")
	assert.Contains(t, desc, "    file_path (string, required): Path of the file to edit")
	assert.Contains(t, desc, "    limit (integer, optional)")
}

func TestRegistryExecuteFailures(t *testing.T) {
	r, _, _ := newRegistry(t)
	res := r.Execute(context.Background(), "delete_file", nil)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, `unknown tool "delete_file"`)

	res = r.Execute(context.Background(), "read_file", map[string]any{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "file_path: is required")

	assert.Error(t, r.Register(&ReadTool{}))
}

func TestReadFile(t *testing.T) {
	r, dir, _ := newRegistry(t)
	writeFile(t, dir, "a.txt", "one\ntwo\nthree\n")

	res := r.Execute(context.Background(), "read_file", map[string]any{"file_path": "a.txt", "offset": float64(2), "limit": float64(1)})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "     2\ttwo\n... (1 more lines)\n", res.Content)

	res = r.Execute(context.Background(), "read_file", map[string]any{"file_path": "missing.txt"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "cannot read")
}

func TestWriteAndAppendInvalidateLookups(t *testing.T) {
	r, dir, lookups := newRegistry(t)
	lookups.Set(cache.Key("name", "Button"), []string{"/old"})

	res := r.Execute(context.Background(), "write_file", map[string]any{"file_path": `"sub/b.txt"`, "content": "hello"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 0, lookups.Len())

	res = r.Execute(context.Background(), "append_file", map[string]any{"file_path": "sub/b.txt", "content": " world"})
	require.True(t, res.Success, res.Error)

	data, err := os.ReadFile(filepath.Join(dir, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestEditFile(t *testing.T) {
	r, dir, _ := newRegistry(t)
	p := writeFile(t, dir, "page.xml", `<wm-button name="b1" caption="">`+"\n")

	args := map[string]any{"file_path": p, "search": `caption=""`, "replace": `caption="Hello"`}
	res := r.Execute(context.Background(), "edit_file", args)
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content, "edited")

	again := r.Execute(context.Background(), "edit_file", args)
	assert.True(t, again.Success, again.Error)

	dup := r.Execute(context.Background(), "edit_file", map[string]any{"file_path": p, "search": `name="b1"`, "replace": `name="b1" caption="Bye"`})
	assert.False(t, dup.Success)
	assert.Contains(t, dup.Error, "duplicate attribute")
}

func TestSearchListFind(t *testing.T) {
	r, dir, _ := newRegistry(t)
	writeFile(t, dir, "src/button.tsx", "export class WmButton {}\n")
	writeFile(t, dir, "src/button.styles.ts", "export const buttonStyles = {}\n")

	res := r.Execute(context.Background(), "search_files", map[string]any{"pattern": "WmButton", "extensions": []any{"tsx"}})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content, "button.tsx:1:export class WmButton")

	res = r.Execute(context.Background(), "list_directory", map[string]any{"path": "src"})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content, "button.tsx")

	res = r.Execute(context.Background(), "find_files", map[string]any{"pattern": "*.styles.ts"})
	require.True(t, res.Success, res.Error)
	assert.Contains(t, res.Content, "button.styles.ts")
	assert.NotContains(t, res.Content, "button.tsx")

	res = r.Execute(context.Background(), "find_files", map[string]any{"pattern": "BUTTON"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 2, res.Data.(map[string]any)["count"])

	res = r.Execute(context.Background(), "list_directory", map[string]any{"path": "nope"})
	assert.False(t, res.Success)
}

func TestGetStrings(t *testing.T) {
	assert.Equal(t, []string{"ts", "tsx"}, GetStrings(map[string]any{"e": "ts,tsx"}, "e"))
	assert.Equal(t, []string{"ts"}, GetStrings(map[string]any{"e": []any{"ts", 3, ""}}, "e"))
	assert.Nil(t, GetStrings(map[string]any{}, "e"))
}

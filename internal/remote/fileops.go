package remote

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Output markers printed by the commands FileOps builds.
const (
	markerExists      = "FILE_EXISTS"
	markerNotFound    = "FILE_NOT_FOUND"
	markerUnreadable  = "__WAVEPULSE_UNREADABLE__"
	markerWriteOK     = "__WAVEPULSE_WRITE_OK__"
	markerReplaceOK   = "__WAVEPULSE_REPLACE_OK__"
	tmpSuffix         = ".wavepulse.tmp"
	excludeNodeModule = "-not -path '*/node_modules/*'"
)

// ErrUnreadable is returned when a file does not exist or cannot be read.
var ErrUnreadable = errors.New("file not found or not readable")

// CommandError carries the raw output of a command whose success marker was
// missing.
type CommandError struct {
	Op     string
	Output string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, strings.TrimSpace(e.Output))
}

// FileOps expresses file operations as shell commands over an Executor.
type FileOps struct {
	exec Executor
}

// NewFileOps creates FileOps over exec.
func NewFileOps(exec Executor) *FileOps {
	return &FileOps{exec: exec}
}

// Executor returns the underlying executor.
func (f *FileOps) Executor() Executor {
	return f.exec
}

// Run executes an arbitrary command.
func (f *FileOps) Run(ctx context.Context, command, workDir string) (string, error) {
	return f.exec.Execute(ctx, command, workDir)
}

// Quote single-quotes s for sh.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ReadFile returns the full text of p.
func (f *FileOps) ReadFile(ctx context.Context, p, workDir string) (string, error) {
	q := Quote(p)
	cmd := fmt.Sprintf("if [ -f %s ] && [ -r %s ]; then cat -- %s; else printf '%%s\\n' %s; fi", q, q, q, markerUnreadable)
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == markerUnreadable {
		return "", fmt.Errorf("%s: %w", p, ErrUnreadable)
	}
	return out, nil
}

// LineCount returns the number of lines in p, counting a final line without
// a trailing newline.
func (f *FileOps) LineCount(ctx context.Context, p, workDir string) (int, error) {
	q := Quote(p)
	cmd := fmt.Sprintf("if [ -f %s ] && [ -r %s ]; then awk 'END { print NR }' %s; else printf '%%s\\n' %s; fi", q, q, q, markerUnreadable)
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return 0, err
	}
	out = strings.TrimSpace(out)
	if out == markerUnreadable {
		return 0, fmt.Errorf("%s: %w", p, ErrUnreadable)
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, &CommandError{Op: "count lines", Output: out}
	}
	return n, nil
}

// WriteFile replaces p with content, creating parent directories. The content
// travels base64-encoded and lands in a sibling temp file that is renamed
// over p.
func (f *FileOps) WriteFile(ctx context.Context, p, content, workDir string) error {
	q := Quote(p)
	tmp := Quote(p + tmpSuffix)
	cmd := fmt.Sprintf("mkdir -p %s && printf '%%s' %s | base64 -d > %s && mv -f %s %s && echo %s",
		Quote(path.Dir(p)), Quote(base64.StdEncoding.EncodeToString([]byte(content))), tmp, tmp, q, markerWriteOK)
	return f.expect(ctx, "write", cmd, workDir, markerWriteOK)
}

// AppendFile appends content to p, creating it if needed.
func (f *FileOps) AppendFile(ctx context.Context, p, content, workDir string) error {
	cmd := fmt.Sprintf("mkdir -p %s && printf '%%s' %s | base64 -d >> %s && echo %s",
		Quote(path.Dir(p)), Quote(base64.StdEncoding.EncodeToString([]byte(content))), Quote(p), markerWriteOK)
	return f.expect(ctx, "append", cmd, workDir, markerWriteOK)
}

// Exists tests for a regular file at p. The result is only as reliable as the
// command channel; callers that need certainty confirm with ListLong.
func (f *FileOps) Exists(ctx context.Context, p, workDir string) (bool, string, error) {
	cmd := fmt.Sprintf("test -f %s && echo %s || echo %s", Quote(p), markerExists, markerNotFound)
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return false, out, err
	}
	return strings.Contains(out, markerExists) && !strings.Contains(out, markerNotFound), out, nil
}

// ListLong returns `ls -la` output for p, errors included.
func (f *FileOps) ListLong(ctx context.Context, p, workDir string) (string, error) {
	return f.exec.Execute(ctx, "ls -la "+Quote(p)+" 2>&1", workDir)
}

// ListDir returns directory entries of dir, directories suffixed with "/".
func (f *FileOps) ListDir(ctx context.Context, dir, workDir string) ([]string, error) {
	q := Quote(dir)
	cmd := fmt.Sprintf("if [ -d %s ]; then ls -1Ap %s; else printf '%%s\\n' %s; fi", q, q, markerUnreadable)
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == markerUnreadable {
		return nil, fmt.Errorf("%s: %w", dir, ErrUnreadable)
	}
	return lines(out), nil
}

// FindByName lists regular files under base whose name contains fragment,
// case-insensitively, skipping node_modules.
func (f *FileOps) FindByName(ctx context.Context, base, fragment string, limit int) ([]string, error) {
	cmd := fmt.Sprintf("find %s -type f -iname %s %s 2>/dev/null | head -n %d || true",
		Quote(base), Quote("*"+globEscape(fragment)+"*"), excludeNodeModule, limit)
	out, err := f.exec.Execute(ctx, cmd, "")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// FindByGlob lists regular files under base whose name matches the shell
// glob pattern.
func (f *FileOps) FindByGlob(ctx context.Context, base, pattern string, limit int) ([]string, error) {
	cmd := fmt.Sprintf("find %s -type f -name %s %s 2>/dev/null | head -n %d || true",
		Quote(base), Quote(pattern), excludeNodeModule, limit)
	out, err := f.exec.Execute(ctx, cmd, "")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// GrepOptions narrows a content search.
type GrepOptions struct {
	Extensions []string // e.g. ts, tsx; empty = all text files
	IgnoreCase bool
	Regex      bool // extended regex instead of fixed string
	Limit      int
}

func (o GrepOptions) flags() string {
	var b strings.Builder
	b.WriteString("-rI")
	if o.IgnoreCase {
		b.WriteString("i")
	}
	if o.Regex {
		b.WriteString("E")
	} else {
		b.WriteString("F")
	}
	b.WriteString(" --exclude-dir=node_modules")
	for _, ext := range o.Extensions {
		b.WriteString(" --include=")
		b.WriteString(Quote("*." + strings.TrimPrefix(ext, ".")))
	}
	return b.String()
}

// GrepFiles lists files under base containing pattern.
func (f *FileOps) GrepFiles(ctx context.Context, base, pattern string, opts GrepOptions) ([]string, error) {
	cmd := fmt.Sprintf("grep %s -l -e %s %s 2>/dev/null | head -n %d || true",
		opts.flags(), Quote(pattern), Quote(base), limitOr(opts.Limit, 20))
	out, err := f.exec.Execute(ctx, cmd, "")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// GrepLines returns matching lines as "path:line:text" under base.
func (f *FileOps) GrepLines(ctx context.Context, base, pattern string, opts GrepOptions) ([]string, error) {
	cmd := fmt.Sprintf("grep %s -n -e %s %s 2>/dev/null | head -n %d || true",
		opts.flags(), Quote(pattern), Quote(base), limitOr(opts.Limit, 50))
	out, err := f.exec.Execute(ctx, cmd, "")
	if err != nil {
		return nil, err
	}
	return lines(out), nil
}

// FirstExisting returns the first candidate that is a regular file, or "".
func (f *FileOps) FirstExisting(ctx context.Context, candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", nil
	}
	quoted := make([]string, len(candidates))
	for i, c := range candidates {
		quoted[i] = Quote(c)
	}
	cmd := fmt.Sprintf("for p in %s; do if [ -f \"$p\" ]; then echo \"$p\"; break; fi; done", strings.Join(quoted, " "))
	out, err := f.exec.Execute(ctx, cmd, "")
	if err != nil {
		return "", err
	}
	if l := lines(out); len(l) > 0 {
		return l[0], nil
	}
	return "", nil
}

// Replace substitutes every literal occurrence of search with replace in p.
// Single-line text goes through sed with both sides escaped; multi-line text
// is replaced in memory and written back. Either way the result is written
// to a sibling temp file and renamed over p.
func (f *FileOps) Replace(ctx context.Context, p, search, replace, workDir string) (string, error) {
	if search == "" {
		return "", fmt.Errorf("empty search text")
	}
	if strings.ContainsAny(search, "\n\r") || strings.ContainsAny(replace, "\n\r") {
		content, err := f.ReadFile(ctx, p, workDir)
		if err != nil {
			return "", err
		}
		if err := f.WriteFile(ctx, p, strings.ReplaceAll(content, search, replace), workDir); err != nil {
			return "", err
		}
		return markerReplaceOK, nil
	}

	q := Quote(p)
	tmp := Quote(p + tmpSuffix)
	script := "s/" + sedPattern(search) + "/" + sedReplacement(replace) + "/g"
	cmd := fmt.Sprintf("sed -e %s %s > %s && mv -f %s %s && echo %s || { rm -f %s; echo REPLACE_FAILED; }",
		Quote(script), q, tmp, tmp, q, markerReplaceOK, tmp)
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return out, err
	}
	if !strings.Contains(out, markerReplaceOK) {
		return out, &CommandError{Op: "replace", Output: out}
	}
	return out, nil
}

func (f *FileOps) expect(ctx context.Context, op, cmd, workDir, marker string) error {
	out, err := f.exec.Execute(ctx, cmd, workDir)
	if err != nil {
		return err
	}
	if !strings.Contains(out, marker) {
		return &CommandError{Op: op, Output: out}
	}
	return nil
}

// sedPattern escapes s for a basic regular expression delimited by "/".
func sedPattern(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '/', '.', '*', '[', '^', '$':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sedReplacement(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '\\', '/', '&':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func globEscape(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			res = append(res, l)
		}
	}
	return res
}

func limitOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}

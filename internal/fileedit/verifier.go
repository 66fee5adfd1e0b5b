// Package fileedit applies search/replace edits through the command channel
// and verifies that they actually took effect.
package fileedit

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

// Result is the outcome of an edit. Failures are values, never Go errors, so
// the calling agent can read the diagnostic and retry.
type Result struct {
	Success bool
	Message string
	Path    string // normalized path
	RawPath string
	Diff    string
	Output  string // command output relevant to the outcome
}

// Verifier edits files over remote.FileOps.
type Verifier struct {
	ops *remote.FileOps
}

// NewVerifier creates a verifier.
func NewVerifier(ops *remote.FileOps) *Verifier {
	return &Verifier{ops: ops}
}

var (
	permissionBits = regexp.MustCompile(`(?m)^[-dlcbps][-rwxsStT]{9}`)
	lsErrorTokens  = []string{"No such file", "cannot access", "not found", "Permission denied"}
	attrPattern    = regexp.MustCompile(`([A-Za-z_:][-A-Za-z0-9_:.]*)="[^"]*"`)
)

// Edit replaces every literal occurrence of search with replace in filePath.
func (v *Verifier) Edit(ctx context.Context, filePath, search, replace, workDir string) Result {
	clean := NormalizePath(filePath)
	res := Result{RawPath: filePath, Path: clean}
	if clean == "" {
		res.Message = fmt.Sprintf("invalid file path %q", filePath)
		return res
	}
	if search == "" {
		res.Message = "search text must not be empty"
		return res
	}

	checkPath, cmdPath := resolvePaths(clean, workDir)
	cmdDir := workDir
	if path.IsAbs(clean) {
		cmdDir = ""
	}

	exists, lsOut, err := v.exists(ctx, checkPath)
	if err != nil {
		res.Message = fmt.Sprintf("existence check failed for %s: %v", checkPath, err)
		res.Output = lsOut
		return res
	}
	if !exists {
		res.Message = fmt.Sprintf("file not found: %s (raw path %q, normalized %q)", checkPath, filePath, clean)
		res.Output = lsOut
		return res
	}

	original, readErr := v.ops.ReadFile(ctx, cmdPath, cmdDir)
	if readErr != nil {
		logging.Warn("could not read file before edit", "path", clean, "error", readErr)
	}

	out, err := v.ops.Replace(ctx, cmdPath, search, replace, cmdDir)
	if err != nil {
		res.Message = fmt.Sprintf("replace failed: %v", err)
		res.Output = out
		return res
	}

	content, err := v.ops.ReadFile(ctx, cmdPath, cmdDir)
	if err != nil {
		res.Message = fmt.Sprintf("could not read %s after edit: %v", clean, err)
		return res
	}

	searchLeft := strings.Contains(content, search)
	replacePresent := replace != "" && strings.Contains(content, replace)
	if searchLeft && !replacePresent {
		res.Message = "search text not found, no replacement made"
		res.Output = excerpt(content, search)
		return res
	}

	if name, line, dup := duplicateAttribute(content, replace); dup {
		state := "the file was left unchanged"
		switch {
		case readErr != nil:
			state = fmt.Sprintf("the file could not be restored: %v", readErr)
		default:
			if err := v.ops.WriteFile(ctx, cmdPath, original, cmdDir); err != nil {
				state = fmt.Sprintf("the file could not be restored: %v", err)
			}
		}
		res.Message = fmt.Sprintf("duplicate attribute %q: the edit would leave two %s attributes on one line: %s\n"+
			"Edit rejected and %s. Target the existing %s attribute in the search text instead of adding a new one.",
			name, name, strings.TrimSpace(line), state, name)
		res.Output = line
		return res
	}

	res.Success = true
	res.Diff = inlineDiff(search, replace)
	switch {
	case !replacePresent && replace != "":
		res.Message = fmt.Sprintf("edited %s (no change needed: search text already absent)", clean)
	default:
		res.Message = fmt.Sprintf("edited %s", clean)
	}
	logging.Debug("file edit verified", "path", clean, "search_left", searchLeft, "replace_present", replacePresent)
	return res
}

// exists runs the primary existence test and, when that reports a miss,
// confirms with a directory listing.
func (v *Verifier) exists(ctx context.Context, checkPath string) (bool, string, error) {
	ok, out, err := v.ops.Exists(ctx, checkPath, "")
	if err != nil {
		return false, out, err
	}
	if ok {
		return true, out, nil
	}

	ls, err := v.ops.ListLong(ctx, checkPath, "")
	if err != nil {
		return false, ls, err
	}
	if listingConfirms(ls, checkPath) {
		logging.Warn("existence test missed a file the listing shows", "path", checkPath)
		return true, ls, nil
	}
	return false, ls, nil
}

func listingConfirms(ls, p string) bool {
	if !permissionBits.MatchString(ls) {
		return false
	}
	for _, tok := range lsErrorTokens {
		if strings.Contains(ls, tok) {
			return false
		}
	}
	return strings.Contains(ls, path.Base(p)) || strings.Contains(ls, p)
}

// duplicateAttribute reports the first attribute from replace that now occurs
// twice on a single line of content. Attributes repeated across different
// lines are not detected.
func duplicateAttribute(content, replace string) (name, line string, dup bool) {
	for _, m := range attrPattern.FindAllStringSubmatch(replace, -1) {
		attr := m[1]
		occ := regexp.MustCompile(`(^|[\s<])` + regexp.QuoteMeta(attr) + `=`)
		if len(occ.FindAllStringIndex(content, -1)) <= 1 {
			continue
		}
		for _, l := range strings.Split(content, "\n") {
			if len(occ.FindAllStringIndex(l, -1)) >= 2 {
				return attr, l, true
			}
		}
	}
	return "", "", false
}

func inlineDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))
	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			b.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			b.WriteString("{+" + d.Text + "+}")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}

func excerpt(content, needle string) string {
	for i, l := range strings.Split(content, "\n") {
		if strings.Contains(l, needle) {
			return fmt.Sprintf("%d: %s", i+1, strings.TrimSpace(l))
		}
	}
	return ""
}

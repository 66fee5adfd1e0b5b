package fileedit

import (
	"encoding/json"
	"path"
	"strings"
)

// NormalizePath cleans a file path that may arrive wrapped in layers of
// quoting or JSON string encoding, with escaped quotes or trailing escaped
// newlines. It repeats until the value stops changing.
func NormalizePath(raw string) string {
	s := raw
	for i := 0; i < 8; i++ {
		next := normalizeOnce(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizeOnce(s string) string {
	s = strings.TrimSpace(s)

	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if first == '"' && last == '"' {
			var decoded string
			if err := json.Unmarshal([]byte(s), &decoded); err == nil {
				return decoded
			}
			return s[1 : len(s)-1]
		}
		if first == '\'' && last == '\'' {
			return s[1 : len(s)-1]
		}
	}

	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\'`, `'`)
	s = strings.ReplaceAll(s, `\\n`, "")
	s = strings.ReplaceAll(s, `\n`, "")
	s = strings.ReplaceAll(s, `\r`, "")
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	return strings.Trim(s, "\"'` \t")
}

// resolvePaths returns the absolute path used for existence checks and the
// path used inside commands run from workDir.
func resolvePaths(p, workDir string) (checkPath, cmdPath string) {
	if path.IsAbs(p) || workDir == "" {
		return p, p
	}
	return path.Join(workDir, p), p
}

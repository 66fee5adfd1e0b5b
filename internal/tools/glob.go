package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// FindTool finds files by name.
type FindTool struct{ *fileTools }

func (t *FindTool) Name() string { return "find_files" }

func (t *FindTool) Description() string {
	return "Finds files by name under a directory. A pattern with * or ? is a glob, anything else matches names containing it."
}

func (t *FindTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Name fragment or glob, e.g. Button or *.styles.ts",
				},
				"path": {
					Type:        genai.TypeString,
					Description: "Directory to search (default: working directory)",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum results (default 50)",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *FindTool) Validate(args map[string]any) error {
	if p, ok := GetString(args, "pattern"); !ok || strings.TrimSpace(p) == "" {
		return NewValidationError("pattern", "is required")
	}
	return nil
}

func (t *FindTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	pattern, _ := GetString(args, "pattern")
	pattern = strings.TrimSpace(pattern)
	base := resolve(GetStringDefault(args, "path", "."), t.workDir)
	limit := GetIntDefault(args, "limit", 50)

	var (
		found []string
		err   error
	)
	if strings.ContainsAny(pattern, "*?[") {
		found, err = t.ops.FindByGlob(ctx, base, pattern, limit)
	} else {
		found, err = t.ops.FindByName(ctx, base, pattern, limit)
	}
	if err != nil {
		return NewErrorResult(fmt.Sprintf("find in %s failed: %v", base, err))
	}
	if len(found) == 0 {
		return NewSuccessResultWithData(fmt.Sprintf("No files matching %q under %s", pattern, base), map[string]any{"count": 0})
	}
	return NewSuccessResultWithData(strings.Join(found, "\n"), map[string]any{"count": len(found)})
}

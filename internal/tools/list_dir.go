package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// ListDirTool lists a directory.
type ListDirTool struct{ *fileTools }

func (t *ListDirTool) Name() string { return "list_directory" }

func (t *ListDirTool) Description() string {
	return "Lists the entries of a directory; subdirectories end with /."
}

func (t *ListDirTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Directory to list (default: working directory)",
				},
			},
		},
	}
}

func (t *ListDirTool) Validate(args map[string]any) error { return nil }

func (t *ListDirTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	dir := resolve(GetStringDefault(args, "path", "."), t.workDir)
	entries, err := t.ops.ListDir(ctx, dir, t.workDir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("cannot list %s: %v", dir, err))
	}
	if len(entries) == 0 {
		return NewSuccessResultWithData(dir+" is empty", map[string]any{"count": 0})
	}
	return NewSuccessResultWithData(strings.Join(entries, "\n"), map[string]any{"count": len(entries)})
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"wavepulse/internal/remote"
)

// SearchTool searches file contents.
type SearchTool struct{ *fileTools }

func (t *SearchTool) Name() string { return "search_files" }

func (t *SearchTool) Description() string {
	return "Searches file contents under a directory and returns matches as path:line:text."
}

func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Text to search for",
				},
				"path": {
					Type:        genai.TypeString,
					Description: "Directory to search (default: working directory)",
				},
				"extensions": {
					Type:        genai.TypeArray,
					Items:       &genai.Schema{Type: genai.TypeString},
					Description: "File extensions to include, e.g. [\"ts\", \"tsx\"]",
				},
				"ignore_case": {
					Type:        genai.TypeBoolean,
					Description: "Case-insensitive search",
				},
				"regex": {
					Type:        genai.TypeBoolean,
					Description: "Treat pattern as an extended regular expression",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum matches (default 50)",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *SearchTool) Validate(args map[string]any) error {
	if p, ok := GetString(args, "pattern"); !ok || p == "" {
		return NewValidationError("pattern", "is required")
	}
	return nil
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	pattern, _ := GetString(args, "pattern")
	base := resolve(GetStringDefault(args, "path", "."), t.workDir)
	opts := remote.GrepOptions{
		Extensions: GetStrings(args, "extensions"),
		IgnoreCase: GetBool(args, "ignore_case"),
		Regex:      GetBool(args, "regex"),
		Limit:      GetIntDefault(args, "limit", 50),
	}

	matches, err := t.ops.GrepLines(ctx, base, pattern, opts)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("search in %s failed: %v", base, err))
	}
	if len(matches) == 0 {
		return NewSuccessResultWithData(fmt.Sprintf("No matches for %q in %s", pattern, base), map[string]any{"count": 0})
	}
	return NewSuccessResultWithData(strings.Join(matches, "\n"), map[string]any{"count": len(matches)})
}

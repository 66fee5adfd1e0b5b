package tools

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultReadLimit is the number of lines read_file returns when no limit is given.
const DefaultReadLimit = 2000

// ReadTool reads a file through the command channel.
type ReadTool struct{ *fileTools }

func (t *ReadTool) Name() string { return "read_file" }

func (t *ReadTool) Description() string {
	return "Reads a file and returns its lines prefixed with line numbers."
}

func (t *ReadTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "Path of the file to read",
				},
				"offset": {
					Type:        genai.TypeInteger,
					Description: "First line to return (1-based, default 1)",
				},
				"limit": {
					Type:        genai.TypeInteger,
					Description: "Maximum number of lines to return (default 2000)",
				},
			},
			Required: []string{"file_path"},
		},
	}
}

func (t *ReadTool) Validate(args map[string]any) error {
	return requirePath(args, "file_path")
}

func (t *ReadTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	raw, _ := GetString(args, "file_path")
	p := resolve(raw, t.workDir)
	offset := GetIntDefault(args, "offset", 1)
	limit := GetIntDefault(args, "limit", DefaultReadLimit)

	content, err := t.ops.ReadFile(ctx, p, t.workDir)
	if err != nil {
		return NewErrorResult(fmt.Sprintf("cannot read %s: %v", p, err))
	}

	all := strings.Split(strings.TrimSuffix(content, "\n"), "\n")
	if content == "" {
		all = nil
	}
	if offset > len(all) {
		return NewSuccessResultWithData(fmt.Sprintf("(%s has %d lines)", p, len(all)), map[string]any{"path": p, "lines": len(all)})
	}
	end := min(len(all), offset-1+limit)

	var b strings.Builder
	for i := offset - 1; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, all[i])
	}
	if end < len(all) {
		fmt.Fprintf(&b, "... (%d more lines)\n", len(all)-end)
	}
	return NewSuccessResultWithData(b.String(), map[string]any{"path": p, "lines": len(all)})
}

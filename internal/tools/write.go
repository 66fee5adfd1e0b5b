package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// WriteTool replaces or appends to a file.
type WriteTool struct {
	*fileTools
	append bool
}

func (t *WriteTool) Name() string {
	if t.append {
		return "append_file"
	}
	return "write_file"
}

func (t *WriteTool) Description() string {
	if t.append {
		return "Appends content to the end of a file, creating it if needed."
	}
	return "Writes content to a file, replacing it entirely and creating parent directories."
}

func (t *WriteTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "Path of the file to write",
				},
				"content": {
					Type:        genai.TypeString,
					Description: "Text to write",
				},
			},
			Required: []string{"file_path", "content"},
		},
	}
}

func (t *WriteTool) Validate(args map[string]any) error {
	if err := requirePath(args, "file_path"); err != nil {
		return err
	}
	if _, ok := GetString(args, "content"); !ok {
		return NewValidationError("content", "is required")
	}
	return nil
}

func (t *WriteTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	raw, _ := GetString(args, "file_path")
	content, _ := GetString(args, "content")
	p := resolve(raw, t.workDir)

	var err error
	verb := "Wrote"
	if t.append {
		verb = "Appended"
		err = t.ops.AppendFile(ctx, p, content, t.workDir)
	} else {
		err = t.ops.WriteFile(ctx, p, content, t.workDir)
	}
	if err != nil {
		return NewErrorResult(fmt.Sprintf("%s %s: %v", t.Name(), p, err))
	}
	t.invalidate()
	return NewSuccessResultWithData(fmt.Sprintf("%s %d bytes to %s", verb, len(content), p), map[string]any{"path": p})
}

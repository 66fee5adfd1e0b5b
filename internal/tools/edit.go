package tools

import (
	"context"
	"strings"

	"google.golang.org/genai"
)

// EditTool applies a verified search/replace edit.
type EditTool struct{ *fileTools }

func (t *EditTool) Name() string { return "edit_file" }

func (t *EditTool) Description() string {
	return "Replaces every occurrence of search text in a file and verifies the result. " +
		"On failure the error explains what to change before retrying."
}

func (t *EditTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_path": {
					Type:        genai.TypeString,
					Description: "Path of the file to edit",
				},
				"search": {
					Type:        genai.TypeString,
					Description: "Exact text to find",
				},
				"replace": {
					Type:        genai.TypeString,
					Description: "Replacement text",
				},
			},
			Required: []string{"file_path", "search", "replace"},
		},
	}
}

func (t *EditTool) Validate(args map[string]any) error {
	if err := requirePath(args, "file_path"); err != nil {
		return err
	}
	if s, ok := GetString(args, "search"); !ok || s == "" {
		return NewValidationError("search", "is required")
	}
	if _, ok := GetString(args, "replace"); !ok {
		return NewValidationError("replace", "is required")
	}
	return nil
}

func (t *EditTool) Execute(ctx context.Context, args map[string]any) ToolResult {
	raw, _ := GetString(args, "file_path")
	search, _ := GetString(args, "search")
	replace, _ := GetString(args, "replace")

	res := t.verifier.Edit(ctx, raw, search, replace, t.workDir)
	data := map[string]any{"path": res.Path}
	if !res.Success {
		msg := res.Message
		if out := strings.TrimSpace(res.Output); out != "" {
			msg += "\n" + out
		}
		return ToolResult{Error: msg, Data: data}
	}
	t.invalidate()
	content := res.Message
	if res.Diff != "" {
		data["diff"] = res.Diff
		content += "\n" + res.Diff
	}
	return NewSuccessResultWithData(content, data)
}

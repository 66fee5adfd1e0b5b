package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"google.golang.org/genai"

	"wavepulse/internal/cache"
	"wavepulse/internal/fileedit"
	"wavepulse/internal/logging"
	"wavepulse/internal/remote"
)

// Registry manages the collection of available tools.
type Registry struct {
	tools map[string]Tool
	mu    sync.RWMutex
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	list := r.List()
	names := make([]string, len(list))
	for i, t := range list {
		names[i] = t.Name()
	}
	return names
}

// Declarations returns all tool declarations sorted by name.
func (r *Registry) Declarations() []*genai.FunctionDeclaration {
	list := r.List()
	declarations := make([]*genai.FunctionDeclaration, len(list))
	for i, tool := range list {
		declarations[i] = tool.Declaration()
	}
	return declarations
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// MustRegister adds a tool to the registry and logs a warning on error.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		logging.Warn("failed to register tool", "tool", tool.Name(), "error", err)
	}
}

// Execute validates args and runs the named tool. Unknown tools, invalid
// arguments and panics all come back as failed results.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (result ToolResult) {
	tool, ok := r.Get(name)
	if !ok {
		return NewErrorResult(fmt.Sprintf("unknown tool %q (available: %s)", name, strings.Join(r.Names(), ", ")))
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := tool.Validate(args); err != nil {
		return NewErrorResult(fmt.Sprintf("invalid arguments for %s: %v", name, err))
	}

	defer func() {
		if p := recover(); p != nil {
			logging.Error("tool panicked", "tool", name, "panic", p, "stack", string(debug.Stack()))
			result = NewErrorResult(fmt.Sprintf("%s failed unexpectedly: %v", name, p))
		}
	}()
	logging.Debug("executing tool", "tool", name)
	return tool.Execute(ctx, args)
}

// Describe renders every declaration as plain text for prompt-driven tool use.
func (r *Registry) Describe() string {
	var b strings.Builder
	for _, d := range r.Declarations() {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
		if d.Parameters == nil {
			continue
		}
		required := map[string]bool{}
		for _, name := range d.Parameters.Required {
			required[name] = true
		}
		names := make([]string, 0, len(d.Parameters.Properties))
		for name := range d.Parameters.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			p := d.Parameters.Properties[name]
			flag := "optional"
			if required[name] {
				flag = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s): %s\n", name, strings.ToLower(string(p.Type)), flag, p.Description)
		}
	}
	return b.String()
}

// DefaultRegistry registers the file tools over ops. Writes invalidate lookups.
func DefaultRegistry(ops *remote.FileOps, verifier *fileedit.Verifier, lookups *cache.LookupCache, workDir string) *Registry {
	fs := &fileTools{ops: ops, verifier: verifier, lookups: lookups, workDir: workDir}
	r := NewRegistry()
	r.MustRegister(&ReadTool{fs})
	r.MustRegister(&WriteTool{fileTools: fs})
	r.MustRegister(&WriteTool{fileTools: fs, append: true})
	r.MustRegister(&EditTool{fs})
	r.MustRegister(&SearchTool{fs})
	r.MustRegister(&ListDirTool{fs})
	r.MustRegister(&FindTool{fs})
	return r
}

type fileTools struct {
	ops      *remote.FileOps
	verifier *fileedit.Verifier
	lookups  *cache.LookupCache
	workDir  string
}

func (f *fileTools) invalidate() {
	f.lookups.Invalidate()
}

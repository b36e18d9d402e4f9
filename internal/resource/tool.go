package resource

import (
	"context"
	"sort"
)

// ExecuteFunc is the signature of a bound tool callable.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a callable published into the shared execution namespace while its
// owning Space is current.
type Tool struct {
	// Name is the bare name the tool is callable by (read, write, edit...).
	Name string

	// Description explains the tool for orientation text.
	Description string

	// Execute runs the tool.
	Execute ExecuteFunc
}

// ToolMap maps tool name to bound callable for one Space.
type ToolMap map[string]*Tool

// Names returns the tool names in sorted order.
func (m ToolMap) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Arg extracts a string argument, defaulting to "" when absent.
func Arg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

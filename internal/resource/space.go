// Package resource defines the resourcespace contract shared by every
// provider: the five operation verbs, the navigation surface, the tool map
// published into the execution namespace, and the error taxonomy.
package resource

import "context"

// Space is the common contract implemented by the source provider and by
// every leaf subresource. A Space owns no external state beyond its root
// scope; all addressing in and out of a Space is semantic, never physical.
type Space interface {
	// Name is the identifier the Space is navigated by.
	Name() string

	// Describe returns the one-line purpose shown in orientation text.
	Describe() string

	// Enter returns the entry display rendered when the Space becomes
	// current.
	Enter(ctx context.Context) (string, error)

	// Read returns an entry summary for an empty target, a docstring-plus-
	// counts summary for a container target, and the exact source span for
	// a leaf target.
	Read(ctx context.Context, target string) (string, error)

	// Write creates new backing content at target.
	Write(ctx context.Context, target, content string) (string, error)

	// Edit replaces the content addressed by target.
	Edit(ctx context.Context, target, content string) (string, error)

	// Glob matches semantic names against pattern.
	Glob(ctx context.Context, pattern string) (string, error)

	// Grep searches backing content, reporting address:line: content.
	Grep(ctx context.Context, pattern, scope string) (string, error)

	// Children returns child Spaces by name; empty for leaves.
	Children() map[string]Space

	// Tools returns the bound callables the Registry publishes while this
	// Space is current.
	Tools() ToolMap
}

// Resolver is implemented by Spaces whose children are discovered on demand
// rather than statically registered, such as the source provider resolving
// module addresses into navigable module scopes.
type Resolver interface {
	// Resolve returns the child Space for name, or an addressing error
	// listing valid siblings.
	Resolve(name string) (Space, error)
}

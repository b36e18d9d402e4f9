// Package registry owns the navigation stack over registered resourcespaces
// and publishes the current resource's tools into the shared execution
// namespace. Stack mutation and tool publication form one critical section,
// so concurrent conversations sharing the process never observe a stack that
// disagrees with the published tools.
package registry

import (
	"context"
	"strings"
	"sync"

	"codeatlas/internal/address"
	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// HomeName is the breadcrumb label of the root.
const HomeName = "home"

// Registry is the single navigation context for one process. Constructed
// once, torn down with the process.
type Registry struct {
	mu    sync.Mutex
	roots map[string]resource.Space
	order []string

	stack []resource.Space

	// namespace holds the currently published tools. Guarded by mu so a
	// navigation from one caller cannot interleave with a lookup from
	// another.
	namespace map[string]*resource.Tool

	// published remembers what putTools installed last, so the next
	// publication can remove stale names no matter which Space they
	// belonged to.
	published []string
}

// New creates an empty Registry with only the root published.
func New() *Registry {
	r := &Registry{
		roots:     make(map[string]resource.Space),
		namespace: make(map[string]*resource.Tool),
	}
	r.mu.Lock()
	r.putTools(r.homeTools())
	r.mu.Unlock()
	return r
}

// Register adds a top-level resourcespace. Registration order is preserved
// in orientation text.
func (r *Registry) Register(space resource.Space) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := space.Name()
	if _, exists := r.roots[name]; !exists {
		r.order = append(r.order, name)
	}
	r.roots[name] = space
	logging.RegistryDebug("registered resourcespace %s", name)
	return &Handle{registry: r, addr: address.MustParse(name)}
}

// Navigate resolves addr, replaces the stack from the first point of
// divergence, publishes the new current resource's tools, and returns its
// entry display.
func (r *Registry) Navigate(ctx context.Context, addr string) (string, error) {
	parsed, err := address.Parse(addr)
	if err != nil {
		return "", resource.Addressf("%v", err)
	}
	if parsed.IsEmpty() {
		return r.Home(ctx)
	}

	r.mu.Lock()
	chain, err := r.resolveChainLocked(parsed)
	if err != nil {
		r.mu.Unlock()
		return "", err
	}

	// Longest common prefix by identity: sibling navigation replaces the
	// tail, it never appends blindly.
	common := 0
	for common < len(chain) && common < len(r.stack) && chain[common] == r.stack[common] {
		common++
	}
	r.stack = append(r.stack[:common], chain[common:]...)
	current := r.stack[len(r.stack)-1]
	r.putTools(current.Tools())
	crumb := r.breadcrumbLocked()
	r.mu.Unlock()

	logging.RegistryDebug("navigated to %s (stack depth %d)", addr, len(chain))
	display, err := current.Enter(ctx)
	if err != nil {
		return crumb, err
	}
	return crumb + "\n" + display, nil
}

// resolveChainLocked walks addr into a chain of Spaces. The first segment
// resolves against the current resource's children before the roots, so
// relative navigation works from anywhere.
func (r *Registry) resolveChainLocked(addr address.Address) ([]resource.Space, error) {
	segs := addr.Segments()

	var chain []resource.Space
	head := segs[0]

	if len(r.stack) > 0 {
		if child, err := childOf(r.stack[len(r.stack)-1], head); err == nil {
			chain = append(chain, r.stack...)
			chain = append(chain, child)
		}
	}
	if chain == nil {
		if root, ok := r.roots[head]; ok {
			chain = []resource.Space{root}
		}
	}
	if chain == nil {
		return nil, resource.NoSuchResource(head, r.callableNamesLocked())
	}

	for _, seg := range segs[1:] {
		child, err := childOf(chain[len(chain)-1], seg)
		if err != nil {
			return nil, err
		}
		chain = append(chain, child)
	}
	return chain, nil
}

// childOf resolves one child, preferring the static child map and falling
// back to dynamic resolution.
func childOf(parent resource.Space, name string) (resource.Space, error) {
	if child, ok := parent.Children()[name]; ok {
		return child, nil
	}
	if res, ok := parent.(resource.Resolver); ok {
		return res.Resolve(name)
	}
	children := parent.Children()
	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	return nil, resource.NoSuchResource(name, names)
}

// Back pops one level and republishes the parent's tools.
func (r *Registry) Back(ctx context.Context) (string, error) {
	r.mu.Lock()
	if len(r.stack) == 0 {
		r.mu.Unlock()
		return "", resource.Addressf("already at %s", HomeName)
	}
	r.stack = r.stack[:len(r.stack)-1]

	if len(r.stack) == 0 {
		r.putTools(r.homeTools())
		r.mu.Unlock()
		return r.orientation(), nil
	}
	current := r.stack[len(r.stack)-1]
	r.putTools(current.Tools())
	crumb := r.breadcrumbLocked()
	r.mu.Unlock()

	display, err := current.Enter(ctx)
	if err != nil {
		return crumb, err
	}
	return crumb + "\n" + display, nil
}

// Home clears the stack, publishes the root's own minimal tool set, and
// returns freshly built orientation text.
func (r *Registry) Home(ctx context.Context) (string, error) {
	r.mu.Lock()
	r.stack = nil
	r.putTools(r.homeTools())
	r.mu.Unlock()
	return r.orientation(), nil
}

// putTools replaces the published tool set. It first removes every name it
// previously installed plus every protocol verb, then installs the new map,
// so no stale tool stays reachable on any path. Callers hold r.mu.
func (r *Registry) putTools(tools resource.ToolMap) {
	for _, name := range r.published {
		delete(r.namespace, name)
	}
	for _, verb := range []string{"read", "write", "edit", "glob", "grep", "undo"} {
		delete(r.namespace, verb)
	}
	r.published = r.published[:0]
	for name, tool := range tools {
		r.namespace[name] = tool
		r.published = append(r.published, name)
	}
}

// Invoke calls a published tool by name.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.Lock()
	tool, ok := r.namespace[name]
	r.mu.Unlock()
	if !ok {
		return "", r.capabilityError(name)
	}
	return tool.Execute(ctx, args)
}

// ToolNames returns the currently published tool names.
func (r *Registry) ToolNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := resource.ToolMap{}
	for name, tool := range r.namespace {
		m[name] = tool
	}
	return m.Names()
}

// Breadcrumb renders the current path, starting at home.
func (r *Registry) Breadcrumb() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.breadcrumbLocked()
}

func (r *Registry) breadcrumbLocked() string {
	parts := []string{HomeName}
	for _, s := range r.stack {
		parts = append(parts, s.Name())
	}
	return strings.Join(parts, " > ")
}

// capabilityError names a provider that does support the missing verb.
func (r *Registry) capabilityError(verb string) error {
	r.mu.Lock()
	here := HomeName
	if len(r.stack) > 0 {
		here = r.stack[len(r.stack)-1].Name()
	}
	supporter := ""
	for _, name := range r.order {
		if _, ok := r.roots[name].Tools()[verb]; ok {
			supporter = name
			break
		}
	}
	r.mu.Unlock()
	if supporter == "" {
		return resource.Addressf("no tool named %s is available here", verb)
	}
	return resource.Unsupported(verb, here, supporter)
}

// callableNamesLocked lists what can be called from the current position:
// children of the current resource plus all registered roots.
func (r *Registry) callableNamesLocked() []string {
	var names []string
	if len(r.stack) > 0 {
		for name := range r.stack[len(r.stack)-1].Children() {
			names = append(names, name)
		}
	}
	names = append(names, r.order...)
	return names
}

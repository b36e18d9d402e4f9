// Package source implements the source-tree resourcespace: dotted semantic
// addressing over a live Python tree, three read granularities, syntax-tree
// edits with reload-or-rollback, and semantic glob/grep.
package source

import (
	"context"
	"sync"

	"codeatlas/internal/address"
	"codeatlas/internal/journal"
	"codeatlas/internal/logging"
	"codeatlas/internal/reload"
	"codeatlas/internal/resource"
	"codeatlas/internal/syntax"
	"codeatlas/internal/vcs"
)

// Provider is the source resourcespace rooted at one directory. The root is
// physical; everything the Provider emits is semantic.
type Provider struct {
	name string
	desc string
	root string

	ed     *syntax.Editor
	coord  *reload.Coordinator
	undoer *vcs.Undoer
	cache  *fileCache

	mu       sync.Mutex
	children map[string]resource.Space
	scopes   map[string]*scopeSpace // module/package spaces by address, identity-stable
}

// NewProvider creates a source provider over root. undoer may be nil when
// the tree is not under version control.
func NewProvider(name, desc, root string, ed *syntax.Editor, coord *reload.Coordinator, undoer *vcs.Undoer) *Provider {
	return &Provider{
		name:     name,
		desc:     desc,
		root:     root,
		ed:       ed,
		coord:    coord,
		undoer:   undoer,
		cache:    newFileCache(),
		children: make(map[string]resource.Space),
		scopes:   make(map[string]*scopeSpace),
	}
}

// Attach registers a leaf subresource as a navigable child.
func (p *Provider) Attach(child resource.Space) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.children[child.Name()] = child
}

// Close releases the file watcher.
func (p *Provider) Close() { p.cache.close() }

func (p *Provider) Name() string     { return p.name }
func (p *Provider) Describe() string { return p.desc }

func (p *Provider) Enter(ctx context.Context) (string, error) {
	return p.Read(ctx, "")
}

func (p *Provider) Children() map[string]resource.Space {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]resource.Space, len(p.children))
	for k, v := range p.children {
		out[k] = v
	}
	return out
}

// Resolve returns the child Space for name: a registered subresource, or a
// top-level package/module scope discovered on demand.
func (p *Provider) Resolve(name string) (resource.Space, error) {
	p.mu.Lock()
	if child, ok := p.children[name]; ok {
		p.mu.Unlock()
		return child, nil
	}
	p.mu.Unlock()
	return p.scopeFor(name)
}

// scopeFor returns the identity-stable navigable scope for a dotted address
// under this provider.
func (p *Provider) scopeFor(addr string) (resource.Space, error) {
	parsed, err := address.Parse(addr)
	if err != nil {
		return nil, resource.Addressf("%v", err)
	}
	if parsed.IsEmpty() {
		return nil, resource.Addressf("empty address")
	}

	u, err := p.resolveUnit(parsed)
	if err != nil {
		return nil, err
	}
	if len(u.symbols) > 0 {
		if u.isPackage {
			return nil, resource.NoSuchResource(addr, p.siblingNames(u.module))
		}
		return nil, resource.Addressf("%s addresses a symbol inside %s; navigation stops at modules", addr, u.module.String())
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.scopes[u.module.String()]; ok {
		return s, nil
	}
	s := &scopeSpace{provider: p, addr: u.module, isPackage: u.isPackage}
	p.scopes[u.module.String()] = s
	return s, nil
}

func (p *Provider) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "Read a package, module or symbol by dotted address; empty for the tree overview",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Read(ctx, resource.Arg(args, "target"))
			},
		},
		"write": {
			Name:        "write",
			Description: "Create a brand-new module from raw source",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Write(ctx, resource.Arg(args, "target"), resource.Arg(args, "content"))
			},
		},
		"edit": {
			Name:        "edit",
			Description: "Replace one symbol (or a whole module) with new source",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Edit(ctx, resource.Arg(args, "target"), resource.Arg(args, "new_content"))
			},
		},
		"glob": {
			Name:        "glob",
			Description: "Match dotted module names against a pattern like pkg.*",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Glob(ctx, resource.Arg(args, "pattern"))
			},
		},
		"grep": {
			Name:        "grep",
			Description: "Regex-search module contents, reporting address:line: content",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Grep(ctx, resource.Arg(args, "pattern"), resource.Arg(args, "scope"))
			},
		},
		"undo": {
			Name:        "undo",
			Description: "Revert all uncommitted changes to the last checkpoint",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return p.Undo(ctx)
			},
		},
	}
}

// Undo reverts every uncommitted change under the root. Coarse by design.
func (p *Provider) Undo(ctx context.Context) (string, error) {
	if p.undoer == nil {
		return "", resource.Undof("no checkpoint available: %s is not under version control", p.name)
	}
	msg, err := p.undoer.Revert(ctx)
	if err != nil {
		p.coord.RecordUndo(ctx, journal.OutcomeFailed, err.Error())
		return "", err
	}
	p.cache.invalidateAll()
	p.coord.RecordUndo(ctx, journal.OutcomeCommitted, msg)
	logging.Source("undo: %s", msg)
	return msg, nil
}

// scopeSpace is a navigable view of one package or module. It shares the
// provider's machinery with its address as an implicit prefix; in
// particular a read with an empty target inside a plain module returns the
// module's full source rather than a summary.
type scopeSpace struct {
	provider  *Provider
	addr      address.Address
	isPackage bool
}

func (s *scopeSpace) Name() string { return s.addr.Segments()[s.addr.Len()-1] }

func (s *scopeSpace) Describe() string {
	kind := "module"
	if s.isPackage {
		kind = "package"
	}
	return "source " + kind + " " + s.addr.String()
}

func (s *scopeSpace) Enter(ctx context.Context) (string, error) { return s.Read(ctx, "") }

func (s *scopeSpace) combined(target string) (string, error) {
	if target == "" {
		return s.addr.String(), nil
	}
	if _, err := address.Parse(target); err != nil {
		return "", resource.Addressf("%v", err)
	}
	return s.addr.String() + "." + target, nil
}

func (s *scopeSpace) Read(ctx context.Context, target string) (string, error) {
	if target == "" && !s.isPackage {
		return s.provider.readModuleSource(ctx, s.addr)
	}
	addr, err := s.combined(target)
	if err != nil {
		return "", err
	}
	return s.provider.Read(ctx, addr)
}

func (s *scopeSpace) Write(ctx context.Context, target, content string) (string, error) {
	addr, err := s.combined(target)
	if err != nil {
		return "", err
	}
	return s.provider.Write(ctx, addr, content)
}

func (s *scopeSpace) Edit(ctx context.Context, target, content string) (string, error) {
	addr, err := s.combined(target)
	if err != nil {
		return "", err
	}
	return s.provider.Edit(ctx, addr, content)
}

func (s *scopeSpace) Glob(ctx context.Context, pattern string) (string, error) {
	return s.provider.globUnder(ctx, s.addr, pattern)
}

func (s *scopeSpace) Grep(ctx context.Context, pattern, scope string) (string, error) {
	if scope == "" {
		scope = s.addr.String()
	} else {
		scope = s.addr.String() + "." + scope
	}
	return s.provider.Grep(ctx, pattern, scope)
}

func (s *scopeSpace) Children() map[string]resource.Space { return nil }

// Resolve lets navigation descend into sub-packages and modules.
func (s *scopeSpace) Resolve(name string) (resource.Space, error) {
	if !s.isPackage {
		return nil, resource.Addressf("%s is a module; it has no navigable children", s.addr.String())
	}
	child, err := s.addr.Child(name)
	if err != nil {
		return nil, resource.Addressf("%v", err)
	}
	return s.provider.scopeFor(child.String())
}

func (s *scopeSpace) Tools() resource.ToolMap {
	tools := resource.ToolMap{}
	for name, t := range s.provider.Tools() {
		if name == "undo" {
			continue // undo stays at the provider root
		}
		tools[name] = t
	}
	// Rebind the verbs so targets resolve relative to this scope.
	sp := s
	tools["read"] = &resource.Tool{Name: "read", Description: "Read this scope, or a symbol inside it",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return sp.Read(ctx, resource.Arg(args, "target"))
		}}
	tools["write"] = &resource.Tool{Name: "write", Description: "Create a new module inside this scope",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return sp.Write(ctx, resource.Arg(args, "target"), resource.Arg(args, "content"))
		}}
	tools["edit"] = &resource.Tool{Name: "edit", Description: "Replace a symbol inside this scope",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return sp.Edit(ctx, resource.Arg(args, "target"), resource.Arg(args, "new_content"))
		}}
	tools["glob"] = &resource.Tool{Name: "glob", Description: "Match dotted names under this scope",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return sp.Glob(ctx, resource.Arg(args, "pattern"))
		}}
	tools["grep"] = &resource.Tool{Name: "grep", Description: "Regex-search under this scope",
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			return sp.Grep(ctx, resource.Arg(args, "pattern"), resource.Arg(args, "scope"))
		}}
	return tools
}

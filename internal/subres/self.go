package subres

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"codeatlas/internal/logging"
	"codeatlas/internal/reload"
	"codeatlas/internal/resource"
)

// Self is the self-introspection subresource: the hosted Go tool tree the
// process itself runs, editable with the same commit-or-rollback discipline
// as the managed source. Modules are whole .go files addressed by dotted
// path; an edit commits only if the edited file still evaluates in the
// interpreter.
type Self struct {
	root  string
	coord *reload.Coordinator
}

// NewSelf creates the self subresource over the hosted tool tree at root.
// The coordinator must be backed by an interpreter reloader for the same
// root.
func NewSelf(root string, coord *reload.Coordinator) *Self {
	return &Self{root: root, coord: coord}
}

func (s *Self) Name() string     { return "self" }
func (s *Self) Describe() string { return "the hosted tool modules this process runs" }

func (s *Self) Enter(ctx context.Context) (string, error) { return s.Read(ctx, "") }

// modules lists every hosted tool module as a dotted address.
func (s *Self) modules() ([]string, error) {
	var mods []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".go") {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		mod := strings.TrimSuffix(filepath.ToSlash(rel), ".go")
		mods = append(mods, strings.ReplaceAll(mod, "/", "."))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("self: list tool modules: %w", err)
	}
	sort.Strings(mods)
	return mods, nil
}

// pathFor maps a dotted module address to its backing file, rejecting
// anything that escapes the tool tree.
func (s *Self) pathFor(target string) (string, error) {
	if target == "" || strings.ContainsAny(target, "/\\") || strings.Contains(target, "..") {
		return "", resource.Addressf("unsafe tool module address: %q", target)
	}
	return filepath.Join(s.root, filepath.FromSlash(strings.ReplaceAll(target, ".", "/"))+".go"), nil
}

// Read lists the tool modules, or returns one module's full source.
func (s *Self) Read(ctx context.Context, target string) (string, error) {
	if target == "" {
		mods, err := s.modules()
		if err != nil {
			return "", err
		}
		if len(mods) == 0 {
			return "No hosted tool modules.", nil
		}
		var b strings.Builder
		fmt.Fprintf(&b, "%d hosted tool modules:\n", len(mods))
		for _, m := range mods {
			fmt.Fprintf(&b, "  %s()\n", m)
		}
		b.WriteString("Edits here take effect immediately; a module that fails to evaluate is rolled back.")
		return resource.CheckBudget(b.String())
	}

	path, err := s.pathFor(target)
	if err != nil {
		return "", err
	}
	src, err := os.ReadFile(path)
	if err != nil {
		mods, merr := s.modules()
		if merr != nil {
			mods = nil
		}
		return "", resource.NoSuchResource(target, mods)
	}
	return resource.CheckBudget(string(src))
}

func (s *Self) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", s.Name(), "source")
}

// Edit replaces one hosted tool module wholesale. The coordinator snapshots
// the previous content, writes, re-evaluates, and rolls back on failure, so
// the running process never keeps a tool it cannot evaluate.
func (s *Self) Edit(ctx context.Context, target, content string) (string, error) {
	path, err := s.pathFor(target)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); err != nil {
		mods, merr := s.modules()
		if merr != nil {
			mods = nil
		}
		return "", resource.NoSuchResource(target, mods)
	}

	if err := s.coord.Apply(ctx, reload.Request{
		Path:   path,
		Unit:   target,
		Next:   []byte(content),
		Action: "edit",
	}); err != nil {
		return "", err
	}
	logging.Subres("self: edited tool module %s", target)
	return fmt.Sprintf("Edited %s(); tool re-evaluated and live.", target), nil
}

func (s *Self) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", s.Name(), "source")
}

func (s *Self) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", s.Name(), "source")
}

func (s *Self) Children() map[string]resource.Space { return nil }

func (s *Self) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "List hosted tool modules, or read one",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return s.Read(ctx, resource.Arg(args, "target"))
			},
		},
		"edit": {
			Name:        "edit",
			Description: "Replace a hosted tool module; rolls back if it fails to evaluate",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return s.Edit(ctx, resource.Arg(args, "target"), resource.Arg(args, "new_content"))
			},
		},
	}
}

package subres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Deps exposes the manifest's dependency list as a resourcespace with
// add/remove/install tools. Install shells out to pip.
type Deps struct {
	store          *manifestStore
	workspace      string
	pipBin         string
	installTimeout time.Duration
}

// NewDeps creates the deps subresource for one workspace.
func NewDeps(workspace, pipBin string, installTimeout time.Duration) *Deps {
	return &Deps{
		store:          newManifestStore(workspace),
		workspace:      workspace,
		pipBin:         pipBin,
		installTimeout: installTimeout,
	}
}

func (d *Deps) Name() string     { return "deps" }
func (d *Deps) Describe() string { return "project dependencies from " + ManifestName }

func (d *Deps) Enter(ctx context.Context) (string, error) { return d.Read(ctx, "") }

// Read lists the declared dependencies, or confirms one by name.
func (d *Deps) Read(ctx context.Context, target string) (string, error) {
	var out string
	err := d.store.view(func(m *Manifest) error {
		if target == "" {
			if len(m.Dependencies) == 0 {
				out = "No dependencies declared."
				return nil
			}
			names := append([]string(nil), m.Dependencies...)
			sort.Strings(names)
			out = fmt.Sprintf("%d dependencies:\n  %s", len(names), strings.Join(names, "\n  "))
			return nil
		}
		for _, dep := range m.Dependencies {
			if dep == target {
				out = target + " is declared."
				return nil
			}
		}
		return resource.NoSuchResource(target, nil)
	})
	if err != nil {
		return "", err
	}
	return resource.CheckBudget(out)
}

func (d *Deps) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", d.Name(), "source")
}

func (d *Deps) Edit(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("edit", d.Name(), "source")
}

func (d *Deps) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", d.Name(), "source")
}

func (d *Deps) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", d.Name(), "source")
}

func (d *Deps) Children() map[string]resource.Space { return nil }

func (d *Deps) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "List declared dependencies",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return d.Read(ctx, resource.Arg(args, "target"))
			},
		},
		"add": {
			Name:        "add",
			Description: "Declare a dependency in the manifest",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return d.Add(ctx, resource.Arg(args, "name"))
			},
		},
		"remove": {
			Name:        "remove",
			Description: "Remove a declared dependency",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return d.Remove(ctx, resource.Arg(args, "name"))
			},
		},
		"install": {
			Name:        "install",
			Description: "Install all declared dependencies with pip",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return d.Install(ctx)
			},
		},
	}
}

// Add declares name in the manifest. Re-adding an existing dependency is a
// no-op, not an error.
func (d *Deps) Add(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", resource.Validationf("add needs a dependency name")
	}
	added := false
	err := d.store.update(func(m *Manifest) error {
		for _, dep := range m.Dependencies {
			if dep == name {
				return nil
			}
		}
		m.Dependencies = append(m.Dependencies, name)
		added = true
		return nil
	})
	if err != nil {
		return "", err
	}
	if !added {
		return name + " is already declared.", nil
	}
	logging.Subres("deps: added %s", name)
	return "Added " + name + " to " + ManifestName + ".", nil
}

// Remove drops name from the manifest; the remaining dependencies are
// offered when it is not declared.
func (d *Deps) Remove(ctx context.Context, name string) (string, error) {
	err := d.store.update(func(m *Manifest) error {
		for i, dep := range m.Dependencies {
			if dep == name {
				m.Dependencies = append(m.Dependencies[:i], m.Dependencies[i+1:]...)
				return nil
			}
		}
		return resource.NoSuchResource(name, m.Dependencies)
	})
	if err != nil {
		return "", err
	}
	logging.Subres("deps: removed %s", name)
	return "Removed " + name + " from " + ManifestName + ".", nil
}

// Install runs pip over the declared dependency list.
func (d *Deps) Install(ctx context.Context) (string, error) {
	var deps []string
	if err := d.store.view(func(m *Manifest) error {
		deps = append([]string(nil), m.Dependencies...)
		return nil
	}); err != nil {
		return "", err
	}
	if len(deps) == 0 {
		return "No dependencies to install.", nil
	}

	args := append([]string{"install"}, deps...)
	res, err := run(ctx, d.workspace, d.pipBin, d.installTimeout, args...)
	if err != nil {
		return "", resource.Reloadf("dependency install did not finish: %v", err)
	}
	if res.exitCode != 0 {
		return "", resource.Reloadf("pip install failed (exit %d):\n%s", res.exitCode, tail(res.output, 10))
	}
	logging.Subres("deps: installed %d dependencies in %v", len(deps), res.duration)
	return fmt.Sprintf("Installed %d dependencies in %s.", len(deps), res.duration.Round(time.Millisecond)), nil
}

// tail returns the last n lines of s.
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

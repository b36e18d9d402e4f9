package subres

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Tests exposes the workspace test suite. Test modules are any test_*.py
// under the root; run invokes pytest and publishes the outcome as a
// navigable results child rather than dumping raw output.
type Tests struct {
	root        string
	pytestBin   string
	testTimeout time.Duration

	results *results
}

// NewTests creates the tests subresource over root.
func NewTests(root, pytestBin string, testTimeout time.Duration) *Tests {
	t := &Tests{root: root, pytestBin: pytestBin, testTimeout: testTimeout}
	t.results = &results{}
	return t
}

func (t *Tests) Name() string     { return "tests" }
func (t *Tests) Describe() string { return "test modules under the workspace" }

func (t *Tests) Enter(ctx context.Context) (string, error) { return t.Read(ctx, "") }

// Read lists the discovered test modules as dotted addresses.
func (t *Tests) Read(ctx context.Context, target string) (string, error) {
	mods, err := t.discover()
	if err != nil {
		return "", err
	}
	if target != "" {
		for _, m := range mods {
			if m == target {
				return target + " is a test module.", nil
			}
		}
		return "", resource.NoSuchResource(target, mods)
	}
	if len(mods) == 0 {
		return "No test modules found.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d test modules:\n", len(mods))
	for _, m := range mods {
		fmt.Fprintf(&b, "  %s()\n", m)
	}
	b.WriteString("Call run() to execute them; results() holds the last outcome.")
	return resource.CheckBudget(b.String())
}

// discover walks the tree for test_*.py, skipping dot directories, and
// returns dotted module addresses.
func (t *Tests) discover() ([]string, error) {
	var mods []string
	err := filepath.WalkDir(t.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != t.root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasPrefix(name, "test_") || !strings.HasSuffix(name, ".py") {
			return nil
		}
		rel, err := filepath.Rel(t.root, path)
		if err != nil {
			return err
		}
		mod := strings.TrimSuffix(filepath.ToSlash(rel), ".py")
		mods = append(mods, strings.ReplaceAll(mod, "/", "."))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tests: discover: %w", err)
	}
	sort.Strings(mods)
	return mods, nil
}

func (t *Tests) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", t.Name(), "source")
}

func (t *Tests) Edit(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("edit", t.Name(), "source")
}

func (t *Tests) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", t.Name(), "source")
}

func (t *Tests) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", t.Name(), "source")
}

func (t *Tests) Children() map[string]resource.Space {
	return map[string]resource.Space{"results": t.results}
}

func (t *Tests) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "List the discovered test modules",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return t.Read(ctx, resource.Arg(args, "target"))
			},
		},
		"run": {
			Name:        "run",
			Description: "Run the test suite with pytest; optional target selects one module",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return t.Run(ctx, resource.Arg(args, "target"))
			},
		},
	}
}

// Run executes pytest over the suite, or one module when target is set, and
// records the outcome in the results child.
func (t *Tests) Run(ctx context.Context, target string) (string, error) {
	args := []string{"-q"}
	if target != "" {
		mods, err := t.discover()
		if err != nil {
			return "", err
		}
		found := false
		for _, m := range mods {
			if m == target {
				found = true
				break
			}
		}
		if !found {
			return "", resource.NoSuchResource(target, mods)
		}
		args = append(args, filepath.FromSlash(strings.ReplaceAll(target, ".", "/"))+".py")
	}

	res, err := run(ctx, t.root, t.pytestBin, t.testTimeout, args...)
	if err != nil {
		return "", resource.Reloadf("test run did not finish: %v", err)
	}

	t.results.record(target, res)
	logging.Subres("tests: run target=%q exit=%d in %v", target, res.exitCode, res.duration)

	if res.exitCode != 0 {
		return fmt.Sprintf("Tests FAILED (exit %d) in %s. Read results() for detail.",
			res.exitCode, res.duration.Round(time.Millisecond)), nil
	}
	return fmt.Sprintf("Tests passed in %s. Read results() for detail.",
		res.duration.Round(time.Millisecond)), nil
}

// results is the navigable record of the last test run.
type results struct {
	mu     sync.Mutex
	target string
	res    *runResult
	when   time.Time
}

func (r *results) record(target string, res *runResult) {
	r.mu.Lock()
	r.target = target
	r.res = res
	r.when = time.Now()
	r.mu.Unlock()
}

func (r *results) Name() string     { return "results" }
func (r *results) Describe() string { return "outcome of the last test run" }

func (r *results) Enter(ctx context.Context) (string, error) { return r.Read(ctx, "") }

func (r *results) Read(ctx context.Context, target string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.res == nil {
		return "No test run recorded yet. Call run() on tests first.", nil
	}
	scope := "whole suite"
	if r.target != "" {
		scope = r.target
	}
	verdict := "passed"
	if r.res.exitCode != 0 {
		verdict = fmt.Sprintf("failed (exit %d)", r.res.exitCode)
	}
	head := fmt.Sprintf("%s %s in %s at %s\n",
		scope, verdict, r.res.duration.Round(time.Millisecond), r.when.Format(time.RFC3339))
	return resource.CheckBudget(head + strings.TrimRight(r.res.output, "\n"))
}

func (r *results) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", r.Name(), "source")
}

func (r *results) Edit(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("edit", r.Name(), "source")
}

func (r *results) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", r.Name(), "source")
}

func (r *results) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", r.Name(), "source")
}

func (r *results) Children() map[string]resource.Space { return nil }

func (r *results) Tools() resource.ToolMap {
	return resource.ToolMap{
		"read": {
			Name:        "read",
			Description: "Show the last test run outcome",
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return r.Read(ctx, resource.Arg(args, "target"))
			},
		},
	}
}

package subres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"codeatlas/internal/reload"
	"codeatlas/internal/resource"
)

func TestDepsAddRemoveRoundTrip(t *testing.T) {
	ws := t.TempDir()
	d := NewDeps(ws, "pip3", time.Minute)
	ctx := context.Background()

	out, err := d.Read(ctx, "")
	if err != nil {
		t.Fatalf("read empty: %v", err)
	}
	if out != "No dependencies declared." {
		t.Fatalf("read empty = %q", out)
	}

	if _, err := d.Add(ctx, "requests"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := d.Add(ctx, "pyyaml"); err != nil {
		t.Fatalf("add: %v", err)
	}

	// Re-adding is a no-op.
	out, err = d.Add(ctx, "requests")
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if !strings.Contains(out, "already declared") {
		t.Fatalf("re-add = %q", out)
	}

	out, err = d.Read(ctx, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "2 dependencies") || !strings.Contains(out, "pyyaml") {
		t.Fatalf("read = %q", out)
	}

	if _, err := d.Remove(ctx, "requests"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, err = d.Remove(ctx, "requests")
	if !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("remove twice err = %v, want address error", err)
	}
	if !strings.Contains(err.Error(), "pyyaml()") {
		t.Fatalf("remaining deps not offered: %q", err.Error())
	}

	// The manifest on disk reflects the final state.
	data, err := os.ReadFile(filepath.Join(ws, ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if strings.Contains(string(data), "requests") || !strings.Contains(string(data), "pyyaml") {
		t.Fatalf("manifest = %q", data)
	}
}

func TestDepsUnsupportedVerbsNameSource(t *testing.T) {
	d := NewDeps(t.TempDir(), "pip3", time.Minute)
	ctx := context.Background()

	_, err := d.Edit(ctx, "x", "y")
	if !errors.Is(err, resource.ErrCapability) {
		t.Fatalf("edit err = %v, want capability", err)
	}
	if !strings.Contains(err.Error(), "source") {
		t.Fatalf("supporter missing: %q", err.Error())
	}
}

func TestConfigSpaceRoundTrip(t *testing.T) {
	ws := t.TempDir()
	d := NewDeps(ws, "pip3", time.Minute)
	c := NewConfigSpace(d)
	ctx := context.Background()

	if _, err := c.Edit(ctx, "port", "8080"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := c.Edit(ctx, "debug", "true"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	out, err := c.Read(ctx, "port")
	if err != nil {
		t.Fatalf("read port: %v", err)
	}
	if out != "port: 8080" {
		t.Fatalf("read port = %q", out)
	}

	out, err = c.Read(ctx, "")
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if !strings.Contains(out, "port: 8080") || !strings.Contains(out, "debug: true") {
		t.Fatalf("read all = %q", out)
	}

	_, err = c.Read(ctx, "missing")
	if !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("read missing err = %v", err)
	}
	if !strings.Contains(err.Error(), "port()") {
		t.Fatalf("keys not offered: %q", err.Error())
	}

	// Config edits must not clobber the dependency section.
	if _, err := d.Add(ctx, "requests"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := c.Edit(ctx, "port", "9090"); err != nil {
		t.Fatalf("edit after add: %v", err)
	}
	out, err = d.Read(ctx, "")
	if err != nil {
		t.Fatalf("deps read: %v", err)
	}
	if !strings.Contains(out, "requests") {
		t.Fatalf("dependency lost after config edit: %q", out)
	}
}

func TestConfigEditRejectsBadYaml(t *testing.T) {
	c := NewConfigSpace(NewDeps(t.TempDir(), "pip3", time.Minute))
	_, err := c.Edit(context.Background(), "broken", "{unclosed")
	if !errors.Is(err, resource.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestTestsDiscovery(t *testing.T) {
	ws := t.TempDir()
	files := map[string]string{
		"test_util.py":        "def test_ok(): pass\n",
		"pkg/__init__.py":     "",
		"pkg/test_mod.py":     "def test_mod(): pass\n",
		"pkg/helper.py":       "x = 1\n",
		".hidden/test_bad.py": "def test_bad(): pass\n",
	}
	for rel, content := range files {
		path := filepath.Join(ws, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ts := NewTests(ws, "pytest", time.Minute)
	ctx := context.Background()

	out, err := ts.Read(ctx, "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "2 test modules") {
		t.Fatalf("read = %q", out)
	}
	if !strings.Contains(out, "pkg.test_mod()") || !strings.Contains(out, "test_util()") {
		t.Fatalf("modules missing from %q", out)
	}
	if strings.Contains(out, "test_bad") || strings.Contains(out, "helper") {
		t.Fatalf("unexpected entries in %q", out)
	}

	_, err = ts.Read(ctx, "nope")
	if !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("read unknown err = %v", err)
	}
	if !strings.Contains(err.Error(), "pkg.test_mod()") {
		t.Fatalf("alternatives missing: %q", err.Error())
	}
}

func TestResultsBeforeAnyRun(t *testing.T) {
	ts := NewTests(t.TempDir(), "pytest", time.Minute)
	child, ok := ts.Children()["results"]
	if !ok {
		t.Fatal("results child not exposed")
	}
	out, err := child.Read(context.Background(), "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "No test run recorded") {
		t.Fatalf("read = %q", out)
	}
}

// reloaderFunc adapts a function to the reload.Reloader interface.
type reloaderFunc func(ctx context.Context, unit string) error

func (f reloaderFunc) Reload(ctx context.Context, unit string) error { return f(ctx, unit) }

func TestSelfEditCommitAndRollback(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "greet.go")
	orig := "package tool\n\nfunc Greet() string { return \"hi\" }\n"
	if err := os.WriteFile(path, []byte(orig), 0o644); err != nil {
		t.Fatal(err)
	}

	fail := false
	coord := reload.NewCoordinator(reloaderFunc(func(ctx context.Context, unit string) error {
		if fail {
			return resource.Reloadf("module %s failed to evaluate", unit)
		}
		return nil
	}), nil)
	s := NewSelf(root, coord)
	ctx := context.Background()

	next := "package tool\n\nfunc Greet() string { return \"hello\" }\n"
	out, err := s.Edit(ctx, "greet", next)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, "greet()") {
		t.Fatalf("edit = %q", out)
	}
	got, _ := os.ReadFile(path)
	if string(got) != next {
		t.Fatalf("file = %q, want committed content", got)
	}

	fail = true
	_, err = s.Edit(ctx, "greet", "package tool\n\nfunc Greet() string { return }\n")
	if !errors.Is(err, resource.ErrReload) {
		t.Fatalf("failing edit err = %v, want reload error", err)
	}
	got, _ = os.ReadFile(path)
	if string(got) != next {
		t.Fatalf("file after rollback = %q, want prior content", got)
	}
}

func TestSelfRejectsUnsafeAddresses(t *testing.T) {
	s := NewSelf(t.TempDir(), reload.NewCoordinator(reloaderFunc(func(ctx context.Context, unit string) error {
		return nil
	}), nil))

	for _, addr := range []string{"../escape", "a/b", "a\\b", ""} {
		if _, err := s.Read(context.Background(), addr); addr != "" && !errors.Is(err, resource.ErrAddress) {
			t.Fatalf("read %q err = %v, want address error", addr, err)
		}
	}

	_, err := s.Edit(context.Background(), "..secrets", "x")
	if !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("edit unsafe err = %v, want address error", err)
	}
}

func TestSelfListsModules(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "fmtters"), 0o755); err != nil {
		t.Fatal(err)
	}
	for rel, content := range map[string]string{
		"greet.go":           "package tool\n",
		"fmtters/table.go":   "package fmtters\n",
		"fmtters/notes.yaml": "ignored\n",
	} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(rel)), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewSelf(root, nil)
	out, err := s.Read(context.Background(), "")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(out, "2 hosted tool modules") {
		t.Fatalf("read = %q", out)
	}
	if !strings.Contains(out, "fmtters.table()") || !strings.Contains(out, "greet()") {
		t.Fatalf("modules missing: %q", out)
	}
	if strings.Contains(out, "notes") {
		t.Fatalf("non-go file listed: %q", out)
	}
}

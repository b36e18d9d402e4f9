package registry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/goleak"

	"codeatlas/internal/resource"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSpace is a minimal Space with a fixed child set and one tool per name
// in toolNames.
type fakeSpace struct {
	name      string
	desc      string
	kids      map[string]resource.Space
	toolNames []string
	entered   int
}

func newFake(name string, toolNames ...string) *fakeSpace {
	return &fakeSpace{name: name, desc: "fake " + name, toolNames: toolNames, kids: map[string]resource.Space{}}
}

func (f *fakeSpace) addChild(c *fakeSpace) *fakeSpace {
	f.kids[c.name] = c
	return c
}

func (f *fakeSpace) Name() string     { return f.name }
func (f *fakeSpace) Describe() string { return f.desc }

func (f *fakeSpace) Enter(ctx context.Context) (string, error) {
	f.entered++
	return "inside " + f.name, nil
}

func (f *fakeSpace) Read(ctx context.Context, target string) (string, error) {
	return "read " + f.name + "/" + target, nil
}

func (f *fakeSpace) Write(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("write", f.name, "source")
}

func (f *fakeSpace) Edit(ctx context.Context, target, content string) (string, error) {
	return "", resource.Unsupported("edit", f.name, "source")
}

func (f *fakeSpace) Glob(ctx context.Context, pattern string) (string, error) {
	return "", resource.Unsupported("glob", f.name, "source")
}

func (f *fakeSpace) Grep(ctx context.Context, pattern, scope string) (string, error) {
	return "", resource.Unsupported("grep", f.name, "source")
}

func (f *fakeSpace) Children() map[string]resource.Space { return f.kids }

func (f *fakeSpace) Tools() resource.ToolMap {
	m := resource.ToolMap{}
	for _, name := range f.toolNames {
		n := name
		m[n] = &resource.Tool{Name: n, Description: n + " on " + f.name,
			Execute: func(ctx context.Context, args map[string]any) (string, error) {
				return f.name + ":" + n, nil
			}}
	}
	return m
}

func TestNavigatePublishesToolsExactly(t *testing.T) {
	r := New()
	r.Register(newFake("source", "read", "edit"))
	r.Register(newFake("deps", "read", "install"))

	if _, err := r.Navigate(context.Background(), "source"); err != nil {
		t.Fatalf("navigate source: %v", err)
	}
	got := r.ToolNames()
	want := []string{"edit", "read"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("tools after source = %v, want %v", got, want)
	}

	if _, err := r.Navigate(context.Background(), "deps"); err != nil {
		t.Fatalf("navigate deps: %v", err)
	}
	got = r.ToolNames()
	want = []string{"install", "read"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("tools after deps = %v, want %v", got, want)
	}

	// edit belonged to source only; it must be gone, not shadowed.
	if _, err := r.Invoke(context.Background(), "edit", nil); err == nil {
		t.Fatal("stale tool edit still invocable after leaving source")
	}
}

func TestSiblingNavigationReplacesStackTail(t *testing.T) {
	source := newFake("source", "read")
	pkgA := source.addChild(newFake("alpha", "read"))
	pkgB := source.addChild(newFake("beta", "read"))

	r := New()
	r.Register(source)

	ctx := context.Background()
	mustNavigate(t, r, ctx, "source")
	mustNavigate(t, r, ctx, "alpha")
	if got := r.Breadcrumb(); got != "home > source > alpha" {
		t.Fatalf("breadcrumb = %q", got)
	}

	// From alpha, navigating to the absolute sibling path replaces the
	// tail instead of stacking deeper.
	mustNavigate(t, r, ctx, "source.beta")
	if got := r.Breadcrumb(); got != "home > source > beta" {
		t.Fatalf("breadcrumb after sibling = %q", got)
	}
	if pkgA.entered != 1 || pkgB.entered != 1 {
		t.Fatalf("enter counts alpha=%d beta=%d, want 1 and 1", pkgA.entered, pkgB.entered)
	}

	out, err := r.Back(ctx)
	if err != nil {
		t.Fatalf("back: %v", err)
	}
	if !strings.HasPrefix(out, "home > source") {
		t.Fatalf("back display = %q", out)
	}
	if got := r.Breadcrumb(); got != "home > source" {
		t.Fatalf("breadcrumb after back = %q", got)
	}
}

func TestNavigateRelativeChild(t *testing.T) {
	source := newFake("source", "read")
	source.addChild(newFake("pkg", "read"))

	r := New()
	r.Register(source)

	ctx := context.Background()
	mustNavigate(t, r, ctx, "source")

	// Bare child name resolves against the current resource.
	out := mustNavigate(t, r, ctx, "pkg")
	if !strings.Contains(out, "home > source > pkg") {
		t.Fatalf("display = %q, want breadcrumb through source", out)
	}
}

func TestUnknownAddressListsChoices(t *testing.T) {
	r := New()
	r.Register(newFake("source", "read"))
	r.Register(newFake("deps", "read"))

	_, err := r.Navigate(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected error for unknown root")
	}
	if !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("err kind = %v, want address", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "source()") || !strings.Contains(msg, "deps()") {
		t.Fatalf("alternatives missing from %q", msg)
	}
}

func TestCapabilityErrorNamesSupporter(t *testing.T) {
	r := New()
	r.Register(newFake("source", "read", "edit"))
	r.Register(newFake("deps", "read"))

	ctx := context.Background()
	mustNavigate(t, r, ctx, "deps")

	_, err := r.Invoke(ctx, "edit", nil)
	if err == nil {
		t.Fatal("expected capability error")
	}
	if !errors.Is(err, resource.ErrCapability) {
		t.Fatalf("err kind = %v, want capability", err)
	}
	if !strings.Contains(err.Error(), "source") {
		t.Fatalf("supporter missing from %q", err.Error())
	}
}

func TestHomeResetsStackAndTools(t *testing.T) {
	source := newFake("source", "read", "edit")
	source.addChild(newFake("pkg", "read"))

	r := New()
	r.Register(source)

	ctx := context.Background()
	mustNavigate(t, r, ctx, "source.pkg")

	out, err := r.Home(ctx)
	if err != nil {
		t.Fatalf("home: %v", err)
	}
	if !strings.Contains(out, "source()") {
		t.Fatalf("orientation missing source(): %q", out)
	}
	if got := r.Breadcrumb(); got != "home" {
		t.Fatalf("breadcrumb = %q, want home", got)
	}
	if _, err := r.Invoke(ctx, "edit", nil); err == nil {
		t.Fatal("edit still published at home")
	}
	if _, err := r.Invoke(ctx, "orient", nil); err != nil {
		t.Fatalf("orient not published at home: %v", err)
	}
}

func TestBackAtHomeFails(t *testing.T) {
	r := New()
	if _, err := r.Back(context.Background()); !errors.Is(err, resource.ErrAddress) {
		t.Fatalf("back at home err = %v, want address error", err)
	}
}

func TestHandleChildComposesAddresses(t *testing.T) {
	source := newFake("source", "read")
	source.addChild(newFake("pkg", "read"))

	r := New()
	h := r.Register(source)

	child, err := h.Child("pkg")
	if err != nil {
		t.Fatalf("child: %v", err)
	}
	if child.Address() != "source.pkg" {
		t.Fatalf("address = %q", child.Address())
	}

	out, err := child.Call(context.Background())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if !strings.Contains(out, "home > source > pkg") {
		t.Fatalf("display = %q", out)
	}

	if _, err := h.Child("not an ident"); err == nil {
		t.Fatal("expected error for invalid child segment")
	}
}

func mustNavigate(t *testing.T, r *Registry, ctx context.Context, addr string) string {
	t.Helper()
	out, err := r.Navigate(ctx, addr)
	if err != nil {
		t.Fatalf("navigate %s: %v", addr, err)
	}
	return out
}

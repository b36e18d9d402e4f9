package reload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// InterpReloader re-initializes Go tool modules hosted by the process
// itself, using the yaegi interpreter instead of a compiler round trip. It
// backs the self-introspection resourcespace when the hosted tools are Go
// source: an edit commits only if the edited file still evaluates.
type InterpReloader struct {
	root    string
	timeout time.Duration
}

// NewInterpReloader creates a reloader for the Go tool tree rooted at root.
func NewInterpReloader(root string, timeout time.Duration) *InterpReloader {
	return &InterpReloader{root: root, timeout: timeout}
}

// Reload evaluates the unit's source in a fresh interpreter.
func (r *InterpReloader) Reload(ctx context.Context, unit string) error {
	path := filepath.Join(r.root, filepath.FromSlash(strings.ReplaceAll(unit, ".", "/"))+".go")
	src, err := os.ReadFile(path)
	if err != nil {
		return resource.Reloadf("module %s has no backing source: %v", unit, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return resource.Reloadf("interpreter setup failed: %v", err)
	}

	start := time.Now()
	_, err = i.EvalWithContext(ctx, string(src))
	logging.ReloadDebug("interpreted %s in %v (err=%v)", unit, time.Since(start), err)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return resource.Reloadf("reload of %s timed out after %s", unit, r.timeout)
		}
		return resource.Reloadf("module %s failed to evaluate: %v", unit, err)
	}
	return nil
}

package reload

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// importScript re-initializes a module in a fresh interpreter rooted at the
// source tree. A clean import in a fresh process is the commit check: if it
// raises, the edit would have broken the running program.
const importScript = `
import importlib, sys
sys.path.insert(0, sys.argv[2])
importlib.invalidate_caches()
importlib.import_module(sys.argv[1])
`

const maxReloadOutput = 16 * 1024

// PythonReloader validates module re-initialization by importing the edited
// module with the configured interpreter, bounded by a timeout.
type PythonReloader struct {
	bin     string
	root    string
	timeout time.Duration
}

// NewPythonReloader creates a reloader running bin against the source tree
// rooted at root.
func NewPythonReloader(bin, root string, timeout time.Duration) *PythonReloader {
	return &PythonReloader{bin: bin, root: root, timeout: timeout}
}

// Reload imports unit and surfaces interpreter diagnostics on failure.
func (r *PythonReloader) Reload(ctx context.Context, unit string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.bin, "-c", importScript, unit, r.root)
	cmd.Dir = r.root

	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, max: maxReloadOutput}
	cmd.Stdout = lw
	cmd.Stderr = lw

	start := time.Now()
	err := cmd.Run()
	logging.ReloadDebug("python import %s took %v (err=%v)", unit, time.Since(start), err)
	if err == nil {
		return nil
	}

	if ctx.Err() == context.DeadlineExceeded {
		return resource.Reloadf("reload of %s timed out after %s", unit, r.timeout)
	}

	diag := strings.TrimSpace(buf.String())
	if diag == "" {
		diag = err.Error()
	}
	return resource.Reloadf("module %s failed to initialize: %s", unit, lastLines(diag, 5))
}

// lastLines keeps the tail of a traceback, which is where Python puts the
// actual error.
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// limitedWriter caps captured subprocess output, discarding the excess.
type limitedWriter struct {
	w         io.Writer
	max       int
	written   int
	discarded int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	total := len(p)
	if lw.written >= lw.max {
		lw.discarded += total
		return total, nil
	}
	room := lw.max - lw.written
	if len(p) > room {
		lw.discarded += len(p) - room
		p = p[:room]
	}
	n, err := lw.w.Write(p)
	lw.written += n
	if err != nil {
		return n, err
	}
	return total, nil
}

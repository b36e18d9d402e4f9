package subres

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"codeatlas/internal/logging"
)

// outputCap bounds captured subprocess output so a chatty install or test
// run cannot blow the display budget before truncation.
const outputCap = 32 * 1024

type cappedBuffer struct {
	buf bytes.Buffer
	cap int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	total := len(p)
	if room := b.cap - b.buf.Len(); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		b.buf.Write(p)
	}
	return total, nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }

// runResult is a finished subprocess invocation.
type runResult struct {
	output   string
	exitCode int
	duration time.Duration
}

// run executes bin with args under dir, bounded by timeout, capturing
// combined output. A non-zero exit is not an error here; callers interpret
// the exit code.
func run(ctx context.Context, dir, bin string, timeout time.Duration, args ...string) (*runResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out := &cappedBuffer{cap: outputCap}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out

	start := time.Now()
	err := cmd.Run()
	res := &runResult{output: out.String(), duration: time.Since(start)}

	if ctx.Err() == context.DeadlineExceeded {
		return res, ctx.Err()
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		res.exitCode = exitErr.ExitCode()
		err = nil
	}
	logging.SubresDebug("ran %s %s: exit %d in %v", bin, strings.Join(args, " "), res.exitCode, res.duration)
	return res, err
}

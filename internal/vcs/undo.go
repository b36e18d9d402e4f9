// Package vcs implements the coarse history-based undo: a version-control
// checkout of all uncommitted changes back to the last durable checkpoint.
// This is an operational convenience, not a structured multi-level undo
// stack.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Undoer reverts uncommitted changes under one repository root.
type Undoer struct {
	gitBin  string
	root    string
	timeout time.Duration
}

// NewUndoer creates an Undoer for the repository containing root.
func NewUndoer(gitBin, root string, timeout time.Duration) *Undoer {
	return &Undoer{gitBin: gitBin, root: root, timeout: timeout}
}

func (u *Undoer) run(ctx context.Context, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, u.gitBin, args...)
	cmd.Dir = u.root

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	logging.VCSDebug("git %s: err=%v", strings.Join(args, " "), err)
	if err != nil {
		return out.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}

// Revert discards all uncommitted changes in the working tree, restoring
// the last checkpoint. Returns a summary of what was reverted.
func (u *Undoer) Revert(ctx context.Context) (string, error) {
	status, err := u.run(ctx, "status", "--porcelain")
	if err != nil {
		return "", resource.Undof("no checkpoint available: %v", err)
	}

	status = strings.TrimSpace(status)
	if status == "" {
		return "", resource.Undof("nothing to revert: working tree matches the last checkpoint")
	}
	changed := len(strings.Split(status, "\n"))

	if _, err := u.run(ctx, "checkout", "--", "."); err != nil {
		return "", resource.Undof("revert failed: %v", err)
	}

	logging.VCSDebug("reverted %d changed files under %s", changed, filepath.Base(u.root))
	return fmt.Sprintf("Reverted %d changed files to the last checkpoint.", changed), nil
}

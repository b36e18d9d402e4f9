// Package reload implements the two-phase commit protocol around source
// mutations: snapshot the previous content, write the candidate, re-initialize
// the module in the running process, and roll the file back if
// re-initialization fails. On-disk state and process state are never allowed
// to diverge silently.
package reload

import (
	"context"
	"fmt"
	"os"
	"sync"

	"codeatlas/internal/fsutil"
	"codeatlas/internal/journal"
	"codeatlas/internal/logging"
	"codeatlas/internal/resource"
)

// Reloader re-initializes one module, identified by its dotted unit name,
// inside the running process.
type Reloader interface {
	Reload(ctx context.Context, unit string) error
}

// Request describes one mutation to commit.
type Request struct {
	// Path is the physical file the candidate content lands in.
	Path string

	// Unit is the dotted module address, used for reloading and journaling.
	Unit string

	// Next is the candidate whole-file content. Already validated by the
	// syntax editor.
	Next []byte

	// New marks a brand-new module. A reload failure of a new module is
	// reported but not rolled back: the module may legitimately not be
	// importable yet.
	New bool

	// Action is recorded in the journal ("write" or "edit").
	Action string
}

// Coordinator serializes mutations per unit and runs the write → reload →
// validate → commit/rollback sequence. The rollback branch runs on every
// abnormal exit, including cancellation mid-reload.
type Coordinator struct {
	mu       sync.Mutex
	inflight map[string]bool

	reloader Reloader
	journal  *journal.Journal
}

// NewCoordinator creates a Coordinator. jrnl may be nil to disable
// journaling.
func NewCoordinator(reloader Reloader, jrnl *journal.Journal) *Coordinator {
	return &Coordinator{
		inflight: make(map[string]bool),
		reloader: reloader,
		journal:  jrnl,
	}
}

func (c *Coordinator) acquire(unit string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inflight[unit] {
		// Fail fast rather than race a rollback in progress.
		return resource.Reloadf("a reload of %s is already in flight; retry when it completes", unit)
	}
	c.inflight[unit] = true
	return nil
}

func (c *Coordinator) release(unit string) {
	c.mu.Lock()
	delete(c.inflight, unit)
	c.mu.Unlock()
}

// Apply commits one mutation. On success the file holds req.Next and the
// module is live. On reload failure of an existing module the file is
// restored to its prior bytes and a reload error is returned. On reload
// failure of a new module the file is kept and a reload error is still
// returned; the caller decides whether that is fatal.
func (c *Coordinator) Apply(ctx context.Context, req Request) (err error) {
	if err := c.acquire(req.Unit); err != nil {
		return err
	}
	defer c.release(req.Unit)

	var prev []byte
	if !req.New {
		prev, err = os.ReadFile(req.Path)
		if err != nil {
			return fmt.Errorf("reload: snapshot %s: %w", req.Unit, err)
		}
	}

	if err := fsutil.WriteFileAtomic(req.Path, req.Next, 0o644); err != nil {
		return fmt.Errorf("reload: write %s: %w", req.Unit, err)
	}

	committed := false
	defer func() {
		if committed || req.New {
			return
		}
		// Rollback must run on every abnormal exit path, including panic
		// and context cancellation surfacing as a reload error.
		if rbErr := fsutil.WriteFileAtomic(req.Path, prev, 0o644); rbErr != nil {
			logging.ReloadWarn("rollback of %s failed: %v", req.Unit, rbErr)
			return
		}
		logging.Reload("rolled back %s to pre-edit content", req.Unit)
	}()

	logging.ReloadDebug("reloading %s after %s", req.Unit, req.Action)
	if rerr := c.reloader.Reload(ctx, req.Unit); rerr != nil {
		outcome := journal.OutcomeRolledBack
		if req.New {
			outcome = journal.OutcomeFailed
		}
		txn := c.journal.Record(ctx, req.Unit, req.Action, outcome, rerr.Error())
		logging.ReloadWarn("reload of %s failed (txn %s): %v", req.Unit, txn, rerr)
		if resErr, ok := rerr.(*resource.Error); ok {
			return resErr
		}
		return resource.Reloadf("reload of %s failed: %v", req.Unit, rerr)
	}

	committed = true
	txn := c.journal.Record(ctx, req.Unit, req.Action, journal.OutcomeCommitted, "")
	logging.ReloadDebug("committed %s (txn %s)", req.Unit, txn)
	return nil
}

// RecordUndo journals a history revert outcome.
func (c *Coordinator) RecordUndo(ctx context.Context, outcome journal.Outcome, detail string) {
	c.journal.Record(ctx, "*", "undo", outcome, detail)
}

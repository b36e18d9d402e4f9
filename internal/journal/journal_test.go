package journal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndRecent(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	id1 := j.Record(ctx, "pkg.mod", "edit", OutcomeCommitted, "")
	id2 := j.Record(ctx, "pkg.mod", "edit", OutcomeRolledBack, "import of broken failed")
	require.NotEmpty(t, id1)
	require.NotEmpty(t, id2)
	assert.NotEqual(t, id1, id2, "transaction ids must be unique")

	entries, err := j.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	outcomes := map[Outcome]string{}
	for _, e := range entries {
		assert.Equal(t, "pkg.mod", e.Unit)
		assert.Equal(t, "edit", e.Action)
		outcomes[e.Outcome] = e.Detail
	}
	assert.Contains(t, outcomes, OutcomeCommitted)
	assert.Equal(t, "import of broken failed", outcomes[OutcomeRolledBack])
}

func TestRecentHonorsLimit(t *testing.T) {
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		j.Record(ctx, "util", "write", OutcomeCommitted, "")
	}
	entries, err := j.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestNilJournalIsNoOp(t *testing.T) {
	var j *Journal
	assert.NotEmpty(t, j.Record(context.Background(), "x", "write", OutcomeFailed, ""),
		"nil journal should still hand out a txn id")

	entries, err := j.Recent(context.Background(), 5)
	assert.NoError(t, err)
	assert.Nil(t, entries)
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".atlas", "journal.db")
	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())
}

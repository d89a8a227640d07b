package progress

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestStartRun(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	id, err := j.StartRun(ctx, "player.ttl", "enriched.ttl")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "run IDs are UUIDs")

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "player.ttl", runs[0].Input)
	assert.Nil(t, runs[0].FinishedAt)
}

func TestRecordAndDone(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	id, err := j.StartRun(ctx, "in.ttl", "out.ttl")
	require.NoError(t, err)

	require.NoError(t, j.Record(ctx, id, 1, []Entry{
		{Entity: "http://example.org/football/Lionel_Messi", Statements: 3},
		{Entity: "http://example.org/football/Pele", Statements: 1, Failed: true},
	}))

	done, err := j.Done(ctx, "out.ttl")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"http://example.org/football/Lionel_Messi": true}, done)
}

func TestRecord_LaterOutcomeWins(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	first, err := j.StartRun(ctx, "in.ttl", "out.ttl")
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, first, 1, []Entry{{Entity: "Pele", Failed: true}}))

	second, err := j.StartRun(ctx, "in.ttl", "out.ttl")
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, second, 1, []Entry{{Entity: "Pele", Statements: 4}}))

	done, err := j.Done(ctx, "out.ttl")
	require.NoError(t, err)
	assert.True(t, done["Pele"])
}

func TestDone_ScopedToOutput(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()

	first, err := j.StartRun(ctx, "in.ttl", "a.ttl")
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, first, 1, []Entry{{Entity: "Pele", Statements: 2}}))

	second, err := j.StartRun(ctx, "in.ttl", "b.ttl")
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, second, 1, []Entry{{Entity: "Pele", Failed: true}}))

	done, err := j.Done(ctx, "a.ttl")
	require.NoError(t, err)
	assert.True(t, done["Pele"], "a failure against another output does not undo this one")

	done, err = j.Done(ctx, "b.ttl")
	require.NoError(t, err)
	assert.Empty(t, done)

	done, err = j.Done(ctx, "./a.ttl")
	require.NoError(t, err)
	assert.True(t, done["Pele"], "path spelling does not matter")

	done, err = j.Done(ctx, "c.ttl")
	require.NoError(t, err)
	assert.Empty(t, done)
}

func TestRecord_UnknownRun(t *testing.T) {
	j := openTemp(t)
	err := j.Record(context.Background(), "no-such-run", 1, []Entry{{Entity: "Pele"}})
	assert.Error(t, err)
}

func TestRecord_Empty(t *testing.T) {
	j := openTemp(t)
	assert.NoError(t, j.Record(context.Background(), "unused", 1, nil))
}

func TestFinishRun(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	j.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	id, err := j.StartRun(ctx, "in.ttl", "out.ttl")
	require.NoError(t, err)
	require.NoError(t, j.FinishRun(ctx, id, 42, 2))

	runs, err := j.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, 42, runs[0].Statements)
	assert.Equal(t, 2, runs[0].Failures)

	assert.Error(t, j.FinishRun(ctx, "no-such-run", 0, 0))
}

func TestReopenKeepsProgress(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	j, err := Open(path)
	require.NoError(t, err)
	id, err := j.StartRun(ctx, "in.ttl", "out.ttl")
	require.NoError(t, err)
	require.NoError(t, j.Record(ctx, id, 1, []Entry{{Entity: "Pele", Statements: 2}}))
	require.NoError(t, j.Close())

	j, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	done, err := j.Done(ctx, "out.ttl")
	require.NoError(t, err)
	assert.True(t, done["Pele"])
}

func TestOpenInMemory(t *testing.T) {
	j, err := Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = j.Close() }()

	done, err := j.Done(context.Background(), "out.ttl")
	require.NoError(t, err)
	assert.Empty(t, done)
}

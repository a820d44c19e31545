package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engagewatch/internal/model"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func note(id string) model.Notification {
	return model.Notification{
		ID:     id,
		Kind:   model.KindComment,
		Source: model.SourceTypeEmail,
	}
}

func TestLoadSeenEmptyStore(t *testing.T) {
	s := newStore(t)

	seen, err := s.LoadSeen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestMarkSeenRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	err := s.MarkSeen(ctx, []model.Notification{note("a"), note("b")})
	require.NoError(t, err)

	seen, err := s.LoadSeen(ctx)
	require.NoError(t, err)
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
	assert.Len(t, seen, 2)

	// Marking again is a no-op, and the set never shrinks.
	err = s.MarkSeen(ctx, []model.Notification{note("a"), note("c")})
	require.NoError(t, err)

	seen, err = s.LoadSeen(ctx)
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.db")

	s, err := Open(path)
	require.NoError(t, err, "a missing store is an empty store")
	defer s.Close()

	seen, err := s.LoadSeen(context.Background())
	require.NoError(t, err)
	assert.Empty(t, seen)
}

func TestOpenCorruptFileRecovers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	require.NoError(t,
		os.WriteFile(path, []byte("this is not a database"), 0o644))

	s, err := Open(path)
	require.NoError(t, err, "a corrupt store is a fresh start, not a failure")
	defer s.Close()

	ctx := context.Background()
	seen, err := s.LoadSeen(ctx)
	require.NoError(t, err)
	assert.Empty(t, seen)

	// And the recovered store is writable.
	require.NoError(t, s.MarkSeen(ctx, []model.Notification{note("x")}))
}

func TestStatePersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.MarkSeen(ctx, []model.Notification{note("a")}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	seen, err := s.LoadSeen(ctx)
	require.NoError(t, err)
	assert.True(t, seen["a"])
}

func TestRecordRunAndLastRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, last, "empty history has no last run")

	started := time.Now().UTC().Truncate(time.Second)
	run := RunSummary{
		Source:      model.SourceTypeAPI,
		StartedAt:   started,
		Total:       5,
		Fresh:       2,
		Skipped:     1,
		RateLimited: true,
	}
	require.NoError(t, s.RecordRun(ctx, run))

	last, err = s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, model.SourceTypeAPI, last.Source)
	assert.Equal(t, 5, last.Total)
	assert.Equal(t, 2, last.Fresh)
	assert.Equal(t, 1, last.Skipped)
	assert.True(t, last.RateLimited)
	assert.WithinDuration(t, started, last.StartedAt, time.Second)
}

func TestRecordRunWithZeroNew(t *testing.T) {
	// Every run writes a high-water row, even an empty one.
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordRun(ctx, RunSummary{
		Source:    model.SourceTypeEmail,
		StartedAt: time.Now(),
	}))

	last, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Zero(t, last.Fresh)
}

func TestFilterNewPreservesOrder(t *testing.T) {
	candidates := []model.Notification{
		note("c"), note("a"), note("b"),
	}

	fresh := FilterNew(candidates, map[string]bool{"a": true})
	require.Len(t, fresh, 2)
	assert.Equal(t, "c", fresh[0].ID)
	assert.Equal(t, "b", fresh[1].ID)
}

func TestFilterNewAcrossBatches(t *testing.T) {
	b1 := []model.Notification{note("a"), note("b")}
	seen := map[string]bool{}

	for _, n := range FilterNew(b1, seen) {
		seen[n.ID] = true
	}

	b2 := []model.Notification{note("b"), note("c")}
	fresh := FilterNew(b2, seen)
	require.Len(t, fresh, 1)
	assert.Equal(t, "c", fresh[0].ID)
}

func TestFilterNewCollapsesInBatchDuplicates(t *testing.T) {
	fresh := FilterNew(
		[]model.Notification{note("a"), note("a"), note("b")},
		map[string]bool{},
	)
	require.Len(t, fresh, 2)
	assert.Equal(t, "a", fresh[0].ID)
	assert.Equal(t, "b", fresh[1].ID)
}

func TestFilterNewEmptyInput(t *testing.T) {
	assert.Empty(t, FilterNew(nil, map[string]bool{"a": true}))
}

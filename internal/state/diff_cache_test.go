package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDiffCacheRoundTrip(t *testing.T) {
	t.Parallel()

	db := openMemory(t)
	ctx := context.Background()

	_, ok, err := db.GetCachedDiff(ctx, "commit-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.PutCachedDiff(ctx, "commit-1", "+a"))
	require.NoError(t, db.PutCachedDiff(ctx, " commit-1 ", "+b"))

	diff, ok, err := db.GetCachedDiff(ctx, "commit-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "+b", diff)

	stats, err := db.DiffCacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Entries)
	assert.Equal(t, int64(2), stats.Bytes)
	assert.False(t, stats.Newest.IsZero())
}

func TestDiffCacheIgnoresEmptyResponse(t *testing.T) {
	t.Parallel()

	db := openMemory(t)
	require.NoError(t, db.PutCachedDiff(context.Background(), "  ", "+a"))

	stats, err := db.DiffCacheStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Entries)
	assert.True(t, stats.Oldest.IsZero())
}

func TestClearDiffCache(t *testing.T) {
	t.Parallel()

	db := openMemory(t)
	ctx := context.Background()
	require.NoError(t, db.PutCachedDiff(ctx, "a", "+a"))
	require.NoError(t, db.PutCachedDiff(ctx, "b", "+b"))

	removed, err := db.ClearDiffCache(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), removed, "fresh entries survive an age filter")

	removed, err = db.ClearDiffCache(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestNilDBReportsNotReady(t *testing.T) {
	t.Parallel()

	var db *DB
	_, _, err := db.GetCachedDiff(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreNotReady)
	assert.ErrorIs(t, db.EnsureReady(context.Background()), ErrStoreNotReady)
	assert.ErrorIs(t, db.Close(), ErrStoreNotReady)
}

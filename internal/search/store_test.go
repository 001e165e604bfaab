package search

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGuardOnNilReceiver(t *testing.T) {
	var store *Store

	assert.NoError(t, store.Close())
	assert.ErrorIs(t, store.EnsureReady(context.Background()), ErrStoreNotReady)
	assert.ErrorIs(t, store.Save(context.Background(), Entry{Dir: "d"}, []float32{1}), ErrStoreNotReady)
	assert.ErrorIs(t, store.ClearDir(context.Background(), "d"), ErrStoreNotReady)

	_, err := store.Search(context.Background(), "d", []float32{1}, 1)
	assert.ErrorIs(t, err, ErrStoreNotReady)
}

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "vec.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestStoreSearchIsScopedToDir(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Entry{Dir: "a", FileNumber: 1, Query: "add retries"}, []float32{1, 0, 0}))
	require.NoError(t, store.Save(ctx, Entry{Dir: "a", FileNumber: 2, Query: "fix css"}, []float32{0, 1, 0}))
	require.NoError(t, store.Save(ctx, Entry{Dir: "b", FileNumber: 1, Query: "add retries"}, []float32{1, 0, 0}))

	hits, err := store.Search(ctx, "a", []float32{0.9, 0.1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].FileNumber)
	assert.Equal(t, "add retries", hits[0].Query)
	assert.Less(t, hits[0].Distance, 0.1)

	require.NoError(t, store.ClearDir(ctx, "a"))
	hits, err = store.Search(ctx, "a", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.Search(ctx, "b", []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestStoreSaveReplacesEntry(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Entry{Dir: "a", FileNumber: 1, Query: "old"}, []float32{1, 0}))
	require.NoError(t, store.Save(ctx, Entry{Dir: "a", FileNumber: 1, Query: "new"}, []float32{1, 0}))

	hits, err := store.Search(ctx, "a", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Query)
}

func TestCosineDistanceValidation(t *testing.T) {
	_, err := cosineDistance(nil, []float32{1})
	assert.Error(t, err)

	_, err = cosineDistance([]float32{1, 0}, []float32{1})
	assert.ErrorContains(t, err, "length mismatch")

	dist, err := cosineDistance([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, dist, 1e-9)
}

// embeddingOf builds a full-width vector with the given leading components
// and fill everywhere else.
func embeddingOf(fill float32, lead ...float32) []float32 {
	vec := make([]float32, sqliteVecDimensions)
	for i := range vec {
		vec[i] = fill
	}
	copy(vec, lead)
	return vec
}

func TestStoreSearchNotCrowdedOutByOtherDir(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.True(t, store.isVecEnabled(), "sqlite-vec should be loaded")

	query := embeddingOf(0, 1)
	for i := 1; i <= 20; i++ {
		entry := Entry{Dir: "big", FileNumber: i, Query: fmt.Sprintf("theirs %d", i)}
		require.NoError(t, store.Save(ctx, entry, query))
	}
	require.NoError(t, store.Save(ctx, Entry{Dir: "small", FileNumber: 99, Query: "mine"}, embeddingOf(0, 1, 0.05)))

	hits, err := store.Search(ctx, "small", query, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 99, hits[0].FileNumber)
	assert.Equal(t, "mine", hits[0].Query)

	hits, err = store.Search(ctx, "big", query, 3)
	require.NoError(t, err)
	assert.Len(t, hits, 3)
	require.True(t, store.isVecEnabled())
}

func TestStoreVecAndFallbackAgreeOnDistance(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	require.True(t, store.isVecEnabled(), "sqlite-vec should be loaded")

	require.NoError(t, store.Save(ctx, Entry{Dir: "d", FileNumber: 1, Query: "q"}, embeddingOf(1)))
	require.NoError(t, store.Save(ctx, Entry{Dir: "d", FileNumber: 2, Query: "far"}, embeddingOf(0, -1)))

	query := embeddingOf(2)
	viaVec, err := store.Search(ctx, "d", query, 5)
	require.NoError(t, err)
	require.True(t, store.isVecEnabled())

	viaScan, err := store.searchFallback(ctx, "d", query, 5)
	require.NoError(t, err)

	require.Len(t, viaVec, 1)
	require.Len(t, viaScan, 1)
	assert.Equal(t, viaScan[0].FileNumber, viaVec[0].FileNumber)
	assert.InDelta(t, viaScan[0].Distance, viaVec[0].Distance, 1e-4)
	assert.InDelta(t, 0.0, viaVec[0].Distance, 1e-4)
}

// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectionfs/objection/pkg/storage/backend"
	"github.com/objectionfs/objection/pkg/storage/index"
	"github.com/objectionfs/objection/pkg/types"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()

	idx, err := index.NewMemoryIndexer[types.BlobID, types.Blob]()
	require.NoError(t, err)

	store := NewStore(backend.NewMemory(), idx)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustPut(t *testing.T, s *Store, payload []byte) types.Blob {
	t.Helper()
	rec, err := s.Put(context.Background(), bytes.NewReader(payload))
	require.NoError(t, err)
	return rec
}

// ============================================================================
// Put / Get
// ============================================================================

func TestStorePutGet(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	payload := []byte("the payload")

	rec := mustPut(t, store, payload)
	assert.Equal(t, int64(len(payload)), rec.Size)
	assert.Equal(t, int64(1), rec.RefCount)
	assert.Nil(t, rec.ZeroRefSince)

	rc, got, err := store.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, rec.ID, got.ID)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestStoreGetUnknown(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	id := types.BlobID("00000000000000000000000000000000" + "00000000000000000000000000000000")

	_, _, err := store.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Deduplication
// ============================================================================

func TestStoreDedup(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	payload := []byte("shared content")

	first := mustPut(t, store, payload)
	second := mustPut(t, store, payload)

	// Same content, same address, one blob with refcount 2.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.RefCount)

	// One release leaves the blob retrievable with refcount 1.
	require.NoError(t, store.Release(context.Background(), first.ID))
	rec, err := store.Stat(first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.RefCount)

	rc, _, err := store.Get(context.Background(), first.ID)
	require.NoError(t, err)
	rc.Close()
}

func TestStoreRetainRelease(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	rec := mustPut(t, store, []byte("counted"))

	require.NoError(t, store.Retain(context.Background(), rec.ID))
	got, err := store.Stat(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.RefCount)

	require.NoError(t, store.Release(context.Background(), rec.ID))
	require.NoError(t, store.Release(context.Background(), rec.ID))
	got, err = store.Stat(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.RefCount)
	require.NotNil(t, got.ZeroRefSince)
}

func TestStoreRetainUnknown(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	err := store.Retain(context.Background(), types.BlobID("ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"))
	assert.ErrorIs(t, err, ErrNotFound)
}

// ============================================================================
// Zero-crossing revival
// ============================================================================

func TestStorePutRevivesZeroRefBlob(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	payload := []byte("revived")

	rec := mustPut(t, store, payload)
	require.NoError(t, store.Release(context.Background(), rec.ID))

	got, err := store.Stat(rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ZeroRefSince)

	// A put between release and the sweep clears the zero stamp.
	revived := mustPut(t, store, payload)
	assert.Equal(t, rec.ID, revived.ID)
	assert.Equal(t, int64(1), revived.RefCount)
	assert.Nil(t, revived.ZeroRefSince)
}

// ============================================================================
// Sweep
// ============================================================================

func TestStoreSweepOne(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)
	rec := mustPut(t, store, []byte("doomed"))

	// Still referenced: not swept.
	ok, err := store.SweepOne(ctx, rec.ID, 0)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, rec.ID))

	// Inside the grace period: not swept.
	ok, err = store.SweepOne(ctx, rec.ID, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	// Grace period elapsed (zero grace): swept.
	ok, err = store.SweepOne(ctx, rec.ID, 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, _, err = store.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// Sweeping an already-gone blob is a no-op.
	ok, err = store.SweepOne(ctx, rec.ID, 0)
	require.NoError(t, err)
	assert.False(t, ok)
}

// ============================================================================
// Concurrency
// ============================================================================

func TestStoreConcurrentPutsSameContent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	payload := []byte("contended content")
	const writers = 16

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Put(context.Background(), bytes.NewReader(payload))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec := mustPut(t, store, payload)
	assert.Equal(t, int64(writers+1), rec.RefCount)
}

// ============================================================================
// Stats
// ============================================================================

// Not parallel: the stats gauges are process-global.
func TestStoreRefreshStats(t *testing.T) {
	store := newTestStore(t)

	mustPut(t, store, []byte("first"))
	mustPut(t, store, []byte("second!"))

	require.NoError(t, store.RefreshStats())
	stats := store.Stats()
	assert.Equal(t, int64(2), stats.TotalBlobs)
	assert.Equal(t, int64(len("first")+len("second!")), stats.TotalBytes)
}

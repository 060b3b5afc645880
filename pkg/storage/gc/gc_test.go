// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gc

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectionfs/objection/pkg/storage/backend"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/storage/index"
	"github.com/objectionfs/objection/pkg/types"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestWorker(t *testing.T, opts ...func(*WorkerConfig)) (*Worker, *blob.Store) {
	t.Helper()

	idx, err := index.NewMemoryIndexer[types.BlobID, types.Blob]()
	require.NoError(t, err)

	store := blob.NewStore(backend.NewMemory(), idx)

	cfg := WorkerConfig{
		Store:       store,
		Interval:    100 * time.Millisecond,
		GracePeriod: time.Nanosecond, // Effectively no grace period, for faster tests
		Concurrency: 2,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	w := NewWorkerWithConfig(cfg)
	t.Cleanup(func() {
		w.Stop()
		store.Close()
	})
	return w, store
}

// ============================================================================
// Constructor Tests
// ============================================================================

func TestNewWorkerDefaults(t *testing.T) {
	t.Parallel()

	idx, err := index.NewMemoryIndexer[types.BlobID, types.Blob]()
	require.NoError(t, err)
	store := blob.NewStore(backend.NewMemory(), idx)
	defer store.Close()

	w := NewWorker(store, time.Minute)
	require.NotNil(t, w)
	assert.Equal(t, time.Minute, w.interval)
	assert.Equal(t, DefaultGracePeriod, w.gracePeriod)
	assert.Equal(t, 5, w.concurrency)
}

// ============================================================================
// Sweep Tests
// ============================================================================

func TestRunDeletesZeroRefBlobs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w, store := newTestWorker(t)

	released, err := store.Put(ctx, bytes.NewReader([]byte("dead")))
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, released.ID))

	live, err := store.Put(ctx, bytes.NewReader([]byte("alive")))
	require.NoError(t, err)

	w.Run()

	_, _, err = store.Get(ctx, released.ID)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	rc, _, err := store.Get(ctx, live.ID)
	require.NoError(t, err)
	rc.Close()
}

func TestRunHonorsGracePeriod(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w, store := newTestWorker(t, func(cfg *WorkerConfig) {
		cfg.GracePeriod = time.Hour
	})

	rec, err := store.Put(ctx, bytes.NewReader([]byte("recent")))
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, rec.ID))

	w.Run()

	// Released moments ago: still inside the grace period, still there.
	rc, _, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	rc.Close()

	// Forcing a zero grace period sweeps it.
	w.RunWithGracePeriod(0)
	_, _, err = store.Get(ctx, rec.ID)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestRunCallsDeleteCallback(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	var deletedBytes atomic.Int64
	w, store := newTestWorker(t, func(cfg *WorkerConfig) {
		cfg.OnBlobDeleted = func(b types.Blob) {
			deletedBytes.Add(b.Size)
		}
	})

	payload := []byte("accounted bytes")
	rec, err := store.Put(ctx, bytes.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, rec.ID))

	w.Run()

	assert.Equal(t, int64(len(payload)), deletedBytes.Load())
}

func TestStartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	w, store := newTestWorker(t, func(cfg *WorkerConfig) {
		cfg.Interval = 10 * time.Millisecond
	})

	rec, err := store.Put(ctx, bytes.NewReader([]byte("ticker sweep")))
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, rec.ID))

	w.Start()

	assert.Eventually(t, func() bool {
		_, _, err := store.Get(ctx, rec.ID)
		return err == blob.ErrNotFound
	}, 2*time.Second, 10*time.Millisecond)
}

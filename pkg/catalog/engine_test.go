// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/catalog/db/memory"
	"github.com/objectionfs/objection/pkg/storage/backend"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/storage/index"
	"github.com/objectionfs/objection/pkg/types"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestEngine(t *testing.T, opts ...func(*types.CacheControlConfig)) (*Engine, *blob.Store) {
	t.Helper()

	idx, err := index.NewMemoryIndexer[types.BlobID, types.Blob]()
	require.NoError(t, err)
	blobs := blob.NewStore(backend.NewMemory(), idx)
	t.Cleanup(func() { blobs.Close() })

	cacheControl := types.CacheControlConfig{
		DefaultPolicy: types.CachePolicyNoCache,
		DefaultMaxAge: 3600 * time.Second,
	}
	for _, opt := range opts {
		opt(&cacheControl)
	}

	return NewEngine(memory.New(), blobs, cacheControl), blobs
}

func mustCreateBucket(t *testing.T, e *Engine, name string, settings types.BucketSettings) *types.BucketInfo {
	t.Helper()
	bucket, err := e.CreateBucket(context.Background(), name, settings)
	require.NoError(t, err)
	return bucket
}

func mustPutObject(t *testing.T, e *Engine, bucket, key string, payload []byte, params PutObjectParams) *types.ObjectInfo {
	t.Helper()
	obj, err := e.PutObject(context.Background(), bucket, key, bytes.NewReader(payload), params)
	require.NoError(t, err)
	return obj
}

// ============================================================================
// Bucket Lifecycle
// ============================================================================

func TestCreateBucket(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	bucket := mustCreateBucket(t, e, "photos", types.BucketSettings{AccessLogging: true})

	assert.Equal(t, "photos", bucket.Name)
	assert.NotEqual(t, bucket.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, bucket.Settings.AccessLogging)

	got, err := e.GetBucket(context.Background(), "photos")
	require.NoError(t, err)
	assert.Equal(t, bucket.ID, got.ID)
}

func TestCreateBucketConflict(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "photos", types.BucketSettings{})

	_, err := e.CreateBucket(context.Background(), "photos", types.BucketSettings{})
	assert.ErrorIs(t, err, db.ErrBucketExists)
}

func TestCreateBucketInvalidName(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	_, err := e.CreateBucket(context.Background(), "", types.BucketSettings{})
	assert.ErrorIs(t, err, ErrInvalidBucketName)

	_, err = e.CreateBucket(context.Background(), "a/b", types.BucketSettings{})
	assert.ErrorIs(t, err, ErrInvalidBucketName)
}

func TestGetBucketNotFound(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	_, err := e.GetBucket(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
}

func TestUpdateBucketSettings(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "photos", types.BucketSettings{})

	cache := types.CachePolicyCache
	updated, err := e.UpdateBucketSettings(context.Background(), "photos",
		types.BucketSettings{DefaultCachePolicy: &cache, AccessLogging: true})
	require.NoError(t, err)
	require.NotNil(t, updated.Settings.DefaultCachePolicy)
	assert.Equal(t, types.CachePolicyCache, *updated.Settings.DefaultCachePolicy)
	assert.True(t, updated.Settings.AccessLogging)

	_, err = e.UpdateBucketSettings(context.Background(), "missing", types.BucketSettings{})
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
}

func TestListBucketsPagination(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	for i := 0; i < 5; i++ {
		mustCreateBucket(t, e, fmt.Sprintf("bucket-%d", i), types.BucketSettings{})
	}

	page1, err := e.ListBuckets(context.Background(), db.ListParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	// Creation order is stable.
	assert.Equal(t, "bucket-0", page1[0].Name)
	assert.Equal(t, "bucket-1", page1[1].Name)

	page3, err := e.ListBuckets(context.Background(), db.ListParams{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page3, 1)

	// Out-of-range pages are empty, not an error.
	page9, err := e.ListBuckets(context.Background(), db.ListParams{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page9)
}

// ============================================================================
// Deduplication
// ============================================================================

func TestDedupAcrossKeys(t *testing.T) {
	t.Parallel()

	e, blobs := newTestEngine(t)
	mustCreateBucket(t, e, "b1", types.BucketSettings{})
	mustCreateBucket(t, e, "b2", types.BucketSettings{})

	payload := []byte("identical content")
	obj1 := mustPutObject(t, e, "b1", "k1", payload, PutObjectParams{})
	obj2 := mustPutObject(t, e, "b2", "k2", payload, PutObjectParams{})

	// Same content from two (bucket, key) pairs: one blob, refcount 2.
	assert.Equal(t, obj1.Hash, obj2.Hash)
	rec, err := blobs.Stat(obj1.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.RefCount)

	// Deleting one object leaves the blob retrievable at refcount 1.
	require.NoError(t, e.DeleteObject(context.Background(), "b1", "k1"))
	rec, err = blobs.Stat(obj1.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.RefCount)

	res, err := e.GetObject(context.Background(), "b2", "k2")
	require.NoError(t, err)
	got, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, payload, got)
}

func TestIdempotentOverwrite(t *testing.T) {
	t.Parallel()

	e, blobs := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	payload := []byte("same bytes")
	first := mustPutObject(t, e, "b", "k", payload, PutObjectParams{})
	second := mustPutObject(t, e, "b", "k", payload, PutObjectParams{})

	// Identical bytes produce the same hash; the overwrite retains once
	// and releases once, so the refcount is unchanged net.
	assert.Equal(t, first.Hash, second.Hash)
	rec, err := blobs.Stat(first.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.RefCount)
}

func TestOverwriteReleasesOldBlob(t *testing.T) {
	t.Parallel()

	e, blobs := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	old := mustPutObject(t, e, "b", "k", []byte("version one"), PutObjectParams{})
	updated := mustPutObject(t, e, "b", "k", []byte("version two"), PutObjectParams{})
	assert.NotEqual(t, old.Hash, updated.Hash)

	oldRec, err := blobs.Stat(old.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(0), oldRec.RefCount)
	assert.NotNil(t, oldRec.ZeroRefSince)

	newRec, err := blobs.Stat(updated.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(1), newRec.RefCount)
}

func TestOverwriteKeepsCreationTime(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	first := mustPutObject(t, e, "b", "k", []byte("version one"), PutObjectParams{})
	updated := mustPutObject(t, e, "b", "k", []byte("version two"), PutObjectParams{})

	assert.Equal(t, first.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(first.UpdatedAt))

	got, err := e.GetObject(context.Background(), "b", "k")
	require.NoError(t, err)
	defer got.Body.Close()
	assert.Equal(t, first.CreatedAt, got.Object.CreatedAt)
}

// ============================================================================
// Storage Retry
// ============================================================================

// flakyStorage fails the first failPuts writes, then behaves normally.
type flakyStorage struct {
	backend.Storage
	putCalls int
	failPuts int
}

func (s *flakyStorage) Put(ctx context.Context, id types.BlobID, data io.Reader) (int64, error) {
	s.putCalls++
	if s.failPuts > 0 {
		s.failPuts--
		return 0, errors.New("write failed")
	}
	return s.Storage.Put(ctx, id, data)
}

func newFlakyEngine(t *testing.T, storage backend.Storage) *Engine {
	t.Helper()

	idx, err := index.NewMemoryIndexer[types.BlobID, types.Blob]()
	require.NoError(t, err)
	blobs := blob.NewStore(storage, idx)
	t.Cleanup(func() { blobs.Close() })

	return NewEngine(memory.New(), blobs, types.CacheControlConfig{
		DefaultPolicy: types.CachePolicyNoCache,
		DefaultMaxAge: 3600 * time.Second,
	})
}

func TestPutObjectRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	storage := &flakyStorage{Storage: backend.NewMemory(), failPuts: 1}
	e := newFlakyEngine(t, storage)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	obj, err := e.PutObject(context.Background(), "b", "k", bytes.NewReader([]byte("x")), PutObjectParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), obj.Size)
	assert.Equal(t, 2, storage.putCalls)
}

func TestPutObjectNoRetryAfterCancel(t *testing.T) {
	t.Parallel()

	storage := &flakyStorage{Storage: backend.NewMemory(), failPuts: 2}
	e := newFlakyEngine(t, storage)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.PutObject(ctx, "b", "k", bytes.NewReader([]byte("x")), PutObjectParams{})
	require.Error(t, err)
	assert.Equal(t, 1, storage.putCalls)
}

// ============================================================================
// Cache-Policy Resolution
// ============================================================================

func TestCachePolicyResolution(t *testing.T) {
	t.Parallel()

	// Global default is NoCache.
	e, _ := newTestEngine(t)

	cache := types.CachePolicyCache
	noCache := types.CachePolicyNoCache
	mustCreateBucket(t, e, "b", types.BucketSettings{DefaultCachePolicy: &cache})

	// Object without override inherits the bucket default.
	mustPutObject(t, e, "b", "inherits", []byte("x"), PutObjectParams{})
	res, err := e.GetObject(context.Background(), "b", "inherits")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, types.CachePolicyCache, res.Policy)
	assert.Equal(t, 3600*time.Second, res.MaxAge)

	// Object-level override beats the bucket default.
	mustPutObject(t, e, "b", "overridden", []byte("y"), PutObjectParams{CachePolicy: &noCache})
	res, err = e.GetObject(context.Background(), "b", "overridden")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, types.CachePolicyNoCache, res.Policy)

	// Bucket without a default falls through to the global default.
	mustCreateBucket(t, e, "plain", types.BucketSettings{})
	mustPutObject(t, e, "plain", "k", []byte("z"), PutObjectParams{})
	res, err = e.GetObject(context.Background(), "plain", "k")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, types.CachePolicyNoCache, res.Policy)
}

// ============================================================================
// Cascade Delete
// ============================================================================

func TestDeleteBucketCascades(t *testing.T) {
	t.Parallel()

	e, blobs := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})
	obj1 := mustPutObject(t, e, "b", "k1", []byte("one"), PutObjectParams{})
	obj2 := mustPutObject(t, e, "b", "k2", []byte("two"), PutObjectParams{})

	require.NoError(t, e.DeleteBucket(context.Background(), "b"))

	_, err := e.GetObject(context.Background(), "b", "k1")
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
	_, err = e.GetObject(context.Background(), "b", "k2")
	assert.ErrorIs(t, err, db.ErrBucketNotFound)

	for _, hash := range []types.BlobID{obj1.Hash, obj2.Hash} {
		rec, err := blobs.Stat(hash)
		require.NoError(t, err)
		assert.Equal(t, int64(0), rec.RefCount)
	}
}

func TestDeleteBucketNotFound(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	err := e.DeleteBucket(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
}

// ============================================================================
// Object Lifecycle
// ============================================================================

func TestPutObjectBucketNotFound(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	_, err := e.PutObject(context.Background(), "missing", "k", bytes.NewReader([]byte("x")), PutObjectParams{})
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
}

func TestGetObjectNotFound(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	_, err := e.GetObject(context.Background(), "b", "missing")
	assert.ErrorIs(t, err, db.ErrObjectNotFound)
}

func TestDeleteObjectNotFound(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	err := e.DeleteObject(context.Background(), "b", "missing")
	assert.ErrorIs(t, err, db.ErrObjectNotFound)
}

func TestObjectMetadata(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	expires := time.Now().Add(time.Hour).UTC()
	obj := mustPutObject(t, e, "b", "doc.pdf", []byte("pdf bytes"), PutObjectParams{
		ContentType: "application/pdf",
		Tags:        []string{"reports", "2026"},
		ExpiresAt:   &expires,
	})

	res, err := e.StatObject(context.Background(), "b", "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", res.Object.ContentType)
	assert.Equal(t, []string{"reports", "2026"}, res.Object.Tags)
	assert.Equal(t, obj.Hash, res.Object.Hash)
	require.NotNil(t, res.Object.ExpiresAt)
}

func TestListObjectsPrefixAndPagination(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})
	for _, key := range []string{"logs/a", "logs/b", "logs/c", "img/x"} {
		mustPutObject(t, e, "b", key, []byte(key), PutObjectParams{})
	}

	logs, err := e.ListObjects(context.Background(), "b", db.ListParams{Prefix: "logs/"})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	// Lexicographic by key.
	assert.Equal(t, "logs/a", logs[0].Key)
	assert.Equal(t, "logs/c", logs[2].Key)

	page2, err := e.ListObjects(context.Background(), "b", db.ListParams{Prefix: "logs/", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "logs/c", page2[0].Key)

	empty, err := e.ListObjects(context.Background(), "b", db.ListParams{Prefix: "logs/", Page: 5, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

// ============================================================================
// Expiry
// ============================================================================

func TestGetObjectExpired(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	past := time.Now().Add(-time.Minute)
	mustPutObject(t, e, "b", "stale", []byte("old"), PutObjectParams{ExpiresAt: &past})

	_, err := e.GetObject(context.Background(), "b", "stale")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = e.StatObject(context.Background(), "b", "stale")
	assert.ErrorIs(t, err, ErrExpired)
}

func TestJanitorEvictsExpired(t *testing.T) {
	t.Parallel()

	e, blobs := newTestEngine(t)
	mustCreateBucket(t, e, "b", types.BucketSettings{})

	past := time.Now().Add(-time.Minute)
	stale := mustPutObject(t, e, "b", "stale", []byte("old"), PutObjectParams{ExpiresAt: &past})
	fresh := mustPutObject(t, e, "b", "fresh", []byte("new"), PutObjectParams{})

	j := NewJanitor(e, time.Minute)
	j.Run()

	_, err := e.GetObject(context.Background(), "b", "stale")
	assert.ErrorIs(t, err, db.ErrObjectNotFound)

	staleRec, err := blobs.Stat(stale.Hash)
	require.NoError(t, err)
	assert.Equal(t, int64(0), staleRec.RefCount)

	res, err := e.GetObject(context.Background(), "b", "fresh")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, fresh.Hash, res.Object.Hash)
}

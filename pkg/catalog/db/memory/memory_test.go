// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/types"
)

func newBucket(name string) *types.BucketInfo {
	return &types.BucketInfo{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func newObject(bucketID uuid.UUID, key string) *types.ObjectInfo {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.ObjectInfo{
		BucketID:    bucketID,
		Key:         key,
		Hash:        types.BlobID("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		Size:        3,
		ContentType: "text/plain",
		Tags:        []string{"one", "two"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestBucketRoundTrip(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("photos")
	policy := types.CachePolicyCache
	bucket.Settings = types.BucketSettings{DefaultCachePolicy: &policy, AccessLogging: true}
	require.NoError(t, m.CreateBucket(ctx, bucket))

	got, err := m.GetBucket(ctx, "photos")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(bucket, got))

	assert.ErrorIs(t, m.CreateBucket(ctx, newBucket("photos")), db.ErrBucketExists)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))

	obj := newObject(bucket.ID, "a.txt")
	_, err := m.PutObject(ctx, obj)
	require.NoError(t, err)

	// Mutating a returned record must not leak into the store.
	got, err := m.GetObject(ctx, bucket.ID, "a.txt")
	require.NoError(t, err)
	got.Tags[0] = "mutated"
	got.ContentType = "application/json"

	fresh, err := m.GetObject(ctx, bucket.ID, "a.txt")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(obj, fresh))
}

func TestPutObjectReturnsPrevious(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))

	first := newObject(bucket.ID, "a.txt")
	previous, err := m.PutObject(ctx, first)
	require.NoError(t, err)
	assert.Nil(t, previous)

	second := newObject(bucket.ID, "a.txt")
	second.Hash = types.BlobID("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	previous, err = m.PutObject(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, previous)
	assert.Empty(t, cmp.Diff(first, previous))
}

func TestPutObjectKeepsCreatedAt(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))

	first := newObject(bucket.ID, "a.txt")
	_, err := m.PutObject(ctx, first)
	require.NoError(t, err)

	second := newObject(bucket.ID, "a.txt")
	second.CreatedAt = first.CreatedAt.Add(time.Hour)
	second.UpdatedAt = first.CreatedAt.Add(time.Hour)
	_, err = m.PutObject(ctx, second)
	require.NoError(t, err)

	// The stored row keeps its original creation time across overwrites.
	got, err := m.GetObject(ctx, bucket.ID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.Equal(t, second.UpdatedAt, got.UpdatedAt)
}

func TestDeleteBucketReturnsObjects(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))
	for _, key := range []string{"a", "b", "c"} {
		_, err := m.PutObject(ctx, newObject(bucket.ID, key))
		require.NoError(t, err)
	}

	deleted, err := m.DeleteBucket(ctx, "docs")
	require.NoError(t, err)
	assert.Len(t, deleted, 3)

	_, err = m.GetBucket(ctx, "docs")
	assert.ErrorIs(t, err, db.ErrBucketNotFound)
}

func TestListObjectsPagination(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))
	for _, key := range []string{"logs/a", "logs/b", "logs/c", "media/x"} {
		_, err := m.PutObject(ctx, newObject(bucket.ID, key))
		require.NoError(t, err)
	}

	page, err := m.ListObjects(ctx, bucket.ID, db.ListParams{Prefix: "logs/", Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "logs/a", page[0].Key)
	assert.Equal(t, "logs/b", page[1].Key)

	page, err = m.ListObjects(ctx, bucket.ID, db.ListParams{Prefix: "logs/", Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "logs/c", page[0].Key)

	// Out-of-range page is empty, not an error.
	page, err = m.ListObjects(ctx, bucket.ID, db.ListParams{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestListExpired(t *testing.T) {
	t.Parallel()
	m := New()
	ctx := context.Background()

	bucket := newBucket("docs")
	require.NoError(t, m.CreateBucket(ctx, bucket))

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired := newObject(bucket.ID, "old")
	expired.ExpiresAt = &past
	_, err := m.PutObject(ctx, expired)
	require.NoError(t, err)

	live := newObject(bucket.ID, "fresh")
	live.ExpiresAt = &future
	_, err = m.PutObject(ctx, live)
	require.NoError(t, err)

	got, err := m.ListExpired(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "old", got[0].Key)
}

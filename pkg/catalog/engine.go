// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package catalog implements the bucket/object metadata layer on top of
// the blob store. It owns cache-policy resolution, bucket cascade
// deletion, and the refcount discipline: every object holds exactly one
// reference on its blob, taken before the metadata row becomes visible
// and released when the row goes away.
package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/types"
)

var (
	// ErrExpired marks an object whose expiry timestamp has passed.
	// Cleanup is lazy; reads still never return expired content.
	ErrExpired = errors.New("object expired")

	ErrInvalidBucketName = errors.New("invalid bucket name")
	ErrInvalidObjectKey  = errors.New("invalid object key")
)

const (
	maxBucketNameLen = 255
	maxObjectKeyLen  = 512

	keyLockStripes = 256
)

// Engine is the catalog. All object writes go through per-(bucket, key)
// stripe locks so concurrent puts and deletes on the same key serialize.
type Engine struct {
	db           db.DB
	blobs        *blob.Store
	cacheControl types.CacheControlConfig

	keyLocks [keyLockStripes]sync.Mutex
}

func NewEngine(database db.DB, blobs *blob.Store, cacheControl types.CacheControlConfig) *Engine {
	return &Engine{
		db:           database,
		blobs:        blobs,
		cacheControl: cacheControl,
	}
}

func (e *Engine) lockFor(bucketID uuid.UUID, key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write(bucketID[:])
	h.Write([]byte(key))
	return &e.keyLocks[h.Sum32()%keyLockStripes]
}

// ============================================================================
// Bucket Operations
// ============================================================================

func validBucketName(name string) bool {
	if name == "" || len(name) > maxBucketNameLen {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}

// CreateBucket allocates a UUID and persists the bucket. The name must
// be globally unique.
func (e *Engine) CreateBucket(ctx context.Context, name string, settings types.BucketSettings) (*types.BucketInfo, error) {
	if !validBucketName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBucketName, name)
	}

	bucket := &types.BucketInfo{
		ID:        uuid.New(),
		Name:      name,
		Settings:  settings,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.db.CreateBucket(ctx, bucket); err != nil {
		return nil, err
	}

	logger.Ctx(ctx).Info().Str("bucket", name).Str("id", bucket.ID.String()).Msg("bucket created")
	return bucket, nil
}

func (e *Engine) GetBucket(ctx context.Context, name string) (*types.BucketInfo, error) {
	return e.db.GetBucket(ctx, name)
}

func (e *Engine) ListBuckets(ctx context.Context, params db.ListParams) ([]*types.BucketInfo, error) {
	return e.db.ListBuckets(ctx, params)
}

// UpdateBucketSettings replaces the bucket's settings and returns the
// updated record.
func (e *Engine) UpdateBucketSettings(ctx context.Context, name string, settings types.BucketSettings) (*types.BucketInfo, error) {
	if err := e.db.UpdateBucketSettings(ctx, name, settings); err != nil {
		return nil, err
	}
	return e.db.GetBucket(ctx, name)
}

// DeleteBucket removes the bucket and every object in it, releasing one
// blob reference per deleted object.
func (e *Engine) DeleteBucket(ctx context.Context, name string) error {
	deleted, err := e.db.DeleteBucket(ctx, name)
	if err != nil {
		return err
	}

	for _, obj := range deleted {
		if err := e.blobs.Release(ctx, obj.Hash); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logger.Ctx(ctx).Error().Err(err).
				Str("bucket", name).Str("key", obj.Key).
				Msg("failed to release blob during bucket delete")
		}
	}

	logger.Ctx(ctx).Info().Str("bucket", name).Int("objects", len(deleted)).Msg("bucket deleted")
	return nil
}

// ============================================================================
// Object Operations
// ============================================================================

// PutObjectParams carries the optional metadata of a put.
type PutObjectParams struct {
	ContentType string
	Tags        []string
	CachePolicy *types.CachePolicy
	ExpiresAt   *time.Time
}

// PutObject writes the payload through the blob store, then commits the
// metadata row. The row is the single point of visibility: on a metadata
// failure the fresh blob reference is released again, leaving the system
// as if the put never started. Replacing an existing object releases the
// old blob reference.
func (e *Engine) PutObject(ctx context.Context, bucketName, key string, data io.Reader, params PutObjectParams) (*types.ObjectInfo, error) {
	if key == "" || len(key) > maxObjectKeyLen {
		return nil, fmt.Errorf("%w: %q", ErrInvalidObjectKey, key)
	}

	bucket, err := e.db.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}

	// Read the full body before taking locks; a client disconnect fails
	// here, before any state changes.
	payload, err := io.ReadAll(data)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}

	mu := e.lockFor(bucket.ID, key)
	mu.Lock()
	defer mu.Unlock()

	rec, err := e.blobs.Put(ctx, bytes.NewReader(payload))
	if err != nil && ctx.Err() == nil {
		// Retry transient storage failures once. A caller that is
		// already gone gets no retry.
		rec, err = e.blobs.Put(ctx, bytes.NewReader(payload))
	}
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	obj := &types.ObjectInfo{
		BucketID:    bucket.ID,
		Key:         key,
		Hash:        rec.ID,
		Size:        rec.Size,
		ContentType: params.ContentType,
		CachePolicy: params.CachePolicy,
		ExpiresAt:   params.ExpiresAt,
		Tags:        params.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	previous, err := e.db.PutObject(ctx, obj)
	if err != nil {
		// All-or-nothing: drop the reference the failed put took.
		if relErr := e.blobs.Release(ctx, rec.ID); relErr != nil {
			logger.Ctx(ctx).Error().Err(relErr).Str("hash", rec.ID.String()).
				Msg("failed to roll back blob reference")
		}
		return nil, err
	}

	if previous != nil {
		// The stored row keeps the original creation time; the returned
		// record must match it.
		obj.CreatedAt = previous.CreatedAt
		if err := e.blobs.Release(ctx, previous.Hash); err != nil && !errors.Is(err, blob.ErrNotFound) {
			logger.Ctx(ctx).Error().Err(err).Str("hash", previous.Hash.String()).
				Msg("failed to release replaced blob")
		}
	}
	return obj, nil
}

// ObjectResult is a fetched object plus everything a response needs.
type ObjectResult struct {
	Object *types.ObjectInfo
	Bucket *types.BucketInfo

	// Policy is the resolved cache policy (object, then bucket, then
	// global default); MaxAge always comes from the global default.
	Policy types.CachePolicy
	MaxAge time.Duration

	Body io.ReadCloser
}

// GetObject fetches metadata and opens the payload. Expired objects are
// reported as ErrExpired and never served; their physical cleanup is the
// janitor's job.
func (e *Engine) GetObject(ctx context.Context, bucketName, key string) (*ObjectResult, error) {
	bucket, err := e.db.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	obj, err := e.db.GetObject(ctx, bucket.ID, key)
	if err != nil {
		return nil, err
	}
	if obj.Expired(time.Now()) {
		return nil, ErrExpired
	}

	body, _, err := e.blobs.Get(ctx, obj.Hash)
	if err != nil && !errors.Is(err, blob.ErrNotFound) && ctx.Err() == nil {
		// Retry transient storage failures once. A missing blob or a
		// caller that is already gone gets no retry.
		body, _, err = e.blobs.Get(ctx, obj.Hash)
	}
	if err != nil {
		return nil, err
	}

	return &ObjectResult{
		Object: obj,
		Bucket: bucket,
		Policy: obj.EffectiveCachePolicy(bucket, e.cacheControl.DefaultPolicy),
		MaxAge: e.cacheControl.DefaultMaxAge,
		Body:   body,
	}, nil
}

// StatObject is GetObject without opening the payload.
func (e *Engine) StatObject(ctx context.Context, bucketName, key string) (*ObjectResult, error) {
	bucket, err := e.db.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	obj, err := e.db.GetObject(ctx, bucket.ID, key)
	if err != nil {
		return nil, err
	}
	if obj.Expired(time.Now()) {
		return nil, ErrExpired
	}

	return &ObjectResult{
		Object: obj,
		Bucket: bucket,
		Policy: obj.EffectiveCachePolicy(bucket, e.cacheControl.DefaultPolicy),
		MaxAge: e.cacheControl.DefaultMaxAge,
	}, nil
}

// DeleteObject removes the metadata row and releases the blob reference.
func (e *Engine) DeleteObject(ctx context.Context, bucketName, key string) error {
	bucket, err := e.db.GetBucket(ctx, bucketName)
	if err != nil {
		return err
	}

	mu := e.lockFor(bucket.ID, key)
	mu.Lock()
	defer mu.Unlock()

	obj, err := e.db.DeleteObject(ctx, bucket.ID, key)
	if err != nil {
		return err
	}
	if err := e.blobs.Release(ctx, obj.Hash); err != nil && !errors.Is(err, blob.ErrNotFound) {
		logger.Ctx(ctx).Error().Err(err).Str("hash", obj.Hash.String()).
			Msg("failed to release blob on object delete")
	}
	return nil
}

// ListObjects enumerates a bucket's objects lexicographically by key.
func (e *Engine) ListObjects(ctx context.Context, bucketName string, params db.ListParams) ([]*types.ObjectInfo, error) {
	bucket, err := e.db.GetBucket(ctx, bucketName)
	if err != nil {
		return nil, err
	}
	return e.db.ListObjects(ctx, bucket.ID, params)
}

// evictExpired removes one expired object record and its blob reference.
// Used by the janitor; racing user deletes are fine, a missing row is a
// no-op.
func (e *Engine) evictExpired(ctx context.Context, obj *types.ObjectInfo) error {
	mu := e.lockFor(obj.BucketID, obj.Key)
	mu.Lock()
	defer mu.Unlock()

	current, err := e.db.GetObject(ctx, obj.BucketID, obj.Key)
	if err != nil {
		if errors.Is(err, db.ErrObjectNotFound) {
			return nil
		}
		return err
	}
	// The key may have been overwritten with fresh content since the
	// expired record was listed.
	if !current.Expired(time.Now()) {
		return nil
	}

	deleted, err := e.db.DeleteObject(ctx, obj.BucketID, obj.Key)
	if err != nil {
		if errors.Is(err, db.ErrObjectNotFound) {
			return nil
		}
		return err
	}
	if err := e.blobs.Release(ctx, deleted.Hash); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return err
	}
	return nil
}

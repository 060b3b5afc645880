// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package memory provides an in-memory catalog DB for tests and
// throwaway instances.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/objectionfs/objection/pkg/catalog/db"
	"github.com/objectionfs/objection/pkg/types"
)

type DB struct {
	mu sync.RWMutex

	buckets     map[string]*types.BucketInfo // by name
	bucketOrder []string                     // creation order
	objects     map[uuid.UUID]map[string]*types.ObjectInfo
}

var _ db.DB = (*DB)(nil)

func New() *DB {
	return &DB{
		buckets: make(map[string]*types.BucketInfo),
		objects: make(map[uuid.UUID]map[string]*types.ObjectInfo),
	}
}

func (m *DB) Migrate(ctx context.Context) error {
	return nil
}

func (m *DB) Close() error {
	return nil
}

func copyBucket(b *types.BucketInfo) *types.BucketInfo {
	cp := *b
	if b.Settings.DefaultCachePolicy != nil {
		policy := *b.Settings.DefaultCachePolicy
		cp.Settings.DefaultCachePolicy = &policy
	}
	return &cp
}

func copyObject(o *types.ObjectInfo) *types.ObjectInfo {
	cp := *o
	if o.CachePolicy != nil {
		policy := *o.CachePolicy
		cp.CachePolicy = &policy
	}
	if o.ExpiresAt != nil {
		at := *o.ExpiresAt
		cp.ExpiresAt = &at
	}
	cp.Tags = append([]string(nil), o.Tags...)
	return &cp
}

func (m *DB) CreateBucket(ctx context.Context, bucket *types.BucketInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buckets[bucket.Name]; exists {
		return db.ErrBucketExists
	}
	m.buckets[bucket.Name] = copyBucket(bucket)
	m.bucketOrder = append(m.bucketOrder, bucket.Name)
	m.objects[bucket.ID] = make(map[string]*types.ObjectInfo)
	return nil
}

func (m *DB) GetBucket(ctx context.Context, name string) (*types.BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buckets[name]
	if !ok {
		return nil, db.ErrBucketNotFound
	}
	return copyBucket(b), nil
}

func (m *DB) ListBuckets(ctx context.Context, params db.ListParams) ([]*types.BucketInfo, error) {
	params = params.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	offset := params.Offset()
	if offset >= len(m.bucketOrder) {
		return []*types.BucketInfo{}, nil
	}
	end := offset + params.Limit
	if end > len(m.bucketOrder) {
		end = len(m.bucketOrder)
	}

	out := make([]*types.BucketInfo, 0, end-offset)
	for _, name := range m.bucketOrder[offset:end] {
		out = append(out, copyBucket(m.buckets[name]))
	}
	return out, nil
}

func (m *DB) UpdateBucketSettings(ctx context.Context, name string, settings types.BucketSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return db.ErrBucketNotFound
	}
	b.Settings = settings
	if settings.DefaultCachePolicy != nil {
		policy := *settings.DefaultCachePolicy
		b.Settings.DefaultCachePolicy = &policy
	}
	return nil
}

func (m *DB) DeleteBucket(ctx context.Context, name string) ([]*types.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.buckets[name]
	if !ok {
		return nil, db.ErrBucketNotFound
	}

	var deleted []*types.ObjectInfo
	for _, obj := range m.objects[b.ID] {
		deleted = append(deleted, copyObject(obj))
	}
	delete(m.objects, b.ID)
	delete(m.buckets, name)
	for i, n := range m.bucketOrder {
		if n == name {
			m.bucketOrder = append(m.bucketOrder[:i], m.bucketOrder[i+1:]...)
			break
		}
	}
	return deleted, nil
}

func (m *DB) PutObject(ctx context.Context, obj *types.ObjectInfo) (*types.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucketObjects, ok := m.objects[obj.BucketID]
	if !ok {
		return nil, db.ErrBucketNotFound
	}

	var previous *types.ObjectInfo
	stored := copyObject(obj)
	if old, exists := bucketObjects[obj.Key]; exists {
		previous = copyObject(old)
		// Overwrites keep the row's original creation time.
		stored.CreatedAt = old.CreatedAt
	}
	bucketObjects[obj.Key] = stored
	return previous, nil
}

func (m *DB) GetObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketObjects, ok := m.objects[bucketID]
	if !ok {
		return nil, db.ErrObjectNotFound
	}
	obj, ok := bucketObjects[key]
	if !ok {
		return nil, db.ErrObjectNotFound
	}
	return copyObject(obj), nil
}

func (m *DB) DeleteObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bucketObjects, ok := m.objects[bucketID]
	if !ok {
		return nil, db.ErrObjectNotFound
	}
	obj, ok := bucketObjects[key]
	if !ok {
		return nil, db.ErrObjectNotFound
	}
	delete(bucketObjects, key)
	return copyObject(obj), nil
}

func (m *DB) ListObjects(ctx context.Context, bucketID uuid.UUID, params db.ListParams) ([]*types.ObjectInfo, error) {
	params = params.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	bucketObjects, ok := m.objects[bucketID]
	if !ok {
		return []*types.ObjectInfo{}, nil
	}

	keys := make([]string, 0, len(bucketObjects))
	for key := range bucketObjects {
		if strings.HasPrefix(key, params.Prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	offset := params.Offset()
	if offset >= len(keys) {
		return []*types.ObjectInfo{}, nil
	}
	end := offset + params.Limit
	if end > len(keys) {
		end = len(keys)
	}

	out := make([]*types.ObjectInfo, 0, end-offset)
	for _, key := range keys[offset:end] {
		out = append(out, copyObject(bucketObjects[key]))
	}
	return out, nil
}

func (m *DB) ListExpired(ctx context.Context, now time.Time, limit int) ([]*types.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*types.ObjectInfo
	for _, bucketObjects := range m.objects {
		for _, obj := range bucketObjects {
			if obj.Expired(now) {
				out = append(out, copyObject(obj))
				if limit > 0 && len(out) >= limit {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

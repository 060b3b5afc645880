// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package db defines the catalog metadata store: buckets and the object
// records that point into the blob store.
package db

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/objectionfs/objection/pkg/types"
)

// Driver identifies a metadata store implementation.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverMySQL    Driver = "mysql"
	DriverMemory   Driver = "memory"
)

// Connection pool defaults for SQL-backed implementations.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 300 // seconds
	DefaultConnMaxIdleTime = 60  // seconds
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrBucketExists   = errors.New("bucket already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// ListParams is shared pagination for bucket and object listings.
// Out-of-range pages yield an empty result, not an error.
type ListParams struct {
	Page   int    // 1-based; values < 1 are treated as 1
	Limit  int    // 0 means DefaultListLimit
	Prefix string // object listings only
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Normalize clamps page and limit into their valid ranges.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	return p
}

// Offset returns the row offset for the normalized params.
func (p ListParams) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// DB is the catalog metadata store. Implementations must serialize
// writes at the row level: concurrent writes to the same bucket row or
// the same (bucket, key) object row observe some total order.
type DB interface {
	io.Closer

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	// CreateBucket persists a new bucket. Returns ErrBucketExists when
	// the name is taken.
	CreateBucket(ctx context.Context, bucket *types.BucketInfo) error

	// GetBucket looks a bucket up by name.
	GetBucket(ctx context.Context, name string) (*types.BucketInfo, error)

	// ListBuckets returns buckets in creation order.
	ListBuckets(ctx context.Context, params ListParams) ([]*types.BucketInfo, error)

	// UpdateBucketSettings replaces the settings of an existing bucket.
	UpdateBucketSettings(ctx context.Context, name string, settings types.BucketSettings) error

	// DeleteBucket removes the bucket and cascades to all contained
	// objects. The deleted object records are returned so the caller can
	// release their blob references.
	DeleteBucket(ctx context.Context, name string) ([]*types.ObjectInfo, error)

	// PutObject inserts or replaces the object at (BucketID, Key) and
	// returns the previous record when one was replaced.
	PutObject(ctx context.Context, obj *types.ObjectInfo) (*types.ObjectInfo, error)

	// GetObject looks an object up by bucket and key.
	GetObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error)

	// DeleteObject removes the object and returns its record.
	DeleteObject(ctx context.Context, bucketID uuid.UUID, key string) (*types.ObjectInfo, error)

	// ListObjects enumerates objects in a bucket, lexicographically by
	// key, restricted to keys starting with params.Prefix.
	ListObjects(ctx context.Context, bucketID uuid.UUID, params ListParams) ([]*types.ObjectInfo, error)

	// ListExpired returns up to limit objects whose expiry has passed.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*types.ObjectInfo, error)
}

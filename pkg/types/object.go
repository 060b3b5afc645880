// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"

	"github.com/google/uuid"
)

// ObjectInfo represents object metadata. The payload itself lives in the
// blob store, shared by every object whose content hashes to the same ID.
type ObjectInfo struct {
	BucketID uuid.UUID `json:"bucket_id"`
	Key      string    `json:"key"`
	Hash     BlobID    `json:"hash"`
	Size     int64     `json:"size"`

	ContentType string `json:"content_type,omitempty"`

	// CachePolicy is the per-object override; nil means fall back to the
	// bucket default, then to the global default.
	CachePolicy *CachePolicy `json:"cache_policy,omitempty"`

	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Expired reports whether the object's expiry timestamp has passed.
func (o *ObjectInfo) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !o.ExpiresAt.After(now)
}

// EffectiveCachePolicy resolves the cache policy for this object:
// object override, then bucket default, then the global default.
func (o *ObjectInfo) EffectiveCachePolicy(bucket *BucketInfo, global CachePolicy) CachePolicy {
	if o.CachePolicy != nil {
		return *o.CachePolicy
	}
	if bucket != nil && bucket.Settings.DefaultCachePolicy != nil {
		return *bucket.Settings.DefaultCachePolicy
	}
	return global
}

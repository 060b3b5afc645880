// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"time"

	"github.com/google/uuid"
)

// BucketSettings holds the per-bucket knobs.
type BucketSettings struct {
	// DefaultCachePolicy, when set, overrides the global default cache
	// policy for objects in this bucket that carry no override of their own.
	DefaultCachePolicy *CachePolicy `json:"default_cache_policy,omitempty"`

	// AccessLogging enables per-request access log lines for this bucket.
	AccessLogging bool `json:"access_logging"`
}

// BucketInfo represents bucket metadata
type BucketInfo struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Settings  BucketSettings `json:"settings"`
	CreatedAt time.Time      `json:"created_at"`
}

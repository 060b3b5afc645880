// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"strings"
	"testing"
	"time"

	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCachePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParseCachePolicy("cache")
	require.NoError(t, err)
	assert.Equal(t, CachePolicyCache, p)

	p, err = ParseCachePolicy("no-cache")
	require.NoError(t, err)
	assert.Equal(t, CachePolicyNoCache, p)

	_, err = ParseCachePolicy("NoCache")
	assert.Error(t, err)
}

func TestBlobID(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("hello"))
	id := NewBlobID(sum[:])
	assert.Len(t, string(id), 64)

	parsed, err := ParseBlobID(string(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseBlobID("abc")
	assert.Error(t, err)
	_, err = ParseBlobID(strings.Repeat("z", 64))
	assert.Error(t, err)
}

func TestBlobIDPath(t *testing.T) {
	t.Parallel()

	id := BlobID("2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824")
	assert.Equal(t, "2c/f2/2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", id.Path())
}

func TestObjectExpired(t *testing.T) {
	t.Parallel()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	assert.False(t, (&ObjectInfo{}).Expired(now))
	assert.True(t, (&ObjectInfo{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&ObjectInfo{ExpiresAt: &future}).Expired(now))
}

func TestEffectiveCachePolicy(t *testing.T) {
	t.Parallel()

	cache := CachePolicyCache
	noCache := CachePolicyNoCache

	// No overrides anywhere: global default wins.
	obj := &ObjectInfo{}
	assert.Equal(t, CachePolicyNoCache, obj.EffectiveCachePolicy(&BucketInfo{}, CachePolicyNoCache))

	// Bucket default overrides global.
	bucket := &BucketInfo{Settings: BucketSettings{DefaultCachePolicy: &cache}}
	assert.Equal(t, CachePolicyCache, obj.EffectiveCachePolicy(bucket, CachePolicyNoCache))

	// Object override beats the bucket default.
	obj = &ObjectInfo{CachePolicy: &noCache}
	assert.Equal(t, CachePolicyNoCache, obj.EffectiveCachePolicy(bucket, CachePolicyNoCache))
}

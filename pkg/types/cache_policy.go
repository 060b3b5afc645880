// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import "fmt"

// CachePolicy controls whether an object may be served from cache
// or must always be revalidated.
type CachePolicy string

const (
	CachePolicyCache   CachePolicy = "cache"
	CachePolicyNoCache CachePolicy = "no-cache"
)

// ParseCachePolicy parses the wire/config representation of a cache policy.
func ParseCachePolicy(s string) (CachePolicy, error) {
	switch CachePolicy(s) {
	case CachePolicyCache:
		return CachePolicyCache, nil
	case CachePolicyNoCache:
		return CachePolicyNoCache, nil
	default:
		return "", fmt.Errorf("unknown cache policy: %q", s)
	}
}

func (p CachePolicy) Valid() bool {
	return p == CachePolicyCache || p == CachePolicyNoCache
}

func (p CachePolicy) String() string {
	return string(p)
}

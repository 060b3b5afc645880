// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package types

import (
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"
)

// BlobID is the content address of a blob: the lowercase hex encoding
// of the SHA-256 digest of its bytes.
type BlobID string

const blobIDHexLen = 64

// NewBlobID builds a BlobID from a raw SHA-256 digest.
func NewBlobID(sum []byte) BlobID {
	return BlobID(hex.EncodeToString(sum))
}

// ParseBlobID validates the textual form of a content address.
func ParseBlobID(s string) (BlobID, error) {
	if len(s) != blobIDHexLen {
		return "", fmt.Errorf("blob ID must be %d hex characters, got %d", blobIDHexLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("blob ID is not valid hex: %w", err)
	}
	return BlobID(s), nil
}

func (id BlobID) String() string {
	return string(id)
}

// Path returns the sharded on-disk relative path for the blob,
// e.g. "ab/cd/abcd....". Two shard levels keep directory fanout bounded.
func (id BlobID) Path() string {
	s := string(id)
	return filepath.Join(s[0:2], s[2:4], s)
}

// Blob is the bookkeeping record for one content-addressed payload.
type Blob struct {
	ID   BlobID `json:"id"`
	Size int64  `json:"size"`

	// RefCount counts the objects currently pointing at this blob.
	// The payload is physically erased only after it reaches zero and
	// the garbage collector's grace period has elapsed.
	RefCount int64 `json:"ref_count"`

	// ZeroRefSince is set when RefCount last dropped to zero, and
	// cleared again if a later put revives the blob.
	ZeroRefSince *time.Time `json:"zero_ref_since,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

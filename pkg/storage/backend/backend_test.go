// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/minio/sha256-simd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectionfs/objection/pkg/types"
)

func testBlobID(t *testing.T, payload []byte) types.BlobID {
	t.Helper()
	sum := sha256.Sum256(payload)
	return types.NewBlobID(sum[:])
}

func testStorageRoundTrip(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()
	payload := []byte("some blob bytes")
	id := testBlobID(t, payload)

	exists, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, exists)

	n, err := s.Put(ctx, id, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	exists, err = s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)

	size, err := s.Size(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), size)

	rc, err := s.Get(ctx, id)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.Get(ctx, id)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	// Deleting an absent blob is a no-op.
	assert.NoError(t, s.Delete(ctx, id))
}

func TestLocalStorage(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Type: StorageTypeLocal, Path: t.TempDir()})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, StorageTypeLocal, s.Type())
	testStorageRoundTrip(t, s)
}

func TestMemoryStorage(t *testing.T) {
	t.Parallel()

	s, err := New(Config{Type: StorageTypeMemory})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, StorageTypeMemory, s.Type())
	testStorageRoundTrip(t, s)
}

func TestLocalStorageRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Type: StorageTypeLocal})
	assert.Error(t, err)
}

func TestUnknownStorageType(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Type: "tape"})
	assert.Error(t, err)
}

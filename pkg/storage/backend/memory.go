// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/objectionfs/objection/pkg/types"
)

func init() {
	Register(StorageTypeMemory, func(cfg Config) (Storage, error) {
		return NewMemory(), nil
	})
}

// Memory implements Storage in process memory, for tests.
type Memory struct {
	mu    sync.RWMutex
	blobs map[types.BlobID][]byte
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[types.BlobID][]byte)}
}

func (m *Memory) Type() StorageType {
	return StorageTypeMemory
}

func (m *Memory) Put(ctx context.Context, id types.BlobID, data io.Reader) (int64, error) {
	payload, err := io.ReadAll(data)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = payload
	return int64(len(payload)), nil
}

func (m *Memory) Get(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	m.mu.RLock()
	payload, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

func (m *Memory) Delete(ctx context.Context, id types.BlobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, id)
	return nil
}

func (m *Memory) Exists(ctx context.Context, id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[id]
	return ok, nil
}

func (m *Memory) Size(ctx context.Context, id types.BlobID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.blobs[id]
	if !ok {
		return 0, ErrBlobNotFound
	}
	return int64(len(payload)), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs = make(map[types.BlobID][]byte)
	return nil
}

// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package backend provides physical blob storage implementations.
// All backends implement the Storage interface.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/objectionfs/objection/pkg/types"
)

// ErrBlobNotFound is returned by Get/Size for unknown blob IDs.
var ErrBlobNotFound = errors.New("blob not found")

type StorageType string

const (
	StorageTypeLocal  StorageType = "local"
	StorageTypeMemory StorageType = "memory"
)

// Storage holds the physical bytes of content-addressed blobs.
// Writes must be atomic from the reader's perspective: a concurrent
// Get sees either nothing or the complete payload, never a torn write.
type Storage interface {
	io.Closer
	Type() StorageType
	Put(ctx context.Context, id types.BlobID, data io.Reader) (int64, error)
	Get(ctx context.Context, id types.BlobID) (io.ReadCloser, error)
	Delete(ctx context.Context, id types.BlobID) error
	Exists(ctx context.Context, id types.BlobID) (bool, error)
	Size(ctx context.Context, id types.BlobID) (int64, error)
}

// Config selects and parameterizes a backend.
type Config struct {
	Type StorageType
	Path string
}

// Factory creates a Storage from config
type Factory func(cfg Config) (Storage, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[StorageType]Factory)
)

// Register adds a factory for a storage type
func Register(t StorageType, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[t] = f
}

// New creates a Storage from config
func New(cfg Config) (Storage, error) {
	registryMu.RLock()
	f, ok := registry[cfg.Type]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
	return f(cfg)
}

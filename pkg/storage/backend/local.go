// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/objectionfs/objection/pkg/types"
)

func init() {
	Register(StorageTypeLocal, NewLocal)
}

// Local implements Storage on the local filesystem. Blobs live under
// basePath in two shard levels (ab/cd/abcd...), and every write goes
// through a temp file + rename so readers never see partial content.
type Local struct {
	basePath string
}

// NewLocal creates a local filesystem backend
func NewLocal(cfg Config) (Storage, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("path required for local backend")
	}

	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("create base path: %w", err)
	}

	return &Local{basePath: cfg.Path}, nil
}

func (l *Local) Type() StorageType {
	return StorageTypeLocal
}

func (l *Local) blobPath(id types.BlobID) string {
	return filepath.Join(l.basePath, id.Path())
}

func (l *Local) Put(ctx context.Context, id types.BlobID, data io.Reader) (int64, error) {
	path := l.blobPath(id)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create parent dir: %w", err)
	}

	// Write to a temp file in the target directory, fsync, then rename
	// into place. Rename within one filesystem is atomic, so a blob path
	// either does not exist or holds the full payload.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+string(id)+".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("rename into place: %w", err)
	}
	return n, nil
}

func (l *Local) Get(ctx context.Context, id types.BlobID) (io.ReadCloser, error) {
	f, err := os.Open(l.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return f, nil
}

func (l *Local) Delete(ctx context.Context, id types.BlobID) error {
	err := os.Remove(l.blobPath(id))
	if os.IsNotExist(err) {
		return nil // Already gone
	}
	return err
}

func (l *Local) Exists(ctx context.Context, id types.BlobID) (bool, error) {
	_, err := os.Stat(l.blobPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (l *Local) Size(ctx context.Context, id types.BlobID) (int64, error) {
	info, err := os.Stat(l.blobPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrBlobNotFound
		}
		return 0, err
	}
	return info.Size(), nil
}

func (l *Local) Close() error {
	return nil
}

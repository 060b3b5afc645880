// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package blob implements the content-addressed, reference-counted
// blob store. Payloads are keyed by the SHA-256 of their bytes; putting
// content that already exists only bumps the refcount. Physical deletion
// is never done here, only by the gc sweep once a refcount has sat at
// zero past the grace period.
package blob

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"sync"
	"time"

	"github.com/objectionfs/objection/pkg/storage/backend"
	"github.com/objectionfs/objection/pkg/storage/index"
	"github.com/objectionfs/objection/pkg/types"
	"github.com/objectionfs/objection/pkg/utils"
)

// ErrNotFound is returned for blob IDs with no live entry.
var ErrNotFound = errors.New("blob not found")

const lockStripes = 64

// Store ties the physical backend to the refcount index.
type Store struct {
	backend backend.Storage
	idx     index.Indexer[types.BlobID, types.Blob]

	// Striped by blob ID so that concurrent put/retain/release on the
	// same hash serialize, without one global lock across all blobs.
	locks [lockStripes]sync.Mutex
}

func NewStore(b backend.Storage, idx index.Indexer[types.BlobID, types.Blob]) *Store {
	return &Store{backend: b, idx: idx}
}

func (s *Store) lockFor(id types.BlobID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// Put stores the payload and returns its blob record. If a blob with the
// same content hash already exists, no bytes are written and only the
// reference count is incremented. The returned record reflects the state
// after this call.
func (s *Store) Put(ctx context.Context, data io.Reader) (types.Blob, error) {
	// The content address is only known after hashing the full payload,
	// so spool it into memory while hashing.
	buf := utils.SyncPoolGetBuffer()
	defer utils.SyncPoolPutBuffer(buf)
	hasher := utils.Sha256PoolGetHasher()
	defer utils.Sha256PoolPutHasher(hasher)

	size, err := io.Copy(io.MultiWriter(buf, hasher), data)
	if err != nil {
		return types.Blob{}, fmt.Errorf("read payload: %w", err)
	}
	id := types.NewBlobID(hasher.Sum(nil))

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.idx.Get(id)
	if err == nil {
		// Dedup path: revive a zero-ref blob if the sweep has not
		// claimed it yet, otherwise just bump the count.
		existing.RefCount++
		existing.ZeroRefSince = nil
		if err := s.idx.PutSync(id, existing); err != nil {
			return types.Blob{}, fmt.Errorf("update refcount: %w", err)
		}
		putsTotal.WithLabelValues("dedup").Inc()
		return existing, nil
	}
	if !errors.Is(err, index.ErrKeyNotFound) {
		return types.Blob{}, fmt.Errorf("lookup blob: %w", err)
	}

	if _, err := s.backend.Put(ctx, id, buf); err != nil {
		return types.Blob{}, fmt.Errorf("write blob: %w", err)
	}

	rec := types.Blob{
		ID:        id,
		Size:      size,
		RefCount:  1,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.idx.PutSync(id, rec); err != nil {
		// Metadata is the point of visibility; without the index entry
		// the backend file is an orphan, so clean it up.
		_ = s.backend.Delete(ctx, id)
		return types.Blob{}, fmt.Errorf("index blob: %w", err)
	}

	putsTotal.WithLabelValues("new").Inc()
	bytesWritten.Add(float64(size))
	blobTotalCount.Inc()
	blobTotalBytes.Add(float64(size))
	return rec, nil
}

// Get opens the payload for the given content address.
func (s *Store) Get(ctx context.Context, id types.BlobID) (io.ReadCloser, types.Blob, error) {
	rec, err := s.idx.Get(id)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) {
			return nil, types.Blob{}, ErrNotFound
		}
		return nil, types.Blob{}, fmt.Errorf("lookup blob: %w", err)
	}

	rc, err := s.backend.Get(ctx, id)
	if err != nil {
		if errors.Is(err, backend.ErrBlobNotFound) {
			return nil, types.Blob{}, ErrNotFound
		}
		return nil, types.Blob{}, fmt.Errorf("open blob: %w", err)
	}
	return rc, rec, nil
}

// Stat returns the bookkeeping record without opening the payload.
func (s *Store) Stat(id types.BlobID) (types.Blob, error) {
	rec, err := s.idx.Get(id)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) {
			return types.Blob{}, ErrNotFound
		}
		return types.Blob{}, err
	}
	return rec, nil
}

// Retain increments the reference count for an existing blob.
func (s *Store) Retain(ctx context.Context, id types.BlobID) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.idx.Get(id)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup blob: %w", err)
	}
	rec.RefCount++
	rec.ZeroRefSince = nil
	return s.idx.PutSync(id, rec)
}

// Release decrements the reference count. When it reaches zero the blob
// is stamped for the sweep; the payload stays on disk until the gc
// worker erases it, so a racing Put can still revive it.
func (s *Store) Release(ctx context.Context, id types.BlobID) error {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.idx.Get(id)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup blob: %w", err)
	}
	if rec.RefCount > 0 {
		rec.RefCount--
	}
	if rec.RefCount == 0 && rec.ZeroRefSince == nil {
		now := time.Now().UTC()
		rec.ZeroRefSince = &now
	}
	return s.idx.PutSync(id, rec)
}

// SweepOne physically erases the blob if its refcount is still zero and
// has been zero for at least gracePeriod. Called by the gc worker; the
// stripe lock makes the recheck atomic against a racing Put that revives
// the blob after the sweep candidate was listed.
func (s *Store) SweepOne(ctx context.Context, id types.BlobID, gracePeriod time.Duration) (bool, error) {
	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	rec, err := s.idx.Get(id)
	if err != nil {
		if errors.Is(err, index.ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("lookup blob: %w", err)
	}
	if rec.RefCount > 0 || rec.ZeroRefSince == nil {
		return false, nil
	}
	if time.Since(*rec.ZeroRefSince) < gracePeriod {
		return false, nil
	}

	if err := s.backend.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("delete blob: %w", err)
	}
	if err := s.idx.DeleteSync(id); err != nil {
		return false, fmt.Errorf("delete index entry: %w", err)
	}
	blobTotalCount.Dec()
	blobTotalBytes.Sub(float64(rec.Size))
	return true, nil
}

// Stats reports the blob population in O(1) from the tracked gauges.
type Stats struct {
	TotalBlobs int64
	TotalBytes int64
}

func (s *Store) Stats() Stats {
	return Stats{
		TotalBlobs: int64(getGaugeValue(blobTotalCount)),
		TotalBytes: int64(getGaugeValue(blobTotalBytes)),
	}
}

// RefreshStats recounts the gauges from the index. Called once at
// startup since the gauges do not survive a restart.
func (s *Store) RefreshStats() error {
	var count, bytes int64
	err := s.idx.Iterate(func(_ types.BlobID, rec types.Blob) error {
		count++
		bytes += rec.Size
		return nil
	})
	if err != nil {
		return err
	}
	blobTotalCount.Set(float64(count))
	blobTotalBytes.Set(float64(bytes))
	return nil
}

// Index exposes the refcount index for the gc sweep.
func (s *Store) Index() index.Indexer[types.BlobID, types.Blob] {
	return s.idx
}

// Backend exposes the physical storage for the gc sweep.
func (s *Store) Backend() backend.Storage {
	return s.backend
}

func (s *Store) Close() error {
	err := s.idx.Close()
	if berr := s.backend.Close(); err == nil {
		err = berr
	}
	return err
}

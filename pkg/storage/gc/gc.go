// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectionfs/objection/pkg/debug"
	"github.com/objectionfs/objection/pkg/logger"
	"github.com/objectionfs/objection/pkg/storage/blob"
	"github.com/objectionfs/objection/pkg/types"
)

var (
	gcBlobsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "objection",
		Subsystem: "gc",
		Name:      "blobs_deleted_total",
		Help:      "Total number of blobs deleted by GC",
	})

	gcBytesReclaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "objection",
		Subsystem: "gc",
		Name:      "bytes_reclaimed_total",
		Help:      "Total bytes reclaimed by GC",
	})

	gcRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "objection",
		Subsystem: "gc",
		Name:      "runs_total",
		Help:      "Total number of GC runs",
	})
)

func init() {
	debug.Registry().MustRegister(
		gcBlobsDeleted,
		gcBytesReclaimed,
		gcRunsTotal,
	)
}

// Default grace period before deleting blobs with RefCount == 0
const DefaultGracePeriod = 5 * time.Minute

// Worker garbage collects unreferenced blobs. Release never deletes in
// the request path; it only stamps ZeroRefSince. The worker sweeps
// stamped blobs once the grace period has passed, rechecking the
// refcount under the store's lock so a racing put wins.
type Worker struct {
	store       *blob.Store
	interval    time.Duration
	gracePeriod time.Duration
	concurrency int
	stopCh      chan struct{}

	// OnBlobDeleted is called after a blob is physically erased
	onBlobDeleted OnBlobDeleted
}

// OnBlobDeleted is called when a blob is successfully deleted by GC
type OnBlobDeleted func(b types.Blob)

// WorkerConfig holds configuration for Worker
type WorkerConfig struct {
	Store         *blob.Store
	Interval      time.Duration
	GracePeriod   time.Duration // 0 means use DefaultGracePeriod
	Concurrency   int           // 0 means use default (5)
	OnBlobDeleted OnBlobDeleted // Optional callback when a blob is deleted
}

// NewWorker creates a new GC worker with default grace period and concurrency
func NewWorker(store *blob.Store, interval time.Duration) *Worker {
	return NewWorkerWithConfig(WorkerConfig{Store: store, Interval: interval})
}

// NewWorkerWithConfig creates a new GC worker with full configuration
func NewWorkerWithConfig(cfg WorkerConfig) *Worker {
	gracePeriod := cfg.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = DefaultGracePeriod
	}

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 5
	}

	return &Worker{
		store:         cfg.Store,
		interval:      cfg.Interval,
		gracePeriod:   gracePeriod,
		concurrency:   concurrency,
		stopCh:        make(chan struct{}),
		onBlobDeleted: cfg.OnBlobDeleted,
	}
}

// Start runs the GC loop in a goroutine
func (gc *Worker) Start() {
	if gc.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(gc.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				gc.Run()
			case <-gc.stopCh:
				return
			}
		}
	}()
}

// Stop signals the GC worker to exit
func (gc *Worker) Stop() {
	close(gc.stopCh)
}

// Run performs a single GC pass
func (gc *Worker) Run() {
	gc.RunWithGracePeriod(gc.gracePeriod)
}

// RunWithGracePeriod performs a single GC pass with a specific grace period.
// Use gracePeriod=0 to skip the grace period check (force immediate deletion).
func (gc *Worker) RunWithGracePeriod(gracePeriod time.Duration) {
	gcRunsTotal.Inc()

	// Candidates only; SweepOne rechecks everything under the stripe lock.
	ch := gc.store.Index().Stream(func(b types.Blob) bool {
		return b.RefCount == 0 && b.ZeroRefSince != nil
	})

	var wg sync.WaitGroup
	sem := make(chan struct{}, gc.concurrency)
	var deleted, skipped atomic.Int64
	var reclaimed atomic.Int64

	for b := range ch {
		sem <- struct{}{}
		wg.Add(1)
		go func(b types.Blob) {
			defer wg.Done()
			defer func() { <-sem }()

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ok, err := gc.store.SweepOne(ctx, b.ID, gracePeriod)
			if err != nil {
				logger.Error().Err(err).Msgf("gc: failed to delete blob %s", b.ID)
				return
			}
			if !ok {
				skipped.Add(1)
				return
			}

			deleted.Add(1)
			reclaimed.Add(b.Size)
			gcBlobsDeleted.Inc()
			gcBytesReclaimed.Add(float64(b.Size))
			if gc.onBlobDeleted != nil {
				gc.onBlobDeleted(b)
			}
		}(b)
	}

	wg.Wait()

	deletedCount := deleted.Load()
	skippedCount := skipped.Load()
	if deletedCount > 0 || skippedCount > 0 {
		logger.Info().
			Int64("deleted", deletedCount).
			Int64("skipped", skippedCount).
			Str("reclaimed", humanize.Bytes(uint64(reclaimed.Load()))).
			Dur("grace_period", gracePeriod).
			Msg("GC pass completed")
	}
}

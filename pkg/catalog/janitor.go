// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package catalog

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectionfs/objection/pkg/debug"
	"github.com/objectionfs/objection/pkg/logger"
)

var janitorEvicted = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "objection",
	Subsystem: "catalog",
	Name:      "expired_objects_evicted_total",
	Help:      "Expired objects removed by the janitor",
})

func init() {
	debug.Registry().MustRegister(janitorEvicted)
}

const (
	DefaultJanitorInterval = time.Minute
	DefaultJanitorBatch    = 500
)

// Janitor lazily evicts expired objects. Reads already refuse expired
// content, so the janitor only reclaims metadata rows and blob
// references in the background.
type Janitor struct {
	engine   *Engine
	interval time.Duration
	batch    int
	stopCh   chan struct{}
}

func NewJanitor(engine *Engine, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{
		engine:   engine,
		interval: interval,
		batch:    DefaultJanitorBatch,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the eviction loop in a goroutine
func (j *Janitor) Start() {
	go func() {
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				j.Run()
			case <-j.stopCh:
				return
			}
		}
	}()
}

// Stop signals the janitor to exit
func (j *Janitor) Stop() {
	close(j.stopCh)
}

// Run performs a single eviction pass
func (j *Janitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := j.engine.db.ListExpired(ctx, time.Now(), j.batch)
	if err != nil {
		logger.Error().Err(err).Msg("janitor: failed to list expired objects")
		return
	}

	var evicted int
	for _, obj := range expired {
		if err := j.engine.evictExpired(ctx, obj); err != nil {
			logger.Error().Err(err).Str("key", obj.Key).Msg("janitor: failed to evict expired object")
			continue
		}
		evicted++
	}

	if evicted > 0 {
		janitorEvicted.Add(float64(evicted))
		logger.Info().Int("evicted", evicted).Msg("janitor pass completed")
	}
}

// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package gate

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/objectionfs/objection/pkg/api/apierr"
	"github.com/objectionfs/objection/pkg/types"
)

const limiterCleanupInterval = 5 * time.Minute

// RateLimitFilter applies a token bucket per caller address: one token
// refills every DefaultPeriod, up to DefaultBurstSize. The bucket state
// is shared across concurrent requests from the same caller, so two
// requests can never both pass a bucket with capacity for one.
type RateLimitFilter struct {
	cfg      *types.RateLimitingConfig
	limiters sync.Map // client IP -> *clientLimiter
	stopCh   chan struct{}
	stopOnce sync.Once
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64 // Unix timestamp
}

func NewRateLimitFilter(cfg *types.RateLimitingConfig) *RateLimitFilter {
	f := &RateLimitFilter{
		cfg:    cfg,
		stopCh: make(chan struct{}),
	}
	go f.cleanupLoop()
	return f
}

func (f *RateLimitFilter) Type() string {
	return "rate_limit"
}

func (f *RateLimitFilter) Run(d *Data) (Response, error) {
	key := ClientIP(d.Req)
	if key == "" {
		// No per-caller identity available; fall back to one shared bucket.
		key = "global"
	}

	if !f.limiterFor(key).Allow() {
		return nil, apierr.ErrTooManyRequests
	}
	return Next{}, nil
}

// Stop terminates the cleanup goroutine.
func (f *RateLimitFilter) Stop() {
	f.stopOnce.Do(func() { close(f.stopCh) })
}

func (f *RateLimitFilter) limiterFor(key string) *rate.Limiter {
	if v, ok := f.limiters.Load(key); ok {
		cl := v.(*clientLimiter)
		cl.lastUsed.Store(time.Now().Unix())
		return cl.limiter
	}

	cl := &clientLimiter{
		limiter: rate.NewLimiter(rate.Every(f.cfg.DefaultPeriod), f.cfg.DefaultBurstSize),
	}
	cl.lastUsed.Store(time.Now().Unix())

	actual, _ := f.limiters.LoadOrStore(key, cl)
	return actual.(*clientLimiter).limiter
}

// cleanupLoop periodically removes limiters for callers not seen in a
// while, to keep the map from growing without bound.
func (f *RateLimitFilter) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * limiterCleanupInterval).Unix()
			f.limiters.Range(func(key, value any) bool {
				if value.(*clientLimiter).lastUsed.Load() < cutoff {
					f.limiters.Delete(key)
				}
				return true
			})
		case <-f.stopCh:
			return
		}
	}
}

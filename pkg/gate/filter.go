// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

// Package gate implements the request-admission pipeline: an ordered
// chain of independent filters every request passes before it reaches
// the catalog. Order is fixed so the cheapest checks reject first.
package gate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/objectionfs/objection/pkg/debug"
	"github.com/objectionfs/objection/pkg/types"
)

var (
	metricErrorCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_filter_error_count",
		Help: "Number of rejections per filter",
	}, []string{"filter"})
	metricRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gate_filter_run_duration_seconds",
		Help:    "Duration of filter runs in seconds",
		Buckets: prometheus.DefBuckets,
	})
	metricRequestCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_filter_request_count",
		Help: "Number of requests processed per filter",
	}, []string{"filter"})
	metricContextCancelled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_filter_context_cancelled_count",
		Help: "Number of requests cancelled mid-filter",
	}, []string{"filter"})
)

func init() {
	debug.Registry().MustRegister(
		metricErrorCount,
		metricRunDuration,
		metricRequestCount,
		metricContextCancelled,
	)
}

type Response interface {
	IsEnd() bool
}

// Next tells the chain to continue with the following filter.
type Next struct{}

func (n Next) IsEnd() bool {
	return false
}

// End tells the chain the filter fully handled the request
// (e.g. a completed CORS preflight).
type End struct{}

func (e End) IsEnd() bool {
	return true
}

type Filter interface {
	Run(d *Data) (Response, error)
	Type() string
}

type Chain struct {
	filters []Filter
}

func NewChain() *Chain {
	return &Chain{filters: make([]Filter, 0)}
}

func (c *Chain) AddFilter(f Filter) {
	c.filters = append(c.filters, f)
}

// Run pushes the request through every filter in order. It returns the
// name of the filter that stopped the request (rejection or End), or ""
// when the request passed the whole chain.
func (c *Chain) Run(d *Data) (string, error) {
	for _, filter := range c.filters {
		t := time.Now()
		resp, err := filter.Run(d)
		metricRunDuration.Observe(time.Since(t).Seconds())
		metricRequestCount.WithLabelValues(filter.Type()).Inc()

		if d.Ctx.Err() != nil {
			metricContextCancelled.WithLabelValues(filter.Type()).Inc()
			return filter.Type(), d.Ctx.Err()
		}

		if err != nil {
			metricErrorCount.WithLabelValues(filter.Type()).Inc()
			return filter.Type(), err
		}
		if resp.IsEnd() {
			return filter.Type(), nil
		}
	}
	return "", nil
}

// Stop terminates any background goroutines held by filters.
func (c *Chain) Stop() {
	for _, f := range c.filters {
		if s, ok := f.(interface{ Stop() }); ok {
			s.Stop()
		}
	}
}

// BuildChain wires the standard filter order from the validated config.
// A filter is only present when its config section is; an absent section
// means that concern is a no-op.
func BuildChain(cfg *types.Config) *Chain {
	chain := NewChain()
	if cfg.IPFilter != nil {
		chain.AddFilter(NewIPFilter(cfg.IPFilter))
	}
	if cfg.RateLimiting != nil {
		chain.AddFilter(NewRateLimitFilter(cfg.RateLimiting))
	}
	if cfg.AccessControl.TokensEnabled {
		chain.AddFilter(NewAccessTokenFilter(cfg.AccessControl))
	}
	if cfg.ContentTypes != nil {
		chain.AddFilter(NewContentTypeFilter(cfg.ContentTypes))
	}
	if cfg.CORS != nil {
		chain.AddFilter(NewCORSFilter(cfg.CORS))
	}
	return chain
}

// Copyright 2025 Objection Authors
// SPDX-License-Identifier: Apache-2.0

package blob

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	prometheusgo "github.com/prometheus/client_model/go"
)

var (
	putsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "objection",
		Subsystem: "blob_store",
		Name:      "puts_total",
		Help:      "Blob puts, partitioned by whether the content was deduplicated.",
	}, []string{"outcome"})

	bytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "objection",
		Subsystem: "blob_store",
		Name:      "bytes_written_total",
		Help:      "Payload bytes physically written to the backend.",
	})

	blobTotalCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "objection",
		Subsystem: "blob_store",
		Name:      "blobs",
		Help:      "Number of blobs currently stored.",
	})

	blobTotalBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "objection",
		Subsystem: "blob_store",
		Name:      "blob_bytes",
		Help:      "Payload bytes currently stored.",
	})
)

// getGaugeValue extracts the current value from a prometheus Gauge
func getGaugeValue(g prometheus.Gauge) float64 {
	var m prometheusgo.Metric
	if err := g.Write(&m); err != nil {
		return 0
	}
	if m.Gauge != nil {
		return m.Gauge.GetValue()
	}
	return 0
}

// Copyright 2026 HardCard Authors
// SPDX-License-Identifier: Apache-2.0

package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	prometheusgo "github.com/prometheus/client_model/go"
)

// Chunk transition results, used as the chunks_total label.
const (
	resultUploaded    = "uploaded"
	resultTransient   = "transient"
	resultPermanent   = "permanent"
	resultRateLimited = "rate_limited"
	resultIntegrity   = "integrity"
	resultCanceled    = "canceled"
)

var (
	chunksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "chunks_total",
			Help:      "Chunk upload attempts by transition result",
		},
		[]string{"result"},
	)
	chunkUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "upload_duration_seconds",
			Help:      "Duration of successful chunk uploads in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"remote"},
	)
	bytesUploadedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "bytes_uploaded_total",
			Help:      "Total bytes with a confirmed remote acknowledgement",
		},
	)
	chunksInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "chunks_in_flight",
			Help:      "Chunk uploads currently holding a worker slot",
		},
	)
	rateLimitSuspensionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "rate_limit_suspensions_total",
			Help:      "Global admission suspensions triggered by rate-limit signals",
		},
	)
	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "smarthub",
			Subsystem: "scheduler",
			Name:      "retries_total",
			Help:      "Chunk attempts re-queued after a transient failure",
		},
	)
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

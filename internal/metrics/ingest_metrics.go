// Package metrics exposes Prometheus instrumentation for the ingestion
// engine. All metrics are low-cardinality: labels carry provider class,
// status, or action verb, never io_ids or task ids.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceTotal counts VLM calls by provider and outcome.
	InferenceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vm_inference_total",
			Help: "Total VLM inference calls by provider and status",
		},
		[]string{"provider", "status"},
	)

	// InferenceLatency tracks end-to-end VLM call latency.
	InferenceLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vm_inference_latency_ms",
			Help:    "VLM inference latency in milliseconds",
			Buckets: []float64{200, 500, 1000, 2000, 5000, 10000, 20000},
		},
		[]string{"provider"},
	)

	// FramesReadTotal counts frames successfully read from capture.
	FramesReadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vm_frames_read_total",
			Help: "Total frames read from capture devices",
		},
	)

	// FramesDedupedTotal counts frames skipped by the dedupe gate.
	FramesDedupedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vm_frames_deduped_total",
			Help: "Total frames skipped as near-duplicates",
		},
	)

	// ReconnectsTotal counts capture reconnect cycles.
	ReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vm_capture_reconnects_total",
			Help: "Total capture handle reconnect cycles",
		},
	)

	// ActiveIngestors gauges how many camera engines are running.
	ActiveIngestors = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vm_active_ingestors",
			Help: "Number of running per-camera ingestion engines",
		},
	)

	// ActionsTotal counts dispatched actions by verb and outcome.
	ActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vm_actions_total",
			Help: "Total dispatched actions by verb and status",
		},
		[]string{"verb", "status"},
	)
)

func RecordInference(provider, status string) {
	InferenceTotal.WithLabelValues(provider, status).Inc()
}

func RecordInferenceLatency(provider string, latencyMs float64) {
	InferenceLatency.WithLabelValues(provider).Observe(latencyMs)
}

func RecordAction(verb, status string) {
	ActionsTotal.WithLabelValues(verb, status).Inc()
}

// Package metrics exposes prometheus instrumentation for the chat service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Relay metrics
	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_relay_requests_total",
			Help: "Total relay exchanges by outcome",
		},
		[]string{"outcome"}, // "completed", "interrupted", "upstream_error", "store_error"
	)

	RelayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatrelay_relay_duration_seconds",
			Help:    "Relay exchange duration, first byte in to final persist",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	RelayTokens = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_relay_tokens_total",
			Help: "Total content tokens reconstructed from upstream streams",
		},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_sessions_created_total",
			Help: "Total sessions created",
		},
	)

	SessionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_sessions_deleted_total",
			Help: "Total session delete requests",
		},
	)
)

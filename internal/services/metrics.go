// Package services – Prometheus instrumentation for the gateway pipeline.
//
// HTTP-level metrics live in the middleware package; the collectors here
// track pipeline outcomes that route-level labels cannot see (dedup hits,
// buffer behavior, handoff suppression, handler latency by key).
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// gatewayDedup counts idempotency outcomes by kind
	// (fresh, duplicate, duplicate_in_flight, replay).
	gatewayDedup = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_dedup_events_total",
			Help: "Idempotency reservation outcomes for inbound events.",
		},
		[]string{"outcome"},
	)

	// gatewayBuffer counts debounce decisions (buffered, flush, bypass).
	gatewayBuffer = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_buffer_decisions_total",
			Help: "Message buffer decisions per inbound message.",
		},
		[]string{"decision"},
	)

	// gatewayHandoff counts suppressed bot replies during human handoff.
	gatewayHandoff = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_handoff_suppressed_total",
			Help: "Bot replies suppressed because a human agent replied recently.",
		},
	)

	// gatewayHandlerLat records conversational handler latency by key.
	gatewayHandlerLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_handler_duration_seconds",
			Help:    "Duration of conversational handler invocations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler"},
	)
)

func init() {
	prometheus.MustRegister(gatewayDedup, gatewayBuffer, gatewayHandoff, gatewayHandlerLat)
}

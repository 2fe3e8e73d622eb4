package upstream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealership_upstream_requests_total",
			Help: "Upstream calls by upstream, method and outcome (success, error, rejected)",
		},
		[]string{"upstream", "method", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dealership_upstream_request_duration_seconds",
			Help:    "Duration of upstream calls in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	// Values: 0=closed, 1=open, 2=half-open
	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dealership_upstream_breaker_state",
			Help: "Circuit breaker state per upstream",
		},
		[]string{"upstream"},
	)
)

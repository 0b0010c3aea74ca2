// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BackendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_backend_requests_total",
			Help: "Total number of royalty backend calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	BackendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "portal_backend_request_duration_seconds",
			Help: "Duration of royalty backend calls in seconds",
		},
		[]string{"endpoint"},
	)

	GuardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_guard_decisions_total",
			Help: "Route guard outcomes",
		},
		[]string{"guard", "decision"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_cache_lookups_total",
			Help: "Resource cache lookups by resource and result",
		},
		[]string{"resource", "result"},
	)

	OnboardingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_onboarding_transitions_total",
			Help: "Onboarding state machine transitions",
		},
		[]string{"from", "to"},
	)

	OAuthExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_oauth_exchanges_total",
			Help: "QuickBooks callback outcomes",
		},
		[]string{"outcome"},
	)

	BreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "portal_backend_breaker_open",
			Help: "1 while the backend circuit breaker is open",
		},
		[]string{"name"},
	)
)

// Package metrics defines the Prometheus instrumentation the
// authentication service, credential validator, and rotation
// controller report through (spec §4.6 "Metrics emitted per call" and
// §1's "it emits metrics only" non-goal on anomaly classification).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// AuthAttempts counts authenticateHeaders calls, tagged by
	// clientId, outcome ("success", "invalid_credentials",
	// "vault_unavailable", "internal"), and whether the match was served
	// from the degraded-mode fallback credential cache (spec §4.3/§8's
	// "degraded=true tag on the auth metric").
	AuthAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_auth_attempts_total",
		Help: "Authentication attempts by clientId, outcome, and degraded-mode flag.",
	}, []string{"client_id", "outcome", "degraded"})

	// AuthDuration observes authenticateHeaders latency in seconds.
	AuthDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_auth_duration_seconds",
		Help:    "Authentication request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"client_id"})

	// ValidationFailures counts credential-validator mismatches, tagged
	// by clientId, per spec §4.4 step 3.
	ValidationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_credential_validation_failures_total",
		Help: "Credential validation failures by clientId.",
	}, []string{"client_id"})

	// VaultRequests counts vault client calls by operation and outcome.
	VaultRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_vault_requests_total",
		Help: "Vault client requests by operation and outcome.",
	}, []string{"operation", "outcome"})

	// RotationState reports the current state of each in-flight
	// rotation as a gauge set to 1 for the active state, 0 otherwise,
	// so a dashboard can show rotation progress per client.
	RotationState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_rotation_state",
		Help: "Current rotation state per clientId; 1 for the active state.",
	}, []string{"client_id", "state"})

	// RotationTransitions counts state-machine advances, tagged by the
	// from/to states.
	RotationTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_rotation_transitions_total",
		Help: "Rotation state transitions by from/to state.",
	}, []string{"from", "to"})

	// ForwardedRequests counts forwarder calls by downstream outcome.
	ForwardedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_forwarded_requests_total",
		Help: "Requests forwarded downstream by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(
		AuthAttempts,
		AuthDuration,
		ValidationFailures,
		VaultRequests,
		RotationState,
		RotationTransitions,
		ForwardedRequests,
	)
}

// Recorder adapts the package-level collectors to the narrow
// credentials.Metrics interface, so internal/credentials need not
// import this package or prometheus directly.
type Recorder struct{}

// RecordValidationFailure implements credentials.Metrics.
func (Recorder) RecordValidationFailure(clientID string) {
	ValidationFailures.WithLabelValues(clientID).Inc()
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

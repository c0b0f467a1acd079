// Package metrics provides Prometheus metrics for stream sessions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sessionsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filecast",
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Sessions successfully started",
	}, []string{"protocol"})

	sessionsStopped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filecast",
		Subsystem: "session",
		Name:      "stopped_total",
		Help:      "Sessions stopped, by reason",
	}, []string{"reason"})

	startFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filecast",
		Subsystem: "session",
		Name:      "start_failures_total",
		Help:      "Rejected or failed start attempts",
	}, []string{"kind"})

	terminationErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "filecast",
		Subsystem: "session",
		Name:      "termination_errors_total",
		Help:      "Termination requests that could not be delivered",
	})

	sessionActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "filecast",
		Subsystem: "session",
		Name:      "active",
		Help:      "1 while a session is active",
	})

	viewerLaunches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "filecast",
		Subsystem: "viewer",
		Name:      "launches_total",
		Help:      "Viewer launch attempts, by result",
	}, []string{"result"})
)

// Start failure kinds.
const (
	FailureValidation = "validation"
	FailureLaunch     = "launch"
)

// SessionStarted records a started session.
func SessionStarted(protocol string) {
	sessionsStarted.WithLabelValues(protocol).Inc()
	sessionActive.Set(1)
}

// SessionStopped records a stopped session.
func SessionStopped(reason string) {
	sessionsStopped.WithLabelValues(reason).Inc()
	sessionActive.Set(0)
}

// StartFailed records a rejected or failed start.
func StartFailed(kind string) {
	startFailures.WithLabelValues(kind).Inc()
}

// TerminationFailed records a termination request that could not be delivered.
func TerminationFailed() {
	terminationErrors.Inc()
}

// ViewerLaunched records a viewer launch attempt.
func ViewerLaunched(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	viewerLaunches.WithLabelValues(result).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

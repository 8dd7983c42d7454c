// Package metrics defines Prometheus metrics for authentication and session activity.
//
// All metrics are registered with Registry, which the server exposes on /metrics.
// Metric naming follows Prometheus conventions:
//   - taskhub_ prefix for all custom metrics
//   - _total suffix for counters
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Login results
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginUnverified  = "unverified"
	LoginMaintenance = "maintenance"
	LoginError       = "error"
)

var (
	// Registry holds every taskhub metric plus the Go and process collectors.
	Registry = prometheus.NewRegistry()

	// LoginsTotal counts login attempts by result.
	LoginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_logins_total",
			Help: "Total login attempts by result.",
		},
		[]string{"result"},
	)

	// AuthFailuresTotal counts rejected requests by machine code.
	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskhub_auth_failures_total",
			Help: "Total requests rejected by authentication or authorization, by code.",
		},
		[]string{"code"},
	)

	// SessionsEvictedTotal counts sessions removed to keep users under the session cap.
	SessionsEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_sessions_evicted_total",
			Help: "Total sessions evicted by the per-user session cap.",
		},
	)

	// SessionsSweptTotal counts expired or inactive sessions removed by the sweep.
	SessionsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "taskhub_sessions_swept_total",
			Help: "Total expired or inactive sessions removed by the periodic sweep.",
		},
	)

	// RealtimeConnections is the number of open websocket connections on this process.
	RealtimeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskhub_realtime_connections",
			Help: "Number of open realtime websocket connections.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		LoginsTotal,
		AuthFailuresTotal,
		SessionsEvictedTotal,
		SessionsSweptTotal,
		RealtimeConnections,
	)
}

// Handler serves Registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// RecordLogin records a single login attempt.
func RecordLogin(result string) {
	LoginsTotal.WithLabelValues(result).Inc()
}

// RecordAuthFailure records a single rejected request.
func RecordAuthFailure(code string) {
	AuthFailuresTotal.WithLabelValues(code).Inc()
}

func RecordEvictions(n int) {
	if n > 0 {
		SessionsEvictedTotal.Add(float64(n))
	}
}

func RecordSwept(n int64) {
	if n > 0 {
		SessionsSweptTotal.Add(float64(n))
	}
}

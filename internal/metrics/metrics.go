// Package metrics registers the prometheus series the balancer reports on
// every dispatch: a total counter, an in-flight gauge, a per-backend
// latency histogram and a per-backend per-status counter.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the request path.
type Metrics struct {
	Requests prometheus.Counter
	InFlight prometheus.Gauge
	Duration *prometheus.HistogramVec
	Status   *prometheus.CounterVec
}

// New builds the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "klein_http_requests_total",
			Help:        "Number of HTTP requests made.",
			ConstLabels: prometheus.Labels{"handler": "all"},
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "klein_num_http_requests",
			Help:        "Number of requests currently in flight.",
			ConstLabels: prometheus.Labels{"handler": "all"},
		}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "klein_http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds.",
		}, []string{"backend"}),
		Status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "klein_http_response_status_code",
			Help: "Responses by backend and status code.",
		}, []string{"backend", "status_code"}),
	}
	reg.MustRegister(m.Requests, m.InFlight, m.Duration, m.Status)
	return m
}

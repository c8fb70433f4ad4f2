package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// clientRequestsTotal counts outgoing requests by method and status.
	clientRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_requests_total",
			Help: "Total number of outgoing HTTP requests",
		},
		[]string{"method", "status"},
	)

	// clientRequestDuration measures outgoing request duration.
	clientRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpclient_request_duration_seconds",
			Help:    "Duration of outgoing HTTP requests in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method"},
	)

	// clientRequestsInFlight tracks currently in-flight outgoing requests.
	clientRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpclient_requests_in_flight",
			Help: "Number of outgoing HTTP requests currently in flight",
		},
	)

	// breakerTransitionsTotal counts circuit breaker state transitions.
	breakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpclient_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)

// recordBreakerTransition records a circuit breaker state transition.
func recordBreakerTransition(name, from, to string) {
	breakerTransitionsTotal.WithLabelValues(name, from, to).Inc()
}

// MetricsTransport records Prometheus metrics around the downstream call.
type MetricsTransport struct {
	next http.RoundTripper
}

// NewMetricsTransport creates a metrics transport over next. A nil next
// defaults to http.DefaultTransport.
func NewMetricsTransport(next http.RoundTripper) *MetricsTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &MetricsTransport{next: next}
}

// Metrics returns a Middleware recording request metrics.
func Metrics() Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return NewMetricsTransport(next)
	}
}

// RoundTrip implements http.RoundTripper.
func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	clientRequestsInFlight.Inc()
	defer clientRequestsInFlight.Dec()

	resp, err := t.next.RoundTrip(req)

	status := "error"
	if err == nil {
		status = strconv.Itoa(resp.StatusCode)
	}

	clientRequestsTotal.WithLabelValues(req.Method, status).Inc()
	clientRequestDuration.WithLabelValues(req.Method).Observe(time.Since(start).Seconds())

	return resp, err
}

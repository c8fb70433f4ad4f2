package retry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// retryAttemptsTotal counts retry attempts across all policies.
var retryAttemptsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "httpclient_retry_attempts_total",
		Help: "Total number of HTTP request retry attempts",
	},
)

// recordRetry records a retry attempt.
func recordRetry() {
	retryAttemptsTotal.Inc()
}

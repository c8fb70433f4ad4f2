package credential

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// credentialLoadsTotal counts load operations by outcome.
	credentialLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_loads_total",
			Help: "Total number of credential load operations",
		},
		[]string{"status"},
	)

	// credentialSavesTotal counts save operations by outcome.
	credentialSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_saves_total",
			Help: "Total number of credential save operations",
		},
		[]string{"status"},
	)

	// credentialUpdatesTotal counts update operations by outcome.
	credentialUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "credential_updates_total",
			Help: "Total number of credential update operations",
		},
		[]string{"status"},
	)

	// credentialTokenPresent reports whether a bearer token is currently held.
	credentialTokenPresent = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "credential_token_present",
			Help: "Whether a bearer token is currently held (1) or not (0)",
		},
	)
)

// recordLoad records a load operation outcome.
func recordLoad(status string) {
	credentialLoadsTotal.WithLabelValues(status).Inc()
}

// recordSave records a save operation outcome.
func recordSave(status string) {
	credentialSavesTotal.WithLabelValues(status).Inc()
}

// recordUpdate records an update operation outcome.
func recordUpdate(status string) {
	credentialUpdatesTotal.WithLabelValues(status).Inc()
}

// setTokenPresent updates the token presence gauge.
func setTokenPresent(present bool) {
	if present {
		credentialTokenPresent.Set(1)
	} else {
		credentialTokenPresent.Set(0)
	}
}

// Package metrics exposes Prometheus counters for the messaging core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesSent counts optimistic send attempts.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_messages_sent_total",
		Help: "Optimistic send attempts.",
	})

	// SendReconciliations counts provisional messages replaced in place by
	// the server-confirmed record.
	SendReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_send_reconciliations_total",
		Help: "Provisional messages confirmed by the server.",
	})

	// SendRollbacks counts provisional messages removed after a failed send.
	SendRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_send_rollbacks_total",
		Help: "Provisional messages rolled back after send failure.",
	})

	// StaleResponsesDiscarded counts thread-load results dropped because the
	// selection changed while the request was in flight.
	StaleResponsesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_stale_responses_discarded_total",
		Help: "Thread loads discarded due to a newer selection.",
	})

	// AuthorizationRejections counts 403-class rejections from the backend.
	AuthorizationRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_authorization_rejections_total",
		Help: "Cross-company authorization rejections.",
	})

	// ContactRefreshes counts canonical contact list rebuilds.
	ContactRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "messagerie_contact_refreshes_total",
		Help: "Canonical contact list rebuilds.",
	})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Business metrics
	SignupsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_signups_total",
			Help: "Total number of completed signups",
		},
	)

	SigninsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_signins_total",
			Help: "Total number of signin attempts that mailed a confirmation code",
		},
	)

	VerificationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_code_verifications_total",
			Help: "Total number of successful code verifications",
		},
	)

	EmailsSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_emails_sent_total",
			Help: "Total number of emails handed to the mail capability",
		},
	)

	EmailsFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "users_emails_failed_total",
			Help: "Total number of email sends that failed",
		},
	)

	// Outbox metrics. Dead letters need eyes on them: once an event exhausts
	// its retry budget nothing will ever pick it up again automatically.
	OutboxProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_processed_total",
			Help: "Total number of outbox events processed successfully",
		},
		[]string{"event_type"},
	)

	OutboxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_event_retries_total",
			Help: "Total number of outbox event processing failures that were requeued",
		},
		[]string{"event_type"},
	)

	OutboxDeadLettersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_dead_lettered_total",
			Help: "Total number of outbox events abandoned after exhausting retries or failing to parse",
		},
		[]string{"event_type"},
	)
)

// Handler returns the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

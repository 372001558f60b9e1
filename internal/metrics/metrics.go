package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EmailsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_emails_processed_total",
			Help: "Inbound emails run through the classification pipeline, by outcome",
		},
		[]string{"outcome"}, // ok|invalid_sender|classifier_error|error
	)

	StatusWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_status_writes_total",
			Help: "Customer status upserts by status and effect",
		},
		[]string{"status", "result"}, // NEED_TO_RESPOND|... , created|changed|noop
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		EmailsProcessed,
		StatusWrites,
	)
}

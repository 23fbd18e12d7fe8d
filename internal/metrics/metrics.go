// Package metrics defines Prometheus instrumentation for the lead pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadbot_sessions_started_total",
			Help: "Total number of dialogue sessions started or restarted",
		},
	)

	leadsCaptured = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leadbot_leads_captured_total",
			Help: "Total number of leads that reached the persistence step",
		},
	)

	leadsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_leads_classified_total",
			Help: "Total number of leads classified, by label",
		},
		[]string{"label"},
	)

	modelErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leadbot_model_errors_total",
			Help: "Total number of failed language model calls, by stage",
		},
		[]string{"stage"},
	)
)

func RecordSessionStarted() {
	sessionsStarted.Inc()
}

func RecordLeadCaptured() {
	leadsCaptured.Inc()
}

func RecordLeadClassified(label string) {
	leadsClassified.WithLabelValues(label).Inc()
}

func RecordModelError(stage string) {
	modelErrors.WithLabelValues(stage).Inc()
}

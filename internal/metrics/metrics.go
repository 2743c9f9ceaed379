// Package metrics holds the Prometheus collectors for the call flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Forwarder outcomes.
const (
	ForwardBridged    = "bridged"
	ForwardNoMatch    = "no_match"
	ForwardAssetError = "asset_error"
)

// Notifier outcomes.
const (
	SMSSent      = "sent"
	SMSFailed    = "failed"
	SMSDuplicate = "duplicate"
	SMSSkipped   = "skipped"
)

var (
	forwardOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "office_forwarding",
			Name:      "forwarder_calls_total",
			Help:      "Inbound calls handled by the forwarder, by outcome.",
		},
		[]string{"outcome"},
	)

	voicemailPrompts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "office_forwarding",
			Name:      "voicemail_documents_total",
			Help:      "Voicemail fallback documents rendered, by kind.",
		},
		[]string{"kind"}, // record, answered, missing_target, sign_error
	)

	smsNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "office_forwarding",
			Name:      "sms_notifications_total",
			Help:      "Voicemail SMS notifications, by status.",
		},
		[]string{"provider_name", "status"},
	)

	smsProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "office_forwarding",
			Name:      "sms_provider_request_duration_seconds",
			Help:      "Duration of SMS provider requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider_name"},
	)
)

func ObserveForward(outcome string) {
	forwardOutcomes.WithLabelValues(outcome).Inc()
}

func ObserveVoicemail(kind string) {
	voicemailPrompts.WithLabelValues(kind).Inc()
}

func ObserveSMS(provider, status string) {
	smsNotifications.WithLabelValues(provider, status).Inc()
}

func ObserveSMSDuration(provider string, seconds float64) {
	smsProviderDuration.WithLabelValues(provider).Observe(seconds)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Webhook delivery outcomes.
const (
	OutcomeNotification     = "notification"
	OutcomeDuplicate        = "duplicate"
	OutcomeChallenge        = "challenge"
	OutcomeRevocation       = "revocation"
	OutcomeIgnored          = "ignored"
	OutcomeInvalidSignature = "invalid_signature"
	OutcomeMalformed        = "malformed"
)

// WebhookMetrics holds Prometheus metrics for EventSub webhook intake.
type WebhookMetrics struct {
	Deliveries *prometheus.CounterVec
}

// NewWebhookMetrics creates and registers webhook metrics on the given registry.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total number of EventSub webhook deliveries, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(m.Deliveries)
	return m
}

func (m *WebhookMetrics) Observe(outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(outcome).Inc()
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// TwitchMetrics holds Prometheus metrics for outgoing Twitch API traffic.
type TwitchMetrics struct {
	APIRequests *prometheus.CounterVec
	TokenEvents *prometheus.CounterVec
}

// NewTwitchMetrics creates and registers Twitch API metrics on the given registry.
func NewTwitchMetrics(reg prometheus.Registerer) *TwitchMetrics {
	m := &TwitchMetrics{
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twitch",
			Name:      "api_requests_total",
			Help:      "Total number of Twitch API requests, by endpoint and result.",
		}, []string{"endpoint", "result"}),
		TokenEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "twitch",
			Name:      "token_events_total",
			Help:      "Application token lifecycle events (reused, invalid, granted, grant_failed).",
		}, []string{"event"}),
	}

	reg.MustRegister(m.APIRequests, m.TokenEvents)
	return m
}

func (m *TwitchMetrics) ObserveRequest(endpoint string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.APIRequests.WithLabelValues(endpoint, result).Inc()
}

func (m *TwitchMetrics) ObserveToken(event string) {
	if m == nil {
		return
	}
	m.TokenEvents.WithLabelValues(event).Inc()
}

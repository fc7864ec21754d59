package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Command outcomes.
const (
	CommandReplied   = "replied"
	CommandSilent    = "silent"
	CommandDenied    = "denied"
	CommandFailed    = "failed"
	CommandUnparsed  = "unparsed"
	CommandSendError = "send_error"
)

// CommandMetrics holds Prometheus metrics for chat command handling.
type CommandMetrics struct {
	Commands       *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	InFlight       prometheus.Gauge
	Attempts       prometheus.Counter
	PerfectResults prometheus.Counter
}

// NewCommandMetrics creates and registers command metrics on the given registry.
func NewCommandMetrics(reg prometheus.Registerer) *CommandMetrics {
	m := &CommandMetrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "handled_total",
			Help:      "Total number of chat commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "duration_seconds",
			Help:      "Duration of chat command handling in seconds, including the reply.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"command"}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "in_flight",
			Help:      "Number of chat commands currently being processed.",
		}),
		Attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Total number of recorded !45 attempts.",
		}),
		PerfectResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "perfect_results_total",
			Help:      "Total number of perfect 45.000 results.",
		}),
	}

	reg.MustRegister(m.Commands, m.Duration, m.InFlight, m.Attempts, m.PerfectResults)
	return m
}

func (m *CommandMetrics) Observe(command, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.Duration.WithLabelValues(command).Observe(took.Seconds())
}

func (m *CommandMetrics) ObserveAttempt(perfect bool) {
	if m == nil {
		return
	}
	m.Attempts.Inc()
	if perfect {
		m.PerfectResults.Inc()
	}
}

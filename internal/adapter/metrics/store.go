package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds Prometheus metrics for Redis and SQL access.
type StoreMetrics struct {
	RedisOpsTotal              *prometheus.CounterVec
	RedisOpDuration            *prometheus.HistogramVec
	RedisConnectionErrors      prometheus.Counter
	CircuitBreakerState        *prometheus.GaugeVec
	CircuitBreakerStateChanges *prometheus.CounterVec
	DBQueryDuration            *prometheus.HistogramVec
	DBErrorsTotal              *prometheus.CounterVec
}

// NewStoreMetrics creates and registers store metrics on the given registry.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		RedisOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operations_total",
			Help:      "Total number of Redis operations, by command and status.",
		}, []string{"operation", "status"}),
		RedisOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "operation_duration_seconds",
			Help:      "Duration of Redis operations in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}, []string{"operation"}),
		RedisConnectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "connection_errors_total",
			Help:      "Total number of failed Redis dials.",
		}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open), by component.",
		}, []string{"component"}),
		CircuitBreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state_changes_total",
			Help:      "Total number of circuit breaker transitions, by component and new state.",
		}, []string{"component", "state"}),
		DBQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of SQL queries in seconds, by query name.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"query"}),
		DBErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "db",
			Name:      "errors_total",
			Help:      "Total number of failed SQL queries, by query name.",
		}, []string{"query"}),
	}

	reg.MustRegister(
		m.RedisOpsTotal, m.RedisOpDuration, m.RedisConnectionErrors,
		m.CircuitBreakerState, m.CircuitBreakerStateChanges,
		m.DBQueryDuration, m.DBErrorsTotal,
	)
	return m
}

// SetBreakerState records a circuit breaker transition for component.
// state is one of "closed", "half-open" or "open".
func (m *StoreMetrics) SetBreakerState(component, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerStateChanges.WithLabelValues(component, state).Inc()
	m.CircuitBreakerState.WithLabelValues(component).Set(breakerStateValue(state))
}

func breakerStateValue(state string) float64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}

// ObserveQuery records one SQL statement labelled by QueryName.
func (m *StoreMetrics) ObserveQuery(query string, took time.Duration, err error) {
	if m == nil {
		return
	}
	name := QueryName(query)
	m.DBQueryDuration.WithLabelValues(name).Observe(took.Seconds())
	if err != nil {
		m.DBErrorsTotal.WithLabelValues(name).Inc()
	}
}

// QueryName labels a query by its leading "-- name: X" comment, falling back
// to the SQL verb so label cardinality stays bounded.
func QueryName(sql string) string {
	sql = strings.TrimSpace(sql)
	if rest, ok := strings.CutPrefix(sql, "-- name:"); ok {
		name, _, _ := strings.Cut(strings.TrimSpace(rest), "\n")
		if fields := strings.Fields(name); len(fields) > 0 {
			return fields[0]
		}
	}

	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	verb := strings.ToUpper(fields[0])
	if len(verb) > 20 {
		return verb[:20]
	}
	return verb
}

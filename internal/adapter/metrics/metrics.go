package metrics

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/pscheid92/fortyfive/internal/platform/version"
)

const namespace = "fortyfive"

// Metrics is the full set of collectors exported by the bot, registered on
// one registry.
type Metrics struct {
	Registry *prometheus.Registry
	Commands *CommandMetrics
	Webhook  *WebhookMetrics
	Twitch   *TwitchMetrics
	Store    *StoreMetrics
	HTTP     *HTTPMetrics
}

func New(info version.Info) *Metrics {
	reg := NewRegistry()
	reg.MustRegister(newBuildInfo(info))

	return &Metrics{
		Registry: reg,
		Commands: NewCommandMetrics(reg),
		Webhook:  NewWebhookMetrics(reg),
		Twitch:   NewTwitchMetrics(reg),
		Store:    NewStoreMetrics(reg),
		HTTP:     NewHTTPMetrics(reg),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return Handler(m.Registry)
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		ErrorLog:      slog.NewLogLogger(slog.Default().Handler(), slog.LevelError),
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// newBuildInfo is a constant 1 gauge labelled with the running build.
func newBuildInfo(info version.Info) prometheus.Gauge {
	g := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Build of the running bot, value is always 1.",
		ConstLabels: prometheus.Labels{
			"version":    info.Version,
			"commit":     info.Commit,
			"go_version": info.GoVersion,
		},
	})
	g.Set(1)
	return g
}

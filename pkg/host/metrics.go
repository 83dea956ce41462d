package host

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "jolt_workforce_host"

// Metrics of a host.
type Metrics struct {
	registry *prometheus.Registry

	sessions        prometheus.Gauge
	workers         *prometheus.GaugeVec
	workersSpawned  *prometheus.CounterVec
	workersDead     *prometheus.CounterVec
	messagesRouted  *prometheus.CounterVec
	populateSkipped *prometheus.CounterVec
}

// NewMetrics registers the host metrics with reg. A nil reg creates a
// registry that also carries the Go runtime and process collectors.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "sessions",
			Help:      "The number of workforce channels currently served.",
		}),
		workers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "workers",
			Help:      "The number of workers currently running.",
		}, []string{"provider"}),
		workersSpawned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workers_spawned_total",
			Help:      "The total number of spawned workers.",
		}, []string{"provider"}),
		workersDead: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workers_dead_total",
			Help:      "The total number of terminated workers.",
		}, []string{"provider", "cause"}),
		messagesRouted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_total",
			Help:      "The total number of channel messages routed.",
		}, []string{"direction", "type"}),
		populateSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "populate_skipped_total",
			Help:      "The total number of populate requests for providers that could not spawn.",
		}, []string{"provider"}),
	}
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

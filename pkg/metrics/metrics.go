// Package metrics exposes graph view telemetry to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vertex_graph"

// Collectors implements engine.Observer on a dedicated registry.
type Collectors struct {
	registry     *prometheus.Registry
	tickDuration *prometheus.HistogramVec
	visibleNodes *prometheus.GaugeVec
	countsFetch  *prometheus.CounterVec
	countsTime   *prometheus.HistogramVec
	loads        *prometheus.CounterVec
}

// New registers the collectors, plus the Go runtime and process collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collectors{
		registry: reg,

		// Labels: view
		tickDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "tick_duration_seconds",
			Help:      "Time spent advancing and composing one frame",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"view"}),

		// Labels: view
		visibleNodes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "visible_nodes",
			Help:      "Nodes in the visible graph after collapse",
		}, []string{"view"}),

		// Labels: view, result (ok, partial, superseded)
		countsFetch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "counts",
			Name:      "fetches_total",
			Help:      "Counts overlay fetches by result",
		}, []string{"view", "result"}),

		// Labels: view
		countsTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "counts",
			Name:      "fetch_duration_seconds",
			Help:      "Counts overlay fetch latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"view"}),

		// Labels: view, result (ok, error)
		loads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Graph loads by result",
		}, []string{"view", "result"}),
	}
}

func (c *Collectors) ObserveTick(view string, d time.Duration) {
	c.tickDuration.WithLabelValues(view).Observe(d.Seconds())
}

func (c *Collectors) SetVisibleNodes(view string, n int) {
	c.visibleNodes.WithLabelValues(view).Set(float64(n))
}

func (c *Collectors) ObserveCounts(view, result string, d time.Duration) {
	c.countsFetch.WithLabelValues(view, result).Inc()
	c.countsTime.WithLabelValues(view).Observe(d.Seconds())
}

func (c *Collectors) ObserveLoad(view, result string) {
	c.loads.WithLabelValues(view, result).Inc()
}

// Registry returns the registry backing the collectors.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

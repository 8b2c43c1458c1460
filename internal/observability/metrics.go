package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors exported on /metrics. Every
// collector lives on a private registry.
type Metrics struct {
	GraphNodes    prometheus.Gauge
	GraphEdges    prometheus.Gauge
	AverageDegree prometheus.Gauge
	MaxDegree     prometheus.Gauge
	DegreeNodes   *prometheus.GaugeVec
	CategoryNodes *prometheus.GaugeVec

	ComputeDuration prometheus.Histogram
	ComputesTotal   *prometheus.CounterVec
	ImportDuration  *prometheus.HistogramVec
	ImportsTotal    *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec

	registry *prometheus.Registry
	mu       sync.Mutex
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// DefaultMetrics returns the process-wide collectors.
func DefaultMetrics() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates and registers every roadnet collector.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		GraphNodes: f.NewGauge(prometheus.GaugeOpts{
			Name: "roadnet_graph_intersections",
			Help: "Intersections in the last analysed graph",
		}),
		GraphEdges: f.NewGauge(prometheus.GaugeOpts{
			Name: "roadnet_graph_roads",
			Help: "Roads in the last analysed graph",
		}),
		AverageDegree: f.NewGauge(prometheus.GaugeOpts{
			Name: "roadnet_graph_average_degree",
			Help: "Average intersection degree, 2 x roads / intersections",
		}),
		MaxDegree: f.NewGauge(prometheus.GaugeOpts{
			Name: "roadnet_graph_max_degree",
			Help: "Highest intersection degree",
		}),
		DegreeNodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roadnet_degree_intersections",
			Help: "Intersections per degree",
		}, []string{"degree"}),
		CategoryNodes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "roadnet_category_intersections",
			Help: "Intersections per structural category",
		}, []string{"category"}),

		ComputeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadnet_compute_duration_seconds",
			Help:    "Metrics computation duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 15, 60},
		}),
		ComputesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roadnet_computes_total",
			Help: "Metrics computations by outcome",
		}, []string{"status"}),
		ImportDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadnet_import_duration_seconds",
			Help:    "Graph import duration in seconds",
			Buckets: []float64{0.01, 0.1, 1, 10, 60, 300, 900},
		}, []string{"backend"}),
		ImportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roadnet_imports_total",
			Help: "Graph imports by backend and outcome",
		}, []string{"backend", "status"}),
		ErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roadnet_errors_total",
			Help: "Failed operations by kind",
		}, []string{"op"}),
	}
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// SetGraph publishes the summary figures of an analysed graph.
func (m *Metrics) SetGraph(nodes, edges int, avgDegree float64, maxDegree int) {
	m.GraphNodes.Set(float64(nodes))
	m.GraphEdges.Set(float64(edges))
	m.AverageDegree.Set(avgDegree)
	m.MaxDegree.Set(float64(maxDegree))
}

// SetDegreeDistribution replaces the per-degree series.
func (m *Metrics) SetDegreeDistribution(counts map[int]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DegreeNodes.Reset()
	for degree, n := range counts {
		m.DegreeNodes.WithLabelValues(strconv.Itoa(degree)).Set(float64(n))
	}
}

// SetCategories replaces the per-category series.
func (m *Metrics) SetCategories(counts map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CategoryNodes.Reset()
	for category, n := range counts {
		m.CategoryNodes.WithLabelValues(category).Set(float64(n))
	}
}

// ObserveCompute records one metrics computation.
func (m *Metrics) ObserveCompute(d time.Duration, err error) {
	m.ComputeDuration.Observe(d.Seconds())
	m.ComputesTotal.WithLabelValues(status(err)).Inc()
	if err != nil {
		m.ErrorsTotal.WithLabelValues("compute").Inc()
	}
}

// ObserveImport records one graph import.
func (m *Metrics) ObserveImport(backend string, d time.Duration, err error) {
	m.ImportDuration.WithLabelValues(backend).Observe(d.Seconds())
	m.ImportsTotal.WithLabelValues(backend, status(err)).Inc()
	if err != nil {
		m.ErrorsTotal.WithLabelValues("import").Inc()
	}
}

// RecordError counts a failure of the named operation.
func (m *Metrics) RecordError(op string) {
	m.ErrorsTotal.WithLabelValues(op).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

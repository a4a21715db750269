package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger *zap.Logger

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Business metrics
	generationsTotal   *prometheus.CounterVec
	generationDuration prometheus.Histogram
	itinerariesSaved   prometheus.Counter
	enrichmentsTotal   *prometheus.CounterVec

	// System metrics
	cacheOperations *prometheus.CounterVec
	mapClientsGauge prometheus.Gauge
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	return &MetricsCollector{
		logger: logger,

		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),

		generationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "itinerary_generations_total",
				Help: "Total number of itinerary generation attempts by outcome",
			},
			[]string{"status"},
		),
		generationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "itinerary_generation_duration_seconds",
				Help:    "Time spent waiting on the planner backend",
				Buckets: []float64{1, 2.5, 5, 10, 20, 40, 60},
			},
		),
		itinerariesSaved: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "itineraries_saved_total",
				Help: "Total number of itineraries written to history",
			},
		),
		enrichmentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "place_enrichments_total",
				Help: "Total number of nearby-stop lookups by outcome",
			},
			[]string{"status"},
		),

		cacheOperations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_operations_total",
				Help: "Total number of cache operations",
			},
			[]string{"operation", "status"},
		),
		mapClientsGauge: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "map_clients_connected",
				Help: "Currently connected map surface clients",
			},
		),
	}
}

// HTTPRequest records a completed HTTP request.
func (m *MetricsCollector) HTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, path, code).Inc()
	m.httpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

// Generation records the outcome of a planner call.
func (m *MetricsCollector) Generation(status string, duration time.Duration) {
	m.generationsTotal.WithLabelValues(status).Inc()
	m.generationDuration.Observe(duration.Seconds())
}

func (m *MetricsCollector) ItinerarySaved() {
	m.itinerariesSaved.Inc()
}

func (m *MetricsCollector) Enrichment(status string) {
	m.enrichmentsTotal.WithLabelValues(status).Inc()
}

func (m *MetricsCollector) CacheOperation(operation, status string) {
	m.cacheOperations.WithLabelValues(operation, status).Inc()
}

func (m *MetricsCollector) MapClientConnected() {
	m.mapClientsGauge.Inc()
}

func (m *MetricsCollector) MapClientDisconnected() {
	m.mapClientsGauge.Dec()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors of the service. All methods are safe on a
// nil receiver so components can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	queryDuration     prometheus.Histogram
	queryErrors       prometheus.Counter
	devicesReported   prometheus.Gauge
	computations      *prometheus.CounterVec
	exports           *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "telemetry_query_duration_seconds",
			Help:    "Histogram of telemetry store query durations.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		}),
		queryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_query_errors_total",
			Help: "Total telemetry store query failures.",
		}),
		devicesReported: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "uptime_devices_reported",
			Help: "Number of devices in the most recent uptime computation.",
		}),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_computations_total",
			Help: "Uptime computations by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "uptime_exports_total",
			Help: "CSV export requests by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.queryDuration,
		m.queryErrors,
		m.devicesReported,
		m.computations,
		m.exports,
	)

	return m
}

// GinMiddleware records request counts and latencies by route template.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) QueryFinished(duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.queryDuration.Observe(duration.Seconds())
	if err != nil {
		m.queryErrors.Inc()
	}
}

func (m *Metrics) Computed(outcome string, devices int) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.devicesReported.Set(float64(devices))
	}
}

func (m *Metrics) Exported(outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(outcome).Inc()
}

package monitoring

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector owns a Prometheus registry for one service. Every metric
// it creates is prefixed with the service namespace.
type MetricsCollector struct {
	namespace string
	registry  *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	inFlight prometheus.Gauge
}

func NewMetricsCollector(serviceName, version, commit string) *MetricsCollector {
	mc := &MetricsCollector{
		namespace: strings.ReplaceAll(serviceName, "-", "_"),
		registry:  prometheus.NewRegistry(),
	}

	mc.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: mc.namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"method", "route", "code"})

	mc.latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: mc.namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	}, []string{"method", "route"})

	mc.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: mc.namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	buildInfo := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: mc.namespace,
		Name:      "build_info",
		Help:      "Build metadata; always 1.",
	}, []string{"version", "commit"})
	buildInfo.WithLabelValues(version, commit).Set(1)

	mc.registry.MustRegister(
		mc.requests,
		mc.latency,
		mc.inFlight,
		buildInfo,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return mc
}

func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

// MetricsMiddleware records every request under its route template, so
// item IDs never become label values. Unmatched paths share one series.
func (mc *MetricsCollector) MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		mc.inFlight.Inc()
		defer mc.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		mc.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		mc.latency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (mc *MetricsCollector) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(mc.registry, promhttp.HandlerOpts{Registry: mc.registry}))
}

func (mc *MetricsCollector) NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: mc.namespace,
		Name:      name,
		Help:      help,
	}, labels)
	mc.registry.MustRegister(counter)
	return counter
}

// NewHistogram registers a histogram; nil buckets mean prometheus.DefBuckets
func (mc *MetricsCollector) NewHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	histogram := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: mc.namespace,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labels)
	mc.registry.MustRegister(histogram)
	return histogram
}

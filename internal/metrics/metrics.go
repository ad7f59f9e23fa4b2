package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the service's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kindergarten",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kindergarten",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kindergarten",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "route"},
	)

	aiStreamChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kindergarten",
			Subsystem: "ai",
			Name:      "stream_chunks_total",
			Help:      "Chunks forwarded to chat stream clients.",
		},
		[]string{"model"},
	)

	aiStreamErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kindergarten",
			Subsystem: "ai",
			Name:      "stream_errors_total",
			Help:      "Chat streams that ended with an upstream error.",
		},
		[]string{"model"},
	)

	eventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kindergarten",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events published, by type and result.",
		},
		[]string{"type", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		aiStreamChunks,
		aiStreamErrors,
		eventsPublished,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registry for GET /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}

// Middleware records request metrics keyed by the matched route pattern, so
// label cardinality stays bounded.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		c.Next()

		route := c.GetString("route_pattern")
		if route == "" {
			route = c.FullPath()
		}
		if route == "" || route == "/api/*path" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		if status == 0 {
			status = http.StatusOK
		}

		httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

func RecordStreamChunk(model string) {
	aiStreamChunks.WithLabelValues(model).Inc()
}

func RecordStreamError(model string) {
	aiStreamErrors.WithLabelValues(model).Inc()
}

func RecordEventPublished(eventType string, success bool) {
	eventsPublished.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
}

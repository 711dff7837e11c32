package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	vaultWritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_writes_total",
		Help: "Total validated record writes committed.",
	})

	vaultWriteRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_write_rejections_total",
		Help: "Total rejected writes by reason.",
	}, []string{"reason"})

	vaultRestoresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_restores_total",
		Help: "Total successful backup restores.",
	})

	vaultTamperInjectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vault_tamper_injections_total",
		Help: "Total fault injections via the tamper hook.",
	})

	vaultHistoryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vault_history_entries",
		Help: "Current number of archived backup snapshots.",
	})

	vaultRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vault_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	vaultRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vault_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		vaultRequestsTotal.WithLabelValues(method, path, status).Inc()
		vaultRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordWrite records a committed write.
func RecordWrite() {
	vaultWritesTotal.Inc()
}

// RecordWriteRejection records a rejected write with its reason label.
func RecordWriteRejection(reason string) {
	vaultWriteRejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordRestore records a successful backup restore.
func RecordRestore() {
	vaultRestoresTotal.Inc()
}

// RecordTamperInjection records a use of the tamper hook.
func RecordTamperInjection() {
	vaultTamperInjectionsTotal.Inc()
}

// SetHistoryGauge sets the archived-snapshot count gauge.
func SetHistoryGauge(count float64) {
	vaultHistoryEntries.Set(count)
}

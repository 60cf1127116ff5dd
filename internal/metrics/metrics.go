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

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depoc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "depoc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	obligationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depoc",
			Subsystem: "obligations",
			Name:      "created_total",
			Help:      "Obligations created, siblings from recurrence expansion included.",
		},
		[]string{"direction", "recurrence"},
	)

	entriesPosted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depoc",
			Subsystem: "ledger",
			Name:      "entries_posted_total",
			Help:      "Ledger entries written, by type.",
		},
		[]string{"type"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "depoc",
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Overdue sweep runs, by outcome.",
		},
		[]string{"outcome"},
	)

	sweepMarked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "depoc",
			Subsystem: "sweep",
			Name:      "obligations_marked_total",
			Help:      "Obligations flagged overdue by the sweep.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "depoc",
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of overdue sweep runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		obligationsCreated,
		entriesPosted,
		sweepRuns,
		sweepMarked,
		sweepDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler exposes the registered collectors.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method

		httpRequests.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

func ObligationsCreated(direction, recurrence string, n int) {
	obligationsCreated.WithLabelValues(direction, recurrence).Add(float64(n))
}

func EntryPosted(entryType string) {
	entriesPosted.WithLabelValues(entryType).Inc()
}

// SweepFinished records one sweep run. outcome is "ok", "skipped" or "error".
func SweepFinished(outcome string, marked int64, duration time.Duration) {
	sweepRuns.WithLabelValues(outcome).Inc()
	if marked > 0 {
		sweepMarked.Add(float64(marked))
	}
	sweepDuration.Observe(duration.Seconds())
}

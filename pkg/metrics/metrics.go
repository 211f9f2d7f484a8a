package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "walkin_queue_length",
			Help: "Current number of waiting parties per outlet",
		},
		[]string{"outlet_id", "state"},
	)

	queueOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkin_queue_operations_total",
			Help: "Total queue engine operations",
		},
		[]string{"operation", "status"},
	)

	reorderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walkin_queue_reorder_duration_seconds",
			Help:    "Time spent renumbering an outlet queue",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"outlet_id"},
	)

	waitEstimates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "walkin_wait_estimate_minutes",
			Help:    "Distribution of predicted wait times",
			Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120, 180},
		},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkin_notifications_total",
			Help: "Queue notifications handed to the delivery pipeline",
		},
		[]string{"kind", "status"},
	)

	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "walkin_http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "walkin_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// TrackQueueOperation counts one engine operation and its outcome
func TrackQueueOperation(operation, status string) {
	queueOperations.WithLabelValues(operation, status).Inc()
}

// SetQueueLength records the waiting and held counts after a reorder
func SetQueueLength(outletID string, waiting, held int) {
	queueLength.WithLabelValues(outletID, "waiting").Set(float64(waiting))
	queueLength.WithLabelValues(outletID, "held").Set(float64(held))
}

func ObserveReorder(outletID string, duration time.Duration) {
	reorderDuration.WithLabelValues(outletID).Observe(duration.Seconds())
}

func ObserveWaitEstimate(minutes int) {
	waitEstimates.Observe(float64(minutes))
}

// TrackNotification counts a notification dispatch attempt
func TrackNotification(kind string, err error) {
	status := "sent"
	if err != nil {
		status = "failed"
	}
	notifications.WithLabelValues(kind, status).Inc()
}

// Middleware records request counts and latency per route template
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry for scraping
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "suki"

// Metrics holds every collector the service exports.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	syncAttempts    *prometheus.CounterVec
	syncQueuePass   prometheus.Histogram
	syncQueueItems  *prometheus.CounterVec
	dispatchDropped prometheus.Counter

	emails *prometheus.CounterVec
}

// New registers the collectors on reg. gatherer serves /metrics and is
// usually the same registry.
func New(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		gatherer: gatherer,

		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		syncAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_attempts_total",
			Help:      "Ledger sync attempts by action and result",
		}, []string{"action", "result"}),

		syncQueuePass: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_queue_pass_seconds",
			Help:      "Duration of sync queue passes",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}),

		syncQueueItems: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_queue_items_total",
			Help:      "Sync queue items by result",
		}, []string{"result"}),

		dispatchDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_dropped_total",
			Help:      "Background sync jobs dropped because the dispatcher was full or stopped",
		}),

		emails: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_total",
			Help:      "Emails sent by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request count and latency per route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		timer := StartTimer()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.httpRequests.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, path, status).Observe(timer.Duration().Seconds())
	}
}

func (m *Metrics) ObserveAttempt(action, result string) {
	m.syncAttempts.WithLabelValues(action, result).Inc()
}

func (m *Metrics) ObserveQueuePass(d time.Duration) {
	m.syncQueuePass.Observe(d.Seconds())
}

func (m *Metrics) ObserveQueueItem(result string) {
	m.syncQueueItems.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveDispatchDropped() {
	m.dispatchDropped.Inc()
}

func (m *Metrics) ObserveEmail(result string) {
	m.emails.WithLabelValues(result).Inc()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	OTPSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_sent_total",
			Help: "One-time codes sent by purpose and outcome",
		},
		[]string{"purpose", "outcome"},
	)
	InteractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interactions_total",
			Help: "Like/collect toggles by kind, target type and resulting state",
		},
		[]string{"kind", "target_type", "active"},
	)
	ImportRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "import_rows_total",
			Help: "Spreadsheet rows processed by the job importer",
		},
		[]string{"result"},
	)
	ScraperFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_fetch_total",
			Help: "Outbound scraper fetches by host and outcome",
		},
		[]string{"host", "outcome"},
	)
	WorkerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Scheduled job runs by job and outcome",
		},
		[]string{"job", "outcome"},
	)
)

var once sync.Once

// Init registers collectors with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			OTPSentTotal,
			InteractionsTotal,
			ImportRowsTotal,
			ScraperFetchTotal,
			WorkerRunsTotal,
		)
	})
}

// GinMiddleware records request count and latency per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

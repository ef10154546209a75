package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arcanthyr_sync_runs_total",
			Help: "Total sync runs started",
		},
	)

	CasesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arcanthyr_sync_cases_processed_total",
			Help: "Total cases persisted by sync runs",
		},
	)

	CasesFailed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arcanthyr_sync_cases_failed_total",
			Help: "Total cases that failed during sync runs",
		},
	)

	FetchAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "arcanthyr_sync_fetch_attempts_total",
			Help: "Total case content fetch attempts, including retries",
		},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arcanthyr_sync_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900},
		},
	)

	AICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanthyr_ai_calls_total",
			Help: "Total AI operations by action and status",
		},
		[]string{"action", "status"},
	)

	RateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arcanthyr_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"group"},
	)
)

func Init() {
	prometheus.MustRegister(SyncRunsTotal)
	prometheus.MustRegister(CasesProcessed)
	prometheus.MustRegister(CasesFailed)
	prometheus.MustRegister(FetchAttempts)
	prometheus.MustRegister(SyncDuration)
	prometheus.MustRegister(AICalls)
	prometheus.MustRegister(RateLimited)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

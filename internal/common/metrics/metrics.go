package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	// SmartSearchRuleHits counts parsed queries per filter dimension that
	// was recognized ("ndc", "strength", ...). "none" counts queries with no
	// structured filter at all.
	SmartSearchRuleHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smart_search_rule_hits_total",
			Help: "Parsed smart search queries per recognized filter dimension",
		},
		[]string{"rule"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Redis cache lookups by cache name and result",
		},
		[]string{"cache", "result"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Staff notifications delivered by channel",
		},
		[]string{"channel"},
	)
)

// RecordRuleHits increments SmartSearchRuleHits for each dimension.
func RecordRuleHits(dimensions []string) {
	if len(dimensions) == 0 {
		SmartSearchRuleHits.WithLabelValues("none").Inc()
		return
	}
	for _, d := range dimensions {
		SmartSearchRuleHits.WithLabelValues(d).Inc()
	}
}

func RecordCacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(cache, result).Inc()
}

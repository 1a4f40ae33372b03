package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	CheckDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bindsig_check_seconds",
		Help:    "Time spent checking a single declaration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	ChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bindsig_checks_total",
		Help: "Total number of declarations checked, by kind and outcome.",
	}, []string{"kind", "outcome"})

	OracleCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bindsig_oracle_calls_total",
		Help: "Total number of expression oracle calls, by probe and outcome.",
	}, []string{"probe", "outcome"})

	OracleCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindsig_oracle_cache_hits_total",
		Help: "Total number of expression oracle answers served from cache.",
	})

	OracleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bindsig_oracle_seconds",
		Help:    "Time spent in the expression oracle.",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{"probe"})

	FilesCheckedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindsig_files_checked_total",
		Help: "Total number of declaration files checked.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindsig_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bindsig_history_write_errors_total",
		Help: "Total number of check runs that could not be persisted.",
	})
)

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultMissing = "missing"
)

var (
	// Reconciler metrics
	ReconciliationCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheal_reconciliation_cycles_total",
			Help: "Total number of completed reconciliation cycles",
		},
	)

	ReconciliationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autoheal_reconciliation_duration_seconds",
			Help:    "Time taken by one discovery and remediation cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	UnhealthyContainers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "autoheal_unhealthy_containers",
			Help: "Number of unhealthy containers found by the last discovery",
		},
	)

	TaskPanicsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "autoheal_task_panics_total",
			Help: "Total number of recovered panics in per-container tasks",
		},
	)

	// Remediation metrics
	RestartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoheal_restarts_total",
			Help: "Total number of container restarts by result",
		},
		[]string{"result"},
	)

	PostActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoheal_post_actions_total",
			Help: "Total number of post-action runs by result",
		},
		[]string{"result"},
	)

	// Side channel metrics
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoheal_notifications_total",
			Help: "Total number of notifications by channel and result",
		},
		[]string{"channel", "result"},
	)

	HistoryWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autoheal_history_writes_total",
			Help: "Total number of history writes by result",
		},
		[]string{"result"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ReconciliationCyclesTotal)
	prometheus.MustRegister(ReconciliationDuration)
	prometheus.MustRegister(UnhealthyContainers)
	prometheus.MustRegister(TaskPanicsTotal)
	prometheus.MustRegister(RestartsTotal)
	prometheus.MustRegister(PostActionsTotal)
	prometheus.MustRegister(NotificationsTotal)
	prometheus.MustRegister(HistoryWritesTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

/*
Package metrics provides Prometheus metrics and component health tracking
for autoheal.

Metrics are package-level collectors registered with the default registry in
init(). They are updated directly by the packages that own the behavior and
exposed over HTTP by pkg/api when --listen-addr is set.

# Metrics Catalog

Reconciliation:

	autoheal_reconciliation_cycles_total:
	  - Type: Counter
	  - Description: Completed reconciliation cycles

	autoheal_reconciliation_duration_seconds:
	  - Type: Histogram
	  - Description: Discovery plus every remediation task of one cycle

	autoheal_unhealthy_containers:
	  - Type: Gauge
	  - Description: Candidates returned by the last discovery

	autoheal_task_panics_total:
	  - Type: Counter
	  - Description: Recovered panics in per-container tasks

Remediation:

	autoheal_restarts_total{result}:
	  - Type: Counter
	  - Labels: result=success|failure

	autoheal_post_actions_total{result}:
	  - Type: Counter
	  - Labels: result=success|failure|missing

Side channels:

	autoheal_notifications_total{channel, result}:
	  - Type: Counter
	  - Labels: channel=webhook|apprise, result=success|failure

	autoheal_history_writes_total{result}:
	  - Type: Counter
	  - Labels: result=success|failure

# Timing

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.ReconciliationDuration)

# Component Health

Health state is tracked per component with UpdateComponent:

  - runtime: result of the last discovery call (critical)
  - reconciler: the loop is running (critical)
  - history: result of the last history write

GetHealth reports every component; GetReadiness only considers the critical
ones, so a failing history store degrades /health without making the daemon
unready.

# Useful Queries

  - Restart failure rate: rate(autoheal_restarts_total{result="failure"}[5m])
  - Containers flapping: autoheal_unhealthy_containers > 0 for 15m
  - Notification delivery problems: rate(autoheal_notifications_total{result="failure"}[15m])
  - Slow cycles: histogram_quantile(0.95, autoheal_reconciliation_duration_seconds_bucket)
*/
package metrics

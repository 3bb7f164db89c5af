/*
Package reconciler implements autoheal's reconciliation loop: it periodically
discovers unhealthy containers and drives each one through policy
resolution, health inspection, remediation, notification and history.

# Architecture

Each cycle performs exactly one discovery call and then fans out one
goroutine per candidate. The cycle ends only when every task has finished,
so two cycles never overlap:

	┌──────────────────── RECONCILIATION CYCLE ────────────────────┐
	│                                                               │
	│  tick ──► Discover (health=unhealthy, label filter)           │
	│                 │                                             │
	│        ┌────────┼─────────┬──────────┐   one task per         │
	│        ▼        ▼         ▼          ▼   candidate            │
	│     ┌──────┐ ┌──────┐ ┌──────┐   ┌──────┐                     │
	│     │task 1│ │task 2│ │task 3│...│task N│                     │
	│     └──┬───┘ └──┬───┘ └──┬───┘   └──┬───┘                     │
	│        └────────┴────┬────┴──────────┘                         │
	│                      ▼                                         │
	│               WaitGroup barrier ──► wait for next tick         │
	└───────────────────────────────────────────────────────────────┘

Within a task the steps are strictly sequential:

 1. Identity: a container without a resolvable name or id is logged at
    ERROR and skipped.
 2. Policy: labels are merged over the global defaults (see pkg/policy).
 3. Restart disabled: logged at WARN when log-all is set, otherwise silent.
    Nothing else happens.
 4. Not monitored: skipped silently unless log-all is set.
 5. Inspection: the health state is re-read from the runtime. Only a
    non-zero failing streak continues; inspection failures never restart.
 6. Remediation: restart with the resolved stop timeout, then the optional
    post-action.
 7. Notification: webhook and apprise, each optional.
 8. History: when enabled, the outcome is appended and the per-container
    event count is logged.

No ordering exists between tasks of the same cycle. Their log lines may
interleave; every line carries the cycle_id of its cycle and the container
name and short id of its task.

# Failure Handling

Discovery failure is the only fatal error. Run returns it and the caller
exits the process, since the loop cannot work without a reachable runtime.
All per-task failures are absorbed by the collaborators and logged. A panic
inside a task is recovered, logged at ERROR with its stack trace and counted
in autoheal_task_panics_total; sibling tasks and later cycles are
unaffected.

# Usage

	r := reconciler.New(reconciler.Config{
		Interval:       5 * time.Second,
		ContainerLabel: "autoheal",
		Defaults:       policy.Defaults{StopTimeout: 10},
	}, reconciler.Deps{
		Runtime:    cli,
		Inspector:  health.NewInspector(cli),
		Remediator: remediate.New(cli, ""),
	})

	if err := r.Run(ctx); err != nil {
		log.Logger.Fatal().Err(err).Msg("Reconciler failed")
	}

# Metrics

	autoheal_reconciliation_cycles_total
	autoheal_reconciliation_duration_seconds
	autoheal_unhealthy_containers
	autoheal_task_panics_total

The "runtime" health component follows the result of each discovery and the
"reconciler" component is healthy while Run is looping.
*/
package reconciler

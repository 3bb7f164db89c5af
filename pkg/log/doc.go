/*
Package log provides structured logging for autoheal using zerolog.

The package wraps a single global zerolog.Logger that is configured once at
startup with log.Init. Every remediation step reports through it, so the
severity of a line (INFO, WARN, ERROR) is the operator-facing signal of what
happened to a container.

# Levels

Severity is a closed set:

	debug  cycle bookkeeping, discovery counts
	info   successful restarts, post-action completion, notification status
	warn   unhealthy containers, restart-disabled containers, history I/O failures
	error  identity, inspection, restart and post-action failures

Level values are parsed from configuration with ParseLevel and passed
explicitly; nothing else in the process mutates severity state.

# Context Loggers

	ctx = log.ContextWithCycle(ctx, cycleID)
	taskLog := log.WithContainer(log.FromContext(ctx, "reconciler"), "web-1", "abcdef012345")
	taskLog.Warn().Int64("failing_streak", 3).Msg("container is unhealthy")

The reconciler stores the cycle id in the context of each cycle with
ContextWithCycle. Packages called from a cycle build their logger with
FromContext so that their lines carry the same cycle_id:

	logger := log.WithContainer(log.FromContext(ctx, "health"), c.Name, c.ID)

Console output (default):

	2024-10-13T10:30:00Z WRN [web-1] Container (abcdef012345) is unhealthy with 3 failures container=web-1 container_id=abcdef012345 cycle_id=...

JSON output (--log-json):

	{"level":"warn","cycle_id":"...","container":"web-1","container_id":"abcdef012345","time":"...","message":"..."}
*/
package log

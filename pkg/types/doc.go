/*
Package types defines the data exchanged between the stages of a
remediation cycle.

	Candidate ──► Policy ──► Verdict ──► Outcome ──► Record
	(discovery)  (labels)   (inspect)   (restart)   (history)

Candidate, Policy, Verdict and Outcome are created fresh for every container
in every cycle and are owned by the goroutine handling that container. Record
is the only type that is persisted; it is serialized as one JSON object per
line with the keys date, name, id, err and action.

# Labels

Three container labels override the process-wide defaults:

	autoheal.stop.timeout=20       seconds the runtime waits before killing
	autoheal.monitor.enable=true   opt this container into monitoring
	autoheal.restart.enable=false  never restart this container

# Verdict invariant

Verdict.Failing is true exactly when FailingStreak is non-zero. Build verdicts
with NewVerdict so the two fields can't drift apart.
*/
package types

/*
Package health inspects a container and reports whether its healthcheck is
currently failing.

The runtime already tracks healthcheck results; the Inspector only reads
them back:

	State.Health.FailingStreak   consecutive failed checks, 0 when healthy
	State.Health.Log[last]       output and exit code of the latest check

Failure handling is fail-safe. When the inspect call errors, or the container
has no health information, the verdict carries a zero streak and the
container is left alone:

	inspect error            streak 0, reason "unknown", exit -1, ERROR log
	no State/Health          streak 0, reason "unknown", exit -1, ERROR log
	Health without Log       streak N, reason "unknown", exit -1, ERROR log
	Log with no entries      streak N, reason "log is empty", exit -1
	Log with entries         streak N, reason/exit from the last entry
*/
package health

/*
Package history persists an append-only record of remediations.

Every remediated container produces one record:

	{"date":"2025-01-02 15:04:05+0000","name":"web-1","id":"abcdef012345","err":"curl: (7) connection refused","action":"[web-1] Restart of container (abcdef012345) was successful"}

Two stores implement the Store interface:

  - FileStore (default) appends newline-delimited JSON to
    <dir>/history.jsonl, opening the file for each write
  - BoltStore keeps the same records in a single bucket of
    <dir>/history.db, keyed by a monotonically increasing sequence

The Recorder sits in front of a store and is what the reconciler uses. It
never returns store errors: a failed write or read is logged at WARN, counted
in autoheal_history_writes_total and reflected in the "history" health
component, and the remediation continues. QueryCount is the per-container
event count logged after each write; Summarize backs the "autoheal history"
report.
*/
package history

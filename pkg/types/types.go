package types

import (
	"fmt"
	"strings"
	"time"
)

// Container labels that override the global policy for a single container
const (
	LabelStopTimeout   = "autoheal.stop.timeout"
	LabelMonitorEnable = "autoheal.monitor.enable"
	LabelRestartEnable = "autoheal.restart.enable"
)

// LabelFilterAll disables label filtering during discovery
const LabelFilterAll = "all"

// ShortIDLength is the length of the runtime's short container ID
const ShortIDLength = 12

const (
	// ReasonUnknown is used when the health log could not be read
	ReasonUnknown = "unknown"

	// ReasonEmptyLog is used when the health log exists but has no entries
	ReasonEmptyLog = "log is empty"

	// ExitCodeUnknown is used when no health check exit code is available
	ExitCodeUnknown int64 = -1
)

// RecordDateFormat is the layout of Record.Date (local time)
const RecordDateFormat = "2006-01-02 15:04:05-0700"

// Candidate is an unhealthy container returned by discovery for the
// current cycle. It is owned by a single remediation task.
type Candidate struct {
	Name   string
	ID     string // Short (12 character) ID
	Labels map[string]string
}

// Identified reports whether both name and id were resolved
func (c Candidate) Identified() bool {
	return c.Name != "" && c.ID != ""
}

// Policy is the effective remediation settings for one container
type Policy struct {
	StopTimeout    int
	MonitorEnabled bool
	RestartEnabled bool
	LogAll         bool
}

// Verdict is the result of inspecting a container's health state
type Verdict struct {
	Failing       bool
	FailingStreak int64
	FailingReason string
	LastExitCode  int64
}

// NewVerdict builds a Verdict; Failing is derived from the streak
func NewVerdict(streak int64, reason string, exitCode int64) Verdict {
	return Verdict{
		Failing:       streak != 0,
		FailingStreak: streak,
		FailingReason: reason,
		LastExitCode:  exitCode,
	}
}

// Outcome is the human readable result of a remediation
type Outcome struct {
	// Message describes the restart attempt (success or failure)
	Message string

	// PostAction describes the post-action run, empty if none was configured
	PostAction string

	// Restarted is true when the runtime accepted the restart
	Restarted bool
}

// Summary joins the restart and post-action messages
func (o Outcome) Summary() string {
	parts := make([]string, 0, 2)
	if o.Message != "" {
		parts = append(parts, o.Message)
	}
	if o.PostAction != "" {
		parts = append(parts, o.PostAction)
	}
	return strings.Join(parts, "; ")
}

// Record is one line of the remediation history
type Record struct {
	Date   string `json:"date"`
	Name   string `json:"name"`
	ID     string `json:"id"`
	Err    string `json:"err"`
	Action string `json:"action"`
}

// NewRecord creates a history record for a remediated container
func NewRecord(c Candidate, reason, action string, now time.Time) Record {
	return Record{
		Date:   now.Local().Format(RecordDateFormat),
		Name:   c.Name,
		ID:     c.ID,
		Err:    reason,
		Action: action,
	}
}

// Prefix is the "[name] Container (id)" lead used in operator messages
func (c Candidate) Prefix() string {
	return fmt.Sprintf("[%s] Container (%s)", c.Name, c.ID)
}

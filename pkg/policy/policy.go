// Package policy derives per-container remediation settings from labels.
package policy

import (
	"strconv"
	"strings"

	"github.com/cuemby/autoheal/pkg/types"
)

// Defaults are the process-wide settings labels can override
type Defaults struct {
	StopTimeout int
	MonitorAll  bool
	LogAll      bool
}

// Resolve returns the effective policy for a container. A label that is
// missing or doesn't parse falls back to the default without error.
func Resolve(labels map[string]string, d Defaults) types.Policy {
	return types.Policy{
		StopTimeout:    intLabel(labels, types.LabelStopTimeout, d.StopTimeout),
		MonitorEnabled: boolLabel(labels, types.LabelMonitorEnable, d.MonitorAll),
		RestartEnabled: boolLabel(labels, types.LabelRestartEnable, true),
		LogAll:         d.LogAll,
	}
}

func intLabel(labels map[string]string, key string, def int) int {
	raw, ok := labels[key]
	if !ok {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

func boolLabel(labels map[string]string, key string, def bool) bool {
	raw, ok := labels[key]
	if !ok {
		return def
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return v
}

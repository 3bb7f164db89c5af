package remediate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"unicode/utf8"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/rs/zerolog"
)

const maxOutputLog = 200

// runPostAction executes the post-action script as
// "<path> <name> <id> <stopTimeout>" and waits for it. A script that runs to
// completion is a success whatever its exit status; only a missing script or
// one that can't be started or waited on is an error.
func runPostAction(ctx context.Context, logger *zerolog.Logger, path string, c types.Candidate, stopTimeout int) string {
	prefix := fmt.Sprintf("[%s (%s)] Container post-action (%s)", c.Name, c.ID, path)

	if _, err := os.Stat(path); err != nil {
		msg := prefix + " not found"
		logger.Error().Err(err).Msg(msg)
		metrics.PostActionsTotal.WithLabelValues(metrics.ResultMissing).Inc()
		return msg
	}

	cmd := exec.CommandContext(ctx, path, c.Name, c.ID, strconv.Itoa(stopTimeout))

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Start(); err != nil {
		msg := fmt.Sprintf("%s failed to start: %v", prefix, err)
		logger.Error().Err(err).Msg(msg)
		metrics.PostActionsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return msg
	}

	level := log.InfoLevel
	exitCode := 0
	msg := prefix + " was successful"

	err := cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr) && exitErr.Exited():
		exitCode = exitErr.ExitCode()
		msg = fmt.Sprintf("%s completed with exit code %d", prefix, exitCode)
	default:
		level = log.ErrorLevel
		exitCode = -1
		msg = fmt.Sprintf("%s failed to complete: %v", prefix, err)
	}

	if level == log.ErrorLevel {
		metrics.PostActionsTotal.WithLabelValues(metrics.ResultFailure).Inc()
	} else {
		metrics.PostActionsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	}

	log.At(logger, level).
		Int("exit_code", exitCode).
		Str("output", truncate(output.String(), maxOutputLog)).
		Msg(msg)
	return msg
}

// truncate shortens s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

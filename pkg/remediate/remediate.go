package remediate

import (
	"context"
	"fmt"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/runtime"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/docker/docker/api/types/container"
)

// Remediator restarts unhealthy containers and runs the post-action
type Remediator struct {
	runtime    runtime.Client
	postAction string
}

// New creates a Remediator. An empty postAction disables the post-action.
func New(rt runtime.Client, postAction string) *Remediator {
	return &Remediator{
		runtime:    rt,
		postAction: postAction,
	}
}

// Remediate restarts a failing container and, when configured, runs the
// post-action afterwards. Failures are reported in the returned Outcome;
// a failed post-action never changes the restart message.
func (r *Remediator) Remediate(ctx context.Context, c types.Candidate, p types.Policy, v types.Verdict) types.Outcome {
	logger := log.WithContainer(log.FromContext(ctx, "remediate"), c.Name, c.ID)

	logger.Warn().
		Int64("failing_streak", v.FailingStreak).
		Msg(UnhealthySummary(c, v))
	logger.Warn().
		Int64("exit_code", v.LastExitCode).
		Str("reason", v.FailingReason).
		Msgf("%s last output: [%d] %s", c.Prefix(), v.LastExitCode, v.FailingReason)
	logger.Warn().
		Int("stop_timeout", p.StopTimeout).
		Msgf("[%s] Restarting container (%s) with %ds timeout", c.Name, c.ID, p.StopTimeout)

	var out types.Outcome
	timeout := p.StopTimeout
	if err := r.runtime.ContainerRestart(ctx, c.ID, container.StopOptions{Timeout: &timeout}); err != nil {
		out.Message = fmt.Sprintf("[%s] Restart of container (%s) failed: %v", c.Name, c.ID, err)
		logger.Error().Err(err).Msg(out.Message)
		metrics.RestartsTotal.WithLabelValues(metrics.ResultFailure).Inc()
	} else {
		out.Message = fmt.Sprintf("[%s] Restart of container (%s) was successful", c.Name, c.ID)
		out.Restarted = true
		logger.Info().Msg(out.Message)
		metrics.RestartsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	}

	if r.postAction != "" {
		out.PostAction = runPostAction(ctx, &logger, r.postAction, c, p.StopTimeout)
	}

	return out
}

// UnhealthySummary is the one-line description of a failing container used
// in logs and notifications
func UnhealthySummary(c types.Candidate, v types.Verdict) string {
	return fmt.Sprintf("%s is unhealthy with %d failures", c.Prefix(), v.FailingStreak)
}

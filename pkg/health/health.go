package health

import (
	"context"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/runtime"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/docker/docker/api/types/container"
	"github.com/rs/zerolog"
)

// Inspector turns a container's inspect document into a Verdict
type Inspector struct {
	runtime runtime.Client
}

// NewInspector creates a new inspector backed by the runtime client
func NewInspector(rt runtime.Client) *Inspector {
	return &Inspector{runtime: rt}
}

// Inspect reads the health state of a container. An inspection that fails
// yields a non-failing verdict so that an unreliable answer never triggers
// a restart.
func (i *Inspector) Inspect(ctx context.Context, c types.Candidate) types.Verdict {
	logger := log.WithContainer(log.FromContext(ctx, "health"), c.Name, c.ID)

	resp, err := i.runtime.ContainerInspect(ctx, c.ID)
	if err != nil {
		event := logger.Error().Err(err)
		if errdefs.IsNotFound(err) {
			event = event.Bool("not_found", true)
		}
		event.Msgf("%s could not be inspected; assuming it is not failing", c.Prefix())
		return types.NewVerdict(0, types.ReasonUnknown, types.ExitCodeUnknown)
	}

	return Evaluate(&logger, c, resp)
}

// Evaluate derives a Verdict from an inspect response
func Evaluate(logger *zerolog.Logger, c types.Candidate, resp container.InspectResponse) types.Verdict {
	h := healthOf(resp)
	if h == nil {
		logger.Error().Msgf("%s failing streak could not be determined; defaulting to 0 (is the healthcheck disabled?)", c.Prefix())
		return types.NewVerdict(0, types.ReasonUnknown, types.ExitCodeUnknown)
	}

	streak := int64(h.FailingStreak)
	switch {
	case h.Log == nil:
		logger.Error().Msgf("%s failing reason could not be determined", c.Prefix())
		return types.NewVerdict(streak, types.ReasonUnknown, types.ExitCodeUnknown)
	case len(h.Log) == 0:
		return types.NewVerdict(streak, types.ReasonEmptyLog, types.ExitCodeUnknown)
	}

	last := h.Log[len(h.Log)-1]
	if last == nil {
		logger.Error().Msgf("%s failing reason could not be determined", c.Prefix())
		return types.NewVerdict(streak, types.ReasonUnknown, types.ExitCodeUnknown)
	}
	return types.NewVerdict(streak, strings.TrimSpace(last.Output), int64(last.ExitCode))
}

func healthOf(resp container.InspectResponse) *container.Health {
	if resp.ContainerJSONBase == nil || resp.State == nil {
		return nil
	}
	return resp.State.Health
}

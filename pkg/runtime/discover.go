package runtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/cuemby/autoheal/pkg/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

// Filters builds the list filter for unhealthy containers, optionally
// restricted to those carrying label
func Filters(label string) filters.Args {
	args := filters.NewArgs(
		filters.Arg("health", "unhealthy"),
		filters.Arg("status", "running"),
		filters.Arg("status", "exited"),
		filters.Arg("status", "dead"),
	)
	if label != types.LabelFilterAll {
		args.Add("label", label)
	}
	return args
}

// Discover lists the unhealthy containers to consider this cycle.
// Containers whose name or id can't be determined are still returned with
// empty fields; the caller decides what to do with them.
func Discover(ctx context.Context, c Client, label string) ([]types.Candidate, error) {
	summaries, err := c.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: Filters(label),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list unhealthy containers: %w", err)
	}

	candidates := make([]types.Candidate, 0, len(summaries))
	for _, s := range summaries {
		candidates = append(candidates, candidateFromSummary(s))
	}
	return candidates, nil
}

func candidateFromSummary(s container.Summary) types.Candidate {
	var name string
	if len(s.Names) > 0 {
		name = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s.Names[0]), "/"))
	}

	return types.Candidate{
		Name:   name,
		ID:     ShortID(s.ID),
		Labels: s.Labels,
	}
}

// ShortID truncates a container id to the runtime's short form
func ShortID(id string) string {
	if len(id) > types.ShortIDLength {
		return id[:types.ShortIDLength]
	}
	return id
}

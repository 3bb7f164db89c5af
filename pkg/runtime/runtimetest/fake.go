// Package runtimetest provides an in-memory runtime.Client for tests.
package runtimetest

import (
	"context"
	"sync"
	"time"

	"github.com/docker/docker/api/types/container"
)

// Fake records calls and returns configured responses. It is safe for
// concurrent use by the goroutines of a reconciliation cycle.
type Fake struct {
	mu sync.Mutex

	Summaries []container.Summary
	ListErr   error

	// Inspect results keyed by container id
	Inspections map[string]container.InspectResponse
	InspectErr  error

	RestartErr error

	// ListHook runs on every ContainerList call before returning
	ListHook func(call int)
	// InspectHook runs on every ContainerInspect call before returning
	InspectHook func(id string)

	listOptions []container.ListOptions
	inspected   []string
	restarts    []Restart
}

// Restart captures one ContainerRestart call
type Restart struct {
	ID      string
	Timeout int
	At      time.Time
}

// NewFake returns an empty Fake
func NewFake() *Fake {
	return &Fake{Inspections: make(map[string]container.InspectResponse)}
}

func (f *Fake) ContainerList(_ context.Context, options container.ListOptions) ([]container.Summary, error) {
	f.mu.Lock()
	f.listOptions = append(f.listOptions, options)
	call := len(f.listOptions)
	hook := f.ListHook
	summaries, err := f.Summaries, f.ListErr
	f.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return summaries, err
}

func (f *Fake) ContainerInspect(_ context.Context, id string) (container.InspectResponse, error) {
	f.mu.Lock()
	f.inspected = append(f.inspected, id)
	hook := f.InspectHook
	resp, err := f.Inspections[id], f.InspectErr
	f.mu.Unlock()

	if hook != nil {
		hook(id)
	}
	return resp, err
}

func (f *Fake) ContainerRestart(_ context.Context, id string, options container.StopOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	timeout := -1
	if options.Timeout != nil {
		timeout = *options.Timeout
	}
	f.restarts = append(f.restarts, Restart{ID: id, Timeout: timeout, At: time.Now()})
	return f.RestartErr
}

// ListCalls returns the options of every ContainerList call
func (f *Fake) ListCalls() []container.ListOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]container.ListOptions(nil), f.listOptions...)
}

// Inspected returns the ids passed to ContainerInspect
func (f *Fake) Inspected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.inspected...)
}

// Restarts returns every ContainerRestart call
func (f *Fake) Restarts() []Restart {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Restart(nil), f.restarts...)
}

// Unhealthy builds an inspect response with the given failing streak and
// health log entries (output, exit code pairs)
func Unhealthy(streak int, entries ...container.HealthcheckResult) container.InspectResponse {
	log := make([]*container.HealthcheckResult, 0, len(entries))
	for i := range entries {
		log = append(log, &entries[i])
	}
	return container.InspectResponse{
		ContainerJSONBase: &container.ContainerJSONBase{
			State: &container.State{
				Health: &container.Health{
					Status:        "unhealthy",
					FailingStreak: streak,
					Log:           log,
				},
			},
		},
	}
}

// Summary builds a list entry for a container
func Summary(id, name string, labels map[string]string) container.Summary {
	return container.Summary{
		ID:     id,
		Names:  []string{"/" + name},
		Labels: labels,
	}
}

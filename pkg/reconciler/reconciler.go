package reconciler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/policy"
	"github.com/cuemby/autoheal/pkg/remediate"
	"github.com/cuemby/autoheal/pkg/runtime"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultInterval is the time between the start of two cycles
const DefaultInterval = 5 * time.Second

// Inspector produces a health verdict for a candidate
type Inspector interface {
	Inspect(ctx context.Context, c types.Candidate) types.Verdict
}

// Remediator restarts a failing candidate
type Remediator interface {
	Remediate(ctx context.Context, c types.Candidate, p types.Policy, v types.Verdict) types.Outcome
}

// Notifier forwards an outcome to the notification channels
type Notifier interface {
	Notify(ctx context.Context, summary, outcome string)
}

// Recorder persists remediation history
type Recorder interface {
	Record(rec types.Record) bool
	QueryCount(id string) int
}

// Config holds the loop settings
type Config struct {
	Interval       time.Duration
	StartDelay     time.Duration
	ContainerLabel string
	Defaults       policy.Defaults
}

// Deps are the collaborators of a Reconciler. Notifier and Recorder are
// optional; a nil Recorder disables history.
type Deps struct {
	Runtime    runtime.Client
	Inspector  Inspector
	Remediator Remediator
	Notifier   Notifier
	Recorder   Recorder
}

// Reconciler periodically discovers unhealthy containers and remediates
// them, one task per container
type Reconciler struct {
	cfg    Config
	deps   Deps
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new reconciler
func New(cfg Config, deps Deps) *Reconciler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ContainerLabel == "" {
		cfg.ContainerLabel = types.LabelFilterAll
	}
	return &Reconciler{
		cfg:    cfg,
		deps:   deps,
		logger: log.WithComponent("reconciler"),
		now:    time.Now,
	}
}

// Run executes reconciliation cycles until ctx is cancelled, in which case
// it returns nil. A failed discovery is returned as an error; the loop
// cannot continue without a reachable runtime.
func (r *Reconciler) Run(ctx context.Context) error {
	if r.cfg.StartDelay > 0 {
		r.logger.Info().Dur("start_delay", r.cfg.StartDelay).
			Msgf("Monitoring will start in %s", r.cfg.StartDelay)
		select {
		case <-time.After(r.cfg.StartDelay):
		case <-ctx.Done():
			return nil
		}
	}

	r.logger.Info().
		Dur("interval", r.cfg.Interval).
		Str("label", r.cfg.ContainerLabel).
		Msg("Reconciler started")
	metrics.UpdateComponent(metrics.ComponentReconciler, true, "running")

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := r.reconcile(ctx); err != nil {
			metrics.UpdateComponent(metrics.ComponentReconciler, false, err.Error())
			return err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			r.logger.Info().Msg("Reconciler stopped")
			return nil
		}
	}
}

// reconcile performs one reconciliation cycle and returns once every
// container task of the cycle has finished
func (r *Reconciler) reconcile(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	// Start timing the reconciliation cycle
	timer := metrics.NewTimer()
	defer func() {
		timer.ObserveDuration(metrics.ReconciliationDuration)
		metrics.ReconciliationCyclesTotal.Inc()
	}()

	cycleID := uuid.New().String()
	ctx = log.ContextWithCycle(ctx, cycleID)
	logger := log.FromContext(ctx, "reconciler")

	candidates, err := runtime.Discover(ctx, r.deps.Runtime, r.cfg.ContainerLabel)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		metrics.UpdateComponent(metrics.ComponentRuntime, false, err.Error())
		logger.Error().Err(err).Msg("Discovery failed")
		return err
	}
	metrics.UpdateComponent(metrics.ComponentRuntime, true, "")
	if ctx.Err() != nil {
		return nil
	}
	metrics.UnhealthyContainers.Set(float64(len(candidates)))

	if len(candidates) > 0 {
		logger.Debug().Int("candidates", len(candidates)).Msg("Unhealthy containers discovered")
	}

	var wg sync.WaitGroup
	for _, c := range candidates {
		wg.Add(1)
		go func(c types.Candidate) {
			defer wg.Done()
			r.runTask(ctx, logger, c)
		}(c)
	}
	wg.Wait()

	return nil
}

// runTask isolates one container task so that a panic is logged and
// counted instead of crashing the loop
func (r *Reconciler) runTask(ctx context.Context, logger zerolog.Logger, c types.Candidate) {
	defer func() {
		if p := recover(); p != nil {
			metrics.TaskPanicsTotal.Inc()
			l := log.WithContainer(logger, c.Name, c.ID)
			l.Error().
				Str("panic", fmt.Sprint(p)).
				Str("stack", string(debug.Stack())).
				Msgf("%s task panicked", c.Prefix())
		}
	}()

	r.process(ctx, logger, c)
}

// process walks one candidate through policy, inspection, remediation,
// notification and history
func (r *Reconciler) process(ctx context.Context, logger zerolog.Logger, c types.Candidate) {
	if !c.Identified() {
		l := log.WithContainer(logger, c.Name, c.ID)
		l.Error().
			Msg("Could not reliably identify the container; skipping")
		return
	}
	logger = log.WithContainer(logger, c.Name, c.ID)

	pol := policy.Resolve(c.Labels, r.cfg.Defaults)

	if !pol.RestartEnabled {
		if pol.LogAll {
			logger.Warn().Msgf("%s is unhealthy but restart is disabled", c.Prefix())
		}
		return
	}
	if !pol.MonitorEnabled && !pol.LogAll {
		return
	}

	verdict := r.deps.Inspector.Inspect(ctx, c)
	if !verdict.Failing {
		return
	}

	outcome := r.deps.Remediator.Remediate(ctx, c, pol, verdict)

	if r.deps.Notifier != nil {
		r.deps.Notifier.Notify(ctx, remediate.UnhealthySummary(c, verdict), outcome.Summary())
	}

	if r.deps.Recorder == nil {
		return
	}
	if outcome.Summary() == "" && verdict.FailingReason == "" {
		return
	}
	if r.deps.Recorder.Record(types.NewRecord(c, verdict.FailingReason, outcome.Summary(), r.now())) {
		count := r.deps.Recorder.QueryCount(c.ID)
		logger.Info().Int("count", count).
			Msgf("%s has been unhealthy %d time(s)", c.Prefix(), count)
	}
}

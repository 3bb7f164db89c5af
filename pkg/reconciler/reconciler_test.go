package reconciler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cuemby/autoheal/pkg/health"
	"github.com/cuemby/autoheal/pkg/history"
	"github.com/cuemby/autoheal/pkg/log"
	"github.com/cuemby/autoheal/pkg/metrics"
	"github.com/cuemby/autoheal/pkg/policy"
	"github.com/cuemby/autoheal/pkg/remediate"
	"github.com/cuemby/autoheal/pkg/runtime/runtimetest"
	"github.com/cuemby/autoheal/pkg/types"
	"github.com/docker/docker/api/types/container"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webID = "abcdef012345"

type notification struct {
	summary string
	outcome string
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (n *fakeNotifier) Notify(_ context.Context, summary, outcome string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notification{summary: summary, outcome: outcome})
}

func (n *fakeNotifier) Calls() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.calls...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []types.Record
	fail    bool
	queries int
}

func (r *fakeRecorder) Record(rec types.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return false
	}
	r.records = append(r.records, rec)
	return true
}

func (r *fakeRecorder) QueryCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queries++
	count := 0
	for _, rec := range r.records {
		if rec.ID == id {
			count++
		}
	}
	return count
}

type panicInspector struct {
	id   string
	next Inspector
}

func (p panicInspector) Inspect(ctx context.Context, c types.Candidate) types.Verdict {
	if c.ID == p.id {
		panic("inspector exploded")
	}
	return p.next.Inspect(ctx, c)
}

// logBuffer collects log output written by concurrent container tasks
type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type harness struct {
	fake     *runtimetest.Fake
	notifier *fakeNotifier
	recorder *fakeRecorder
	logs     *logBuffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logs := &logBuffer{}
	log.Init(log.Config{Level: log.DebugLevel, JSONOutput: true, Output: logs})

	return &harness{
		fake:     runtimetest.NewFake(),
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
		logs:     logs,
	}
}

func (h *harness) deps() Deps {
	return Deps{
		Runtime:    h.fake,
		Inspector:  health.NewInspector(h.fake),
		Remediator: remediate.New(h.fake, ""),
		Notifier:   h.notifier,
		Recorder:   h.recorder,
	}
}

func (h *harness) addUnhealthy(id, name string, labels map[string]string, streak int, output string, exitCode int) {
	h.fake.Summaries = append(h.fake.Summaries, runtimetest.Summary(id+"0000deadbeef", name, labels))
	h.fake.Inspections[id] = runtimetest.Unhealthy(streak, container.HealthcheckResult{Output: output, ExitCode: exitCode})
}

func (h *harness) linesContaining(s string) []string {
	var lines []string
	for _, line := range strings.Split(h.logs.String(), "\n") {
		if strings.Contains(line, s) {
			lines = append(lines, line)
		}
	}
	return lines
}

func defaults() policy.Defaults {
	return policy.Defaults{StopTimeout: 10, MonitorAll: true}
}

func TestReconcileRemediatesUnhealthyContainer(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", map[string]string{}, 3, "curl: (7) connection refused\n", 7)

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	restarts := h.fake.Restarts()
	require.Len(t, restarts, 1)
	assert.Equal(t, webID, restarts[0].ID)
	assert.Equal(t, 10, restarts[0].Timeout)

	calls := h.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].summary, "is unhealthy with 3 failures")
	assert.Contains(t, calls[0].outcome, "successful")

	require.Len(t, h.recorder.records, 1)
	assert.Equal(t, "curl: (7) connection refused", h.recorder.records[0].Err)
	assert.Equal(t, "web-1", h.recorder.records[0].Name)
	assert.Equal(t, webID, h.recorder.records[0].ID)
	assert.Contains(t, h.recorder.records[0].Action, "successful")
	assert.Len(t, h.linesContaining("has been unhealthy 1 time(s)"), 1)
}

func TestReconcileRestartFailureIsStillReported(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)
	h.fake.RestartErr = errors.New("no such container")

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	calls := h.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].outcome, "failed")
	require.Len(t, h.recorder.records, 1)
	assert.Contains(t, h.recorder.records[0].Action, "no such container")
}

func TestReconcileRestartDisabled(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", map[string]string{types.LabelRestartEnable: "false"}, 3, "boom", 1)

	d := defaults()
	d.LogAll = true
	r := New(Config{Defaults: d}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	lines := h.linesContaining("restart is disabled")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"warn"`)
	assert.Empty(t, h.fake.Restarts())
	assert.Empty(t, h.fake.Inspected())
	assert.Empty(t, h.notifier.Calls())
	assert.Empty(t, h.recorder.records)
}

func TestReconcileRestartDisabledQuietWithoutLogAll(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", map[string]string{types.LabelRestartEnable: "false"}, 3, "boom", 1)

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	assert.Empty(t, h.linesContaining("restart is disabled"))
	assert.Empty(t, h.fake.Restarts())
}

func TestReconcileMonitorDisabled(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)

	r := New(Config{Defaults: policy.Defaults{StopTimeout: 10}}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	assert.Empty(t, h.linesContaining(`"container":"web-1"`))
	assert.Empty(t, h.fake.Inspected())
	assert.Empty(t, h.fake.Restarts())
	assert.Empty(t, h.notifier.Calls())
}

func TestReconcileMonitorLabelOverridesDefault(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", map[string]string{
		types.LabelMonitorEnable: "true",
		types.LabelStopTimeout:   "30",
	}, 2, "boom", 1)

	r := New(Config{Defaults: policy.Defaults{StopTimeout: 10}}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	restarts := h.fake.Restarts()
	require.Len(t, restarts, 1)
	assert.Equal(t, 30, restarts[0].Timeout)
}

func TestReconcileInspectErrorDoesNotRestart(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)
	h.fake.InspectErr = errors.New("connection reset by peer")

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	assert.Len(t, h.fake.Inspected(), 1)
	assert.Empty(t, h.fake.Restarts())
	assert.Empty(t, h.notifier.Calls())
	assert.Empty(t, h.recorder.records)
}

func TestReconcileHealthyAgainIsNotRestarted(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 0, "ok", 0)

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	assert.Empty(t, h.fake.Restarts())
}

func TestReconcileUnidentifiedContainer(t *testing.T) {
	h := newHarness(t)
	h.fake.Summaries = []container.Summary{{ID: "0123456789abcdef"}}

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	lines := h.linesContaining("reliably identify")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"level":"error"`)
	assert.Empty(t, h.fake.Inspected())
	assert.Empty(t, h.fake.Restarts())
}

func TestReconcileWithoutRecorder(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)

	deps := h.deps()
	deps.Recorder = nil
	deps.Notifier = nil

	r := New(Config{Defaults: defaults()}, deps)
	require.NoError(t, r.reconcile(context.Background()))

	assert.Len(t, h.fake.Restarts(), 1)
	assert.Empty(t, h.linesContaining("time(s)"))
}

func TestReconcileRecordFailureSkipsCount(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)
	h.recorder.fail = true

	r := New(Config{Defaults: defaults()}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	assert.Len(t, h.fake.Restarts(), 1)
	assert.Zero(t, h.recorder.queries)
	assert.Empty(t, h.linesContaining("time(s)"))
}

func TestReconcileWritesHistoryStore(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "curl: (7) connection refused", 7)

	store, err := history.NewFileStore(t.TempDir())
	require.NoError(t, err)
	deps := h.deps()
	deps.Recorder = history.NewRecorder(store)

	r := New(Config{Defaults: defaults()}, deps)
	require.NoError(t, r.reconcile(context.Background()))
	require.NoError(t, r.reconcile(context.Background()))

	records, err := store.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "curl: (7) connection refused", records[0].Err)
	assert.Len(t, h.linesContaining("has been unhealthy 2 time(s)"), 1)
}

func TestReconcilePanicIsIsolated(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)
	h.addUnhealthy("0123456789ab", "db", nil, 3, "boom", 1)

	deps := h.deps()
	deps.Inspector = panicInspector{id: webID, next: deps.Inspector}
	before := testutil.ToFloat64(metrics.TaskPanicsTotal)

	r := New(Config{Defaults: defaults()}, deps)
	require.NoError(t, r.reconcile(context.Background()))

	restarts := h.fake.Restarts()
	require.Len(t, restarts, 1)
	assert.Equal(t, "0123456789ab", restarts[0].ID)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.TaskPanicsTotal))

	lines := h.linesContaining("inspector exploded")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"container":"web-1"`)
	assert.Contains(t, lines[0], "stack")
}

func TestReconcileConcurrentLogLinesStayIntact(t *testing.T) {
	h := newHarness(t)
	disabled := map[string]string{types.LabelRestartEnable: "false"}
	for i := 0; i < 8; i++ {
		h.addUnhealthy(fmt.Sprintf("%012d", i), fmt.Sprintf("svc-%d", i), disabled, 3, "boom", 1)
	}

	r := New(Config{Defaults: policy.Defaults{StopTimeout: 10, LogAll: true}}, h.deps())
	require.NoError(t, r.reconcile(context.Background()))

	lines := h.linesContaining("restart is disabled")
	require.Len(t, lines, 8)
	for _, line := range lines {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		assert.Equal(t, "warn", entry["level"])
		assert.NotEmpty(t, entry["cycle_id"])
	}
	assert.Empty(t, h.fake.Restarts())
}

func TestReconcileTasksRunConcurrently(t *testing.T) {
	h := newHarness(t)
	ids := []string{"aaaaaaaaaaaa", "bbbbbbbbbbbb", "cccccccccccc"}
	for i, id := range ids {
		h.addUnhealthy(id, "svc-"+string(rune('a'+i)), nil, 1, "boom", 1)
	}

	// Every inspection waits until all of them have started
	var started sync.WaitGroup
	started.Add(len(ids))
	release := make(chan struct{})
	go func() {
		started.Wait()
		close(release)
	}()
	h.fake.InspectHook = func(string) {
		started.Done()
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}

	r := New(Config{Defaults: defaults()}, h.deps())
	start := time.Now()
	require.NoError(t, r.reconcile(context.Background()))

	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, h.fake.Restarts(), len(ids))
}

func TestRunCyclesDoNotOverlap(t *testing.T) {
	h := newHarness(t)
	h.addUnhealthy(webID, "web-1", nil, 3, "boom", 1)

	var inFlight atomic.Int32
	var overlapped atomic.Bool
	h.fake.InspectHook = func(string) {
		inFlight.Store(1)
		time.Sleep(50 * time.Millisecond)
		inFlight.Store(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.fake.ListHook = func(call int) {
		if inFlight.Load() != 0 {
			overlapped.Store(true)
		}
		if call >= 3 {
			cancel()
		}
	}

	r := New(Config{Interval: 10 * time.Millisecond, Defaults: defaults()}, h.deps())
	require.NoError(t, r.Run(ctx))

	assert.False(t, overlapped.Load())
	assert.Len(t, h.fake.ListCalls(), 3)
	assert.Len(t, h.fake.Restarts(), 2)
}

func TestRunReturnsDiscoveryError(t *testing.T) {
	h := newHarness(t)
	cause := errors.New("Cannot connect to the Docker daemon")
	h.fake.ListErr = cause

	r := New(Config{Interval: 10 * time.Millisecond}, h.deps())
	err := r.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Len(t, h.fake.ListCalls(), 1)
}

func TestRunStopsDuringStartDelay(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := New(Config{StartDelay: time.Hour}, h.deps())
	require.NoError(t, r.Run(ctx))
	assert.Empty(t, h.fake.ListCalls())
}

func TestRunWaitsForStartDelay(t *testing.T) {
	h := newHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var first time.Time
	h.fake.ListHook = func(int) {
		first = time.Now()
		cancel()
	}

	start := time.Now()
	r := New(Config{StartDelay: 30 * time.Millisecond}, h.deps())
	require.NoError(t, r.Run(ctx))

	require.False(t, first.IsZero())
	assert.GreaterOrEqual(t, first.Sub(start), 30*time.Millisecond)
}

func TestNewDefaults(t *testing.T) {
	r := New(Config{}, Deps{})
	assert.Equal(t, DefaultInterval, r.cfg.Interval)
	assert.Equal(t, types.LabelFilterAll, r.cfg.ContainerLabel)
}

// Package simulator drives a compiled workflow through a timed, simulated
// execution. Every node moves idle -> running -> success|failed.
//
// A run is consumed by one driver goroutine from an ordered queue of
// execution units, one unit per topology layer. Layer i starts at
// i*LayerInterval; its nodes resolve ResolveDelay later, each independently
// of its siblings and predecessors. A failed node does not stop later
// layers. All callbacks are invoked sequentially from the driver goroutine.
package simulator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/topology"
)

// Callbacks receive progress events. Nil callbacks are skipped.
type Callbacks struct {
	OnLayerStart func(layer int, nodeIDs []string)
	OnNodeStatus func(nodeID string, status workflow.Status)
	OnComplete   func(Summary)
}

// Outcome decides whether a node succeeds. It is called once per node.
type Outcome func(node workflow.Node) bool

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulator) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records run and node results on m.
func WithMetrics(m *Metrics) Option {
	return func(s *Simulator) { s.metrics = m }
}

// WithOutcome replaces the random success draw.
func WithOutcome(fn Outcome) Option {
	return func(s *Simulator) { s.outcome = fn }
}

// Simulator executes workflows on a fixed timing schedule.
type Simulator struct {
	cfg     Config
	logger  *slog.Logger
	metrics *Metrics
	outcome Outcome
}

// New creates a Simulator. Out-of-range config values are clamped.
func New(cfg Config, opts ...Option) *Simulator {
	s := &Simulator{
		cfg:    cfg.normalized(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.outcome == nil {
		rate := *s.cfg.SuccessRate
		s.outcome = func(workflow.Node) bool {
			return rand.Float64() < rate // #nosec G404 non-crypto
		}
	}
	s.logger = s.logger.With("component", "simulator")
	return s
}

// Config returns the effective configuration.
func (s *Simulator) Config() Config { return s.cfg }

// unit is one scheduled layer.
type unit struct {
	index int
	nodes []string
}

// Execute snapshots w, compiles it and starts a run. It returns at once;
// the run proceeds on its own goroutine until it completes or is cancelled
// through the returned handle or ctx.
func (s *Simulator) Execute(ctx context.Context, w workflow.Workflow, cb Callbacks) *Run {
	snapshot := w.Clone()
	plan := topology.Compile(snapshot)

	units := make([]unit, len(plan.Layers))
	for i, layer := range plan.Layers {
		units[i] = unit{index: i, nodes: append([]string(nil), layer...)}
	}

	nodes := make(map[string]workflow.Node, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		nodes[n.ID] = n
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:         uuid.NewString(),
		WorkflowID: snapshot.ID,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	s.logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.String("workflow_id", snapshot.ID),
		slog.Int("layers", len(units)),
		slog.Int("unreachable", len(plan.Unreachable)))
	s.metrics.runStarted()

	go s.drive(runCtx, run, nodes, units, cb)
	return run
}

func (s *Simulator) drive(ctx context.Context, run *Run, nodes map[string]workflow.Node, units []unit, cb Callbacks) {
	defer close(run.done)
	defer run.cancel()

	start := time.Now()
	sum := Summary{RunID: run.ID, WorkflowID: run.WorkflowID}
	var running []string

	finish := func(cancelled bool) {
		if cancelled {
			for _, id := range running {
				cb.status(id, workflow.StatusIdle)
			}
			sum.Cancelled = true
		}
		sum.Duration = time.Since(start)
		run.summary = sum
		s.metrics.runFinished(sum)
		s.logger.Info("run finished",
			slog.String("run_id", run.ID),
			slog.String("result", sum.Result()),
			slog.Int("layers", sum.Layers),
			slog.Int("failed", len(sum.Failed)),
			slog.Duration("duration", sum.Duration))
		cb.complete(sum)
	}

	if len(units) == 0 {
		finish(false)
		return
	}

	for _, u := range units {
		if ctx.Err() != nil {
			finish(true)
			return
		}

		sum.Layers++
		s.metrics.layerStarted()
		s.logger.Debug("layer started", slog.String("run_id", run.ID), slog.Int("layer", u.index), slog.Int("nodes", len(u.nodes)))
		cb.layerStart(u.index, u.nodes)

		for _, id := range u.nodes {
			cb.status(id, workflow.StatusRunning)
		}
		running = u.nodes

		if !sleep(ctx, s.cfg.ResolveDelay) {
			finish(true)
			return
		}

		for _, id := range u.nodes {
			n := nodes[id]
			status := workflow.StatusFailed
			if s.outcome(n) {
				status = workflow.StatusSuccess
				sum.Succeeded = append(sum.Succeeded, id)
			} else {
				sum.Failed = append(sum.Failed, id)
			}
			s.metrics.nodeResolved(n.Type, status)
			cb.status(id, status)
		}
		running = nil

		if !sleep(ctx, s.cfg.LayerInterval-s.cfg.ResolveDelay) {
			finish(true)
			return
		}
	}

	if !sleep(ctx, s.cfg.CompletionBuffer) {
		finish(true)
		return
	}
	finish(false)
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (cb Callbacks) layerStart(layer int, ids []string) {
	if cb.OnLayerStart != nil {
		cb.OnLayerStart(layer, append([]string(nil), ids...))
	}
}

func (cb Callbacks) status(id string, s workflow.Status) {
	if cb.OnNodeStatus != nil {
		cb.OnNodeStatus(id, s)
	}
}

func (cb Callbacks) complete(sum Summary) {
	if cb.OnComplete != nil {
		cb.OnComplete(sum)
	}
}

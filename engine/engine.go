// Package engine holds the single active workflow of an editing session.
//
// The active workflow is shared between interactive edits and the status
// writes of a simulated run, so every access goes through one mutex. A run
// executes against a snapshot taken when it starts; status updates for
// nodes that were deleted since, or for a workflow that is no longer
// active, are dropped.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/meikuraledutech/workflow"
	"github.com/meikuraledutech/workflow/repository"
	"github.com/meikuraledutech/workflow/simulator"
	"github.com/meikuraledutech/workflow/topology"
)

// Engine is the session-level entry point for editing and running workflows.
type Engine struct {
	repo   *repository.Repository
	sim    *simulator.Simulator
	logger *slog.Logger

	mu     sync.Mutex
	active workflow.Workflow
	run    *simulator.Run
	gen    uint64 // bumped whenever the active workflow or run is replaced
}

// New creates an Engine whose active workflow is the repository's first preset.
func New(repo *repository.Repository, sim *simulator.Simulator, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	first, ok := repo.FirstPreset()
	if !ok {
		return nil, fmt.Errorf("workflow: repository has no presets: %w", workflow.ErrWorkflowNotFound)
	}
	return &Engine{
		repo:   repo,
		sim:    sim,
		logger: logger.With("component", "engine"),
		active: first,
	}, nil
}

// Active returns a snapshot of the active workflow.
func (e *Engine) Active() workflow.Workflow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active.Clone()
}

// Workflows lists presets followed by custom workflows.
func (e *Engine) Workflows() []workflow.Workflow {
	return e.repo.List()
}

// Get returns a stored workflow without making it active.
func (e *Engine) Get(id string) (workflow.Workflow, error) {
	return e.repo.Get(id)
}

// Node returns a copy of a node of the active workflow.
func (e *Engine) Node(id string) (workflow.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := e.active.Node(id)
	if n == nil {
		return workflow.Node{}, false
	}
	return copyNode(*n), true
}

// Load makes the workflow with the given id active. Any run in flight is
// cancelled.
func (e *Engine) Load(id string) (workflow.Workflow, error) {
	w, err := e.repo.Get(id)
	if err != nil {
		return workflow.Workflow{}, err
	}
	w.ResetStatus()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.activate(w)
	return w.Clone(), nil
}

// New creates a custom workflow with a single trigger and makes it active.
func (e *Engine) New(ctx context.Context) (workflow.Workflow, error) {
	w, err := e.repo.New(ctx)
	if err != nil {
		return workflow.Workflow{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.activate(w)
	return w.Clone(), nil
}

// Save persists the active workflow. Saving a preset forks it and the fork
// becomes the active workflow. The active nodes, including their run
// statuses, stay as they are; only the identity and timestamps change.
func (e *Engine) Save(ctx context.Context) (workflow.Workflow, error) {
	e.mu.Lock()
	snapshot := e.active.Clone()
	gen := e.gen
	e.mu.Unlock()

	saved, err := e.repo.Save(ctx, snapshot)
	if err != nil {
		return workflow.Workflow{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == gen && e.active.ID == snapshot.ID {
		e.active.ID = saved.ID
		e.active.Name = saved.Name
		e.active.IsPreset = saved.IsPreset
		e.active.CreatedAt = saved.CreatedAt
		e.active.UpdatedAt = saved.UpdatedAt
	}
	return saved, nil
}

// Delete removes a custom workflow. Deleting the active workflow makes the
// first preset active.
func (e *Engine) Delete(ctx context.Context, id string) error {
	if err := e.repo.Delete(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active.ID != id {
		return nil
	}
	first, ok := e.repo.FirstPreset()
	if !ok {
		return fmt.Errorf("workflow: repository has no presets: %w", workflow.ErrWorkflowNotFound)
	}
	e.activate(first)
	e.logger.Info("active workflow deleted, reset to first preset", slog.String("workflow_id", first.ID))
	return nil
}

// activate swaps the active workflow. Callers hold e.mu.
func (e *Engine) activate(w workflow.Workflow) {
	if e.run != nil {
		e.run.Cancel()
		e.run = nil
	}
	e.gen++
	e.active = w
}

// Layers compiles the active workflow.
func (e *Engine) Layers() topology.Plan {
	e.mu.Lock()
	defer e.mu.Unlock()
	return topology.Compile(e.active)
}

// Execute resets every node of the active workflow to idle and starts a
// simulated run on a snapshot of it. Status updates are written back to the
// active workflow before cb.OnNodeStatus is called; updates for nodes that
// no longer exist are dropped without reaching cb. Starting a run cancels
// the previous one.
func (e *Engine) Execute(ctx context.Context, cb simulator.Callbacks) *simulator.Run {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run != nil {
		e.run.Cancel()
	}
	e.gen++
	gen := e.gen
	e.active.ResetStatus()
	snapshot := e.active.Clone()

	wrapped := simulator.Callbacks{
		OnLayerStart: cb.OnLayerStart,
		OnNodeStatus: func(id string, s workflow.Status) {
			if !e.writeStatus(gen, id, s) {
				return
			}
			if cb.OnNodeStatus != nil {
				cb.OnNodeStatus(id, s)
			}
		},
		OnComplete: cb.OnComplete,
	}

	run := e.sim.Execute(ctx, snapshot, wrapped)
	e.run = run
	return run
}

// Cancel stops the run in flight. It reports whether there was one.
// Nodes the run left running are reset to idle.
func (e *Engine) Cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == nil {
		return false
	}
	run := e.run
	e.run = nil
	select {
	case <-run.Done():
		return false
	default:
	}
	run.Cancel()
	return true
}

// writeStatus applies a status update from the run started at generation
// gen. Updates from superseded runs or for removed nodes are dropped.
func (e *Engine) writeStatus(gen uint64, nodeID string, s workflow.Status) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.gen != gen {
		return false
	}
	n := e.active.Node(nodeID)
	if n == nil {
		e.logger.Debug("status for removed node dropped", slog.String("node_id", nodeID))
		return false
	}
	n.Status = s
	return true
}

// edit applies fn to the active workflow under the lock.
func (e *Engine) edit(fn func(w *workflow.Workflow)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(&e.active)
}

// AddNode adds a node of type t to the active workflow.
func (e *Engine) AddNode(t workflow.NodeType) (workflow.Node, error) {
	if !t.Valid() {
		return workflow.Node{}, fmt.Errorf("workflow: unknown node type %q", t)
	}
	var n workflow.Node
	e.edit(func(w *workflow.Workflow) { n = w.AddNode(t) })
	return n, nil
}

// RemoveNode deletes a node and its edges from the active workflow.
func (e *Engine) RemoveNode(id string) bool {
	var ok bool
	e.edit(func(w *workflow.Workflow) { ok = w.RemoveNode(id) })
	return ok
}

// AddEdge connects two nodes of the active workflow.
func (e *Engine) AddEdge(source, target string) (workflow.Edge, workflow.Result) {
	var (
		edge workflow.Edge
		res  workflow.Result
	)
	e.edit(func(w *workflow.Workflow) { edge, res = w.AddEdge(source, target) })
	return edge, res
}

// RemoveEdge deletes an edge from the active workflow.
func (e *Engine) RemoveEdge(id string) bool {
	var ok bool
	e.edit(func(w *workflow.Workflow) { ok = w.RemoveEdge(id) })
	return ok
}

// UpdateNodeConfig merges partial into a node's config.
func (e *Engine) UpdateNodeConfig(id string, partial map[string]any) workflow.Result {
	var res workflow.Result
	e.edit(func(w *workflow.Workflow) { res = w.UpdateNodeConfig(id, partial) })
	return res
}

// UpdateNodeConfigJSON merges raw editor JSON into a node's config.
func (e *Engine) UpdateNodeConfigJSON(id string, raw []byte) workflow.Result {
	var res workflow.Result
	e.edit(func(w *workflow.Workflow) { res = w.UpdateNodeConfigJSON(id, raw) })
	return res
}

// NodeUpdate lists the node fields to change. Nil fields are left alone.
type NodeUpdate struct {
	Label      *string
	Position   *workflow.Position
	Config     map[string]any
	ConfigJSON []byte
}

// UpdateNode applies u to a node as one change: if either config part is
// rejected, nothing is applied. It returns the updated node.
func (e *Engine) UpdateNode(id string, u NodeUpdate) (workflow.Node, workflow.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := e.active.Node(id)
	if n == nil {
		return workflow.Node{}, workflow.Result{Reason: workflow.ReasonNodeNotFound}
	}

	draft := workflow.Workflow{Nodes: []workflow.Node{copyNode(*n)}}
	if u.Config != nil {
		if res := draft.UpdateNodeConfig(id, u.Config); res.Rejected() {
			return workflow.Node{}, res
		}
	}
	if u.ConfigJSON != nil {
		if res := draft.UpdateNodeConfigJSON(id, u.ConfigJSON); res.Rejected() {
			return workflow.Node{}, res
		}
	}
	if u.Label != nil {
		draft.UpdateNodeLabel(id, *u.Label)
	}
	if u.Position != nil {
		draft.MoveNode(id, *u.Position)
	}

	*n = draft.Nodes[0]
	return copyNode(*n), workflow.Result{}
}

func copyNode(n workflow.Node) workflow.Node {
	w := workflow.Workflow{Nodes: []workflow.Node{n}}
	return w.Clone().Nodes[0]
}

// UpdateNodeLabel relabels a node.
func (e *Engine) UpdateNodeLabel(id, label string) bool {
	var ok bool
	e.edit(func(w *workflow.Workflow) { ok = w.UpdateNodeLabel(id, label) })
	return ok
}

// MoveNode sets a node's canvas position.
func (e *Engine) MoveNode(id string, p workflow.Position) bool {
	var ok bool
	e.edit(func(w *workflow.Workflow) { ok = w.MoveNode(id, p) })
	return ok
}

// Rename renames the active workflow.
func (e *Engine) Rename(name string) {
	e.edit(func(w *workflow.Workflow) { w.Rename(name) })
}

// SetDescription sets the active workflow's description.
func (e *Engine) SetDescription(text string) {
	e.edit(func(w *workflow.Workflow) { w.SetDescription(text) })
}

// IsNotFound reports whether err means a workflow, node or edge is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, workflow.ErrWorkflowNotFound) ||
		errors.Is(err, workflow.ErrNodeNotFound) ||
		errors.Is(err, workflow.ErrEdgeNotFound)
}

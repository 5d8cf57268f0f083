package workflow

import (
	"dario.cat/mergo"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

const (
	originX     = 120
	originY     = 120
	staggerStep = 40
	staggerWrap = 8
)

// AddNode appends a new idle node of type t and returns a copy of it.
// The node gets a fresh UUID, a staggered default position, the type's
// default label and a copy of the type's default config.
func (w *Workflow) AddNode(t NodeType) Node {
	d := t.Describe()
	slot := float64(len(w.Nodes) % staggerWrap)
	n := Node{
		ID:    uuid.NewString(),
		Type:  t,
		Label: d.Label,
		Position: Position{
			X: originX + slot*staggerStep,
			Y: originY + slot*staggerStep,
		},
		Config: cloneConfig(d.Defaults),
		Status: StatusIdle,
	}
	w.Nodes = append(w.Nodes, n)
	return n
}

// RemoveNode deletes the node and every edge touching it.
// Returns false if no node has the given id.
func (w *Workflow) RemoveNode(id string) bool {
	idx := -1
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	edges := make([]Edge, 0, len(w.Edges))
	for _, e := range w.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	w.Edges = edges
	w.Nodes = append(w.Nodes[:idx:idx], w.Nodes[idx+1:]...)
	return true
}

// AddEdge connects source to target. The edge is refused when either
// endpoint is missing, the pair already exists, source equals target, or
// the edge would close a cycle.
func (w *Workflow) AddEdge(source, target string) (Edge, Result) {
	if w.Node(source) == nil || w.Node(target) == nil {
		return Edge{}, rejected(ReasonMissingEndpoint)
	}
	if source == target {
		return Edge{}, rejected(ReasonSelfLoop)
	}
	for _, e := range w.Edges {
		if e.Source == source && e.Target == target {
			return Edge{}, rejected(ReasonDuplicate)
		}
	}

	edge := Edge{ID: uuid.NewString(), Source: source, Target: target}
	candidate := append(w.Edges[:len(w.Edges):len(w.Edges)], edge)
	if err := validateAcyclic(w.Nodes, candidate); err != nil {
		return Edge{}, rejected(ReasonCycle)
	}

	w.Edges = candidate
	return edge, Result{}
}

// RemoveEdge deletes the edge with the given id.
// Returns false if the edge doesn't exist.
func (w *Workflow) RemoveEdge(id string) bool {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			w.Edges = append(w.Edges[:i:i], w.Edges[i+1:]...)
			return true
		}
	}
	return false
}

// UpdateNodeConfig merges partial into the node's config. Keys in partial
// override existing keys.
func (w *Workflow) UpdateNodeConfig(id string, partial map[string]any) Result {
	n := w.Node(id)
	if n == nil {
		return rejected(ReasonNodeNotFound)
	}

	merged := cloneConfig(n.Config)
	if err := mergo.Merge(&merged, cloneConfig(partial), mergo.WithOverride); err != nil {
		return rejected(ReasonInvalidConfig)
	}
	n.Config = merged
	return Result{}
}

// UpdateNodeConfigJSON parses raw editor text as a JSON object and merges it
// into the node's config. Malformed input is refused and the previous config
// is kept.
func (w *Workflow) UpdateNodeConfigJSON(id string, raw []byte) Result {
	if w.Node(id) == nil {
		return rejected(ReasonNodeNotFound)
	}

	var partial map[string]any
	if err := json.Unmarshal(raw, &partial); err != nil || partial == nil {
		return rejected(ReasonInvalidConfig)
	}
	return w.UpdateNodeConfig(id, partial)
}

// UpdateNodeLabel sets the node's label. Returns false if the node doesn't exist.
func (w *Workflow) UpdateNodeLabel(id, label string) bool {
	n := w.Node(id)
	if n == nil {
		return false
	}
	n.Label = label
	return true
}

// MoveNode sets the node's canvas position. Returns false if the node doesn't exist.
func (w *Workflow) MoveNode(id string, p Position) bool {
	n := w.Node(id)
	if n == nil {
		return false
	}
	n.Position = p
	return true
}

// Rename sets the workflow name.
func (w *Workflow) Rename(name string) { w.Name = name }

// SetDescription sets the workflow description.
func (w *Workflow) SetDescription(text string) { w.Description = text }

// ResetStatus puts every node back to idle.
func (w *Workflow) ResetStatus() {
	for i := range w.Nodes {
		w.Nodes[i].Status = StatusIdle
	}
}

// Acyclic returns ErrCycleDetected if the edges form a cycle.
func (w *Workflow) Acyclic() error {
	return validateAcyclic(w.Nodes, w.Edges)
}

// validateAcyclic checks that the edges don't form a cycle using DFS.
func validateAcyclic(nodes []Node, edges []Edge) error {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, ok := state[n.ID]; !ok {
			order = append(order, n.ID)
		}
		state[n.ID] = unvisited
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range order {
		if state[id] == unvisited {
			if dfs(id) {
				return ErrCycleDetected
			}
		}
	}

	return nil
}

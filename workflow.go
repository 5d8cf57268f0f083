package workflow

import "time"

// Workflow is a directed graph of operational steps.
// A Workflow exclusively owns its nodes and edges.
// Presets are read-only; editing one produces an independent custom copy.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Nodes       []Node    `json:"nodes"`
	Edges       []Edge    `json:"edges"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	IsPreset    bool      `json:"isPreset"`
}

// Position is the canvas location of a node. It is owned by the
// presentation layer and only stored here.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node represents a single step in a workflow.
type Node struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Label    string         `json:"label"`
	Position Position       `json:"position"`
	Config   map[string]any `json:"config"`
	Status   Status         `json:"status"`
}

// Edge represents a directed connection from Source to Target.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Node returns a pointer to the node with the given id, or nil.
// The pointer is only valid until the next structural mutation.
func (w *Workflow) Node(id string) *Node {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i]
		}
	}
	return nil
}

// Edge returns a pointer to the edge with the given id, or nil.
func (w *Workflow) Edge(id string) *Edge {
	for i := range w.Edges {
		if w.Edges[i].ID == id {
			return &w.Edges[i]
		}
	}
	return nil
}

// Triggers returns the ids of all trigger nodes in node order.
func (w *Workflow) Triggers() []string {
	var ids []string
	for _, n := range w.Nodes {
		if n.Type == TypeTrigger {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// Clone returns a deep copy. Config values are copied recursively so the
// clone shares no maps or slices with w.
func (w Workflow) Clone() Workflow {
	c := w
	c.Nodes = make([]Node, len(w.Nodes))
	for i, n := range w.Nodes {
		n.Config = cloneConfig(n.Config)
		c.Nodes[i] = n
	}
	c.Edges = make([]Edge, len(w.Edges))
	copy(c.Edges, w.Edges)
	return c
}

// Validate checks that every edge endpoint resolves, that node and edge ids
// are unique and that no (source, target) pair repeats.
func (w *Workflow) Validate() error {
	nodes := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.ID == "" {
			return ErrInvalidWorkflow
		}
		if _, dup := nodes[n.ID]; dup {
			return ErrInvalidWorkflow
		}
		if !n.Type.Valid() {
			return ErrInvalidWorkflow
		}
		nodes[n.ID] = struct{}{}
	}

	edges := make(map[string]struct{}, len(w.Edges))
	pairs := make(map[[2]string]struct{}, len(w.Edges))
	for _, e := range w.Edges {
		if _, ok := nodes[e.Source]; !ok {
			return ErrNodeNotFound
		}
		if _, ok := nodes[e.Target]; !ok {
			return ErrNodeNotFound
		}
		if _, dup := edges[e.ID]; dup {
			return ErrInvalidWorkflow
		}
		pair := [2]string{e.Source, e.Target}
		if _, dup := pairs[pair]; dup {
			return ErrInvalidWorkflow
		}
		edges[e.ID] = struct{}{}
		pairs[pair] = struct{}{}
	}
	return nil
}

func cloneConfig(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneConfig(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	case []string:
		s := make([]string, len(t))
		copy(s, t)
		return s
	default:
		return v
	}
}

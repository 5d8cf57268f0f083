// Package topology compiles a workflow snapshot into execution layers.
//
// Layers are computed by breadth-first search from every trigger node:
// a node lands in the layer equal to its minimum edge-hop distance from
// any trigger. A node with several parents therefore runs as soon as its
// shallowest parent's layer has run, not after all parents finish.
//
// Cycles are not reported here. A node that was already placed is never
// enqueued again, so a cycle is cut at its first revisit.
package topology

import "github.com/meikuraledutech/workflow"

// Plan is the compiled form of a workflow.
type Plan struct {
	// Layers holds node ids grouped by distance from the nearest trigger.
	Layers [][]string

	// Adjacency maps a node id to its successors in edge order.
	Adjacency map[string][]string

	// InDegree counts incoming edges per node.
	InDegree map[string]int

	// Unreachable lists nodes that no trigger reaches, in node order.
	Unreachable []string

	layerOf map[string]int
}

// Compile builds adjacency and in-degree tables for w and layers every node
// reachable from a trigger. w is read, never modified.
func Compile(w workflow.Workflow) Plan {
	p := Plan{
		Adjacency: make(map[string][]string, len(w.Nodes)),
		InDegree:  make(map[string]int, len(w.Nodes)),
		layerOf:   make(map[string]int, len(w.Nodes)),
	}

	known := make(map[string]struct{}, len(w.Nodes))
	for _, n := range w.Nodes {
		known[n.ID] = struct{}{}
		p.InDegree[n.ID] = 0
	}
	for _, e := range w.Edges {
		// Skip edges whose endpoints are gone; a snapshot may be mid-edit.
		if _, ok := known[e.Source]; !ok {
			continue
		}
		if _, ok := known[e.Target]; !ok {
			continue
		}
		p.Adjacency[e.Source] = append(p.Adjacency[e.Source], e.Target)
		p.InDegree[e.Target]++
	}

	current := w.Triggers()
	for _, id := range current {
		p.layerOf[id] = 0
	}

	for len(current) > 0 {
		p.Layers = append(p.Layers, current)
		depth := len(p.Layers)

		var next []string
		for _, id := range current {
			for _, succ := range p.Adjacency[id] {
				if _, seen := p.layerOf[succ]; seen {
					continue
				}
				p.layerOf[succ] = depth
				next = append(next, succ)
			}
		}
		current = next
	}

	for _, n := range w.Nodes {
		if _, ok := p.layerOf[n.ID]; !ok {
			p.Unreachable = append(p.Unreachable, n.ID)
		}
	}

	return p
}

// LayerOf returns the layer index of id and whether id was placed at all.
func (p Plan) LayerOf(id string) (int, bool) {
	l, ok := p.layerOf[id]
	return l, ok
}

// NodeCount returns the number of nodes placed in any layer.
func (p Plan) NodeCount() int {
	n := 0
	for _, l := range p.Layers {
		n += len(l)
	}
	return n
}

// Empty reports whether the plan schedules nothing.
func (p Plan) Empty() bool { return len(p.Layers) == 0 }

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newTestWorkflow() *Workflow {
	return &Workflow{ID: "wf-test", Name: "test"}
}

func TestAddNode_Defaults(t *testing.T) {
	w := newTestWorkflow()

	n := w.AddNode(TypeBuild)

	require.Len(t, w.Nodes, 1)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, TypeBuild, n.Type)
	assert.Equal(t, "Build", n.Label)
	assert.Equal(t, StatusIdle, n.Status)
	assert.NotNil(t, n.Config)
	assert.Empty(t, n.Config)

	second := w.AddNode(TypeTest)
	assert.NotEqual(t, n.ID, second.ID)
	assert.NotEqual(t, n.Position, second.Position)
}

func TestAddNode_TriggerDefaultsAreCopied(t *testing.T) {
	w := newTestWorkflow()
	n := w.AddNode(TypeTrigger)

	w.Node(n.ID).Config["branch"] = "release"

	assert.Equal(t, "main", TypeTrigger.Describe().Defaults["branch"])
}

func TestAddThenRemoveNode_RestoresCounts(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeBuild)
	b := w.AddNode(TypeTest)
	_, res := w.AddEdge(a.ID, b.ID)
	require.True(t, res.OK())

	nodes, edges := len(w.Nodes), len(w.Edges)

	n := w.AddNode(TypeTrigger)
	require.True(t, w.RemoveNode(n.ID))

	assert.Len(t, w.Nodes, nodes)
	assert.Len(t, w.Edges, edges)
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	w := newTestWorkflow()
	tr := w.AddNode(TypeTrigger)
	a := w.AddNode(TypeBuild)
	b := w.AddNode(TypeTest)
	w.AddEdge(tr.ID, a.ID)
	w.AddEdge(a.ID, b.ID)
	w.AddEdge(tr.ID, b.ID)

	require.True(t, w.RemoveNode(a.ID))

	require.Len(t, w.Edges, 1)
	assert.Equal(t, tr.ID, w.Edges[0].Source)
	assert.Equal(t, b.ID, w.Edges[0].Target)
	assert.NoError(t, w.Validate())
}

func TestRemoveNode_MissingIsNoop(t *testing.T) {
	w := newTestWorkflow()
	w.AddNode(TypeTrigger)

	assert.False(t, w.RemoveNode("nope"))
	assert.Len(t, w.Nodes, 1)
}

func TestAddEdge_Rejections(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeTrigger)
	b := w.AddNode(TypeBuild)
	c := w.AddNode(TypeDeploy)

	_, res := w.AddEdge(a.ID, b.ID)
	require.True(t, res.OK())
	_, res = w.AddEdge(b.ID, c.ID)
	require.True(t, res.OK())

	tests := []struct {
		name   string
		source string
		target string
		reason Reason
	}{
		{name: "duplicate", source: a.ID, target: b.ID, reason: ReasonDuplicate},
		{name: "missing source", source: "ghost", target: b.ID, reason: ReasonMissingEndpoint},
		{name: "missing target", source: a.ID, target: "ghost", reason: ReasonMissingEndpoint},
		{name: "self loop", source: b.ID, target: b.ID, reason: ReasonSelfLoop},
		{name: "cycle", source: c.ID, target: a.ID, reason: ReasonCycle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, res := w.AddEdge(tt.source, tt.target)
			assert.True(t, res.Rejected())
			assert.Equal(t, tt.reason, res.Reason)
			assert.Empty(t, edge.ID)
			assert.Len(t, w.Edges, 2)
		})
	}
}

func TestAddEdge_TwiceYieldsOneEdge(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeTrigger)
	b := w.AddNode(TypeBuild)

	first, res := w.AddEdge(a.ID, b.ID)
	require.True(t, res.OK())
	_, res = w.AddEdge(a.ID, b.ID)
	assert.Equal(t, ReasonDuplicate, res.Reason)

	require.Len(t, w.Edges, 1)
	assert.Equal(t, first.ID, w.Edges[0].ID)
}

func TestRemoveEdge(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeTrigger)
	b := w.AddNode(TypeBuild)
	e, _ := w.AddEdge(a.ID, b.ID)

	assert.False(t, w.RemoveEdge("nope"))
	assert.True(t, w.RemoveEdge(e.ID))
	assert.Empty(t, w.Edges)
	assert.False(t, w.RemoveEdge(e.ID))
}

func TestUpdateNodeConfig_Merges(t *testing.T) {
	w := newTestWorkflow()
	n := w.AddNode(TypeTrigger)

	res := w.UpdateNodeConfig(n.ID, map[string]any{"branch": "release", "cron": "0 * * * *"})
	require.True(t, res.OK())

	cfg := w.Node(n.ID).Config
	assert.Equal(t, "release", cfg["branch"])
	assert.Equal(t, "push", cfg["event"])
	assert.Equal(t, "0 * * * *", cfg["cron"])
}

func TestUpdateNodeConfigJSON(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		reason Reason
		want   map[string]any
	}{
		{
			name: "valid object",
			raw:  `{"image": "app:1.2", "replicas": 3}`,
			want: map[string]any{"image": "app:1.2", "replicas": float64(3)},
		},
		{
			name:   "malformed",
			raw:    `{"image": `,
			reason: ReasonInvalidConfig,
			want:   map[string]any{"image": "app:1.0"},
		},
		{
			name:   "not an object",
			raw:    `[1, 2]`,
			reason: ReasonInvalidConfig,
			want:   map[string]any{"image": "app:1.0"},
		},
		{
			name:   "null",
			raw:    `null`,
			reason: ReasonInvalidConfig,
			want:   map[string]any{"image": "app:1.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorkflow()
			n := w.AddNode(TypeDeploy)
			require.True(t, w.UpdateNodeConfig(n.ID, map[string]any{"image": "app:1.0"}).OK())

			res := w.UpdateNodeConfigJSON(n.ID, []byte(tt.raw))

			assert.Equal(t, tt.reason, res.Reason)
			assert.Equal(t, tt.want, w.Node(n.ID).Config)
		})
	}
}

func TestUpdateNodeConfig_MissingNode(t *testing.T) {
	w := newTestWorkflow()
	assert.Equal(t, ReasonNodeNotFound, w.UpdateNodeConfig("x", map[string]any{"a": 1}).Reason)
	assert.Equal(t, ReasonNodeNotFound, w.UpdateNodeConfigJSON("x", []byte(`{}`)).Reason)
}

func TestLabelPositionRename(t *testing.T) {
	w := newTestWorkflow()
	n := w.AddNode(TypeNotify)

	assert.True(t, w.UpdateNodeLabel(n.ID, "Slack #deploys"))
	assert.True(t, w.MoveNode(n.ID, Position{X: 10, Y: 20}))
	assert.False(t, w.UpdateNodeLabel("x", "y"))
	assert.False(t, w.MoveNode("x", Position{}))
	w.Rename("Nightly")
	w.SetDescription("runs at night")

	got := w.Node(n.ID)
	assert.Equal(t, "Slack #deploys", got.Label)
	assert.Equal(t, Position{X: 10, Y: 20}, got.Position)
	assert.Equal(t, "Nightly", w.Name)
	assert.Equal(t, "runs at night", w.Description)
}

func TestClone_IsDeep(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeTrigger)
	b := w.AddNode(TypeBuild)
	w.AddEdge(a.ID, b.ID)
	w.Node(b.ID).Config = map[string]any{"steps": []any{"make"}, "env": map[string]any{"GOOS": "linux"}}

	c := w.Clone()
	c.Node(b.ID).Config["env"].(map[string]any)["GOOS"] = "darwin"
	c.Node(b.ID).Config["steps"].([]any)[0] = "ninja"
	c.Edges[0].Target = a.ID
	c.RemoveNode(a.ID)

	assert.Len(t, w.Nodes, 2)
	assert.Equal(t, b.ID, w.Edges[0].Target)
	assert.Equal(t, "linux", w.Node(b.ID).Config["env"].(map[string]any)["GOOS"])
	assert.Equal(t, "make", w.Node(b.ID).Config["steps"].([]any)[0])
}

func TestValidate(t *testing.T) {
	w := newTestWorkflow()
	a := w.AddNode(TypeTrigger)
	b := w.AddNode(TypeBuild)
	w.AddEdge(a.ID, b.ID)
	require.NoError(t, w.Validate())

	dangling := w.Clone()
	dangling.Edges = append(dangling.Edges, Edge{ID: "e2", Source: a.ID, Target: "ghost"})
	assert.ErrorIs(t, dangling.Validate(), ErrNodeNotFound)

	dup := w.Clone()
	dup.Edges = append(dup.Edges, Edge{ID: "e3", Source: a.ID, Target: b.ID})
	assert.ErrorIs(t, dup.Validate(), ErrInvalidWorkflow)

	badType := w.Clone()
	badType.Nodes[0].Type = "mystery"
	assert.ErrorIs(t, badType.Validate(), ErrInvalidWorkflow)
}

func TestNodeTypes_AllDescribed(t *testing.T) {
	seen := map[string]bool{}
	for _, nt := range NodeTypes {
		assert.True(t, nt.Valid(), nt)
		d := nt.Describe()
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Icon)
		assert.False(t, seen[d.Color], "duplicate color for %s", nt)
		seen[d.Color] = true
	}
	assert.False(t, NodeType("mystery").Valid())
	assert.Equal(t, "mystery", NodeType("mystery").Describe().Label)
}

// Random sequences of mutations never leave a dangling edge, a duplicate
// pair or a cycle behind.
func TestMutations_PreserveStructureProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := newTestWorkflow()
		steps := rapid.IntRange(1, 60).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			op := rapid.IntRange(0, 3).Draw(t, "op")
			switch {
			case op == 0 || len(w.Nodes) < 2:
				nt := rapid.SampledFrom(NodeTypes).Draw(t, "type")
				w.AddNode(nt)
			case op == 1:
				src := rapid.IntRange(0, len(w.Nodes)-1).Draw(t, "src")
				dst := rapid.IntRange(0, len(w.Nodes)-1).Draw(t, "dst")
				w.AddEdge(w.Nodes[src].ID, w.Nodes[dst].ID)
			case op == 2:
				idx := rapid.IntRange(0, len(w.Nodes)-1).Draw(t, "remove")
				id := w.Nodes[idx].ID
				w.RemoveNode(id)
				for _, e := range w.Edges {
					if e.Source == id || e.Target == id {
						t.Fatalf("edge %s still references removed node %s", e.ID, id)
					}
				}
			case op == 3 && len(w.Edges) > 0:
				idx := rapid.IntRange(0, len(w.Edges)-1).Draw(t, "edge")
				w.RemoveEdge(w.Edges[idx].ID)
			}

			if err := w.Validate(); err != nil {
				t.Fatalf("invalid after step %d: %v", i, err)
			}
			if err := w.Acyclic(); err != nil {
				t.Fatalf("cycle after step %d", i)
			}
		}
	})
}

package repository

import (
	"time"

	"github.com/meikuraledutech/workflow"
)

// presetEpoch is the fixed creation time of every built-in preset.
var presetEpoch = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type presetNode struct {
	id     string
	typ    workflow.NodeType
	label  string
	x, y   float64
	config map[string]any
}

func preset(id, name, description string, nodes []presetNode, edges [][2]string) workflow.Workflow {
	w := workflow.Workflow{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   presetEpoch,
		UpdatedAt:   presetEpoch,
		IsPreset:    true,
	}
	for _, n := range nodes {
		cfg := n.config
		if cfg == nil {
			cfg = map[string]any{}
		}
		w.Nodes = append(w.Nodes, workflow.Node{
			ID:       n.id,
			Type:     n.typ,
			Label:    n.label,
			Position: workflow.Position{X: n.x, Y: n.y},
			Config:   cfg,
			Status:   workflow.StatusIdle,
		})
	}
	w.Edges = []workflow.Edge{}
	for _, e := range edges {
		w.Edges = append(w.Edges, workflow.Edge{
			ID:     e[0] + "->" + e[1],
			Source: e[0],
			Target: e[1],
		})
	}
	return w
}

// DefaultPresets returns the built-in read-only workflows. Each call
// returns fresh values.
func DefaultPresets() []workflow.Workflow {
	return []workflow.Workflow{
		preset("preset-cicd", "CI/CD Pipeline",
			"Build, test, scan and deploy on every push to main.",
			[]presetNode{
				{id: "trigger", typ: workflow.TypeTrigger, label: "Push to main", x: 80, y: 200,
					config: map[string]any{"event": "push", "branch": "main"}},
				{id: "build", typ: workflow.TypeBuild, label: "Build", x: 280, y: 200,
					config: map[string]any{"command": "make build"}},
				{id: "unit", typ: workflow.TypeTest, label: "Unit Tests", x: 480, y: 120,
					config: map[string]any{"command": "make test"}},
				{id: "scan", typ: workflow.TypeSecurity, label: "Dependency Scan", x: 480, y: 280,
					config: map[string]any{"scanner": "trivy"}},
				{id: "deploy", typ: workflow.TypeDeploy, label: "Deploy Staging", x: 680, y: 200,
					config: map[string]any{"environment": "staging"}},
				{id: "notify", typ: workflow.TypeNotify, label: "Notify Team", x: 880, y: 200,
					config: map[string]any{"channel": "#deploys"}},
			},
			[][2]string{
				{"trigger", "build"},
				{"build", "unit"},
				{"build", "scan"},
				{"unit", "deploy"},
				{"scan", "deploy"},
				{"deploy", "notify"},
			}),

		preset("preset-security", "Security Audit",
			"Nightly static analysis and secret scanning with a report.",
			[]presetNode{
				{id: "schedule", typ: workflow.TypeTrigger, label: "Nightly", x: 80, y: 200,
					config: map[string]any{"event": "schedule", "cron": "0 2 * * *"}},
				{id: "sast", typ: workflow.TypeSecurity, label: "Static Analysis", x: 300, y: 120,
					config: map[string]any{"scanner": "semgrep"}},
				{id: "secrets", typ: workflow.TypeSecurity, label: "Secret Scan", x: 300, y: 280,
					config: map[string]any{"scanner": "gitleaks"}},
				{id: "report", typ: workflow.TypeScript, label: "Compile Report", x: 520, y: 200,
					config: map[string]any{"script": "./scripts/report.sh"}},
				{id: "alert", typ: workflow.TypeNotify, label: "Alert Security", x: 740, y: 200,
					config: map[string]any{"channel": "#security"}},
			},
			[][2]string{
				{"schedule", "sast"},
				{"schedule", "secrets"},
				{"sast", "report"},
				{"secrets", "report"},
				{"report", "alert"},
			}),

		preset("preset-release", "Release with Approval",
			"Tagged release that waits for a manual approval before production.",
			[]presetNode{
				{id: "tag", typ: workflow.TypeTrigger, label: "Tag Created", x: 80, y: 200,
					config: map[string]any{"event": "tag", "pattern": "v*"}},
				{id: "build", typ: workflow.TypeBuild, label: "Build Release", x: 260, y: 200},
				{id: "e2e", typ: workflow.TypeTest, label: "E2E Tests", x: 440, y: 200},
				{id: "approve", typ: workflow.TypeApproval, label: "Release Manager", x: 620, y: 200,
					config: map[string]any{"approvers": []any{"release-managers"}}},
				{id: "prod", typ: workflow.TypeDeploy, label: "Deploy Production", x: 800, y: 200,
					config: map[string]any{"environment": "production"}},
				{id: "announce", typ: workflow.TypeNotify, label: "Announce", x: 980, y: 200},
			},
			[][2]string{
				{"tag", "build"},
				{"build", "e2e"},
				{"e2e", "approve"},
				{"approve", "prod"},
				{"prod", "announce"},
			}),

		preset("preset-agent", "Agent Tool Chain",
			"An agent invokes tools and a script, then reports back.",
			[]presetNode{
				{id: "webhook", typ: workflow.TypeTrigger, label: "Webhook", x: 80, y: 200,
					config: map[string]any{"event": "webhook"}},
				{id: "search", typ: workflow.TypeToolCall, label: "Search Logs", x: 300, y: 120,
					config: map[string]any{"tool": "logs.search"}},
				{id: "metrics", typ: workflow.TypeToolCall, label: "Query Metrics", x: 300, y: 280,
					config: map[string]any{"tool": "metrics.query"}},
				{id: "summarize", typ: workflow.TypeScript, label: "Summarize", x: 520, y: 200},
				{id: "reply", typ: workflow.TypeNotify, label: "Reply", x: 740, y: 200},
			},
			[][2]string{
				{"webhook", "search"},
				{"webhook", "metrics"},
				{"search", "summarize"},
				{"metrics", "summarize"},
				{"summarize", "reply"},
			}),
	}
}

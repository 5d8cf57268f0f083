package workflow

// NodeType is the closed set of step kinds a workflow can contain.
type NodeType string

const (
	TypeTrigger  NodeType = "trigger"
	TypeBuild    NodeType = "build"
	TypeTest     NodeType = "test"
	TypeSecurity NodeType = "security"
	TypeDeploy   NodeType = "deploy"
	TypeNotify   NodeType = "notify"
	TypeApproval NodeType = "approval"
	TypeScript   NodeType = "script"
	TypeToolCall NodeType = "tool-call"
)

// NodeTypes lists every node type in palette order.
var NodeTypes = []NodeType{
	TypeTrigger, TypeBuild, TypeTest, TypeSecurity, TypeDeploy,
	TypeNotify, TypeApproval, TypeScript, TypeToolCall,
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	_, ok := t.describe()
	return ok
}

// Status is the execution state of a node.
// Transitions: idle -> running -> success | failed.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Terminal reports whether s ends the node state machine.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Descriptor holds presentation hints and defaults for a node type.
type Descriptor struct {
	Type     NodeType       `json:"type"`
	Label    string         `json:"label"`
	Icon     string         `json:"icon"`
	Color    string         `json:"color"`
	Defaults map[string]any `json:"defaults,omitempty"`
}

// Describe returns the descriptor for t. Unknown types get a neutral
// descriptor labelled with the raw type string.
func (t NodeType) Describe() Descriptor {
	d, ok := t.describe()
	if !ok {
		return Descriptor{Type: t, Label: string(t), Icon: "circle", Color: "#6b7280"}
	}
	return d
}

func (t NodeType) describe() (Descriptor, bool) {
	switch t {
	case TypeTrigger:
		return Descriptor{Type: t, Label: "Trigger", Icon: "zap", Color: "#f59e0b",
			Defaults: map[string]any{"event": "push", "branch": "main"}}, true
	case TypeBuild:
		return Descriptor{Type: t, Label: "Build", Icon: "hammer", Color: "#3b82f6"}, true
	case TypeTest:
		return Descriptor{Type: t, Label: "Test", Icon: "flask", Color: "#10b981"}, true
	case TypeSecurity:
		return Descriptor{Type: t, Label: "Security Scan", Icon: "shield", Color: "#ef4444"}, true
	case TypeDeploy:
		return Descriptor{Type: t, Label: "Deploy", Icon: "rocket", Color: "#8b5cf6"}, true
	case TypeNotify:
		return Descriptor{Type: t, Label: "Notify", Icon: "bell", Color: "#ec4899"}, true
	case TypeApproval:
		return Descriptor{Type: t, Label: "Approval", Icon: "check-circle", Color: "#14b8a6"}, true
	case TypeScript:
		return Descriptor{Type: t, Label: "Script", Icon: "terminal", Color: "#64748b"}, true
	case TypeToolCall:
		return Descriptor{Type: t, Label: "Tool Call", Icon: "wrench", Color: "#f97316"}, true
	}
	return Descriptor{}, false
}

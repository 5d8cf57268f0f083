package workflow

// Reason explains why a mutation was rejected.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonMissingEndpoint Reason = "missing-endpoint"
	ReasonDuplicate       Reason = "duplicate"
	ReasonSelfLoop        Reason = "self-loop"
	ReasonCycle           Reason = "cycle"
	ReasonNodeNotFound    Reason = "node-not-found"
	ReasonInvalidConfig   Reason = "invalid-config"
)

// Result is the outcome of a mutation that may be silently refused.
// A rejected mutation leaves the workflow untouched.
type Result struct {
	Reason Reason `json:"reason,omitempty"`
}

// OK reports whether the mutation was applied.
func (r Result) OK() bool { return r.Reason == ReasonNone }

// Rejected reports whether the mutation was refused.
func (r Result) Rejected() bool { return r.Reason != ReasonNone }

func rejected(reason Reason) Result { return Result{Reason: reason} }

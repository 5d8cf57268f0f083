package simulator

import (
	"context"
	"time"
)

// Summary describes a finished run.
type Summary struct {
	RunID      string        `json:"runId"`
	WorkflowID string        `json:"workflowId"`
	Layers     int           `json:"layers"`
	Succeeded  []string      `json:"succeeded"`
	Failed     []string      `json:"failed"`
	Cancelled  bool          `json:"cancelled"`
	Duration   time.Duration `json:"duration"`
}

// Result classifies the run for metrics and logs.
func (s Summary) Result() string {
	switch {
	case s.Cancelled:
		return "cancelled"
	case s.Layers == 0:
		return "empty"
	case len(s.Failed) > 0:
		return "failed"
	default:
		return "succeeded"
	}
}

// Run is the handle for one in-flight execution.
type Run struct {
	ID         string
	WorkflowID string

	cancel  context.CancelFunc
	done    chan struct{}
	summary Summary
}

// Cancel stops all outstanding scheduled work. Nodes still running are
// reset to idle and the run completes with Summary.Cancelled set.
// Cancel is safe to call more than once and after the run finished.
func (r *Run) Cancel() { r.cancel() }

// Done is closed once OnComplete has returned.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run finishes and returns its summary.
func (r *Run) Wait() Summary {
	<-r.done
	return r.summary
}

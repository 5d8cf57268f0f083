package workflow

import (
	"context"
	"errors"
)

var (
	ErrCycleDetected    = errors.New("workflow: cycle detected, graph is not acyclic")
	ErrNodeNotFound     = errors.New("workflow: node not found")
	ErrEdgeNotFound     = errors.New("workflow: edge not found")
	ErrWorkflowNotFound = errors.New("workflow: workflow not found")
	ErrPresetReadOnly   = errors.New("workflow: presets are read-only")
	ErrInvalidWorkflow  = errors.New("workflow: invalid workflow structure")
)

// Store is a string-keyed durable key-value store. Values are opaque bytes;
// the repository writes plain JSON with no additional framing.
type Store interface {
	// Get returns the value for key. A missing key is not an error:
	// it returns nil, false, nil.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. No error if the key doesn't exist.
	Delete(ctx context.Context, key string) error
}

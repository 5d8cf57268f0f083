// Package repository keeps the built-in preset workflows apart from the
// user's custom workflows and persists the customs through a workflow.Store.
//
// Presets are never modified. Saving a workflow whose IsPreset flag is set
// forks it into a new custom workflow instead.
package repository

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/meikuraledutech/workflow"
)

const (
	// DefaultKey is the store key holding the custom workflow collection.
	DefaultKey = "workflows.custom"

	copySuffix  = " (Copy)"
	defaultName = "Untitled Workflow"
)

// Option configures a Repository.
type Option func(*Repository)

// WithKey overrides the store key for the custom collection.
func WithKey(key string) Option {
	return func(r *Repository) { r.key = key }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Repository) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPresets replaces the built-in presets. Every workflow passed is
// marked as a preset.
func WithPresets(presets []workflow.Workflow) Option {
	return func(r *Repository) {
		r.presets = make([]workflow.Workflow, len(presets))
		for i, p := range presets {
			c := p.Clone()
			c.IsPreset = true
			r.presets[i] = c
		}
	}
}

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// Repository lists, loads, saves and deletes workflows.
// It is safe for concurrent use; writes are last-writer-wins.
type Repository struct {
	store  workflow.Store
	key    string
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	presets []workflow.Workflow
	customs []workflow.Workflow
}

// Open creates a Repository and reads the custom collection from store.
// A corrupt payload is logged and treated as an empty collection; only a
// store read failure is returned.
func Open(ctx context.Context, store workflow.Store, opts ...Option) (*Repository, error) {
	r := &Repository{
		store:   store,
		key:     DefaultKey,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		presets: DefaultPresets(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("component", "repository")

	if err := r.reload(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Repository) reload(ctx context.Context) error {
	data, ok, err := r.store.Get(ctx, r.key)
	if err != nil {
		return fmt.Errorf("workflow: load %s: %w", r.key, err)
	}

	customs := []workflow.Workflow{}
	if ok {
		customs = r.decode(data)
	}

	r.mu.Lock()
	r.customs = customs
	r.mu.Unlock()

	r.logger.Debug("custom workflows loaded", slog.Int("count", len(customs)))
	return nil
}

// decode parses the stored collection. Undecodable payloads yield an empty
// collection; individual workflows that fail validation are dropped.
func (r *Repository) decode(data []byte) []workflow.Workflow {
	var stored []workflow.Workflow
	if err := json.Unmarshal(data, &stored); err != nil {
		r.logger.Warn("custom workflows unreadable, starting empty",
			slog.String("key", r.key),
			slog.Any("error", err))
		return []workflow.Workflow{}
	}

	customs := make([]workflow.Workflow, 0, len(stored))
	for _, w := range stored {
		if err := w.Validate(); err != nil {
			r.logger.Warn("dropping invalid custom workflow",
				slog.String("workflow_id", w.ID),
				slog.Any("error", err))
			continue
		}
		for i := range w.Nodes {
			if w.Nodes[i].Config == nil {
				w.Nodes[i].Config = map[string]any{}
			}
		}
		if w.Edges == nil {
			w.Edges = []workflow.Edge{}
		}
		w.IsPreset = false
		customs = append(customs, w)
	}
	return customs
}

// List returns every preset followed by every custom workflow.
func (r *Repository) List() []workflow.Workflow {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]workflow.Workflow, 0, len(r.presets)+len(r.customs))
	for _, w := range r.presets {
		out = append(out, w.Clone())
	}
	for _, w := range r.customs {
		out = append(out, w.Clone())
	}
	return out
}

// Get returns a deep copy of the workflow with the given id.
// Returns ErrWorkflowNotFound if no preset or custom workflow matches.
func (r *Repository) Get(id string) (workflow.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := indexOf(r.presets, id); i >= 0 {
		return r.presets[i].Clone(), nil
	}
	if i := indexOf(r.customs, id); i >= 0 {
		return r.customs[i].Clone(), nil
	}
	return workflow.Workflow{}, workflow.ErrWorkflowNotFound
}

// FirstPreset returns a copy of the first preset, if any.
func (r *Repository) FirstPreset() (workflow.Workflow, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.presets) == 0 {
		return workflow.Workflow{}, false
	}
	return r.presets[0].Clone(), true
}

// Save persists w and returns what was stored.
//
// A preset is forked: the copy gets a new id, a " (Copy)" name suffix,
// fresh timestamps and IsPreset=false, and is appended to the customs.
// A custom workflow overwrites the entry with the same id (or is appended
// when unknown) and its UpdatedAt is bumped. Node statuses are stored idle.
func (r *Repository) Save(ctx context.Context, w workflow.Workflow) (workflow.Workflow, error) {
	saved := w.Clone()
	saved.ResetStatus()
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]workflow.Workflow, len(r.customs), len(r.customs)+1)
	copy(next, r.customs)

	// An id that names a preset is forked too, so a custom can never shadow it.
	forked := saved.IsPreset || indexOf(r.presets, saved.ID) >= 0
	if forked {
		saved.ID = uuid.NewString()
		saved.Name += copySuffix
		saved.IsPreset = false
		saved.CreatedAt = now
		saved.UpdatedAt = now
		next = append(next, saved)
	} else if i := indexOf(next, saved.ID); i >= 0 {
		saved.CreatedAt = next[i].CreatedAt
		saved.UpdatedAt = now
		next[i] = saved
	} else {
		if saved.ID == "" {
			saved.ID = uuid.NewString()
		}
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		saved.UpdatedAt = now
		next = append(next, saved)
	}

	if err := r.persist(ctx, next); err != nil {
		return workflow.Workflow{}, err
	}
	r.customs = next

	r.logger.Info("workflow saved",
		slog.String("workflow_id", saved.ID),
		slog.Bool("forked", forked))
	return saved.Clone(), nil
}

// Delete removes a custom workflow.
// Returns ErrPresetReadOnly for presets and ErrWorkflowNotFound for unknown ids.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if indexOf(r.presets, id) >= 0 {
		return workflow.ErrPresetReadOnly
	}
	i := indexOf(r.customs, id)
	if i < 0 {
		return workflow.ErrWorkflowNotFound
	}

	next := make([]workflow.Workflow, 0, len(r.customs)-1)
	next = append(next, r.customs[:i]...)
	next = append(next, r.customs[i+1:]...)

	if err := r.persist(ctx, next); err != nil {
		return err
	}
	r.customs = next

	r.logger.Info("workflow deleted", slog.String("workflow_id", id))
	return nil
}

// New creates and persists a custom workflow holding a single trigger node.
func (r *Repository) New(ctx context.Context) (workflow.Workflow, error) {
	now := r.now()
	w := workflow.Workflow{
		ID:        uuid.NewString(),
		Name:      defaultName,
		Nodes:     []workflow.Node{},
		Edges:     []workflow.Edge{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	w.AddNode(workflow.TypeTrigger)

	r.mu.Lock()
	defer r.mu.Unlock()

	next := make([]workflow.Workflow, len(r.customs), len(r.customs)+1)
	copy(next, r.customs)
	next = append(next, w)

	if err := r.persist(ctx, next); err != nil {
		return workflow.Workflow{}, err
	}
	r.customs = next

	r.logger.Info("workflow created", slog.String("workflow_id", w.ID))
	return w.Clone(), nil
}

// persist writes customs under the repository key. Callers hold r.mu.
func (r *Repository) persist(ctx context.Context, customs []workflow.Workflow) error {
	data, err := json.Marshal(customs)
	if err != nil {
		return fmt.Errorf("workflow: encode customs: %w", err)
	}
	if err := r.store.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("workflow: save %s: %w", r.key, err)
	}
	return nil
}

func indexOf(ws []workflow.Workflow, id string) int {
	for i := range ws {
		if ws[i].ID == id {
			return i
		}
	}
	return -1
}

package simulator

import "time"

const (
	DefaultLayerInterval    = 1500 * time.Millisecond
	DefaultResolveDelay     = 1000 * time.Millisecond
	DefaultCompletionBuffer = 500 * time.Millisecond
	DefaultSuccessRate      = 0.9
)

// Config controls the timing and outcome distribution of a simulated run.
type Config struct {
	// LayerInterval is the time between the start of consecutive layers.
	LayerInterval time.Duration `yaml:"layer_interval"`

	// ResolveDelay is how long nodes stay running before they resolve.
	// It is capped at LayerInterval.
	ResolveDelay time.Duration `yaml:"resolve_delay"`

	// CompletionBuffer is added after the last layer before the run completes.
	CompletionBuffer time.Duration `yaml:"completion_buffer"`

	// SuccessRate is the probability that a node resolves to success.
	// Nil means DefaultSuccessRate; an explicit 0 fails every node.
	SuccessRate *float64 `yaml:"success_rate,omitempty"`
}

// SuccessRate returns a pointer to p for use in Config.
func SuccessRate(p float64) *float64 { return &p }

// DefaultConfig returns the stock timing schedule.
func DefaultConfig() Config {
	return Config{
		LayerInterval:    DefaultLayerInterval,
		ResolveDelay:     DefaultResolveDelay,
		CompletionBuffer: DefaultCompletionBuffer,
		SuccessRate:      SuccessRate(DefaultSuccessRate),
	}
}

func (c Config) normalized() Config {
	q := c
	if q.LayerInterval <= 0 {
		q.LayerInterval = DefaultLayerInterval
	}
	if q.ResolveDelay <= 0 {
		q.ResolveDelay = DefaultResolveDelay
	}
	if q.ResolveDelay > q.LayerInterval {
		q.ResolveDelay = q.LayerInterval
	}
	if q.CompletionBuffer < 0 {
		q.CompletionBuffer = 0
	}
	rate := DefaultSuccessRate
	if q.SuccessRate != nil {
		rate = min(max(*q.SuccessRate, 0), 1)
	}
	q.SuccessRate = SuccessRate(rate)
	return q
}

package sources

import (
	"context"
	"time"

	"scamguard/internal/domain/models"
)

// Adapter defines the contract for one external reputation provider.
//
// Lookup returns (nil, nil) when the provider has no finding for the value
// or does not handle the indicator type: absence, not an error. Provider
// and network failures surface as errors; the aggregator catches them at
// this boundary and treats them as absence so one failing provider never
// aborts a sibling query.
type Adapter interface {
	// Slug returns the unique identifier for this source
	Slug() string

	// Name returns the human-readable name of this source
	Name() string

	// Reliability returns the static trust weight in [0,1] used when
	// aggregating this source's confidence into an overall score
	Reliability() float64

	// Supports reports whether this source handles the indicator type
	Supports(t models.IndicatorType) bool

	// Lookup queries the provider for one indicator
	Lookup(ctx context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error)

	// IsEnabled returns whether this source is enabled
	IsEnabled() bool

	// Configure applies the given config to the adapter
	Configure(cfg AdapterConfig) error
}

// AdapterConfig holds configuration for an adapter
type AdapterConfig struct {
	Enabled     bool          `json:"enabled"`
	APIURL      string        `json:"api_url,omitempty"`
	APIKey      string        `json:"api_key,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	Reliability float64       `json:"reliability,omitempty"`
}

// DefaultConfig returns default adapter configuration. Every adapter gets
// an explicit per-request deadline so a hanging provider cannot stall a
// whole aggregate query.
func DefaultConfig() AdapterConfig {
	return AdapterConfig{
		Enabled: true,
		Timeout: 10 * time.Second,
	}
}

// BaseAdapter provides common functionality for adapters
type BaseAdapter struct {
	slug        string
	name        string
	reliability float64
	types       map[models.IndicatorType]bool
	config      AdapterConfig
}

// NewBaseAdapter creates a base adapter handling the given indicator types
func NewBaseAdapter(slug, name string, reliability float64, types ...models.IndicatorType) *BaseAdapter {
	supported := make(map[models.IndicatorType]bool, len(types))
	for _, t := range types {
		supported[t] = true
	}
	return &BaseAdapter{
		slug:        slug,
		name:        name,
		reliability: reliability,
		types:       supported,
		config:      DefaultConfig(),
	}
}

// Slug returns the unique identifier for this source
func (a *BaseAdapter) Slug() string {
	return a.slug
}

// Name returns the human-readable name of this source
func (a *BaseAdapter) Name() string {
	return a.name
}

// Reliability returns the static trust weight for this source
func (a *BaseAdapter) Reliability() float64 {
	if a.config.Reliability > 0 {
		return a.config.Reliability
	}
	return a.reliability
}

// Supports reports whether this source handles the indicator type
func (a *BaseAdapter) Supports(t models.IndicatorType) bool {
	return a.types[t]
}

// IsEnabled returns whether this source is enabled
func (a *BaseAdapter) IsEnabled() bool {
	return a.config.Enabled
}

// Configure applies the given config
func (a *BaseAdapter) Configure(cfg AdapterConfig) error {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	a.config = cfg
	return nil
}

// Config returns the current configuration
func (a *BaseAdapter) Config() AdapterConfig {
	return a.config
}

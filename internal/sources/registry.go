package sources

import (
	"fmt"
	"sync"

	"scamguard/internal/config"
	"scamguard/internal/domain/models"
	"scamguard/pkg/logger"
)

// Registry holds all registered reputation source adapters
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
	logger   *logger.Logger
}

// NewRegistry creates a new adapter registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		logger:   log.WithComponent("source-registry"),
	}
}

// Register adds an adapter to the registry
func (r *Registry) Register(a Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.adapters[a.Slug()]; exists {
		return fmt.Errorf("adapter already registered: %s", a.Slug())
	}
	r.adapters[a.Slug()] = a
	r.logger.Info().Str("source", a.Slug()).Float64("reliability", a.Reliability()).Msg("registered source adapter")
	return nil
}

// Get returns an adapter by slug
func (r *Registry) Get(slug string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[slug]
	return a, ok
}

// List returns all registered adapters
func (r *Registry) List() []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		list = append(list, a)
	}
	return list
}

// ListEnabledFor returns the enabled adapters handling the given type,
// optionally restricted to a set of slugs (empty means all)
func (r *Registry) ListEnabledFor(t models.IndicatorType, slugs []string) []Adapter {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		wanted[s] = true
	}

	list := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		if !a.IsEnabled() || !a.Supports(t) {
			continue
		}
		if len(wanted) > 0 && !wanted[a.Slug()] {
			continue
		}
		list = append(list, a)
	}
	return list
}

// ConfigureFromConfig applies per-source configuration from the app config
func (r *Registry) ConfigureFromConfig(cfg config.SourcesConfig) {
	byName := map[string]config.SourceConfig{
		"openphish": cfg.OpenPhish,
		"abuseipdb": cfg.AbuseIPDB,
		"urlhaus":   cfg.URLhaus,
		"numlookup": cfg.NumLookup,
		"emailrep":  cfg.EmailRep,
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for slug, sc := range byName {
		adapter, ok := r.adapters[slug]
		if !ok {
			continue
		}
		ac := AdapterConfig{
			Enabled:     sc.Enabled,
			APIURL:      sc.APIURL,
			APIKey:      sc.APIKey,
			Timeout:     sc.Timeout,
			Reliability: sc.Reliability,
		}
		if err := adapter.Configure(ac); err != nil {
			r.logger.Warn().Err(err).Str("source", slug).Msg("failed to configure adapter")
		}
	}
}

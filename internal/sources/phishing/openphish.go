package phishing

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

const (
	openPhishFeedURL = "https://openphish.com/feed.txt"
	openPhishSlug    = "openphish"

	// feedMaxAge bounds how stale the cached feed snapshot may get
	// before a lookup forces a refresh.
	feedMaxAge = 30 * time.Minute
)

// OpenPhishAdapter checks URLs and domains against the OpenPhish feed.
// The free feed has no per-URL query endpoint, so the adapter keeps an
// in-memory snapshot of the feed and answers lookups by membership.
type OpenPhishAdapter struct {
	*sources.BaseAdapter
	client *http.Client
	logger *logger.Logger

	mu        sync.RWMutex
	urls      map[string]bool
	domains   map[string]bool
	fetchedAt time.Time
}

// NewOpenPhishAdapter creates a new OpenPhish adapter
func NewOpenPhishAdapter(log *logger.Logger) *OpenPhishAdapter {
	return &OpenPhishAdapter{
		BaseAdapter: sources.NewBaseAdapter(
			openPhishSlug,
			"OpenPhish",
			0.85,
			models.IndicatorTypeURL,
			models.IndicatorTypeDomain,
		),
		client:  &http.Client{Timeout: sources.DefaultConfig().Timeout},
		logger:  log.WithComponent("openphish"),
		urls:    make(map[string]bool),
		domains: make(map[string]bool),
	}
}

// Configure applies adapter configuration
func (a *OpenPhishAdapter) Configure(cfg sources.AdapterConfig) error {
	if err := a.BaseAdapter.Configure(cfg); err != nil {
		return err
	}
	a.client.Timeout = a.Config().Timeout
	return nil
}

// Lookup checks whether the URL or domain appears in the phishing feed
func (a *OpenPhishAdapter) Lookup(ctx context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error) {
	if !a.Supports(t) {
		return nil, nil
	}

	if err := a.ensureFresh(ctx); err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	var hit bool
	switch t {
	case models.IndicatorTypeURL:
		hit = a.urls[strings.TrimRight(value, "/")]
		if !hit {
			hit = a.domains[hostOf(value)]
		}
	case models.IndicatorTypeDomain:
		hit = a.domains[strings.ToLower(value)]
	}
	if !hit {
		return nil, nil
	}

	now := time.Now()
	confidence := 0.85
	return &models.ThreatIndicator{
		Value:       value,
		Type:        t,
		Confidence:  confidence,
		Severity:    models.SeverityForConfidence(confidence),
		FirstSeen:   a.fetchedAt,
		LastSeen:    now,
		SourceName:  a.Name(),
		Description: "Listed in OpenPhish phishing feed",
		Tags:        []string{"phishing"},
		TTLSeconds:  1800,
	}, nil
}

// ensureFresh refreshes the feed snapshot when it is older than feedMaxAge
func (a *OpenPhishAdapter) ensureFresh(ctx context.Context) error {
	a.mu.RLock()
	fresh := time.Since(a.fetchedAt) < feedMaxAge && len(a.urls) > 0
	a.mu.RUnlock()
	if fresh {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.fetchedAt) < feedMaxAge && len(a.urls) > 0 {
		return nil
	}

	feedURL := a.Config().APIURL
	if feedURL == "" {
		feedURL = openPhishFeedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		// Keep serving the stale snapshot if we have one
		if len(a.urls) > 0 {
			a.logger.Warn().Err(err).Msg("OpenPhish feed refresh failed, serving stale snapshot")
			return nil
		}
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if len(a.urls) > 0 {
			return nil
		}
		return fmt.Errorf("OpenPhish feed returned status %d", resp.StatusCode)
	}

	urls := make(map[string]bool)
	domains := make(map[string]bool)
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		urls[strings.TrimRight(line, "/")] = true
		if h := hostOf(line); h != "" {
			domains[h] = true
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read feed: %w", err)
	}

	a.urls = urls
	a.domains = domains
	a.fetchedAt = time.Now()
	a.logger.Info().Int("urls", len(urls)).Int("domains", len(domains)).Msg("OpenPhish feed refreshed")
	return nil
}

// hostOf extracts the lowercase host portion of a URL string
func hostOf(raw string) string {
	s := raw
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.Index(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.Index(s, ":"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

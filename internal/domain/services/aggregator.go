// Package services contains the domain services that turn raw indicator
// values into scored, explained threat verdicts.
package services

import (
	"context"
	"sync"
	"time"

	"scamguard/internal/classify"
	"scamguard/internal/domain/models"
	"scamguard/internal/infrastructure/cache"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

// QueryOptions controls one aggregate query
type QueryOptions struct {
	// Sources restricts the query to the given adapter slugs. Empty
	// means every enabled adapter that supports the indicator type.
	Sources []string
	// SkipCache forces fresh lookups even when a cached score exists
	SkipCache bool
	// Enrich attaches best-effort context (geo, WHOIS, DNS) to results
	Enrich bool
}

// QueryResult is the scored outcome for one input value
type QueryResult struct {
	Score      *models.ThreatScore `json:"score"`
	Cached     bool                `json:"cached"`
	Enrichment *Enrichment         `json:"enrichment,omitempty"`
}

// QuerySummary aggregates the results of one multi-value query
type QuerySummary struct {
	Results       []*QueryResult `json:"results"`
	Total         int            `json:"total"`
	Malicious     int            `json:"malicious"`
	Suspicious    int            `json:"suspicious"`
	Clean         int            `json:"clean"`
	Unknown       int            `json:"unknown"`
	CacheHits     int            `json:"cache_hits"`
	ElapsedMillis int64          `json:"elapsed_ms"`
}

// Aggregator fans indicator lookups out across the registered reputation
// sources and folds the findings into weighted threat scores.
type Aggregator struct {
	registry *sources.Registry
	cache    cache.Store
	enricher *Enricher
	cacheTTL time.Duration
	logger   *logger.Logger
	now      func() time.Time
}

// NewAggregator creates an aggregator over the given source registry
func NewAggregator(registry *sources.Registry, store cache.Store, cacheTTL time.Duration, log *logger.Logger) *Aggregator {
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Aggregator{
		registry: registry,
		cache:    store,
		enricher: NewEnricher(log),
		cacheTTL: cacheTTL,
		logger:   log.WithComponent("aggregator"),
		now:      time.Now,
	}
}

// QueryIndicators classifies and scores each input value. Values are
// processed sequentially; the per-value source fan-out is concurrent.
func (a *Aggregator) QueryIndicators(ctx context.Context, values []string, opts QueryOptions) (*QuerySummary, error) {
	start := a.now()
	summary := &QuerySummary{
		Results: make([]*QueryResult, 0, len(values)),
		Total:   len(values),
	}

	for _, value := range values {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := a.queryOne(ctx, value, opts)
		if err != nil {
			return nil, err
		}

		switch result.Score.Status {
		case models.ScoreStatusMalicious:
			summary.Malicious++
		case models.ScoreStatusSuspicious:
			summary.Suspicious++
		case models.ScoreStatusClean:
			summary.Clean++
		default:
			summary.Unknown++
		}
		if result.Cached {
			summary.CacheHits++
		}
		summary.Results = append(summary.Results, result)
	}

	summary.ElapsedMillis = a.now().Sub(start).Milliseconds()
	return summary, nil
}

func (a *Aggregator) queryOne(ctx context.Context, value string, opts QueryOptions) (*QueryResult, error) {
	indicatorType := classify.Classify(value)
	key := cache.ScoreKey(string(indicatorType), value)

	if !opts.SkipCache {
		var cached models.ThreatScore
		if err := a.cache.GetJSON(ctx, key, &cached); err == nil {
			return &QueryResult{Score: &cached, Cached: true}, nil
		}
	}

	hits := a.fanOut(ctx, value, indicatorType, opts.Sources)
	score := a.computeScore(value, indicatorType, hits)

	if err := a.cache.SetJSON(ctx, key, score, a.cacheTTL); err != nil {
		a.logger.Warn().Err(err).Str("value", value).Msg("failed to cache score")
	}

	result := &QueryResult{Score: score}
	if opts.Enrich {
		result.Enrichment = a.enricher.Enrich(ctx, value, indicatorType)
	}
	return result, nil
}

type sourceHit struct {
	indicator *models.ThreatIndicator
	adapter   sources.Adapter
}

// weightedMean accumulates a reliability-weighted confidence average
type weightedMean struct {
	sum    float64
	weight float64
}

func (m *weightedMean) add(confidence, reliability float64) {
	m.sum += confidence * reliability
	m.weight += reliability
}

func (m *weightedMean) value() float64 {
	if m.weight == 0 {
		return 0
	}
	return m.sum / m.weight
}

// fanOut queries every applicable adapter concurrently. Adapter errors
// are logged and treated as absence so one failing provider never aborts
// the sibling lookups.
func (a *Aggregator) fanOut(ctx context.Context, value string, t models.IndicatorType, slugs []string) []sourceHit {
	adapters := a.registry.ListEnabledFor(t, slugs)
	if len(adapters) == 0 {
		return nil
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		hits []sourceHit
	)

	for _, adapter := range adapters {
		wg.Add(1)
		go func(adapter sources.Adapter) {
			defer wg.Done()

			indicator, err := adapter.Lookup(ctx, value, t)
			if err != nil {
				a.logger.Warn().Err(err).
					Str("source", adapter.Slug()).
					Str("value", value).
					Msg("source lookup failed")
				return
			}
			if indicator == nil {
				return
			}

			mu.Lock()
			hits = append(hits, sourceHit{indicator: indicator, adapter: adapter})
			mu.Unlock()
		}(adapter)
	}
	wg.Wait()
	return hits
}

// computeScore folds source findings into one weighted score with
// per-category breakdowns and per-source factors
func (a *Aggregator) computeScore(value string, t models.IndicatorType, hits []sourceHit) *models.ThreatScore {
	score := &models.ThreatScore{
		Value:      value,
		Type:       t,
		ComputedAt: a.now(),
	}

	if len(hits) == 0 {
		score.Overall = models.UnknownScoreFloor
		score.Status = models.ScoreStatusUnknown
		return score
	}

	var weightedSum, weightTotal float64
	var reputation, behavior, content weightedMean
	var recent int
	now := a.now()

	for _, hit := range hits {
		rel := hit.adapter.Reliability()
		conf := hit.indicator.Confidence

		weightedSum += conf * rel
		weightTotal += rel

		score.Factors = append(score.Factors, models.ScoringFactor{
			Source:      hit.adapter.Name(),
			Reliability: rel,
			Confidence:  conf,
			Explanation: hit.indicator.Description,
		})

		// Category folds use the same weighted average as the overall
		// score, restricted to the indicators tagged for the category.
		if hit.indicator.HasTag("reputation") || hit.indicator.HasTag("email-reputation") || hit.indicator.HasTag("phone-reputation") {
			reputation.add(conf, rel)
		}
		if hit.indicator.HasTag("malware-distribution") || hit.indicator.HasTag("spam") || hit.indicator.HasTag("scam-reports") {
			behavior.add(conf, rel)
		}
		if hit.indicator.HasTag("phishing") || hit.indicator.HasTag("suspicious") {
			content.add(conf, rel)
		}
		if now.Sub(hit.indicator.LastSeen) <= 7*24*time.Hour {
			recent++
		}
	}

	score.Categories.Reputation = reputation.value()
	score.Categories.Behavior = behavior.value()
	score.Categories.Content = content.value()

	if t == models.IndicatorTypeIP || t == models.IndicatorTypeDomain {
		score.Categories.Network = weightedSum / weightTotal
	}
	score.Categories.Temporal = float64(recent) / float64(len(hits))

	overall := weightedSum / weightTotal
	if overall < 0 {
		overall = 0
	}
	if overall > 1 {
		overall = 1
	}
	score.Overall = overall
	score.Status = models.StatusForScore(overall)
	return score
}

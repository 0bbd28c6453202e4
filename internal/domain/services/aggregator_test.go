package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"scamguard/internal/domain/models"
	"scamguard/internal/infrastructure/cache"
	"scamguard/internal/sources"
	"scamguard/pkg/logger"
)

// stubAdapter returns a fixed finding for every lookup
type stubAdapter struct {
	*sources.BaseAdapter
	confidence float64
	lastSeen   time.Time
	err        error
	absent     bool
	calls      int
}

func newStubAdapter(slug string, reliability, confidence float64, lastSeen time.Time) *stubAdapter {
	return &stubAdapter{
		BaseAdapter: sources.NewBaseAdapter(slug, slug, reliability,
			models.IndicatorTypeDomain, models.IndicatorTypeIP, models.IndicatorTypeURL),
		confidence: confidence,
		lastSeen:   lastSeen,
	}
}

func (s *stubAdapter) Lookup(_ context.Context, value string, t models.IndicatorType) (*models.ThreatIndicator, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.absent {
		return nil, nil
	}
	return &models.ThreatIndicator{
		Value:      value,
		Type:       t,
		Confidence: s.confidence,
		Severity:   models.SeverityForConfidence(s.confidence),
		LastSeen:   s.lastSeen,
		SourceName: s.Slug(),
		Tags:       []string{"reputation"},
	}, nil
}

func newTestAggregator(t *testing.T, adapters ...sources.Adapter) *Aggregator {
	t.Helper()
	log := logger.Nop()
	registry := sources.NewRegistry(log)
	for _, a := range adapters {
		if err := registry.Register(a); err != nil {
			t.Fatalf("register %s: %v", a.Slug(), err)
		}
	}
	return NewAggregator(registry, cache.NewMemory(), time.Hour, log)
}

func TestQueryIndicatorsWeightedScore(t *testing.T) {
	now := time.Now()
	agg := newTestAggregator(t,
		newStubAdapter("source-a", 0.95, 0.9, now),
		newStubAdapter("source-b", 0.90, 0.6, now),
		newStubAdapter("source-c", 0.85, 0.3, now),
	)

	summary, err := agg.QueryIndicators(context.Background(), []string{"evil.example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryIndicators: %v", err)
	}
	if len(summary.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(summary.Results))
	}

	score := summary.Results[0].Score
	want := (0.9*0.95 + 0.6*0.90 + 0.3*0.85) / (0.95 + 0.90 + 0.85)
	if math.Abs(score.Overall-want) > 1e-9 {
		t.Errorf("overall = %f, want %f", score.Overall, want)
	}
	if score.Status != models.ScoreStatusSuspicious {
		t.Errorf("status = %s, want suspicious", score.Status)
	}
	if len(score.Factors) != 3 {
		t.Errorf("expected 3 factors, got %d", len(score.Factors))
	}
	if score.Categories.Temporal != 1.0 {
		t.Errorf("temporal = %f, want 1.0 (all hits recent)", score.Categories.Temporal)
	}
	if summary.Suspicious != 1 {
		t.Errorf("suspicious count = %d, want 1", summary.Suspicious)
	}
}

func TestCategoryScoresAreWeightedAverages(t *testing.T) {
	now := time.Now()
	agg := newTestAggregator(t,
		newStubAdapter("source-a", 0.95, 0.9, now),
		newStubAdapter("source-b", 0.90, 0.2, now),
	)

	summary, err := agg.QueryIndicators(context.Background(), []string{"evil.example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryIndicators: %v", err)
	}

	// Both stub hits carry the reputation tag, so the category fold is
	// the same reliability-weighted average as the overall score, not
	// the single strongest finding.
	score := summary.Results[0].Score
	want := (0.9*0.95 + 0.2*0.90) / (0.95 + 0.90)
	if math.Abs(score.Categories.Reputation-want) > 1e-9 {
		t.Errorf("reputation category = %f, want weighted average %f", score.Categories.Reputation, want)
	}
	if score.Categories.Behavior != 0 {
		t.Errorf("behavior category = %f, want 0 with no behavior-tagged hits", score.Categories.Behavior)
	}
	if score.Categories.Content != 0 {
		t.Errorf("content category = %f, want 0 with no content-tagged hits", score.Categories.Content)
	}
}

func TestQueryIndicatorsNoFindings(t *testing.T) {
	a := newStubAdapter("source-a", 0.9, 0, time.Time{})
	a.absent = true
	agg := newTestAggregator(t, a)

	summary, err := agg.QueryIndicators(context.Background(), []string{"benign.example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryIndicators: %v", err)
	}

	score := summary.Results[0].Score
	if score.Overall != models.UnknownScoreFloor {
		t.Errorf("overall = %f, want floor %f", score.Overall, models.UnknownScoreFloor)
	}
	if score.Status != models.ScoreStatusUnknown {
		t.Errorf("status = %s, want unknown", score.Status)
	}
	if summary.Unknown != 1 {
		t.Errorf("unknown count = %d, want 1", summary.Unknown)
	}
}

func TestQueryIndicatorsFailingSourceIsAbsence(t *testing.T) {
	now := time.Now()
	good := newStubAdapter("good", 0.90, 0.8, now)
	bad := newStubAdapter("bad", 0.95, 0.9, now)
	bad.err = errors.New("provider down")
	agg := newTestAggregator(t, good, bad)

	summary, err := agg.QueryIndicators(context.Background(), []string{"evil.example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("QueryIndicators: %v", err)
	}

	score := summary.Results[0].Score
	if len(score.Factors) != 1 {
		t.Fatalf("expected 1 factor from the healthy source, got %d", len(score.Factors))
	}
	if score.Factors[0].Source != "good" {
		t.Errorf("factor source = %s, want good", score.Factors[0].Source)
	}
	if math.Abs(score.Overall-0.8) > 1e-9 {
		t.Errorf("overall = %f, want 0.8", score.Overall)
	}
}

func TestQueryIndicatorsCacheHit(t *testing.T) {
	now := time.Now()
	a := newStubAdapter("source-a", 0.9, 0.9, now)
	agg := newTestAggregator(t, a)

	ctx := context.Background()
	if _, err := agg.QueryIndicators(ctx, []string{"evil.example.com"}, QueryOptions{}); err != nil {
		t.Fatalf("first query: %v", err)
	}
	summary, err := agg.QueryIndicators(ctx, []string{"evil.example.com"}, QueryOptions{})
	if err != nil {
		t.Fatalf("second query: %v", err)
	}

	if a.calls != 1 {
		t.Errorf("adapter called %d times, want 1 (second hit served from cache)", a.calls)
	}
	if summary.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", summary.CacheHits)
	}
	if !summary.Results[0].Cached {
		t.Error("expected cached result")
	}
}

func TestQueryIndicatorsSkipCache(t *testing.T) {
	now := time.Now()
	a := newStubAdapter("source-a", 0.9, 0.9, now)
	agg := newTestAggregator(t, a)

	ctx := context.Background()
	opts := QueryOptions{SkipCache: true}
	if _, err := agg.QueryIndicators(ctx, []string{"evil.example.com"}, opts); err != nil {
		t.Fatalf("first query: %v", err)
	}
	if _, err := agg.QueryIndicators(ctx, []string{"evil.example.com"}, opts); err != nil {
		t.Fatalf("second query: %v", err)
	}
	if a.calls != 2 {
		t.Errorf("adapter called %d times, want 2 with cache skipped", a.calls)
	}
}

func TestQueryIndicatorsSourceFilter(t *testing.T) {
	now := time.Now()
	a := newStubAdapter("wanted", 0.9, 0.9, now)
	b := newStubAdapter("ignored", 0.9, 0.2, now)
	agg := newTestAggregator(t, a, b)

	summary, err := agg.QueryIndicators(context.Background(), []string{"evil.example.com"},
		QueryOptions{Sources: []string{"wanted"}})
	if err != nil {
		t.Fatalf("QueryIndicators: %v", err)
	}
	if b.calls != 0 {
		t.Errorf("filtered-out adapter was called %d times", b.calls)
	}
	if len(summary.Results[0].Score.Factors) != 1 {
		t.Errorf("expected 1 factor, got %d", len(summary.Results[0].Score.Factors))
	}
}

package ensemble

import (
	"testing"

	"originlytics-backend/internal/metricspec"
)

const longText = 2000

func TestAggregateEmptyIsNeutral(t *testing.T) {
	a := New(metricspec.Default())
	got := a.Aggregate(nil, longText)
	if got.OverallScore != 50 {
		t.Fatalf("expected neutral 50 for empty input, got %v", got.OverallScore)
	}
	if got.MetricsUsed != 0 {
		t.Fatalf("expected 0 metrics used, got %d", got.MetricsUsed)
	}
}

func TestAggregateCountsOnlyRecognizedMetrics(t *testing.T) {
	a := New(metricspec.Default())
	raw := map[string]float64{
		"burstiness":        80,
		"perplexity":        75,
		"totally_bogus_key": 90,
	}
	got := a.Aggregate(raw, longText)
	if got.MetricsUsed != 2 {
		t.Fatalf("expected 2 recognized metrics, got %d", got.MetricsUsed)
	}
}

func TestAggregateBounded(t *testing.T) {
	a := New(metricspec.Default())
	raw := map[string]float64{
		"burstiness":   100,
		"perplexity":   100,
		"ngram_entropy": 100,
	}
	got := a.Aggregate(raw, longText)
	if got.OverallScore < 0 || got.OverallScore > 100 {
		t.Fatalf("score out of bounds: %v", got.OverallScore)
	}
}

func TestAggregateAddingAILikeMetricNeverDecreases(t *testing.T) {
	a := New(metricspec.Default())
	base := map[string]float64{
		"burstiness": 60,
		"perplexity": 55,
	}
	before := a.Aggregate(base, longText)

	withAI := map[string]float64{
		"burstiness":     60,
		"perplexity":     55,
		"detector_score": 100,
	}
	after := a.Aggregate(withAI, longText)
	if after.OverallScore < before.OverallScore {
		t.Fatalf("adding strongly AI-like metric decreased score: %v -> %v", before.OverallScore, after.OverallScore)
	}

	withHuman := map[string]float64{
		"burstiness":     60,
		"perplexity":     55,
		"detector_score": 0,
	}
	lower := a.Aggregate(withHuman, longText)
	if lower.OverallScore > before.OverallScore {
		t.Fatalf("adding strongly human-like metric increased score: %v -> %v", before.OverallScore, lower.OverallScore)
	}
}

func TestAggregateShortTextDiscountsTowardNeutral(t *testing.T) {
	a := New(metricspec.Default())
	raw := map[string]float64{"detector_score": 95}

	long := a.Aggregate(raw, longText)
	short := a.Aggregate(raw, 250)
	if short.OverallScore >= long.OverallScore {
		t.Fatalf("short input should discount toward 50: long=%v short=%v", long.OverallScore, short.OverallScore)
	}
	if short.Confidence != 0.5 {
		t.Fatalf("expected floor confidence 0.5, got %v", short.Confidence)
	}
}

func TestAggregateIsPure(t *testing.T) {
	a := New(metricspec.Default())
	raw := map[string]float64{
		"burstiness": 72,
		"perplexity": 64,
	}
	first := a.Aggregate(raw, 900)
	second := a.Aggregate(raw, 900)
	if first != second {
		t.Fatalf("aggregation not deterministic: %+v vs %+v", first, second)
	}
}

func TestReaggregateRecordsEnhancement(t *testing.T) {
	a := New(metricspec.Default())
	base := map[string]float64{
		"burstiness": 70,
		"perplexity": 60,
	}
	prev := a.Aggregate(base, longText)

	superset := map[string]float64{
		"burstiness":          70,
		"perplexity":          60,
		"lexical_diversity":   0.25,
		"noun_verb_ratio":     3.1,
		"premium_perplexity":  82,
	}
	next := a.Reaggregate(prev, superset, longText)
	if next.PremiumEnhancement == nil {
		t.Fatalf("expected premium enhancement record")
	}
	if next.PremiumEnhancement.Before != prev.OverallScore {
		t.Fatalf("enhancement before mismatch: %v != %v", next.PremiumEnhancement.Before, prev.OverallScore)
	}
	if next.PremiumEnhancement.After != next.OverallScore {
		t.Fatalf("enhancement after mismatch")
	}
	if next.PremiumEnhancement.MetricsAdded != 3 {
		t.Fatalf("expected 3 metrics added, got %d", next.PremiumEnhancement.MetricsAdded)
	}

	// Re-running over the same superset yields the same result.
	again := a.Reaggregate(prev, superset, longText)
	if again.OverallScore != next.OverallScore || again.MetricsUsed != next.MetricsUsed {
		t.Fatalf("reaggregation not idempotent: %+v vs %+v", again, next)
	}
}

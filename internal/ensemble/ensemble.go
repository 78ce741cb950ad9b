package ensemble

import (
	"math"

	"originlytics-backend/internal/metricspec"
	"originlytics-backend/internal/normalize"
	"originlytics-backend/internal/shared/telemetry"
)

// Length-confidence discount: scores computed from very short input are
// pulled toward the neutral midpoint. Full confidence at or above
// fullConfidenceLen characters, floor confidence at or below shortLen.
const (
	fullConfidenceLen = 1500
	shortLen          = 300
	floorConfidence   = 0.5
)

// Result is one ensemble aggregation outcome.
type Result struct {
	OverallScore       float64      `json:"overall_score"`
	MetricsUsed        int          `json:"metrics_used"`
	Confidence         float64      `json:"confidence"`
	PremiumEnhancement *Enhancement `json:"premium_enhancement,omitempty"`
}

// Enhancement records the score delta when premium metrics arrive and the
// ensemble is recomputed mid-job.
type Enhancement struct {
	Before       float64 `json:"before"`
	After        float64 `json:"after"`
	MetricsAdded int     `json:"metrics_added"`
}

// Aggregator combines normalized metric scores into one calibrated
// 0-100 AI-likelihood score.
type Aggregator struct {
	Registry   *metricspec.Registry
	Normalizer *normalize.Normalizer
}

// New returns an Aggregator over the given registry.
func New(reg *metricspec.Registry) *Aggregator {
	return &Aggregator{
		Registry:   reg,
		Normalizer: normalize.New(reg),
	}
}

// Aggregate normalizes every recognized raw metric and combines them into
// an overall score weighted by per-metric reliability, discounted toward
// neutral for short input. Metric names without a registry entry are
// excluded entirely: they count neither as used nor as neutral.
// The combination is a pure function of the metric set and text length.
func (a *Aggregator) Aggregate(raw map[string]float64, textLength int) Result {
	var weightSum, scoreSum float64
	used := 0

	for name, value := range raw {
		spec, ok := a.Registry.Lookup(name)
		if !ok {
			telemetry.Warn("ensemble.unrecognized_metric", map[string]any{
				"metric": name,
			})
			continue
		}
		score := a.Normalizer.Score(name, value)
		scoreSum += score * spec.Weight
		weightSum += spec.Weight
		used++
	}

	if used == 0 || weightSum == 0 {
		return Result{OverallScore: 50, MetricsUsed: 0, Confidence: floorConfidence}
	}

	mean := scoreSum / weightSum
	conf := lengthConfidence(textLength)
	// Short input pulls the combined score toward the neutral midpoint.
	overall := 50 + conf*(mean-50)

	return Result{
		OverallScore: round1(clamp(overall, 0, 100)),
		MetricsUsed:  used,
		Confidence:   round3(conf),
	}
}

// Reaggregate recomputes the ensemble over a superset of metrics and
// records the delta against the previous result. Idempotent: the same
// metric set always yields the same result.
func (a *Aggregator) Reaggregate(prev Result, raw map[string]float64, textLength int) Result {
	next := a.Aggregate(raw, textLength)
	next.PremiumEnhancement = &Enhancement{
		Before:       prev.OverallScore,
		After:        next.OverallScore,
		MetricsAdded: next.MetricsUsed - prev.MetricsUsed,
	}
	return next
}

func lengthConfidence(textLength int) float64 {
	switch {
	case textLength >= fullConfidenceLen:
		return 1
	case textLength <= shortLen:
		return floorConfidence
	default:
		span := float64(fullConfidenceLen - shortLen)
		return floorConfidence + (1-floorConfidence)*float64(textLength-shortLen)/span
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

package normalize

import (
	"math"

	"originlytics-backend/internal/metricspec"
	"originlytics-backend/internal/shared/telemetry"
)

// Method identifies how a normalized score was produced.
type Method string

const (
	MethodStatistical Method = "statistical"
	MethodAIEstimated Method = "ai_estimated"
	MethodPremium     Method = "premium"
)

// Metric is a raw metric mapped onto the common 0-100 AI-likelihood scale.
type Metric struct {
	Name      string               `json:"name"`
	Score     float64              `json:"score"`
	Direction metricspec.Direction `json:"direction"`
	Method    Method               `json:"method"`
}

// Normalizer converts raw metric values into calibrated 0-100 scores
// using the metric registry.
type Normalizer struct {
	Registry *metricspec.Registry
}

// New returns a Normalizer backed by the given registry.
func New(reg *metricspec.Registry) *Normalizer {
	return &Normalizer{Registry: reg}
}

// Score maps (metric name, raw value) onto [0,100]. Higher means more
// AI-like. A NaN or infinite raw value yields the neutral score 50.
// Unregistered names fall back to scale inference, which is logged so
// missing catalogue entries surface instead of silently guessing.
func (n *Normalizer) Score(name string, value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 50
	}

	spec, ok := n.Registry.Lookup(name)
	if !ok {
		telemetry.Warn("normalize.unregistered_metric", map[string]any{
			"metric": name,
			"value":  value,
		})
		return inferScale(value)
	}

	if spec.Passthrough {
		return clamp(value, 0, 100)
	}
	return calibrate(spec, value)
}

// Normalize returns the full normalized metric, including direction and
// method metadata for the response payload.
func (n *Normalizer) Normalize(name string, value float64) Metric {
	m := Metric{
		Name:      name,
		Score:     n.Score(name, value),
		Direction: metricspec.DirectionDirect,
		Method:    MethodStatistical,
	}
	if spec, ok := n.Registry.Lookup(name); ok {
		if !spec.Passthrough {
			m.Direction = spec.Direction()
		}
		m.Method = methodFor(spec.Category)
	}
	return m
}

func methodFor(cat metricspec.Category) Method {
	switch cat {
	case metricspec.CategoryLLMEstimated:
		return MethodAIEstimated
	case metricspec.CategoryPremium:
		return MethodPremium
	default:
		return MethodStatistical
	}
}

// calibrate applies the four-zone mapping: strongly AI-like 70-100,
// transition 50-70, human 10-30, beyond-human 0-10. The mapping is
// monotone across the full raw domain: non-increasing for inverted
// metrics, non-decreasing for direct ones.
func calibrate(spec metricspec.Spec, v float64) float64 {
	human := spec.HumanRange
	ai := spec.AIRange

	var score float64
	if spec.Direction() == metricspec.DirectionInverted {
		// Lower raw value = more AI-like.
		switch {
		case v <= ai.Hi:
			score = 70 + 30*(ai.Hi-v)/(ai.Hi-ai.Lo)
		case v <= human.Lo:
			score = 50 + 20*(human.Lo-v)/(human.Lo-ai.Hi)
		case v <= human.Hi:
			score = 30 - 20*(v-human.Lo)/(human.Hi-human.Lo)
		default:
			score = 10 - 2*(v-human.Hi)
		}
	} else {
		// Higher raw value = more AI-like.
		switch {
		case v >= ai.Lo:
			score = 70 + 30*(v-ai.Lo)/(ai.Hi-ai.Lo)
		case v >= human.Hi:
			score = 50 + 20*(v-human.Hi)/(ai.Lo-human.Hi)
		case v >= human.Lo:
			score = 10 + 20*(v-human.Lo)/(human.Hi-human.Lo)
		default:
			score = 10 - 2*(human.Lo-v)
		}
	}
	return clamp(score, 0, 100)
}

// inferScale guesses the scale of an unregistered metric value.
func inferScale(v float64) float64 {
	switch {
	case v >= 0 && v <= 1:
		return v * 100
	case v >= 0 && v <= 100:
		return v
	case math.Abs(v) <= 5:
		return sigmoid(v) * 100
	default:
		return sigmoid(v/10) * 100
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
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

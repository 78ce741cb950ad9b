package metricspec

// Default returns the production metric catalogue.
//
// Statistical analyzer metrics arrive pre-scaled to 0-100 and pass through.
// LLM-estimated and premium linguistic metrics arrive on their native raw
// scales and carry calibration bands; band ordering determines direction.
func Default() *Registry {
	return New(
		// Statistical analyzer output (already 0-100, higher = more AI-like).
		Spec{Name: "ngram_entropy", Category: CategoryStatistical, Passthrough: true, Weight: 1.0},
		Spec{Name: "burstiness", Category: CategoryStatistical, Passthrough: true, Weight: 1.2},
		Spec{Name: "sentence_variance", Category: CategoryStatistical, Passthrough: true, Weight: 1.0},
		Spec{Name: "punctuation_uniformity", Category: CategoryStatistical, Passthrough: true, Weight: 0.8},
		Spec{Name: "readability_score", Category: CategoryStatistical, Passthrough: true, Weight: 0.8},
		Spec{Name: "character_irregularities", Category: CategoryStatistical, Passthrough: true, Weight: 0.5},
		// Raw score variance from the emotion analyzer; flat emotion
		// (low variance) reads as AI-like, so the bands are inverted.
		Spec{Name: "emotional_variance", Category: CategoryStatistical, Weight: 0.7,
			HumanRange: Band{Lo: 0.001, Hi: 0.01}, AIRange: Band{Lo: 0.0, Hi: 0.0005}},
		Spec{Name: "emotional_ai_score", Category: CategoryStatistical, Passthrough: true, Weight: 0.9},

		// Model-based metrics (already 0-100, higher = more AI-like).
		Spec{Name: "perplexity", Category: CategoryModel, Passthrough: true, Weight: 1.5},
		Spec{Name: "detector_score", Category: CategoryModel, Passthrough: true, Weight: 2.0},
		Spec{Name: "heuristic_score", Category: CategoryModel, Passthrough: true, Weight: 1.0},

		// LLM-estimated metrics on native scales.
		Spec{Name: "vocabulary_richness", Category: CategoryLLMEstimated, Weight: 0.7,
			HumanRange: Band{Lo: 0.45, Hi: 0.8}, AIRange: Band{Lo: 0.15, Hi: 0.4}},
		Spec{Name: "transition_density", Category: CategoryLLMEstimated, Weight: 0.7,
			HumanRange: Band{Lo: 0.003, Hi: 0.015}, AIRange: Band{Lo: 0.025, Hi: 0.08}},
		Spec{Name: "contraction_rate", Category: CategoryLLMEstimated, Weight: 0.6,
			HumanRange: Band{Lo: 0.01, Hi: 0.05}, AIRange: Band{Lo: 0.0, Hi: 0.004}},
		Spec{Name: "first_person_rate", Category: CategoryLLMEstimated, Weight: 0.6,
			HumanRange: Band{Lo: 0.01, Hi: 0.06}, AIRange: Band{Lo: 0.0, Hi: 0.005}},
		Spec{Name: "sentence_open_diversity", Category: CategoryLLMEstimated, Weight: 0.7,
			HumanRange: Band{Lo: 0.55, Hi: 0.9}, AIRange: Band{Lo: 0.2, Hi: 0.45}},

		// Premium linguistic metrics on native scales.
		Spec{Name: "lexical_diversity", Category: CategoryPremium, Weight: 1.2,
			HumanRange: Band{Lo: 0.45, Hi: 0.75}, AIRange: Band{Lo: 0.15, Hi: 0.4}},
		Spec{Name: "noun_verb_ratio", Category: CategoryPremium, Weight: 1.0,
			HumanRange: Band{Lo: 0.8, Hi: 2.0}, AIRange: Band{Lo: 2.5, Hi: 4.5}},
		Spec{Name: "adj_noun_ratio", Category: CategoryPremium, Weight: 0.8,
			HumanRange: Band{Lo: 0.15, Hi: 0.45}, AIRange: Band{Lo: 0.55, Hi: 0.95}},
		Spec{Name: "sentence_length_skewness", Category: CategoryPremium, Weight: 1.0,
			HumanRange: Band{Lo: 0.5, Hi: 2.0}, AIRange: Band{Lo: -0.3, Hi: 0.3}},
		Spec{Name: "sentence_length_kurtosis", Category: CategoryPremium, Weight: 0.8,
			HumanRange: Band{Lo: 0.8, Hi: 4.0}, AIRange: Band{Lo: -0.5, Hi: 0.5}},
		Spec{Name: "coefficient_of_variation", Category: CategoryPremium, Weight: 1.2,
			HumanRange: Band{Lo: 0.4, Hi: 0.8}, AIRange: Band{Lo: 0.1, Hi: 0.35}},
		Spec{Name: "flesch_reading_ease", Category: CategoryPremium, Weight: 0.6,
			HumanRange: Band{Lo: 30, Hi: 70}, AIRange: Band{Lo: 75, Hi: 95}},
		Spec{Name: "average_grade_level", Category: CategoryPremium, Weight: 0.6,
			HumanRange: Band{Lo: 6, Hi: 13}, AIRange: Band{Lo: 14.5, Hi: 19}},
		Spec{Name: "ai_likelihood_from_stats", Category: CategoryPremium, Passthrough: true, Weight: 1.2},
		Spec{Name: "premium_perplexity", Category: CategoryPremium, Passthrough: true, Weight: 1.5},
	)
}

package analyses

import (
	"encoding/json"
	"fmt"
	"strings"

	"originlytics-backend/internal/llm"
)

// metricValue is the uniform shape every source adapter emits and the
// aggregator consumes. One adapter exists per source category so the
// orchestrator never probes nested analyzer payloads directly.
type metricValue struct {
	Name  string
	Value float64
}

func toRawMap(values []metricValue) map[string]float64 {
	out := make(map[string]float64, len(values))
	for _, v := range values {
		out[v.Name] = v.Value
	}
	return out
}

// parseStatistical adapts the statistical analyzer payload: a flat object
// of snake_case numeric metrics, plus a dominant emotion label.
func parseStatistical(raw json.RawMessage) ([]metricValue, string, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", fmt.Errorf("statistical payload: %w", err)
	}
	if msg, ok := payload["error"].(string); ok && msg != "" {
		return nil, "", fmt.Errorf("statistical analyzer: %s", msg)
	}

	var values []metricValue
	dominant := ""
	for name, v := range payload {
		switch val := v.(type) {
		case float64:
			values = append(values, metricValue{Name: name, Value: val})
		case string:
			if name == "dominant_emotion" {
				dominant = val
			}
		}
	}
	if len(values) == 0 {
		return nil, "", fmt.Errorf("statistical payload carries no numeric metrics")
	}
	return values, dominant, nil
}

// parseDetection adapts the detector payload into the detection section
// plus its contribution to the ensemble. The quick heuristic variant maps
// to heuristic_score, the full detector to detector_score.
func parseDetection(raw json.RawMessage, quick bool) (*DetectionResult, []metricValue, error) {
	var payload struct {
		AILikelihood *float64 `json:"ai_likelihood"`
		Confidence   float64  `json:"confidence"`
		Model        string   `json:"model"`
		Indicators   []string `json:"indicators"`
		Error        string   `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("detection payload: %w", err)
	}
	if payload.Error != "" {
		return nil, nil, fmt.Errorf("detector: %s", payload.Error)
	}
	if payload.AILikelihood == nil {
		return nil, nil, fmt.Errorf("detection payload missing ai_likelihood")
	}

	det := &DetectionResult{
		AILikelihood: *payload.AILikelihood,
		Confidence:   payload.Confidence,
		Model:        payload.Model,
		Indicators:   payload.Indicators,
	}
	name := "detector_score"
	if quick {
		name = "heuristic_score"
	}
	return det, []metricValue{{Name: name, Value: det.AILikelihood}}, nil
}

// premiumSectionKeys maps analyzer output keys to registry metric names
// per flattened section. Keys the ensemble has no use for stay behind.
var premiumKeys = map[string]string{
	"flesch_reading_ease":      "flesch_reading_ease",
	"average_grade_level":      "average_grade_level",
	"lexical_diversity":        "lexical_diversity",
	"noun_verb_ratio":          "noun_verb_ratio",
	"adj_noun_ratio":           "adj_noun_ratio",
	"sentence_length_skewness": "sentence_length_skewness",
	"sentence_length_kurtosis": "sentence_length_kurtosis",
	"coefficient_of_variation": "coefficient_of_variation",
	"ai_likelihood_from_stats": "ai_likelihood_from_stats",
}

// parsePremium flattens the premium analyzer's nested sections
// (perplexity scalar plus readability/linguistics/statistics objects)
// into the uniform metric shape.
func parsePremium(raw json.RawMessage) ([]metricValue, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("premium payload: %w", err)
	}
	if errRaw, ok := payload["error"]; ok {
		var msg string
		if json.Unmarshal(errRaw, &msg) == nil && msg != "" {
			return nil, fmt.Errorf("premium analyzer: %s", msg)
		}
	}

	var values []metricValue
	if pRaw, ok := payload["perplexity"]; ok {
		var p float64
		if json.Unmarshal(pRaw, &p) == nil {
			values = append(values, metricValue{Name: "premium_perplexity", Value: p})
		}
	}
	for _, section := range []string{"readability", "linguistics", "statistics"} {
		secRaw, ok := payload[section]
		if !ok {
			continue
		}
		var sec map[string]any
		if json.Unmarshal(secRaw, &sec) != nil {
			continue
		}
		for key, v := range sec {
			name, known := premiumKeys[key]
			if !known {
				continue
			}
			if val, ok := v.(float64); ok {
				values = append(values, metricValue{Name: name, Value: val})
			}
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("premium payload carries no usable metrics")
	}
	return values, nil
}

// parseEmotional adapts the emotion analyzer payload into the emotional
// section plus the two ensemble inputs it feeds.
func parseEmotional(raw json.RawMessage) (*EmotionalReport, []metricValue, error) {
	var payload struct {
		Emotions           map[string]float64 `json:"emotions"`
		Sentiment          map[string]float64 `json:"sentiment"`
		EmotionalVariance  *float64           `json:"emotional_variance"`
		EmotionalWordRatio float64            `json:"emotional_word_ratio"`
		DominantEmotion    string             `json:"dominant_emotion"`
		AIIndicatorScore   float64            `json:"ai_indicator_score"`
		Error              string             `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, nil, fmt.Errorf("emotional payload: %w", err)
	}
	if payload.Error != "" {
		return nil, nil, fmt.Errorf("emotion analyzer: %s", payload.Error)
	}
	if payload.EmotionalVariance == nil {
		return nil, nil, fmt.Errorf("emotional payload missing emotional_variance")
	}

	report := &EmotionalReport{
		DominantEmotion:    payload.DominantEmotion,
		EmotionalVariance:  *payload.EmotionalVariance,
		EmotionalWordRatio: payload.EmotionalWordRatio,
		Emotions:           payload.Emotions,
		Sentiment:          payload.Sentiment,
		AIIndicatorScore:   payload.AIIndicatorScore,
	}
	values := []metricValue{
		{Name: "emotional_variance", Value: report.EmotionalVariance},
		{Name: "emotional_ai_score", Value: report.AIIndicatorScore},
	}
	return report, values, nil
}

// parseEstimates adapts the LLM metric-estimation completion: a flat JSON
// object of numbers. Names outside the allowed set are dropped so a
// chatty model cannot inject metrics.
func parseEstimates(completion string, allowed []string) ([]metricValue, error) {
	var payload map[string]float64
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion)), &payload); err != nil {
		return nil, fmt.Errorf("estimate payload: %w", err)
	}
	allowedSet := make(map[string]bool, len(allowed))
	for _, n := range allowed {
		allowedSet[n] = true
	}
	var values []metricValue
	for name, v := range payload {
		if allowedSet[name] {
			values = append(values, metricValue{Name: name, Value: v})
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("estimate payload carries no recognized metrics")
	}
	return values, nil
}

// parseSEO adapts the SEO analyzer payload.
func parseSEO(raw json.RawMessage) (*SEOReport, error) {
	var payload struct {
		Score  *float64 `json:"score"`
		Grade  string   `json:"grade"`
		Issues []string `json:"issues"`
		Recommendations []struct {
			Text     string `json:"text"`
			Priority string `json:"priority"`
			Details  string `json:"details"`
		} `json:"recommendations"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("seo payload: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("seo analyzer: %s", payload.Error)
	}
	report := &SEOReport{Score: payload.Score, Grade: payload.Grade, Issues: payload.Issues}
	for _, r := range payload.Recommendations {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Text: r.Text, Priority: r.Priority, Details: r.Details,
		})
	}
	return report, nil
}

// parseKeyPoints adapts the key-points completion.
func parseKeyPoints(completion string) ([]string, error) {
	var payload struct {
		KeyPoints []string `json:"key_points"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion)), &payload); err != nil {
		return nil, fmt.Errorf("key points payload: %w", err)
	}
	var points []string
	for _, p := range payload.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("key points payload is empty")
	}
	return points, nil
}

// parseGEO adapts the generative-engine-visibility completion.
func parseGEO(completion string) (*GEOReport, error) {
	var payload struct {
		Score           *float64 `json:"score"`
		Strengths       []string `json:"strengths"`
		Weaknesses      []string `json:"weaknesses"`
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion)), &payload); err != nil {
		return nil, fmt.Errorf("geo payload: %w", err)
	}
	if payload.Score == nil {
		return nil, fmt.Errorf("geo payload missing score")
	}
	return &GEOReport{
		Score:           *payload.Score,
		Strengths:       payload.Strengths,
		Weaknesses:      payload.Weaknesses,
		Recommendations: payload.Recommendations,
	}, nil
}

// parseToxicity adapts the toxicity completion.
func parseToxicity(completion string) (*ToxicityResult, error) {
	var payload struct {
		Score      *float64 `json:"score"`
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSON(completion)), &payload); err != nil {
		return nil, fmt.Errorf("toxicity payload: %w", err)
	}
	if payload.Score == nil {
		return nil, fmt.Errorf("toxicity payload missing score")
	}
	return &ToxicityResult{Score: *payload.Score, Categories: payload.Categories}, nil
}

package analyses

import (
	"time"

	"originlytics-backend/internal/ensemble"
	"originlytics-backend/internal/normalize"
)

const (
	TierFree = "free"
	TierPaid = "paid"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Request is one analysis job as submitted by the caller. Exactly one of
// Text, URL, or DocumentID carries the content.
type Request struct {
	Text          string `json:"text,omitempty"`
	URL           string `json:"url,omitempty"`
	DocumentID    string `json:"documentId,omitempty"`
	Tier          string `json:"tier"`
	Language      string `json:"language,omitempty"`
	AllowAdvanced bool   `json:"allowAdvanced,omitempty"`
}

// Analysis is the persisted record of one job.
type Analysis struct {
	ID          string     `json:"id"`
	Tier        string     `json:"tier"`
	SourceURL   string     `json:"sourceUrl,omitempty"`
	DocumentID  string     `json:"documentId,omitempty"`
	ContentHash string     `json:"contentHash"`
	Status      string     `json:"status"`
	Result      *Result    `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Result is the assembled output of all settled phases. Sections are
// pointers: nil means the phase was degraded, skipped by tier, or not
// applicable to the job.
type Result struct {
	Summary       *string              `json:"summary"`
	KeyPoints     []string             `json:"key_points"`
	Metrics       []normalize.Metric   `json:"metrics"`
	Ensemble      *ensemble.Result     `json:"ensemble"`
	Detection     *DetectionResult     `json:"detection"`
	Toxicity      *ToxicityResult      `json:"toxicity"`
	SEO           *SEOReport           `json:"seo"`
	GEO           *GEOReport           `json:"geo"`
	Accessibility *AccessibilityReport `json:"accessibility"`
	Emotional     *EmotionalReport     `json:"emotional"`
	Telemetry     Telemetry            `json:"telemetry"`
}

// DetectionResult is the AI-likelihood detector output.
type DetectionResult struct {
	AILikelihood float64  `json:"ai_likelihood"`
	Confidence   float64  `json:"confidence,omitempty"`
	Model        string   `json:"model,omitempty"`
	Indicators   []string `json:"indicators,omitempty"`
}

// ToxicityResult scores harmful content 0-100.
type ToxicityResult struct {
	Score      float64  `json:"score"`
	Categories []string `json:"categories,omitempty"`
}

// SEOReport mirrors the SEO analyzer output.
type SEOReport struct {
	Score           *float64         `json:"score"`
	Grade           string           `json:"grade,omitempty"`
	Issues          []string         `json:"issues,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

// Recommendation is one prioritized improvement suggestion.
type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
	Details  string `json:"details,omitempty"`
}

// GEOReport scores visibility to generative engines.
type GEOReport struct {
	Score           float64  `json:"score"`
	Strengths       []string `json:"strengths,omitempty"`
	Weaknesses      []string `json:"weaknesses,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// AccessibilityReport scores page structure for assistive technology.
type AccessibilityReport struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

// EmotionalReport mirrors the emotion analyzer output.
type EmotionalReport struct {
	DominantEmotion    string             `json:"dominant_emotion"`
	EmotionalVariance  float64            `json:"emotional_variance"`
	EmotionalWordRatio float64            `json:"emotional_word_ratio"`
	Emotions           map[string]float64 `json:"emotions,omitempty"`
	Sentiment          map[string]float64 `json:"sentiment,omitempty"`
	AIIndicatorScore   float64            `json:"ai_indicator_score"`
}

// Telemetry is per-job performance accounting.
type Telemetry struct {
	PhaseTimingsMs   map[string]float64 `json:"phase_timings_ms"`
	PhaseOutcomes    map[string]string  `json:"phase_outcomes"`
	TotalMs          float64            `json:"total_ms"`
	EstimatedCostUSD float64            `json:"estimated_cost_usd"`
	CacheHit         bool               `json:"cache_hit"`
	WordCount        int                `json:"word_count"`
}

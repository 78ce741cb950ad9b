package llm

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
)

var (
	//go:embed prompts/summary_short.txt
	promptSummaryShort string
	//go:embed prompts/summary_detailed.txt
	promptSummaryDetailed string
	//go:embed prompts/key_points.txt
	promptKeyPoints string
	//go:embed prompts/metric_estimate.txt
	promptMetricEstimate string
	//go:embed prompts/geo.txt
	promptGEO string
	//go:embed prompts/toxicity.txt
	promptToxicity string
)

// SummaryPrompt builds the summary instruction plus the content.
func SummaryPrompt(text string, detailed bool) string {
	tpl := promptSummaryShort
	if detailed {
		tpl = promptSummaryDetailed
	}
	return withContent(tpl, text)
}

// KeyPointsPrompt asks for the count most important points as JSON.
func KeyPointsPrompt(text string, count int) string {
	if count <= 0 {
		count = 3
	}
	tpl := strings.ReplaceAll(promptKeyPoints, "{{COUNT}}", strconv.Itoa(count))
	return withContent(tpl, text)
}

// MetricEstimatePrompt asks for numeric estimates of the named metrics.
func MetricEstimatePrompt(text string, names []string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, strconv.Quote(n))
	}
	tpl := strings.ReplaceAll(promptMetricEstimate, "{{METRICS}}", "["+strings.Join(quoted, ", ")+"]")
	return withContent(tpl, text)
}

// GEOPrompt asks how well generative engines would surface the content.
func GEOPrompt(text string) string {
	return withContent(promptGEO, text)
}

// ToxicityPrompt asks for a 0-100 toxicity rating with categories.
func ToxicityPrompt(text string) string {
	return withContent(promptToxicity, text)
}

func withContent(instruction, text string) string {
	return fmt.Sprintf("%s\nContent:\n%s", strings.TrimSpace(instruction), text)
}

// ExtractJSON strips markdown code fences that models wrap around JSON
// output despite instructions, returning the raw JSON payload.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

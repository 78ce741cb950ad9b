package analyses

import (
	"context"
	"encoding/json"

	"originlytics-backend/internal/acquire"
	"originlytics-backend/internal/invoker"
	"originlytics-backend/internal/llm"
	"originlytics-backend/internal/metricspec"
)

// phase is one independently scheduled measurement unit. Its run func
// writes into the assembly under the assembly lock; an error degrades
// only this phase.
type phase struct {
	name string
	run  func(ctx context.Context, asm *assembly) error
}

// Analyzer scripts, addressed relative to the configured analyzer dir.
var (
	analyzerMetrics       = invoker.Analyzer{ID: "statistical_metrics", Script: "metrics.py", Args: []string{"--stdin"}}
	analyzerDetector      = invoker.Analyzer{ID: "ai_detector", Script: "ai_detector.py", Args: []string{"--stdin"}}
	analyzerDetectorQuick = invoker.Analyzer{ID: "ai_detector_quick", Script: "ai_detector_quick.py", Args: []string{"--stdin"}}
	analyzerEmotion       = invoker.Analyzer{ID: "emotion", Script: "emotion_analyzer.py", Args: []string{"--stdin"}}
	analyzerPremium       = invoker.Analyzer{ID: "premium_metrics", Script: "premium_metrics.py", Args: []string{"--stdin"}}
	analyzerSEO           = invoker.Analyzer{ID: "seo", Script: "seo_analyzer.py"}
)

// buildPhases assembles the phase set for the job's tier. Free tier gets
// the reduced set: short summary, three key points, the statistical
// metrics, and the quick heuristic detector. SEO and accessibility only
// apply to URL jobs, where page structure is known.
func (o *Orchestrator) buildPhases(req Request, text string, meta *acquire.Metadata) []phase {
	paid := req.Tier == TierPaid

	keyPoints := 3
	if paid {
		keyPoints = 5
	}

	phases := []phase{
		{name: "summary", run: func(ctx context.Context, asm *assembly) error {
			resp, err := o.complete(ctx, asm, llm.SummaryPrompt(text, paid))
			if err != nil {
				return err
			}
			asm.mu.Lock()
			asm.result.Summary = &resp.Text
			asm.mu.Unlock()
			return nil
		}},
		{name: "key_points", run: func(ctx context.Context, asm *assembly) error {
			resp, err := o.complete(ctx, asm, llm.KeyPointsPrompt(text, keyPoints))
			if err != nil {
				return err
			}
			points, err := parseKeyPoints(resp.Text)
			if err != nil {
				return err
			}
			if len(points) > keyPoints {
				points = points[:keyPoints]
			}
			asm.mu.Lock()
			asm.result.KeyPoints = points
			asm.mu.Unlock()
			return nil
		}},
		{name: "statistical_metrics", run: func(ctx context.Context, asm *assembly) error {
			raw, err := o.invoke(ctx, analyzerMetrics, text, o.analyzerEnv(req))
			if err != nil {
				return err
			}
			values, dominant, err := parseStatistical(raw)
			if err != nil {
				return err
			}
			asm.addBase(values)
			asm.mu.Lock()
			asm.dominant = dominant
			asm.mu.Unlock()
			return nil
		}},
		{name: "detection", run: func(ctx context.Context, asm *assembly) error {
			analyzer := analyzerDetectorQuick
			if paid {
				analyzer = analyzerDetector
			}
			raw, err := o.invoke(ctx, analyzer, text, o.analyzerEnv(req))
			if err != nil {
				return err
			}
			det, values, err := parseDetection(raw, !paid)
			if err != nil {
				return err
			}
			asm.addBase(values)
			asm.mu.Lock()
			asm.result.Detection = det
			asm.mu.Unlock()
			return nil
		}},
	}

	if !paid {
		return phases
	}

	phases = append(phases,
		phase{name: "llm_metrics", run: func(ctx context.Context, asm *assembly) error {
			estimated := o.Registry.NamesByCategory(metricspec.CategoryLLMEstimated)
			resp, err := o.complete(ctx, asm, llm.MetricEstimatePrompt(text, estimated))
			if err != nil {
				return err
			}
			values, err := parseEstimates(resp.Text, estimated)
			if err != nil {
				return err
			}
			asm.addBase(values)
			return nil
		}},
		phase{name: "toxicity", run: func(ctx context.Context, asm *assembly) error {
			resp, err := o.complete(ctx, asm, llm.ToxicityPrompt(text))
			if err != nil {
				return err
			}
			tox, err := parseToxicity(resp.Text)
			if err != nil {
				return err
			}
			asm.mu.Lock()
			asm.result.Toxicity = tox
			asm.mu.Unlock()
			return nil
		}},
		phase{name: "geo", run: func(ctx context.Context, asm *assembly) error {
			resp, err := o.complete(ctx, asm, llm.GEOPrompt(text))
			if err != nil {
				return err
			}
			geo, err := parseGEO(resp.Text)
			if err != nil {
				return err
			}
			asm.mu.Lock()
			asm.result.GEO = geo
			asm.mu.Unlock()
			return nil
		}},
		phase{name: "emotional", run: func(ctx context.Context, asm *assembly) error {
			raw, err := o.invoke(ctx, analyzerEmotion, text, o.analyzerEnv(req))
			if err != nil {
				return err
			}
			report, values, err := parseEmotional(raw)
			if err != nil {
				return err
			}
			asm.addBase(values)
			asm.mu.Lock()
			asm.result.Emotional = report
			asm.mu.Unlock()
			return nil
		}},
		phase{name: "premium_metrics", run: func(ctx context.Context, asm *assembly) error {
			raw, err := o.invoke(ctx, analyzerPremium, text, o.analyzerEnv(req))
			if err != nil {
				return err
			}
			values, err := parsePremium(raw)
			if err != nil {
				return err
			}
			asm.mu.Lock()
			asm.premium = append(asm.premium, values...)
			asm.mu.Unlock()
			return nil
		}},
	)

	if meta != nil {
		phases = append(phases,
			phase{name: "seo", run: func(ctx context.Context, asm *assembly) error {
				input, err := json.Marshal(seoInput(req.URL, meta))
				if err != nil {
					return err
				}
				raw, err := o.invoke(ctx, analyzerSEO, string(input), nil)
				if err != nil {
					return err
				}
				report, err := parseSEO(raw)
				if err != nil {
					return err
				}
				asm.mu.Lock()
				asm.result.SEO = report
				asm.mu.Unlock()
				return nil
			}},
			phase{name: "accessibility", run: func(ctx context.Context, asm *assembly) error {
				report := accessibilityReport(meta)
				asm.mu.Lock()
				asm.result.Accessibility = report
				asm.mu.Unlock()
				return nil
			}},
		)
	}

	return phases
}

// complete routes one completion through the configured client and books
// its token usage for the cost estimate.
func (o *Orchestrator) complete(ctx context.Context, asm *assembly, prompt string) (llm.Response, error) {
	resp, err := o.LLM.Complete(ctx, llm.Request{Prompt: prompt, Model: o.Opts.Model})
	if err != nil {
		return llm.Response{}, err
	}
	asm.addTokens(resp)
	return resp, nil
}

func (o *Orchestrator) invoke(ctx context.Context, analyzer invoker.Analyzer, stdin string, env map[string]string) (json.RawMessage, error) {
	return o.Invoker.Invoke(ctx, analyzer, stdin, env, invoker.Options{
		Timeout:    o.Opts.AnalyzerTimeout,
		MaxRetries: o.Opts.AnalyzerRetries,
	})
}

// analyzerEnv builds the env toggles for analyzer subprocesses. The
// scripts compare against the literal "1", not a parsed boolean.
func (o *Orchestrator) analyzerEnv(req Request) map[string]string {
	advanced := o.Opts.AllowAdvanced && req.Tier == TierPaid && req.AllowAdvanced
	return map[string]string{
		"ALLOW_ADVANCED": envFlag(advanced),
		"FREE_TIER":      envFlag(req.Tier != TierPaid),
	}
}

func envFlag(on bool) string {
	if on {
		return "1"
	}
	return "0"
}

// seoInput shapes page metadata into the SEO analyzer's stdin contract.
func seoInput(pageURL string, meta *acquire.Metadata) map[string]any {
	return map[string]any{
		"title":       meta.Title,
		"description": meta.Description,
		"url":         pageURL,
		"headings": map[string]any{
			"h1": meta.H1Texts,
			"h2": meta.H2Texts,
			"h3": meta.H3Texts,
		},
		"images": map[string]any{
			"total":      meta.Images,
			"withAlt":    meta.Images - meta.ImagesNoAlt,
			"missingAlt": meta.ImagesNoAlt,
		},
		"links": map[string]any{
			"total":    meta.Links,
			"internal": meta.InternalLinks,
			"external": meta.ExternalLinks,
		},
	}
}

// accessibilityReport scores page structure directly from metadata.
func accessibilityReport(meta *acquire.Metadata) *AccessibilityReport {
	score := 100.0
	var issues []string

	if meta.Lang == "" {
		score -= 20
		issues = append(issues, "missing lang attribute on html element")
	}
	if !meta.HasViewport {
		score -= 15
		issues = append(issues, "missing viewport meta tag")
	}
	switch n := len(meta.H1Texts); {
	case n == 0:
		score -= 20
		issues = append(issues, "missing h1 heading")
	case n > 1:
		score -= 10
		issues = append(issues, "multiple h1 headings")
	}
	if meta.Images > 0 && meta.ImagesNoAlt > 0 {
		ratio := float64(meta.ImagesNoAlt) / float64(meta.Images)
		switch {
		case ratio > 0.5:
			score -= 25
		default:
			score -= 10
		}
		issues = append(issues, "images missing alt text")
	}
	if meta.Headings["h3"] > 0 && meta.Headings["h2"] == 0 {
		score -= 10
		issues = append(issues, "heading levels skipped (h3 without h2)")
	}
	if score < 0 {
		score = 0
	}
	return &AccessibilityReport{Score: score, Issues: issues}
}

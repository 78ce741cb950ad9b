package analyses

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"originlytics-backend/internal/acquire"
	"originlytics-backend/internal/ensemble"
	"originlytics-backend/internal/invoker"
	"originlytics-backend/internal/llm"
	"originlytics-backend/internal/metricspec"
	"originlytics-backend/internal/normalize"
	"originlytics-backend/internal/shared/metrics"
	"originlytics-backend/internal/shared/telemetry"
	"originlytics-backend/internal/shared/util"
)

// Phase outcome states. Fatal never appears in a completed result: a
// fatal phase aborts the job instead.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
)

// Completion token prices per million, used for the cost estimate only.
const (
	promptCostPerM     = 0.15
	completionCostPerM = 0.60
)

// Options tune one orchestrator instance.
type Options struct {
	Model           string
	PhaseTimeout    time.Duration
	MinWords        int
	AnalyzerTimeout time.Duration
	AnalyzerRetries int
	AllowAdvanced   bool
}

// ContentAcquirer fetches and extracts a remote page.
type ContentAcquirer interface {
	Acquire(ctx context.Context, rawURL string) (*acquire.Page, error)
}

// Orchestrator runs one analysis job: validate, acquire, fan out all
// measurement phases concurrently, join, assemble. Safe for concurrent
// use; all dependencies are injected once at process start.
type Orchestrator struct {
	LLM        llm.Client
	Invoker    *invoker.Invoker
	Acquirer   ContentAcquirer
	Registry   *metricspec.Registry
	Normalizer *normalize.Normalizer
	Aggregator *ensemble.Aggregator
	Cache      Cache
	Opts       Options
}

// NewOrchestrator wires an orchestrator over the default metric registry.
func NewOrchestrator(client llm.Client, inv *invoker.Invoker, acq ContentAcquirer, cache Cache, opts Options) *Orchestrator {
	if opts.PhaseTimeout <= 0 {
		opts.PhaseTimeout = 150 * time.Second
	}
	if opts.MinWords <= 0 {
		opts.MinWords = 200
	}
	if cache == nil {
		cache = NoopCache{}
	}
	reg := metricspec.Default()
	return &Orchestrator{
		LLM:        client,
		Invoker:    inv,
		Acquirer:   acq,
		Registry:   reg,
		Normalizer: normalize.New(reg),
		Aggregator: ensemble.New(reg),
		Cache:      cache,
		Opts:       opts,
	}
}

// assembly collects phase outputs under one lock until the join barrier.
type assembly struct {
	mu       sync.Mutex
	result   Result
	base     []metricValue
	premium  []metricValue
	dominant string
	tokens   tokenUsage
}

type tokenUsage struct {
	prompt     int
	completion int
}

func (a *assembly) addBase(values []metricValue) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.base = append(a.base, values...)
}

func (a *assembly) addTokens(resp llm.Response) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens.prompt += resp.PromptTokens
	a.tokens.completion += resp.CompletionTokens
}

// Run executes the job and returns the assembled result. The error is
// non-nil only for job-level fatal conditions: bad input, content too
// short, or failed acquisition.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	started := time.Now()
	metrics.IncAnalysisStarted()

	text, meta, err := o.resolveContent(ctx, req)
	if err != nil {
		metrics.IncAnalysisFailed()
		return nil, err
	}

	words := len(strings.Fields(text))
	if words < o.Opts.MinWords {
		metrics.IncAnalysisFailed()
		return nil, &ContentTooShortError{Words: words, Min: o.Opts.MinWords}
	}

	cacheKey := util.HashContent(req.Tier + "|" + text)
	if cached, ok := o.Cache.Get(ctx, cacheKey); ok {
		metrics.IncCacheHit()
		metrics.IncAnalysisCompleted()
		cached.Telemetry.CacheHit = true
		telemetry.Info("analysis.cache_hit", map[string]any{"tier": req.Tier, "words": words})
		return cached, nil
	}
	metrics.IncCacheMiss()

	asm := &assembly{}
	asm.result.Telemetry.PhaseTimingsMs = map[string]float64{}
	asm.result.Telemetry.PhaseOutcomes = map[string]string{}
	asm.result.Telemetry.WordCount = words

	phases := o.buildPhases(req, text, meta)
	var wg sync.WaitGroup
	for _, p := range phases {
		wg.Add(1)
		go func(p phase) {
			defer wg.Done()
			o.runPhase(ctx, p, asm)
		}(p)
	}
	wg.Wait()

	o.assemble(text, asm)

	asm.result.Telemetry.TotalMs = float64(time.Since(started).Milliseconds())
	metrics.ObserveAnalysisDurationMs(asm.result.Telemetry.TotalMs)
	metrics.IncAnalysisCompleted()
	degraded := 0
	for _, outcome := range asm.result.Telemetry.PhaseOutcomes {
		if outcome == OutcomeDegraded {
			degraded++
		}
	}
	if degraded > 0 {
		metrics.IncAnalysisDegraded()
	}
	telemetry.Info("analysis.completed", map[string]any{
		"tier":     req.Tier,
		"words":    words,
		"phases":   len(phases),
		"degraded": degraded,
		"total_ms": asm.result.Telemetry.TotalMs,
	})

	o.Cache.Set(ctx, cacheKey, &asm.result)
	return &asm.result, nil
}

// resolveContent returns the text to analyze, acquiring it when the job
// names a URL. Acquisition failure is fatal.
func (o *Orchestrator) resolveContent(ctx context.Context, req Request) (string, *acquire.Metadata, error) {
	switch {
	case req.Text != "" && req.URL != "":
		return "", nil, &ValidationError{Msg: "provide either text or url, not both"}
	case req.Text != "":
		return req.Text, nil, nil
	case req.URL != "":
		if o.Acquirer == nil {
			return "", nil, &ValidationError{Msg: "url analysis is not configured"}
		}
		page, err := o.Acquirer.Acquire(ctx, req.URL)
		if err != nil {
			return "", nil, fmt.Errorf("acquire content: %w", err)
		}
		return page.Text, &page.Metadata, nil
	default:
		return "", nil, &ValidationError{Msg: "text or url is required"}
	}
}

// runPhase executes one phase with its own timeout. Failure or panic
// degrades the phase, never the job.
func (o *Orchestrator) runPhase(ctx context.Context, p phase, asm *assembly) {
	phaseCtx, cancel := context.WithTimeout(ctx, o.Opts.PhaseTimeout)
	defer cancel()

	started := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("phase panic: %v", r)
			}
		}()
		return p.run(phaseCtx, asm)
	}()
	elapsed := float64(time.Since(started).Milliseconds())
	metrics.ObservePhaseDurationMs(p.name, elapsed)

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeDegraded
		telemetry.Warn("analysis.phase_degraded", map[string]any{
			"phase": p.name,
			"error": err.Error(),
		})
	}
	asm.mu.Lock()
	asm.result.Telemetry.PhaseTimingsMs[p.name] = elapsed
	asm.result.Telemetry.PhaseOutcomes[p.name] = outcome
	asm.mu.Unlock()
}

// assemble normalizes collected metrics and computes the ensemble after
// every phase has settled. Premium metrics, when present, trigger a
// re-aggregation recorded as the enhancement delta.
func (o *Orchestrator) assemble(text string, asm *assembly) {
	asm.mu.Lock()
	defer asm.mu.Unlock()

	if missing := o.Registry.MissingFrom(names(asm.base)); len(missing) > 0 {
		telemetry.Warn("analysis.unregistered_metrics", map[string]any{"names": missing})
	}

	for _, v := range asm.base {
		asm.result.Metrics = append(asm.result.Metrics, o.Normalizer.Normalize(v.Name, v.Value))
	}

	if len(asm.base) > 0 {
		agg := o.Aggregator.Aggregate(toRawMap(asm.base), len(text))
		if len(asm.premium) > 0 {
			combined := toRawMap(asm.base)
			for _, v := range asm.premium {
				combined[v.Name] = v.Value
				asm.result.Metrics = append(asm.result.Metrics, o.Normalizer.Normalize(v.Name, v.Value))
			}
			agg = o.Aggregator.Reaggregate(agg, combined, len(text))
		}
		asm.result.Ensemble = &agg
	}

	if asm.result.Emotional == nil && asm.dominant != "" {
		asm.result.Emotional = &EmotionalReport{DominantEmotion: asm.dominant}
	}

	asm.result.Telemetry.EstimatedCostUSD = round4(
		float64(asm.tokens.prompt)*promptCostPerM/1e6 +
			float64(asm.tokens.completion)*completionCostPerM/1e6)
}

func names(values []metricValue) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, v.Name)
	}
	return out
}

func round4(v float64) float64 {
	return float64(int64(v*10000+0.5)) / 10000
}

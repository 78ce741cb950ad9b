package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	analysisDegradedTotal  atomic.Uint64
	cacheHitTotal          atomic.Uint64
	cacheMissTotal         atomic.Uint64
	llmThrottledTotal      atomic.Uint64

	analysisDuration = newHistogram([]float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000, 120000})

	phaseMu        sync.Mutex
	phaseDurations = map[string]*histogram{}
)

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Add(1)
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Add(1)
}

// IncAnalysisFailed increments the failed counter.
func IncAnalysisFailed() {
	analysisFailedTotal.Add(1)
}

// IncAnalysisDegraded increments the degraded-phase counter.
func IncAnalysisDegraded() {
	analysisDegradedTotal.Add(1)
}

// IncCacheHit increments the result-cache hit counter.
func IncCacheHit() {
	cacheHitTotal.Add(1)
}

// IncCacheMiss increments the result-cache miss counter.
func IncCacheMiss() {
	cacheMissTotal.Add(1)
}

// IncLLMThrottled increments the completion-gateway throttle counter.
func IncLLMThrottled() {
	llmThrottledTotal.Add(1)
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// ObservePhaseDurationMs records a single measurement phase duration.
func ObservePhaseDurationMs(phase string, value float64) {
	if value < 0 {
		value = 0
	}
	phaseMu.Lock()
	h, ok := phaseDurations[phase]
	if !ok {
		h = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
		phaseDurations[phase] = h
	}
	phaseMu.Unlock()
	h.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "analysis_degraded_phase_total", "Total degraded measurement phases", analysisDegradedTotal.Load())
	writeCounter(&buf, "result_cache_hit_total", "Total analysis result cache hits", cacheHitTotal.Load())
	writeCounter(&buf, "result_cache_miss_total", "Total analysis result cache misses", cacheMissTotal.Load())
	writeCounter(&buf, "llm_throttled_total", "Total throttled completion calls", llmThrottledTotal.Load())
	writeHistogram(&buf, "analysis_duration_ms", "Analysis duration in milliseconds", "", analysisDuration.Snapshot())

	phaseMu.Lock()
	names := make([]string, 0, len(phaseDurations))
	for name := range phaseDurations {
		names = append(names, name)
	}
	sort.Strings(names)
	snaps := make(map[string]histogramSnapshot, len(names))
	for _, name := range names {
		snaps[name] = phaseDurations[name].Snapshot()
	}
	phaseMu.Unlock()

	for _, name := range names {
		writeHistogram(&buf, "phase_duration_ms", "Measurement phase duration in milliseconds", name, snaps[name])
	}
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help, phase string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	label := ""
	if phase != "" {
		label = fmt.Sprintf("phase=%q,", phase)
	}
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{%sle=\"%s\"} %d\n", name, label, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{%sle=\"+Inf\"} %d\n", name, label, snap.count)
	if phase == "" {
		fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
		fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
	} else {
		fmt.Fprintf(buf, "%s_sum{phase=%q} %s\n", name, phase, formatFloat(snap.sum))
		fmt.Fprintf(buf, "%s_count{phase=%q} %d\n", name, phase, snap.count)
	}
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}

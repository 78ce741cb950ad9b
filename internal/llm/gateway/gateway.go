// Package gateway rate-limits and retries completion calls so the whole
// process shares one budget against the provider.
package gateway

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"originlytics-backend/internal/llm"
	"originlytics-backend/internal/shared/metrics"
	"originlytics-backend/internal/shared/telemetry"
)

const (
	defaultThrottleDelay = 15 * time.Second
	initialRetryDelay    = 2 * time.Second
)

// Options tune the gateway. Zero values fall back to conservative defaults.
type Options struct {
	// RequestsPerMin refills the request reservoir.
	RequestsPerMin int
	// MaxConcurrent caps in-flight completion calls.
	MaxConcurrent int
	// MaxAttempts bounds transient-failure retries, first attempt included.
	// Throttle waits do not consume an attempt.
	MaxAttempts int

	// sleep is a test seam; nil means time.Sleep semantics via timers.
	sleep func(ctx context.Context, d time.Duration) error
}

// Gateway wraps a completion client with a shared reservoir limiter,
// a concurrency cap, and retry handling. Callers over budget are queued,
// not rejected. Safe for concurrent use.
type Gateway struct {
	inner   llm.Client
	limiter *rate.Limiter
	slots   *semaphore.Weighted
	opts    Options
}

// New builds a gateway around inner.
func New(inner llm.Client, opts Options) *Gateway {
	if opts.RequestsPerMin <= 0 {
		opts.RequestsPerMin = 20
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.sleep == nil {
		opts.sleep = sleepCtx
	}
	return &Gateway{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMin)/60.0), opts.RequestsPerMin),
		slots:   semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		opts:    opts,
	}
}

// Complete forwards the request once the reservoir and a concurrency slot
// allow it. Throttle responses wait out Retry-After (or a default delay)
// and are rescheduled without consuming an attempt; transient failures are
// retried with exponential backoff; other client errors return immediately.
func (g *Gateway) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return llm.Response{}, err
	}
	defer g.slots.Release(1)

	attempt := 0
	delay := initialRetryDelay
	for {
		if err := g.limiter.Wait(ctx); err != nil {
			return llm.Response{}, err
		}

		resp, err := g.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}

		var serr *llm.StatusError
		if errors.As(err, &serr) && serr.Throttled() {
			metrics.IncLLMThrottled()
			wait := serr.RetryAfter
			if wait <= 0 {
				wait = defaultThrottleDelay
			}
			telemetry.Warn("llm.throttled", map[string]any{
				"wait_ms": wait.Milliseconds(),
			})
			if err := g.opts.sleep(ctx, wait); err != nil {
				return llm.Response{}, err
			}
			continue
		}

		if !transient(err) {
			return llm.Response{}, err
		}

		attempt++
		if attempt >= g.opts.MaxAttempts {
			return llm.Response{}, err
		}
		telemetry.Warn("llm.retry", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})
		if err := g.opts.sleep(ctx, delay); err != nil {
			return llm.Response{}, err
		}
		delay *= 2
	}
}

// transient reports whether the failure is worth retrying: server-side
// errors and network faults qualify, other client errors do not.
func transient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var serr *llm.StatusError
	if errors.As(err, &serr) {
		return serr.Retryable()
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"originlytics-backend/internal/llm"
)

type scriptedClient struct {
	mu       sync.Mutex
	calls    int
	inFlight int32
	peak     int32
	results  []error
	delay    time.Duration
}

func (c *scriptedClient) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	cur := atomic.AddInt32(&c.inFlight, 1)
	for {
		p := atomic.LoadInt32(&c.peak)
		if cur <= p || atomic.CompareAndSwapInt32(&c.peak, p, cur) {
			break
		}
	}
	if c.delay > 0 {
		time.Sleep(c.delay)
	}
	atomic.AddInt32(&c.inFlight, -1)

	c.mu.Lock()
	idx := c.calls
	c.calls++
	c.mu.Unlock()
	if idx < len(c.results) && c.results[idx] != nil {
		return llm.Response{}, c.results[idx]
	}
	return llm.Response{Text: "ok"}, nil
}

func (c *scriptedClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func instantSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		if recorded != nil {
			*recorded = append(*recorded, d)
		}
		return ctx.Err()
	}
}

func TestCompletePassesThrough(t *testing.T) {
	inner := &scriptedClient{}
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 2, MaxAttempts: 3, sleep: instantSleep(nil)})

	resp, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestThrottleDoesNotConsumeAttempts(t *testing.T) {
	inner := &scriptedClient{results: []error{
		&llm.StatusError{Status: 429, RetryAfter: 3 * time.Second},
		&llm.StatusError{Status: 429},
		&llm.StatusError{Status: 429},
		&llm.StatusError{Status: 429},
		nil,
	}}
	var waits []time.Duration
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 2, MaxAttempts: 2, sleep: instantSleep(&waits)})

	resp, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	if err != nil {
		t.Fatalf("expected success after throttles, got %v", err)
	}
	if resp.Text != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	// 4 throttles + success, far past MaxAttempts=2.
	if inner.callCount() != 5 {
		t.Fatalf("expected 5 calls, got %d", inner.callCount())
	}
	if len(waits) != 4 {
		t.Fatalf("expected 4 throttle waits, got %d", len(waits))
	}
	if waits[0] != 3*time.Second {
		t.Fatalf("Retry-After must be honored, got %v", waits[0])
	}
	if waits[1] != defaultThrottleDelay {
		t.Fatalf("missing Retry-After must use the default delay, got %v", waits[1])
	}
}

func TestTransientRetriedUpToMaxAttempts(t *testing.T) {
	inner := &scriptedClient{results: []error{
		&llm.StatusError{Status: 502},
		&llm.StatusError{Status: 503},
		&llm.StatusError{Status: 500},
	}}
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 2, MaxAttempts: 3, sleep: instantSleep(nil)})

	_, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	var serr *llm.StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if inner.callCount() != 3 {
		t.Fatalf("expected exactly MaxAttempts calls, got %d", inner.callCount())
	}
}

func TestTransientBackoffGrows(t *testing.T) {
	inner := &scriptedClient{results: []error{
		&llm.StatusError{Status: 500},
		&llm.StatusError{Status: 500},
		nil,
	}}
	var waits []time.Duration
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 2, MaxAttempts: 3, sleep: instantSleep(&waits)})

	if _, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(waits) != 2 {
		t.Fatalf("expected 2 retry waits, got %d", len(waits))
	}
	if waits[1] != 2*waits[0] {
		t.Fatalf("backoff should double, got %v then %v", waits[0], waits[1])
	}
}

func TestPermanentClientErrorNotRetried(t *testing.T) {
	inner := &scriptedClient{results: []error{
		&llm.StatusError{Status: 400, Message: "bad prompt"},
	}}
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 2, MaxAttempts: 5, sleep: instantSleep(nil)})

	_, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if inner.callCount() != 1 {
		t.Fatalf("4xx must not be retried, got %d calls", inner.callCount())
	}
}

func TestConcurrencyCapHolds(t *testing.T) {
	inner := &scriptedClient{delay: 20 * time.Millisecond}
	g := New(inner, Options{RequestsPerMin: 6000, MaxConcurrent: 2, MaxAttempts: 1, sleep: instantSleep(nil)})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
		}()
	}
	wg.Wait()

	if peak := atomic.LoadInt32(&inner.peak); peak > 2 {
		t.Fatalf("in-flight cap exceeded: peak %d", peak)
	}
	if inner.callCount() != 8 {
		t.Fatalf("queued callers must still complete, got %d calls", inner.callCount())
	}
}

func TestReservoirQueuesBeyondBudget(t *testing.T) {
	inner := &scriptedClient{}
	// 120 rpm: reservoir starts with 120 tokens and refills 2 per second.
	g := New(inner, Options{RequestsPerMin: 120, MaxConcurrent: 4, MaxAttempts: 1, sleep: instantSleep(nil)})

	start := time.Now()
	for i := 0; i < 120; i++ {
		if _, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"}); err != nil {
			t.Fatalf("burst call %d failed: %v", i, err)
		}
	}
	if burst := time.Since(start); burst > 100*time.Millisecond {
		t.Fatalf("calls within the reservoir must not block, burst took %v", burst)
	}

	start = time.Now()
	if _, err := g.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"}); err != nil {
		t.Fatalf("queued call must succeed after refill, got %v", err)
	}
	if waited := time.Since(start); waited < 200*time.Millisecond {
		t.Fatalf("call beyond the reservoir must wait for a refill, waited only %v", waited)
	}
	if inner.callCount() != 121 {
		t.Fatalf("queued caller must still reach the client, got %d calls", inner.callCount())
	}
}

func TestCanceledContextStopsWaiting(t *testing.T) {
	inner := &scriptedClient{results: []error{
		&llm.StatusError{Status: 429},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	g := New(inner, Options{RequestsPerMin: 600, MaxConcurrent: 1, MaxAttempts: 3,
		sleep: func(ctx context.Context, d time.Duration) error {
			cancel()
			return ctx.Err()
		}})

	_, err := g.Complete(ctx, llm.Request{Prompt: "p", Model: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

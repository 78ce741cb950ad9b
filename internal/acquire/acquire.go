// Package acquire fetches remote pages and extracts their main content
// for analysis. Targets are SSRF-validated, fetched politely with a
// per-host limiter, and extracted through layered strategies.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"originlytics-backend/internal/shared/telemetry"
)

// ErrNoContent means the page fetched fine but nothing analyzable
// survived extraction.
var ErrNoContent = errors.New("no extractable content")

const maxBodyBytes = 4 << 20

// Page is the acquired article text plus structural metadata.
type Page struct {
	URL      string
	Title    string
	Text     string
	Metadata Metadata
}

// Options tune the acquirer. Zero values fall back to defaults.
type Options struct {
	Timeout      time.Duration
	Retries      int
	UserAgent    string
	HostInterval time.Duration
}

// Acquirer fetches and extracts pages. Safe for concurrent use; the
// per-host limiter is shared across all goroutines using the instance.
type Acquirer struct {
	opts  Options
	hosts *HostLimiter

	// Test seams. newClient rebuilds the HTTP session between retries;
	// sleep and preDelay inject the politeness and backoff waits.
	newClient func(timeout time.Duration) *http.Client
	resolver  resolver
	sleep     func(ctx context.Context, d time.Duration) error
	preDelay  func() time.Duration
}

// New builds an Acquirer.
func New(opts Options) *Acquirer {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; OriginLytics/1.0)"
	}
	if opts.HostInterval <= 0 {
		opts.HostInterval = 2 * time.Second
	}
	return &Acquirer{
		opts:  opts,
		hosts: NewHostLimiter(opts.HostInterval),
		newClient: func(timeout time.Duration) *http.Client {
			return &http.Client{Timeout: timeout}
		},
		sleep: sleepCtx,
		preDelay: func() time.Duration {
			return time.Duration(200+rand.Intn(600)) * time.Millisecond
		},
	}
}

// fetchStrategy is one rung of the layered navigation ladder: each rung
// shortens the timeout and loosens what counts as a usable response.
type fetchStrategy struct {
	name          string
	timeoutFactor float64
	acceptPartial bool
}

var strategies = []fetchStrategy{
	{name: "full", timeoutFactor: 1.0},
	{name: "dom_ready", timeoutFactor: 0.5, acceptPartial: true},
	{name: "minimal", timeoutFactor: 0.25, acceptPartial: true},
}

// Acquire validates, fetches, and extracts one page. On transient fetch
// failure every strategy is tried in order; if all fail, the attempt is
// retried with randomized exponential backoff and a fresh HTTP session.
func (a *Acquirer) Acquire(ctx context.Context, rawURL string) (*Page, error) {
	if err := ValidateURL(ctx, rawURL, a.resolver); err != nil {
		return nil, err
	}
	if err := a.hosts.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	var lastErr error
	delay := time.Second
	for attempt := 0; attempt <= a.opts.Retries; attempt++ {
		if attempt > 0 {
			// Randomized backoff, then a rebuilt session for the next try.
			jittered := delay/2 + time.Duration(rand.Int63n(int64(delay)))
			telemetry.Warn("acquire.retry", map[string]any{
				"url":     rawURL,
				"attempt": attempt,
				"wait_ms": jittered.Milliseconds(),
				"error":   lastErr.Error(),
			})
			if err := a.sleep(ctx, jittered); err != nil {
				return nil, err
			}
			delay *= 2
		}

		if err := a.sleep(ctx, a.preDelay()); err != nil {
			return nil, err
		}

		client := a.newClient(a.opts.Timeout)
		body, err := a.fetchLayered(ctx, client, rawURL)
		client.CloseIdleConnections()
		if err != nil {
			lastErr = err
			continue
		}

		text, meta := ExtractPage(body, rawURL)
		if text == "" {
			return nil, ErrNoContent
		}
		telemetry.Info("acquire.done", map[string]any{
			"url":   rawURL,
			"words": meta.WordCount,
		})
		return &Page{URL: rawURL, Title: meta.Title, Text: text, Metadata: meta}, nil
	}
	return nil, fmt.Errorf("acquire %s: %w", rawURL, lastErr)
}

func (a *Acquirer) fetchLayered(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	var lastErr error
	for _, strat := range strategies {
		timeout := time.Duration(float64(a.opts.Timeout) * strat.timeoutFactor)
		body, err := a.fetchOnce(ctx, client, rawURL, timeout, strat.acceptPartial)
		if err == nil {
			return body, nil
		}
		lastErr = err
		telemetry.Warn("acquire.strategy_failed", map[string]any{
			"url":      rawURL,
			"strategy": strat.name,
			"error":    err.Error(),
		})
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (a *Acquirer) fetchOnce(ctx context.Context, client *http.Client, rawURL string, timeout time.Duration, acceptPartial bool) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", a.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		// A timed-out read can still leave a usable partial body.
		if !acceptPartial || len(raw) == 0 {
			return "", readErr
		}
	}
	body := string(raw)
	if strings.TrimSpace(body) == "" {
		return "", fmt.Errorf("fetch %s: empty body", rawURL)
	}
	return body, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

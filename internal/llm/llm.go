package llm

import (
	"context"
	"fmt"
	"time"
)

// Client abstracts completion providers.
type Client interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Request captures one completion call.
type Request struct {
	Prompt string
	Model  string
	// MaxTokens caps the completion length; zero means provider default.
	MaxTokens int
}

// Response is the completion text plus usage accounting.
type Response struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// StatusError carries an HTTP-like status for retry classification:
// 429 is throttling, 5xx is retryable, other 4xx is permanent.
type StatusError struct {
	Status     int
	Message    string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("completion api status %d: %s", e.Status, e.Message)
}

// Throttled reports whether the error is a rate-limit response.
func (e *StatusError) Throttled() bool { return e.Status == 429 }

// Retryable reports whether the error is a transient server failure.
func (e *StatusError) Retryable() bool { return e.Status >= 500 }

// PlaceholderPrefix labels output produced without a configured provider.
const PlaceholderPrefix = "[placeholder]"

// PlaceholderClient answers every completion with a clearly-labeled
// placeholder so the pipeline degrades instead of crashing when no API
// key is configured.
type PlaceholderClient struct{}

// Complete returns a labeled placeholder response.
func (PlaceholderClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	return Response{Text: PlaceholderPrefix + " completion unavailable: no API key configured"}, nil
}

// IsPlaceholder reports whether a completion came from the placeholder client.
func IsPlaceholder(text string) bool {
	return len(text) >= len(PlaceholderPrefix) && text[:len(PlaceholderPrefix)] == PlaceholderPrefix
}

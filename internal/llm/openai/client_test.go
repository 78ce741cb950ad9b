package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"originlytics-backend/internal/llm"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient("test-key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	client.baseURL = srv.URL
	return client, srv
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatalf("expected error for empty API key")
	}
}

func TestCompleteSuccess(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["model"] != "gpt-4o-mini" {
			t.Errorf("unexpected model: %v", req["model"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  a summary  "}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		})
	})

	resp, err := client.Complete(context.Background(), llm.Request{Prompt: "summarize", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Text != "a summary" {
		t.Fatalf("expected trimmed text, got %q", resp.Text)
	}
	if resp.PromptTokens != 10 || resp.CompletionTokens != 5 {
		t.Fatalf("usage not captured: %+v", resp)
	}
}

func TestCompleteThrottledCarriesRetryAfter(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_exceeded"}}`))
	})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	var serr *llm.StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !serr.Throttled() {
		t.Fatalf("expected throttled classification for 429")
	}
	if serr.RetryAfter != 7*time.Second {
		t.Fatalf("expected retry-after 7s, got %v", serr.RetryAfter)
	}
}

func TestCompleteServerErrorRetryable(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	var serr *llm.StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if !serr.Retryable() || serr.Throttled() {
		t.Fatalf("expected retryable non-throttled classification, got %+v", serr)
	}
}

func TestCompleteClientErrorNotRetryable(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad prompt","type":"invalid_request_error"}}`))
	})

	_, err := client.Complete(context.Background(), llm.Request{Prompt: "p", Model: "m"})
	var serr *llm.StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if serr.Retryable() || serr.Throttled() {
		t.Fatalf("400 must be permanent, got %+v", serr)
	}
}

func TestCompleteRequiresModel(t *testing.T) {
	client, err := NewClient("k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Complete(context.Background(), llm.Request{Prompt: "p"}); err == nil {
		t.Fatalf("expected error for missing model")
	}
}

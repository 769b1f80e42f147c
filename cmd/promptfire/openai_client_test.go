package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/torosent/promptfire/internal/adapter"
)

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) *openAIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", server.URL)

	client, err := newOpenAIClient("gpt-4o-mini", 5*time.Second)
	if err != nil {
		t.Fatalf("newOpenAIClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestOpenAIClientSuccess(t *testing.T) {
	var gotAuth, gotPath string
	var gotBody map[string]any

	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"choices": [{"message": {"role": "assistant", "content": "Go is a language."}}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34}
		}`)
	})

	out := client.RunPrompt(context.Background(), "What is Go?")
	if !out.Success {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Completion != "Go is a language." {
		t.Errorf("unexpected completion %q", out.Completion)
	}
	if out.PromptTokens != 12 || out.CompletionTokens != 34 {
		t.Errorf("unexpected usage: %d/%d", out.PromptTokens, out.CompletionTokens)
	}
	if out.TotalTokens() != 46 {
		t.Errorf("TotalTokens = %d, want 46", out.TotalTokens())
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected Authorization header %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("unexpected model in request body: %v", gotBody["model"])
	}
}

func TestOpenAIClientClassifiesStatuses(t *testing.T) {
	tests := []struct {
		status int
		want   adapter.ErrorKind
	}{
		{http.StatusUnauthorized, adapter.ErrorKindAuthentication},
		{http.StatusTooManyRequests, adapter.ErrorKindRateLimit},
		{http.StatusBadRequest, adapter.ErrorKindMalformedRequest},
		{http.StatusInternalServerError, adapter.ErrorKindNetwork},
	}

	for _, tt := range tests {
		client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			io.WriteString(w, `{"error": {"message": "nope"}}`)
		})

		out := client.RunPrompt(context.Background(), "hello")
		if out.Success {
			t.Fatalf("status %d: expected failure", tt.status)
		}
		if out.ErrorKind != tt.want {
			t.Errorf("status %d: kind = %s, want %s", tt.status, out.ErrorKind, tt.want)
		}
		if out.ErrorDetail == "" {
			t.Errorf("status %d: expected an error detail", tt.status)
		}
	}
}

func TestOpenAIClientConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	t.Setenv("OPENAI_API_KEY", "test-key")
	t.Setenv("OPENAI_BASE_URL", url)

	client, err := newOpenAIClient("gpt-4o-mini", time.Second)
	if err != nil {
		t.Fatal(err)
	}
	out := client.RunPrompt(context.Background(), "hello")
	if out.Success || out.ErrorKind != adapter.ErrorKindNetwork {
		t.Errorf("expected network failure, got %+v", out)
	}
}

func TestOpenAIClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := newOpenAIClient("gpt-4", time.Second); err == nil {
		t.Fatal("expected an error without OPENAI_API_KEY")
	}
}

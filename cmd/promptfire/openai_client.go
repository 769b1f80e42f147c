package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/promptfire/internal/adapter"
	"github.com/torosent/promptfire/internal/tracing"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	maxBodyReadSize      = 1024 * 1024
	maxErrorDetailBytes  = 512
)

// openAIClient speaks the OpenAI chat completions API. It also works against
// any OpenAI-compatible server via OPENAI_BASE_URL.
type openAIClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

func newOpenAIClient(model string, timeout time.Duration) (*openAIClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}
	baseURL := strings.TrimRight(os.Getenv("OPENAI_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &openAIClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}, nil
}

func (c *openAIClient) Backend() string { return "openai" }
func (c *openAIClient) Model() string   { return c.model }
func (c *openAIClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *openAIClient) RunPrompt(ctx context.Context, prompt string) adapter.Outcome {
	payload, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return adapter.Failure(adapter.ErrorKindMalformedRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return adapter.Failure(adapter.ErrorKindMalformedRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	tracing.InjectHTTPHeaders(ctx, req.Header)

	resp, err := c.client.Do(req)
	if err != nil {
		return adapter.Failure(adapter.ClassifyError(err), err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyReadSize))
	if err != nil {
		return adapter.Failure(adapter.ErrorKindNetwork, err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		return adapter.Failure(adapter.ClassifyStatus(resp.StatusCode), apiErrorDetail(resp.StatusCode, body))
	}

	return adapter.Outcome{
		Success:          true,
		Completion:       gjson.GetBytes(body, "choices.0.message.content").String(),
		PromptTokens:     int(gjson.GetBytes(body, "usage.prompt_tokens").Int()),
		CompletionTokens: int(gjson.GetBytes(body, "usage.completion_tokens").Int()),
	}
}

// apiErrorDetail prefers the structured error message when the body carries
// one, falling back to a trimmed body snippet.
func apiErrorDetail(status int, body []byte) string {
	if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
		return fmt.Sprintf("HTTP %d: %s", status, msg)
	}
	if msg := gjson.GetBytes(body, "error").String(); msg != "" {
		return fmt.Sprintf("HTTP %d: %s", status, msg)
	}
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > maxErrorDetailBytes {
		snippet = snippet[:maxErrorDetailBytes]
	}
	if snippet == "" {
		return fmt.Sprintf("HTTP %d", status)
	}
	return fmt.Sprintf("HTTP %d: %s", status, snippet)
}

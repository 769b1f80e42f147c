package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/promptfire/internal/adapter"
	"github.com/torosent/promptfire/internal/tracing"
)

// ollamaClient speaks the Ollama generate API on a local or remote server.
type ollamaClient struct {
	client  *http.Client
	baseURL string
	model   string
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

func newOllamaClient(baseURL, model string, timeout time.Duration) *ollamaClient {
	return &ollamaClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
	}
}

func (c *ollamaClient) Backend() string { return "ollama" }
func (c *ollamaClient) Model() string   { return c.model }
func (c *ollamaClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *ollamaClient) RunPrompt(ctx context.Context, prompt string) adapter.Outcome {
	payload, err := json.Marshal(generateRequest{Model: c.model, Prompt: prompt, Stream: false})
	if err != nil {
		return adapter.Failure(adapter.ErrorKindMalformedRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return adapter.Failure(adapter.ErrorKindMalformedRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
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
		Completion:       gjson.GetBytes(body, "response").String(),
		PromptTokens:     int(gjson.GetBytes(body, "prompt_eval_count").Int()),
		CompletionTokens: int(gjson.GetBytes(body, "eval_count").Int()),
	}
}

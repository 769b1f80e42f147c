package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/torosent/promptfire/internal/adapter"
)

// mockClient simulates a backend with configurable latency and error rate.
// A fixed seed makes latencies, failures, and token counts reproducible.
type mockClient struct {
	model     string
	latency   time.Duration
	errorRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

// Transient kinds only: the mock never produces fatal errors on its own, so
// injected failures cannot trip the consecutive-fatal abort.
var mockErrorKinds = []adapter.ErrorKind{
	adapter.ErrorKindNetwork,
	adapter.ErrorKindTimeout,
	adapter.ErrorKindRateLimit,
}

func newMockClient(model string, latency time.Duration, errorRate float64, seed int64) *mockClient {
	return &mockClient{
		model:     model,
		latency:   latency,
		errorRate: errorRate,
		rnd:       rand.New(rand.NewSource(seed)),
	}
}

func (c *mockClient) Backend() string { return "mock" }
func (c *mockClient) Model() string   { return c.model }
func (c *mockClient) Close() error    { return nil }

func (c *mockClient) RunPrompt(ctx context.Context, prompt string) adapter.Outcome {
	delay, failed, kind, completionTokens := c.draw()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return adapter.Failure(adapter.ClassifyError(ctx.Err()), ctx.Err().Error())
		}
	}

	if failed {
		return adapter.Failure(kind, fmt.Sprintf("simulated %s", kind))
	}

	return adapter.Outcome{
		Success:          true,
		Completion:       fmt.Sprintf("mock completion from %s", c.model),
		PromptTokens:     len(prompt)/4 + 1,
		CompletionTokens: completionTokens,
	}
}

// draw consumes randomness under the lock so concurrent workers observe a
// deterministic sequence for a given seed.
func (c *mockClient) draw() (delay time.Duration, failed bool, kind adapter.ErrorKind, completionTokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latency > 0 {
		// Uniform jitter between 0.5x and 1.5x the configured mean.
		delay = c.latency/2 + time.Duration(c.rnd.Int63n(int64(c.latency)))
	}
	if c.errorRate > 0 && c.rnd.Float64() < c.errorRate {
		failed = true
		kind = mockErrorKinds[c.rnd.Intn(len(mockErrorKinds))]
	}
	completionTokens = 40 + c.rnd.Intn(81)
	return delay, failed, kind, completionTokens
}

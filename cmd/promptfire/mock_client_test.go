package main

import (
	"context"
	"testing"
	"time"

	"github.com/torosent/promptfire/internal/adapter"
)

func TestMockClientDeterministicWithSeed(t *testing.T) {
	first := newMockClient("demo", time.Millisecond, 0.5, 99)
	second := newMockClient("demo", time.Millisecond, 0.5, 99)

	for i := 0; i < 20; i++ {
		a := first.RunPrompt(context.Background(), "What is Go?")
		b := second.RunPrompt(context.Background(), "What is Go?")
		if a.Success != b.Success || a.ErrorKind != b.ErrorKind || a.CompletionTokens != b.CompletionTokens {
			t.Fatalf("draw %d diverged: %+v vs %+v", i, a, b)
		}
	}
}

func TestMockClientSuccessTokens(t *testing.T) {
	client := newMockClient("demo", 0, 0, 1)
	out := client.RunPrompt(context.Background(), "Explain the difference between a goroutine and a thread.")
	if !out.Success {
		t.Fatalf("expected success with zero error rate, got %+v", out)
	}
	if out.PromptTokens == 0 || out.CompletionTokens == 0 {
		t.Errorf("expected nonzero token counts, got %+v", out)
	}
	if out.Completion == "" {
		t.Error("expected a completion string")
	}
}

func TestMockClientAlwaysFails(t *testing.T) {
	client := newMockClient("demo", 0, 1.0, 5)
	out := client.RunPrompt(context.Background(), "hello")
	if out.Success {
		t.Fatal("expected failure with error rate 1.0")
	}
	if out.ErrorKind.Fatal() {
		t.Errorf("mock failures must be transient, got %s", out.ErrorKind)
	}
}

func TestMockClientHonorsCancellation(t *testing.T) {
	client := newMockClient("demo", time.Minute, 0, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	out := client.RunPrompt(ctx, "hello")
	if out.Success {
		t.Fatal("expected failure on cancelled context")
	}
	if out.ErrorKind != adapter.ErrorKindTimeout {
		t.Errorf("expected timeout kind, got %s", out.ErrorKind)
	}
}

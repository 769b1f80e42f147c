package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := *Defaults()
	cfg.Model = "mock-model"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults with a model to validate: %v", err)
	}
}

func TestValidateRequiresModel(t *testing.T) {
	cfg := validConfig()
	cfg.Model = "  "
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if !containsIssue(verr.Issues(), "model is required") {
		t.Fatalf("missing model issue: %v", verr.Issues())
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := validConfig()
	cfg.Backend = "bedrock"
	cfg.Requests = 0
	cfg.Concurrency = 0
	cfg.MockErrorRate = 1.5
	cfg.OutputFormat = "xml"
	cfg.BudgetTier = "unlimited"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected a validation error")
	}
	var verr ValidationError
	if !asValidationError(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Issues()) < 6 {
		t.Fatalf("expected all issues collected, got %v", verr.Issues())
	}
}

func TestValidateConcurrencyBoundedByRequests(t *testing.T) {
	cfg := validConfig()
	cfg.Requests = 5
	cfg.Concurrency = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected concurrency > requests to be rejected")
	}
	cfg.Concurrency = 5
	if err := cfg.Validate(); err != nil {
		t.Fatalf("concurrency == requests should be fine: %v", err)
	}
}

func TestValidateCustomPromptSkipsCategoryCheck(t *testing.T) {
	cfg := validConfig()
	cfg.PromptType = "not-a-category"
	cfg.CustomPrompt = "say hi"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("custom prompt should bypass the category check: %v", err)
	}
}

func TestValidateTracing(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing.SampleRate = 2.0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected sample rate above 1.0 to be rejected")
	}
	cfg.Tracing.SampleRate = 0.5
	cfg.Tracing.Protocol = "udp"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected unknown OTLP protocol to be rejected")
	}
}

func TestValidateNegativeDurations(t *testing.T) {
	cfg := validConfig()
	cfg.Timeout = -time.Second
	cfg.MockLatency = -time.Millisecond
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected negative durations to be rejected")
	}
	if !strings.Contains(err.Error(), "timeout") || !strings.Contains(err.Error(), "mock-latency") {
		t.Fatalf("unexpected issues: %v", err)
	}
}

func asValidationError(err error, target *ValidationError) bool {
	verr, ok := err.(ValidationError)
	if ok {
		*target = verr
	}
	return ok
}

func containsIssue(issues []string, want string) bool {
	for _, issue := range issues {
		if strings.Contains(issue, want) {
			return true
		}
	}
	return false
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader().Load([]string{"--model", "mock-model"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendMock {
		t.Errorf("expected mock backend default, got %s", cfg.Backend)
	}
	if cfg.Requests != 10 || cfg.Concurrency != 1 {
		t.Errorf("unexpected load defaults: requests=%d concurrency=%d", cfg.Requests, cfg.Concurrency)
	}
	if cfg.Timeout != 60*time.Second {
		t.Errorf("unexpected timeout default %s", cfg.Timeout)
	}
	if cfg.BudgetTier != "development" {
		t.Errorf("unexpected tier default %s", cfg.BudgetTier)
	}
	if cfg.TestName != "mock_short_qa" {
		t.Errorf("expected derived test name, got %q", cfg.TestName)
	}
}

func TestLoadFlagOverrides(t *testing.T) {
	cfg, err := NewLoader().Load([]string{
		"-b", "openai",
		"-m", "gpt-4",
		"-p", "code_generation",
		"-n", "50",
		"-c", "8",
		"-r", "5",
		"--budget-tier", "demo",
		"--threshold", "latency:p95 < 2000",
		"--threshold", "failed:rate < 0.05",
	})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendOpenAI || cfg.Model != "gpt-4" {
		t.Errorf("target flags not applied: %s/%s", cfg.Backend, cfg.Model)
	}
	if cfg.Requests != 50 || cfg.Concurrency != 8 || cfg.Rate != 5 {
		t.Errorf("load flags not applied: %+v", cfg)
	}
	if len(cfg.Thresholds) != 2 {
		t.Errorf("expected 2 thresholds, got %v", cfg.Thresholds)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("flag-built config should validate: %v", err)
	}
}

func TestLoadConfigFileWithFlagOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bench.yaml")
	body := `
backend: ollama
model: llama2:7b
prompt_type: long_form
requests: 25
concurrency: 4
budget_tier: production
ollama_url: http://inference:11434
tracing:
  enable: true
  protocol: http
  sample_rate: 0.25
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().Load([]string{"--config", path, "-c", "2"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend != BackendOllama || cfg.Model != "llama2:7b" {
		t.Errorf("file settings not applied: %s/%s", cfg.Backend, cfg.Model)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("flag should override file: concurrency=%d", cfg.Concurrency)
	}
	if cfg.Requests != 25 || cfg.BudgetTier != "production" {
		t.Errorf("file settings lost: %+v", cfg)
	}
	if cfg.OllamaURL != "http://inference:11434" {
		t.Errorf("ollama_url not applied: %s", cfg.OllamaURL)
	}
	if !cfg.Tracing.Enable || cfg.Tracing.Protocol != "http" || cfg.Tracing.SampleRate != 0.25 {
		t.Errorf("tracing settings not applied: %+v", cfg.Tracing)
	}
}

func TestLoadHelpRequested(t *testing.T) {
	_, err := NewLoader().Load([]string{"--help"})
	if !errors.Is(err, ErrHelpRequested) {
		t.Fatalf("expected ErrHelpRequested, got %v", err)
	}
}

func TestLoadRejectsUnknownFlag(t *testing.T) {
	if _, err := NewLoader().Load([]string{"--does-not-exist"}); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := NewLoader().Load([]string{"--config", "/nonexistent/bench.yaml"}); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

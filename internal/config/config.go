package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/torosent/promptfire/internal/cost"
	"github.com/torosent/promptfire/internal/prompt"
)

type Backend string

const (
	BackendOpenAI Backend = "openai"
	BackendOllama Backend = "ollama"
	BackendMock   Backend = "mock"
)

// Config is the fully resolved run configuration: file settings with flag
// overrides applied.
type Config struct {
	Backend      Backend       `mapstructure:"backend" json:"backend"`
	Model        string        `mapstructure:"model" json:"model"`
	PromptType   string        `mapstructure:"prompt_type" json:"promptType"`
	CustomPrompt string        `mapstructure:"custom_prompt" json:"customPrompt,omitempty"`
	Requests     int           `mapstructure:"requests" json:"requests"`
	Concurrency  int           `mapstructure:"concurrency" json:"concurrency"`
	Rate         int           `mapstructure:"rate" json:"rate"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`

	BudgetTier  string  `mapstructure:"budget_tier" json:"budgetTier"`
	MaxCost     float64 `mapstructure:"max_cost" json:"maxCost,omitempty"`
	PricingFile string  `mapstructure:"pricing_file" json:"pricingFile,omitempty"`
	HistoryFile string  `mapstructure:"history_file" json:"historyFile,omitempty"`

	TestName     string   `mapstructure:"test_name" json:"testName"`
	OutputFormat string   `mapstructure:"output_format" json:"outputFormat"`
	OutputDir    string   `mapstructure:"output_dir" json:"outputDir"`
	NoSave       bool     `mapstructure:"no_save" json:"noSave,omitempty"`
	JSONOutput   bool     `mapstructure:"json_output" json:"jsonOutput,omitempty"`
	LogLevel     string   `mapstructure:"log_level" json:"logLevel"`
	Thresholds   []string `mapstructure:"thresholds" json:"thresholds,omitempty"`

	MetricsListen   string `mapstructure:"metrics_listen" json:"metricsListen,omitempty"`
	ShowMetrics     bool   `mapstructure:"show_metrics" json:"showMetrics,omitempty"`
	CostSummary     bool   `mapstructure:"cost_summary" json:"costSummary,omitempty"`
	CostSummaryDays int    `mapstructure:"cost_summary_days" json:"costSummaryDays,omitempty"`

	Seed          int64         `mapstructure:"seed" json:"seed,omitempty"`
	OllamaURL     string        `mapstructure:"ollama_url" json:"ollamaURL,omitempty"`
	MockLatency   time.Duration `mapstructure:"mock_latency" json:"mockLatency,omitempty"`
	MockErrorRate float64       `mapstructure:"mock_error_rate" json:"mockErrorRate,omitempty"`

	Tracing TracingConfig `mapstructure:"tracing" json:"tracing,omitempty"`

	ConfigFile string `mapstructure:"-" json:"-"`
}

// TracingConfig controls OTLP span export.
type TracingConfig struct {
	Enable      bool    `mapstructure:"enable" json:"enable,omitempty"`
	ServiceName string  `mapstructure:"service_name" json:"serviceName,omitempty"`
	Endpoint    string  `mapstructure:"endpoint" json:"endpoint,omitempty"`
	Protocol    string  `mapstructure:"protocol" json:"protocol,omitempty"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure" json:"insecure,omitempty"`
	SampleRate  float64 `mapstructure:"sample_rate" json:"sampleRate,omitempty"`
}

// Enabled reports whether span export was requested.
func (t TracingConfig) Enabled() bool {
	return t.Enable
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	switch c.Backend {
	case BackendOpenAI, BackendOllama, BackendMock:
	case "":
		issues = append(issues, "backend is required (openai, ollama, or mock)")
	default:
		issues = append(issues, fmt.Sprintf("backend %q is not supported (openai, ollama, or mock)", c.Backend))
	}

	if strings.TrimSpace(c.Model) == "" {
		issues = append(issues, "model is required")
	}

	if c.CustomPrompt == "" && !prompt.Category(c.PromptType).Valid() {
		issues = append(issues, fmt.Sprintf("prompt type %q is not supported (short_qa, long_form, or code_generation)", c.PromptType))
	}

	if c.Requests < 1 {
		issues = append(issues, "requests must be >= 1")
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Requests >= 1 && c.Concurrency > c.Requests {
		issues = append(issues, "concurrency must not exceed requests")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}

	if _, err := cost.TierByName(c.BudgetTier); err != nil {
		issues = append(issues, err.Error())
	}
	if c.MaxCost < 0 {
		issues = append(issues, "max-cost must be >= 0")
	}
	if c.CostSummaryDays < 1 {
		issues = append(issues, "cost-summary-days must be >= 1")
	}

	switch c.OutputFormat {
	case "json", "csv":
	default:
		issues = append(issues, fmt.Sprintf("output format %q is not supported (json or csv)", c.OutputFormat))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log level %q is not supported (debug, info, warn, or error)", c.LogLevel))
	}

	if c.MockErrorRate < 0 || c.MockErrorRate > 1 {
		issues = append(issues, "mock-error-rate must be between 0.0 and 1.0")
	}
	if c.MockLatency < 0 {
		issues = append(issues, "mock-latency must be >= 0")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample_rate must be between 0.0 and 1.0")
	}
	switch strings.ToLower(c.Tracing.Protocol) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (grpc or http)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

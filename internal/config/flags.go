package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "promptfire",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Target flags
	flags.StringP("backend", "b", "mock", "Backend to test: 'openai', 'ollama', or 'mock'")
	flags.StringP("model", "m", "", "Model name to benchmark (e.g. gpt-4, llama2:7b)")
	flags.StringP("prompt-type", "p", "short_qa", "Prompt category: 'short_qa', 'long_form', or 'code_generation'")
	flags.String("custom-prompt", "", "Use this prompt verbatim instead of a generated one")

	// Load control flags
	flags.IntP("requests", "n", 10, "Total number of requests to send")
	flags.IntP("concurrency", "c", 1, "Number of concurrent workers")
	flags.IntP("rate", "r", 0, "Requests per second limit (0 means unlimited)")
	flags.Duration("timeout", 60*time.Second, "Per-request timeout")

	// Budget flags
	flags.String("budget-tier", "development", "Budget tier: 'development', 'demo', or 'production'")
	flags.Float64("max-cost", 0, "Abort the run once it has spent this much (0 uses the tier limit only)")
	flags.String("pricing-file", "", "Path to a YAML file overriding the built-in model pricing")
	flags.String("history-file", "", "Path to the cost history file (default ~/.promptfire/cost_history.jsonl)")

	// Output flags
	flags.String("test-name", "", "Name for the run, used in the results filename")
	flags.String("output-format", "json", "Results file format: 'json' or 'csv'")
	flags.StringP("output-dir", "o", "results", "Directory for results files")
	flags.Bool("no-save", false, "Do not write a results file")
	flags.Bool("json-output", false, "Emit the report as JSON on stdout")
	flags.String("log-level", "info", "Log level: debug, info, warn, or error")
	flags.StringSlice("threshold", nil, "Performance thresholds (repeatable, e.g. 'latency:p95 < 2000')")

	// Metrics flags
	flags.String("metrics-listen", "", "Serve Prometheus metrics on this address during the run (e.g. :9090)")
	flags.Bool("show-metrics", false, "Dump Prometheus metrics to stdout after the run")
	flags.Bool("cost-summary", false, "Print a spending summary from the cost history and exit")
	flags.Int("cost-summary-days", 30, "Trailing window for --cost-summary")

	// Backend tuning flags
	flags.Int64("seed", 0, "Seed for prompt selection and the mock backend (0 uses the clock)")
	flags.String("ollama-url", "http://localhost:11434", "Ollama server base URL")
	flags.Duration("mock-latency", 200*time.Millisecond, "Mean simulated latency for the mock backend")
	flags.Float64("mock-error-rate", 0, "Simulated failure rate for the mock backend (0.0 to 1.0)")

	// Tracing flags
	flags.Bool("trace", false, "Export request spans via OTLP")
	flags.String("trace-endpoint", "", "OTLP endpoint (defaults to OTEL_EXPORTER_OTLP_ENDPOINT)")
	flags.String("trace-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.Bool("trace-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Float64("trace-sample-rate", 1.0, "Span sampling ratio (0.0 to 1.0)")

	flags.String("config", "", "Path to configuration file (JSON or YAML)")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("backend") {
		val, err := fs.GetString("backend")
		if err != nil {
			return err
		}
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("model") {
		val, err := fs.GetString("model")
		if err != nil {
			return err
		}
		cfg.Model = strings.TrimSpace(val)
	}
	if fs.Changed("prompt-type") {
		val, err := fs.GetString("prompt-type")
		if err != nil {
			return err
		}
		cfg.PromptType = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("custom-prompt") {
		val, err := fs.GetString("custom-prompt")
		if err != nil {
			return err
		}
		cfg.CustomPrompt = val
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Requests = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("budget-tier") {
		val, err := fs.GetString("budget-tier")
		if err != nil {
			return err
		}
		cfg.BudgetTier = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("max-cost") {
		val, err := fs.GetFloat64("max-cost")
		if err != nil {
			return err
		}
		cfg.MaxCost = val
	}
	if fs.Changed("pricing-file") {
		val, err := fs.GetString("pricing-file")
		if err != nil {
			return err
		}
		cfg.PricingFile = strings.TrimSpace(val)
	}
	if fs.Changed("history-file") {
		val, err := fs.GetString("history-file")
		if err != nil {
			return err
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}
	if fs.Changed("test-name") {
		val, err := fs.GetString("test-name")
		if err != nil {
			return err
		}
		cfg.TestName = strings.TrimSpace(val)
	}
	if fs.Changed("output-format") {
		val, err := fs.GetString("output-format")
		if err != nil {
			return err
		}
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("output-dir") {
		val, err := fs.GetString("output-dir")
		if err != nil {
			return err
		}
		cfg.OutputDir = strings.TrimSpace(val)
	}
	if fs.Changed("no-save") {
		val, err := fs.GetBool("no-save")
		if err != nil {
			return err
		}
		cfg.NoSave = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("metrics-listen") {
		val, err := fs.GetString("metrics-listen")
		if err != nil {
			return err
		}
		cfg.MetricsListen = strings.TrimSpace(val)
	}
	if fs.Changed("show-metrics") {
		val, err := fs.GetBool("show-metrics")
		if err != nil {
			return err
		}
		cfg.ShowMetrics = val
	}
	if fs.Changed("cost-summary") {
		val, err := fs.GetBool("cost-summary")
		if err != nil {
			return err
		}
		cfg.CostSummary = val
	}
	if fs.Changed("cost-summary-days") {
		val, err := fs.GetInt("cost-summary-days")
		if err != nil {
			return err
		}
		cfg.CostSummaryDays = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("ollama-url") {
		val, err := fs.GetString("ollama-url")
		if err != nil {
			return err
		}
		cfg.OllamaURL = strings.TrimSpace(val)
	}
	if fs.Changed("mock-latency") {
		val, err := fs.GetDuration("mock-latency")
		if err != nil {
			return err
		}
		cfg.MockLatency = val
	}
	if fs.Changed("mock-error-rate") {
		val, err := fs.GetFloat64("mock-error-rate")
		if err != nil {
			return err
		}
		cfg.MockErrorRate = val
	}
	if fs.Changed("trace") {
		val, err := fs.GetBool("trace")
		if err != nil {
			return err
		}
		cfg.Tracing.Enable = val
	}
	if fs.Changed("trace-endpoint") {
		val, err := fs.GetString("trace-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("trace-protocol") {
		val, err := fs.GetString("trace-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("trace-insecure") {
		val, err := fs.GetBool("trace-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("trace-sample-rate") {
		val, err := fs.GetFloat64("trace-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}

	return nil
}

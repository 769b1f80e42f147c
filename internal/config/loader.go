package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Defaults returns the baseline configuration before file settings and flag
// overrides are applied.
func Defaults() *Config {
	return &Config{
		Backend:         BackendMock,
		PromptType:      "short_qa",
		Requests:        10,
		Concurrency:     1,
		Timeout:         60 * time.Second,
		BudgetTier:      "development",
		OutputFormat:    "json",
		OutputDir:       "results",
		LogLevel:        "info",
		CostSummaryDays: 30,
		OllamaURL:       "http://localhost:11434",
		MockLatency:     200 * time.Millisecond,
		Tracing: TracingConfig{
			Protocol:   "grpc",
			SampleRate: 1.0,
		},
	}
}

// Load parses command-line arguments and configuration files to produce a Config.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	// Without arguments there is nothing to benchmark, so show usage instead
	// of failing validation on the missing model.
	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}
	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := Defaults()
	cfg.ConfigFile = configPath

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}

	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.TestName = strings.TrimSpace(cfg.TestName)
	if cfg.TestName == "" {
		cfg.TestName = string(cfg.Backend) + "_" + cfg.PromptType
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config struct.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "backend"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("backend", err)
		}
		cfg.Backend = Backend(strings.ToLower(strings.TrimSpace(val)))
	}

	if raw, ok := lookupSetting(settings, "model"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("model", err)
		}
		cfg.Model = val
	}

	if raw, ok := lookupSetting(settings, "prompttype", "prompt_type", "prompt-type"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("promptType", err)
		}
		cfg.PromptType = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "customprompt", "custom_prompt", "custom-prompt"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("customPrompt", err)
		}
		cfg.CustomPrompt = val
	}

	if raw, ok := lookupSetting(settings, "requests"); ok {
		val, err := asInt(raw)
		if err != nil {
			return errField("requests", err)
		}
		cfg.Requests = val
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return errField("concurrency", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return errField("rate", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return errField("timeout", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "budgettier", "budget_tier", "budget-tier"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("budgetTier", err)
		}
		cfg.BudgetTier = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "maxcost", "max_cost", "max-cost"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return errField("maxCost", err)
		}
		cfg.MaxCost = val
	}

	if raw, ok := lookupSetting(settings, "pricingfile", "pricing_file", "pricing-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("pricingFile", err)
		}
		cfg.PricingFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "historyfile", "history_file", "history-file"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("historyFile", err)
		}
		cfg.HistoryFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "testname", "test_name", "test-name"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("testName", err)
		}
		cfg.TestName = val
	}

	if raw, ok := lookupSetting(settings, "outputformat", "output_format", "output-format"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("outputFormat", err)
		}
		cfg.OutputFormat = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "outputdir", "output_dir", "output-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("outputDir", err)
		}
		cfg.OutputDir = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "nosave", "no_save", "no-save"); ok {
		val, err := asBool(raw)
		if err != nil {
			return errField("noSave", err)
		}
		cfg.NoSave = val
	}

	if raw, ok := lookupSetting(settings, "jsonoutput", "json_output", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return errField("jsonOutput", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "loglevel", "log_level", "log-level"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("logLevel", err)
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}

	if raw, ok := lookupSetting(settings, "thresholds"); ok {
		val, err := asStringSlice(raw)
		if err != nil {
			return errField("thresholds", err)
		}
		cfg.Thresholds = val
	}

	if raw, ok := lookupSetting(settings, "metricslisten", "metrics_listen", "metrics-listen"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("metricsListen", err)
		}
		cfg.MetricsListen = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "showmetrics", "show_metrics", "show-metrics"); ok {
		val, err := asBool(raw)
		if err != nil {
			return errField("showMetrics", err)
		}
		cfg.ShowMetrics = val
	}

	if raw, ok := lookupSetting(settings, "costsummarydays", "cost_summary_days", "cost-summary-days"); ok {
		val, err := asInt(raw)
		if err != nil {
			return errField("costSummaryDays", err)
		}
		cfg.CostSummaryDays = val
	}

	if raw, ok := lookupSetting(settings, "seed"); ok {
		val, err := asInt64(raw)
		if err != nil {
			return errField("seed", err)
		}
		cfg.Seed = val
	}

	if raw, ok := lookupSetting(settings, "ollamaurl", "ollama_url", "ollama-url"); ok {
		val, err := asString(raw)
		if err != nil {
			return errField("ollamaURL", err)
		}
		cfg.OllamaURL = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "mocklatency", "mock_latency", "mock-latency"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return errField("mockLatency", err)
		}
		cfg.MockLatency = dur
	}

	if raw, ok := lookupSetting(settings, "mockerrorrate", "mock_error_rate", "mock-error-rate"); ok {
		val, err := asFloat64(raw)
		if err != nil {
			return errField("mockErrorRate", err)
		}
		cfg.MockErrorRate = val
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return errField("tracing", err)
		}
	}

	return nil
}

func applyTracingSettings(tc *TracingConfig, raw interface{}) error {
	settings, err := toStringKeyMap(raw)
	if err != nil {
		return err
	}

	if v, ok := lookupSetting(settings, "enable", "enabled"); ok {
		val, err := asBool(v)
		if err != nil {
			return errField("enable", err)
		}
		tc.Enable = val
	}
	if v, ok := lookupSetting(settings, "servicename", "service_name", "service-name"); ok {
		val, err := asString(v)
		if err != nil {
			return errField("service_name", err)
		}
		tc.ServiceName = strings.TrimSpace(val)
	}
	if v, ok := lookupSetting(settings, "endpoint"); ok {
		val, err := asString(v)
		if err != nil {
			return errField("endpoint", err)
		}
		tc.Endpoint = strings.TrimSpace(val)
	}
	if v, ok := lookupSetting(settings, "protocol"); ok {
		val, err := asString(v)
		if err != nil {
			return errField("protocol", err)
		}
		tc.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if v, ok := lookupSetting(settings, "insecure"); ok {
		val, err := asBool(v)
		if err != nil {
			return errField("insecure", err)
		}
		tc.Insecure = val
	}
	if v, ok := lookupSetting(settings, "samplerate", "sample_rate", "sample-rate"); ok {
		val, err := asFloat64(v)
		if err != nil {
			return errField("sample_rate", err)
		}
		tc.SampleRate = val
	}
	return nil
}

func errField(name string, err error) error {
	return fmt.Errorf("%s: %w", name, err)
}

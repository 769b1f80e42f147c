package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/torosent/promptfire/internal/config"
	"github.com/torosent/promptfire/internal/cost"
	"github.com/torosent/promptfire/internal/dispatcher"
	"github.com/torosent/promptfire/internal/output"
	"github.com/torosent/promptfire/internal/prompt"
	"github.com/torosent/promptfire/internal/resultstore"
	"github.com/torosent/promptfire/internal/stats"
	"github.com/torosent/promptfire/internal/telemetry"
	"github.com/torosent/promptfire/internal/threshold"
	"github.com/torosent/promptfire/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)

	// Threshold strings are part of the configuration surface; reject them
	// before any request is dispatched.
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	table := cost.DefaultTable()
	if cfg.PricingFile != "" {
		if err := table.LoadFile(cfg.PricingFile); err != nil {
			return err
		}
	}

	historyPath, err := resolveHistoryPath(cfg.HistoryFile)
	if err != nil {
		return err
	}
	history, err := cost.OpenHistory(historyPath)
	if err != nil {
		return err
	}

	if cfg.CostSummary {
		report, err := history.Summarize(cfg.CostSummaryDays, time.Now().UTC())
		if err != nil {
			return err
		}
		output.PrintCostSummary(os.Stdout, report)
		return nil
	}

	tier, err := cost.TierByName(cfg.BudgetTier)
	if err != nil {
		return err
	}
	tracker := cost.NewTracker(tier, table, cost.WithHistory(history))

	if ok, reason := tracker.CanAffordRun(string(cfg.Backend), cfg.Model, cfg.Requests); !ok {
		return fmt.Errorf("run exceeds budget: %s", reason)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	exporter := telemetry.NewExporter()
	if cfg.MetricsListen != "" {
		stopMetrics := serveMetrics(cfg.MetricsListen, exporter, logger)
		defer stopMetrics()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	client, err := newClientFromConfig(cfg, seed)
	if err != nil {
		return err
	}
	defer client.Close()

	aggregator := stats.NewAggregator()

	d, err := dispatcher.New(dispatcher.Options{
		TestName:      cfg.TestName,
		Requests:      cfg.Requests,
		Concurrency:   cfg.Concurrency,
		RatePerSecond: cfg.Rate,
		MaxCost:       cfg.MaxCost,
		PromptType:    prompt.Category(cfg.PromptType),
		CustomPrompt:  cfg.CustomPrompt,
		Client:        client,
		Prompts:       prompt.NewGenerator(seed),
		Tracker:       tracker,
		Aggregator:    aggregator,
		Exporter:      exporter,
		Tracer:        provider.Tracer(),
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(aggregator, cfg.Requests, progressInterval, os.Stdout)
		progress.Start()
	}

	summary := d.Execute(ctx)

	if progress != nil {
		progress.Stop()
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(os.Stdout, summary, tracker.State()); err != nil {
			return err
		}
	} else {
		output.PrintReport(os.Stdout, summary, tracker.State())
	}

	results := threshold.NewEvaluator(thresholds).Evaluate(summary)
	if len(results) > 0 && !cfg.JSONOutput {
		fmt.Fprintln(os.Stdout, "Thresholds:")
		for _, r := range results {
			fmt.Fprintf(os.Stdout, "  %s\n", r.Message)
		}
	}

	if !cfg.NoSave {
		if err := saveResults(cfg, summary, logger); err != nil {
			return err
		}
	}

	if cfg.ShowMetrics {
		text, err := exporter.Render()
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout)
		fmt.Fprint(os.Stdout, text)
	}

	return exitError(summary, results)
}

// exitError maps the finished run to the process exit contract: any failed
// attempt, failed threshold, or early termination is a non-zero exit.
func exitError(s *stats.Summary, results []threshold.Result) error {
	if !s.Completed() {
		return fmt.Errorf("run ended with status %s", s.Terminal)
	}
	failed := 0
	for _, r := range results {
		if !r.Pass {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	if s.Failures > 0 {
		return fmt.Errorf("%d requests failed", s.Failures)
	}
	return nil
}

func saveResults(cfg *config.Config, summary *stats.Summary, logger *slog.Logger) error {
	store, err := resultstore.NewStore(cfg.OutputDir)
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	doc := resultstore.FromSummary(summary, cfgJSON)
	path, err := store.Save(doc)
	if err != nil {
		return err
	}
	logger.Info("results saved", "path", path)

	if cfg.OutputFormat == "csv" {
		csvPath, err := store.SaveCSV(doc, path)
		if err != nil {
			return err
		}
		logger.Info("results saved", "path", csvPath)
	}
	return nil
}

// serveMetrics exposes the run's Prometheus registry on addr until the
// returned stop function is called.
func serveMetrics(addr string, exporter *telemetry.Exporter, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", exporter.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}
}

func resolveHistoryPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}
	return filepath.Join(home, ".promptfire", "cost_history.jsonl"), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

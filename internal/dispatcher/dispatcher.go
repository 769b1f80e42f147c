// Package dispatcher drives a benchmark run: it schedules attempts through a
// rate limiter and budget preflight, fans them out to a fixed worker pool, and
// finalizes the run summary no matter how the run ends.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/torosent/promptfire/internal/cost"
	"github.com/torosent/promptfire/internal/stats"
	"github.com/torosent/promptfire/internal/tracing"
)

// FatalAbortThreshold is how many consecutive fatal errors end the run.
// Authentication and malformed-request errors will not fix themselves, so
// there is no point burning budget on the remaining attempts.
const FatalAbortThreshold = 3

// Dispatcher coordinates one benchmark run.
type Dispatcher struct {
	opt Options
}

type job struct {
	id     int
	prompt string
}

// New validates the options and builds a Dispatcher.
func New(opt Options) (*Dispatcher, error) {
	opt.normalize()
	if opt.Client == nil {
		return nil, errors.New("dispatcher: client is required")
	}
	if opt.Prompts == nil {
		return nil, errors.New("dispatcher: prompt generator is required")
	}
	if opt.Tracker == nil {
		return nil, errors.New("dispatcher: cost tracker is required")
	}
	if opt.Aggregator == nil {
		return nil, errors.New("dispatcher: aggregator is required")
	}
	if opt.Requests < 1 {
		return nil, errors.New("dispatcher: requests must be >= 1")
	}
	if opt.Concurrency > opt.Requests {
		return nil, fmt.Errorf("dispatcher: concurrency %d exceeds requests %d", opt.Concurrency, opt.Requests)
	}
	return &Dispatcher{opt: opt}, nil
}

// Execute runs every scheduled attempt and returns the run summary. It always
// returns a summary: cancellation, budget halts, and fatal aborts end
// scheduling but still account for every configured attempt, so successes,
// failures, and skips always add up to the configured request count.
func (d *Dispatcher) Execute(ctx context.Context) *stats.Summary {
	start := time.Now()
	d.opt.Aggregator.Start()

	// schedCtx only gates the scheduler. A fatal abort must stop new
	// dispatches without interrupting attempts already in flight, so workers
	// keep running against the caller's context and drain normally.
	schedCtx, stopScheduling := context.WithCancel(ctx)
	defer stopScheduling()

	backend := d.opt.Client.Backend()
	model := d.opt.Client.Model()
	limiter := d.opt.LimiterFactory(d.opt.RatePerSecond)

	var (
		delivered    int64
		consecFatal  int64
		budgetHalted atomic.Bool
		fatalAborted atomic.Bool
		warnedBudget atomic.Bool
	)

	abort := func() {
		if fatalAborted.CompareAndSwap(false, true) {
			d.opt.Logger.Error("aborting run after consecutive fatal errors",
				"threshold", FatalAbortThreshold)
			stopScheduling()
		}
	}

	jobs := make(chan job)

	// Scheduler: serializes pacing and budget preflight so workers only ever
	// execute attempts that were allowed to spend.
	go func() {
		defer close(jobs)
		for id := 1; id <= d.opt.Requests; id++ {
			if schedCtx.Err() != nil {
				return
			}
			if err := limiter.Wait(schedCtx); err != nil {
				return
			}

			estimate := d.opt.Tracker.EstimateAttempt(backend, model)
			switch d.opt.Tracker.Preflight(estimate) {
			case cost.Deny:
				budgetHalted.Store(true)
				d.opt.Logger.Warn("halting run: daily budget exhausted",
					"spent", d.opt.Tracker.State().SpentToday)
				return
			case cost.Warn:
				if warnedBudget.CompareAndSwap(false, true) {
					d.opt.Logger.Warn("approaching daily budget limit",
						"spent", d.opt.Tracker.State().SpentToday)
				}
			}
			if d.opt.MaxCost > 0 && d.opt.Tracker.State().RunSpent >= d.opt.MaxCost {
				budgetHalted.Store(true)
				d.opt.Logger.Warn("halting run: max-cost reached", "max_cost", d.opt.MaxCost)
				return
			}

			text, err := d.opt.Prompts.Generate(d.opt.PromptType, d.opt.CustomPrompt)
			if err != nil {
				// Config validation keeps this unreachable for known
				// categories; treat it as a halt rather than panic.
				d.opt.Logger.Error("prompt generation failed", "error", err)
				return
			}

			atomic.AddInt64(&delivered, 1)
			select {
			case jobs <- job{id: id, prompt: text}:
			case <-schedCtx.Done():
				atomic.AddInt64(&delivered, -1)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	wg.Add(d.opt.Concurrency)
	for i := 0; i < d.opt.Concurrency; i++ {
		go func() {
			defer wg.Done()
			for jb := range jobs {
				d.runAttempt(ctx, jb, backend, model, &consecFatal, abort)
			}
		}()
	}
	wg.Wait()
	end := time.Now()

	// Every attempt that never reached a worker still gets a record, so the
	// report accounts for the full configured run.
	for id := int(atomic.LoadInt64(&delivered)) + 1; id <= d.opt.Requests; id++ {
		d.opt.Aggregator.Record(stats.Attempt{ID: id, Status: stats.StatusSkipped})
		if d.opt.Exporter != nil {
			d.opt.Exporter.ObserveSkipped(model, string(d.opt.PromptType))
		}
	}

	terminal := stats.TerminalCompleted
	switch {
	case ctx.Err() != nil:
		terminal = stats.TerminalCancelled
	case fatalAborted.Load():
		terminal = stats.TerminalAbortedFatal
	case budgetHalted.Load():
		terminal = stats.TerminalHaltedBudget
	}

	summary := d.opt.Aggregator.Finalize(d.opt.TestName, start, end, terminal)
	return &summary
}

func (d *Dispatcher) runAttempt(ctx context.Context, jb job, backend, model string, consecFatal *int64, abort func()) {
	promptType := string(d.opt.PromptType)
	if d.opt.Exporter != nil {
		d.opt.Exporter.IncActive(model)
		defer d.opt.Exporter.DecActive(model)
	}

	// No per-attempt deadline here: timeouts belong to the client, which owns
	// its transport behavior.
	spanCtx, span := tracing.StartRequestSpan(ctx, d.opt.Tracer, backend, model)

	startedAt := time.Now()
	outcome := d.opt.Client.RunPrompt(spanCtx, jb.prompt)
	endedAt := time.Now()
	latency := endedAt.Sub(startedAt).Seconds()

	att := stats.Attempt{
		ID:               jb.id,
		Prompt:           jb.prompt,
		Start:            startedAt,
		End:              endedAt,
		LatencySeconds:   latency,
		PromptTokens:     outcome.PromptTokens,
		CompletionTokens: outcome.CompletionTokens,
	}

	if outcome.Success {
		amount, unpriced := d.opt.Tracker.Price(backend, model, outcome.PromptTokens, outcome.CompletionTokens)
		if err := d.opt.Tracker.Commit(backend, model, amount); err != nil {
			d.opt.Logger.Warn("recording spend failed", "error", err)
		}
		att.Status = stats.StatusSuccess
		att.Cost = amount
		att.Unpriced = unpriced

		atomic.StoreInt64(consecFatal, 0)
		if d.opt.Exporter != nil {
			d.opt.Exporter.ObserveSuccess(model, promptType, latency, outcome.TotalTokens())
		}
		tracing.EndSpan(span, nil,
			attribute.Int("llm.tokens.prompt", outcome.PromptTokens),
			attribute.Int("llm.tokens.completion", outcome.CompletionTokens),
		)
	} else {
		kind := outcome.ErrorKind
		att.Status = stats.StatusFailure
		att.ErrorKind = string(kind)

		if d.opt.Exporter != nil {
			d.opt.Exporter.ObserveFailure(model, promptType, string(kind), latency)
		}
		tracing.EndSpan(span, fmt.Errorf("%s: %s", kind, outcome.ErrorDetail))

		if kind.Fatal() {
			if atomic.AddInt64(consecFatal, 1) >= FatalAbortThreshold {
				abort()
			}
		} else {
			atomic.StoreInt64(consecFatal, 0)
		}
	}

	d.opt.Aggregator.Record(att)
}

package dispatcher

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/torosent/promptfire/internal/adapter"
	"github.com/torosent/promptfire/internal/cost"
	"github.com/torosent/promptfire/internal/prompt"
	"github.com/torosent/promptfire/internal/stats"
	"github.com/torosent/promptfire/internal/telemetry"
)

// Options configure the Dispatcher.
type Options struct {
	TestName      string
	Requests      int     // total attempts to dispatch (required, >= 1)
	Concurrency   int     // number of worker goroutines
	RatePerSecond int     // request pacing (0 means unlimited)
	MaxCost       float64 // halt once this run has spent this much (0 disables)

	PromptType   prompt.Category
	CustomPrompt string

	Client     adapter.Client      // backend under test (required)
	Prompts    *prompt.Generator   // prompt source (required)
	Tracker    *cost.Tracker       // budget enforcement (required)
	Aggregator *stats.Aggregator   // attempt sink (required)
	Exporter   *telemetry.Exporter // optional Prometheus instruments
	Tracer     trace.Tracer        // optional span source
	Logger     *slog.Logger

	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Tracer == nil {
		o.Tracer = noop.NewTracerProvider().Tracer("promptfire")
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of 1 keeps inter-request spacing even under concurrency.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

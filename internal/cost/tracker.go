package cost

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Decision is the result of a budget preflight check.
type Decision int

const (
	Allow Decision = iota
	Warn
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Warn:
		return "warn"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Tier is a named daily-spend ceiling.
type Tier struct {
	Name          string
	DailyLimit    float64
	TestLimit     float64
	WarnThreshold float64 // fraction of the daily limit, e.g. 0.8
}

var tiers = map[string]Tier{
	"development": {Name: "development", DailyLimit: 5.0, TestLimit: 1.0, WarnThreshold: 0.8},
	"demo":        {Name: "demo", DailyLimit: 25.0, TestLimit: 10.0, WarnThreshold: 0.75},
	"production":  {Name: "production", DailyLimit: 100.0, TestLimit: 50.0, WarnThreshold: 0.9},
}

// TierByName resolves a budget tier by its name.
func TierByName(name string) (Tier, error) {
	t, ok := tiers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Tier{}, fmt.Errorf("unknown budget tier %q (development, demo, or production)", name)
	}
	return t, nil
}

// TierNames lists the known tiers.
func TierNames() []string {
	return []string{"development", "demo", "production"}
}

// Default token estimates for preflight when the real usage is unknown yet.
const (
	EstimatePromptTokens     = 50
	EstimateCompletionTokens = 100
)

// Tracker guards a daily spending ceiling across concurrent workers and
// across process runs (via the history file). All spend mutation goes through
// a single mutex; each commit is atomic.
type Tracker struct {
	mu        sync.Mutex
	tier      Tier
	table     *Table
	spent     float64 // spent today, USD
	lastReset string  // UTC date of the last rollover, YYYY-MM-DD
	runSpent  float64 // spent by the current run
	history   *History
	now       func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithHistory attaches a persistent spend history. Today's spend is seeded
// from the history so the daily ceiling holds across process restarts.
func WithHistory(h *History) Option {
	return func(t *Tracker) { t.history = h }
}

// WithClock injects a clock, used by tests to exercise the UTC rollover.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker for the given tier and pricing table.
func NewTracker(tier Tier, table *Table, opts ...Option) *Tracker {
	t := &Tracker{
		tier:  tier,
		table: table,
		now:   time.Now,
	}
	for _, o := range opts {
		o(t)
	}
	t.lastReset = t.today()
	if t.history != nil {
		t.spent = t.history.SpentOn(t.lastReset)
	}
	return t
}

func (t *Tracker) today() string {
	return t.now().UTC().Format("2006-01-02")
}

// rollover resets the daily counter when the UTC date has changed. Callers
// must hold t.mu. The reset happens strictly before any spend is added on the
// new date.
func (t *Tracker) rollover() {
	today := t.today()
	if today != t.lastReset {
		t.spent = 0
		t.lastReset = today
	}
}

// Preflight checks whether an estimated spend fits the daily budget.
// Deny when it would exceed the limit, Warn when it would cross the warning
// threshold, Allow otherwise.
func (t *Tracker) Preflight(estimated float64) Decision {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	projected := t.spent + estimated
	switch {
	case projected > t.tier.DailyLimit:
		return Deny
	case projected > t.tier.WarnThreshold*t.tier.DailyLimit:
		return Warn
	default:
		return Allow
	}
}

// Commit atomically adds an actual spend and appends it to the history.
func (t *Tracker) Commit(backend, model string, amount float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	t.spent += amount
	t.runSpent += amount
	if t.history != nil {
		return t.history.Append(Entry{
			Date:    t.lastReset,
			Backend: backend,
			Model:   model,
			Cost:    amount,
		})
	}
	return nil
}

// Price exposes the pricing table for attempt costing.
func (t *Tracker) Price(backend, model string, promptTokens, completionTokens int) (float64, bool) {
	return t.table.Price(backend, model, promptTokens, completionTokens)
}

// EstimateAttempt prices one attempt using the default token estimates.
func (t *Tracker) EstimateAttempt(backend, model string) float64 {
	amount, _ := t.table.Price(backend, model, EstimatePromptTokens, EstimateCompletionTokens)
	return amount
}

// CanAffordRun checks a whole planned run against both the per-test limit and
// the daily limit before any attempt is dispatched.
func (t *Tracker) CanAffordRun(backend, model string, requests int) (bool, string) {
	estimated := t.EstimateAttempt(backend, model) * float64(requests)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()

	if estimated > t.tier.TestLimit {
		return false, fmt.Sprintf("estimated run cost $%.4f exceeds the %s tier per-test limit $%.2f",
			estimated, t.tier.Name, t.tier.TestLimit)
	}
	if t.spent+estimated > t.tier.DailyLimit {
		return false, fmt.Sprintf("estimated run cost $%.4f would exceed the daily limit ($%.2f remaining)",
			estimated, t.tier.DailyLimit-t.spent)
	}
	return true, ""
}

// State is a point-in-time view of the budget.
type State struct {
	Tier          string
	DailyLimit    float64
	SpentToday    float64
	RunSpent      float64
	LastResetDate string
	WarnThreshold float64
}

// State returns the current budget state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return State{
		Tier:          t.tier.Name,
		DailyLimit:    t.tier.DailyLimit,
		SpentToday:    t.spent,
		RunSpent:      t.runSpent,
		LastResetDate: t.lastReset,
		WarnThreshold: t.tier.WarnThreshold,
	}
}

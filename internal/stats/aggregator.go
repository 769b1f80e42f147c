package stats

import (
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Aggregator accumulates attempts in a thread-safe manner during a run.
//
// While the run is live, Snapshot serves approximate percentiles from an HDR
// histogram so progress reporting stays cheap. Finalize computes exact
// order-independent statistics from the retained samples after all workers
// have joined.
type Aggregator struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	attempts   []Attempt
	latencies  []float64 // successful attempts only, seconds
	successes  int64
	failures   int64
	skipped    int64
	errorKinds map[string]int
	start      time.Time
}

// Progress is a cheap point-in-time view used by live reporters.
type Progress struct {
	Total       int64
	Successes   int64
	Failures    int64
	Skipped     int64
	RequestsSec float64
	P95Ms       float64
}

func NewAggregator() *Aggregator {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		hist:       h,
		errorKinds: make(map[string]int),
		start:      time.Now(),
	}
}

// Start marks the actual run start time for elapsed-based rates.
func (a *Aggregator) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.start = time.Now()
}

// Record appends one finished attempt. Failures and skips are counted but
// excluded from latency statistics.
func (a *Aggregator) Record(att Attempt) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.attempts = append(a.attempts, att)
	switch att.Status {
	case StatusSuccess:
		a.successes++
		a.latencies = append(a.latencies, att.LatencySeconds)
		us := int64(att.LatencySeconds * 1e6)
		if us < a.hist.LowestTrackableValue() {
			us = a.hist.LowestTrackableValue()
		}
		if us > a.hist.HighestTrackableValue() {
			us = a.hist.HighestTrackableValue()
		}
		_ = a.hist.RecordValue(us)
	case StatusFailure:
		a.failures++
		if att.ErrorKind != "" {
			a.errorKinds[att.ErrorKind]++
		}
	case StatusSkipped:
		a.skipped++
	}
}

// Snapshot returns live counters for progress display.
func (a *Aggregator) Snapshot() Progress {
	a.mu.Lock()
	defer a.mu.Unlock()

	p := Progress{
		Total:     a.successes + a.failures + a.skipped,
		Successes: a.successes,
		Failures:  a.failures,
		Skipped:   a.skipped,
	}
	elapsed := time.Since(a.start)
	completed := a.successes + a.failures
	if elapsed > 0 && completed > 0 {
		p.RequestsSec = float64(completed) / elapsed.Seconds()
	}
	if a.hist.TotalCount() > 0 {
		p.P95Ms = float64(a.hist.ValueAtQuantile(95)) / 1000
	}
	return p
}

// Finalize reduces the accumulated attempts into a Summary. It must be called
// once, after every worker has finished recording.
func (a *Aggregator) Finalize(testName string, start, end time.Time, terminal TerminalStatus) Summary {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := Summary{
		TestName:  testName,
		Start:     start,
		End:       end,
		Duration:  end.Sub(start),
		Successes: int(a.successes),
		Failures:  int(a.failures),
		Skipped:   int(a.skipped),
		Terminal:  terminal,
		Attempts:  append([]Attempt(nil), a.attempts...),
	}
	s.Dispatched = s.Successes + s.Failures + s.Skipped

	completed := s.Successes + s.Failures
	if completed > 0 {
		s.SuccessRate = float64(s.Successes) / float64(completed)
	}
	if s.Duration > 0 && completed > 0 {
		s.RequestsPerSec = float64(completed) / s.Duration.Seconds()
	}

	for _, att := range s.Attempts {
		if att.Status == StatusSuccess {
			s.TotalPromptTokens += att.PromptTokens
			s.TotalCompletionTokens += att.CompletionTokens
		}
		s.TotalCost += att.Cost
		if att.Unpriced {
			s.UnpricedAttempts++
		}
	}
	s.TotalTokens = s.TotalPromptTokens + s.TotalCompletionTokens

	if len(a.errorKinds) > 0 {
		s.Errors = make(map[string]int, len(a.errorKinds))
		for k, v := range a.errorKinds {
			s.Errors[k] = v
		}
	}

	// Latency fields stay nil when no attempt succeeded; consumers must
	// treat that as "no data", not zero.
	if len(a.latencies) > 0 {
		sorted := append([]float64(nil), a.latencies...)
		sort.Float64s(sorted)
		s.Latency = &LatencyStats{
			Min:    sorted[0],
			Max:    sorted[len(sorted)-1],
			Mean:   mean(sorted),
			Median: Percentile(sorted, 0.5),
			P95:    Percentile(sorted, 0.95),
		}
	}
	return s
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Percentile computes a percentile from an ascending-sorted sample using
// linear interpolation between closest ranks: rank = p*(n-1), interpolated
// between the floor and ceil indices. p is a fraction in [0, 1].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}

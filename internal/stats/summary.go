package stats

import "time"

// LatencyStats holds latency aggregates over successful attempts, in seconds.
type LatencyStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P95    float64 `json:"p95"`
}

// Summary is the derived, order-independent aggregate over a run's attempts.
// It is produced only by Aggregator.Finalize, never hand-constructed.
type Summary struct {
	TestName              string
	Start                 time.Time
	End                   time.Time
	Duration              time.Duration
	Dispatched            int
	Successes             int
	Failures              int
	Skipped               int
	SuccessRate           float64
	Latency               *LatencyStats // nil when no attempt succeeded
	TotalPromptTokens     int
	TotalCompletionTokens int
	TotalTokens           int
	TotalCost             float64
	UnpricedAttempts      int
	RequestsPerSec        float64
	Errors                map[string]int
	Terminal              TerminalStatus
	Attempts              []Attempt
}

// Completed reports whether the run finished without abort, halt, or cancel.
func (s Summary) Completed() bool {
	return s.Terminal == TerminalCompleted
}

// AvgLatency returns the mean latency in seconds, or 0 when there is no data.
func (s Summary) AvgLatency() float64 {
	if s.Latency == nil {
		return 0
	}
	return s.Latency.Mean
}

// P95Latency returns the 95th percentile latency in seconds, or 0 when there
// is no data.
func (s Summary) P95Latency() float64 {
	if s.Latency == nil {
		return 0
	}
	return s.Latency.P95
}

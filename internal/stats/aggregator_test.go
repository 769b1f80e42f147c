package stats_test

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/torosent/promptfire/internal/stats"
)

func successAttempt(id int, latency float64) stats.Attempt {
	return stats.Attempt{
		ID:               id,
		LatencySeconds:   latency,
		PromptTokens:     10,
		CompletionTokens: 20,
		Status:           stats.StatusSuccess,
	}
}

func TestPercentileLinearInterpolation(t *testing.T) {
	// [1,2,3,4,5], p95: rank = 0.95*4 = 3.8, between index 3 (4) and 4 (5) = 4.8.
	sorted := []float64{1, 2, 3, 4, 5}
	got := stats.Percentile(sorted, 0.95)
	if math.Abs(got-4.8) > 1e-9 {
		t.Fatalf("expected p95 4.8, got %v", got)
	}
	if got := stats.Percentile(sorted, 0.5); got != 3 {
		t.Errorf("expected median 3, got %v", got)
	}
	if got := stats.Percentile(sorted, 0); got != 1 {
		t.Errorf("expected p0 1, got %v", got)
	}
	if got := stats.Percentile(sorted, 1); got != 5 {
		t.Errorf("expected p100 5, got %v", got)
	}
	if got := stats.Percentile([]float64{7}, 0.95); got != 7 {
		t.Errorf("single sample: expected 7, got %v", got)
	}
}

func TestFinalizeBasicCounts(t *testing.T) {
	a := stats.NewAggregator()
	for i, lat := range []float64{1, 2, 3, 4, 5} {
		a.Record(successAttempt(i+1, lat))
	}
	a.Record(stats.Attempt{ID: 6, Status: stats.StatusFailure, ErrorKind: "timeout"})
	a.Record(stats.Attempt{ID: 7, Status: stats.StatusSkipped})

	start := time.Now().Add(-10 * time.Second)
	s := a.Finalize("t", start, start.Add(10*time.Second), stats.TerminalCompleted)

	if s.Dispatched != 7 {
		t.Errorf("expected 7 dispatched, got %d", s.Dispatched)
	}
	if s.Successes+s.Failures+s.Skipped != s.Dispatched {
		t.Errorf("status counts %d+%d+%d do not sum to dispatched %d",
			s.Successes, s.Failures, s.Skipped, s.Dispatched)
	}
	if s.Latency == nil {
		t.Fatal("expected latency stats")
	}
	if math.Abs(s.Latency.P95-4.8) > 1e-9 {
		t.Errorf("expected p95 4.8, got %v", s.Latency.P95)
	}
	if s.Latency.Min != 1 || s.Latency.Max != 5 || s.Latency.Mean != 3 || s.Latency.Median != 3 {
		t.Errorf("unexpected latency stats: %+v", s.Latency)
	}
	if s.TotalTokens != 5*30 {
		t.Errorf("expected 150 tokens, got %d", s.TotalTokens)
	}
	if s.Errors["timeout"] != 1 {
		t.Errorf("expected one timeout in error histogram, got %v", s.Errors)
	}
}

func TestFinalizeNoSuccesses(t *testing.T) {
	a := stats.NewAggregator()
	a.Record(stats.Attempt{ID: 1, Status: stats.StatusFailure, ErrorKind: "network_error"})
	now := time.Now()
	s := a.Finalize("t", now, now.Add(time.Second), stats.TerminalCompleted)
	if s.Latency != nil {
		t.Fatalf("expected nil latency stats with zero successes, got %+v", s.Latency)
	}
	if s.AvgLatency() != 0 || s.P95Latency() != 0 {
		t.Errorf("expected zero-valued accessors on nil latency")
	}
}

func TestTotalCostMatchesAttemptSum(t *testing.T) {
	a := stats.NewAggregator()
	var want float64
	for i := 0; i < 20; i++ {
		att := successAttempt(i+1, 0.5)
		att.Cost = float64(i) * 0.0013
		want += att.Cost
		a.Record(att)
	}
	now := time.Now()
	s := a.Finalize("t", now, now.Add(time.Second), stats.TerminalCompleted)
	if math.Abs(s.TotalCost-want) > 1e-9 {
		t.Fatalf("total cost %v does not match attempt sum %v", s.TotalCost, want)
	}
}

func TestConcurrentRecord(t *testing.T) {
	a := stats.NewAggregator()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				a.Record(successAttempt(w*100+i, 0.01))
			}
		}(w)
	}
	wg.Wait()
	now := time.Now()
	s := a.Finalize("t", now, now.Add(time.Second), stats.TerminalCompleted)
	if s.Successes != 800 {
		t.Fatalf("expected 800 successes, got %d", s.Successes)
	}
}

func TestSnapshotCounters(t *testing.T) {
	a := stats.NewAggregator()
	a.Start()
	a.Record(successAttempt(1, 0.1))
	a.Record(stats.Attempt{ID: 2, Status: stats.StatusFailure, ErrorKind: "rate_limit"})
	p := a.Snapshot()
	if p.Total != 2 || p.Successes != 1 || p.Failures != 1 {
		t.Fatalf("unexpected snapshot: %+v", p)
	}
}

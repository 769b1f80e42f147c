package threshold

import (
	"strings"
	"testing"

	"github.com/torosent/promptfire/internal/stats"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "valid p95 latency threshold",
			input: "latency:p95 < 2000",
			want: Threshold{
				Metric:    "latency",
				Aggregate: "p95",
				Operator:  "<",
				Value:     2000,
				Raw:       "latency:p95 < 2000",
			},
		},
		{
			name:  "valid failure rate threshold",
			input: "failed:rate < 0.05",
			want: Threshold{
				Metric:    "failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.05,
				Raw:       "failed:rate < 0.05",
			},
		},
		{
			name:  "valid success rate with >=",
			input: "success:rate >= 0.95",
			want: Threshold{
				Metric:    "success",
				Aggregate: "rate",
				Operator:  ">=",
				Value:     0.95,
				Raw:       "success:rate >= 0.95",
			},
		},
		{
			name:  "valid cost total",
			input: "cost:total < 0.50",
			want: Threshold{
				Metric:    "cost",
				Aggregate: "total",
				Operator:  "<",
				Value:     0.50,
				Raw:       "cost:total < 0.50",
			},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "missing aggregate", input: "latency < 500", wantError: true},
		{name: "unknown metric", input: "memory:max < 100", wantError: true},
		{name: "unknown aggregate", input: "latency:p42 < 100", wantError: true},
		{name: "bad operator", input: "latency:p95 ~ 100", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	_, err := ParseMultiple([]string{"latency:p95 < 2000", "bogus", "also:bad < x"})
	if err == nil {
		t.Fatal("expected combined parse errors")
	}
	if !strings.Contains(err.Error(), "threshold[1]") {
		t.Errorf("expected indexed errors, got %v", err)
	}
}

func benchSummary() *stats.Summary {
	return &stats.Summary{
		Dispatched:     10,
		Successes:      9,
		Failures:       1,
		SuccessRate:    0.9,
		RequestsPerSec: 3.0,
		Latency:        &stats.LatencyStats{Min: 0.1, Max: 2.0, Mean: 0.6, Median: 0.5, P95: 1.8},
		TotalTokens:    4500,
		TotalCost:      0.12,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		raw  string
		pass bool
	}{
		{"latency:p95 < 2000", true},
		{"latency:p95 < 1000", false},
		{"latency:avg <= 600", true},
		{"latency:max < 1500", false},
		{"failed:rate < 0.2", true},
		{"failed:count == 1", true},
		{"success:rate >= 0.9", true},
		{"throughput:rate > 2", true},
		{"cost:total < 0.10", false},
		{"tokens:total < 100000", true},
	}

	ths := make([]Threshold, 0, len(tests))
	for _, tt := range tests {
		th, err := Parse(tt.raw)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tt.raw, err)
		}
		ths = append(ths, th)
	}

	results := NewEvaluator(ths).Evaluate(benchSummary())
	if len(results) != len(tests) {
		t.Fatalf("expected %d results, got %d", len(tests), len(results))
	}
	for i, r := range results {
		if r.Pass != tests[i].pass {
			t.Errorf("%s: pass=%v want %v (actual %.3f)", tests[i].raw, r.Pass, tests[i].pass, r.Actual)
		}
	}
	if AllPassed(results) {
		t.Error("expected AllPassed to be false with failing thresholds")
	}
}

func TestEvaluateLatencyWithoutSuccesses(t *testing.T) {
	s := &stats.Summary{Dispatched: 5, Failures: 5}
	th, err := Parse("latency:p95 < 2000")
	if err != nil {
		t.Fatal(err)
	}

	results := NewEvaluator([]Threshold{th}).Evaluate(s)
	if len(results) != 1 || results[0].Pass {
		t.Fatalf("latency thresholds must fail with no data: %+v", results)
	}
	if !strings.Contains(results[0].Message, "undefined") {
		t.Errorf("expected an undefined-latency message, got %q", results[0].Message)
	}
}

func TestEvaluateEmpty(t *testing.T) {
	if got := NewEvaluator(nil).Evaluate(benchSummary()); got != nil {
		t.Fatalf("expected nil results for no thresholds, got %v", got)
	}
}

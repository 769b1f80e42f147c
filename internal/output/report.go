package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/torosent/promptfire/internal/cost"
	"github.com/torosent/promptfire/internal/stats"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, s *stats.Summary, budget cost.State) {
	fmt.Fprintln(w, "\n--- Benchmark Results ---")
	fmt.Fprintf(w, "Test:              %s\n", s.TestName)
	fmt.Fprintf(w, "Status:            %s\n", s.Terminal)
	fmt.Fprintf(w, "Dispatched:        %d\n", s.Dispatched)
	fmt.Fprintf(w, "Successful:        %d\n", s.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", s.Failures)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "Skipped:           %d\n", s.Skipped)
	}
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", s.SuccessRate*100)
	fmt.Fprintf(w, "Duration:          %s\n", s.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", s.RequestsPerSec)

	fmt.Fprintln(w, "\nLatency:")
	if s.Latency == nil {
		fmt.Fprintln(w, "  No successful requests")
	} else {
		fmt.Fprintf(w, "  Min:             %.0fms\n", s.Latency.Min*1000)
		fmt.Fprintf(w, "  Max:             %.0fms\n", s.Latency.Max*1000)
		fmt.Fprintf(w, "  Mean:            %.0fms\n", s.Latency.Mean*1000)
		fmt.Fprintf(w, "  Median:          %.0fms\n", s.Latency.Median*1000)
		fmt.Fprintf(w, "  P95:             %.0fms\n", s.Latency.P95*1000)
	}

	fmt.Fprintln(w, "\nTokens:")
	fmt.Fprintf(w, "  Prompt:          %d\n", s.TotalPromptTokens)
	fmt.Fprintf(w, "  Completion:      %d\n", s.TotalCompletionTokens)
	fmt.Fprintf(w, "  Total:           %d\n", s.TotalTokens)

	fmt.Fprintln(w, "\nCost:")
	fmt.Fprintf(w, "  This run:        $%.4f\n", s.TotalCost)
	if s.UnpricedAttempts > 0 {
		fmt.Fprintf(w, "  Unpriced:        %d attempts (no pricing entry)\n", s.UnpricedAttempts)
	}
	fmt.Fprintf(w, "  Today (%s): $%.4f of $%.2f [%s tier]\n",
		budget.LastResetDate, budget.SpentToday, budget.DailyLimit, budget.Tier)

	if len(s.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		kinds := make([]string, 0, len(s.Errors))
		for kind := range s.Errors {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", kind, s.Errors[kind])
		}
	}
}

// jsonReport is the stdout JSON projection of a finished run.
type jsonReport struct {
	TestName          string             `json:"testName"`
	TerminalStatus    string             `json:"terminalStatus"`
	Dispatched        int                `json:"dispatched"`
	Successes         int                `json:"successes"`
	Failures          int                `json:"failures"`
	Skipped           int                `json:"skipped"`
	SuccessRate       float64            `json:"successRate"`
	DurationSeconds   float64            `json:"durationSeconds"`
	RequestsPerSec    float64            `json:"requestsPerSecond"`
	Latency           *stats.LatencyStats `json:"latency,omitempty"`
	TotalTokens       int                `json:"totalTokens"`
	TotalCost         float64            `json:"totalCost"`
	SpentToday        float64            `json:"spentToday"`
	DailyLimit        float64            `json:"dailyLimit"`
	BudgetTier        string             `json:"budgetTier"`
	Errors            map[string]int     `json:"errors,omitempty"`
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, s *stats.Summary, budget cost.State) error {
	rep := jsonReport{
		TestName:        s.TestName,
		TerminalStatus:  string(s.Terminal),
		Dispatched:      s.Dispatched,
		Successes:       s.Successes,
		Failures:        s.Failures,
		Skipped:         s.Skipped,
		SuccessRate:     s.SuccessRate,
		DurationSeconds: s.Duration.Seconds(),
		RequestsPerSec:  s.RequestsPerSec,
		Latency:         s.Latency,
		TotalTokens:     s.TotalTokens,
		TotalCost:       s.TotalCost,
		SpentToday:      budget.SpentToday,
		DailyLimit:      budget.DailyLimit,
		BudgetTier:      budget.Tier,
		Errors:          s.Errors,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// PrintCostSummary renders a trailing-window spend report from the history.
func PrintCostSummary(w io.Writer, rep cost.Report) {
	fmt.Fprintf(w, "\n--- Cost Summary (last %d days) ---\n", rep.Days)
	fmt.Fprintf(w, "Total Spend:       $%.4f\n", rep.TotalCost)
	fmt.Fprintf(w, "Requests:          %d\n", rep.Requests)
	fmt.Fprintf(w, "Avg Daily Spend:   $%.4f\n", rep.AvgDailyCost)
	if len(rep.ByModel) > 0 {
		fmt.Fprintln(w, "\nBy Model:")
		for _, ms := range rep.ByModel {
			fmt.Fprintf(w, "  - %s: $%.4f over %d requests\n", ms.Model, ms.Cost, ms.Requests)
		}
	}
	if len(rep.ByDate) > 0 {
		fmt.Fprintln(w, "\nBy Date:")
		dates := make([]string, 0, len(rep.ByDate))
		for d := range rep.ByDate {
			dates = append(dates, d)
		}
		sort.Strings(dates)
		for _, d := range dates {
			fmt.Fprintf(w, "  %s: $%.4f\n", d, rep.ByDate[d])
		}
	}
}

package cost_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/promptfire/internal/cost"
)

func openTestHistory(t *testing.T) *cost.History {
	t.Helper()
	h, err := cost.OpenHistory(filepath.Join(t.TempDir(), "cost_history.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHistoryAppendAndLoad(t *testing.T) {
	h := openTestHistory(t)
	entries := []cost.Entry{
		{Date: "2026-08-20", Backend: "openai", Model: "gpt-4", Cost: 0.12},
		{Date: "2026-08-21", Backend: "openai", Model: "gpt-4o", Cost: 0.03},
		{Date: "2026-08-21", Backend: "ollama", Model: "llama2:7b", Cost: 0},
	}
	for _, e := range entries {
		if err := h.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	got, err := h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i] != entries[i] {
			t.Errorf("entry %d: got %+v, want %+v", i, got[i], entries[i])
		}
	}
}

func TestHistorySkipsTornLines(t *testing.T) {
	h := openTestHistory(t)
	if err := h.Append(cost.Entry{Date: "2026-08-21", Backend: "mock", Model: "mock-model", Cost: 0}); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(h.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{\"date\": \"2026-08-2"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	got, err := h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected the torn line to be skipped, got %d entries", len(got))
	}
}

func TestHistoryLoadMissingFile(t *testing.T) {
	h := openTestHistory(t)
	got, err := h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected no entries for missing file, got %v", got)
	}
}

func TestSummarizeTrailingWindow(t *testing.T) {
	h := openTestHistory(t)
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	recent := []cost.Entry{
		{Date: "2026-08-24", Backend: "openai", Model: "gpt-4", Cost: 1.0},
		{Date: "2026-08-25", Backend: "openai", Model: "gpt-4", Cost: 0.5},
		{Date: "2026-08-25", Backend: "openai", Model: "gpt-4o", Cost: 0.25},
	}
	old := cost.Entry{Date: "2026-06-01", Backend: "openai", Model: "gpt-4", Cost: 9.99}
	for _, e := range append(recent, old) {
		if err := h.Append(e); err != nil {
			t.Fatal(err)
		}
	}

	rep, err := h.Summarize(30, now)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Requests != 3 {
		t.Fatalf("expected 3 requests in window, got %d", rep.Requests)
	}
	if rep.TotalCost != 1.75 {
		t.Fatalf("expected total 1.75, got %v", rep.TotalCost)
	}
	if len(rep.ByModel) != 2 || rep.ByModel[0].Model != "gpt-4" {
		t.Fatalf("expected gpt-4 to lead the model breakdown, got %+v", rep.ByModel)
	}
	if rep.ByDate["2026-08-25"] != 0.75 {
		t.Fatalf("expected 0.75 on 2026-08-25, got %v", rep.ByDate["2026-08-25"])
	}
	if !strings.HasSuffix(h.Path(), "cost_history.jsonl") {
		t.Fatalf("unexpected history path %s", h.Path())
	}
}

package resultstore_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/torosent/promptfire/internal/resultstore"
	"github.com/torosent/promptfire/internal/stats"
)

func sampleDocument() *resultstore.Document {
	start := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)
	return &resultstore.Document{
		TestName:          "smoke test",
		StartTime:         start,
		EndTime:           start.Add(4200 * time.Millisecond),
		Config:            json.RawMessage(`{"backend":"mock","model":"mock-model","requests":2}`),
		TerminalStatus:    "completed",
		SuccessRate:       0.5,
		AvgLatency:        0.731,
		P95Latency:        0.731,
		RequestsPerSecond: 0.476,
		TotalTokens:       42,
		TotalCost:         0.0031,
		Errors:            map[string]int{"timeout": 1},
		IndividualResults: []stats.Attempt{
			{
				ID: 1, Prompt: "What is 15 + 27?",
				Start: start, End: start.Add(731 * time.Millisecond),
				LatencySeconds: 0.731, PromptTokens: 12, CompletionTokens: 30,
				Cost: 0.0031, Status: stats.StatusSuccess,
			},
			{
				ID: 2, Prompt: "Name the four seasons.",
				Start: start.Add(time.Second), End: start.Add(31 * time.Second),
				LatencySeconds: 30.0, Status: stats.StatusFailure, ErrorKind: "timeout",
			},
		},
	}
}

func TestSaveLoadRoundTripIsByteEquivalent(t *testing.T) {
	store, err := resultstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	path, err := store.Save(sampleDocument())
	if err != nil {
		t.Fatal(err)
	}

	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := resultstore.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	resaved, err := resultstore.Marshal(loaded)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, resaved) {
		t.Fatalf("round trip changed bytes:\n--- saved ---\n%s\n--- resaved ---\n%s", original, resaved)
	}
}

func TestSaveFilenameAndCollisionSuffix(t *testing.T) {
	store, err := resultstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc := sampleDocument()

	first, err := store.Save(doc)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(first) != "smoke_test_20260825_103000.json" {
		t.Fatalf("unexpected filename %s", filepath.Base(first))
	}

	second, err := store.Save(doc)
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatal("second save overwrote the first")
	}
	if !strings.HasPrefix(filepath.Base(second), "smoke_test_20260825_103000_") {
		t.Fatalf("collision suffix missing: %s", filepath.Base(second))
	}
	// Both files must survive with independent content.
	for _, p := range []string{first, second} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
	}
}

func TestSaveCSVProjectsAttempts(t *testing.T) {
	store, err := resultstore.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	doc := sampleDocument()
	jsonPath, err := store.Save(doc)
	if err != nil {
		t.Fatal(err)
	}
	csvPath, err := store.SaveCSV(doc, jsonPath)
	if err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "request_id" || rows[0][8] != "error_kind" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "1" || rows[1][1] != "success" || rows[1][4] != "0.731" {
		t.Fatalf("unexpected first row %v", rows[1])
	}
	if rows[2][1] != "failure" || rows[2][8] != "timeout" {
		t.Fatalf("unexpected second row %v", rows[2])
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := resultstore.Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

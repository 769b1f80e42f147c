// Package resultstore persists completed run reports as JSON documents and
// optional CSV projections.
package resultstore

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/torosent/promptfire/internal/stats"
)

// Document is the on-disk report schema. Field order is fixed and map keys
// are sorted by the encoder, so re-saving a loaded document reproduces the
// original bytes.
type Document struct {
	TestName          string            `json:"testName"`
	StartTime         time.Time         `json:"startTime"`
	EndTime           time.Time         `json:"endTime"`
	Config            json.RawMessage   `json:"config"`
	TerminalStatus    string            `json:"terminalStatus"`
	SuccessRate       float64           `json:"successRate"`
	AvgLatency        float64           `json:"avgLatency"`
	P95Latency        float64           `json:"p95Latency"`
	RequestsPerSecond float64           `json:"requestsPerSecond"`
	TotalTokens       int               `json:"totalTokens"`
	TotalCost         float64           `json:"totalCost"`
	Errors            map[string]int    `json:"errors"`
	IndividualResults []stats.Attempt   `json:"individualResults"`
}

// FromSummary builds a document from a finalized run summary. cfg is the
// already-marshaled run configuration.
func FromSummary(s *stats.Summary, cfg json.RawMessage) *Document {
	return &Document{
		TestName:          s.TestName,
		StartTime:         s.Start,
		EndTime:           s.End,
		Config:            cfg,
		TerminalStatus:    string(s.Terminal),
		SuccessRate:       s.SuccessRate,
		AvgLatency:        s.AvgLatency(),
		P95Latency:        s.P95Latency(),
		RequestsPerSecond: s.RequestsPerSec,
		TotalTokens:       s.TotalTokens,
		TotalCost:         s.TotalCost,
		Errors:            s.Errors,
		IndividualResults: s.Attempts,
	}
}

// Store writes documents into a results directory.
type Store struct {
	dir string
}

// NewStore creates the results directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string {
	return s.dir
}

// Marshal renders a document with the canonical encoding used on disk.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// sanitizeName keeps filenames portable. Anything outside a conservative set
// becomes an underscore.
func sanitizeName(name string) string {
	if name == "" {
		return "run"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Save writes the document as <testName>_<YYYYMMDD_HHMMSS>.json. If another
// run already claimed that name, a ULID suffix disambiguates instead of
// overwriting. Returns the path written.
func (s *Store) Save(doc *Document) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}

	base := fmt.Sprintf("%s_%s", sanitizeName(doc.TestName), doc.StartTime.UTC().Format("20060102_150405"))
	path := filepath.Join(s.dir, base+".json")
	written, err := writeExclusive(path, data)
	if err == nil {
		return written, nil
	}
	if !os.IsExist(err) {
		return "", fmt.Errorf("write results: %w", err)
	}

	path = filepath.Join(s.dir, fmt.Sprintf("%s_%s.json", base, ulid.Make()))
	written, err = writeExclusive(path, data)
	if err != nil {
		return "", fmt.Errorf("write results: %w", err)
	}
	return written, nil
}

func writeExclusive(path string, data []byte) (string, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a saved document back.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return &doc, nil
}

var csvHeader = []string{
	"request_id", "status", "start_time", "end_time", "latency_seconds",
	"prompt_tokens", "completion_tokens", "cost", "error_kind",
}

// SaveCSV writes the per-attempt rows next to the JSON document, swapping the
// extension. Summary fields have no place in the flat projection.
func (s *Store) SaveCSV(doc *Document, jsonPath string) (string, error) {
	path := strings.TrimSuffix(jsonPath, ".json") + ".csv"
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, att := range doc.IndividualResults {
		row := []string{
			strconv.Itoa(att.ID),
			string(att.Status),
			att.Start.UTC().Format(time.RFC3339Nano),
			att.End.UTC().Format(time.RFC3339Nano),
			strconv.FormatFloat(att.LatencySeconds, 'f', -1, 64),
			strconv.Itoa(att.PromptTokens),
			strconv.Itoa(att.CompletionTokens),
			strconv.FormatFloat(att.Cost, 'f', -1, 64),
			att.ErrorKind,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}

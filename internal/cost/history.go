package cost

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
)

// Entry is one append-only spend record. Entries are never mutated after
// append; all reporting derives from replaying them.
type Entry struct {
	Date    string  `json:"date"` // UTC, YYYY-MM-DD
	Backend string  `json:"backend"`
	Model   string  `json:"model"`
	Cost    float64 `json:"cost"`
}

// History persists spend entries as JSON lines. A file lock serializes
// appends across promptfire processes sharing the same history file.
type History struct {
	path string
	lock *flock.Flock
}

// OpenHistory prepares a history at path, creating parent directories as
// needed.
func OpenHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &History{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the history file location.
func (h *History) Path() string {
	return h.path
}

// Append writes one entry under the file lock.
func (h *History) Append(e Entry) error {
	if err := h.lock.Lock(); err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer h.lock.Unlock()

	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Load reads every entry. Malformed lines are skipped rather than failing the
// whole load; the file is shared and a torn write must not poison reporting.
func (h *History) Load() ([]Entry, error) {
	if err := h.lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer h.lock.Unlock()

	f, err := os.Open(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// SpentOn sums the recorded spend for one UTC date.
func (h *History) SpentOn(date string) float64 {
	entries, err := h.Load()
	if err != nil {
		return 0
	}
	var total float64
	for _, e := range entries {
		if e.Date == date {
			total += e.Cost
		}
	}
	return total
}

// ModelSpend aggregates spend and request counts for one model.
type ModelSpend struct {
	Model    string
	Cost     float64
	Requests int
}

// Report summarizes spend over a trailing window of days.
type Report struct {
	Days         int
	TotalCost    float64
	Requests     int
	AvgDailyCost float64
	ByModel      []ModelSpend
	ByDate       map[string]float64
}

// Summarize builds a trailing-window report ending at now.
func (h *History) Summarize(days int, now time.Time) (Report, error) {
	entries, err := h.Load()
	if err != nil {
		return Report{}, err
	}
	cutoff := now.UTC().AddDate(0, 0, -days).Format("2006-01-02")

	rep := Report{Days: days, ByDate: map[string]float64{}}
	byModel := map[string]*ModelSpend{}
	for _, e := range entries {
		if e.Date < cutoff {
			continue
		}
		rep.TotalCost += e.Cost
		rep.Requests++
		rep.ByDate[e.Date] += e.Cost
		ms, ok := byModel[e.Model]
		if !ok {
			ms = &ModelSpend{Model: e.Model}
			byModel[e.Model] = ms
		}
		ms.Cost += e.Cost
		ms.Requests++
	}
	if days > 0 {
		rep.AvgDailyCost = rep.TotalCost / float64(days)
	}
	for _, ms := range byModel {
		rep.ByModel = append(rep.ByModel, *ms)
	}
	sort.Slice(rep.ByModel, func(i, j int) bool {
		if rep.ByModel[i].Cost == rep.ByModel[j].Cost {
			return rep.ByModel[i].Model < rep.ByModel[j].Model
		}
		return rep.ByModel[i].Cost > rep.ByModel[j].Cost
	})
	return rep, nil
}

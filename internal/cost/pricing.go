// Package cost prices attempts, enforces daily budget ceilings, and persists
// spend history across runs.
package cost

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ModelPricing is the per-1K-token price for a model.
type ModelPricing struct {
	InputPer1K  float64 `yaml:"input_per_1k"`
	OutputPer1K float64 `yaml:"output_per_1k"`
}

// Table maps (backend, model) to pricing. Lookup falls back from the
// backend-qualified key to the bare model name, so override files can price a
// model once for every backend that serves it.
type Table struct {
	entries map[string]ModelPricing
}

// DefaultTable returns the built-in pricing table. The figures are
// illustrative defaults; production deployments override them with a pricing
// file.
func DefaultTable() *Table {
	return &Table{entries: map[string]ModelPricing{
		"gpt-3.5-turbo":     {0.0015, 0.002},
		"gpt-4":             {0.03, 0.06},
		"gpt-4-turbo":       {0.01, 0.03},
		"gpt-4o":            {0.005, 0.015},
		"gpt-4o-mini":       {0.00015, 0.0006},
		"claude-3-haiku":    {0.00025, 0.00125},
		"claude-3-sonnet":   {0.003, 0.015},
		"claude-3-opus":     {0.015, 0.075},
		"claude-3-5-sonnet": {0.003, 0.015},
		"gemini-pro":        {0.0005, 0.0015},
		"gemini-1.5-pro":    {0.007, 0.021},
		"gemini-1.5-flash":  {0.00035, 0.00105},

		// Mock and local backends are free.
		"mock/":   {0, 0},
		"ollama/": {0, 0},
	}}
}

// LoadFile merges pricing entries from a YAML file into the table. File keys
// may be bare model names or "backend/model" pairs.
func (t *Table) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read pricing file: %w", err)
	}
	parsed := map[string]ModelPricing{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse pricing file %s: %w", path, err)
	}
	for k, v := range parsed {
		t.entries[k] = v
	}
	return nil
}

// Lookup resolves pricing for a backend/model pair. The second return is
// false on a miss; a miss is informational, not an error.
func (t *Table) Lookup(backend, model string) (ModelPricing, bool) {
	if p, ok := t.entries[backend+"/"+model]; ok {
		return p, true
	}
	// Backend-wide entry ("ollama/") prices every local model at once.
	if p, ok := t.entries[backend+"/"]; ok {
		return p, true
	}
	if p, ok := t.entries[model]; ok {
		return p, true
	}
	// Family fallback: "gpt-4-0613" resolves to "gpt-4".
	for key, p := range t.entries {
		if !strings.Contains(key, "/") && strings.HasPrefix(model, key+"-") {
			return p, true
		}
	}
	return ModelPricing{}, false
}

// Price computes the cost of one attempt:
// promptTokens/1000 × input price + completionTokens/1000 × output price.
// On a lookup miss the cost is 0 and unpriced is true.
func (t *Table) Price(backend, model string, promptTokens, completionTokens int) (amount float64, unpriced bool) {
	p, ok := t.Lookup(backend, model)
	if !ok {
		return 0, true
	}
	amount = float64(promptTokens)/1000*p.InputPer1K + float64(completionTokens)/1000*p.OutputPer1K
	return amount, false
}

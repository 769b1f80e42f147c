// Package prompt produces test prompts for a run, either from built-in banks
// keyed by category or verbatim from a user-supplied override.
package prompt

import (
	"fmt"
	"math/rand"
	"sync"
)

// Category selects which prompt bank to draw from.
type Category string

const (
	CategoryShortQA        Category = "short_qa"
	CategoryLongForm       Category = "long_form"
	CategoryCodeGeneration Category = "code_generation"
)

// Categories lists the supported prompt categories.
func Categories() []Category {
	return []Category{CategoryShortQA, CategoryLongForm, CategoryCodeGeneration}
}

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	switch c {
	case CategoryShortQA, CategoryLongForm, CategoryCodeGeneration:
		return true
	}
	return false
}

var banks = map[Category][]string{
	CategoryShortQA: {
		"What is the capital of France?",
		"Explain the concept of gravity in one sentence.",
		"What is 15 + 27?",
		"Name three programming languages.",
		"What year was the internet invented?",
		"Define artificial intelligence briefly.",
		"What is the largest planet in our solar system?",
		"How many sides does a hexagon have?",
		"What is the chemical symbol for gold?",
		"Name the four seasons.",
	},
	CategoryLongForm: {
		"Write a detailed essay about the impact of climate change on global agriculture, including specific examples and potential solutions.",
		"Explain the history and significance of the Renaissance period, covering art, science, and cultural developments.",
		"Describe the process of photosynthesis in plants, including the molecular mechanisms and environmental factors involved.",
		"Write a comprehensive analysis of the causes and consequences of World War II, focusing on major battles and political decisions.",
		"Explain the principles of machine learning, including different algorithms, applications, and ethical considerations.",
		"Describe the evolution of human language, from prehistoric communication to modern linguistic diversity.",
		"Write about the economic implications of cryptocurrency and blockchain technology on traditional financial systems.",
		"Explain the structure and function of the human brain, including neurotransmitters and cognitive processes.",
		"Describe the challenges and opportunities of space exploration in the 21st century.",
		"Write about the role of renewable energy in addressing global environmental challenges.",
	},
	CategoryCodeGeneration: {
		"Write a Python function that sorts a list of dictionaries by a specified key.",
		"Create a JavaScript function that validates an email address using regular expressions.",
		"Write a Python class to implement a simple stack data structure with push, pop, and peek methods.",
		"Create a SQL query to find the top 5 customers by total purchase amount from an e-commerce database.",
		"Write a Python function that calculates the Fibonacci sequence up to n terms.",
		"Create a JavaScript function that debounces user input with a specified delay.",
		"Write a Python script that reads a CSV file and calculates basic statistics for numeric columns.",
		"Create a function in any language that implements binary search on a sorted array.",
		"Write a Python decorator that measures and logs the execution time of functions.",
		"Create a REST API endpoint using Flask that handles user authentication and returns JSON responses.",
	},
}

// Generator draws prompts from the banks with a private random source, so a
// fixed seed reproduces the exact prompt sequence.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns a prompt for the category. A non-empty custom prompt is
// returned verbatim and does not consume randomness.
func (g *Generator) Generate(category Category, custom string) (string, error) {
	if custom != "" {
		return custom, nil
	}
	bank, ok := banks[category]
	if !ok {
		return "", fmt.Errorf("unknown prompt category %q", category)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return bank[g.rng.Intn(len(bank))], nil
}

// BankSize returns how many prompts a category holds.
func BankSize(category Category) int {
	return len(banks[category])
}

package stats

import "time"

// Status is the terminal state of a single attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"
)

// TerminalStatus distinguishes how a run ended. Callers must inspect it
// rather than assume normal completion.
type TerminalStatus string

const (
	TerminalCompleted    TerminalStatus = "completed"
	TerminalAbortedFatal TerminalStatus = "aborted_fatal"
	TerminalHaltedBudget TerminalStatus = "halted_budget"
	TerminalCancelled    TerminalStatus = "cancelled"
)

// Attempt is the full outcome of one request. Attempts are created and
// mutated only by the dispatcher; everything downstream treats them as
// read-only.
type Attempt struct {
	ID               int       `json:"request_id"`
	Prompt           string    `json:"prompt"`
	Start            time.Time `json:"start_time"`
	End              time.Time `json:"end_time"`
	LatencySeconds   float64   `json:"latency_seconds"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	Cost             float64   `json:"cost"`
	Unpriced         bool      `json:"unpriced,omitempty"`
	Status           Status    `json:"status"`
	ErrorKind        string    `json:"error_kind,omitempty"`
}

// TotalTokens returns prompt plus completion tokens for the attempt.
func (a Attempt) TotalTokens() int {
	return a.PromptTokens + a.CompletionTokens
}

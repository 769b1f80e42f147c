// Package adapter defines the contract between the dispatcher and backend
// clients. Every backend (cloud API, local inference server, mock) satisfies
// the same Client interface and reports failures as structured outcomes
// rather than raised errors.
package adapter

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// ErrorKind categorizes a failed attempt. Transient kinds never abort a run;
// fatal kinds count toward the consecutive-fatal abort threshold.
type ErrorKind string

const (
	ErrorKindNone             ErrorKind = ""
	ErrorKindNetwork          ErrorKind = "network_error"
	ErrorKindTimeout          ErrorKind = "timeout"
	ErrorKindRateLimit        ErrorKind = "rate_limit"
	ErrorKindAuthentication   ErrorKind = "authentication_error"
	ErrorKindMalformedRequest ErrorKind = "malformed_request"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// Fatal reports whether the kind indicates a condition that will not resolve
// by retrying (bad credentials, bad request shape).
func (k ErrorKind) Fatal() bool {
	return k == ErrorKindAuthentication || k == ErrorKindMalformedRequest
}

// Outcome is the structured result of one RunPrompt call.
type Outcome struct {
	Completion       string
	PromptTokens     int
	CompletionTokens int
	Success          bool
	ErrorKind        ErrorKind
	ErrorDetail      string
}

// TotalTokens returns prompt plus completion tokens.
func (o Outcome) TotalTokens() int {
	return o.PromptTokens + o.CompletionTokens
}

// Failure builds a failed Outcome with the given kind and detail.
func Failure(kind ErrorKind, detail string) Outcome {
	return Outcome{Success: false, ErrorKind: kind, ErrorDetail: detail}
}

// Client executes a single prompt against a backend. Implementations own
// their retry, timeout, and auth behavior; RunPrompt must never panic and
// must surface every failure mode as an Outcome with an ErrorKind.
type Client interface {
	RunPrompt(ctx context.Context, prompt string) Outcome
	Backend() string
	Model() string
	Close() error
}

// ClassifyStatus maps an HTTP response status to an ErrorKind.
func ClassifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorKindAuthentication
	case status == http.StatusTooManyRequests:
		return ErrorKindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrorKindTimeout
	case status >= 400 && status < 500:
		return ErrorKindMalformedRequest
	case status >= 500:
		return ErrorKindNetwork
	default:
		return ErrorKindUnknown
	}
}

// ClassifyError maps a transport-level error to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindNone
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		// An interrupted attempt never completed; report it as a timeout so
		// it stays transient and cannot trip the fatal-abort threshold.
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorKindTimeout
		}
		return ErrorKindNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrorKindTimeout
	case strings.Contains(msg, "connection") || strings.Contains(msg, "no such host"):
		return ErrorKindNetwork
	default:
		return ErrorKindUnknown
	}
}

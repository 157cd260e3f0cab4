package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// ProviderError is a structured failure from an LLM provider.
// Transient errors (rate limits, timeouts, 5xx) may be retried by the
// caller; fatal errors (auth, invalid request) propagate immediately.
type ProviderError struct {
	Provider  string
	Status    int // HTTP-like status code when known
	Message   string
	Transient bool
	Cause     error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// NewProviderError classifies err for the given provider and status code.
// Status 0 means the status is unknown and classification falls back to
// inspecting the error itself.
func NewProviderError(provider string, status int, err error) *ProviderError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ProviderError{
		Provider:  provider,
		Status:    status,
		Message:   msg,
		Transient: classify(status, err),
		Cause:     err,
	}
}

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

func classify(status int, err error) bool {
	switch {
	case status == 408 || status == 429:
		return true
	case status >= 500:
		return true
	case status > 0:
		return false
	}
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "rate limit") ||
		strings.Contains(s, "too many requests") ||
		strings.Contains(s, "overloaded") ||
		strings.Contains(s, "connection reset")
}

package ai

import (
	"errors"
	"fmt"
	"strings"
)

// Configuration failures raised by the kill-switch gate before any
// network call is made.
var (
	// ErrNotConfigured means the AI settings row does not exist at all.
	ErrNotConfigured = errors.New("ai: settings not configured")

	// ErrDisabled means the master kill switch is off.
	ErrDisabled = errors.New("ai: generation disabled by settings")
)

// ErrMissingCredential marks a provider that appears in the priority
// list but has no API key configured. It never consumes a network attempt.
type ErrMissingCredential struct {
	Provider Provider
}

func (e *ErrMissingCredential) Error() string {
	return fmt.Sprintf("ai: no credential configured for provider %s", e.Provider)
}

// RateLimitError is raised when a provider's retry budget is exhausted
// entirely on HTTP 429 responses.
type RateLimitError struct {
	Provider Provider
	Attempts int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("ai: provider %s rate limited after %d attempts", e.Provider, e.Attempts)
}

// AuthError is raised on HTTP 401/403: bad key or insufficient permission.
type AuthError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("ai: provider %s auth failure (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

// NotFoundError is raised on HTTP 404, which almost always means a
// misconfigured model name or endpoint.
type NotFoundError struct {
	Provider Provider
	Body     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ai: provider %s model or endpoint not found: %s", e.Provider, e.Body)
}

// ResponseShapeError is raised when a 2xx response does not contain a
// text payload where the provider's schema says it should be.
type ResponseShapeError struct {
	Provider Provider
	Detail   string
}

func (e *ResponseShapeError) Error() string {
	return fmt.Sprintf("ai: provider %s returned unexpected response shape: %s", e.Provider, e.Detail)
}

// ParseError is raised when the extracted text payload does not parse
// as the JSON object the prompt asked for. It is retried within the
// provider's budget like any other attempt failure.
type ParseError struct {
	Provider Provider
	Payload  string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("ai: provider %s content is not valid JSON: %v", e.Provider, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ProviderError covers non-success HTTP statuses with no more specific
// classification. The raw diagnostic body is carried for operators.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai: provider %s request failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Body)
}

// ProviderFailure records why one provider in the priority list did
// not produce a result.
type ProviderFailure struct {
	Provider Provider `json:"provider"`
	Attempts int      `json:"attempts"`
	Err      error    `json:"-"`
	Reason   string   `json:"reason"`
}

// ExhaustedError aggregates the failure of every provider in the
// priority list.
type ExhaustedError struct {
	Failures []ProviderFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Provider, f.Reason))
	}
	return "ai: all providers exhausted [" + strings.Join(parts, "; ") + "]"
}

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultMaxAttempts bounds the retry loop for a single provider.
	DefaultMaxAttempts = 5

	// DefaultProviderBudget is the wall-clock ceiling for one
	// provider's entire retry loop, backoff waits included.
	DefaultProviderBudget = 90 * time.Second
)

// Sleeper waits for a duration or until the context is cancelled.
// Injected so backoff behaviour is testable without real time passing.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Executor drives a single provider adapter through a bounded retry
// loop with backoff, rate-limit handling and response parsing.
type Executor struct {
	Client      *http.Client
	Backoff     *BackoffPolicy
	Sleep       Sleeper
	MaxAttempts int
	Budget      time.Duration
	Logger      *logrus.Entry
}

func NewExecutor(logger *logrus.Entry) *Executor {
	return &Executor{
		Client:      &http.Client{Timeout: 30 * time.Second},
		Backoff:     NewBackoffPolicy(),
		Sleep:       defaultSleep,
		MaxAttempts: DefaultMaxAttempts,
		Budget:      DefaultProviderBudget,
		Logger:      logger,
	}
}

// Execute runs the retry loop for one provider and unmarshals the
// JSON content of a successful response into out. It returns the
// number of network attempts made. Auth and not-found failures abort
// the provider immediately; 429, 5xx, transport, shape and parse
// failures are retried until the attempt or wall-clock budget runs out.
func (e *Executor) Execute(ctx context.Context, adapter Adapter, prompt string, opts Options, out interface{}) (int, error) {
	provider := adapter.Name()

	ctx, cancel := context.WithTimeout(ctx, e.Budget)
	defer cancel()

	var (
		lastErr     error
		rateLimited bool
		wait        time.Duration
		attempts    int
	)

	for attempt := 0; attempt < e.MaxAttempts; attempt++ {
		if attempt > 0 {
			e.Logger.WithFields(logrus.Fields{
				"provider": provider,
				"attempt":  attempt,
				"wait":     wait.String(),
			}).Debug("waiting before retry")
			if err := e.Sleep(ctx, wait); err != nil {
				return attempts, fmt.Errorf("ai: provider %s retry interrupted: %w", provider, err)
			}
		}
		attempts++

		status, retryAfter, err := e.attempt(ctx, adapter, prompt, opts, out)
		if err == nil {
			return attempts, nil
		}
		lastErr = err
		rateLimited = status == http.StatusTooManyRequests

		switch status {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			// Credential and model misconfiguration will not heal
			// inside a retry loop.
			return attempts, err
		case http.StatusTooManyRequests:
			wait = e.Backoff.RateLimitDelay(attempt, retryAfter)
		default:
			wait = e.Backoff.RetryDelay(attempt + 1)
		}

		e.Logger.WithFields(logrus.Fields{
			"provider": provider,
			"attempt":  attempt,
			"status":   status,
		}).WithError(err).Warn("provider attempt failed")

		if ctx.Err() != nil {
			break
		}
	}

	if rateLimited {
		return attempts, &RateLimitError{Provider: provider, Attempts: attempts}
	}
	return attempts, fmt.Errorf("ai: provider %s exhausted after %d attempts: %w", provider, attempts, lastErr)
}

// attempt performs one request/parse cycle. The returned status is
// zero for transport and parse failures.
func (e *Executor) attempt(ctx context.Context, adapter Adapter, prompt string, opts Options, out interface{}) (int, time.Duration, error) {
	provider := adapter.Name()

	req, err := adapter.BuildRequest(ctx, prompt, opts)
	if err != nil {
		return 0, 0, fmt.Errorf("ai: building %s request: %w", provider, err)
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("ai: calling %s: %w", provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, 0, fmt.Errorf("ai: reading %s response: %w", provider, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), &ProviderError{
			Provider: provider, StatusCode: resp.StatusCode, Body: truncate(string(body)),
		}
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, 0, &AuthError{Provider: provider, StatusCode: resp.StatusCode, Body: truncate(string(body))}
	case resp.StatusCode == http.StatusNotFound:
		return resp.StatusCode, 0, &NotFoundError{Provider: provider, Body: truncate(string(body))}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resp.StatusCode, 0, &ProviderError{Provider: provider, StatusCode: resp.StatusCode, Body: truncate(string(body))}
	}

	text, err := adapter.ExtractText(body)
	if err != nil {
		return 0, 0, err
	}

	content := StripCodeFences(text)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return 0, 0, &ParseError{Provider: provider, Payload: truncate(content), Err: err}
	}
	return resp.StatusCode, 0, nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(s string) string {
	const max = 500
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

package ai

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// interProviderDelay is the pause between exhausting one provider and
// trying the next, so providers sharing infrastructure don't see a
// burst of correlated traffic.
const interProviderDelay = 6 * time.Second

// Settings is the loaded AI configuration handed to the generator.
// Keeping it a plain value (rather than reading the store inside the
// generator) keeps the tiered algorithm independently testable.
type Settings struct {
	Enabled          bool
	PrimaryProvider  Provider
	FallbackOpenAI   bool
	FallbackDeepSeek bool
}

// Credentials maps a provider to its API key. A missing or empty
// entry means the provider is unconfigured.
type Credentials map[Provider]string

// CheckEnabled is the kill-switch gate. It runs once per generation
// request, before any network call: absent settings and a disabled
// switch are distinct configuration errors.
func CheckEnabled(settings *Settings) error {
	if settings == nil {
		return ErrNotConfigured
	}
	if !settings.Enabled {
		return ErrDisabled
	}
	return nil
}

// PriorityList builds the fixed provider order: the primary first,
// then OPENAI and DEEPSEEK when their fallback flags are set and they
// are not already present. The order is never re-sorted by runtime
// success history.
func PriorityList(settings *Settings) []Provider {
	list := []Provider{settings.PrimaryProvider}
	if settings.FallbackOpenAI && settings.PrimaryProvider != ProviderOpenAI {
		list = append(list, ProviderOpenAI)
	}
	if settings.FallbackDeepSeek && settings.PrimaryProvider != ProviderDeepSeek {
		list = append(list, ProviderDeepSeek)
	}
	return list
}

// Result reports which provider served a generation and what it cost
// to get there.
type Result struct {
	ProviderUsed  Provider          `json:"provider_used"`
	TotalAttempts int               `json:"total_attempts"`
	Failures      []ProviderFailure `json:"failures,omitempty"`
}

// TieredGenerator walks the priority list, driving the executor for
// each configured provider until one produces a parsed result.
type TieredGenerator struct {
	Executor    *Executor
	Credentials Credentials
	Logger      *logrus.Entry

	// NewAdapter is swappable for tests. Nil means the production
	// adapters with their real endpoints.
	NewAdapter func(p Provider, apiKey string) (Adapter, error)

	// Sleep covers the inter-provider delay. Nil means real time.
	Sleep Sleeper
}

func NewTieredGenerator(creds Credentials, logger *logrus.Entry) *TieredGenerator {
	return &TieredGenerator{
		Executor:    NewExecutor(logger),
		Credentials: creds,
		Logger:      logger,
		NewAdapter:  NewAdapter,
		Sleep:       defaultSleep,
	}
}

// Generate runs the kill-switch gate and then the tiered fallback
// algorithm. On success the result carries the serving provider, its
// attempt count, and every provider already exhausted along the way.
func (g *TieredGenerator) Generate(ctx context.Context, settings *Settings, prompt string, opts Options, out interface{}) (*Result, error) {
	if err := CheckEnabled(settings); err != nil {
		return nil, err
	}

	providers := PriorityList(settings)
	failures := make([]ProviderFailure, 0, len(providers))

	for i, provider := range providers {
		apiKey := g.Credentials[provider]
		if apiKey == "" {
			err := &ErrMissingCredential{Provider: provider}
			g.Logger.WithField("provider", provider).Warn("skipping unconfigured provider")
			failures = append(failures, ProviderFailure{Provider: provider, Err: err, Reason: err.Error()})
			continue
		}

		adapter, err := g.NewAdapter(provider, apiKey)
		if err != nil {
			failures = append(failures, ProviderFailure{Provider: provider, Err: err, Reason: err.Error()})
			continue
		}

		attempts, err := g.Executor.Execute(ctx, adapter, prompt, opts, out)
		if err == nil {
			g.Logger.WithFields(logrus.Fields{
				"provider": provider,
				"attempts": attempts,
			}).Info("generation succeeded")
			return &Result{ProviderUsed: provider, TotalAttempts: attempts, Failures: failures}, nil
		}

		g.Logger.WithField("provider", provider).WithError(err).Warn("provider exhausted")
		failures = append(failures, ProviderFailure{Provider: provider, Attempts: attempts, Err: err, Reason: err.Error()})

		// Breathe before hitting the next provider; skipped providers
		// made no network calls so they don't need the pause.
		if attempts > 0 && i < len(providers)-1 {
			if err := g.Sleep(ctx, interProviderDelay); err != nil {
				return nil, err
			}
		}
	}

	return nil, &ExhaustedError{Failures: failures}
}

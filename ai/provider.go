package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Provider identifies one of the supported AI backends.
type Provider string

const (
	ProviderGemini   Provider = "GEMINI"
	ProviderOpenAI   Provider = "OPENAI"
	ProviderDeepSeek Provider = "DEEPSEEK"
)

// Default endpoints. Adapters take a base URL so tests can point them
// at an httptest server.
const (
	defaultGeminiBaseURL   = "https://generativelanguage.googleapis.com"
	defaultOpenAIBaseURL   = "https://api.openai.com"
	defaultDeepSeekBaseURL = "https://api.deepseek.com"

	geminiModel   = "gemini-1.5-flash"
	openAIModel   = "gpt-4o-mini"
	deepSeekModel = "deepseek-chat"
)

// Options are the generation parameters shared by every provider.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Adapter builds a provider-specific request and pulls the text
// payload out of its response. One implementation per provider keeps
// the retry loop free of provider branching.
type Adapter interface {
	Name() Provider
	BuildRequest(ctx context.Context, prompt string, opts Options) (*http.Request, error)
	ExtractText(body []byte) (string, error)
}

// NewAdapter returns the adapter for a provider with its production
// endpoint. The API key is baked into the request builder.
func NewAdapter(p Provider, apiKey string) (Adapter, error) {
	switch p {
	case ProviderGemini:
		return &GeminiAdapter{APIKey: apiKey, BaseURL: defaultGeminiBaseURL}, nil
	case ProviderOpenAI:
		return &OpenAIAdapter{APIKey: apiKey, BaseURL: defaultOpenAIBaseURL}, nil
	case ProviderDeepSeek:
		return &DeepSeekAdapter{APIKey: apiKey, BaseURL: defaultDeepSeekBaseURL}, nil
	}
	return nil, fmt.Errorf("ai: unknown provider %q", p)
}

// GeminiAdapter speaks the generateContent REST API.
type GeminiAdapter struct {
	APIKey  string
	BaseURL string
}

func (a *GeminiAdapter) Name() Provider { return ProviderGemini }

func (a *GeminiAdapter) BuildRequest(ctx context.Context, prompt string, opts Options) (*http.Request, error) {
	payload := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     opts.Temperature,
			"maxOutputTokens": opts.MaxTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", a.BaseURL, geminiModel, a.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (a *GeminiAdapter) ExtractText(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ResponseShapeError{Provider: ProviderGemini, Detail: err.Error()}
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", &ResponseShapeError{Provider: ProviderGemini, Detail: "no candidates in response"}
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// OpenAIAdapter speaks the chat completions API.
type OpenAIAdapter struct {
	APIKey  string
	BaseURL string
}

func (a *OpenAIAdapter) Name() Provider { return ProviderOpenAI }

func (a *OpenAIAdapter) BuildRequest(ctx context.Context, prompt string, opts Options) (*http.Request, error) {
	return buildChatRequest(ctx, a.BaseURL, a.APIKey, openAIModel, prompt, opts)
}

func (a *OpenAIAdapter) ExtractText(body []byte) (string, error) {
	return extractChatText(ProviderOpenAI, body)
}

// DeepSeekAdapter uses the same chat-completions wire shape as OpenAI
// against a different host and model.
type DeepSeekAdapter struct {
	APIKey  string
	BaseURL string
}

func (a *DeepSeekAdapter) Name() Provider { return ProviderDeepSeek }

func (a *DeepSeekAdapter) BuildRequest(ctx context.Context, prompt string, opts Options) (*http.Request, error) {
	return buildChatRequest(ctx, a.BaseURL, a.APIKey, deepSeekModel, prompt, opts)
}

func (a *DeepSeekAdapter) ExtractText(body []byte) (string, error) {
	return extractChatText(ProviderDeepSeek, body)
}

func buildChatRequest(ctx context.Context, baseURL, apiKey, model, prompt string, opts Options) (*http.Request, error) {
	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
		"max_tokens":  opts.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	return req, nil
}

func extractChatText(p Provider, body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &ResponseShapeError{Provider: p, Detail: err.Error()}
	}
	if len(resp.Choices) == 0 {
		return "", &ResponseShapeError{Provider: p, Detail: "no choices in response"}
	}
	return resp.Choices[0].Message.Content, nil
}

// StripCodeFences removes a surrounding markdown code fence. Models
// frequently wrap JSON answers in ```json ... ``` despite being asked
// not to.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// Drop the language tag line (e.g. "json")
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

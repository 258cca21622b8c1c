package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAdapter(t *testing.T) {
	for _, p := range []Provider{ProviderGemini, ProviderOpenAI, ProviderDeepSeek} {
		adapter, err := NewAdapter(p, "key")
		require.NoError(t, err)
		assert.Equal(t, p, adapter.Name())
	}

	_, err := NewAdapter(Provider("CLIPPY"), "key")
	assert.Error(t, err)
}

func TestGeminiBuildRequest(t *testing.T) {
	a := &GeminiAdapter{APIKey: "secret", BaseURL: "https://example.test"}
	req, err := a.BuildRequest(context.Background(), "write a follow-up", Options{Temperature: 0.7, MaxTokens: 512})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "example.test", req.URL.Host)
	assert.Contains(t, req.URL.Path, "gemini-1.5-flash")
	assert.Equal(t, "secret", req.URL.Query().Get("key"))
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var payload struct {
		Contents []struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	require.Len(t, payload.Contents, 1)
	assert.Equal(t, "write a follow-up", payload.Contents[0].Parts[0].Text)
}

func TestChatBuildRequest(t *testing.T) {
	a := &OpenAIAdapter{APIKey: "secret", BaseURL: "https://example.test"}
	req, err := a.BuildRequest(context.Background(), "write a follow-up", Options{Temperature: 0.7, MaxTokens: 512})
	require.NoError(t, err)

	assert.Equal(t, "/v1/chat/completions", req.URL.Path)
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))

	body, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	var payload struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "gpt-4o-mini", payload.Model)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "write a follow-up", payload.Messages[0].Content)
}

func TestGeminiExtractText(t *testing.T) {
	a := &GeminiAdapter{}

	text, err := a.ExtractText([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello"}]}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = a.ExtractText([]byte(`{"candidates":[]}`))
	var shapeErr *ResponseShapeError
	assert.ErrorAs(t, err, &shapeErr)

	_, err = a.ExtractText([]byte(`not json`))
	assert.ErrorAs(t, err, &shapeErr)
}

func TestChatExtractText(t *testing.T) {
	a := &DeepSeekAdapter{}

	text, err := a.ExtractText([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = a.ExtractText([]byte(`{"choices":[]}`))
	var shapeErr *ResponseShapeError
	assert.ErrorAs(t, err, &shapeErr)
	assert.Equal(t, ProviderDeepSeek, shapeErr.Provider)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

// internal/ai/gateway/providers_test.go
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sailmatch-workers/internal/common/config"
)

func TestOpenAIProviderInvoke(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"scored 7"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(config.ProviderCredentials{APIKey: "test-key", BaseURL: server.URL})
	text, err := p.Invoke(context.Background(), "gpt-4o-mini", &invocation{
		Prompt:      "rate this skill",
		Temperature: 0.2,
		MaxTokens:   256,
	})
	require.NoError(t, err)
	assert.Equal(t, "scored 7", text)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, 0.2, captured["temperature"])
}

func TestOpenAIProviderAttachesImageAsDataURL(t *testing.T) {
	var captured struct {
		Messages []struct {
			Content []map[string]interface{} `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	_, err := p.Invoke(context.Background(), "gpt-4o", &invocation{
		Prompt:    "check this passport",
		MaxTokens: 256,
		Images:    []ImageAttachment{{Data: "aGVsbG8=", MimeType: "image/jpeg"}},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 1)
	require.Len(t, captured.Messages[0].Content, 2)
	imagePart := captured.Messages[0].Content[1]
	assert.Equal(t, "image_url", imagePart["type"])
	imageURL := imagePart["image_url"].(map[string]interface{})
	assert.Equal(t, "data:image/jpeg;base64,aGVsbG8=", imageURL["url"])
}

func TestOpenAIProviderErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	_, err := p.Invoke(context.Background(), "gpt-4o-mini", &invocation{Prompt: "p", MaxTokens: 64})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestAnthropicProviderInvoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))

		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"first"},{"type":"text","text":" second"}]}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(config.ProviderCredentials{APIKey: "test-key", BaseURL: server.URL})
	text, err := p.Invoke(context.Background(), "claude-sonnet", &invocation{Prompt: "p", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "first second", text)
}

func TestAnthropicProviderImageBlock(t *testing.T) {
	var captured struct {
		Messages []struct {
			Content []map[string]interface{} `json:"content"`
		} `json:"messages"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"ok"}]}`))
	}))
	defer server.Close()

	p := NewAnthropicProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	_, err := p.Invoke(context.Background(), "claude-sonnet", &invocation{
		Prompt:    "compare photos",
		MaxTokens: 64,
		Images: []ImageAttachment{
			{Data: "cGFzc3BvcnQ=", MimeType: "image/jpeg"},
			{Data: "cGhvdG8=", MimeType: "image/png"},
		},
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages[0].Content, 3)
	source := captured.Messages[0].Content[2]["source"].(map[string]interface{})
	assert.Equal(t, "base64", source["type"])
	assert.Equal(t, "image/png", source["media_type"])
	assert.Equal(t, "cGhvdG8=", source["data"])
}

func TestGeminiProviderFallsBackToV1(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/v1beta/models/gemini-pro:generateContent" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"model not found in v1beta"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"from v1"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	text, err := p.Invoke(context.Background(), "gemini-pro", &invocation{Prompt: "p", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "from v1", text)
	assert.Equal(t, []string{
		"/v1beta/models/gemini-pro:generateContent",
		"/v1/models/gemini-pro:generateContent",
	}, paths)
}

func TestGeminiProviderBothVersionsFail(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	_, err := p.Invoke(context.Background(), "gemini-pro", &invocation{Prompt: "p", MaxTokens: 64})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Contains(t, err.Error(), "v1:")
}

func TestGeminiProviderConcatenatesParts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"},{"text":"c"}]}}]}`))
	}))
	defer server.Close()

	p := NewGeminiProvider(config.ProviderCredentials{APIKey: "k", BaseURL: server.URL})
	text, err := p.Invoke(context.Background(), "gemini-pro", &invocation{Prompt: "p", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "abc", text)
}

func TestProvidersConfigured(t *testing.T) {
	assert.False(t, NewOpenAIProvider(config.ProviderCredentials{}).Configured())
	assert.True(t, NewOpenAIProvider(config.ProviderCredentials{APIKey: "x"}).Configured())
	assert.False(t, NewAnthropicProvider(config.ProviderCredentials{}).Configured())
	assert.False(t, NewGeminiProvider(config.ProviderCredentials{}).Configured())
}

// internal/ai/gateway/gemini.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sailmatch-workers/internal/common/config"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// geminiAPIVersions is the order in which the generateContent endpoint is
// tried. Newer models only exist under v1beta while older ones moved to v1,
// so a pair is exhausted only after both versions failed.
var geminiAPIVersions = []string{"v1beta", "v1"}

// GeminiProvider calls the generateContent API. Images use inline_data parts.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGeminiProvider(creds config.ProviderCredentials) *GeminiProvider {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiProvider{
		apiKey:  creds.APIKey,
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Configured() bool { return p.apiKey != "" }

func (p *GeminiProvider) Invoke(ctx context.Context, model string, inv *invocation) (string, error) {
	var lastErr error
	for _, version := range geminiAPIVersions {
		text, err := p.invokeVersion(ctx, version, model, inv)
		if err == nil {
			return text, nil
		}
		lastErr = fmt.Errorf("%s: %w", version, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

func (p *GeminiProvider) invokeVersion(ctx context.Context, version, model string, inv *invocation) (string, error) {
	parts := []map[string]interface{}{
		{"text": inv.Prompt},
	}
	for _, img := range inv.Images {
		parts = append(parts, map[string]interface{}{
			"inline_data": map[string]string{
				"mime_type": img.MimeType,
				"data":      img.Data,
			},
		})
	}

	requestBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": parts},
		},
		"generationConfig": map[string]interface{}{
			"temperature":     inv.Temperature,
			"maxOutputTokens": inv.MaxTokens,
		},
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s", p.baseURL, version, model, p.apiKey)

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, string(snippet))
	}

	var apiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResponse.Candidates) == 0 {
		return "", fmt.Errorf("response has no candidates")
	}

	var sb strings.Builder
	for _, part := range apiResponse.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

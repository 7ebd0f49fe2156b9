// internal/ai/gateway/openai.go
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"sailmatch-workers/internal/common/config"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIProvider calls the chat completions API. Images ride along as
// data-URL image_url content parts.
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAIProvider(creds config.ProviderCredentials) *OpenAIProvider {
	baseURL := creds.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIProvider{
		apiKey:  creds.APIKey,
		baseURL: baseURL,
		// No client timeout: the gateway's per-attempt context is the deadline.
		client: &http.Client{},
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) Configured() bool { return p.apiKey != "" }

func (p *OpenAIProvider) Invoke(ctx context.Context, model string, inv *invocation) (string, error) {
	var content interface{} = inv.Prompt
	if len(inv.Images) > 0 {
		parts := []map[string]interface{}{
			{"type": "text", "text": inv.Prompt},
		}
		for _, img := range inv.Images {
			parts = append(parts, map[string]interface{}{
				"type": "image_url",
				"image_url": map[string]string{
					"url": fmt.Sprintf("data:%s;base64,%s", img.MimeType, img.Data),
				},
			})
		}
		content = parts
	}

	requestBody := map[string]interface{}{
		"model": model,
		"messages": []map[string]interface{}{
			{"role": "user", "content": content},
		},
		"temperature": inv.Temperature,
		"max_tokens":  inv.MaxTokens,
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}

	return apiResponse.Choices[0].Message.Content, nil
}

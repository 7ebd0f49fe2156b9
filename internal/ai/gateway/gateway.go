// internal/ai/gateway/gateway.go
package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"sailmatch-workers/internal/common/config"
	"sailmatch-workers/internal/common/errors"
	"sailmatch-workers/internal/common/logger"
	"sailmatch-workers/internal/common/metrics"
)

// Request is a single AI invocation. UseCase selects the configured
// provider/model fallback chain and the call defaults; Temperature overrides
// the use-case default when set.
type Request struct {
	UseCase     string            `json:"useCase"`
	Prompt      string            `json:"prompt"`
	Temperature *float64          `json:"temperature,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Images      []ImageAttachment `json:"images,omitempty"`
}

// ImageAttachment carries base64 image data for vision-capable calls
// (passport and photo validation, which sends two images in one request).
// Mapping it onto a provider's multimodal payload is the adapter's job, not
// the gateway's.
type ImageAttachment struct {
	Data     string `json:"data"` // base64, no data-URL prefix
	MimeType string `json:"mimeType"`
}

// Response reports which (provider, model) pair produced the text.
type Response struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

// invocation is a Request with the use-case defaults resolved in.
type invocation struct {
	Prompt      string
	Temperature float64
	MaxTokens   int
	Images      []ImageAttachment
}

// Provider is one upstream AI API. Invoke must honor ctx cancellation and
// return the raw text body; an empty text is treated as a failure by the
// gateway.
type Provider interface {
	Name() string
	Configured() bool
	Invoke(ctx context.Context, model string, inv *invocation) (string, error)
}

// Gateway routes AI calls through an ordered per-use-case fallback chain.
// The route table is built once from config and never mutated.
type Gateway struct {
	providers map[string]Provider
	useCases  map[string]config.UseCaseConfig
	logger    logger.Logger
}

func New(cfg *config.AIConfig, log logger.Logger) *Gateway {
	providers := map[string]Provider{
		"openai":    NewOpenAIProvider(cfg.Providers.OpenAI),
		"anthropic": NewAnthropicProvider(cfg.Providers.Anthropic),
		"gemini":    NewGeminiProvider(cfg.Providers.Gemini),
	}

	return &Gateway{
		providers: providers,
		useCases:  cfg.UseCases,
		logger:    log.WithFields(map[string]interface{}{"component": "ai-gateway"}),
	}
}

// Call tries each configured (provider, model) pair in order until one
// returns non-empty text. There is no same-pair retry: a pair that failed is
// skipped for the remainder of this call. The whole chain runs under a
// single deadline so worst-case latency stays bounded.
func (g *Gateway) Call(ctx context.Context, req *Request) (*Response, error) {
	uc, ok := g.useCases[req.UseCase]
	if !ok || len(uc.Routes) == 0 {
		return nil, errors.NewAIConfigurationError(req.UseCase)
	}

	inv := g.resolve(req, uc)

	ctx, cancel := context.WithTimeout(ctx, config.GetDuration(uc.ChainTimeout))
	defer cancel()

	attemptTimeout := config.GetDuration(uc.AttemptTimeout)
	var attempts []string

	for _, route := range uc.Routes {
		provider, exists := g.providers[route.Provider]
		if !exists {
			attempts = append(attempts, fmt.Sprintf("%s/%s: unknown provider", route.Provider, route.Model))
			continue
		}
		if !provider.Configured() {
			g.logger.Debug("skipping provider without credential", map[string]interface{}{
				"provider": route.Provider,
				"useCase":  req.UseCase,
			})
			continue
		}

		start := time.Now()
		text, err := g.invokeOnce(ctx, provider, route.Model, inv, attemptTimeout)
		if err == nil {
			metrics.AIGatewayAttempts.WithLabelValues(route.Provider, "success").Inc()
			g.logger.Info("ai call succeeded", map[string]interface{}{
				"useCase":    req.UseCase,
				"provider":   route.Provider,
				"model":      route.Model,
				"durationMs": time.Since(start).Milliseconds(),
			})
			return &Response{Text: text, Provider: route.Provider, Model: route.Model}, nil
		}

		metrics.AIGatewayAttempts.WithLabelValues(route.Provider, "failure").Inc()
		attempts = append(attempts, fmt.Sprintf("%s/%s: %v", route.Provider, route.Model, err))
		g.logger.Warn("ai call failed, advancing to next route", map[string]interface{}{
			"useCase":  req.UseCase,
			"provider": route.Provider,
			"model":    route.Model,
			"error":    err.Error(),
		})

		// The chain deadline expired: later attempts would fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	if len(attempts) == 0 {
		// Routes existed but every provider lacked a credential.
		return nil, errors.NewAIConfigurationError(req.UseCase)
	}
	return nil, errors.NewAIChainExhaustedError(req.UseCase, attempts)
}

func (g *Gateway) invokeOnce(ctx context.Context, provider Provider, model string, inv *invocation, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := provider.Invoke(attemptCtx, model, inv)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty response body")
	}
	return text, nil
}

func (g *Gateway) resolve(req *Request, uc config.UseCaseConfig) *invocation {
	temperature := uc.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := uc.MaxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	return &invocation{
		Prompt:      req.Prompt,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Images:      req.Images,
	}
}

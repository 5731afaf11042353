package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/bloodlinkbd/bloodlink-api/internal/config"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/domain"
	"github.com/bloodlinkbd/bloodlink-api/internal/core/ports"
)

// GeminiGenerator runs flow prompts against a Gemini model with JSON output
// constrained to the prompt's schema.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

var _ ports.Generator = (*GeminiGenerator)(nil)

func NewGeminiGenerator(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, domain.ErrFlowDisabled
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  model,
		cb:     config.NewCircuitBreaker(config.BreakerGemini, logger),
		logger: logger,
	}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt ports.Prompt) (string, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   prompt.Schema,
	}

	out, err := g.cb.Execute(func() (interface{}, error) {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt.Text), cfg)
		if err != nil {
			return nil, err
		}
		return resp.Text(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: gemini circuit open", domain.ErrUnavailable)
		}
		g.logger.Error("gemini generate failed", zap.String("flow", prompt.Name), zap.Error(err))
		return "", fmt.Errorf("%w: gemini: %v", domain.ErrUnavailable, err)
	}

	text := out.(string)
	if text == "" {
		return "", fmt.Errorf("%w: empty response", domain.ErrInvalidFlowOutput)
	}
	return text, nil
}

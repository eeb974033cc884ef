// Package ai talks to the generative AI API: receipt extraction and audio
// transcription.
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"google.golang.org/genai"
)

var (
	ErrDisabled      = errors.New("ai: completion API is not configured")
	ErrEmptyResponse = errors.New("ai: empty response")
	ErrInvalidJSON   = errors.New("ai: response is not valid JSON")
)

// generator produces a JSON completion from parts
type generator interface {
	GenerateJSON(ctx context.Context, model, system string, parts []*genai.Part) (string, error)
}

// GenAIGenerator calls the Gemini API
type GenAIGenerator struct {
	client *genai.Client
}

// NewGenAIGenerator creates a client for the Gemini API
func NewGenAIGenerator(ctx context.Context, cfg config.AIConfig) (*GenAIGenerator, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return nil, ErrDisabled
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client}, nil
}

// GenerateJSON asks the model for a JSON answer at temperature 0
func (g *GenAIGenerator) GenerateJSON(ctx context.Context, model, system string, parts []*genai.Part) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	}
	if system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	resp, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, cfg)
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

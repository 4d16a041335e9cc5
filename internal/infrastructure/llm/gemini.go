package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const defaultGeminiModel = "gemini-2.5-flash"

// GeminiClient implements ports.Completer on the Google genai SDK.
type GeminiClient struct {
	client       *genai.Client
	model        string
	systemPrompt string
}

var _ ports.Completer = (*GeminiClient)(nil)

// NewGeminiClient builds the SDK client; the API key is mandatory.
func NewGeminiClient(ctx context.Context, cfg config.CompletionConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini client: %w", domain.ErrNotConfigured)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	model := cfg.Model
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = defaultGeminiModel
	}
	return &GeminiClient{client: client, model: model, systemPrompt: cfg.SystemPrompt}, nil
}

// Complete runs one GenerateContent call and returns the first candidate text.
func (g *GeminiClient) Complete(ctx context.Context, prompt string, opts ports.CompleteOptions) (string, error) {
	system := opts.System
	if system == "" {
		system = g.systemPrompt
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: safePrompt(system)}}},
	}
	if opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if opts.Temperature > 0 {
		t := float32(opts.Temperature)
		cfg.Temperature = &t
	}
	if opts.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini complete: %w", err)
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini returned no candidates: %w", domain.ErrMalformedResponse)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

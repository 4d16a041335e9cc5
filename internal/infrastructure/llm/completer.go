package llm

import (
	"context"
	"fmt"
	"strings"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// New selects the completion adapter named by cfg.Provider.
// A missing API key yields domain.ErrNotConfigured.
func New(ctx context.Context, cfg config.CompletionConfig) (ports.Completer, error) {
	if cfg.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	switch strings.ToLower(cfg.Provider) {
	case "", "openai", "chatgpt":
		return NewChatGPTClient(cfg), nil
	case "gemini", "google":
		return NewGeminiClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown completion provider %q", cfg.Provider)
}

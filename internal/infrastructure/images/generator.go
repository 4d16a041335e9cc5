package images

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Generator talks to an external image-generation service.
// Both {"url": ...} and OpenAI-style {"data":[{"url": ...}]} responses are understood.
type Generator struct {
	endpoint string
	apiKey   string
	size     string
	http     *http.Client
}

var _ ports.ImageGenerator = (*Generator)(nil)

// NewGenerator creates a reusable HTTP client; an empty endpoint means not configured.
func NewGenerator(cfg config.ImagesConfig) (*Generator, error) {
	if cfg.GeneratorURL == "" {
		return nil, fmt.Errorf("image generator: %w", domain.ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Generator{
		endpoint: cfg.GeneratorURL,
		apiKey:   cfg.APIKey,
		size:     "1792x1024",
		http:     &http.Client{Timeout: timeout},
	}, nil
}

// Generate requests one image for the prompt and returns its URL.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	payload := map[string]any{
		"prompt": prompt,
		"n":      1,
		"size":   g.size,
	}

	var resp struct {
		URL  string `json:"url"`
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := g.post(ctx, payload, &resp); err != nil {
		return "", err
	}

	if resp.URL != "" {
		return resp.URL, nil
	}
	if len(resp.Data) > 0 && resp.Data[0].URL != "" {
		return resp.Data[0].URL, nil
	}
	return "", fmt.Errorf("image generator returned no url: %w", domain.ErrMalformedResponse)
}

func (g *Generator) post(ctx context.Context, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", domain.ErrMalformedResponse)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}

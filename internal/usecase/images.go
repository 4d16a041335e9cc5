package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"EditorialDesk/internal/ports"
)

// ImageChain acquires an image: source image, then generated, then placeholder.
type ImageChain struct {
	generator   ports.ImageGenerator
	placeholder ports.Placeholder
	logger      *slog.Logger
}

// NewImageChain accepts nil stages; they are skipped.
func NewImageChain(gen ports.ImageGenerator, ph ports.Placeholder, logger *slog.Logger) *ImageChain {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageChain{generator: gen, placeholder: ph, logger: logger}
}

// Acquire never fails; an empty URL means every stage came up empty.
func (c *ImageChain) Acquire(ctx context.Context, sourceImage, title, excerpt string) string {
	if u := strings.TrimSpace(sourceImage); u != "" {
		return u
	}
	if c == nil {
		return ""
	}
	if c.generator != nil {
		if u := c.stage(ctx, "generate", func() (string, error) {
			return c.generator.Generate(ctx, imagePrompt(title, excerpt))
		}); u != "" {
			return u
		}
	}
	if c.placeholder != nil {
		return c.stage(ctx, "placeholder", func() (string, error) {
			return c.placeholder.Placeholder(ctx, title)
		})
	}
	return ""
}

func (c *ImageChain) stage(ctx context.Context, name string, fn func() (string, error)) (url string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WarnContext(ctx, "image stage panicked", "stage", name, "panic", r)
			url = ""
		}
	}()
	u, err := fn()
	if err != nil {
		c.logger.WarnContext(ctx, "image stage failed", "stage", name, "error", err)
		return ""
	}
	return strings.TrimSpace(u)
}

func imagePrompt(title, excerpt string) string {
	prompt := fmt.Sprintf("Editorial photo illustrating: %s", title)
	if excerpt != "" {
		prompt += ". " + truncateRunes(excerpt, 300)
	}
	return prompt + ". No text, no logos."
}

package images

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Template renders images by expanding a URL template such as
// "https://cards.example/render?title={title}&url={url}".
type Template struct {
	pattern string
}

var (
	_ ports.Placeholder       = (*Template)(nil)
	_ ports.ShareCardRenderer = (*Template)(nil)
)

// NewTemplate validates that pattern is an absolute URL.
func NewTemplate(pattern string) (*Template, error) {
	if pattern == "" {
		return nil, domain.ErrNotConfigured
	}
	probe := strings.NewReplacer("{title}", "x", "{url}", "x").Replace(pattern)
	u, err := url.Parse(probe)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("image template %q is not an absolute url", pattern)
	}
	return &Template{pattern: pattern}, nil
}

// Placeholder renders a title-only image.
func (t *Template) Placeholder(_ context.Context, title string) (string, error) {
	return t.expand(title, ""), nil
}

// ShareCard renders a card for a published article.
func (t *Template) ShareCard(_ context.Context, title, permalink string) (string, error) {
	return t.expand(title, permalink), nil
}

func (t *Template) expand(title, link string) string {
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > 120 {
		title = string(r[:120])
	}
	return strings.NewReplacer(
		"{title}", url.QueryEscape(title),
		"{url}", url.QueryEscape(link),
	).Replace(t.pattern)
}

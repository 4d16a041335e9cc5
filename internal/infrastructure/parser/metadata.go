package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"EditorialDesk/internal/ports"
)

// MetadataFetcher extracts title, description and preview image from a shared link.
type MetadataFetcher struct {
	client *http.Client
}

var _ ports.MetadataFetcher = (*MetadataFetcher)(nil)

// NewMetadataFetcher wires an HTTP client; nil uses a 20s timeout client.
func NewMetadataFetcher(client *http.Client) *MetadataFetcher {
	return &MetadataFetcher{client: defaultClient(client)}
}

// Fetch reads the page and prefers OpenGraph tags over plain HTML ones.
func (m *MetadataFetcher) Fetch(ctx context.Context, target string) (ports.PageMetadata, error) {
	base, err := url.Parse(target)
	if err != nil || base.Host == "" {
		return ports.PageMetadata{}, fmt.Errorf("invalid url %q", target)
	}

	body, err := open(ctx, m.client, target)
	if err != nil {
		return ports.PageMetadata{}, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return ports.PageMetadata{}, fmt.Errorf("parse document: %w", err)
	}

	meta := ports.PageMetadata{
		URL:         target,
		Title:       firstNonEmpty(metaContent(doc, "og:title"), metaContent(doc, "twitter:title"), doc.Find("title").First().Text()),
		Description: firstNonEmpty(metaContent(doc, "og:description"), metaContent(doc, "description"), doc.Find("article p, main p, p").First().Text()),
	}
	if img := firstNonEmpty(metaContent(doc, "og:image"), metaContent(doc, "twitter:image")); img != "" {
		meta.ImageURL = resolve(base, img)
	}
	if canonical := metaContent(doc, "og:url"); canonical != "" {
		meta.URL = resolve(base, canonical)
	}
	if meta.Title == "" {
		return meta, fmt.Errorf("page %s has no title", target)
	}
	return meta, nil
}

func metaContent(doc *goquery.Document, key string) string {
	var value string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		if strings.EqualFold(prop, key) || strings.EqualFold(name, key) {
			value, _ = s.Attr("content")
			value = strings.TrimSpace(value)
			return value == ""
		}
		return true
	})
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}

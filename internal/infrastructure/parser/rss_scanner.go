package parser

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
	"EditorialDesk/internal/scanner"
)

// RSSScanner reads RSS/Atom/JSON feeds.
type RSSScanner struct {
	client *http.Client
}

var _ ports.FeedProbe = (*RSSScanner)(nil)

// NewRSSScanner wires an HTTP client; nil uses a 20s timeout client.
func NewRSSScanner(client *http.Client) *RSSScanner {
	return &RSSScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (s *RSSScanner) Name() string {
	return "rss"
}

// Scan returns feed entries published after req.Since in document order.
func (s *RSSScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("feed %s has no url", req.FeedName)
	}

	feed, err := s.parse(ctx, req.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
	}

	items := make([]domain.FeedItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		item := toFeedItem(entry, req)
		if item.Title == "" {
			continue
		}
		if !req.Since.IsZero() && !item.PublishedAt.IsZero() && item.PublishedAt.Before(req.Since) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// Probe checks that url is a readable feed and returns its entries.
func (s *RSSScanner) Probe(ctx context.Context, url string) ([]domain.FeedItem, error) {
	return s.Scan(ctx, scanner.Request{FeedName: url, URL: url})
}

func (s *RSSScanner) parse(ctx context.Context, url string) (*gofeed.Feed, error) {
	body, err := open(ctx, s.client, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	feed, err := gofeed.NewParser().Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func toFeedItem(entry *gofeed.Item, req scanner.Request) domain.FeedItem {
	item := domain.FeedItem{
		FeedID:    req.FeedName,
		GUID:      strings.TrimSpace(entry.GUID),
		Title:     strings.TrimSpace(entry.Title),
		Link:      strings.TrimSpace(entry.Link),
		Excerpt:   plainText(entry.Description),
		Territory: req.Territory,
		Status:    domain.FeedItemNew,
	}
	if item.GUID == "" {
		item.GUID = item.Link
	}
	if item.Excerpt == "" {
		item.Excerpt = plainText(entry.Content)
	}

	switch {
	case entry.PublishedParsed != nil:
		item.PublishedAt = entry.PublishedParsed.UTC()
	case entry.UpdatedParsed != nil:
		item.PublishedAt = entry.UpdatedParsed.UTC()
	default:
		item.PublishedAt = time.Now().UTC()
	}

	item.ImageURL = entryImage(entry)
	if item.Territory == "" && len(entry.Categories) > 0 {
		item.Territory = entry.Categories[0]
	}
	return item
}

func entryImage(entry *gofeed.Item) string {
	if entry.Image != nil && entry.Image.URL != "" {
		return entry.Image.URL
	}
	for _, enc := range entry.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}
	if media, ok := entry.Extensions["media"]; ok {
		for _, key := range []string{"content", "thumbnail"} {
			for _, ext := range media[key] {
				if u := ext.Attrs["url"]; u != "" {
					return u
				}
			}
		}
	}
	return ""
}

// plainText strips markup from feed descriptions.
func plainText(html string) string {
	html = strings.TrimSpace(html)
	if html == "" || !strings.Contains(html, "<") {
		return html
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

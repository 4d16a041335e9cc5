package parser

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/scanner"
)

var dateExpr = regexp.MustCompile(`\d{1,2} [A-Za-z]{3} \d{4}`)

// HTMLScanner crawls listing pages with configurable selectors.
//
// Options: item, title, link, excerpt, image, date (CSS selectors),
// pageParam and pages (pagination, one page by default).
type HTMLScanner struct {
	client *http.Client
}

// NewHTMLScanner wires an HTTP client; nil uses a 20s timeout client.
func NewHTMLScanner(client *http.Client) *HTMLScanner {
	return &HTMLScanner{client: defaultClient(client)}
}

// Name identifies the strategy inside the registry.
func (h *HTMLScanner) Name() string {
	return "html"
}

type listingSelectors struct {
	item, title, link, excerpt, image, date string
}

func selectorsFrom(req scanner.Request) listingSelectors {
	return listingSelectors{
		item:    req.Option("item", "article"),
		title:   req.Option("title", "h2, h3"),
		link:    req.Option("link", "a[href]"),
		excerpt: req.Option("excerpt", "p"),
		image:   req.Option("image", "img"),
		date:    req.Option("date", "time"),
	}
}

// Scan walks listing pages until an entry older than req.Since shows up or pages run out.
func (h *HTMLScanner) Scan(ctx context.Context, req scanner.Request) ([]domain.FeedItem, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("feed %s has no url", req.FeedName)
	}

	pages, _ := strconv.Atoi(req.Option("pages", "1"))
	if pages < 1 {
		pages = 1
	}
	pageParam := req.Option("pageParam", "page")
	sel := selectorsFrom(req)

	base, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: invalid url: %w", req.FeedName, err)
	}

	var results []domain.FeedItem
	seen := map[string]struct{}{}

	for page := 1; page <= pages; page++ {
		pageURL := req.URL
		if page > 1 {
			pageURL, err = buildPageURL(req.URL, pageParam, page)
			if err != nil {
				return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
			}
		}

		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", req.FeedName, err)
		}

		pageItems, shouldContinue := extractListing(doc, base, sel, req)
		for _, item := range pageItems {
			if _, ok := seen[item.GUID]; ok {
				continue
			}
			seen[item.GUID] = struct{}{}
			results = append(results, item)
		}
		if !shouldContinue {
			break
		}
	}

	return results, nil
}

func (h *HTMLScanner) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := open(ctx, h.client, pageURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

func extractListing(doc *goquery.Document, base *url.URL, sel listingSelectors, req scanner.Request) ([]domain.FeedItem, bool) {
	var (
		collected    []domain.FeedItem
		continueScan = true
		processed    int
	)

	doc.Find(sel.item).EachWithBreak(func(_ int, node *goquery.Selection) bool {
		processed++
		item, ok := parseListingEntry(node, base, sel, req)
		if !ok {
			return true
		}
		if !req.Since.IsZero() && item.PublishedAt.Before(req.Since) {
			continueScan = false
			return false
		}
		collected = append(collected, item)
		return true
	})

	if processed == 0 {
		continueScan = false
	}
	return collected, continueScan
}

func parseListingEntry(node *goquery.Selection, base *url.URL, sel listingSelectors, req scanner.Request) (domain.FeedItem, bool) {
	title := strings.TrimSpace(node.Find(sel.title).First().Text())
	anchor := node.Find(sel.link).First()
	if title == "" {
		title = strings.TrimSpace(anchor.Text())
	}
	href, _ := anchor.Attr("href")
	if title == "" || href == "" {
		return domain.FeedItem{}, false
	}
	link := resolve(base, href)

	image := ""
	if img := node.Find(sel.image).First(); img.Length() > 0 {
		src, ok := img.Attr("src")
		if !ok || src == "" {
			src, _ = img.Attr("data-src")
		}
		if src != "" {
			image = resolve(base, src)
		}
	}

	return domain.FeedItem{
		FeedID:      req.FeedName,
		GUID:        link,
		Title:       title,
		Excerpt:     strings.Join(strings.Fields(node.Find(sel.excerpt).First().Text()), " "),
		Link:        link,
		ImageURL:    image,
		Territory:   req.Territory,
		PublishedAt: parseListingDate(node.Find(sel.date).First()),
		Status:      domain.FeedItemNew,
	}, true
}

func parseListingDate(node *goquery.Selection) time.Time {
	if raw, ok := node.Attr("datetime"); ok {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(raw)); err == nil {
			return t.UTC()
		}
	}
	if match := dateExpr.FindString(node.Text()); match != "" {
		if t, err := time.Parse("2 Jan 2006", match); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func buildPageURL(base, param string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid listing url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set(param, strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

const discoverySystem = "You suggest syndication feeds (RSS or Atom URLs) for a newsroom. " +
	`Reply with JSON {"feeds":[{"name","url","territory"}]}. Do not repeat the known feeds.`

// DiscoveredFeed is a probed, readable feed suggestion.
type DiscoveredFeed struct {
	Name      string
	URL       string
	Territory string
	Items     int
}

// SourceDiscovery asks the completer for new feeds and keeps the ones that parse.
type SourceDiscovery struct {
	completer ports.Completer
	probe     ports.FeedProbe
	queue     *Queue
	known     []config.FeedConfig
	notifier  *Notifier
	journal   *journal.Journal
	logger    *slog.Logger
}

// NewSourceDiscovery builds the job over the configured feed list.
func NewSourceDiscovery(c ports.Completer, probe ports.FeedProbe, q *Queue, known []config.FeedConfig, n *Notifier, j *journal.Journal, logger *slog.Logger) *SourceDiscovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &SourceDiscovery{completer: c, probe: probe, queue: q, known: known, notifier: n, journal: j, logger: logger}
}

type discoveryReply struct {
	Feeds []struct {
		Name      string `json:"name"`
		URL       string `json:"url"`
		Territory string `json:"territory"`
	} `json:"feeds"`
}

// Run probes each suggestion; the newest item of every valid feed is queued
// as a candidate and the operator receives the list.
func (s *SourceDiscovery) Run(ctx context.Context) ([]DiscoveredFeed, error) {
	if s.completer == nil || s.probe == nil {
		s.logger.InfoContext(ctx, "source discovery skipped, not configured")
		return nil, nil
	}

	known := make(map[string]bool, len(s.known))
	var prompt strings.Builder
	prompt.WriteString("Known feeds:\n")
	for _, f := range s.known {
		known[strings.TrimRight(f.URL, "/")] = true
		fmt.Fprintf(&prompt, "- %s (%s) %s\n", f.Name, f.Territory, f.URL)
	}

	raw, err := s.completer.Complete(ctx, prompt.String(), ports.CompleteOptions{
		System:      discoverySystem,
		MaxTokens:   800,
		Temperature: 0.6,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery completion: %w", err)
	}
	var reply discoveryReply
	if err := decodeObject(raw, &reply); err != nil {
		return nil, &MalformedError{Raw: raw, Err: errors.Join(domain.ErrMalformedResponse, err)}
	}

	var found []DiscoveredFeed
	for _, f := range reply.Feeds {
		url := strings.TrimSpace(f.URL)
		if url == "" || known[strings.TrimRight(url, "/")] {
			continue
		}
		known[strings.TrimRight(url, "/")] = true

		items, err := s.probe.Probe(ctx, url)
		if err != nil || len(items) == 0 {
			s.logger.DebugContext(ctx, "feed suggestion rejected", "url", url, "error", err)
			continue
		}
		found = append(found, DiscoveredFeed{Name: f.Name, URL: url, Territory: f.Territory, Items: len(items)})

		newest := items[0]
		for _, it := range items[1:] {
			if it.PublishedAt.After(newest.PublishedAt) {
				newest = it
			}
		}
		if _, err := s.queue.Enqueue(ctx, domain.Candidate{
			Title:     newest.Title,
			Summary:   newest.Excerpt,
			Territory: f.Territory,
			SourceURL: newest.Link,
			Priority:  5,
		}); err != nil && !errors.Is(err, domain.ErrEmptyTitle) {
			return found, err
		}
	}

	s.journal.Info(ctx, "discovery.done", "", journal.Fields{"suggested": len(reply.Feeds), "valid": len(found)})
	if len(found) > 0 {
		var b strings.Builder
		b.WriteString("New feed candidates:\n")
		for _, f := range found {
			fmt.Fprintf(&b, "• %s %s (%d items)\n", f.Name, f.URL, f.Items)
		}
		s.notifier.Notify(ctx, b.String())
	}
	return found, nil
}

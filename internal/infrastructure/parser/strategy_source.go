package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
	"EditorialDesk/internal/scanner"
)

// StrategySource implements FeedSource via registered scanner strategies.
type StrategySource struct {
	registry *scanner.Registry
	feeds    []config.FeedConfig
	lookback time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

var _ ports.FeedSource = (*StrategySource)(nil)

// NewStrategySource wires scanner registry with config-defined feeds.
func NewStrategySource(reg *scanner.Registry, feeds []config.FeedConfig, lookback time.Duration, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		feeds:    feeds,
		lookback: lookback,
		logger:   log,
		now:      time.Now,
	}
}

// FetchAll runs every configured feed; a failing feed is logged and skipped.
// An error is returned only when every feed failed.
func (s *StrategySource) FetchAll(ctx context.Context) ([]domain.FeedItem, error) {
	if s.registry == nil {
		return nil, fmt.Errorf("scanner registry is not configured")
	}

	s.debug("fetch feeds", "feeds", len(s.feeds))

	var (
		aggregated []domain.FeedItem
		failures   []error
	)
	since := time.Time{}
	if s.lookback > 0 {
		since = s.now().Add(-s.lookback)
	}

	for _, feed := range s.feeds {
		strategy, err := s.registry.Resolve(feed.Scanner)
		if err != nil {
			failures = append(failures, fmt.Errorf("feed %s: %w", feed.Name, err))
			continue
		}

		results, err := strategy.Scan(ctx, scanner.Request{
			FeedName:  feed.Name,
			URL:       feed.URL,
			Territory: feed.Territory,
			Since:     since,
			Options:   feed.Options,
		})
		if err != nil {
			s.warn("feed failed", "feed", feed.Name, "error", err)
			failures = append(failures, fmt.Errorf("scan feed %s: %w", feed.Name, err))
			continue
		}

		for i := range results {
			if results[i].FeedID == "" {
				results[i].FeedID = feed.Name
			}
		}
		s.debug("feed produced items", "feed", feed.Name, "count", len(results))
		aggregated = append(aggregated, results...)
	}

	if len(failures) > 0 && len(failures) == len(s.feeds) {
		return nil, errors.Join(failures...)
	}

	s.debug("strategy source done", "total_items", len(aggregated))
	return aggregated, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

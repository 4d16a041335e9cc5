package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Scored pairs a feed item with its heuristic score.
type Scored struct {
	Item  domain.FeedItem
	Score int
}

// Scorer ranks fresh feed items by completeness and recency.
type Scorer struct {
	feeds ports.FeedRepository
	cfg   config.ScoringConfig
	now   func() time.Time
}

// NewScorer uses the scoring weights from configuration.
func NewScorer(feeds ports.FeedRepository, cfg config.ScoringConfig) *Scorer {
	return &Scorer{feeds: feeds, cfg: cfg, now: time.Now}
}

// Score computes the score of one item at now.
func (s *Scorer) Score(item domain.FeedItem, now time.Time) int {
	score := 0
	if item.Excerpt != "" {
		score += s.cfg.ExcerptWeight
	}
	if item.ImageURL != "" {
		score += s.cfg.ImageWeight
	}
	if item.Link != "" {
		score += s.cfg.LinkWeight
	}

	age := now.Sub(item.PublishedAt)
	switch {
	case age <= s.cfg.FreshWithin:
		score += s.cfg.FreshBonus
	case age <= s.cfg.RecentWithin:
		score += s.cfg.RecentBonus
	default:
		score += s.cfg.StaleBonus
	}
	return score
}

// Rank scores items and returns the best limit, highest first. Ties keep input order.
func (s *Scorer) Rank(items []domain.FeedItem, now time.Time, limit int) []Scored {
	out := make([]Scored, len(items))
	for i, item := range items {
		out[i] = Scored{Item: item, Score: s.Score(item, now)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Select loads the unused items of the configured window and ranks them.
func (s *Scorer) Select(ctx context.Context) ([]Scored, error) {
	now := s.now()
	items, err := s.feeds.Window(ctx, domain.FeedItemWindow{
		Since:     now.Add(-s.cfg.Window),
		Territory: s.cfg.Territory,
		Status:    domain.FeedItemNew,
	})
	if err != nil {
		return nil, fmt.Errorf("load scoring window: %w", err)
	}
	return s.Rank(items, now, s.cfg.Batch), nil
}

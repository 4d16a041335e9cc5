package domain

import "time"

// FeedItemStatus tracks whether an ingested item was consumed.
type FeedItemStatus string

const (
	FeedItemNew  FeedItemStatus = "new"
	FeedItemUsed FeedItemStatus = "used"
)

// FeedItem is a single entry fetched from a syndication source.
type FeedItem struct {
	ID          int64
	FeedID      string
	GUID        string
	Title       string
	Excerpt     string
	Link        string
	ImageURL    string
	Territory   string
	PublishedAt time.Time
	FetchedAt   time.Time
	Status      FeedItemStatus
}

// FeedItemWindow selects items for a scoring run.
type FeedItemWindow struct {
	Since     time.Time
	Territory string
	Status    FeedItemStatus
}

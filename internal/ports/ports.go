package ports

import (
	"context"
	"time"

	"EditorialDesk/internal/domain"
)

// FeedSource pulls fresh items from every configured syndication source.
type FeedSource interface {
	FetchAll(ctx context.Context) ([]domain.FeedItem, error)
}

// FeedRepository persists ingested feed items.
type FeedRepository interface {
	// InsertIfAbsent stores the item unless its guid is already known.
	InsertIfAbsent(ctx context.Context, item domain.FeedItem) (bool, error)
	Window(ctx context.Context, w domain.FeedItemWindow) ([]domain.FeedItem, error)
	MarkUsed(ctx context.Context, ids ...int64) error
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	RecentTitles(ctx context.Context, limit int) ([]string, error)
}

// CandidateRepository persists the cold-content queue.
type CandidateRepository interface {
	Insert(ctx context.Context, c domain.Candidate) (int64, error)
	Get(ctx context.Context, id int64) (domain.Candidate, error)
	// Claim flips the next pending candidate to processing; ok is false when the queue is empty.
	Claim(ctx context.Context) (domain.Candidate, bool, error)
	SetStatus(ctx context.Context, id int64, from, to domain.CandidateStatus) error
	List(ctx context.Context, f domain.CandidateFilter) ([]domain.Candidate, error)
	Count(ctx context.Context, f domain.CandidateFilter) (int64, error)
	ExistsTitle(ctx context.Context, title string) (bool, error)
}

// ApprovalRepository persists pending approvals.
type ApprovalRepository interface {
	Insert(ctx context.Context, a domain.Approval) (int64, error)
	Get(ctx context.Context, id int64) (domain.Approval, error)
	SetMessageID(ctx context.Context, id int64, messageID int) error
	// Transition moves the record from exactly `from` to `to`; domain.ErrStaleStatus otherwise.
	Transition(ctx context.Context, id int64, from, to domain.ApprovalStatus, change domain.ApprovalChange) error
	// AttachPost records the content-store id once; later calls fail with domain.ErrStaleStatus.
	AttachPost(ctx context.Context, id int64, postID int64) error
	UpdateDraft(ctx context.Context, id int64, excerpt, body string) error
	ListByStatus(ctx context.Context, status domain.ApprovalStatus, limit int) ([]domain.Approval, error)
	CountByStatusSince(ctx context.Context, since time.Time) (map[domain.ApprovalStatus]int64, error)
}

// JournalRepository persists the structured event log.
type JournalRepository interface {
	Append(ctx context.Context, e domain.JournalEntry) error
	List(ctx context.Context, q domain.JournalQuery) ([]domain.JournalEntry, int64, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	CountByLevel(ctx context.Context, since time.Time) (map[domain.Level]int64, error)
}

// JobStateRepository remembers when each scheduled job last ran.
type JobStateRepository interface {
	RecordRun(ctx context.Context, job string, at time.Time) error
	LastRuns(ctx context.Context) (map[string]time.Time, error)
}

// CompleteOptions tunes a single completion call.
type CompleteOptions struct {
	System      string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// Completer is the LLM text-completion capability.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
}

// ContentStore persists and renders published articles.
type ContentStore interface {
	CreatePost(ctx context.Context, p domain.Post) (int64, error)
	SetFeaturedImage(ctx context.Context, postID int64, imageURL string) error
	UploadMedia(ctx context.Context, imageURL, caption string) (string, error)
	UpdatePost(ctx context.Context, postID int64, patch domain.PostPatch) error
	GetPost(ctx context.Context, postID int64) (domain.Post, error)
	Permalink(ctx context.Context, postID int64) (string, error)
	RecentPosts(ctx context.Context, limit int) ([]domain.Post, error)
}

// Button is one inline keyboard button.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of inline buttons.
type Keyboard [][]Button

// ChatChannel is the messaging surface the editor works through.
type ChatChannel interface {
	SendMessage(ctx context.Context, chatID int64, text string, kb Keyboard) (int, error)
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb Keyboard) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	// FileURL resolves an uploaded chat file into a downloadable URL.
	FileURL(ctx context.Context, fileID string) (string, error)
}

// ImageGenerator produces an image from a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Placeholder renders a local fallback image for a title.
type Placeholder interface {
	Placeholder(ctx context.Context, title string) (string, error)
}

// ShareCardRenderer renders the auxiliary share card for a published article.
type ShareCardRenderer interface {
	ShareCard(ctx context.Context, title, permalink string) (string, error)
}

// PageMetadata is what a shared link reveals about itself.
type PageMetadata struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
}

// MetadataFetcher extracts title/description/og:image from a URL.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (PageMetadata, error)
}

// FeedProbe validates that a URL is a readable syndication feed.
type FeedProbe interface {
	Probe(ctx context.Context, url string) ([]domain.FeedItem, error)
}

// SessionStore holds per-operator conversation state with expiry.
type SessionStore interface {
	Get(ctx context.Context, operatorID int64) (domain.Session, bool, error)
	Put(ctx context.Context, s domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, operatorID int64) error
}

// Event is a domain event for observers.
type Event struct {
	Type       string
	SubjectID  string
	Payload    map[string]any
	OccurredAt time.Time
}

// EventPublisher emits domain events.
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}

// Distributor pushes a published article to a secondary target.
type Distributor interface {
	Distribute(ctx context.Context, p domain.Published) error
}

// Mailer delivers plain reports by e-mail.
type Mailer interface {
	Send(ctx context.Context, subject, body string) error
}

// Scheduler drives registered jobs at their fire times.
type Scheduler interface {
	Start(ctx context.Context, next func() (time.Time, bool), fire func(time.Time)) error
	Wake()
	Stop(ctx context.Context) error
}

// Inbound is one update from the chat channel, already normalised by the adapter.
type Inbound struct {
	UpdateID     int
	SenderID     int64
	ChatID       int64
	MessageID    int
	Text         string
	PhotoFileID  string
	Caption      string
	CallbackID   string
	CallbackData string
}

// IsCallback reports whether the update is an inline button press.
func (in Inbound) IsCallback() bool {
	return in.CallbackID != ""
}

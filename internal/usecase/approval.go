package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// Callback data prefixes for approval buttons.
const (
	CallbackApproveA = "ap:a:"
	CallbackApproveB = "ap:b:"
	CallbackReject   = "rj:"
	CallbackCaption  = "cap:"
)

// ApprovalDeps wires the approval workflow.
type ApprovalDeps struct {
	Approvals ports.ApprovalRepository
	Channel   ports.ChatChannel
	Store     ports.ContentStore
	Events    ports.EventPublisher
	Hooks     *Hooks
	Journal   *journal.Journal
	Logger    *slog.Logger
	// OperatorChat receives approval cards.
	OperatorChat int64
	AuthorID     int64
}

// Approvals drives drafts through pending → approved → published.
type Approvals struct {
	repo     ports.ApprovalRepository
	channel  ports.ChatChannel
	store    ports.ContentStore
	events   ports.EventPublisher
	hooks    *Hooks
	journal  *journal.Journal
	logger   *slog.Logger
	chatID   int64
	authorID int64
	now      func() time.Time
}

// NewApprovals builds the workflow; Channel, Store, Events and Hooks may be nil.
func NewApprovals(deps ApprovalDeps) *Approvals {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Approvals{
		repo:     deps.Approvals,
		channel:  deps.Channel,
		store:    deps.Store,
		events:   deps.Events,
		hooks:    deps.Hooks,
		journal:  deps.Journal,
		logger:   logger,
		chatID:   deps.OperatorChat,
		authorID: deps.AuthorID,
		now:      time.Now,
	}
}

// Create persists a pending approval for the draft.
func (a *Approvals) Create(ctx context.Context, d domain.Draft, kind domain.ApprovalType, sourceRef string) (domain.Approval, error) {
	if strings.TrimSpace(d.TitleA) == "" {
		return domain.Approval{}, domain.ErrEmptyTitle
	}
	rec := d.Approval(kind, sourceRef)
	rec.CreatedAt = a.now()
	id, err := a.repo.Insert(ctx, rec)
	if err != nil {
		return domain.Approval{}, fmt.Errorf("create approval: %w", err)
	}
	rec.ID = id
	a.journal.Info(ctx, "approval.created", strconv.FormatInt(id, 10), journal.Fields{"type": string(kind), "source": sourceRef})
	return rec, nil
}

// Submit creates the approval and renders it to the operator. A render
// failure leaves the record pending and is only logged.
func (a *Approvals) Submit(ctx context.Context, d domain.Draft, kind domain.ApprovalType, sourceRef string) (domain.Approval, error) {
	rec, err := a.Create(ctx, d, kind, sourceRef)
	if err != nil {
		return domain.Approval{}, err
	}
	if err := a.Render(ctx, &rec); err != nil {
		a.journal.Warn(ctx, "approval.render_failed", strconv.FormatInt(rec.ID, 10), journal.Fields{"error": err})
	}
	return rec, nil
}

// Render sends the approval card and stores the chat message id.
func (a *Approvals) Render(ctx context.Context, rec *domain.Approval) error {
	if a.channel == nil {
		return domain.ErrNotConfigured
	}
	kb := ApprovalKeyboard(*rec)

	var (
		msgID int
		err   error
	)
	if rec.ImageURL != "" {
		msgID, err = a.channel.SendPhoto(ctx, a.chatID, rec.ImageURL, Clamp(ApprovalCard(*rec), CaptionLimit), kb)
	} else {
		msgID, err = a.channel.SendMessage(ctx, a.chatID, Clamp(ApprovalCard(*rec), MessageLimit), kb)
	}
	if err != nil {
		return fmt.Errorf("render approval %d: %w", rec.ID, err)
	}
	if err := a.repo.SetMessageID(ctx, rec.ID, msgID); err != nil {
		return err
	}
	rec.MessageID = msgID
	return nil
}

// ApprovalCard is the text shown with an approval.
func ApprovalCard(rec domain.Approval) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 #%d (%s)\n\n", rec.ID, rec.Type)
	fmt.Fprintf(&b, "A: %s\n", rec.TitleA)
	if rec.TitleB != "" {
		fmt.Fprintf(&b, "B: %s\n", rec.TitleB)
	}
	if rec.Excerpt != "" {
		fmt.Fprintf(&b, "\n%s\n", rec.Excerpt)
	}
	if rec.SourceRef != "" {
		fmt.Fprintf(&b, "\n%s", rec.SourceRef)
	}
	return b.String()
}

// ApprovalKeyboard builds [Approve A][Approve B] [Reject], plus an edit
// caption button for manual photo records.
func ApprovalKeyboard(rec domain.Approval) ports.Keyboard {
	id := strconv.FormatInt(rec.ID, 10)
	kb := ports.Keyboard{
		{{Text: "✅ Approve A", Data: CallbackApproveA + id}, {Text: "✅ Approve B", Data: CallbackApproveB + id}},
		{{Text: "❌ Reject", Data: CallbackReject + id}},
	}
	if rec.Type == domain.ApprovalManual && rec.ImageURL != "" {
		kb = append(kb, []ports.Button{{Text: "✏️ Edit caption", Data: CallbackCaption + id}})
	}
	return kb
}

// Approve resolves a pending record to the chosen variant and publishes it.
// A record that is no longer pending is left alone and reported with Applied false.
func (a *Approvals) Approve(ctx context.Context, id int64, v domain.Variant) (domain.Resolution, error) {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("load approval %d: %w", id, err)
	}
	if rec.Status != domain.ApprovalPending {
		return a.ignored(ctx, rec, "approve"), nil
	}

	title := rec.Title(v)
	now := a.now()
	err = a.repo.Transition(ctx, id, domain.ApprovalPending, v.Status(), domain.ApprovalChange{
		ResolvedTitle: &title,
		ResolvedAt:    &now,
	})
	if errors.Is(err, domain.ErrStaleStatus) {
		return a.reloadIgnored(ctx, id, "approve")
	}
	if err != nil {
		return domain.Resolution{}, err
	}
	rec.Status, rec.ResolvedTitle, rec.ResolvedAt = v.Status(), title, &now

	subject := strconv.FormatInt(id, 10)
	a.journal.Info(ctx, "approval.approved", subject, journal.Fields{"variant": string(v), "title": title})
	a.banner(ctx, rec, fmt.Sprintf("✅ Approved (%s): %s", strings.ToUpper(string(v)), title))

	res := domain.Resolution{ApprovalID: id, Status: rec.Status, Applied: true}
	pub, err := a.Publish(ctx, id)
	if err != nil {
		return res, err
	}
	res.Status, res.PostID = domain.ApprovalPublished, pub.PostID
	return res, nil
}

// Reject closes a pending record without publishing.
func (a *Approvals) Reject(ctx context.Context, id int64) (domain.Resolution, error) {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("load approval %d: %w", id, err)
	}
	if rec.Status != domain.ApprovalPending {
		return a.ignored(ctx, rec, "reject"), nil
	}

	now := a.now()
	err = a.repo.Transition(ctx, id, domain.ApprovalPending, domain.ApprovalRejected, domain.ApprovalChange{ResolvedAt: &now})
	if errors.Is(err, domain.ErrStaleStatus) {
		return a.reloadIgnored(ctx, id, "reject")
	}
	if err != nil {
		return domain.Resolution{}, err
	}
	rec.Status, rec.ResolvedAt = domain.ApprovalRejected, &now

	subject := strconv.FormatInt(id, 10)
	a.journal.Info(ctx, "approval.rejected", subject, nil)
	a.banner(ctx, rec, "❌ Rejected: "+rec.TitleA)
	if a.events != nil {
		err := a.events.Publish(ctx, ports.Event{
			Type:       "approval.rejected",
			SubjectID:  subject,
			Payload:    map[string]any{"title": rec.TitleA, "type": string(rec.Type)},
			OccurredAt: now,
		})
		if err != nil {
			a.logger.WarnContext(ctx, "rejected event not published", "approval", id, "error", err)
		}
	}
	return domain.Resolution{ApprovalID: id, Status: domain.ApprovalRejected, Applied: true}, nil
}

// Publish creates the article for an approved record, marks it published and
// runs the post-publish hooks. An approved record whose article already exists
// is not created twice.
func (a *Approvals) Publish(ctx context.Context, id int64) (domain.Published, error) {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return domain.Published{}, fmt.Errorf("load approval %d: %w", id, err)
	}
	if !rec.Status.Approved() {
		return domain.Published{}, fmt.Errorf("publish approval %d in %s: %w", id, rec.Status, domain.ErrIllegalTransition)
	}
	if a.store == nil {
		return domain.Published{}, fmt.Errorf("publish approval %d: content store: %w", id, domain.ErrNotConfigured)
	}

	subject := strconv.FormatInt(id, 10)
	if rec.PostID == 0 {
		title := rec.ResolvedTitle
		if title == "" {
			title = rec.TitleA
		}
		postID, err := a.store.CreatePost(ctx, domain.Post{
			Title:      title,
			Body:       rec.Body,
			Excerpt:    rec.Excerpt,
			Status:     domain.PostPublish,
			AuthorID:   a.authorID,
			Categories: rec.Categories,
			Tags:       rec.Tags,
		})
		if err != nil {
			a.journal.Error(ctx, "article.create_failed", subject, journal.Fields{"error": err})
			return domain.Published{}, fmt.Errorf("create article for approval %d: %w", id, err)
		}
		if err := a.repo.AttachPost(ctx, id, postID); err != nil {
			return domain.Published{}, err
		}
		rec.PostID = postID

		if rec.ImageURL != "" {
			if err := a.store.SetFeaturedImage(ctx, postID, rec.ImageURL); err != nil {
				a.journal.Warn(ctx, "article.image_failed", subject, journal.Fields{"post_id": postID, "error": err})
			}
		}
	}

	if err := a.repo.Transition(ctx, id, rec.Status, domain.ApprovalPublished, domain.ApprovalChange{}); err != nil {
		return domain.Published{}, err
	}
	rec.Status = domain.ApprovalPublished

	permalink, err := a.store.Permalink(ctx, rec.PostID)
	if err != nil {
		a.logger.WarnContext(ctx, "permalink lookup failed", "post", rec.PostID, "error", err)
	}
	pub := domain.Published{Approval: rec, PostID: rec.PostID, Permalink: permalink}
	a.journal.Info(ctx, "article.published", subject, journal.Fields{"post_id": rec.PostID, "permalink": permalink})

	a.hooks.Run(ctx, pub)
	return pub, nil
}

// Retry re-runs Publish for an approved record left behind by a failed attempt.
func (a *Approvals) Retry(ctx context.Context, id int64) (domain.Published, error) {
	return a.Publish(ctx, id)
}

// SetCaption replaces the excerpt of a pending record and renders a fresh card.
func (a *Approvals) SetCaption(ctx context.Context, id int64, caption string) error {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("load approval %d: %w", id, err)
	}
	caption = strings.TrimSpace(caption)
	if err := a.repo.UpdateDraft(ctx, id, caption, rec.Body); err != nil {
		return err
	}
	rec.Excerpt = caption
	return a.Render(ctx, &rec)
}

// Pending lists records waiting for a decision.
func (a *Approvals) Pending(ctx context.Context, limit int) ([]domain.Approval, error) {
	return a.repo.ListByStatus(ctx, domain.ApprovalPending, limit)
}

func (a *Approvals) reloadIgnored(ctx context.Context, id int64, action string) (domain.Resolution, error) {
	rec, err := a.repo.Get(ctx, id)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("reload approval %d: %w", id, err)
	}
	return a.ignored(ctx, rec, action), nil
}

func (a *Approvals) ignored(ctx context.Context, rec domain.Approval, action string) domain.Resolution {
	a.journal.Warn(ctx, "approval.ignored", strconv.FormatInt(rec.ID, 10), journal.Fields{
		"action": action,
		"status": string(rec.Status),
	})
	return domain.Resolution{ApprovalID: rec.ID, Status: rec.Status, Applied: false, PostID: rec.PostID}
}

func (a *Approvals) banner(ctx context.Context, rec domain.Approval, text string) {
	if a.channel == nil || rec.MessageID == 0 {
		return
	}
	if err := a.channel.EditMessage(ctx, a.chatID, rec.MessageID, Clamp(text, CaptionLimit)); err != nil {
		a.logger.WarnContext(ctx, "banner edit failed", "approval", rec.ID, "error", err)
	}
}

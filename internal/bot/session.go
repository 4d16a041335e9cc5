package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// session returns the live session of an operator; expired ones are dropped.
func (b *Bot) session(ctx context.Context, operatorID int64) (domain.Session, bool) {
	sess, ok, err := b.deps.Sessions.Get(ctx, operatorID)
	if err != nil {
		b.log.WarnContext(ctx, "session lookup failed", "operator", operatorID, "error", err)
		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}
	if sess.Expired(b.now()) {
		_ = b.deps.Sessions.Delete(ctx, operatorID)
		return domain.Session{}, false
	}
	return sess, true
}

// begin opens a session unless a live one exists.
func (b *Bot) begin(ctx context.Context, operatorID int64, kind domain.SessionKind, target int64) error {
	if cur, ok := b.session(ctx, operatorID); ok && (cur.Kind != kind || cur.TargetID != target) {
		return domain.ErrSessionActive
	}
	sess := domain.Session{
		OperatorID: operatorID,
		Kind:       kind,
		TargetID:   target,
		ExpiresAt:  b.now().Add(b.deps.SessionTTL),
	}
	if err := b.deps.Sessions.Put(ctx, sess, b.deps.SessionTTL); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	return nil
}

var sessionPrompts = map[domain.SessionKind]string{
	domain.AwaitingTitle:   "Send the new title (or cancel).",
	domain.AwaitingExcerpt: "Send the new excerpt (or cancel).",
	domain.AwaitingImage:   "Send a photo or an image URL (or cancel).",
	domain.AwaitingCaption: "Send the new caption (or cancel).",
}

// answer consumes the operator's reply to an open session.
func (b *Bot) answer(ctx context.Context, in ports.Inbound, sess domain.Session) {
	text := strings.TrimSpace(in.Text)

	if sess.Kind == domain.AwaitingImage {
		imageURL, err := b.imageFrom(ctx, in, text)
		if err != nil {
			b.fail(ctx, in.ChatID, "Could not read the image", err)
			return
		}
		if imageURL == "" {
			b.reply(ctx, in.ChatID, sessionPrompts[domain.AwaitingImage])
			return
		}
		text = imageURL
	} else if text == "" {
		b.reply(ctx, in.ChatID, sessionPrompts[sess.Kind])
		return
	}

	if err := b.deps.Sessions.Delete(ctx, in.SenderID); err != nil {
		b.log.WarnContext(ctx, "session delete failed", "operator", in.SenderID, "error", err)
	}

	switch sess.Kind {
	case domain.AwaitingCaption:
		if err := b.deps.Approvals.SetCaption(ctx, sess.TargetID, text); err != nil {
			b.fail(ctx, in.ChatID, "Could not update the caption", err)
			return
		}
		b.reply(ctx, in.ChatID, "Caption updated.")
	default:
		if err := b.applyEdit(ctx, sess, text); err != nil {
			b.fail(ctx, in.ChatID, "Could not update the post", err)
			return
		}
		b.editMenu(ctx, in.ChatID, sess.TargetID)
	}
}

func (b *Bot) imageFrom(ctx context.Context, in ports.Inbound, text string) (string, error) {
	if in.PhotoFileID != "" {
		return b.deps.Channel.FileURL(ctx, in.PhotoFileID)
	}
	if urlPattern.MatchString(text) {
		return text, nil
	}
	return "", nil
}

// applyEdit performs exactly one content-store mutation.
func (b *Bot) applyEdit(ctx context.Context, sess domain.Session, value string) error {
	if b.deps.Store == nil {
		return domain.ErrNotConfigured
	}
	switch sess.Kind {
	case domain.AwaitingTitle:
		return b.deps.Store.UpdatePost(ctx, sess.TargetID, domain.PostPatch{Title: &value})
	case domain.AwaitingExcerpt:
		return b.deps.Store.UpdatePost(ctx, sess.TargetID, domain.PostPatch{Excerpt: &value})
	case domain.AwaitingImage:
		return b.deps.Store.SetFeaturedImage(ctx, sess.TargetID, value)
	}
	return errors.New("unsupported session kind " + string(sess.Kind))
}

func (b *Bot) editMenu(ctx context.Context, chatID, postID int64) {
	if b.deps.Store == nil {
		b.fail(ctx, chatID, "Cannot edit", domain.ErrNotConfigured)
		return
	}
	post, err := b.deps.Store.GetPost(ctx, postID)
	if err != nil {
		b.fail(ctx, chatID, fmt.Sprintf("Cannot load post %d", postID), err)
		return
	}
	text := fmt.Sprintf("✏️ Post #%d\n%s\n\n%s\n\nWhat do you want to change?", post.ID, post.Title, post.Excerpt)
	b.replyWith(ctx, chatID, text, EditKeyboard(post.ID))
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const helpText = `EditorialDesk
/pending – drafts waiting for approval
/recent – latest published posts
/idea <text> – queue a story idea
/edit <post id> – edit a published post
/retry <approval id> – publish an approved draft again
/run <job> – run a scheduled job now
/status – desk activity today
cancel – abort the current edit

Send a link, a photo or a text to draft an article.`

func (b *Bot) command(ctx context.Context, in ports.Inbound, r Route) {
	switch r.Command {
	case "start", "help":
		b.reply(ctx, in.ChatID, helpText)
	case "pending":
		b.pending(ctx, in.ChatID)
	case "recent":
		b.recent(ctx, in.ChatID)
	case "idea":
		if r.Arg == "" {
			b.reply(ctx, in.ChatID, "Usage: /idea <text>")
			return
		}
		id, err := b.deps.Intake.Idea(ctx, r.Arg)
		if err != nil {
			b.fail(ctx, in.ChatID, "Could not save the idea", err)
			return
		}
		b.reply(ctx, in.ChatID, fmt.Sprintf("💡 Idea queued as candidate #%d.", id))
	case "status":
		b.status(ctx, in.ChatID)
	case "edit":
		id, ok := parseID(r.Arg)
		if !ok {
			b.reply(ctx, in.ChatID, "Usage: /edit <post id>")
			return
		}
		b.editMenu(ctx, in.ChatID, id)
	case "run":
		b.run(ctx, in.ChatID, r.Arg)
	case "retry":
		id, ok := parseID(r.Arg)
		if !ok {
			b.reply(ctx, in.ChatID, "Usage: /retry <approval id>")
			return
		}
		pub, err := b.deps.Approvals.Retry(ctx, id)
		if err != nil {
			b.fail(ctx, in.ChatID, fmt.Sprintf("Retry of #%d failed", id), err)
			return
		}
		b.reply(ctx, in.ChatID, fmt.Sprintf("✅ #%d published: %s", id, pub.Permalink))
	default:
		b.reply(ctx, in.ChatID, "Unknown command, see /help.")
	}
}

func (b *Bot) pending(ctx context.Context, chatID int64) {
	recs, err := b.deps.Approvals.Pending(ctx, 10)
	if err != nil {
		b.fail(ctx, chatID, "Could not list drafts", err)
		return
	}
	if len(recs) == 0 {
		b.reply(ctx, chatID, "Nothing is waiting for approval.")
		return
	}
	var s strings.Builder
	s.WriteString("Waiting for approval:\n")
	for _, rec := range recs {
		fmt.Fprintf(&s, "#%d %s (%s)\n", rec.ID, rec.TitleA, rec.Type)
	}
	b.reply(ctx, chatID, s.String())
}

func (b *Bot) recent(ctx context.Context, chatID int64) {
	if b.deps.Store == nil {
		b.fail(ctx, chatID, "Cannot list posts", domain.ErrNotConfigured)
		return
	}
	posts, err := b.deps.Store.RecentPosts(ctx, b.deps.RecentLimit)
	if err != nil {
		b.fail(ctx, chatID, "Could not list posts", err)
		return
	}
	if len(posts) == 0 {
		b.reply(ctx, chatID, "No posts yet.")
		return
	}
	var s strings.Builder
	for _, p := range posts {
		fmt.Fprintf(&s, "#%d %s\n%s\n", p.ID, p.Title, p.Permalink)
	}
	b.reply(ctx, chatID, s.String())
}

func (b *Bot) status(ctx context.Context, chatID int64) {
	if b.deps.Reporter == nil {
		b.fail(ctx, chatID, "No status", domain.ErrNotConfigured)
		return
	}
	rep, err := b.deps.Reporter.Report(ctx, 24*time.Hour)
	if err != nil {
		b.fail(ctx, chatID, "Could not build status", err)
		return
	}
	b.reply(ctx, chatID, rep.Text(b.deps.Location))
}

func (b *Bot) run(ctx context.Context, chatID int64, name string) {
	if name == "" || b.deps.Scheduler == nil {
		b.reply(ctx, chatID, "Usage: /run <"+strings.Join(domain.JobNames(), "|")+">")
		return
	}
	b.reply(ctx, chatID, "▶️ Running "+name+"…")
	if err := b.deps.Scheduler.RunNow(ctx, name); err != nil {
		b.fail(ctx, chatID, "Job "+name+" failed", err)
		return
	}
	b.reply(ctx, chatID, "✅ Job "+name+" finished.")
}

func (b *Bot) handleCallback(ctx context.Context, in ports.Inbound) {
	cb, ok := ParseCallback(in.CallbackData)
	if !ok {
		b.ack(ctx, in, "Unknown action", true)
		return
	}

	switch cb.Action {
	case ActionApprove:
		res, err := b.deps.Approvals.Approve(ctx, cb.ID, cb.Variant)
		b.resolved(ctx, in, cb.ID, res, err)
	case ActionReject:
		res, err := b.deps.Approvals.Reject(ctx, cb.ID)
		b.resolved(ctx, in, cb.ID, res, err)
	case ActionCaption:
		b.openSession(ctx, in, domain.AwaitingCaption, cb.ID)
	case ActionEdit:
		kind, ok := map[string]domain.SessionKind{
			EditTitle:   domain.AwaitingTitle,
			EditExcerpt: domain.AwaitingExcerpt,
			EditImage:   domain.AwaitingImage,
		}[cb.Field]
		if !ok {
			_ = b.deps.Sessions.Delete(ctx, in.SenderID)
			b.ack(ctx, in, "Done", false)
			b.reply(ctx, in.ChatID, fmt.Sprintf("Finished editing post #%d.", cb.ID))
			return
		}
		b.openSession(ctx, in, kind, cb.ID)
	}
}

func (b *Bot) openSession(ctx context.Context, in ports.Inbound, kind domain.SessionKind, target int64) {
	if err := b.begin(ctx, in.SenderID, kind, target); err != nil {
		if errors.Is(err, domain.ErrSessionActive) {
			b.ack(ctx, in, "Finish or cancel the current edit first.", true)
			return
		}
		b.ack(ctx, in, "Failed", true)
		b.fail(ctx, in.ChatID, "Could not start editing", err)
		return
	}
	b.ack(ctx, in, "", false)
	b.reply(ctx, in.ChatID, sessionPrompts[kind])
}

func (b *Bot) resolved(ctx context.Context, in ports.Inbound, id int64, res domain.Resolution, err error) {
	switch {
	case err != nil:
		b.ack(ctx, in, "Failed", true)
		b.fail(ctx, in.ChatID, fmt.Sprintf("Draft #%d", id), err)
	case !res.Applied:
		b.ack(ctx, in, fmt.Sprintf("Already %s", res.Status), false)
	case res.Status == domain.ApprovalPublished:
		b.ack(ctx, in, "Published", false)
	default:
		b.ack(ctx, in, string(res.Status), false)
	}
}

func (b *Bot) ack(ctx context.Context, in ports.Inbound, text string, alert bool) {
	if b.deps.Channel == nil {
		return
	}
	if err := b.deps.Channel.AnswerCallback(ctx, in.CallbackID, text, alert); err != nil {
		b.log.DebugContext(ctx, "callback answer failed", "error", err)
	}
}

func parseID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	return n, err == nil && n > 0
}

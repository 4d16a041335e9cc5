// Package bot drives the editorial workflow from the operator chat.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
	"EditorialDesk/internal/usecase"
)

// Deps wires the bot.
type Deps struct {
	Channel   ports.ChatChannel
	Sessions  ports.SessionStore
	Store     ports.ContentStore
	Approvals *usecase.Approvals
	Intake    *usecase.Intake
	Scheduler *usecase.Scheduler
	Reporter  *usecase.Reporter
	Journal   *journal.Journal
	Logger    *slog.Logger

	IsOperator  func(id int64) bool
	SessionTTL  time.Duration
	ShortText   int
	RecentLimit int
	Location    *time.Location
}

// Bot serves operator messages and button presses.
type Bot struct {
	deps   Deps
	router *Router
	log    *slog.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// New builds the bot.
func New(deps Deps) *Bot {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.SessionTTL <= 0 {
		deps.SessionTTL = 10 * time.Minute
	}
	if deps.RecentLimit <= 0 {
		deps.RecentLimit = 5
	}
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	if deps.IsOperator == nil {
		deps.IsOperator = func(int64) bool { return false }
	}
	return &Bot{deps: deps, router: NewRouter(deps.ShortText), log: deps.Logger, now: time.Now}
}

// Dispatch handles in on its own goroutine, detached from the caller's cancellation.
func (b *Bot) Dispatch(ctx context.Context, in ports.Inbound) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.HandleInbound(context.WithoutCancel(ctx), in)
	}()
}

// Wait blocks until dispatched updates are handled.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// HandleInbound processes one update to completion.
func (b *Bot) HandleInbound(ctx context.Context, in ports.Inbound) {
	defer func() {
		if r := recover(); r != nil {
			b.log.ErrorContext(ctx, "inbound handler panicked", "update", in.UpdateID, "panic", r)
			b.reply(ctx, in.ChatID, "Something went wrong, please try again.")
		}
	}()

	if !b.deps.IsOperator(in.SenderID) {
		b.log.WarnContext(ctx, "ignoring non-operator", "sender", in.SenderID, "chat", in.ChatID)
		return
	}
	if in.IsCallback() {
		b.handleCallback(ctx, in)
		return
	}
	b.handleMessage(ctx, in)
}

func (b *Bot) handleMessage(ctx context.Context, in ports.Inbound) {
	if IsCancel(in.Text) {
		b.cancel(ctx, in)
		return
	}

	if sess, ok := b.session(ctx, in.SenderID); ok {
		b.answer(ctx, in, sess)
		return
	}

	route := b.router.Route(in)
	b.log.DebugContext(ctx, "routed", "kind", route.Kind.String(), "command", route.Command)
	switch route.Kind {
	case RouteCommand:
		b.command(ctx, in, route)
	case RouteURL:
		rec, err := b.deps.Intake.Link(ctx, route.Arg)
		b.replyDraft(ctx, in.ChatID, "link", rec, err)
	case RoutePhoto:
		b.photo(ctx, in, route.Arg)
	case RouteShortText:
		id, err := b.deps.Intake.Idea(ctx, route.Arg)
		if err != nil {
			b.fail(ctx, in.ChatID, "Could not save the idea", err)
			return
		}
		b.reply(ctx, in.ChatID, fmt.Sprintf("💡 Idea queued as candidate #%d.", id))
	case RouteLongText:
		rec, err := b.deps.Intake.Text(ctx, route.Arg)
		b.replyDraft(ctx, in.ChatID, "text", rec, err)
	}
}

func (b *Bot) photo(ctx context.Context, in ports.Inbound, caption string) {
	fileURL, err := b.deps.Channel.FileURL(ctx, in.PhotoFileID)
	if err != nil {
		b.fail(ctx, in.ChatID, "Could not read the photo", err)
		return
	}
	rec, err := b.deps.Intake.Photo(ctx, fileURL, caption)
	b.replyDraft(ctx, in.ChatID, "photo", rec, err)
}

func (b *Bot) replyDraft(ctx context.Context, chatID int64, what string, rec domain.Approval, err error) {
	if err != nil {
		b.fail(ctx, chatID, "Could not draft the "+what, err)
		return
	}
	b.reply(ctx, chatID, fmt.Sprintf("📨 Draft #%d is waiting for approval.", rec.ID))
}

func (b *Bot) cancel(ctx context.Context, in ports.Inbound) {
	if err := b.deps.Sessions.Delete(ctx, in.SenderID); err != nil {
		b.log.WarnContext(ctx, "session delete failed", "operator", in.SenderID, "error", err)
	}
	b.reply(ctx, in.ChatID, "Cancelled.")
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	b.replyWith(ctx, chatID, text, nil)
}

func (b *Bot) replyWith(ctx context.Context, chatID int64, text string, kb ports.Keyboard) {
	if b.deps.Channel == nil {
		return
	}
	if _, err := b.deps.Channel.SendMessage(ctx, chatID, usecase.Clamp(text, usecase.MessageLimit), kb); err != nil {
		b.log.WarnContext(ctx, "reply failed", "chat", chatID, "error", err)
	}
}

// fail tells the operator what went wrong with an action they triggered.
func (b *Bot) fail(ctx context.Context, chatID int64, what string, err error) {
	b.deps.Journal.Warn(ctx, "bot.action_failed", strconv.FormatInt(chatID, 10), journal.Fields{"action": what, "error": err})
	b.reply(ctx, chatID, fmt.Sprintf("⚠️ %s: %s", what, humanError(err)))
}

func humanError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
		return "this feature is not configured"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "the language model returned an unusable answer"
	case errors.Is(err, domain.ErrEmptyTitle):
		return "the title is empty"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	case errors.Is(err, domain.ErrIllegalTransition), errors.Is(err, domain.ErrStaleStatus):
		return "the record is not in a state that allows this"
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return err.Error()
}

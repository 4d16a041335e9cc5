package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

// Hook names.
const (
	HookShareCard    = "share_card"
	HookDistribution = "distribution"
	HookEvent        = "event"
)

// Hook is one post-publish step.
type Hook struct {
	Name string
	Run  func(ctx context.Context, p domain.Published) error
}

// Hooks runs the ordered post-publish steps. Failures never reach the caller.
type Hooks struct {
	steps    []Hook
	attempts int
	journal  *journal.Journal
	logger   *slog.Logger
}

// NewHooks keeps the steps that are enabled in cfg, in the given order.
func NewHooks(cfg config.HooksConfig, j *journal.Journal, logger *slog.Logger, steps ...Hook) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	attempts := cfg.Attempts
	if attempts < 1 {
		attempts = 1
	}
	enabled := make([]Hook, 0, len(steps))
	for _, s := range steps {
		if s.Run != nil && cfg.HookEnabled(s.Name) {
			enabled = append(enabled, s)
		}
	}
	return &Hooks{steps: enabled, attempts: attempts, journal: j, logger: logger}
}

// Names lists the enabled hooks.
func (h *Hooks) Names() []string {
	if h == nil {
		return nil
	}
	out := make([]string, len(h.steps))
	for i, s := range h.steps {
		out[i] = s.Name
	}
	return out
}

// Run executes every hook; each is retried up to the attempt budget.
func (h *Hooks) Run(ctx context.Context, p domain.Published) {
	if h == nil {
		return
	}
	subject := strconv.FormatInt(p.Approval.ID, 10)
	for _, step := range h.steps {
		var err error
		for attempt := 1; attempt <= h.attempts; attempt++ {
			if err = h.once(ctx, step, p); err == nil {
				break
			}
			h.logger.WarnContext(ctx, "hook attempt failed", "hook", step.Name, "attempt", attempt, "error", err)
		}
		if err != nil {
			h.journal.Error(ctx, "hook.failed", subject, journal.Fields{"hook": step.Name, "error": err})
			continue
		}
		h.journal.Debug(ctx, "hook.done", subject, journal.Fields{"hook": step.Name})
	}
}

func (h *Hooks) once(ctx context.Context, step Hook, p domain.Published) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook %s panicked: %v", step.Name, r)
		}
	}()
	return step.Run(ctx, p)
}

// BroadcastHook posts the article to the public channel as a share card photo,
// or as text when no card can be rendered or sent.
func BroadcastHook(channel ports.ChatChannel, chatID int64, cards ports.ShareCardRenderer) Hook {
	return Hook{Name: HookShareCard, Run: func(ctx context.Context, p domain.Published) error {
		if channel == nil || chatID == 0 {
			return nil
		}
		text := broadcastText(p)
		image := p.Approval.ImageURL
		if cards != nil {
			if card, err := cards.ShareCard(ctx, p.Approval.ResolvedTitle, p.Permalink); err == nil && card != "" {
				image = card
			}
		}
		if image != "" {
			if _, err := channel.SendPhoto(ctx, chatID, image, Clamp(text, CaptionLimit), nil); err == nil {
				return nil
			}
		}
		_, err := channel.SendMessage(ctx, chatID, Clamp(text, MessageLimit), nil)
		return err
	}}
}

// DistributionHook forwards the article to the secondary distribution target.
func DistributionHook(d ports.Distributor) Hook {
	if d == nil {
		return Hook{Name: HookDistribution}
	}
	return Hook{Name: HookDistribution, Run: d.Distribute}
}

// EventHook emits article.published.
func EventHook(pub ports.EventPublisher) Hook {
	if pub == nil {
		return Hook{Name: HookEvent}
	}
	return Hook{Name: HookEvent, Run: func(ctx context.Context, p domain.Published) error {
		return pub.Publish(ctx, ports.Event{
			Type:      "article.published",
			SubjectID: strconv.FormatInt(p.Approval.ID, 10),
			Payload: map[string]any{
				"post_id":   p.PostID,
				"title":     p.Approval.ResolvedTitle,
				"permalink": p.Permalink,
			},
		})
	}}
}

func broadcastText(p domain.Published) string {
	parts := []string{p.Approval.ResolvedTitle}
	if p.Approval.Excerpt != "" {
		parts = append(parts, p.Approval.Excerpt)
	}
	if p.Permalink != "" {
		parts = append(parts, p.Permalink)
	}
	return strings.Join(parts, "\n\n")
}

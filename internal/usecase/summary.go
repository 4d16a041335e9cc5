package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const week = 7 * 24 * time.Hour

// WeeklySummary reports the week to the operator and, optionally, by e-mail.
type WeeklySummary struct {
	reporter  *Reporter
	evaluator *PromptEvaluator
	notifier  *Notifier
	mailer    ports.Mailer
	loc       *time.Location
	logger    *slog.Logger
}

// NewWeeklySummary accepts nil evaluator and mailer.
func NewWeeklySummary(r *Reporter, e *PromptEvaluator, n *Notifier, m ports.Mailer, loc *time.Location, logger *slog.Logger) *WeeklySummary {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeeklySummary{reporter: r, evaluator: e, notifier: n, mailer: m, loc: loc, logger: logger}
}

// Run builds and sends the summary text.
func (w *WeeklySummary) Run(ctx context.Context) (string, error) {
	rep, err := w.reporter.Report(ctx, week)
	if err != nil {
		return "", err
	}
	rep.Occurrences = nil

	var b strings.Builder
	b.WriteString("📊 Weekly summary\n")
	b.WriteString(rep.Text(w.loc))

	ev, err := w.evaluator.Evaluate(ctx)
	switch {
	case errors.Is(err, domain.ErrNotConfigured):
	case err != nil:
		w.logger.WarnContext(ctx, "prompt evaluation failed", "error", err)
	case ev.Samples > 0:
		fmt.Fprintf(&b, "\nRewrite quality: %.1f/10 over %d samples", ev.Average, ev.Samples)
		for _, n := range ev.Notes {
			fmt.Fprintf(&b, "\n- %s", n)
		}
	}

	text := b.String()
	w.notifier.Notify(ctx, text)
	if w.mailer != nil {
		if err := w.mailer.Send(ctx, "EditorialDesk weekly summary", text); err != nil {
			w.logger.WarnContext(ctx, "summary mail failed", "error", err)
		}
	}
	return text, nil
}

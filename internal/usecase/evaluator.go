package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const evaluatorSystem = "You grade rewritten news articles for clarity, accuracy of tone and headline quality. " +
	`Reply with JSON {"score": <1-10>, "notes": "<one sentence>"}.`

// Evaluation is the sampled quality check of recent rewrites.
type Evaluation struct {
	Samples int
	Average float64
	Notes   []string
}

// PromptEvaluator samples published articles and scores them.
type PromptEvaluator struct {
	completer ports.Completer
	approvals ports.ApprovalRepository
	logger    *slog.Logger
	sample    int
}

// NewPromptEvaluator samples up to five records per run.
func NewPromptEvaluator(c ports.Completer, approvals ports.ApprovalRepository, logger *slog.Logger) *PromptEvaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromptEvaluator{completer: c, approvals: approvals, logger: logger, sample: 5}
}

type evaluationReply struct {
	Score float64 `json:"score"`
	Notes string  `json:"notes"`
}

// Evaluate scores the sample; samples with unusable replies are skipped.
func (e *PromptEvaluator) Evaluate(ctx context.Context) (Evaluation, error) {
	if e == nil || e.completer == nil {
		return Evaluation{}, domain.ErrNotConfigured
	}
	recs, err := e.approvals.ListByStatus(ctx, domain.ApprovalPublished, e.sample)
	if err != nil {
		return Evaluation{}, fmt.Errorf("sample published: %w", err)
	}

	var (
		ev    Evaluation
		total float64
	)
	for _, rec := range recs {
		score, notes, err := e.grade(ctx, rec)
		if err != nil {
			e.logger.WarnContext(ctx, "evaluation skipped", "approval", rec.ID, "error", err)
			continue
		}
		ev.Samples++
		total += score
		if notes != "" {
			ev.Notes = append(ev.Notes, notes)
		}
	}
	if ev.Samples > 0 {
		ev.Average = total / float64(ev.Samples)
	}
	return ev, nil
}

func (e *PromptEvaluator) grade(ctx context.Context, rec domain.Approval) (float64, string, error) {
	prompt := fmt.Sprintf("Headline: %s\nExcerpt: %s\nBody:\n%s", rec.ResolvedTitle, rec.Excerpt, truncateRunes(rec.Body, 4000))
	raw, err := e.completer.Complete(ctx, prompt, ports.CompleteOptions{
		System:    evaluatorSystem,
		MaxTokens: 200,
		JSON:      true,
	})
	if err != nil {
		return 0, "", err
	}
	var reply evaluationReply
	if err := decodeObject(raw, &reply); err != nil {
		return 0, "", errors.Join(domain.ErrMalformedResponse, err)
	}
	if reply.Score < 1 || reply.Score > 10 {
		return 0, "", fmt.Errorf("score %v out of range: %w", reply.Score, domain.ErrMalformedResponse)
	}
	return reply.Score, reply.Notes, nil
}

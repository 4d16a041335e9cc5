package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/journal"
	"EditorialDesk/internal/ports"
)

const researchSystem = "You are a news desk researcher. Given recent headlines, propose new story topics " +
	`that are not duplicates. Reply with JSON {"topics":[{"title","summary","territory","priority"}]}; priority 1 is most urgent.`

// TopicResearch mines recent headlines for new candidates.
type TopicResearch struct {
	completer  ports.Completer
	feeds      ports.FeedRepository
	candidates ports.CandidateRepository
	queue      *Queue
	notifier   *Notifier
	journal    *journal.Journal
	logger     *slog.Logger
	sample     int
}

// NewTopicResearch builds the job.
func NewTopicResearch(c ports.Completer, feeds ports.FeedRepository, cands ports.CandidateRepository, q *Queue, n *Notifier, j *journal.Journal, logger *slog.Logger) *TopicResearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopicResearch{completer: c, feeds: feeds, candidates: cands, queue: q, notifier: n, journal: j, logger: logger, sample: 30}
}

type researchReply struct {
	Topics []struct {
		Title     string `json:"title"`
		Summary   string `json:"summary"`
		Territory string `json:"territory"`
		Priority  int    `json:"priority"`
	} `json:"topics"`
}

// Run enqueues every proposed topic whose title is not already queued.
func (r *TopicResearch) Run(ctx context.Context) (int, error) {
	if r.completer == nil {
		r.logger.InfoContext(ctx, "topic research skipped, no completer")
		return 0, nil
	}
	titles, err := r.feeds.RecentTitles(ctx, r.sample)
	if err != nil {
		return 0, fmt.Errorf("load recent titles: %w", err)
	}
	if len(titles) == 0 {
		return 0, nil
	}

	raw, err := r.completer.Complete(ctx, "Recent headlines:\n- "+strings.Join(titles, "\n- "), ports.CompleteOptions{
		System:      researchSystem,
		MaxTokens:   1200,
		Temperature: 0.8,
		JSON:        true,
	})
	if err != nil {
		return 0, fmt.Errorf("research completion: %w", err)
	}
	var reply researchReply
	if err := decodeObject(raw, &reply); err != nil {
		return 0, &MalformedError{Raw: raw, Err: errors.Join(domain.ErrMalformedResponse, err)}
	}

	added := 0
	for _, t := range reply.Topics {
		title := strings.TrimSpace(t.Title)
		if title == "" {
			continue
		}
		exists, err := r.candidates.ExistsTitle(ctx, title)
		if err != nil {
			return added, fmt.Errorf("check topic %q: %w", title, err)
		}
		if exists {
			continue
		}
		priority := t.Priority
		if priority < 1 {
			priority = 5
		}
		if _, err := r.queue.Enqueue(ctx, domain.Candidate{
			Title:     title,
			Summary:   strings.TrimSpace(t.Summary),
			Territory: strings.TrimSpace(t.Territory),
			Priority:  priority,
		}); err != nil {
			return added, err
		}
		added++
	}

	r.journal.Info(ctx, "research.done", "", journal.Fields{"proposed": len(reply.Topics), "added": added})
	if added > 0 {
		r.notifier.Notify(ctx, fmt.Sprintf("Topic research: %d new candidates queued.", added))
	}
	return added, nil
}

package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/logging"
)

type cardFunc func(ctx context.Context, title, permalink string) (string, error)

func (f cardFunc) ShareCard(ctx context.Context, title, permalink string) (string, error) {
	return f(ctx, title, permalink)
}

func TestHooksRetryAndIsolateFailures(t *testing.T) {
	t.Parallel()

	var order []string
	flaky := 0
	hooks := NewHooks(config.HooksConfig{Attempts: 3}, nil, logging.Discard(),
		Hook{Name: "flaky", Run: func(context.Context, domain.Published) error {
			flaky++
			order = append(order, "flaky")
			if flaky < 3 {
				return errors.New("try again")
			}
			return nil
		}},
		Hook{Name: "broken", Run: func(context.Context, domain.Published) error {
			order = append(order, "broken")
			panic("boom")
		}},
		Hook{Name: "last", Run: func(context.Context, domain.Published) error {
			order = append(order, "last")
			return nil
		}},
	)

	hooks.Run(context.Background(), domain.Published{})
	assert.Equal(t, []string{"flaky", "flaky", "flaky", "broken", "broken", "broken", "last"}, order)
}

func TestHooksDisabledByConfig(t *testing.T) {
	t.Parallel()

	ran := false
	hooks := NewHooks(config.HooksConfig{Disabled: []string{"Distribution"}}, nil, logging.Discard(),
		Hook{Name: HookDistribution, Run: func(context.Context, domain.Published) error { ran = true; return nil }},
		EventHook(nil),
	)
	hooks.Run(context.Background(), domain.Published{})
	assert.False(t, ran)
	assert.Empty(t, hooks.Names())
}

func TestBroadcastHookClampsCaption(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	cards := cardFunc(func(_ context.Context, title, link string) (string, error) {
		return "https://cards.example.org/?t=" + title, nil
	})
	hook := BroadcastHook(ch, -100, cards)

	p := domain.Published{
		Approval:  domain.Approval{ResolvedTitle: "Headline", Excerpt: strings.Repeat("word ", 400)},
		Permalink: "https://example.org/headline",
	}
	require.NoError(t, hook.Run(context.Background(), p))

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(-100), msgs[0].ChatID)
	assert.Equal(t, "https://cards.example.org/?t=Headline", msgs[0].Photo)
	assert.LessOrEqual(t, len([]rune(msgs[0].Text)), CaptionLimit)
	assert.True(t, strings.HasSuffix(msgs[0].Text, "…"))
}

func TestBroadcastHookFallsBackToText(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{photoErr: errors.New("wrong file identifier")}
	hook := BroadcastHook(ch, -100, nil)
	p := domain.Published{Approval: domain.Approval{ResolvedTitle: "Headline", ImageURL: "https://img"}, Permalink: "https://p"}
	require.NoError(t, hook.Run(context.Background(), p))

	msgs := ch.messages()
	require.Len(t, msgs, 1)
	assert.Empty(t, msgs[0].Photo)
	assert.Equal(t, "Headline\n\nhttps://p", msgs[0].Text)
}

func TestEventHookPublishes(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	hook := EventHook(pub)
	require.NoError(t, hook.Run(context.Background(), domain.Published{Approval: domain.Approval{ID: 4}, PostID: 8}))
	assert.Equal(t, []string{"article.published"}, pub.types())
	assert.Equal(t, "4", pub.events[0].SubjectID)
}

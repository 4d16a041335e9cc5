package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/logging"
	"EditorialDesk/internal/ports"
)

type fakeSource struct {
	items []domain.FeedItem
	err   error
}

func (f fakeSource) FetchAll(context.Context) ([]domain.FeedItem, error) { return f.items, f.err }

func TestIngestDeduplicates(t *testing.T) {
	t.Parallel()

	feeds := &fakeFeeds{}
	src := fakeSource{items: []domain.FeedItem{
		{GUID: "a", Title: "One"},
		{GUID: "a", Title: "One again"},
		{Link: "https://example.org/b", Title: "Two"},
		{GUID: "c"},
	}}
	rep, err := NewIngestor(src, feeds, nil, logging.Discard()).Ingest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Fetched)
	assert.Equal(t, 2, rep.Inserted)
	assert.Equal(t, "https://example.org/b", feeds.items[1].GUID)
	assert.Equal(t, domain.FeedItemNew, feeds.items[0].Status)
}

func TestIngestFailsOnlyWhenNothingFetched(t *testing.T) {
	t.Parallel()

	_, err := NewIngestor(fakeSource{err: errors.New("all feeds down")}, &fakeFeeds{}, nil, logging.Discard()).Ingest(context.Background())
	assert.Error(t, err)
}

func TestDailyRewriteDraftsAndMarksUsed(t *testing.T) {
	t.Parallel()

	now := time.Now()
	feeds := &fakeFeeds{}
	src := fakeSource{items: []domain.FeedItem{
		{GUID: "a", Title: "Harbour", Excerpt: "x", Link: "https://example.org/a", PublishedAt: now.Add(-time.Hour)},
		{GUID: "b", Title: "Bridge", Link: "https://example.org/b", PublishedAt: now.Add(-2 * time.Hour)},
	}}
	fx := newApprovalFixture()
	daily := NewDailyRewrite(DailyDeps{
		Ingestor:  NewIngestor(src, feeds, nil, logging.Discard()),
		Scorer:    NewScorer(feeds, testScoring()),
		Rewriter:  NewRewriter(&fakeCompleter{replies: []string{draftJSON}}, ""),
		Approvals: fx.svc,
		Feeds:     feeds,
		Retention: config.RetentionConfig{FeedDays: 30, LogDays: 14},
		Logger:    logging.Discard(),
	})

	rep, err := daily.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Ingest.Inserted)
	assert.Equal(t, 2, rep.Selected)
	assert.Equal(t, 2, rep.Drafted)
	assert.ElementsMatch(t, []int64{1, 2}, feeds.used)
	require.Len(t, feeds.purge, 1)

	pending, err := fx.svc.Pending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.ApprovalDailyRSS, pending[0].Type)
	assert.Equal(t, "https://example.org/a", pending[0].SourceRef)
}

func TestDailyRewriteLeavesFailedItemsUnused(t *testing.T) {
	t.Parallel()

	feeds := &fakeFeeds{items: []domain.FeedItem{
		{ID: 1, GUID: "a", Title: "Harbour", Link: "l", PublishedAt: time.Now(), Status: domain.FeedItemNew},
	}}
	fx := newApprovalFixture()
	daily := NewDailyRewrite(DailyDeps{
		Scorer:    NewScorer(feeds, testScoring()),
		Rewriter:  NewRewriter(&fakeCompleter{replies: []string{"I cannot help with that."}}, ""),
		Approvals: fx.svc,
		Feeds:     feeds,
		Logger:    logging.Discard(),
	})

	rep, err := daily.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Empty(t, feeds.used)
	assert.Equal(t, domain.FeedItemNew, feeds.items[0].Status)
}

func TestColdDrainRequeuesOnRewriteFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	a, _ := q.Enqueue(ctx, domain.Candidate{Title: "First"})
	b, _ := q.Enqueue(ctx, domain.Candidate{Title: "Second"})

	completer := &fakeCompleter{err: errors.New("completion timeout")}
	fx := newApprovalFixture()
	drain := NewColdDrain(q, NewRewriter(completer, ""), nil, fx.svc, nil, nil, logging.Discard(), 3)

	n, err := drain.Run(ctx)
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, completer.calls())
	assert.Equal(t, domain.CandidatePending, repo.status(a))
	assert.Equal(t, domain.CandidatePending, repo.status(b))
}

func TestColdDrainProcessesBatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := newFakeCandidates()
	q := NewQueue(repo, nil, logging.Discard())
	a, _ := q.Enqueue(ctx, domain.Candidate{Title: "First"})
	b, _ := q.Enqueue(ctx, domain.Candidate{Title: "Second"})

	fx := newApprovalFixture()
	drain := NewColdDrain(q, NewRewriter(&fakeCompleter{replies: []string{draftJSON}}, ""), nil, fx.svc, nil, nil, logging.Discard(), 3)

	n, err := drain.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, domain.CandidateDone, repo.status(a))
	assert.Equal(t, domain.CandidateDone, repo.status(b))

	pending, _ := fx.svc.Pending(ctx, 10)
	require.Len(t, pending, 2)
	assert.Equal(t, domain.ApprovalColdContent, pending[0].Type)
	assert.Equal(t, "candidate:1", pending[0].SourceRef)
}

type metaFunc func(ctx context.Context, url string) (ports.PageMetadata, error)

func (f metaFunc) Fetch(ctx context.Context, url string) (ports.PageMetadata, error) { return f(ctx, url) }

func TestIntakeLinkUsesPageMetadata(t *testing.T) {
	t.Parallel()

	fx := newApprovalFixture()
	completer := &fakeCompleter{replies: []string{draftJSON}}
	in := NewIntake(IntakeDeps{
		Rewriter:  NewRewriter(completer, ""),
		Approvals: fx.svc,
		Metadata: metaFunc(func(_ context.Context, url string) (ports.PageMetadata, error) {
			return ports.PageMetadata{URL: url, Title: "Page title", Description: "Desc", ImageURL: "https://example.org/og.jpg"}, nil
		}),
	})

	rec, err := in.Link(context.Background(), "https://example.org/story")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalManual, rec.Type)
	assert.Equal(t, "https://example.org/og.jpg", rec.ImageURL)
	assert.Contains(t, completer.prompts[0], "Page title")
}

func TestIntakePhotoUploadsAndParaphrases(t *testing.T) {
	t.Parallel()

	fx := newApprovalFixture()
	in := NewIntake(IntakeDeps{
		Approvals: fx.svc,
		Store:     fx.store,
		Completer: &fakeCompleter{replies: []string{"  Crowds gathered at the square.  "}},
	})

	rec, err := in.Photo(context.Background(), "https://files.example.org/abc", "crowd at the square")
	require.NoError(t, err)
	assert.Equal(t, "https://cms.example.org/uploads/1.jpg", rec.ImageURL)
	assert.Equal(t, "Crowds gathered at the square.", rec.Excerpt)
	assert.Equal(t, "crowd at the square", rec.TitleA)
	assert.Contains(t, rec.Body, "<figure>")

	msgs := fx.channel.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, rec.ImageURL, msgs[0].Photo)
	require.Len(t, msgs[0].KB, 3)
}

func TestIntakeArticleWithoutRewrite(t *testing.T) {
	t.Parallel()

	fx := newApprovalFixture()
	in := NewIntake(IntakeDeps{Approvals: fx.svc})

	_, err := in.Article(context.Background(), ArticleRequest{Content: "x"})
	assert.ErrorIs(t, err, domain.ErrEmptyTitle)

	rec, err := in.Article(context.Background(), ArticleRequest{
		Title:     "Council vote",
		Content:   "<p>The council <b>voted</b> today.</p>",
		SourceURL: "https://example.org/vote",
	})
	require.NoError(t, err)
	assert.Equal(t, "The council voted today.", rec.Excerpt)
	assert.Equal(t, "https://example.org/vote", rec.SourceRef)
}

func TestIntakeIdeaQueuesCandidate(t *testing.T) {
	t.Parallel()

	repo := newFakeCandidates()
	in := NewIntake(IntakeDeps{Queue: NewQueue(repo, nil, logging.Discard())})
	id, err := in.Idea(context.Background(), "new bike lane")
	require.NoError(t, err)
	assert.Equal(t, domain.CandidatePending, repo.status(id))
}

func TestTopicResearchSkipsKnownTitles(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cands := newFakeCandidates()
	q := NewQueue(cands, nil, logging.Discard())
	_, _ = q.Enqueue(ctx, domain.Candidate{Title: "Known topic"})

	feeds := &fakeFeeds{items: []domain.FeedItem{{Title: "Headline one"}, {Title: "Headline two"}}}
	reply := `{"topics":[{"title":"known topic"},{"title":"Fresh angle","summary":"s","priority":2},{"title":""}]}`
	r := NewTopicResearch(&fakeCompleter{replies: []string{reply}}, feeds, cands, q, nil, nil, logging.Discard())

	added, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	list, _ := cands.List(ctx, domain.CandidateFilter{})
	require.Len(t, list, 2)
	assert.Equal(t, "Fresh angle", list[1].Title)
	assert.Equal(t, 2, list[1].Priority)
}

func TestTopicResearchMalformedReply(t *testing.T) {
	t.Parallel()

	feeds := &fakeFeeds{items: []domain.FeedItem{{Title: "Headline"}}}
	cands := newFakeCandidates()
	r := NewTopicResearch(&fakeCompleter{replies: []string{"sorry"}}, feeds, cands, NewQueue(cands, nil, nil), nil, nil, logging.Discard())
	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestSourceDiscoveryProbesSuggestions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cands := newFakeCandidates()
	now := time.Now()
	probe := fakeProbe{feeds: map[string][]domain.FeedItem{
		"https://news.example.org/feed": {
			{Title: "Older", PublishedAt: now.Add(-time.Hour)},
			{Title: "Newest", Link: "https://news.example.org/n", PublishedAt: now},
		},
		"https://known.example.org/rss": {{Title: "x"}},
	}}
	reply := `{"feeds":[
		{"name":"Known","url":"https://known.example.org/rss/"},
		{"name":"News","url":"https://news.example.org/feed","territory":"north"},
		{"name":"Broken","url":"https://broken.example.org/"}]}`
	known := []config.FeedConfig{{Name: "Known", URL: "https://known.example.org/rss"}}
	ch := &fakeChannel{}
	d := NewSourceDiscovery(&fakeCompleter{replies: []string{reply}}, probe, NewQueue(cands, nil, nil), known,
		NewNotifier(ch, 7, nil), nil, logging.Discard())

	found, err := d.Run(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "https://news.example.org/feed", found[0].URL)
	assert.Equal(t, 2, found[0].Items)

	list, _ := cands.List(ctx, domain.CandidateFilter{})
	require.Len(t, list, 1)
	assert.Equal(t, "Newest", list[0].Title)
	assert.Equal(t, "north", list[0].Territory)
	require.Len(t, ch.messages(), 1)
	assert.Contains(t, ch.messages()[0].Text, "news.example.org")
}

func TestWeeklySummaryReportsAndMails(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	approvals := newFakeApprovals()
	approvals.put(domain.Approval{TitleA: "a", ResolvedTitle: "a", Status: domain.ApprovalPublished})
	approvals.put(domain.Approval{TitleA: "b", Status: domain.ApprovalRejected})
	cands := newFakeCandidates()
	_, _ = cands.Insert(ctx, domain.Candidate{Title: "c", Status: domain.CandidatePending})

	reporter := NewReporter(cands, approvals, &fakeFeeds{}, nil, nil)
	evaluator := NewPromptEvaluator(&fakeCompleter{replies: []string{`{"score": 8, "notes": "crisp"}`}}, approvals, logging.Discard())
	ch := &fakeChannel{}
	mailer := &fakeMailer{}
	w := NewWeeklySummary(reporter, evaluator, NewNotifier(ch, 7, nil), mailer, time.UTC, logging.Discard())

	text, err := w.Run(ctx)
	require.NoError(t, err)
	assert.Contains(t, text, "Queue: 1 pending")
	assert.Contains(t, text, "1 published, 1 rejected")
	assert.Contains(t, text, "Rewrite quality: 8.0/10 over 1 samples")
	assert.Equal(t, []string{"EditorialDesk weekly summary"}, mailer.subjects)
	require.Len(t, ch.messages(), 1)
	assert.True(t, strings.HasPrefix(ch.messages()[0].Text, "📊 Weekly summary"))
}

func TestWeeklySummaryWithoutEvaluator(t *testing.T) {
	t.Parallel()

	reporter := NewReporter(newFakeCandidates(), newFakeApprovals(), &fakeFeeds{}, nil, nil)
	text, err := NewWeeklySummary(reporter, nil, nil, nil, nil, logging.Discard()).Run(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, text, "Rewrite quality")
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

type fakeCandidates struct {
	mu   sync.Mutex
	rows map[int64]domain.Candidate
	seq  int64
}

func newFakeCandidates() *fakeCandidates {
	return &fakeCandidates{rows: map[int64]domain.Candidate{}}
}

func (f *fakeCandidates) Insert(_ context.Context, c domain.Candidate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c.ID = f.seq
	c.CreatedAt = time.Unix(f.seq, 0)
	f.rows[c.ID] = c
	return c.ID, nil
}

func (f *fakeCandidates) Get(_ context.Context, id int64) (domain.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return domain.Candidate{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCandidates) Claim(_ context.Context) (domain.Candidate, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []domain.Candidate
	for _, c := range f.rows {
		if c.Status == domain.CandidatePending {
			pending = append(pending, c)
		}
	}
	if len(pending) == 0 {
		return domain.Candidate{}, false, nil
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority < pending[j].Priority
		}
		return pending[i].ID < pending[j].ID
	})
	c := pending[0]
	c.Status = domain.CandidateProcessing
	f.rows[c.ID] = c
	return c, true, nil
}

func (f *fakeCandidates) SetStatus(_ context.Context, id int64, from, to domain.CandidateStatus) error {
	if err := domain.CheckCandidateTransition(from, to); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Status != from {
		return domain.ErrStaleStatus
	}
	c.Status = to
	f.rows[id] = c
	return nil
}

func (f *fakeCandidates) List(_ context.Context, flt domain.CandidateFilter) ([]domain.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Candidate
	for _, c := range f.rows {
		if flt.Status == "" || c.Status == flt.Status {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeCandidates) Count(ctx context.Context, flt domain.CandidateFilter) (int64, error) {
	rows, err := f.List(ctx, flt)
	return int64(len(rows)), err
}

func (f *fakeCandidates) ExistsTitle(_ context.Context, title string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.rows {
		if strings.EqualFold(c.Title, title) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCandidates) status(id int64) domain.CandidateStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id].Status
}

type fakeFeeds struct {
	mu    sync.Mutex
	items []domain.FeedItem
	used  []int64
	purge []time.Time
}

func (f *fakeFeeds) InsertIfAbsent(_ context.Context, item domain.FeedItem) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.items {
		if it.GUID == item.GUID {
			return false, nil
		}
	}
	item.ID = int64(len(f.items) + 1)
	f.items = append(f.items, item)
	return true, nil
}

func (f *fakeFeeds) Window(_ context.Context, w domain.FeedItemWindow) ([]domain.FeedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FeedItem
	for _, it := range f.items {
		if it.PublishedAt.Before(w.Since) || (w.Status != "" && it.Status != w.Status) {
			continue
		}
		out = append(out, it)
	}
	return out, nil
}

func (f *fakeFeeds) MarkUsed(_ context.Context, ids ...int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used = append(f.used, ids...)
	for i := range f.items {
		for _, id := range ids {
			if f.items[i].ID == id {
				f.items[i].Status = domain.FeedItemUsed
			}
		}
	}
	return nil
}

func (f *fakeFeeds) PurgeOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.purge = append(f.purge, cutoff)
	return 0, nil
}

func (f *fakeFeeds) CountSince(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.items)), nil
}

func (f *fakeFeeds) RecentTitles(_ context.Context, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, it := range f.items {
		if len(out) == limit {
			break
		}
		out = append(out, it.Title)
	}
	return out, nil
}

type fakeApprovals struct {
	mu   sync.Mutex
	rows map[int64]domain.Approval
	seq  int64
}

func newFakeApprovals() *fakeApprovals {
	return &fakeApprovals{rows: map[int64]domain.Approval{}}
}

func (f *fakeApprovals) Insert(_ context.Context, a domain.Approval) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.ID = f.seq
	f.rows[a.ID] = a
	return a.ID, nil
}

func (f *fakeApprovals) Get(_ context.Context, id int64) (domain.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return domain.Approval{}, domain.ErrNotFound
	}
	return a, nil
}

func (f *fakeApprovals) SetMessageID(_ context.Context, id int64, messageID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	a.MessageID = messageID
	f.rows[id] = a
	return nil
}

func (f *fakeApprovals) Transition(_ context.Context, id int64, from, to domain.ApprovalStatus, change domain.ApprovalChange) error {
	if err := domain.CheckApprovalTransition(from, to); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return domain.ErrNotFound
	}
	if a.Status != from {
		return domain.ErrStaleStatus
	}
	a.Status = to
	if change.ResolvedTitle != nil {
		a.ResolvedTitle = *change.ResolvedTitle
	}
	if change.ResolvedAt != nil {
		at := *change.ResolvedAt
		a.ResolvedAt = &at
	}
	if change.PostID != nil {
		a.PostID = *change.PostID
	}
	f.rows[id] = a
	return nil
}

func (f *fakeApprovals) AttachPost(_ context.Context, id int64, postID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.PostID != 0 || !a.Status.Approved() {
		return domain.ErrStaleStatus
	}
	a.PostID = postID
	f.rows[id] = a
	return nil
}

func (f *fakeApprovals) UpdateDraft(_ context.Context, id int64, excerpt, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.rows[id]
	if a.Status != domain.ApprovalPending {
		return domain.ErrStaleStatus
	}
	a.Excerpt, a.Body = excerpt, body
	f.rows[id] = a
	return nil
}

func (f *fakeApprovals) ListByStatus(_ context.Context, status domain.ApprovalStatus, limit int) ([]domain.Approval, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Approval
	for _, a := range f.rows {
		if a.Status == status {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeApprovals) CountByStatusSince(_ context.Context, _ time.Time) (map[domain.ApprovalStatus]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[domain.ApprovalStatus]int64{}
	for _, a := range f.rows {
		out[a.Status]++
	}
	return out, nil
}

func (f *fakeApprovals) put(a domain.Approval) int64 {
	id, _ := f.Insert(context.Background(), a)
	return id
}

func (f *fakeApprovals) get(id int64) domain.Approval {
	a, _ := f.Get(context.Background(), id)
	return a
}

type fakeJobState struct {
	mu   sync.Mutex
	runs map[string]time.Time
}

func (f *fakeJobState) RecordRun(_ context.Context, job string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runs == nil {
		f.runs = map[string]time.Time{}
	}
	f.runs[job] = at
	return nil
}

func (f *fakeJobState) LastRuns(_ context.Context) (map[string]time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]time.Time, len(f.runs))
	for k, v := range f.runs {
		out[k] = v
	}
	return out, nil
}

// fakeCompleter returns replies in order; the last one repeats.
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	err     error
	panic   bool
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ ports.CompleteOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	if f.panic {
		panic("completer exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply scripted")
	}
	r := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return r, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

type fakeStore struct {
	mu        sync.Mutex
	posts     []domain.Post
	featured  map[int64]string
	uploads   []string
	createErr error
}

func (f *fakeStore) CreatePost(_ context.Context, p domain.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	p.ID = int64(100 + len(f.posts))
	f.posts = append(f.posts, p)
	return p.ID, nil
}

func (f *fakeStore) SetFeaturedImage(_ context.Context, postID int64, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.featured == nil {
		f.featured = map[int64]string{}
	}
	f.featured[postID] = imageURL
	return nil
}

func (f *fakeStore) UploadMedia(_ context.Context, imageURL, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, imageURL)
	return "https://cms.example.org/uploads/" + fmt.Sprint(len(f.uploads)) + ".jpg", nil
}

func (f *fakeStore) UpdatePost(context.Context, int64, domain.PostPatch) error { return nil }

func (f *fakeStore) GetPost(_ context.Context, id int64) (domain.Post, error) {
	return domain.Post{ID: id}, nil
}

func (f *fakeStore) Permalink(_ context.Context, id int64) (string, error) {
	return fmt.Sprintf("https://example.org/?p=%d", id), nil
}

func (f *fakeStore) RecentPosts(context.Context, int) ([]domain.Post, error) { return nil, nil }

func (f *fakeStore) created() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts)
}

type sentMessage struct {
	ChatID int64
	Text   string
	Photo  string
	KB     ports.Keyboard
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []sentMessage
	edits    []string
	photoErr error
	nextID   int
}

func (f *fakeChannel) SendMessage(_ context.Context, chatID int64, text string, kb ports.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, KB: kb})
	return f.nextID, nil
}

func (f *fakeChannel) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, kb ports.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return 0, f.photoErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: caption, Photo: photoURL, KB: kb})
	return f.nextID, nil
}

func (f *fakeChannel) EditMessage(_ context.Context, _ int64, _ int, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, text)
	return nil
}

func (f *fakeChannel) AnswerCallback(context.Context, string, string, bool) error { return nil }

func (f *fakeChannel) FileURL(_ context.Context, fileID string) (string, error) {
	return "https://files.example.org/" + fileID, nil
}

func (f *fakeChannel) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ports.Event
}

func (f *fakePublisher) Publish(_ context.Context, e ports.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

type fakeProbe struct {
	feeds map[string][]domain.FeedItem
}

func (f fakeProbe) Probe(_ context.Context, url string) ([]domain.FeedItem, error) {
	items, ok := f.feeds[url]
	if !ok {
		return nil, errors.New("not a feed")
	}
	return items, nil
}

type fakeMailer struct {
	subjects []string
}

func (f *fakeMailer) Send(_ context.Context, subject, _ string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

const draftJSON = `Here you go:
` + "```json" + `
{"title_a":"Harbour reopens","title_b":"Port back in business","excerpt":"The harbour reopened.","body":"<p>Body</p>","tags":["port","city","Port"],"categories":["Local"]}
` + "```"

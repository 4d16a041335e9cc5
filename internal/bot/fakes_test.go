package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/infrastructure/session"
	"EditorialDesk/internal/infrastructure/storage"
	"EditorialDesk/internal/ports"
	"EditorialDesk/internal/usecase"
)

const (
	operatorID = int64(42)
	chatID     = int64(42)
)

type sent struct {
	ChatID int64
	Text   string
	Photo  string
	KB     ports.Keyboard
}

type answer struct {
	ID    string
	Text  string
	Alert bool
}

type fakeChannel struct {
	mu      sync.Mutex
	sent    []sent
	answers []answer
	nextID  int
}

func (f *fakeChannel) SendMessage(_ context.Context, chatID int64, text string, kb ports.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{ChatID: chatID, Text: text, KB: kb})
	return f.nextID, nil
}

func (f *fakeChannel) SendPhoto(_ context.Context, chatID int64, photoURL, caption string, kb ports.Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sent{ChatID: chatID, Text: caption, Photo: photoURL, KB: kb})
	return f.nextID, nil
}

func (f *fakeChannel) EditMessage(context.Context, int64, int, string) error { return nil }

func (f *fakeChannel) AnswerCallback(_ context.Context, id, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, answer{ID: id, Text: text, Alert: alert})
	return nil
}

func (f *fakeChannel) FileURL(_ context.Context, fileID string) (string, error) {
	return "https://files.example/" + fileID + ".jpg", nil
}

func (f *fakeChannel) messages() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func (f *fakeChannel) last() sent {
	m := f.messages()
	if len(m) == 0 {
		return sent{}
	}
	return m[len(m)-1]
}

func (f *fakeChannel) lastAnswer() answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return answer{}
	}
	return f.answers[len(f.answers)-1]
}

type fakeStore struct {
	mu      sync.Mutex
	posts   map[int64]domain.Post
	seq     int64
	patches []domain.PostPatch
	images  map[int64]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{posts: map[int64]domain.Post{}, seq: 6, images: map[int64]string{}}
}

func (f *fakeStore) CreatePost(_ context.Context, p domain.Post) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p.ID = f.seq
	p.Permalink = fmt.Sprintf("https://news.example/?p=%d", p.ID)
	f.posts[p.ID] = p
	return p.ID, nil
}

func (f *fakeStore) SetFeaturedImage(_ context.Context, postID int64, imageURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.images[postID] = imageURL
	return nil
}

func (f *fakeStore) UploadMedia(_ context.Context, imageURL, _ string) (string, error) {
	return "https://news.example/uploads/" + filepath.Base(imageURL), nil
}

func (f *fakeStore) UpdatePost(_ context.Context, postID int64, patch domain.PostPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return domain.ErrNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Excerpt != nil {
		p.Excerpt = *patch.Excerpt
	}
	f.posts[postID] = p
	f.patches = append(f.patches, patch)
	return nil
}

func (f *fakeStore) GetPost(_ context.Context, postID int64) (domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return domain.Post{}, domain.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) Permalink(ctx context.Context, postID int64) (string, error) {
	p, err := f.GetPost(ctx, postID)
	return p.Permalink, err
}

func (f *fakeStore) RecentPosts(_ context.Context, limit int) ([]domain.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Post
	for id := f.seq; id > 0 && len(out) < limit; id-- {
		if p, ok := f.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeCompleter struct {
	reply string
}

func (f fakeCompleter) Complete(context.Context, string, ports.CompleteOptions) (string, error) {
	return f.reply, nil
}

const draftJSON = `{"title_a":"Harbour reopens","title_b":"Port back in business","excerpt":"The harbour reopened.","body":"<p>Body</p>","tags":["port"],"categories":["Local"]}`

type harness struct {
	bot        *Bot
	channel    *fakeChannel
	store      *fakeStore
	sessions   *session.MemoryStore
	candidates *storage.CandidateRepository
	approvals  *storage.ApprovalRepository
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, config.DatabaseConfig{Driver: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "desk.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	h := &harness{
		channel:    &fakeChannel{},
		store:      newFakeStore(),
		sessions:   session.NewMemoryStore(time.Minute),
		candidates: storage.NewCandidateRepository(db),
		approvals:  storage.NewApprovalRepository(db),
	}
	h.store.posts[7] = domain.Post{ID: 7, Title: "Old title", Excerpt: "Old excerpt", Permalink: "https://news.example/?p=7"}

	approvals := usecase.NewApprovals(usecase.ApprovalDeps{
		Approvals:    h.approvals,
		Channel:      h.channel,
		Store:        h.store,
		OperatorChat: chatID,
		AuthorID:     1,
	})
	queue := usecase.NewQueue(h.candidates, nil, nil)
	intake := usecase.NewIntake(usecase.IntakeDeps{
		Queue:     queue,
		Rewriter:  usecase.NewRewriter(fakeCompleter{reply: draftJSON}, ""),
		Images:    usecase.NewImageChain(nil, nil, nil),
		Approvals: approvals,
		Store:     h.store,
	})

	h.bot = New(Deps{
		Channel:    h.channel,
		Sessions:   h.sessions,
		Store:      h.store,
		Approvals:  approvals,
		Intake:     intake,
		IsOperator: func(id int64) bool { return id == operatorID },
		ShortText:  200,
	})
	return h
}

func (h *harness) text(text string) {
	h.bot.HandleInbound(context.Background(), ports.Inbound{SenderID: operatorID, ChatID: chatID, Text: text})
}

func (h *harness) press(data string) {
	h.bot.HandleInbound(context.Background(), ports.Inbound{SenderID: operatorID, ChatID: chatID, CallbackID: "cb-" + data, CallbackData: data})
}

func longText() string {
	return "Harbour news\n" + strings.Repeat("The harbour reopened after a long winter. ", 10)
}

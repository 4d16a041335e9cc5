package contentstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
)

type wpFake struct {
	mu       sync.Mutex
	created  map[string]any
	updates  map[string]map[string]any
	uploaded string
}

func newWPServer(t *testing.T, fake *wpFake) *httptest.Server {
	t.Helper()
	fake.updates = map[string]map[string]any{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); r.URL.Path != "/img/cover.jpg" && (!ok || user != "editor" || pass != "app-pass") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		fake.mu.Lock()
		defer fake.mu.Unlock()

		readJSON := func() map[string]any {
			var m map[string]any
			_ = json.NewDecoder(r.Body).Decode(&m)
			return m
		}

		switch {
		case r.URL.Path == "/img/cover.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8, 0xff})
		case r.URL.Path == "/wp-json/wp/v2/categories" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`[]`))
		case r.URL.Path == "/wp-json/wp/v2/categories" && r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"id":5,"name":"City"}`))
		case r.URL.Path == "/wp-json/wp/v2/tags" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`[{"id":8,"name":"ports"},{"id":9,"name":"port"}]`))
		case r.URL.Path == "/wp-json/wp/v2/posts" && r.Method == http.MethodPost:
			fake.created = readJSON()
			_, _ = w.Write([]byte(`{"id":101}`))
		case r.URL.Path == "/wp-json/wp/v2/media":
			fake.uploaded = r.Header.Get("Content-Disposition")
			_, _ = w.Write([]byte(`{"id":7,"source_url":"https://site.example/uploads/cover.jpg"}`))
		case strings.HasPrefix(r.URL.Path, "/wp-json/wp/v2/posts/") && r.Method == http.MethodPost:
			fake.updates[r.URL.Path] = readJSON()
			_, _ = w.Write([]byte(`{"id":101}`))
		case r.URL.Path == "/wp-json/wp/v2/posts/101":
			_, _ = w.Write([]byte(`{"id":101,"link":"https://site.example/harbour","status":"publish","title":{"rendered":"Harbour"},"date_gmt":"2026-01-02T03:04:05"}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newClient(t *testing.T, base string) *WordPress {
	t.Helper()
	wp, err := NewWordPress(config.ContentStoreConfig{BaseURL: base + "/", Username: "editor", AppPassword: "app-pass", AuthorID: 3})
	if err != nil {
		t.Fatalf("NewWordPress: %v", err)
	}
	return wp
}

func TestCreatePostResolvesTerms(t *testing.T) {
	t.Parallel()

	fake := &wpFake{}
	server := newWPServer(t, fake)
	defer server.Close()

	id, err := newClient(t, server.URL).CreatePost(context.Background(), domain.Post{
		Title: "Harbour", Body: "<p>body</p>", Excerpt: "short",
		Categories: []string{"City"}, Tags: []string{"port"},
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if id != 101 {
		t.Fatalf("unexpected id %d", id)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.created["status"] != "publish" || fake.created["author"] != float64(3) {
		t.Fatalf("unexpected payload: %v", fake.created)
	}
	if cats, _ := fake.created["categories"].([]any); len(cats) != 1 || cats[0] != float64(5) {
		t.Fatalf("unexpected categories: %v", fake.created["categories"])
	}
	if tags, _ := fake.created["tags"].([]any); len(tags) != 1 || tags[0] != float64(9) {
		t.Fatalf("unexpected tags: %v", fake.created["tags"])
	}
}

func TestSetFeaturedImageSideloads(t *testing.T) {
	t.Parallel()

	fake := &wpFake{}
	server := newWPServer(t, fake)
	defer server.Close()

	if err := newClient(t, server.URL).SetFeaturedImage(context.Background(), 101, server.URL+"/img/cover.jpg"); err != nil {
		t.Fatalf("SetFeaturedImage: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if !strings.Contains(fake.uploaded, "cover.jpg") {
		t.Fatalf("unexpected disposition: %q", fake.uploaded)
	}
	if fake.updates["/wp-json/wp/v2/posts/101"]["featured_media"] != float64(7) {
		t.Fatalf("featured media not attached: %v", fake.updates)
	}
}

func TestUpdatePostSendsOnlySetFields(t *testing.T) {
	t.Parallel()

	fake := &wpFake{}
	server := newWPServer(t, fake)
	defer server.Close()

	title := "New title"
	if err := newClient(t, server.URL).UpdatePost(context.Background(), 101, domain.PostPatch{Title: &title}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	got := fake.updates["/wp-json/wp/v2/posts/101"]
	if len(got) != 1 || got["title"] != "New title" {
		t.Fatalf("unexpected patch: %v", got)
	}
}

func TestPermalink(t *testing.T) {
	t.Parallel()

	server := newWPServer(t, &wpFake{})
	defer server.Close()

	link, err := newClient(t, server.URL).Permalink(context.Background(), 101)
	if err != nil {
		t.Fatalf("Permalink: %v", err)
	}
	if link != "https://site.example/harbour" {
		t.Fatalf("unexpected link %q", link)
	}
}

func TestNewWordPressRequiresCredentials(t *testing.T) {
	t.Parallel()

	if _, err := NewWordPress(config.ContentStoreConfig{BaseURL: "https://x"}); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

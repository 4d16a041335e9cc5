package images

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
)

func TestGeneratorUnderstandsBothResponseShapes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("missing auth header")
		}
		switch r.URL.Path {
		case "/flat":
			_, _ = w.Write([]byte(`{"url":"https://img.example/a.png"}`))
		case "/openai":
			_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/b.png"}]}`))
		default:
			_, _ = w.Write([]byte(`{"data":[]}`))
		}
	}))
	defer server.Close()

	for path, want := range map[string]string{"/flat": "https://img.example/a.png", "/openai": "https://img.example/b.png"} {
		g, err := NewGenerator(config.ImagesConfig{GeneratorURL: server.URL + path, APIKey: "k"})
		if err != nil {
			t.Fatalf("NewGenerator: %v", err)
		}
		got, err := g.Generate(context.Background(), "harbour at dawn")
		if err != nil {
			t.Fatalf("Generate(%s): %v", path, err)
		}
		if got != want {
			t.Fatalf("Generate(%s) = %q, want %q", path, got, want)
		}
	}

	g, _ := NewGenerator(config.ImagesConfig{GeneratorURL: server.URL + "/empty", APIKey: "k"})
	if _, err := g.Generate(context.Background(), "x"); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestTemplateExpandsAndEscapes(t *testing.T) {
	t.Parallel()

	tpl, err := NewTemplate("https://cards.example/render?title={title}&url={url}")
	if err != nil {
		t.Fatalf("NewTemplate: %v", err)
	}
	got, _ := tpl.ShareCard(context.Background(), "Storm & tide", "https://site.example/a?b=1")
	if !strings.Contains(got, "title=Storm+%26+tide") || !strings.Contains(got, "url=https%3A%2F%2Fsite.example%2Fa%3Fb%3D1") {
		t.Fatalf("unexpected expansion: %s", got)
	}

	if _, err := NewTemplate("not a url {title}"); err == nil {
		t.Fatalf("expected invalid template error")
	}
	if _, err := NewTemplate(""); !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

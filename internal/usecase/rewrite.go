package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// ErrMalformedRewrite reports a completion that did not carry a usable draft.
var ErrMalformedRewrite = fmt.Errorf("rewrite: %w", domain.ErrMalformedResponse)

const (
	defaultRewriteSystem = "You are a news editor. Rewrite the source as an original article."
	rewriteFormat        = "Reply with one JSON object: title_a, title_b, excerpt, body (HTML paragraphs), tags (array), categories (array)."
)

// Rewriter turns source material into a structured draft with one completion call.
type Rewriter struct {
	completer ports.Completer
	system    string
	maxTokens int
}

// NewRewriter wraps the completer; an empty system prompt uses the built-in one.
func NewRewriter(c ports.Completer, systemPrompt string) *Rewriter {
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultRewriteSystem
	}
	return &Rewriter{completer: c, system: strings.TrimSpace(systemPrompt) + " " + rewriteFormat, maxTokens: 2000}
}

type rewriteReply struct {
	TitleA     string   `json:"title_a"`
	TitleB     string   `json:"title_b"`
	Excerpt    string   `json:"excerpt"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
	Categories []string `json:"categories"`
}

// Rewrite calls the completer once; nothing is persisted here.
func (r *Rewriter) Rewrite(ctx context.Context, src domain.SourceMaterial) (domain.Draft, error) {
	if r == nil || r.completer == nil {
		return domain.Draft{}, domain.ErrNotConfigured
	}
	raw, err := r.completer.Complete(ctx, rewritePrompt(src), ports.CompleteOptions{
		System:      r.system,
		MaxTokens:   r.maxTokens,
		Temperature: 0.7,
		JSON:        true,
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("rewrite %q: %w", src.Title, err)
	}
	return ParseDraft(raw)
}

// ParseDraft extracts the draft object from a completion, tolerating code
// fences and surrounding prose.
func ParseDraft(raw string) (domain.Draft, error) {
	var reply rewriteReply
	if err := decodeObject(raw, &reply); err != nil {
		return domain.Draft{}, &MalformedError{Raw: raw, Err: errors.Join(ErrMalformedRewrite, err)}
	}
	reply.TitleA = strings.TrimSpace(reply.TitleA)
	reply.Body = strings.TrimSpace(reply.Body)
	if reply.TitleA == "" || reply.Body == "" {
		return domain.Draft{}, &MalformedError{Raw: raw, Err: fmt.Errorf("%w: title_a or body missing", ErrMalformedRewrite)}
	}
	return domain.Draft{
		TitleA:     reply.TitleA,
		TitleB:     strings.TrimSpace(reply.TitleB),
		Excerpt:    strings.TrimSpace(reply.Excerpt),
		Body:       reply.Body,
		Tags:       compact(reply.Tags),
		Categories: compact(reply.Categories),
	}, nil
}

// MalformedError carries the raw completion for logging.
type MalformedError struct {
	Raw string
	Err error
}

func (e *MalformedError) Error() string { return e.Err.Error() }

func (e *MalformedError) Unwrap() error { return e.Err }

// RawPayload returns the raw text of a malformed completion, truncated for logs.
func RawPayload(err error) string {
	var m *MalformedError
	if !errors.As(err, &m) {
		return ""
	}
	return truncateRunes(m.Raw, 500)
}

// decodeObject unmarshals the text between the first '{' and the last '}'.
func decodeObject(raw string, v any) error {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return errors.New("no json object in completion")
	}
	return json.Unmarshal([]byte(raw[start:end+1]), v)
}

func rewritePrompt(src domain.SourceMaterial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", src.Title)
	if src.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", src.Summary)
	}
	if src.Content != "" {
		fmt.Fprintf(&b, "Content:\n%s\n", truncateRunes(src.Content, 6000))
	}
	if src.Link != "" {
		fmt.Fprintf(&b, "Source: %s\n", src.Link)
	}
	if src.Territory != "" {
		fmt.Fprintf(&b, "Territory: %s\n", src.Territory)
	}
	return b.String()
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[strings.ToLower(v)] {
			continue
		}
		seen[strings.ToLower(v)] = true
		out = append(out, v)
	}
	return out
}

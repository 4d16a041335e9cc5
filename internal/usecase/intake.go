package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// manualPriority places operator ideas ahead of researched topics.
const manualPriority = 1

// IntakeDeps wires manual submissions.
type IntakeDeps struct {
	Queue     *Queue
	Rewriter  *Rewriter
	Images    *ImageChain
	Approvals *Approvals
	Metadata  ports.MetadataFetcher
	Store     ports.ContentStore
	Completer ports.Completer
	Logger    *slog.Logger
}

// Intake turns operator and automation input into candidates or approvals.
type Intake struct {
	deps IntakeDeps
}

// NewIntake builds the submission usecase.
func NewIntake(deps IntakeDeps) *Intake {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Intake{deps: deps}
}

// ArticleRequest is a trusted automation submission.
type ArticleRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	SourceURL string `json:"source_url"`
	ImageURL  string `json:"image_url"`
	Rewrite   bool   `json:"rewrite"`
}

// Idea queues a short operator text as a pending candidate.
func (in *Intake) Idea(ctx context.Context, text string) (int64, error) {
	return in.deps.Queue.Enqueue(ctx, domain.Candidate{
		Title:    strings.TrimSpace(text),
		Priority: manualPriority,
	})
}

// Link fetches page metadata, rewrites it and submits the draft.
func (in *Intake) Link(ctx context.Context, url string) (domain.Approval, error) {
	if in.deps.Metadata == nil {
		return domain.Approval{}, fmt.Errorf("link intake: %w", domain.ErrNotConfigured)
	}
	meta, err := in.deps.Metadata.Fetch(ctx, url)
	if err != nil {
		return domain.Approval{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return in.rewriteAndSubmit(ctx, domain.SourceMaterial{
		Title:    meta.Title,
		Summary:  meta.Description,
		Link:     url,
		ImageURL: meta.ImageURL,
	}, url)
}

// Text rewrites a long operator text into an approval.
func (in *Intake) Text(ctx context.Context, text string) (domain.Approval, error) {
	text = strings.TrimSpace(text)
	title, _, _ := strings.Cut(text, "\n")
	return in.rewriteAndSubmit(ctx, domain.SourceMaterial{
		Title:   truncateRunes(title, 120),
		Content: text,
	}, "text")
}

// Photo uploads an operator photo and submits a minimal manual approval.
// The caption is paraphrased when a completer is wired.
func (in *Intake) Photo(ctx context.Context, fileURL, caption string) (domain.Approval, error) {
	if in.deps.Store == nil {
		return domain.Approval{}, fmt.Errorf("photo intake: %w", domain.ErrNotConfigured)
	}
	caption = strings.TrimSpace(caption)
	mediaURL, err := in.deps.Store.UploadMedia(ctx, fileURL, caption)
	if err != nil {
		return domain.Approval{}, fmt.Errorf("upload photo: %w", err)
	}

	excerpt := in.paraphrase(ctx, caption)
	title, _, _ := strings.Cut(caption, "\n")
	title = truncateRunes(strings.TrimSpace(title), 120)
	if title == "" {
		title = "Photo"
	}
	draft := domain.Draft{
		TitleA:   title,
		Excerpt:  excerpt,
		Body:     photoBody(mediaURL, excerpt),
		ImageURL: mediaURL,
	}
	return in.deps.Approvals.Submit(ctx, draft, domain.ApprovalManual, "photo")
}

// Article accepts automation input, optionally rewriting it first.
func (in *Intake) Article(ctx context.Context, req ArticleRequest) (domain.Approval, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return domain.Approval{}, domain.ErrEmptyTitle
	}
	if req.Rewrite {
		return in.rewriteAndSubmit(ctx, domain.SourceMaterial{
			Title:    req.Title,
			Content:  req.Content,
			Link:     req.SourceURL,
			ImageURL: req.ImageURL,
		}, req.SourceURL)
	}
	draft := domain.Draft{
		TitleA:  req.Title,
		Excerpt: truncateRunes(plainExcerpt(req.Content), 300),
		Body:    req.Content,
	}
	draft.ImageURL = in.deps.Images.Acquire(ctx, req.ImageURL, draft.TitleA, draft.Excerpt)
	return in.deps.Approvals.Submit(ctx, draft, domain.ApprovalManual, req.SourceURL)
}

func (in *Intake) rewriteAndSubmit(ctx context.Context, src domain.SourceMaterial, ref string) (domain.Approval, error) {
	draft, err := in.deps.Rewriter.Rewrite(ctx, src)
	if err != nil {
		return domain.Approval{}, err
	}
	draft.ImageURL = in.deps.Images.Acquire(ctx, src.ImageURL, draft.TitleA, draft.Excerpt)
	return in.deps.Approvals.Submit(ctx, draft, domain.ApprovalManual, ref)
}

func (in *Intake) paraphrase(ctx context.Context, caption string) string {
	if caption == "" || in.deps.Completer == nil {
		return caption
	}
	out, err := in.deps.Completer.Complete(ctx, caption, ports.CompleteOptions{
		System:      "Paraphrase this photo caption as one neutral news sentence. Reply with the sentence only.",
		MaxTokens:   200,
		Temperature: 0.5,
	})
	if err != nil || strings.TrimSpace(out) == "" {
		in.deps.Logger.WarnContext(ctx, "caption paraphrase failed, keeping original", "error", err)
		return caption
	}
	return strings.TrimSpace(out)
}

func photoBody(mediaURL, caption string) string {
	return fmt.Sprintf(`<figure><img src="%s" alt="%s"/><figcaption>%s</figcaption></figure>`,
		html.EscapeString(mediaURL), html.EscapeString(caption), html.EscapeString(caption))
}

func plainExcerpt(content string) string {
	var b strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

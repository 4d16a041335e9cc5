package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

const maxImageBytes = 15 << 20

// WordPress talks to the WordPress REST API with application-password auth.
type WordPress struct {
	base            string
	username        string
	password        string
	authorID        int64
	defaultCategory string
	http            *http.Client
}

var _ ports.ContentStore = (*WordPress)(nil)

// NewWordPress builds a client; it does not contact the site.
func NewWordPress(cfg config.ContentStoreConfig) (*WordPress, error) {
	if cfg.BaseURL == "" || cfg.Username == "" || cfg.AppPassword == "" {
		return nil, fmt.Errorf("wordpress: %w", domain.ErrNotConfigured)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WordPress{
		base:            strings.TrimSuffix(cfg.BaseURL, "/") + "/wp-json/wp/v2",
		username:        cfg.Username,
		password:        cfg.AppPassword,
		authorID:        cfg.AuthorID,
		defaultCategory: cfg.DefaultCategory,
		http:            &http.Client{Timeout: timeout},
	}, nil
}

type wpRendered struct {
	Rendered string `json:"rendered"`
	Raw      string `json:"raw,omitempty"`
}

type wpPost struct {
	ID            int64      `json:"id"`
	Date          string     `json:"date_gmt"`
	Link          string     `json:"link"`
	Status        string     `json:"status"`
	Title         wpRendered `json:"title"`
	Content       wpRendered `json:"content"`
	Excerpt       wpRendered `json:"excerpt"`
	Author        int64      `json:"author"`
	FeaturedMedia int64      `json:"featured_media"`
}

type wpMedia struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

type wpTerm struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreatePost creates the article; category and tag names are resolved to term ids, creating missing ones.
func (w *WordPress) CreatePost(ctx context.Context, p domain.Post) (int64, error) {
	categories := p.Categories
	if len(categories) == 0 && w.defaultCategory != "" {
		categories = []string{w.defaultCategory}
	}
	catIDs, err := w.termIDs(ctx, "categories", categories)
	if err != nil {
		return 0, err
	}
	tagIDs, err := w.termIDs(ctx, "tags", p.Tags)
	if err != nil {
		return 0, err
	}

	status := p.Status
	if status == "" {
		status = domain.PostPublish
	}
	author := p.AuthorID
	if author == 0 {
		author = w.authorID
	}

	payload := map[string]any{
		"title":   p.Title,
		"content": p.Body,
		"excerpt": p.Excerpt,
		"status":  string(status),
	}
	if author > 0 {
		payload["author"] = author
	}
	if len(catIDs) > 0 {
		payload["categories"] = catIDs
	}
	if len(tagIDs) > 0 {
		payload["tags"] = tagIDs
	}

	var created wpPost
	if err := w.do(ctx, http.MethodPost, "/posts", payload, &created); err != nil {
		return 0, fmt.Errorf("create post: %w", err)
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("create post: %w", domain.ErrMalformedResponse)
	}
	return created.ID, nil
}

// SetFeaturedImage sideloads imageURL into the media library and attaches it to the post.
func (w *WordPress) SetFeaturedImage(ctx context.Context, postID int64, imageURL string) error {
	media, err := w.sideload(ctx, imageURL, "")
	if err != nil {
		return err
	}
	if err := w.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(postID, 10),
		map[string]any{"featured_media": media.ID}, nil); err != nil {
		return fmt.Errorf("attach featured image to post %d: %w", postID, err)
	}
	return nil
}

// UploadMedia sideloads an image and returns its library URL.
func (w *WordPress) UploadMedia(ctx context.Context, imageURL, caption string) (string, error) {
	media, err := w.sideload(ctx, imageURL, caption)
	if err != nil {
		return "", err
	}
	return media.SourceURL, nil
}

// UpdatePost applies the non-nil fields of patch in one request.
func (w *WordPress) UpdatePost(ctx context.Context, postID int64, patch domain.PostPatch) error {
	payload := map[string]any{}
	if patch.Title != nil {
		payload["title"] = *patch.Title
	}
	if patch.Excerpt != nil {
		payload["excerpt"] = *patch.Excerpt
	}
	if patch.Body != nil {
		payload["content"] = *patch.Body
	}
	if patch.Status != nil {
		payload["status"] = string(*patch.Status)
	}
	if len(payload) == 0 {
		return nil
	}
	if err := w.do(ctx, http.MethodPost, "/posts/"+strconv.FormatInt(postID, 10), payload, nil); err != nil {
		return fmt.Errorf("update post %d: %w", postID, err)
	}
	return nil
}

// GetPost reads a post by id.
func (w *WordPress) GetPost(ctx context.Context, postID int64) (domain.Post, error) {
	var p wpPost
	if err := w.do(ctx, http.MethodGet, "/posts/"+strconv.FormatInt(postID, 10), nil, &p); err != nil {
		return domain.Post{}, fmt.Errorf("get post %d: %w", postID, err)
	}
	return p.toDomain(), nil
}

// Permalink returns the public URL of a post.
func (w *WordPress) Permalink(ctx context.Context, postID int64) (string, error) {
	p, err := w.GetPost(ctx, postID)
	if err != nil {
		return "", err
	}
	return p.Permalink, nil
}

// RecentPosts lists the latest published posts.
func (w *WordPress) RecentPosts(ctx context.Context, limit int) ([]domain.Post, error) {
	if limit <= 0 {
		limit = 5
	}
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(limit))
	q.Set("orderby", "date")
	q.Set("order", "desc")

	var posts []wpPost
	if err := w.do(ctx, http.MethodGet, "/posts?"+q.Encode(), nil, &posts); err != nil {
		return nil, fmt.Errorf("recent posts: %w", err)
	}
	out := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.toDomain())
	}
	return out, nil
}

func (p wpPost) toDomain() domain.Post {
	title := p.Title.Raw
	if title == "" {
		title = p.Title.Rendered
	}
	post := domain.Post{
		ID:        p.ID,
		Title:     title,
		Body:      p.Content.Rendered,
		Excerpt:   strings.TrimSpace(p.Excerpt.Rendered),
		Status:    domain.PostStatus(p.Status),
		AuthorID:  p.Author,
		Permalink: p.Link,
	}
	if t, err := time.Parse("2006-01-02T15:04:05", p.Date); err == nil {
		post.Date = t.UTC()
	}
	return post
}

func (w *WordPress) termIDs(ctx context.Context, taxonomy string, names []string) ([]int64, error) {
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var found []wpTerm
		if err := w.do(ctx, http.MethodGet, "/"+taxonomy+"?search="+url.QueryEscape(name), nil, &found); err != nil {
			return nil, fmt.Errorf("lookup %s %q: %w", taxonomy, name, err)
		}
		id := int64(0)
		for _, term := range found {
			if strings.EqualFold(term.Name, name) {
				id = term.ID
				break
			}
		}
		if id == 0 {
			var created wpTerm
			if err := w.do(ctx, http.MethodPost, "/"+taxonomy, map[string]any{"name": name}, &created); err != nil {
				return nil, fmt.Errorf("create %s %q: %w", taxonomy, name, err)
			}
			id = created.ID
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *WordPress) sideload(ctx context.Context, imageURL, caption string) (wpMedia, error) {
	data, contentType, err := w.download(ctx, imageURL)
	if err != nil {
		return wpMedia{}, fmt.Errorf("download image: %w", err)
	}

	filename := path.Base(strings.SplitN(imageURL, "?", 2)[0])
	if filename == "" || filename == "." || filename == "/" || !strings.Contains(filename, ".") {
		ext := ".jpg"
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
		filename = "image" + ext
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/media", bytes.NewReader(data))
	if err != nil {
		return wpMedia{}, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(w.username, w.password)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))

	var media wpMedia
	if err := w.send(req, &media); err != nil {
		return wpMedia{}, fmt.Errorf("upload media: %w", err)
	}

	if caption != "" && media.ID != 0 {
		if err := w.do(ctx, http.MethodPost, "/media/"+strconv.FormatInt(media.ID, 10),
			map[string]any{"caption": caption, "alt_text": caption}, nil); err != nil {
			return media, fmt.Errorf("caption media %d: %w", media.ID, err)
		}
	}
	return media, nil
}

func (w *WordPress) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image returned %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

func (w *WordPress) do(ctx context.Context, method, endpoint string, payload any, v any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.base+endpoint, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(w.username, w.password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return w.send(req, v)
}

func (w *WordPress) send(req *http.Request, v any) error {
	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("wordpress error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}
	if v == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", domain.ErrMalformedResponse)
	}
	return nil
}

package domain

import "time"

// PostStatus is the content store publication state.
type PostStatus string

const (
	PostDraft   PostStatus = "draft"
	PostPublish PostStatus = "publish"
)

// Post is an article as exchanged with the content store.
type Post struct {
	ID         int64
	Title      string
	Body       string
	Excerpt    string
	Status     PostStatus
	AuthorID   int64
	Categories []string
	Tags       []string
	ImageURL   string
	Permalink  string
	Date       time.Time
}

// PostPatch updates individual fields; nil fields are left untouched.
type PostPatch struct {
	Title   *string
	Excerpt *string
	Body    *string
	Status  *PostStatus
}

// Published is handed to post-publish hooks.
type Published struct {
	Approval  Approval
	PostID    int64
	Permalink string
}

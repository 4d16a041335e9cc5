package domain

import (
	"fmt"
	"time"
)

// SessionKind names the input the bot is waiting for.
type SessionKind string

const (
	AwaitingTitle   SessionKind = "awaiting_title"
	AwaitingExcerpt SessionKind = "awaiting_excerpt"
	AwaitingImage   SessionKind = "awaiting_image"
	AwaitingCaption SessionKind = "awaiting_caption"
)

// Valid reports whether k is a known session kind.
func (k SessionKind) Valid() bool {
	switch k {
	case AwaitingTitle, AwaitingExcerpt, AwaitingImage, AwaitingCaption:
		return true
	}
	return false
}

// Session is the short-lived per-operator conversation state.
// TargetID is a content-store post id for edits and an approval id for captions.
type Session struct {
	OperatorID int64       `json:"operator_id"`
	Kind       SessionKind `json:"kind"`
	TargetID   int64       `json:"target_id"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Expired reports whether the session is past its TTL at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Tag renders the session as a single string, e.g. "awaiting_title:42".
func (s Session) Tag() string {
	return fmt.Sprintf("%s:%d", s.Kind, s.TargetID)
}

package domain

import "errors"

var (
	// ErrNotFound is returned by repositories when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmptyTitle rejects candidates and drafts without a title.
	ErrEmptyTitle = errors.New("title is empty")
	// ErrIllegalTransition reports a status change outside the transition table.
	ErrIllegalTransition = errors.New("illegal status transition")
	// ErrStaleStatus reports that a conditional update found a different prior status.
	ErrStaleStatus = errors.New("record status changed concurrently")
	// ErrNotConfigured marks a feature whose credentials are missing.
	ErrNotConfigured = errors.New("feature not configured")
	// ErrMalformedResponse marks a completion or channel payload that could not be parsed.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrSessionActive refuses a new session while another one is still live.
	ErrSessionActive = errors.New("operator session already active")
)

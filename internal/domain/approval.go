package domain

import "time"

// ApprovalType records where a draft came from.
type ApprovalType string

const (
	ApprovalDailyRSS    ApprovalType = "daily_rss"
	ApprovalColdContent ApprovalType = "cold_content"
	ApprovalManual      ApprovalType = "manual"
)

// ApprovalStatus is the approval state machine position.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "pending"
	ApprovalApprovedA ApprovalStatus = "approved_a"
	ApprovalApprovedB ApprovalStatus = "approved_b"
	ApprovalRejected  ApprovalStatus = "rejected"
	ApprovalPublished ApprovalStatus = "published"
)

// Approved reports whether the record has a chosen variant and awaits publication.
func (s ApprovalStatus) Approved() bool {
	return s == ApprovalApprovedA || s == ApprovalApprovedB
}

// Terminal reports whether no further transition is possible.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalRejected || s == ApprovalPublished
}

// Rank places the status in the lattice pending < resolved < published.
func (s ApprovalStatus) Rank() int {
	switch s {
	case ApprovalPending:
		return 0
	case ApprovalApprovedA, ApprovalApprovedB, ApprovalRejected:
		return 1
	case ApprovalPublished:
		return 2
	}
	return -1
}

// Variant selects one of the two offered titles.
type Variant string

const (
	VariantA Variant = "a"
	VariantB Variant = "b"
)

// ParseVariant accepts "a"/"b" in any case.
func ParseVariant(v string) (Variant, bool) {
	switch v {
	case "a", "A":
		return VariantA, true
	case "b", "B":
		return VariantB, true
	}
	return "", false
}

// Status returns the approved status for the variant.
func (v Variant) Status() ApprovalStatus {
	if v == VariantB {
		return ApprovalApprovedB
	}
	return ApprovalApprovedA
}

// Approval is a rewritten draft awaiting the editor's decision.
type Approval struct {
	ID            int64
	Type          ApprovalType
	SourceRef     string
	TitleA        string
	TitleB        string
	Excerpt       string
	Body          string
	ImageURL      string
	Tags          []string
	Categories    []string
	MessageID     int
	Status        ApprovalStatus
	ResolvedTitle string
	PostID        int64
	CreatedAt     time.Time
	ResolvedAt    *time.Time
}

// Title returns the title for the given variant, falling back to A when B is empty.
func (a Approval) Title(v Variant) string {
	if v == VariantB && a.TitleB != "" {
		return a.TitleB
	}
	return a.TitleA
}

// ApprovalChange is applied together with a status transition.
type ApprovalChange struct {
	ResolvedTitle *string
	ResolvedAt    *time.Time
	PostID        *int64
}

// Resolution reports the outcome of a human decision.
// Applied is false when the record was no longer pending.
type Resolution struct {
	ApprovalID int64
	Status     ApprovalStatus
	Applied    bool
	PostID     int64
}

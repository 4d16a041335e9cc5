package domain

// SourceMaterial is the raw input to a rewrite.
type SourceMaterial struct {
	Title     string
	Summary   string
	Content   string
	Link      string
	ImageURL  string
	Territory string
}

// Draft is the structured result of a rewrite plus the acquired image.
type Draft struct {
	TitleA     string
	TitleB     string
	Excerpt    string
	Body       string
	Tags       []string
	Categories []string
	ImageURL   string
}

// Approval converts a draft into a pending approval record.
func (d Draft) Approval(kind ApprovalType, sourceRef string) Approval {
	return Approval{
		Type:       kind,
		SourceRef:  sourceRef,
		TitleA:     d.TitleA,
		TitleB:     d.TitleB,
		Excerpt:    d.Excerpt,
		Body:       d.Body,
		ImageURL:   d.ImageURL,
		Tags:       d.Tags,
		Categories: d.Categories,
		Status:     ApprovalPending,
	}
}

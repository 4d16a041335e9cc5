package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"EditorialDesk/internal/config"
	"EditorialDesk/internal/domain"
	"EditorialDesk/internal/ports"
)

// Article is the payload pushed to the distribution subject.
type Article struct {
	ApprovalID int64    `json:"approval_id"`
	PostID     int64    `json:"post_id"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Permalink  string   `json:"permalink"`
	ImageURL   string   `json:"image_url,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// ArticleOf flattens a published record into its distribution payload.
func ArticleOf(p domain.Published) Article {
	return Article{
		ApprovalID: p.Approval.ID,
		PostID:     p.PostID,
		Title:      p.Approval.ResolvedTitle,
		Excerpt:    p.Approval.Excerpt,
		Permalink:  p.Permalink,
		ImageURL:   p.Approval.ImageURL,
		Tags:       p.Approval.Tags,
		Categories: p.Approval.Categories,
	}
}

// Distributor publishes articles to a JetStream subject.
type Distributor struct {
	nc      *nats.Conn
	js      jetstream.JetStream
	subject string
}

var _ ports.Distributor = (*Distributor)(nil)

// NewDistributor connects and ensures the stream exists.
func NewDistributor(ctx context.Context, cfg config.EventsConfig) (*Distributor, error) {
	if cfg.NATSURL == "" {
		return nil, domain.ErrNotConfigured
	}
	nc, err := nats.Connect(cfg.NATSURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{cfg.Subject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
	}
	return &Distributor{nc: nc, js: js, subject: cfg.Subject}, nil
}

// Distribute publishes the article and waits for the stream ack.
func (d *Distributor) Distribute(ctx context.Context, p domain.Published) error {
	data, err := json.Marshal(ArticleOf(p))
	if err != nil {
		return fmt.Errorf("marshal article: %w", err)
	}
	if _, err := d.js.Publish(ctx, d.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", d.subject, err)
	}
	return nil
}

// Close drains the connection.
func (d *Distributor) Close() {
	if d.nc != nil {
		d.nc.Close()
	}
}

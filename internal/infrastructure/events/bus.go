package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"EditorialDesk/internal/ports"
)

// Envelope is the wire form of a domain event on the bus.
type Envelope struct {
	Type       string         `json:"type"`
	SubjectID  string         `json:"subject_id"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Bus is the in-process domain event bus. Each event type is its own topic.
type Bus struct {
	pubSub *gochannel.GoChannel
	now    func() time.Time
}

var _ ports.EventPublisher = (*Bus)(nil)

// NewBus creates a gochannel bus buffering up to 64 messages per subscriber.
func NewBus() *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	return &Bus{pubSub: pubSub, now: time.Now}
}

// Publish emits e on the topic named after its type.
func (b *Bus) Publish(_ context.Context, e ports.Event) error {
	if e.Type == "" {
		return fmt.Errorf("publish event: empty type")
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = b.now()
	}
	data, err := json.Marshal(Envelope{
		Type:       e.Type,
		SubjectID:  e.SubjectID,
		Payload:    e.Payload,
		OccurredAt: e.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.Type, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	if err := b.pubSub.Publish(e.Type, msg); err != nil {
		return fmt.Errorf("publish event %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe returns decoded envelopes for one event type until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, eventType string) (<-chan Envelope, error) {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", eventType, err)
	}
	out := make(chan Envelope)
	go func() {
		defer close(out)
		for msg := range messages {
			var env Envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				msg.Nack()
				continue
			}
			msg.Ack()
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close stops the bus and all subscriptions.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}

package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"EditorialDesk/internal/ports"
)

// Handler consumes normalised updates.
type Handler func(ctx context.Context, in ports.Inbound)

// Decode parses a webhook body; ok is false for update kinds the desk ignores.
func Decode(raw []byte) (ports.Inbound, bool, error) {
	var upd tgbotapi.Update
	if err := json.Unmarshal(raw, &upd); err != nil {
		return ports.Inbound{}, false, fmt.Errorf("decode update: %w", err)
	}
	in, ok := Normalize(upd)
	return in, ok, nil
}

// Normalize converts a Bot API update into an Inbound value.
func Normalize(upd tgbotapi.Update) (ports.Inbound, bool) {
	switch {
	case upd.CallbackQuery != nil:
		cq := upd.CallbackQuery
		in := ports.Inbound{
			UpdateID:     upd.UpdateID,
			CallbackID:   cq.ID,
			CallbackData: cq.Data,
		}
		if cq.From != nil {
			in.SenderID = cq.From.ID
		}
		if cq.Message != nil {
			in.ChatID = cq.Message.Chat.ID
			in.MessageID = cq.Message.MessageID
		}
		return in, true
	case upd.Message != nil:
		msg := upd.Message
		in := ports.Inbound{
			UpdateID:  upd.UpdateID,
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
			Text:      msg.Text,
			Caption:   msg.Caption,
		}
		if msg.From != nil {
			in.SenderID = msg.From.ID
		}
		if n := len(msg.Photo); n > 0 {
			in.PhotoFileID = msg.Photo[n-1].FileID
		}
		if in.Text == "" && in.PhotoFileID == "" {
			return ports.Inbound{}, false
		}
		return in, true
	}
	return ports.Inbound{}, false
}

// Poller drives a Handler from long-polling getUpdates.
type Poller struct {
	api     *tgbotapi.BotAPI
	timeout int
	logger  *slog.Logger
}

// NewPoller wraps the bot client used by the channel.
func NewPoller(api *tgbotapi.BotAPI, timeout int, logger *slog.Logger) *Poller {
	if timeout <= 0 {
		timeout = 30
	}
	return &Poller{api: api, timeout: timeout, logger: logger}
}

// Run blocks until ctx is cancelled, handling updates one at a time.
func (p *Poller) Run(ctx context.Context, handle Handler) error {
	if _, err := p.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		p.logger.Warn("delete webhook failed", "error", err)
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(u)
	defer p.api.StopReceivingUpdates()

	p.logger.Info("telegram polling started", "timeout", p.timeout)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("telegram polling stopped")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if in, ok := Normalize(upd); ok {
				handle(ctx, in)
			}
		}
	}
}

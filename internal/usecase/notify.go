package usecase

import (
	"context"
	"log/slog"

	"EditorialDesk/internal/ports"
)

// Notifier sends plain text to the operator chat. Nil or unconfigured notifiers drop messages.
type Notifier struct {
	channel ports.ChatChannel
	chatID  int64
	logger  *slog.Logger
}

// NewNotifier returns nil when there is nobody to notify.
func NewNotifier(channel ports.ChatChannel, chatID int64, logger *slog.Logger) *Notifier {
	if channel == nil || chatID == 0 {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{channel: channel, chatID: chatID, logger: logger}
}

// Notify sends text; failures are logged.
func (n *Notifier) Notify(ctx context.Context, text string) {
	if n == nil || text == "" {
		return
	}
	if _, err := n.channel.SendMessage(ctx, n.chatID, Clamp(text, MessageLimit), nil); err != nil {
		n.logger.WarnContext(ctx, "operator notification failed", "error", err)
	}
}

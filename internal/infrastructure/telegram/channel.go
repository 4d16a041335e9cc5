package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"EditorialDesk/internal/ports"
)

// Channel sends and edits messages through the Telegram Bot API.
type Channel struct {
	api *tgbotapi.BotAPI
}

var _ ports.ChatChannel = (*Channel)(nil)

// NewChannel authenticates the bot token against the API.
func NewChannel(token string, timeout time.Duration) (*Channel, error) {
	return NewChannelWithEndpoint(token, tgbotapi.APIEndpoint, &http.Client{Timeout: timeout})
}

// NewChannelWithEndpoint targets a custom Bot API endpoint, e.g. a local server.
func NewChannelWithEndpoint(token, endpoint string, client *http.Client) (*Channel, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return &Channel{api: api}, nil
}

// API exposes the underlying client for the update poller.
func (c *Channel) API() *tgbotapi.BotAPI {
	return c.api
}

// SendMessage posts text with an optional inline keyboard.
func (c *Channel) SendMessage(ctx context.Context, chatID int64, text string, kb ports.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if markup, ok := inlineMarkup(kb); ok {
		msg.ReplyMarkup = markup
	}
	sent, err := c.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return sent.MessageID, nil
}

// SendPhoto posts an image by URL with caption and optional keyboard.
func (c *Channel) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, kb ports.Keyboard) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	if markup, ok := inlineMarkup(kb); ok {
		photo.ReplyMarkup = markup
	}
	sent, err := c.api.Send(photo)
	if err != nil {
		return 0, fmt.Errorf("send photo: %w", err)
	}
	return sent.MessageID, nil
}

// EditMessage replaces the text of a message, or its caption when it is a photo.
func (c *Channel) EditMessage(ctx context.Context, chatID int64, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		if !strings.Contains(err.Error(), "no text in the message") {
			return fmt.Errorf("edit message: %w", err)
		}
		if _, err := c.api.Request(tgbotapi.NewEditMessageCaption(chatID, messageID, text)); err != nil {
			return fmt.Errorf("edit caption: %w", err)
		}
	}
	return nil
}

// AnswerCallback acknowledges an inline button press.
func (c *Channel) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := c.api.Request(cb); err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}

// FileURL resolves a chat file id into a direct download URL.
func (c *Channel) FileURL(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file %s: %w", fileID, err)
	}
	return u, nil
}

func inlineMarkup(kb ports.Keyboard) (tgbotapi.InlineKeyboardMarkup, bool) {
	if len(kb) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

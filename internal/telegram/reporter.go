package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/autoacceptbot/internal/broadcast"
)

// StatusReporter keeps a single status message in the admin chat up to date
// while a broadcast runs.
type StatusReporter struct {
	api       API
	chatID    int64
	messageID int
}

var _ broadcast.Reporter = (*StatusReporter)(nil)

// NewStatusReporter sends the initial status text to chatID, as a reply to
// replyTo when it is non-zero, and returns a reporter bound to that message.
func NewStatusReporter(ctx context.Context, api API, chatID int64, replyTo int, text string) (*StatusReporter, error) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: text}
	if replyTo != 0 {
		params.ReplyParameters = &models.ReplyParameters{MessageID: replyTo}
	}

	msg, err := api.SendMessage(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to send status message: %w", err)
	}
	return &StatusReporter{api: api, chatID: chatID, messageID: msg.ID}, nil
}

// MessageID returns the id of the status message.
func (r *StatusReporter) MessageID() int { return r.messageID }

// Update replaces the status text.
func (r *StatusReporter) Update(ctx context.Context, text string) error {
	_, err := r.api.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    r.chatID,
		MessageID: r.messageID,
		Text:      text,
	})
	if err != nil && !isNotModified(err) {
		return fmt.Errorf("failed to edit status message: %w", err)
	}
	return nil
}

// Clear deletes the status message.
func (r *StatusReporter) Clear(ctx context.Context) error {
	if _, err := r.api.DeleteMessage(ctx, &bot.DeleteMessageParams{
		ChatID:    r.chatID,
		MessageID: r.messageID,
	}); err != nil {
		return fmt.Errorf("failed to delete status message: %w", err)
	}
	return nil
}

func isNotModified(err error) bool {
	return errors.Is(err, bot.ErrorBadRequest) && strings.Contains(err.Error(), "message is not modified")
}

package handlers

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/autoacceptbot/internal/database"
)

// NewStartHandler returns a handler for the /start command.
func NewStartHandler(deps HandlerDeps) bot.HandlerFunc {
	return startHandler{deps}.Handle
}

// startHandler registers the sender as a recipient and sends the welcome text.
type startHandler struct {
	deps HandlerDeps
}

func (h startHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "start")

	if update.Message == nil || update.Message.From == nil {
		log.WarnContext(ctx, "Start handler received update with nil message or sender", "update_id", update.ID)
		return
	}
	msg := update.Message
	if string(msg.Chat.Type) != "private" {
		log.DebugContext(ctx, "Ignoring /start outside a private chat", "chat_id", msg.Chat.ID)
		return
	}

	log.InfoContext(ctx, "Handling /start command", "chat_id", msg.Chat.ID, "user_id", msg.From.ID)

	added, err := h.deps.Store.AddRecipient(ctx, msg.From.ID, database.SourceStart)
	if err != nil {
		log.ErrorContext(ctx, "Failed to register recipient", "error", err, "user_id", msg.From.ID)
	} else if added {
		log.InfoContext(ctx, "New recipient registered", "user_id", msg.From.ID)
	}

	_, err = b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      msg.Chat.ID,
		Text:        fill(h.deps.Config.Messages.Start, "user", mention(*msg.From)),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: buttonsMarkup(h.deps.Config.Buttons),
	})
	if err != nil {
		log.ErrorContext(ctx, "Failed to send welcome message", "error", err, "chat_id", msg.Chat.ID)
	}
}

package handlers

import (
	"context"
	"errors"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/autoacceptbot/internal/broadcast"
)

// NewCancelHandler returns a handler for the /cancel command.
func NewCancelHandler(deps HandlerDeps) bot.HandlerFunc {
	return cancelHandler{deps}.Handle
}

type cancelHandler struct {
	deps HandlerDeps
}

func (h cancelHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	log := h.deps.Logger.With("handler", "cancel", "admin_id", msg.From.ID)

	text := h.deps.Config.Messages.CancelRequested
	if err := h.deps.Broadcasts.CancelByAdmin(msg.From.ID); err != nil {
		if !errors.Is(err, broadcast.ErrJobNotFound) {
			log.ErrorContext(ctx, "Failed to cancel broadcast", "error", err)
			return
		}
		text = h.deps.Config.Messages.NothingToCancel
	} else {
		log.InfoContext(ctx, "Broadcast cancellation requested")
	}

	if _, err := b.SendMessage(ctx, replyParams(msg, text)); err != nil {
		log.ErrorContext(ctx, "Failed to reply", "error", err)
	}
}

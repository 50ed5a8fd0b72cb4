package handlers

import (
	"context"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// NewStatsHandler returns a handler for the /stats and /users commands.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps}.Handle
}

type statsHandler struct {
	deps HandlerDeps
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")
	if update.Message == nil {
		return
	}

	total, err := h.deps.Store.CountRecipients(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count recipients", "error", err)
		return
	}

	running := 0
	if h.deps.Broadcasts != nil {
		running = len(h.deps.Broadcasts.Running())
	}

	text := fill(h.deps.Config.Messages.Stats,
		"total", humanize.Comma(int64(total)),
		"running", strconv.Itoa(running),
	)
	if _, err := b.SendMessage(ctx, replyParams(update.Message, text)); err != nil {
		log.ErrorContext(ctx, "Failed to send stats", "error", err, "chat_id", update.Message.Chat.ID)
	}
}

package handlers

import (
	"context"
	"html"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/autoacceptbot/internal/database"
)

// IsJoinRequest matches chat_join_request updates.
func IsJoinRequest(update *models.Update) bool {
	return update.ChatJoinRequest != nil
}

// NewJoinRequestHandler returns a handler that approves every join request,
// records the requester as a recipient and tells them they were accepted.
// A store failure is logged and does not block the approval.
func NewJoinRequestHandler(deps HandlerDeps) bot.HandlerFunc {
	return joinRequestHandler{deps}.Handle
}

type joinRequestHandler struct {
	deps HandlerDeps
}

func (h joinRequestHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	req := update.ChatJoinRequest
	if req == nil {
		return
	}
	log := h.deps.Logger.With("handler", "join_request", "chat_id", req.Chat.ID, "user_id", req.From.ID)

	if _, err := h.deps.Store.AddRecipient(ctx, req.From.ID, database.SourceJoinRequest); err != nil {
		log.ErrorContext(ctx, "Failed to register recipient", "error", err)
	}

	if _, err := b.ApproveChatJoinRequest(ctx, &bot.ApproveChatJoinRequestParams{
		ChatID: req.Chat.ID,
		UserID: req.From.ID,
	}); err != nil {
		log.ErrorContext(ctx, "Failed to approve join request", "error", err)
		return
	}
	log.InfoContext(ctx, "Join request approved")

	target := req.UserChatID
	if target == 0 {
		target = req.From.ID
	}

	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: target,
		Text: fill(h.deps.Config.Messages.Accepted,
			"user", mention(req.From),
			"chat", html.EscapeString(req.Chat.Title),
		),
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		log.WarnContext(ctx, "Failed to send acceptance message", "error", err)
	}
}

package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/samber/lo"

	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/telegram"
)

const summaryTimeout = 30 * time.Second

// NewBroadcastHandler returns a handler for the /broadcast command.
//
// The payload is the message the command replies to (copied verbatim) or,
// when there is no reply, the text after the command. The job runs in the
// background; the admin gets a status message that is kept up to date and a
// summary reply once it ends.
func NewBroadcastHandler(deps HandlerDeps) bot.HandlerFunc {
	return broadcastHandler{deps}.Handle
}

type broadcastHandler struct {
	deps HandlerDeps
}

// payloadFrom picks the broadcast payload. Inside a forum topic every message
// replies to the topic's creation message, which is not a payload.
func payloadFrom(msg *models.Message) broadcast.Payload {
	reply := msg.ReplyToMessage
	if reply != nil && !(msg.IsTopicMessage && reply.ID == msg.MessageThreadID) {
		return broadcast.Payload{Source: &broadcast.MessageRef{
			ChatID:    msg.Chat.ID,
			MessageID: msg.ReplyToMessage.ID,
		}}
	}
	return broadcast.Payload{Text: commandArgs(msg.Text)}
}

func (h broadcastHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message
	adminID := msg.From.ID
	log := h.deps.Logger.With("handler", "broadcast", "admin_id", adminID)
	messages := h.deps.Config.Messages

	payload := payloadFrom(msg)
	if err := payload.Validate(); err != nil {
		h.reply(ctx, b, msg, messages.NoPayload)
		return
	}

	total, err := h.deps.Store.CountRecipients(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to count recipients", "error", err)
		h.reply(ctx, b, msg, messages.Unavailable)
		return
	}
	if total == 0 {
		h.reply(ctx, b, msg, messages.NoRecipients)
		return
	}

	if lo.ContainsBy(h.deps.Broadcasts.Running(), func(j broadcast.JobInfo) bool { return j.AdminID == adminID }) {
		h.reply(ctx, b, msg, messages.AlreadyRunning)
		return
	}

	reporter, err := telegram.NewStatusReporter(ctx, b, msg.Chat.ID, msg.ID, messages.Started)
	if err != nil {
		log.ErrorContext(ctx, "Failed to send broadcast status message", "error", err)
		return
	}

	jobID, err := h.deps.Broadcasts.Start(ctx, adminID, payload, reporter, h.onDone(b, msg))
	if err != nil {
		if clearErr := reporter.Clear(ctx); clearErr != nil {
			log.WarnContext(ctx, "Failed to clear status message", "error", clearErr)
		}
		if errors.Is(err, broadcast.ErrAlreadyRunning) {
			h.reply(ctx, b, msg, messages.AlreadyRunning)
			return
		}
		log.ErrorContext(ctx, "Failed to start broadcast", "error", err)
		h.reply(ctx, b, msg, messages.Unavailable)
		return
	}

	log.InfoContext(ctx, "Broadcast started", "job_id", jobID, "total", total, "copy", payload.IsCopy())
}

// onDone replies to the command message with the outcome of the job.
func (h broadcastHandler) onDone(b *bot.Bot, msg *models.Message) broadcast.DoneFunc {
	renderer := h.deps.Config.Messages.Renderer()
	messages := h.deps.Config.Messages

	return func(ctx context.Context, job broadcast.JobInfo, sum broadcast.Summary, err error) {
		var text string
		switch {
		case err == nil:
			text = renderer.Completed(sum)
		case errors.Is(err, context.Canceled):
			text = renderer.Cancelled(sum)
		case errors.Is(err, broadcast.ErrNoRecipients):
			text = messages.NoRecipients
		case errors.Is(err, broadcast.ErrInvalidRequest):
			text = messages.NoPayload
		default:
			h.deps.Logger.ErrorContext(ctx, "Broadcast aborted", "job_id", job.ID, "error", err)
			text = renderer.Aborted(sum)
		}

		ctx, cancel := context.WithTimeout(ctx, summaryTimeout)
		defer cancel()
		h.reply(ctx, b, msg, text)
	}
}

func (h broadcastHandler) reply(ctx context.Context, b *bot.Bot, msg *models.Message, text string) {
	if _, err := b.SendMessage(ctx, replyParams(msg, text)); err != nil {
		h.deps.Logger.ErrorContext(ctx, "Failed to reply", "handler", "broadcast", "error", err, "chat_id", msg.Chat.ID)
	}
}

package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"golang.org/x/time/rate"

	"github.com/edgard/autoacceptbot/internal/broadcast"
)

// Default pacing for outbound broadcast messages. Telegram allows roughly
// 30 messages per second across all chats.
const (
	DefaultRatePerSecond  = 25
	DefaultRequestTimeout = 30 * time.Second
)

// Phrases in Bot API error descriptions that mean the recipient is gone for good.
var invalidRecipientPhrases = []string{
	"user is deactivated",
	"user is deleted",
	"chat not found",
	"peer_id_invalid",
	"user not found",
}

// Channel delivers broadcast payloads through the Bot API.
type Channel struct {
	api     API
	limiter *rate.Limiter
	timeout time.Duration
	logger  *slog.Logger
}

var _ broadcast.Channel = (*Channel)(nil)

// NewChannel creates a Channel that sends at most ratePerSecond messages per
// second. Non-positive values fall back to the defaults.
func NewChannel(api API, ratePerSecond int, requestTimeout time.Duration, logger *slog.Logger) *Channel {
	if ratePerSecond <= 0 {
		ratePerSecond = DefaultRatePerSecond
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Channel{
		api:     api,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		timeout: requestTimeout,
		logger:  logger.With("component", "telegram_channel"),
	}
}

// SendText sends text as a new message to recipientID.
func (c *Channel) SendText(ctx context.Context, recipientID int64, text string) broadcast.Result {
	if err := c.limiter.Wait(ctx); err != nil {
		return broadcast.Failed(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.SendMessage(reqCtx, &bot.SendMessageParams{
		ChatID: recipientID,
		Text:   text,
	})
	return c.classify(ctx, recipientID, err)
}

// Copy copies the source message to recipientID without a forward header.
func (c *Channel) Copy(ctx context.Context, recipientID int64, source broadcast.MessageRef) broadcast.Result {
	if err := c.limiter.Wait(ctx); err != nil {
		return broadcast.Failed(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.api.CopyMessage(reqCtx, &bot.CopyMessageParams{
		ChatID:     recipientID,
		FromChatID: source.ChatID,
		MessageID:  source.MessageID,
	})
	return c.classify(ctx, recipientID, err)
}

func (c *Channel) classify(ctx context.Context, recipientID int64, err error) broadcast.Result {
	res := Classify(err)
	if res.Outcome != broadcast.OutcomeSuccess {
		c.logger.DebugContext(ctx, "Delivery attempt failed",
			"recipient_id", recipientID, "outcome", res.Outcome.String(), "error", err)
	}
	return res
}

// Classify maps a go-telegram/bot error onto a broadcast Result.
func Classify(err error) broadcast.Result {
	if err == nil {
		return broadcast.Delivered()
	}

	var tooMany *bot.TooManyRequestsError
	if errors.As(err, &tooMany) {
		return broadcast.RetryLater(time.Duration(tooMany.RetryAfter) * time.Second)
	}

	desc := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, bot.ErrorForbidden) && strings.Contains(desc, "blocked"):
		return broadcast.BlockedBy(err)
	case errors.Is(err, bot.ErrorForbidden), errors.Is(err, bot.ErrorBadRequest):
		for _, phrase := range invalidRecipientPhrases {
			if strings.Contains(desc, phrase) {
				return broadcast.Invalid(err)
			}
		}
		if errors.Is(err, bot.ErrorForbidden) {
			// e.g. "bot can't initiate conversation with a user"
			return broadcast.BlockedBy(err)
		}
	}
	return broadcast.Failed(fmt.Errorf("send failed: %w", err))
}

// Package telegram adapts go-telegram/bot to the rest of the bot: it builds
// the client, registers update handlers and implements the broadcast
// Channel and Reporter over the Bot API.
package telegram

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/go-telegram/bot"
)

// RegisteredHandler describes one update handler and the middleware wrapped around it.
// When MatchFunc is set it takes precedence over HandlerType, Pattern and MatchType.
type RegisteredHandler struct {
	HandlerType bot.HandlerType
	Pattern     string
	MatchType   bot.MatchType
	MatchFunc   bot.MatchFunc
	Handler     bot.HandlerFunc
	Middleware  []bot.Middleware
}

// AllowedUpdates lists the update types the bot subscribes to.
var AllowedUpdates = bot.AllowedUpdates{"message", "chat_join_request"}

// NewTelegramBot creates a new Telegram bot instance using the go-telegram/bot library.
func NewTelegramBot(token string, logger *slog.Logger, opts ...bot.Option) (*bot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "telegram_bot")

	b, err := bot.New(token, opts...)
	if err != nil {
		log.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	log.Info("Telegram bot instance created", "token_prefix", tokenPrefix(token))
	return b, nil
}

func tokenPrefix(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "..."
}

// applyMiddleware wraps a handler function with a slice of middleware.
// The first middleware in the slice is the outermost.
func applyMiddleware(handler bot.HandlerFunc, mw []bot.Middleware) bot.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		handler = mw[i](handler)
	}
	return handler
}

// HandlerRegistrar is the registration surface of *bot.Bot.
type HandlerRegistrar interface {
	RegisterHandler(handlerType bot.HandlerType, pattern string, matchType bot.MatchType, f bot.HandlerFunc, m ...bot.Middleware) string
	RegisterHandlerMatchFunc(matchFunc bot.MatchFunc, f bot.HandlerFunc, m ...bot.Middleware) string
}

// RegisterHandlers registers every handler, in name order, with its middleware applied.
func RegisterHandlers(b HandlerRegistrar, logger *slog.Logger, registered map[string]RegisteredHandler) error {
	if b == nil {
		return fmt.Errorf("bot instance cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "handler_registry")

	if len(registered) == 0 {
		log.Warn("No handlers provided for registration.")
		return nil
	}

	names := make([]string, 0, len(registered))
	for name := range registered {
		names = append(names, name)
	}
	sort.Strings(names)

	count := 0
	for _, name := range names {
		h := registered[name]
		if h.Handler == nil {
			log.Warn("Skipping registration for nil handler", "name", name)
			continue
		}

		final := applyMiddleware(h.Handler, h.Middleware)
		if h.MatchFunc != nil {
			b.RegisterHandlerMatchFunc(h.MatchFunc, final)
		} else {
			b.RegisterHandler(h.HandlerType, h.Pattern, h.MatchType, final)
		}
		count++
		log.Debug("Registered handler", "name", name, "pattern", h.Pattern, "match_func", h.MatchFunc != nil, "middleware_count", len(h.Middleware))
	}

	log.Info("Registered Telegram handlers", "count", count)
	return nil
}

package handlers

import (
	tgbot "github.com/go-telegram/bot"

	"github.com/edgard/autoacceptbot/internal/telegram"
)

// RegisterAllCommands initializes and returns every update handler keyed by name.
func RegisterAllCommands(deps HandlerDeps) map[string]telegram.RegisteredHandler {
	handlers := make(map[string]telegram.RegisteredHandler)

	handlers["/start"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "start",
		Handler:     NewStartHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
	}
	handlers["join_request"] = telegram.RegisteredHandler{
		MatchFunc: IsJoinRequest,
		Handler:   NewJoinRequestHandler(deps),
	}

	adminMiddleware := []tgbot.Middleware{AdminOnly(deps)}

	for _, cmd := range []string{"stats", "users"} {
		handlers["/"+cmd] = telegram.RegisteredHandler{
			HandlerType: tgbot.HandlerTypeMessageText,
			Pattern:     cmd,
			Handler:     NewStatsHandler(deps),
			MatchType:   tgbot.MatchTypeCommandStartOnly,
			Middleware:  adminMiddleware,
		}
	}
	handlers["/broadcast"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "broadcast",
		Handler:     NewBroadcastHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}
	handlers["/cancel"] = telegram.RegisteredHandler{
		HandlerType: tgbot.HandlerTypeMessageText,
		Pattern:     "cancel",
		Handler:     NewCancelHandler(deps),
		MatchType:   tgbot.MatchTypeCommandStartOnly,
		Middleware:  adminMiddleware,
	}

	return handlers
}

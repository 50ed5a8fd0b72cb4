package handlers

import (
	"log/slog"

	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/config"
	"github.com/edgard/autoacceptbot/internal/database"
)

// HandlerDeps provides dependencies for Telegram update handlers.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Store      database.Store
	Broadcasts *broadcast.Manager
}

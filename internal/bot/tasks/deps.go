// Package tasks implements the bot's scheduled tasks and their registry.
package tasks

import (
	"log/slog"

	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/database"
)

// TaskDeps contains the dependencies shared by scheduled tasks.
type TaskDeps struct {
	Logger     *slog.Logger
	Store      database.Store
	Broadcasts *broadcast.Manager
}

// Package config loads the bot configuration from defaults, an optional YAML
// file and BOT_* environment variables, and validates it before startup.
package config

import (
	"time"

	"github.com/samber/lo"

	"github.com/edgard/autoacceptbot/internal/broadcast"
)

// Config is the complete application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	Messages  MessagesConfig  `mapstructure:"messages"`
	Buttons   []ButtonConfig  `mapstructure:"buttons"   validate:"dive"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type TelegramConfig struct {
	Token              string        `mapstructure:"token"                validate:"required"`
	AdminIDs           []int64       `mapstructure:"admin_ids"            validate:"required,min=1,dive,gt=0"`
	DropPendingUpdates bool          `mapstructure:"drop_pending_updates"`
	RatePerSecond      int           `mapstructure:"rate_per_second"      validate:"min=1,max=30"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"      validate:"min=1s"`
}

// IsAdmin reports whether userID is a configured administrator.
func (t TelegramConfig) IsAdmin(userID int64) bool {
	return lo.Contains(t.AdminIDs, userID)
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

type BroadcastConfig struct {
	ProgressEvery int `mapstructure:"progress_every" validate:"min=1"`
	PageSize      int `mapstructure:"page_size"      validate:"min=1,max=10000"`
}

// Options converts the broadcast settings into dispatcher options.
func (b BroadcastConfig) Options() broadcast.Options {
	return broadcast.Options{
		ProgressEvery: b.ProgressEvery,
		PageSize:      b.PageSize,
	}
}

// MessagesConfig holds every user-facing text. Placeholders use {name} syntax.
type MessagesConfig struct {
	Start           string `mapstructure:"start"             validate:"required"`
	Accepted        string `mapstructure:"accepted"          validate:"required"`
	Stats           string `mapstructure:"stats"             validate:"required"`
	NoRecipients    string `mapstructure:"no_recipients"     validate:"required"`
	NoPayload       string `mapstructure:"no_payload"        validate:"required"`
	Started         string `mapstructure:"started"           validate:"required"`
	Progress        string `mapstructure:"progress"          validate:"required"`
	Completed       string `mapstructure:"completed"         validate:"required"`
	Cancelled       string `mapstructure:"cancelled"         validate:"required"`
	Aborted         string `mapstructure:"aborted"           validate:"required"`
	NotAuthorized   string `mapstructure:"not_authorized"    validate:"required"`
	NothingToCancel string `mapstructure:"nothing_to_cancel" validate:"required"`
	CancelRequested string `mapstructure:"cancel_requested"  validate:"required"`
	AlreadyRunning  string `mapstructure:"already_running"   validate:"required"`
	Unavailable     string `mapstructure:"unavailable"       validate:"required"`
}

// Renderer builds the broadcast text renderer from the message templates.
func (m MessagesConfig) Renderer() broadcast.Renderer {
	return broadcast.Renderer{
		ProgressTemplate:  m.Progress,
		CompletedTemplate: m.Completed,
		CancelledTemplate: m.Cancelled,
		AbortedTemplate:   m.Aborted,
	}
}

// ButtonConfig is one URL button shown under the /start reply.
type ButtonConfig struct {
	Text string `mapstructure:"text" validate:"required"`
	URL  string `mapstructure:"url"  validate:"required,url"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

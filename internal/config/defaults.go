package config

import (
	"time"

	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/database"
	"github.com/edgard/autoacceptbot/internal/telegram"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false

	DefaultDropPendingUpdates = true
	DefaultRatePerSecond      = telegram.DefaultRatePerSecond
	DefaultRequestTimeout     = telegram.DefaultRequestTimeout

	DefaultProgressEvery = broadcast.DefaultProgressEvery
	DefaultPageSize      = database.DefaultPageSize

	DefaultMaintenanceSchedule = "0 0 4 * * *" // daily at 04:00
	DefaultStatsSchedule       = "0 0 * * * *" // hourly
)

// DefaultMessages are the built-in user-facing texts.
var DefaultMessages = MessagesConfig{
	Start:           "Hi {user}\n\nI am an Auto Request Accept Bot. Add me to your channel to use my features!",
	Accepted:        "Hey {user}\n\nYour Request For {chat} Is Accepted ✅",
	Stats:           "Total Users: {total}",
	NoRecipients:    "ℹ️ There are no users to broadcast to.",
	NoPayload:       "Reply to a message to broadcast, or send /broadcast followed by the text.",
	Started:         "📢 Broadcasting your message...",
	Progress:        broadcast.DefaultProgressTemplate,
	Completed:       broadcast.DefaultCompletedTemplate,
	Cancelled:       broadcast.DefaultCancelledTemplate,
	Aborted:         broadcast.DefaultAbortedTemplate,
	NotAuthorized:   "🚫 Access denied.",
	NothingToCancel: "ℹ️ No broadcast is running.",
	CancelRequested: "🛑 Stopping the broadcast...",
	AlreadyRunning:  "⏳ A broadcast is already running. Use /cancel to stop it first.",
	Unavailable:     "⚠️ Something went wrong, please try again later.",
}

// DefaultButtons are shown under the /start reply.
var DefaultButtons = []ButtonConfig{
	{Text: "Updates", URL: "https://t.me/QuantumEthics"},
	{Text: "Support", URL: "https://t.me/InfoSecInsiders"},
}

var defaultTimeouts = map[string]time.Duration{
	"telegram.request_timeout": DefaultRequestTimeout,
}

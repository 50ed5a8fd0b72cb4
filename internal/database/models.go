package database

import "time"

// Recipient sources, recorded when a user first reaches the bot.
const (
	SourceStart       = "start"
	SourceJoinRequest = "join_request"
)

// Recipient is a Telegram user eligible to receive broadcasts.
// Rows are created on /start or on a chat join request and deleted when
// the provider reports the account as permanently unreachable.
type Recipient struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Source    string    `db:"source"`
	CreatedAt time.Time `db:"created_at"`
}

// RecipientSnapshot is the size and upper id bound of the recipient table,
// read together so a job's total matches the rows it will visit.
type RecipientSnapshot struct {
	Count int   `db:"count"`
	MaxID int64 `db:"max_id"`
}

// Package broadcast implements the broadcast dispatch engine: it walks the
// recipient store, delivers one payload to every recipient through a
// rate-limited Channel, classifies per-recipient failures, prunes dead
// accounts, waits out flood control and reports progress as it goes.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/edgard/autoacceptbot/internal/database"
)

// Job-level errors. Only these are surfaced to the administrator.
var (
	ErrInvalidRequest = errors.New("broadcast needs exactly one of a source message or text")
	ErrNoRecipients   = errors.New("no recipients to broadcast to")
	ErrAlreadyRunning = errors.New("a broadcast is already running for this administrator")
	ErrJobNotFound    = errors.New("broadcast job not found")
)

// MessageRef identifies an existing message to be copied verbatim.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Payload is what a job delivers: either a copy of Source or a new message
// with Text. Exactly one must be set.
type Payload struct {
	Text   string
	Source *MessageRef
}

// Validate returns ErrInvalidRequest unless exactly one of Text and Source is set.
func (p Payload) Validate() error {
	hasText := p.Text != ""
	hasSource := p.Source != nil && p.Source.MessageID != 0
	if hasText == hasSource {
		return ErrInvalidRequest
	}
	return nil
}

// IsCopy reports whether the payload is delivered with copy semantics.
func (p Payload) IsCopy() bool {
	return p.Source != nil && p.Source.MessageID != 0
}

// Outcome classifies a single delivery attempt.
type Outcome int

const (
	OutcomeSuccess    Outcome = iota
	OutcomeRetryAfter         // provider flood control, RetryAfter is set
	OutcomeInvalid            // recipient no longer exists or cannot be addressed
	OutcomeBlocked            // recipient blocked the bot
	OutcomeFailed             // any other, presumably transient, failure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryAfter:
		return "retry_after"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeBlocked:
		return "blocked"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the tagged outcome a Channel returns for one delivery.
type Result struct {
	Outcome    Outcome
	RetryAfter time.Duration
	Err        error
}

func Delivered() Result                 { return Result{Outcome: OutcomeSuccess} }
func RetryLater(d time.Duration) Result { return Result{Outcome: OutcomeRetryAfter, RetryAfter: d} }
func Invalid(err error) Result          { return Result{Outcome: OutcomeInvalid, Err: err} }
func BlockedBy(err error) Result        { return Result{Outcome: OutcomeBlocked, Err: err} }
func Failed(err error) Result           { return Result{Outcome: OutcomeFailed, Err: err} }

// Channel delivers payloads to recipients. Implementations never return Go
// errors for delivery failures; they classify them into a Result.
type Channel interface {
	SendText(ctx context.Context, recipientID int64, text string) Result
	Copy(ctx context.Context, recipientID int64, source MessageRef) Result
}

// RecipientStore is the part of the recipient store a job needs.
type RecipientStore interface {
	SnapshotRecipients(ctx context.Context) (database.RecipientSnapshot, error)
	RecipientsUpTo(ctx context.Context, maxID int64, pageSize int) iter.Seq2[database.Recipient, error]
	DeleteRecipient(ctx context.Context, userID int64) error
}

// Reporter owns the status message of one running job.
type Reporter interface {
	Update(ctx context.Context, text string) error
	Clear(ctx context.Context) error
}

// Progress is a point-in-time snapshot of a running job.
// Processed always equals Succeeded+Failed.
type Progress struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
}

// Summary is the final tally of a job.
type Summary struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	// Removed and Blocked break Failed down; the remainder failed transiently.
	Removed int
	Blocked int
	Elapsed time.Duration
}

// Progress returns the snapshot view of s.
func (s Summary) Progress() Progress {
	return Progress{Total: s.Total, Processed: s.Processed, Succeeded: s.Succeeded, Failed: s.Failed}
}

// ElapsedString renders Elapsed in whole seconds as H:MM:SS.
func (s Summary) ElapsedString() string {
	return FormatElapsed(s.Elapsed)
}

// FormatElapsed renders d in whole seconds as H:MM:SS.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}

type nopReporter struct{}

func (nopReporter) Update(context.Context, string) error { return nil }
func (nopReporter) Clear(context.Context) error          { return nil }

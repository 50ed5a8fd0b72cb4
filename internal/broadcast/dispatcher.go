package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/edgard/autoacceptbot/internal/database"
)

// Defaults applied by NewDispatcher for zero Options fields.
const DefaultProgressEvery = 20

const cleanupTimeout = 15 * time.Second

// Options tunes a Dispatcher.
type Options struct {
	// ProgressEvery is the number of processed recipients between status updates.
	ProgressEvery int
	// PageSize is passed to the store when iterating recipients.
	PageSize int
}

// SleepFunc pauses for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DispatcherOption customises a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithSleep replaces the function used to wait out flood control.
func WithSleep(fn SleepFunc) DispatcherOption {
	return func(d *Dispatcher) {
		if fn != nil {
			d.sleep = fn
		}
	}
}

// WithClock replaces the time source used to measure elapsed time.
func WithClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithRenderer sets the templates used for progress updates.
func WithRenderer(r Renderer) DispatcherOption {
	return func(d *Dispatcher) { d.renderer = r }
}

// Dispatcher delivers one payload to every stored recipient.
// A Dispatcher is safe for concurrent use; each Run is independent.
type Dispatcher struct {
	store    RecipientStore
	channel  Channel
	opts     Options
	renderer Renderer
	logger   *slog.Logger
	sleep    SleepFunc
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher over store and channel.
func NewDispatcher(store RecipientStore, channel Channel, opts Options, logger *slog.Logger, options ...DispatcherOption) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.PageSize <= 0 {
		opts.PageSize = database.DefaultPageSize
	}

	d := &Dispatcher{
		store:    store,
		channel:  channel,
		opts:     opts,
		renderer: DefaultRenderer(),
		logger:   logger.With("component", "dispatcher"),
		sleep:    sleepContext,
		now:      time.Now,
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Run delivers payload to every recipient present when the job starts.
//
// It returns ErrInvalidRequest or ErrNoRecipients without touching the
// Channel. Per-recipient failures never abort the job. When ctx is cancelled
// or the store fails mid-iteration, Run returns the partial Summary together
// with the cause.
func (d *Dispatcher) Run(ctx context.Context, payload Payload, reporter Reporter) (Summary, error) {
	if err := payload.Validate(); err != nil {
		return Summary{}, err
	}
	if reporter == nil {
		reporter = nopReporter{}
	}

	snap, err := d.store.SnapshotRecipients(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to count recipients: %w", err)
	}
	if snap.Count == 0 {
		return Summary{}, ErrNoRecipients
	}
	total := snap.Count

	log := d.logger.With("total", total, "copy", payload.IsCopy())
	log.InfoContext(ctx, "Broadcast started")

	start := d.now()
	sum := Summary{Total: total}
	var runErr error

	for r, err := range d.store.RecipientsUpTo(ctx, snap.MaxID, d.opts.PageSize) {
		if err != nil {
			runErr = fmt.Errorf("failed to iterate recipients: %w", err)
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		res := d.deliver(ctx, payload, r.UserID)
		d.tally(ctx, &sum, r.UserID, res)

		if sum.Processed%d.opts.ProgressEvery == 0 {
			d.report(ctx, reporter, sum.Progress())
		}
	}

	sum.Elapsed = d.now().Sub(start).Truncate(time.Second)

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := reporter.Clear(cleanupCtx); err != nil {
		log.WarnContext(ctx, "Failed to clear broadcast status", "error", err)
	}

	attrs := []any{
		"processed", sum.Processed,
		"succeeded", sum.Succeeded,
		"failed", sum.Failed,
		"removed", sum.Removed,
		"blocked", sum.Blocked,
		"elapsed", sum.ElapsedString(),
	}
	switch {
	case runErr == nil:
		log.InfoContext(ctx, "Broadcast completed", attrs...)
	case errors.Is(runErr, context.Canceled):
		log.WarnContext(ctx, "Broadcast cancelled", attrs...)
	default:
		log.ErrorContext(ctx, "Broadcast aborted", append(attrs, "error", runErr)...)
	}

	return sum, runErr
}

// deliver makes one attempt and, on flood control, exactly one more after
// the requested pause.
func (d *Dispatcher) deliver(ctx context.Context, payload Payload, userID int64) Result {
	res := d.attempt(ctx, payload, userID)
	if res.Outcome != OutcomeRetryAfter {
		return res
	}

	wait := res.RetryAfter
	d.logger.WarnContext(ctx, "Flood control hit, pausing broadcast", "user_id", userID, "retry_after", wait)

	if err := d.sleep(ctx, wait); err != nil {
		return Failed(err)
	}

	retry := d.attempt(ctx, payload, userID)
	if retry.Outcome == OutcomeRetryAfter {
		return Failed(fmt.Errorf("still rate limited after waiting %s", wait))
	}
	return retry
}

func (d *Dispatcher) attempt(ctx context.Context, payload Payload, userID int64) Result {
	if payload.IsCopy() {
		return d.channel.Copy(ctx, userID, *payload.Source)
	}
	return d.channel.SendText(ctx, userID, payload.Text)
}

func (d *Dispatcher) tally(ctx context.Context, sum *Summary, userID int64, res Result) {
	sum.Processed++

	switch res.Outcome {
	case OutcomeSuccess:
		sum.Succeeded++
	case OutcomeInvalid:
		sum.Failed++
		sum.Removed++
		d.logger.InfoContext(ctx, "Removing unreachable recipient", "user_id", userID, "error", res.Err)
		if err := d.store.DeleteRecipient(ctx, userID); err != nil {
			d.logger.ErrorContext(ctx, "Failed to remove unreachable recipient", "user_id", userID, "error", err)
		}
	case OutcomeBlocked:
		sum.Failed++
		sum.Blocked++
		d.logger.DebugContext(ctx, "Recipient has blocked the bot", "user_id", userID)
	default:
		sum.Failed++
		d.logger.WarnContext(ctx, "Delivery failed", "user_id", userID, "outcome", res.Outcome.String(), "error", res.Err)
	}
}

func (d *Dispatcher) report(ctx context.Context, reporter Reporter, p Progress) {
	if err := reporter.Update(ctx, d.renderer.Progress(p)); err != nil {
		d.logger.WarnContext(ctx, "Failed to update broadcast status", "processed", p.Processed, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

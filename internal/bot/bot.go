// Package bot wires the Telegram listener, the scheduler and the broadcast
// manager together and owns their lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/autoacceptbot/internal/broadcast"
)

// DefaultDrainTimeout bounds how long shutdown waits for broadcasts to
// report their final summary.
const DefaultDrainTimeout = 30 * time.Second

// Listener receives updates until ctx is cancelled. *bot.Bot satisfies it.
type Listener interface {
	Start(ctx context.Context)
}

// Bot represents the running application.
type Bot struct {
	logger       *slog.Logger
	listener     Listener
	scheduler    *Scheduler
	broadcasts   *broadcast.Manager
	drainTimeout time.Duration
}

// NewBot creates the orchestrator. drainTimeout <= 0 uses DefaultDrainTimeout.
func NewBot(
	logger *slog.Logger,
	listener Listener,
	scheduler *Scheduler,
	broadcasts *broadcast.Manager,
	drainTimeout time.Duration,
) *Bot {
	if drainTimeout <= 0 {
		drainTimeout = DefaultDrainTimeout
	}
	return &Bot{
		logger:       logger.With("component", "bot_orchestrator"),
		listener:     listener,
		scheduler:    scheduler,
		broadcasts:   broadcasts,
		drainTimeout: drainTimeout,
	}
}

// Run starts every component and blocks until ctx is cancelled or one of them
// fails. Running broadcasts are cancelled and drained before it returns.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("Starting Telegram bot listener")
		b.listener.Start(gCtx)
		b.logger.Info("Telegram bot listener stopped")

		if gCtx.Err() == nil {
			b.logger.Warn("Telegram bot listener stopped unexpectedly without context cancellation")
			return errors.New("telegram listener stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		if err := b.scheduler.Start(gCtx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		b.logger.Info("Shutdown signal received, stopping scheduler")
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		b.drainBroadcasts()
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}

func (b *Bot) drainBroadcasts() {
	if b.broadcasts == nil {
		return
	}

	if n := b.broadcasts.CancelAll(); n > 0 {
		b.logger.Info("Cancelling running broadcasts", "count", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.drainTimeout)
	defer cancel()
	if err := b.broadcasts.Wait(ctx); err != nil {
		b.logger.Warn("Broadcasts did not finish before shutdown", "error", err)
	}
}

// Package main contains the entrypoint for the auto-accept Telegram bot.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/joho/godotenv"

	"github.com/edgard/autoacceptbot/internal/bot"
	"github.com/edgard/autoacceptbot/internal/bot/handlers"
	"github.com/edgard/autoacceptbot/internal/bot/tasks"
	"github.com/edgard/autoacceptbot/internal/broadcast"
	"github.com/edgard/autoacceptbot/internal/config"
	"github.com/edgard/autoacceptbot/internal/database"
	"github.com/edgard/autoacceptbot/internal/logger"
	"github.com/edgard/autoacceptbot/internal/telegram"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires every component, blocks until ctx is cancelled and returns the
// process exit code.
func run(ctx context.Context) int {
	configPath := flag.String("config", "", "Path to configuration file (default ./config.yaml)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "path", *configPath, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Log.Level, cfg.Log.JSON)
	log.Info("Logger initialized", "level", cfg.Log.Level, "json", cfg.Log.JSON)

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log,
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithAllowedUpdates(telegram.AllowedUpdates),
	)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	if cfg.Telegram.DropPendingUpdates {
		if _, err := tg.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			log.Warn("Failed to drop pending updates", "error", err)
		}
	}

	channel := telegram.NewChannel(tg, cfg.Telegram.RatePerSecond, cfg.Telegram.RequestTimeout, log)
	dispatcher := broadcast.NewDispatcher(store, channel, cfg.Broadcast.Options(), log,
		broadcast.WithRenderer(cfg.Messages.Renderer()))
	manager := broadcast.NewManager(dispatcher, log)

	hDeps := handlers.HandlerDeps{
		Logger:     log,
		Config:     cfg,
		Store:      store,
		Broadcasts: manager,
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger:     log,
		Store:      store,
		Broadcasts: manager,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	app := bot.NewBot(log, tg, sched, manager, bot.DefaultDrainTimeout)

	log.Info("Starting bot", "admins", len(cfg.Telegram.AdminIDs))
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	return 0
}

// Command barbot runs the Telegram bot and its auxiliary HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/caldarelli/barbot/internal/auth"
	"github.com/caldarelli/barbot/internal/bot"
	"github.com/caldarelli/barbot/internal/config"
	"github.com/caldarelli/barbot/internal/database"
	"github.com/caldarelli/barbot/internal/flow"
	"github.com/caldarelli/barbot/internal/logger"
	"github.com/caldarelli/barbot/internal/menu"
	"github.com/caldarelli/barbot/internal/notify"
	"github.com/caldarelli/barbot/internal/ops"
	"github.com/caldarelli/barbot/internal/session"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("barbot: %v", err)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Dir:    cfg.Logging.Dir,
		File:   cfg.Logging.File,
	}); err != nil {
		return err
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	startedAt := time.Now()

	if err := database.RunMigrations(cfg.Database); err != nil {
		return err
	}
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := menu.NewPostgresStore(db)
	gate := auth.NewGate(store)
	sessions := session.NewStore()
	machine := flow.NewMachine(store, gate, sessions, cfg.Bar, nil)

	b, err := bot.New(cfg, machine)
	if err != nil {
		return err
	}

	notifier := notify.New(b.Telebot(), notify.Options{})
	defer notifier.Close()
	machine.SetNotifier(notifier)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opsSrv := ops.NewServer(cfg, db)
	opsErr := make(chan error, 1)
	go func() {
		opsErr <- opsSrv.Run(ctx)
	}()

	logger.L.With("component", "app").Info("app ready",
		slog.String("event", "ready"),
		slog.String("mode", cfg.Telegram.RunMode),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	botErr := b.Run(ctx)

	cancel()
	if err := <-opsErr; err != nil && botErr == nil {
		botErr = err
	}

	logger.L.With("component", "app").Info("shutting down...",
		slog.String("event", "shutdown"),
	)
	return botErr
}

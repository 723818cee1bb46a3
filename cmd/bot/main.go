package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/strike-bot/internal/bot"
	"github.com/Proton-105/strike-bot/internal/health"
	"github.com/Proton-105/strike-bot/internal/lifecycle"
	"github.com/Proton-105/strike-bot/internal/server"
	"github.com/Proton-105/strike-bot/pkg/config"
	"github.com/Proton-105/strike-bot/pkg/graceful"
	"github.com/Proton-105/strike-bot/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "strike-bot: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, v, err := config.Load()
	if err != nil {
		return err
	}

	log, level := logger.New(*cfg)
	slog.SetDefault(log)

	config.Watch(v, log, func(next *config.Config) {
		level.Set(logger.ParseLevel(next.Logger.Level))
	})

	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		}); err != nil {
			log.Warn("sentry init failed", slog.Any("error", err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	log.Info("starting strike bot",
		slog.String("bot_mode", cfg.Bot.Mode),
		slog.String("dataset_source", cfg.Dataset.Source),
		slog.String("resolver", cfg.Resolver.Provider),
		slog.Bool("redis", cfg.Redis.Enabled),
		slog.Bool("database", cfg.Database.Enabled),
	)

	shutdown := lifecycle.NewShutdown(log)

	app, err := build(ctx, *cfg, log, shutdown)
	if err != nil {
		return err
	}

	b, err := bot.New(*cfg, log, app.botDeps)
	if err != nil {
		return err
	}
	shutdown.Register(lifecycle.StageIngress, "telegram", func(context.Context) error {
		b.Stop()
		return nil
	})

	checker := health.NewChecker(log)
	checker.AddCheck("dataset", health.NewDatasetChecker(app.dataset))
	checker.AddCheck("telegram", health.NewTelegramChecker(b.Telebot()))
	if app.redis != nil {
		checker.AddCheck("redis", health.NewRedisChecker(app.redis))
	}
	if app.db != nil {
		checker.AddCheck("postgres", health.NewDBChecker(app.db))
	}
	probes := lifecycle.NewProbes(checker, log)

	opsCtx, stopOps := context.WithCancel(context.Background())
	defer stopOps()

	ops := graceful.NewServer(log, &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.NewRouter(probes, log),
		ReadHeaderTimeout: 5 * time.Second,
	}, cfg.Server.ShutdownTimeout)
	opsDone := make(chan error, 1)
	go func() { opsDone <- ops.ListenAndServe(opsCtx) }()

	app.startBackground(ctx)
	go b.Start()

	log.Info("strike bot started", slog.String("ops_addr", cfg.Server.Addr))
	<-ctx.Done()

	probes.Drain()

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err = shutdown.Execute(shutdownCtx)

	stopOps()
	if opsErr := <-opsDone; opsErr != nil && opsErr != http.ErrServerClosed {
		log.Error("ops server stopped with error", slog.Any("error", opsErr))
	}

	log.Info("strike bot stopped")
	return err
}

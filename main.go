package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"reactor/backend/internal/app"
	"reactor/backend/internal/config"
	"reactor/backend/internal/logger"
	"reactor/backend/internal/worker"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	var pub worker.EventPublisher = worker.NoopPublisher{}
	if deps.Producer != nil {
		pub = deps.Producer
		defer deps.Producer.Stop()
	}

	a, err := app.New(ctx, cfg, deps.DB, deps.Index, pub, log)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	if err := a.Run(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

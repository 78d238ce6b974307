package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/odyssey-erp/odyssey-ledger/cmd/odyssey-ledger/cli"
	"github.com/odyssey-erp/odyssey-ledger/internal/app"
	"github.com/odyssey-erp/odyssey-ledger/internal/platform/db"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("load .env", slog.Any("error", err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	l, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open ledger", slog.Any("error", err))
		os.Exit(1)
	}

	code := cli.Run(ctx, os.Args[1:], cli.Deps{
		Reports:   l.Reports,
		Integrity: l.Journals,
		Seeder:    cli.NewSeeder(l.Accounts, l.Settings),
		Migrate:   func(ctx context.Context) error { return db.Migrate(ctx, l.Pool) },
		Metrics:   l.Metrics,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	})
	if err := l.Metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
		logger.Warn("write metrics", slog.Any("error", err))
	}
	l.Close()
	os.Exit(code)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"suki-be/internal/app"
	"suki-be/internal/config"
	"suki-be/internal/db"
	"suki-be/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(connect).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect loads config, opens the database and builds the job runners.
func connect(ctx context.Context) (Runners, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return Runners{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.AppEnv)

	database, err := db.InitDB(ctx, cfg)
	if err != nil {
		logger.Sync()
		return Runners{}, nil, err
	}

	a := app.New(cfg, database, nil)
	cleanup := func() {
		database.Close()
		logger.Sync()
	}
	return Runners{Sync: a.Sync, Email: a.Email}, cleanup, nil
}

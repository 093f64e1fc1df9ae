package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/fieldcrm/internal/client/cli"
	"github.com/dmitrijs2005/fieldcrm/internal/client/config"
	"github.com/dmitrijs2005/fieldcrm/internal/logging"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.New(cfg.LogLevel, os.Stderr)

	app, err := cli.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	app.Root(ctx)

	if err := app.Close(); err != nil {
		logger.Warn(context.Background(), "shutdown", "error", err)
	}

}

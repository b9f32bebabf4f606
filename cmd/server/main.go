package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"livescores-service/internal/config"
	"livescores-service/internal/logging"
	"livescores-service/internal/server"
)

const appVersion = "dev"

func main() {
	cfg := config.Load()
	logger := logging.NewLogger(logging.Config{
		Level:   os.Getenv("LOG_LEVEL"),
		Format:  os.Getenv("LOG_FORMAT"),
		Service: "livescores-service",
		Version: appVersion,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg, logger)
	if err != nil {
		logging.Error(logger, "startup failed", err)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logging.Error(logger, "server exited with error", err)
		os.Exit(1)
	}
}

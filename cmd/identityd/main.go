package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	identity "github.com/trustlayer/go-identity"
	"github.com/trustlayer/go-identity/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := identity.NewLogger(os.Stdout, cfg.IsDevelopment()).With("service", "identityd")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("identityd stopped", "error", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fuzzpoint/psoserver/internal/config"
	"github.com/fuzzpoint/psoserver/internal/psoserver"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := config.Path()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	slog.Info("psoserver starting", "listeners", len(cfg.Listeners), "config", cfgPath)

	state, err := psoserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("building server state: %w", err)
	}

	reloadCh := make(chan os.Signal, 1)
	signal.Notify(reloadCh, syscall.SIGUSR1)
	go func() {
		for range reloadCh {
			if err := state.Reload(cfgPath); err != nil {
				slog.Error("reload failed", "error", err)
			}
		}
	}()

	return state.Run(ctx)
}

// meridian is the thin CLI shell around the library engine: it wires
// config, logging, the store and the gatekeeper together and hands off
// to urfave/cli/v3 subcommands. No business logic lives in this
// package — every subcommand calls straight into internal/store,
// internal/sync or internal/tagmap.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/cartomix/meridian/internal/config"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/store"
)

func main() {
	ctx := context.Background()
	cfg := config.Parse(os.Args[1:])

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "meridian",
		Usage: "personal DJ library engine",
		Commands: []*cli.Command{
			collectionCommand(cfg, logger),
			syncCommand(cfg, logger),
			tagsCommand(cfg, logger),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Error("meridian failed", "error", err)
		os.Exit(1)
	}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openStore opens the catalog at cfg.DataDir and a gatekeeper tuned from
// cfg's timeout flags, the pairing every subcommand needs before it can
// touch the store.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.DB, *gatekeeper.Gatekeeper, error) {
	db, err := store.Open(cfg.DataDir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	gate := gatekeeper.NewWithTimeouts(
		durationMs(cfg.GatekeeperReadTimeoutMs),
		durationMs(cfg.GatekeeperWriteTimeoutMs),
	)
	return db, gate, nil
}

func durationMs(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

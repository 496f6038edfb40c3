package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/cartomix/meridian/internal/config"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/sync"
)

func syncCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "walk a collection's root directory and reconcile the store against it",
		ArgsUsage: "<collection-uid>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "report what would change without writing"},
			&cli.BoolFlag{Name: "purge-orphaned", Usage: "delete media sources whose files are gone from disk"},
			&cli.BoolFlag{Name: "purge-untracked", Usage: "delete media sources whose files still exist but were not visited by this walk"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly 1 argument: <collection-uid>, got %d", cmd.NArg())
			}
			uid, err := entityuid.Parse(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("parse collection uid: %w", err)
			}

			db, gate, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			orphaned := sync.Keep
			if cmd.Bool("purge-orphaned") {
				orphaned = sync.Purge
			}
			untracked := sync.Keep
			if cmd.Bool("purge-untracked") {
				untracked = sync.Purge
			}

			synchronizer := sync.New(db, gate)
			syncCfg := sync.Config{
				CollectionUID: uid,
				Policies: sync.Policies{
					UntrackedFiles:        sync.Find,
					UnsynchronizedTracks:  sync.Find,
					OrphanedMediaSources:  orphaned,
					UntrackedMediaSources: untracked,
				},
			}

			counters, metrics, err := synchronizer.Run(ctx, syncCfg, cmd.Bool("dry-run"))
			if err != nil {
				return fmt.Errorf("sync: %w", err)
			}

			fmt.Printf("created=%d updated=%d unchanged=%d skipped=%d failed=%d\n",
				counters.Created, counters.Updated, counters.Unchanged, counters.Skipped, counters.Failed)
			fmt.Printf("untracked_files=%d unsynchronized_tracks=%d orphaned_purged=%d untracked_purged=%d\n",
				counters.UntrackedFiles, counters.UnsynchronizedTracks, counters.OrphanedPurged, counters.UntrackedPurged)
			if metrics.TrackCount > 0 {
				fmt.Printf("batch tempo: mean=%.1f stddev=%.1f\n", metrics.TempoMean, metrics.TempoStdDev)
				if metrics.HasLoudnessStats {
					fmt.Printf("batch loudness: mean=%.1f stddev=%.1f LUFS\n", metrics.LoudnessMean, metrics.LoudnessStdDev)
				}
			}
			return nil
		},
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/cartomix/meridian/internal/config"
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/tagmap"
)

func tagsCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "inspect a collection's tags",
		Commands: []*cli.Command{
			tagsAggregateCommand(cfg, logger),
		},
	}
}

func tagsAggregateCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "aggregate",
		Usage:     "summarize every facet/label's score distribution across a collection",
		ArgsUsage: "<collection-uid>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("expected exactly 1 argument: <collection-uid>, got %d", cmd.NArg())
			}
			uid, err := entityuid.Parse(cmd.Args().First())
			if err != nil {
				return fmt.Errorf("parse collection uid: %w", err)
			}

			db, _, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			summaries, err := tagmap.Aggregate(db, uid)
			if err != nil {
				return fmt.Errorf("aggregate tags: %w", err)
			}

			for _, facet := range summaries {
				name := "(unfaceted)"
				if facet.Facet != domain.NoFacet {
					name = string(facet.Facet.Facet)
				}
				fmt.Printf("%s:\n", name)
				for _, label := range facet.Labels {
					fmt.Printf("  %-20s count=%d mean=%.2f median=%.2f\n",
						label.Label, label.Scores.Count, label.Scores.Mean, label.Scores.Median)
				}
			}
			return nil
		},
	}
}

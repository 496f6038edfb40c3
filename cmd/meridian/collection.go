package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/cartomix/meridian/internal/config"
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/store"
)

func collectionCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "collection",
		Usage: "manage collections",
		Commands: []*cli.Command{
			collectionCreateCommand(cfg, logger),
			collectionListCommand(cfg, logger),
		},
	}
}

func collectionCreateCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "create a collection rooted at a local directory",
		ArgsUsage: "<title> <root-dir>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "kind", Usage: "optional collection kind tag", Value: cfg.CollectionKind},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return fmt.Errorf("expected exactly 2 arguments: <title> <root-dir>, got %d", cmd.NArg())
			}
			title := cmd.Args().Get(0)
			rootDir := cmd.Args().Get(1)

			db, _, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			header, err := db.CreateCollection(domain.Collection{
				Title: title,
				Kind:  cmd.String("kind"),
				MediaSource: domain.MediaSourceConfig{
					ContentPath: domain.ContentPathConfig{
						Kind:    domain.ContentPathVirtualFilePath,
						RootURL: "file://" + rootDir,
					},
				},
			})
			if err != nil {
				return fmt.Errorf("create collection: %w", err)
			}
			fmt.Printf("created collection %s %q\n", header.UID, title)
			return nil
		},
	}
}

func collectionListCommand(cfg *config.Config, logger *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "list every collection in the catalog",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			db, _, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			uids, err := db.ListCollections()
			if err != nil {
				return fmt.Errorf("list collections: %w", err)
			}
			for _, uid := range uids {
				printCollection(db, uid)
			}
			return nil
		},
	}
}

func printCollection(db *store.DB, uid entityuid.UID) {
	entity, err := db.LoadCollection(uid)
	if err != nil {
		fmt.Printf("%s: <failed to load: %v>\n", uid, err)
		return
	}
	fmt.Printf("%s  %-30s  root=%s\n", uid, entity.Body.Title, entity.Body.MediaSource.ContentPath.RootURL)
}

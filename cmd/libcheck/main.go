// libcheck is the synchronizer's dry-run cousin: it walks one collection
// (or every collection, when none is named) and reports what a real sync
// would change, plus any tracked media source whose file has gone
// missing from disk, without writing anything to the store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/store"
	"github.com/cartomix/meridian/internal/sync"
)

func main() {
	dataDir := flag.String("data-dir", "", "path to the catalog's data directory")
	collectionFlag := flag.String("collection", "", "UID of a single collection to check (defaults to every collection)")
	flag.Parse()

	if *dataDir == "" {
		log.Fatal("data-dir required")
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	db, err := store.Open(*dataDir, logger)
	if err != nil {
		log.Fatalf("open catalog: %v", err)
	}
	defer db.Close()

	var targets []entityuid.UID
	if *collectionFlag != "" {
		uid, err := entityuid.Parse(*collectionFlag)
		if err != nil {
			log.Fatalf("parse -collection: %v", err)
		}
		targets = []entityuid.UID{uid}
	} else {
		targets, err = db.ListCollections()
		if err != nil {
			log.Fatalf("list collections: %v", err)
		}
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)

	exitCode := 0
	for _, uid := range targets {
		if err := checkCollection(db, synchronizer, uid); err != nil {
			log.Printf("collection %s: %v", uid, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func checkCollection(db *store.DB, synchronizer *sync.Synchronizer, uid entityuid.UID) error {
	collection, err := db.LoadCollection(uid)
	if err != nil {
		return fmt.Errorf("load collection: %w", err)
	}

	counters, metrics, err := synchronizer.Run(context.Background(), sync.Config{
		CollectionUID: uid,
		Policies:      sync.Policies{UnsynchronizedTracks: sync.Find},
	}, true)
	if err != nil {
		return fmt.Errorf("dry-run sync: %w", err)
	}

	fmt.Printf("collection %s (%s): created=%d updated=%d unchanged=%d skipped=%d failed=%d unsynchronized=%d\n",
		uid, collection.Body.Title, counters.Created, counters.Updated, counters.Unchanged,
		counters.Skipped, counters.Failed, counters.UnsynchronizedTracks)
	if metrics.TrackCount > 0 {
		fmt.Printf("  batch tempo: mean=%.1f stddev=%.1f (n=%d)\n", metrics.TempoMean, metrics.TempoStdDev, metrics.TrackCount)
	}

	missing, err := missingMediaSources(db, collection.Body.MediaSource.ContentPath.RootURL, uid)
	if err != nil {
		return fmt.Errorf("check media sources: %w", err)
	}
	for _, path := range missing {
		fmt.Printf("  MISSING: %s\n", path)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%d media source(s) missing from disk", len(missing))
	}
	return nil
}

// missingMediaSources reports every tracked content path that no longer
// resolves to a file on disk, independent of the synchronizer's purge
// policy: a dry run never purges, so Counters alone wouldn't surface this.
func missingMediaSources(db *store.DB, rootURL string, collectionUID entityuid.UID) ([]string, error) {
	rootPath, err := localPathFromFileURL(rootURL)
	if err != nil {
		return nil, err
	}

	paths, err := db.ListMediaSourcePaths(collectionUID)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, p := range paths {
		abs := filepath.Join(rootPath, filepath.FromSlash(p))
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			missing = append(missing, p)
		}
	}
	return missing, nil
}

// localPathFromFileURL mirrors internal/sync's unexported helper of the
// same name: a file:// root URL resolved to a local filesystem path.
func localPathFromFileURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", fmt.Errorf("unsupported root url scheme %s", u.Scheme)
	}
	if u.Path != "" {
		return filepath.FromSlash(u.Path), nil
	}
	return filepath.FromSlash(u.Opaque), nil
}

package fixtures

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/store"
	"github.com/cartomix/meridian/internal/sync"
)

// Catalog creates a fresh collection rooted at outputDir in db and runs
// the directory synchronizer over it once, so fixturegen's output is
// immediately browsable rather than just sitting on disk.
func Catalog(db *store.DB, title, outputDir string) (domain.EntityHeader, sync.Counters, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return domain.EntityHeader{}, sync.Counters{}, fmt.Errorf("fixtures: resolve output dir: %w", err)
	}

	header, err := db.CreateCollection(domain.Collection{
		Title: title,
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{
				Kind:    domain.ContentPathVirtualFilePath,
				RootURL: "file://" + abs,
			},
		},
	})
	if err != nil {
		return domain.EntityHeader{}, sync.Counters{}, fmt.Errorf("fixtures: create collection: %w", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)
	counters, _, err := synchronizer.Run(context.Background(), sync.Config{CollectionUID: header.UID}, false)
	if err != nil {
		return header, counters, fmt.Errorf("fixtures: populate catalog: %w", err)
	}
	return header, counters, nil
}

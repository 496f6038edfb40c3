package fixtures_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartomix/meridian/internal/fixtures"
	"github.com/cartomix/meridian/internal/store"
)

func TestGenerateWritesClickTracksAndManifest(t *testing.T) {
	dir := t.TempDir()
	manifest, err := fixtures.Generate(fixtures.Config{
		OutputDir:    dir,
		BPMLadder:    []float64{120, 128},
		IncludeSwing: true,
		IncludeRamp:  true,
		RampStartBPM: 128,
		RampEndBPM:   100,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(manifest.Fixtures) != 4 {
		t.Fatalf("expected 4 fixtures (2 click + swing + ramp), got %d", len(manifest.Fixtures))
	}
	for _, f := range manifest.Fixtures {
		if _, err := os.Stat(filepath.Join(dir, f.File)); err != nil {
			t.Fatalf("expected %s on disk: %v", f.File, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "manifest.json")); err != nil {
		t.Fatalf("expected manifest.json on disk: %v", err)
	}
}

func TestCatalogPopulatesCollectionFromGeneratedFixtures(t *testing.T) {
	audioDir := t.TempDir()
	if _, err := fixtures.Generate(fixtures.Config{OutputDir: audioDir, BPMLadder: []float64{120}}); err != nil {
		t.Fatalf("generate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	header, counters, err := fixtures.Catalog(db, "Demo Library", audioDir)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if header.UID.String() == "" {
		t.Fatal("expected a minted collection uid")
	}
	if counters.Created != 1 {
		t.Fatalf("expected 1 created track, got %+v", counters)
	}
}

package sync_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/importer"
	"github.com/cartomix/meridian/internal/store"
	"github.com/cartomix/meridian/internal/sync"
)

func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeAudioFile(t *testing.T, dir, relPath, content string) {
	t.Helper()
	full := filepath.Join(dir, relPath)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestRunImportsNewFiles(t *testing.T) {
	db := openTestDB(t)
	musicDir := t.TempDir()
	writeAudioFile(t, musicDir, "house/track-one.wav", "fake-pcm-data-one")
	writeAudioFile(t, musicDir, "techno/track-two.wav", "fake-pcm-data-two")

	coll, err := db.CreateCollection(domain.Collection{
		Title: "Library",
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{Kind: domain.ContentPathVirtualFilePath, RootURL: "file://" + musicDir},
		},
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)

	cfg := sync.Config{CollectionUID: coll.UID, ImportFlags: importer.DefaultFlags}
	counters, metrics, err := synchronizer.Run(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if counters.Created != 2 {
		t.Fatalf("expected 2 created, got %+v", counters)
	}
	if metrics.TrackCount != 2 {
		t.Fatalf("expected batch metrics over 2 tracks, got %+v", metrics)
	}

	paths, err := db.ListMediaSourcePaths(coll.UID)
	if err != nil {
		t.Fatalf("list paths: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("expected 2 tracked paths, got %v", paths)
	}

	jobs, err := db.ListSyncJobs(coll.UID)
	if err != nil {
		t.Fatalf("list sync jobs: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 recorded sync job, got %+v", jobs)
	}
	if jobs[0].Status != store.SyncJobCompleted {
		t.Fatalf("expected job status completed, got %q", jobs[0].Status)
	}
	if jobs[0].FinishedAt == nil {
		t.Fatal("expected job to carry a finished_at timestamp")
	}
}

func TestRunDryRunRecordsNoSyncJob(t *testing.T) {
	db := openTestDB(t)
	musicDir := t.TempDir()
	writeAudioFile(t, musicDir, "track.wav", "fake-pcm-data")

	coll, err := db.CreateCollection(domain.Collection{
		Title: "Library",
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{Kind: domain.ContentPathVirtualFilePath, RootURL: "file://" + musicDir},
		},
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)
	if _, _, err := synchronizer.Run(context.Background(), sync.Config{CollectionUID: coll.UID}, true); err != nil {
		t.Fatalf("dry run: %v", err)
	}

	jobs, err := db.ListSyncJobs(coll.UID)
	if err != nil {
		t.Fatalf("list sync jobs: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no recorded sync jobs for a dry run, got %+v", jobs)
	}
}

func TestRunSecondPassIsUnchanged(t *testing.T) {
	db := openTestDB(t)
	musicDir := t.TempDir()
	writeAudioFile(t, musicDir, "track.wav", "stable-content")

	coll, err := db.CreateCollection(domain.Collection{
		Title: "Library",
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{Kind: domain.ContentPathVirtualFilePath, RootURL: "file://" + musicDir},
		},
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)
	cfg := sync.Config{CollectionUID: coll.UID, ImportFlags: importer.DefaultFlags}

	if _, _, err := synchronizer.Run(context.Background(), cfg, false); err != nil {
		t.Fatalf("first run: %v", err)
	}

	counters, _, err := synchronizer.Run(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counters.Unchanged != 1 || counters.Created != 0 {
		t.Fatalf("expected the second pass to see the file as unchanged, got %+v", counters)
	}
}

func TestRunPurgesOrphanedMediaSource(t *testing.T) {
	db := openTestDB(t)
	musicDir := t.TempDir()
	writeAudioFile(t, musicDir, "doomed.wav", "will-be-deleted")

	coll, err := db.CreateCollection(domain.Collection{
		Title: "Library",
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{Kind: domain.ContentPathVirtualFilePath, RootURL: "file://" + musicDir},
		},
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)
	cfg := sync.Config{
		CollectionUID: coll.UID,
		ImportFlags:   importer.DefaultFlags,
		Policies:      sync.Policies{OrphanedMediaSources: sync.Purge},
	}

	if _, _, err := synchronizer.Run(context.Background(), cfg, false); err != nil {
		t.Fatalf("first run: %v", err)
	}

	if err := os.Remove(filepath.Join(musicDir, "doomed.wav")); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	counters, _, err := synchronizer.Run(context.Background(), cfg, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if counters.OrphanedPurged != 1 {
		t.Fatalf("expected 1 orphaned purge, got %+v", counters)
	}

	paths, err := db.ListMediaSourcePaths(coll.UID)
	if err != nil {
		t.Fatalf("list paths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected no tracked paths left, got %v", paths)
	}
}

func TestRunDryRunDoesNotWrite(t *testing.T) {
	db := openTestDB(t)
	musicDir := t.TempDir()
	writeAudioFile(t, musicDir, "track.wav", "content")

	coll, err := db.CreateCollection(domain.Collection{
		Title: "Library",
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{Kind: domain.ContentPathVirtualFilePath, RootURL: "file://" + musicDir},
		},
	})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	synchronizer := sync.New(db, gate)
	cfg := sync.Config{CollectionUID: coll.UID, ImportFlags: importer.DefaultFlags}

	counters, _, err := synchronizer.Run(context.Background(), cfg, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if counters.Created != 1 {
		t.Fatalf("expected dry run to report 1 would-be creation, got %+v", counters)
	}

	paths, err := db.ListMediaSourcePaths(coll.UID)
	if err != nil {
		t.Fatalf("list paths: %v", err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected dry run to leave the store untouched, got %v", paths)
	}
}

package store_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/store"
)

func openDB(t *testing.T) *store.DB {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	db, err := store.Open(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func trackWithTitle(name string) domain.Track {
	return domain.Track{Titles: domain.Titles{{Kind: domain.TitleKindMain, Name: name}}}
}

func TestReplaceByPathCreatesWhenMissing(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	ms := domain.MediaSource{ContentPath: "house/track.mp3", ContentType: "audio/mpeg", CollectedAt: time.Now().UTC()}
	header, outcome, err := db.ReplaceByPath(coll.UID, store.CreateOrUpdate, ms, trackWithTitle("Track"), true, time.Now().UTC())
	if err != nil {
		t.Fatalf("replace by path: %v", err)
	}
	if outcome != store.Created {
		t.Fatalf("expected Created, got %v", outcome)
	}
	if header.Revision != 1 {
		t.Fatalf("expected a freshly minted header at revision 1, got %d", header.Revision)
	}
}

func TestReplaceByPathUnchangedLeavesRevisionIntact(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	collectedAt := time.Now().UTC()
	ms := domain.MediaSource{ContentPath: "house/track.mp3", ContentType: "audio/mpeg", CollectedAt: collectedAt}
	body := trackWithTitle("Track")

	created, outcome, err := db.ReplaceByPath(coll.UID, store.CreateOrUpdate, ms, body, true, collectedAt)
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if outcome != store.Created {
		t.Fatalf("expected Created, got %v", outcome)
	}

	// Re-import the same file later: content path, content and tags all
	// agree with what's stored, but the media source's observed
	// CollectedAt has moved on (as it would on a second filesystem walk).
	ms.CollectedAt = time.Now().UTC().Add(time.Hour)
	again, outcome, err := db.ReplaceByPath(coll.UID, store.CreateOrUpdate, ms, body, true, time.Now().UTC())
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if outcome != store.Unchanged {
		t.Fatalf("expected Unchanged, got %v", outcome)
	}
	if again.Revision != created.Revision {
		t.Fatalf("expected revision to stay at %d, got %d", created.Revision, again.Revision)
	}
}

func TestReplaceByPathUpdatesWhenContentDiffers(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	ms := domain.MediaSource{ContentPath: "house/track.mp3", ContentType: "audio/mpeg", CollectedAt: time.Now().UTC()}
	created, _, err := db.ReplaceByPath(coll.UID, store.CreateOrUpdate, ms, trackWithTitle("Original"), true, time.Now().UTC())
	if err != nil {
		t.Fatalf("first replace: %v", err)
	}

	updated, outcome, err := db.ReplaceByPath(coll.UID, store.CreateOrUpdate, ms, trackWithTitle("Retagged"), true, time.Now().UTC())
	if err != nil {
		t.Fatalf("second replace: %v", err)
	}
	if outcome != store.Updated {
		t.Fatalf("expected Updated, got %v", outcome)
	}
	if updated.Revision <= created.Revision {
		t.Fatalf("expected revision to advance past %d, got %d", created.Revision, updated.Revision)
	}
}

func TestReplaceByPathModeRestrictsWrites(t *testing.T) {
	db := openDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	ms := domain.MediaSource{ContentPath: "house/track.mp3", ContentType: "audio/mpeg", CollectedAt: time.Now().UTC()}

	_, outcome, err := db.ReplaceByPath(coll.UID, store.UpdateOnly, ms, trackWithTitle("Track"), true, time.Now().UTC())
	if err != nil {
		t.Fatalf("replace with UpdateOnly: %v", err)
	}
	if outcome != store.NotCreated {
		t.Fatalf("expected NotCreated for UpdateOnly against a missing path, got %v", outcome)
	}

	if _, _, err := db.ReplaceByPath(coll.UID, store.CreateOnly, ms, trackWithTitle("Track"), true, time.Now().UTC()); err != nil {
		t.Fatalf("create via CreateOnly: %v", err)
	}

	_, outcome, err = db.ReplaceByPath(coll.UID, store.CreateOnly, ms, trackWithTitle("Track Two"), true, time.Now().UTC())
	if err != nil {
		t.Fatalf("replace with CreateOnly: %v", err)
	}
	if outcome != store.NotUpdated {
		t.Fatalf("expected NotUpdated for CreateOnly against an existing path, got %v", outcome)
	}
}

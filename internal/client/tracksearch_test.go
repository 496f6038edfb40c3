package client_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/client"
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/store"
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

func TestSpawnFetchMoreDeliversReadyState(t *testing.T) {
	db := openTestDB(t)

	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	for _, title := range []string{"Alpha", "Beta", "Charlie"} {
		ms := domain.MediaSource{ContentPath: "/music/" + title + ".mp3", ContentType: "audio/mpeg", CollectedAt: time.Now().UTC()}
		tr := domain.Track{Titles: domain.Titles{{Kind: domain.TitleKindMain, Name: title}}}
		if _, err := db.CreateTrack(coll.UID, ms, tr, time.Now().UTC()); err != nil {
			t.Fatalf("create track: %v", err)
		}
	}

	gate := gatekeeper.New()
	ts := client.NewTrackSearch(gate, db, client.SearchParams{})

	handle := ts.SpawnFetchMore(context.Background(), 2)
	if handle == nil {
		t.Fatal("expected a non-nil abort handle")
	}

	<-ts.Changed()

	snapshot := ts.Snapshot()
	ready, ok := snapshot.Fetch.(client.FetchReady)
	if !ok {
		t.Fatalf("expected FetchReady, got %T", snapshot.Fetch)
	}
	if len(ready.FetchedEntities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(ready.FetchedEntities))
	}
	if !ready.CanFetchMore {
		t.Fatal("expected CanFetchMore since the page was full")
	}
	if len(ready.Chain) != 2 {
		t.Fatalf("expected a 2-link hash chain, got %d", len(ready.Chain))
	}
}

func TestSpawnFetchMoreRejectedWhilePending(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.CreateCollection(domain.Collection{Title: "Library"}); err != nil {
		t.Fatalf("create collection: %v", err)
	}

	gate := gatekeeper.New()
	ts := client.NewTrackSearch(gate, db, client.SearchParams{})

	first := ts.SpawnFetchMore(context.Background(), 10)
	if first == nil {
		t.Fatal("expected first spawn to succeed")
	}
	second := ts.SpawnFetchMore(context.Background(), 10)
	if second != nil {
		t.Fatal("expected second spawn to be rejected while the first is pending")
	}
	<-ts.Changed()
}

func TestUpdateMemoDeltaDetectsAppendReplaceUnchanged(t *testing.T) {
	h1 := client.ChainSeed.Next(domain.EntityHeader{Revision: 1})
	h2 := h1.Next(domain.EntityHeader{Revision: 2})
	h3 := h2.Next(domain.EntityHeader{Revision: 3})

	old := client.MemoOf([]client.OffsetHash{h1, h2})

	if diff := client.UpdateMemoDelta(old, []client.OffsetHash{h1, h2}); !diff.Unchanged {
		t.Fatalf("expected Unchanged, got %+v", diff)
	}
	if diff := client.UpdateMemoDelta(old, []client.OffsetHash{h1, h2, h3}); diff.Unchanged || diff.FetchedEntities != client.Append {
		t.Fatalf("expected Append, got %+v", diff)
	}

	other := client.ChainSeed.Next(domain.EntityHeader{Revision: 99})
	if diff := client.UpdateMemoDelta(old, []client.OffsetHash{other}); diff.Unchanged || diff.FetchedEntities != client.Replace {
		t.Fatalf("expected Replace, got %+v", diff)
	}
}

func TestReconcileMusicDirectoryPrefersLongestAncestor(t *testing.T) {
	existing := []client.CollectionRoot{
		{RootURL: "file:///music"},
		{RootURL: "file:///music/electronic"},
	}
	match, conflict := client.ReconcileMusicDirectory(existing, "file:///music/electronic/house")
	if conflict != nil {
		t.Fatalf("expected no conflict, got %v", conflict)
	}
	if match == nil || match.RootURL != "file:///music/electronic" {
		t.Fatalf("expected the longer ancestor match, got %+v", match)
	}
}

func TestReconcileMusicDirectoryReportsDescendantConflict(t *testing.T) {
	existing := []client.CollectionRoot{
		{RootURL: "file:///music/house"},
		{RootURL: "file:///music/techno"},
	}
	match, conflict := client.ReconcileMusicDirectory(existing, "file:///music")
	if match != nil {
		t.Fatalf("expected no ancestor match, got %+v", match)
	}
	if len(conflict) != 2 {
		t.Fatalf("expected both descendants reported as conflict candidates, got %v", conflict)
	}
}

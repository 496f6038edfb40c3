package search_test

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/search"
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

func seedTrack(t *testing.T, db *store.DB, collectionUID entityuid.UID, path, title, artist string) domain.EntityHeader {
	t.Helper()
	ms := domain.MediaSource{
		ContentPath: path,
		ContentType: "audio/mpeg",
		CollectedAt: time.Now().UTC(),
	}
	tr := domain.Track{
		Titles: domain.Titles{{Kind: domain.TitleKindMain, Name: title}},
		Actors: domain.Actors{{Name: artist, Role: domain.ActorRoleArtist, Kind: domain.ActorKindSummary}},
	}
	header, err := db.CreateTrack(collectionUID, ms, tr, time.Now().UTC())
	if err != nil {
		t.Fatalf("create track %q: %v", path, err)
	}
	return header
}

func TestRunPhraseMatchesTitleCaseInsensitive(t *testing.T) {
	db := openTestDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	want := seedTrack(t, db, coll.UID, "/music/a.mp3", "Midnight City", "M83")
	seedTrack(t, db, coll.UID, "/music/b.mp3", "Wonderwall", "Oasis")

	hits, err := search.Run(db, search.Phrase{Terms: []string{"midnight"}}, nil, search.Pagination{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(hits) != 1 || hits[0].UID != want.UID {
		t.Fatalf("expected single hit for %v, got %v", want.UID, hits)
	}
}

func TestRunSortAndPagination(t *testing.T) {
	db := openTestDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	seedTrack(t, db, coll.UID, "/music/b.mp3", "Beta", "Artist")
	seedTrack(t, db, coll.UID, "/music/a.mp3", "Alpha", "Artist")
	seedTrack(t, db, coll.UID, "/music/c.mp3", "Charlie", "Artist")

	one := 1
	hits, err := search.Run(db, search.All{}, []search.Sort{{Field: search.SortTrackTitle, Direction: search.Ascending}}, search.Pagination{Limit: &one})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
}

func TestRunPlaylistUidFiltersToMembers(t *testing.T) {
	db := openTestDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	member := seedTrack(t, db, coll.UID, "/music/a.mp3", "Alpha", "Artist")
	seedTrack(t, db, coll.UID, "/music/b.mp3", "Beta", "Artist")

	plHeader, err := db.CreatePlaylist(domain.Playlist{Title: "Set 1"})
	if err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	entry := domain.PlaylistEntry{Item: domain.PlaylistItem{Kind: domain.PlaylistItemTrack, TrackUID: member.UID}}
	if err := db.AppendEntries(plHeader.UID, []domain.PlaylistEntry{entry}, time.Now().UTC()); err != nil {
		t.Fatalf("append entry: %v", err)
	}

	hits, err := search.Run(db, search.PlaylistUid{UID: plHeader.UID}, nil, search.Pagination{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(hits) != 1 || hits[0].UID != member.UID {
		t.Fatalf("expected single hit for %v, got %v", member.UID, hits)
	}
}

func TestSummarizeEmptyIsZeroValue(t *testing.T) {
	summary, err := search.Summarize(nil)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary != (search.NumericSummary{}) {
		t.Fatalf("expected zero summary, got %+v", summary)
	}
}

func TestSummarizeComputesMeanAndMedian(t *testing.T) {
	summary, err := search.Summarize([]float64{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.Mean != 3 || summary.Median != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

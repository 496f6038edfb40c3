package tagmap_test

import (
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/store"
	"github.com/cartomix/meridian/internal/tagmap"
)

func TestGigTagRoundTrip(t *testing.T) {
	in := domain.Tags{
		Plain: domain.PlainTags{{Label: "chill", Score: 1.0}},
		Facets: []domain.FacetedTag{
			{FacetID: "genre", Tags: domain.PlainTags{{Label: "house", Score: 0.8}}},
			{FacetID: "mood", Tags: domain.PlainTags{{Label: "dark", Score: 0.5}}},
		},
	}.Canonicalize()

	encoded := tagmap.Encode(in)
	out, remainder := tagmap.Decode(encoded)
	if remainder != "" {
		t.Fatalf("expected no leftover text, got %q", remainder)
	}
	if !reflect.DeepEqual(in, out) {
		t.Fatalf("round trip mismatch:\n in=%+v\nout=%+v", in, out)
	}
}

func TestGigTagDecodeLeavesPlainTextUntouched(t *testing.T) {
	tags, remainder := tagmap.Decode("Live Set #genre/house=0.9 Recording")
	if remainder != "Live Set Recording" {
		t.Fatalf("expected surrounding text preserved, got %q", remainder)
	}
	if len(tags.Facets) != 1 || tags.Facets[0].FacetID != "genre" || tags.Facets[0].Tags[0].Label != "house" {
		t.Fatalf("expected a single genre/house facet tag, got %+v", tags)
	}
}

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

func TestAggregateGroupsByFacetAndLabel(t *testing.T) {
	db := openTestDB(t)
	coll, err := db.CreateCollection(domain.Collection{Title: "Library"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}

	tracks := []struct {
		path string
		tags domain.Tags
	}{
		{"a.mp3", domain.Tags{Facets: []domain.FacetedTag{{FacetID: "genre", Tags: domain.PlainTags{{Label: "house", Score: 0.9}}}}}},
		{"b.mp3", domain.Tags{Facets: []domain.FacetedTag{{FacetID: "genre", Tags: domain.PlainTags{{Label: "house", Score: 0.7}}}}}},
		{"c.mp3", domain.Tags{Facets: []domain.FacetedTag{{FacetID: "genre", Tags: domain.PlainTags{{Label: "techno", Score: 1.0}}}}}},
	}
	for _, tr := range tracks {
		ms := domain.MediaSource{ContentPath: tr.path, ContentType: "audio/mpeg", CollectedAt: time.Now().UTC()}
		body := domain.Track{Titles: domain.Titles{{Kind: domain.TitleKindMain, Name: tr.path}}, Tags: tr.tags}
		if _, err := db.CreateTrack(coll.UID, ms, body, time.Now().UTC()); err != nil {
			t.Fatalf("create track %s: %v", tr.path, err)
		}
	}

	summaries, err := tagmap.Aggregate(db, coll.UID)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("expected a single genre facet, got %+v", summaries)
	}
	genre := summaries[0]
	if genre.Facet.Facet != "genre" {
		t.Fatalf("expected the genre facet, got %+v", genre.Facet)
	}
	if len(genre.Labels) != 2 {
		t.Fatalf("expected 2 distinct labels, got %+v", genre.Labels)
	}

	var house *tagmap.LabelSummary
	for i := range genre.Labels {
		if genre.Labels[i].Label == "house" {
			house = &genre.Labels[i]
		}
	}
	if house == nil {
		t.Fatalf("expected a house label summary, got %+v", genre.Labels)
	}
	if house.Scores.Count != 2 {
		t.Fatalf("expected house tagged on 2 tracks, got %+v", house.Scores)
	}
}

package store_test

import (
	"testing"

	"github.com/cartomix/meridian/internal/domain"
)

func TestListCollectionsReturnsEveryCollection(t *testing.T) {
	db := openDB(t)

	a, err := db.CreateCollection(domain.Collection{Title: "Crates"})
	if err != nil {
		t.Fatalf("create collection a: %v", err)
	}
	b, err := db.CreateCollection(domain.Collection{Title: "Warmup Sets"})
	if err != nil {
		t.Fatalf("create collection b: %v", err)
	}

	uids, err := db.ListCollections()
	if err != nil {
		t.Fatalf("list collections: %v", err)
	}
	if len(uids) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(uids))
	}

	seen := map[string]bool{}
	for _, uid := range uids {
		seen[uid.String()] = true
	}
	if !seen[a.UID.String()] || !seen[b.UID.String()] {
		t.Fatalf("expected both collections listed, got %v", uids)
	}
}

func TestListCollectionsEmptyStore(t *testing.T) {
	db := openDB(t)

	uids, err := db.ListCollections()
	if err != nil {
		t.Fatalf("list collections: %v", err)
	}
	if len(uids) != 0 {
		t.Fatalf("expected no collections, got %v", uids)
	}
}

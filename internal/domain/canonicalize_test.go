package domain

import (
	"reflect"
	"testing"
)

// TestActorsCanonicalizeIsIdempotent mirrors the teacher's determinism test
// style (internal/planner/planner_property_test.go): canonicalizing twice
// must equal canonicalizing once.
func TestActorsCanonicalizeIsIdempotent(t *testing.T) {
	cases := [][]Actor{
		{
			{Name: "Madonna", Role: ActorRoleArtist, Kind: ActorKindIndividual},
			{Name: "M.I.A.", Role: ActorRoleArtist, Kind: ActorKindIndividual},
			{Name: "Nicki Minaj", Role: ActorRoleArtist, Kind: ActorKindIndividual},
		},
		{
			{Name: "Same", Role: ActorRoleComposer, Kind: ActorKindIndividual},
			{Name: "Same", Role: ActorRoleComposer, Kind: ActorKindIndividual},
		},
		nil,
	}

	for _, c := range cases {
		once := Actors(c).Canonicalize()
		twice := once.Canonicalize()
		if !reflect.DeepEqual(once, twice) {
			t.Fatalf("canonicalize not idempotent: once=%+v twice=%+v", once, twice)
		}
		if !once.IsCanonical() {
			t.Fatalf("canonicalized actors report as non-canonical: %+v", once)
		}
	}
}

// TestActorsSummarySynthesis checks the end-to-end scenario from the spec:
// three Individual Artist actors collapse to one synthesized Summary.
func TestActorsSummarySynthesis(t *testing.T) {
	in := Actors{
		{Name: "Madonna", Role: ActorRoleArtist, Kind: ActorKindIndividual},
		{Name: "M.I.A.", Role: ActorRoleArtist, Kind: ActorKindIndividual},
		{Name: "Nicki Minaj", Role: ActorRoleArtist, Kind: ActorKindIndividual},
	}
	out := in.Canonicalize()

	summary, ok := out.Summary(ActorRoleArtist)
	if !ok {
		t.Fatal("expected a synthesized Summary actor")
	}
	want := "Madonna, M.I.A., Nicki Minaj"
	if summary.Name != want {
		t.Fatalf("summary name = %q, want %q", summary.Name, want)
	}

	count := 0
	for _, a := range out {
		if a.Role == ActorRoleArtist && a.Kind == ActorKindSummary {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one Summary actor, got %d", count)
	}
}

func TestActorsCanonicalizeDoesNotSynthesizeWithoutIndividuals(t *testing.T) {
	in := Actors{{Name: "Label Inc.", Role: ActorRolePublisher, Kind: ActorKindSorting}}
	out := in.Canonicalize()
	if _, ok := out.Summary(ActorRolePublisher); ok {
		t.Fatal("should not synthesize a Summary with no Individual actors present")
	}
}

func TestTitlesCanonicalizeSortsAndDedups(t *testing.T) {
	in := Titles{
		{Kind: TitleKindSub, Name: "Remix"},
		{Kind: TitleKindMain, Name: "Voodoo"},
		{Kind: TitleKindMain, Name: "Voodoo"}, // exact duplicate
	}
	out := in.Canonicalize()
	want := Titles{
		{Kind: TitleKindMain, Name: "Voodoo"},
		{Kind: TitleKindSub, Name: "Remix"},
	}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("canonicalize = %+v, want %+v", out, want)
	}
	if !out.IsCanonical() {
		t.Fatal("expected canonical output to report as canonical")
	}
}

func TestCuesCanonicalizeOrdersByBankSlotPosition(t *testing.T) {
	in := Cues{
		{BankIndex: 1, SlotIndex: 0, PositionMs: 500},
		{BankIndex: 0, SlotIndex: 1, PositionMs: 100},
		{BankIndex: 0, SlotIndex: 0, PositionMs: 900},
	}
	out := in.Canonicalize()
	for i := 1; i < len(out); i++ {
		if out.less(i, i-1) {
			t.Fatalf("cues not ordered: %+v", out)
		}
	}
}

func TestTagsCanonicalizeIdempotentAndPrunesEmptyFacets(t *testing.T) {
	in := Tags{
		Plain: PlainTags{
			{Label: "deep house", Score: 0.9},
			{Label: "deep house", Score: 0.4},
		},
		Facets: []FacetedTag{
			{FacetID: FacetGenre, Tags: PlainTags{{Label: "Techno", Score: 1.0}}},
			{FacetID: "empty-facet", Tags: nil},
			{FacetID: FacetGenre, Tags: PlainTags{{Label: "Techno", Score: 0.5}}},
		},
	}
	once := in.Canonicalize()
	twice := once.Canonicalize()
	if !tagsEqual(once, twice) {
		t.Fatalf("canonicalize not idempotent: once=%+v twice=%+v", once, twice)
	}
	if !once.IsCanonical() {
		t.Fatal("canonicalized tags report as non-canonical")
	}

	if len(once.Plain) != 1 || once.Plain[0].Score != 0.9 {
		t.Fatalf("expected deduped plain tag with highest score, got %+v", once.Plain)
	}
	for _, f := range once.Facets {
		if f.FacetID == "empty-facet" {
			t.Fatal("empty facet should have been pruned")
		}
		if f.FacetID == FacetGenre && len(f.Tags) != 1 {
			t.Fatalf("expected merged genre facet to collapse to one tag, got %+v", f.Tags)
		}
	}
}

func TestTagsMapRoundTrip(t *testing.T) {
	in := Tags{
		Plain: PlainTags{{Label: "mellow", Score: 0.7}},
		Facets: []FacetedTag{
			{FacetID: FacetMood, Tags: PlainTags{{Label: "uplifting", Score: 1.0}}},
		},
	}
	m := in.Canonicalize().ToMap()
	out := FromMap(m)
	if !tagsEqual(in.Canonicalize(), out) {
		t.Fatalf("map round trip mismatch: in=%+v out=%+v", in.Canonicalize(), out)
	}
}

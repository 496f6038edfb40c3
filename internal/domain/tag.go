package domain

import (
	"sort"
	"strings"
)

// Score is a confidence in [0.0, 1.0]; 1.0 means maximally confident.
type Score float64

// Clamp returns s clamped to [0.0, 1.0].
func (s Score) Clamp() Score {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ScoreInvalidity enumerates the ways a Score can fail validation.
type ScoreInvalidity int

const (
	ScoreInvalidityOutOfRange ScoreInvalidity = iota
)

// Validate reports whether s lies outside [0.0, 1.0].
func (s Score) Validate() []ScoreInvalidity {
	if s < 0 || s > 1 {
		return []ScoreInvalidity{ScoreInvalidityOutOfRange}
	}
	return nil
}

// DefaultScore is applied to tag tokens that don't carry an explicit score.
const DefaultScore Score = 1.0

// Label is a trimmed, non-empty Unicode string used for a plain tag.
type Label string

// LabelInvalidity enumerates the ways a Label can fail validation.
type LabelInvalidity int

const (
	LabelInvalidityEmpty LabelInvalidity = iota
	LabelInvalidityUntrimmed
)

// Validate reports structural problems with l.
func (l Label) Validate() []LabelInvalidity {
	var issues []LabelInvalidity
	if strings.TrimSpace(string(l)) == "" {
		issues = append(issues, LabelInvalidityEmpty)
	} else if string(l) != strings.TrimSpace(string(l)) {
		issues = append(issues, LabelInvalidityUntrimmed)
	}
	return issues
}

// FacetID is a lowercase ASCII identifier drawn from
// [a-z0-9+-./@[]_], non-empty, with no whitespace.
type FacetID string

// FacetIDInvalidity enumerates the ways a FacetID can fail validation.
type FacetIDInvalidity int

const (
	FacetIDInvalidityEmpty  FacetIDInvalidity = iota
	FacetIDInvalidityFormat
)

const facetIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789+-./@[]_"

func isFacetIDRune(r rune) bool {
	return strings.ContainsRune(facetIDAlphabet, r)
}

// Validate reports structural problems with f.
func (f FacetID) Validate() []FacetIDInvalidity {
	if f == "" {
		return []FacetIDInvalidity{FacetIDInvalidityEmpty}
	}
	for _, r := range string(f) {
		if !isFacetIDRune(r) {
			return []FacetIDInvalidity{FacetIDInvalidityFormat}
		}
	}
	return nil
}

// Reserved facet identifiers used by the importer's gig-tag and tag-frame
// normalization.
const (
	FacetGenre       FacetID = "genre"
	FacetMood        FacetID = "mood"
	FacetComment     FacetID = "comment"
	FacetDescription FacetID = "description"
	FacetGrouping    FacetID = "grouping"
	FacetISRC        FacetID = "isrc"
	FacetLang        FacetID = "lang"
	FacetStyle       FacetID = "style"
	FacetVenue       FacetID = "venue"
	FacetCrowd       FacetID = "crowd"
	FacetSetTime     FacetID = "settime"
	FacetXID         FacetID = "xid"
)

// PlainTag is a label/score pair, the wire shape shared by standalone plain
// tags and tags grouped under a facet.
type PlainTag struct {
	Label Label
	Score Score
}

// PlainTags is an ordered collection of PlainTag values.
type PlainTags []PlainTag

func (pt PlainTags) less(i, j int) bool {
	if pt[i].Label != pt[j].Label {
		return pt[i].Label < pt[j].Label
	}
	return pt[i].Score > pt[j].Score
}

// Canonicalize sorts pt by label ascending (ties broken by score
// descending) and collapses duplicate labels, keeping the higher score.
func (pt PlainTags) Canonicalize() PlainTags {
	out := make(PlainTags, len(pt))
	copy(out, pt)
	sort.SliceStable(out, out.less)

	deduped := out[:0:0]
	for _, t := range out {
		if n := len(deduped); n > 0 && deduped[n-1].Label == t.Label {
			continue // first occurrence after sort already has the highest score
		}
		deduped = append(deduped, t)
	}
	return deduped
}

// FacetedTag groups PlainTags under a non-empty FacetID.
type FacetedTag struct {
	FacetID FacetID
	Tags    PlainTags
}

// Tags is the canonical aggregate: an unfaceted PlainTags list plus zero or
// more FacetedTag groups.
type Tags struct {
	Plain  PlainTags
	Facets []FacetedTag
}

// FacetKey identifies a lookup bucket in a TagsMap: either a facet ID or
// "no facet" (the plain-tag bucket).
type FacetKey struct {
	Facet FacetID
	IsSet bool
}

// NoFacet is the FacetKey for the unfaceted plain-tag bucket.
var NoFacet = FacetKey{}

// FacetKeyOf constructs a set FacetKey.
func FacetKeyOf(id FacetID) FacetKey { return FacetKey{Facet: id, IsSet: true} }

// TagsMap is a convenience hash-map view of Tags keyed by FacetKey.
type TagsMap map[FacetKey]PlainTags

// ToMap builds a TagsMap view of t.
func (t Tags) ToMap() TagsMap {
	m := make(TagsMap, len(t.Facets)+1)
	if len(t.Plain) > 0 {
		m[NoFacet] = t.Plain
	}
	for _, f := range t.Facets {
		m[FacetKeyOf(f.FacetID)] = f.Tags
	}
	return m
}

// FromMap rebuilds a Tags aggregate from a TagsMap, then canonicalizes it.
func FromMap(m TagsMap) Tags {
	var t Tags
	for key, tags := range m {
		if !key.IsSet {
			t.Plain = append(t.Plain, tags...)
			continue
		}
		t.Facets = append(t.Facets, FacetedTag{FacetID: key.Facet, Tags: tags})
	}
	return t.Canonicalize()
}

// IsCanonical reports whether t is already sorted, deduplicated and pruned
// of empty facets.
func (t Tags) IsCanonical() bool {
	c := t.Canonicalize()
	return tagsEqual(t, c)
}

func tagsEqual(a, b Tags) bool {
	if len(a.Plain) != len(b.Plain) || len(a.Facets) != len(b.Facets) {
		return false
	}
	for i := range a.Plain {
		if a.Plain[i] != b.Plain[i] {
			return false
		}
	}
	for i := range a.Facets {
		if a.Facets[i].FacetID != b.Facets[i].FacetID {
			return false
		}
		if len(a.Facets[i].Tags) != len(b.Facets[i].Tags) {
			return false
		}
		for j := range a.Facets[i].Tags {
			if a.Facets[i].Tags[j] != b.Facets[i].Tags[j] {
				return false
			}
		}
	}
	return true
}

// Canonicalize merges duplicate facets by concatenating their tag lists,
// canonicalizes each facet's PlainTags, drops facets left with no tags,
// sorts facets by FacetID ascending, and canonicalizes the unfaceted list.
func (t Tags) Canonicalize() Tags {
	merged := map[FacetID]PlainTags{}
	order := []FacetID{}
	for _, f := range t.Facets {
		if _, ok := merged[f.FacetID]; !ok {
			order = append(order, f.FacetID)
		}
		merged[f.FacetID] = append(merged[f.FacetID], f.Tags...)
	}

	facets := make([]FacetedTag, 0, len(order))
	for _, id := range order {
		canon := merged[id].Canonicalize()
		if len(canon) == 0 {
			continue
		}
		facets = append(facets, FacetedTag{FacetID: id, Tags: canon})
	}
	sort.Slice(facets, func(i, j int) bool { return facets[i].FacetID < facets[j].FacetID })

	return Tags{
		Plain:  t.Plain.Canonicalize(),
		Facets: facets,
	}
}

// TagsInvalidity enumerates structural problems surfaced by Tags.Validate.
type TagsInvalidity struct {
	Facet FacetID
	Label LabelInvalidity
	Score ScoreInvalidity
	Kind  string // "facet_id", "label", "score"
}

// Validate reports per-entry invalidities without repairing them.
func (t Tags) Validate() []TagsInvalidity {
	var issues []TagsInvalidity
	for _, pt := range t.Plain {
		for _, li := range pt.Label.Validate() {
			issues = append(issues, TagsInvalidity{Label: li, Kind: "label"})
		}
		for _, si := range pt.Score.Validate() {
			issues = append(issues, TagsInvalidity{Score: si, Kind: "score"})
		}
	}
	for _, f := range t.Facets {
		if invs := f.FacetID.Validate(); len(invs) > 0 {
			issues = append(issues, TagsInvalidity{Facet: f.FacetID, Kind: "facet_id"})
		}
		for _, pt := range f.Tags {
			for _, li := range pt.Label.Validate() {
				issues = append(issues, TagsInvalidity{Facet: f.FacetID, Label: li, Kind: "label"})
			}
			for _, si := range pt.Score.Validate() {
				issues = append(issues, TagsInvalidity{Facet: f.FacetID, Score: si, Kind: "score"})
			}
		}
	}
	return issues
}

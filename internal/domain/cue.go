package domain

import "sort"

// CueKind classifies a Cue marker.
type CueKind int

const (
	CueKindHotCue CueKind = iota
	CueKindLoadCue
	CueKindIntroStart
	CueKindIntroEnd
	CueKindOutroStart
	CueKindOutroEnd
	CueKindLoop
	CueKindSample
	CueKindCustom
)

// Cue is a marker within a track at a bank/slot position.
type Cue struct {
	BankIndex    uint8
	SlotIndex    uint8
	Kind         CueKind
	PositionMs   int64
	OutPositionMs *int64
	Label        string
	Color        *uint32
	Flags        uint32
}

// RequiresOutPosition reports whether k must carry an OutPositionMs.
func (k CueKind) RequiresOutPosition() bool {
	return k == CueKindLoop || k == CueKindSample
}

// Cues is an ordered collection of Cue values for a single track.
type Cues []Cue

func (cs Cues) less(i, j int) bool {
	if cs[i].BankIndex != cs[j].BankIndex {
		return cs[i].BankIndex < cs[j].BankIndex
	}
	if cs[i].SlotIndex != cs[j].SlotIndex {
		return cs[i].SlotIndex < cs[j].SlotIndex
	}
	return cs[i].PositionMs < cs[j].PositionMs
}

// IsCanonical reports whether cs is sorted by (bank, slot, position_ms).
func (cs Cues) IsCanonical() bool {
	for i := 1; i < len(cs); i++ {
		if cs.less(i, i-1) {
			return false
		}
	}
	return true
}

// Canonicalize sorts cs by (bank, slot, position_ms). Uniqueness of
// (bank, slot) is a store-level constraint, not repaired here.
func (cs Cues) Canonicalize() Cues {
	out := make(Cues, len(cs))
	copy(out, cs)
	sort.SliceStable(out, out.less)
	return out
}

// CuesInvalidity enumerates cross-entry problems in a Cues slice.
type CuesInvalidity int

const (
	CuesInvalidityDuplicateSlot CuesInvalidity = iota
	CuesInvalidityMissingOutPosition
)

// Validate checks the (bank, slot) uniqueness invariant and the
// out-position requirement for Loop/Sample cues.
func (cs Cues) Validate() []CuesInvalidity {
	var issues []CuesInvalidity
	seen := map[[2]uint8]bool{}
	for _, c := range cs {
		key := [2]uint8{c.BankIndex, c.SlotIndex}
		if seen[key] {
			issues = append(issues, CuesInvalidityDuplicateSlot)
		}
		seen[key] = true
		if c.Kind.RequiresOutPosition() && c.OutPositionMs == nil {
			issues = append(issues, CuesInvalidityMissingOutPosition)
		}
	}
	return issues
}

// Package search implements the track search filter algebra: a small sum
// type over leaf predicates and boolean combinators, compiled to a SQL
// WHERE clause over the track/media_source join.
package search

import "github.com/cartomix/meridian/internal/entityuid"

// Filter is a node in the search filter tree. Every leaf and combinator
// type in this package implements it; the set is closed (sealed by the
// unexported method).
type Filter interface {
	isFilter()
}

// StringPredicate is the comparison a StringFilter applies.
type StringPredicate int

const (
	StringEquals StringPredicate = iota
	StringContains
)

// StringFilter matches a single string-valued field or sub-value.
type StringFilter struct {
	Value     string
	Predicate StringPredicate
}

// Phrase restricts a whitespace-split set of terms to a set of string
// fields. An empty Fields set means "any of the indexed aux fields".
// Matching is case-insensitive substring on each term, ANDed.
type Phrase struct {
	Terms  []string
	Fields []StringField
}

func (Phrase) isFilter() {}

// StringField enumerates the indexed string columns Phrase can restrict to.
type StringField int

const (
	StringFieldTrackTitle StringField = iota
	StringFieldTrackArtist
	StringFieldTrackComposer
	StringFieldAlbumTitle
	StringFieldAlbumArtist
	StringFieldContentPath
)

// NumericPredicate enumerates the comparisons NumericFieldFilter supports.
type NumericPredicate int

const (
	LessThan NumericPredicate = iota
	LessOrEqual
	GreaterThan
	GreaterOrEqual
	Equal
	NotEqual
)

// NumericField enumerates the numeric columns Numeric can compare against.
type NumericField int

const (
	NumericFieldAudioBitrateBps NumericField = iota
	NumericFieldAudioChannelCount
	NumericFieldAudioDurationMs
	NumericFieldAudioLoudnessLufs
	NumericFieldAudioSampleRateHz
	NumericFieldDiscNumber
	NumericFieldDiscTotal
	NumericFieldMusicTempoBpm
	NumericFieldMusicKeyCode
	NumericFieldTrackNumber
	NumericFieldTrackTotal
	NumericFieldTimesPlayed
)

// Numeric matches a numeric field against predicate/value.
type Numeric struct {
	Field     NumericField
	Predicate NumericPredicate
	Value     float64
}

func (Numeric) isFilter() {}

// DateTimeField enumerates the date/time columns DateTime can compare
// against.
type DateTimeField int

const (
	DateTimeFieldCollectedAt DateTimeField = iota
	DateTimeFieldCreatedAt
	DateTimeFieldUpdatedAt
	DateTimeFieldLastPlayedAt
	DateTimeFieldRecordedAt
	DateTimeFieldReleasedAt
	DateTimeFieldReleasedOrigAt
)

// DateTime matches a date/time field against predicate/value, reusing
// NumericPredicate's comparison vocabulary (epoch-seconds comparison; the
// stored timestamp is converted with strftime('%s', ...)).
type DateTime struct {
	Field     DateTimeField
	Predicate NumericPredicate
	Value     int64 // unix seconds
}

func (DateTime) isFilter() {}

// ConditionKind enumerates the track/media-source lifecycle predicates
// Condition exposes.
type ConditionKind int

const (
	// SourceTracked matches tracks whose file is currently tracked by a
	// synchronizer run (last_synchronized_revision equals the entity's
	// current revision).
	SourceTracked ConditionKind = iota
	// SourceUntracked matches tracks whose file has drifted from, or was
	// never confirmed by, the last synchronizer pass.
	SourceUntracked
)

// Condition matches one of the fixed lifecycle predicates above.
type Condition struct {
	Kind ConditionKind
}

func (Condition) isFilter() {}

// TagFilter matches tracks carrying a tag with an optional facet_id
// filter, optional label predicate, and optional score range.
type TagFilter struct {
	FacetID      *string
	Label        *StringFilter
	ScoreMin     *float64
	ScoreMax     *float64
}

// Tag wraps a TagFilter as a Filter leaf.
type Tag struct {
	TagFilter TagFilter
}

func (Tag) isFilter() {}

// CueLabel matches tracks with at least one cue whose label satisfies f.
type CueLabel struct {
	StringFilter StringFilter
}

func (CueLabel) isFilter() {}

// PlaylistUid matches tracks that appear as an entry of the playlist
// identified by UID.
type PlaylistUid struct {
	UID entityuid.UID
}

func (PlaylistUid) isFilter() {}

// All is the conjunction of its children; an empty All matches everything.
type All struct {
	Filters []Filter
}

func (All) isFilter() {}

// Any is the disjunction of its children; an empty Any matches nothing.
type Any struct {
	Filters []Filter
}

func (Any) isFilter() {}

// Not negates its child.
type Not struct {
	Filter Filter
}

func (Not) isFilter() {}

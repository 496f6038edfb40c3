package domain

import "time"

// DateOrDateTime holds either a calendar date or a full date-time, as the
// recorded/released/released-original fields may carry either precision.
type DateOrDateTime struct {
	Time      time.Time
	HasClock  bool // false => only the date component is meaningful
}

// Indexes holds a track's position within its disc/set/movement.
type Indexes struct {
	TrackNumber    *int32
	TrackTotal     *int32
	DiscNumber     *int32
	DiscTotal      *int32
	MovementNumber *int32
	MovementTotal  *int32
}

// TimeSignature describes a track's meter.
type TimeSignature struct {
	BeatsPerMeasure int32
	BeatUnit        *int32
}

// MusicFlags records auxiliary bits about a track's musical metrics.
type MusicFlags uint32

const (
	// TempoBpmNonFractional marks that the BPM tag stored an integer
	// value with no decimal point; re-export must preserve that form.
	TempoBpmNonFractional MusicFlags = 1 << iota
)

// Metrics holds a track's tempo, key, time signature and ReplayGain.
type Metrics struct {
	TempoBpm      float64 // 0 means absent
	Flags         MusicFlags
	KeyCode       int // 0..24, 0 = unknown/off
	TimeSignature *TimeSignature

	// ReplayGainDb is the track-level ReplayGain adjustment in decibels,
	// as parsed from a tag's REPLAYGAIN_TRACK_GAIN item. nil when
	// the file carries no ReplayGain tag. See internal/musickey.Loudness.
	ReplayGainDb *float64
}

// HasTempo reports whether a BPM value is present.
func (m Metrics) HasTempo() bool { return m.TempoBpm > 0 }

// Color is either a 24-bit RGB value or an index into an external palette.
type Color struct {
	RGB     *uint32
	Palette *int32
}

// PlayCounter tracks how often and when a track was last played.
type PlayCounter struct {
	LastPlayedAt *time.Time
	TimesPlayed  int64
}

// Track is the musical record, one-to-one with a MediaSource.
type Track struct {
	RecordedAt     *DateOrDateTime
	ReleasedAt     *DateOrDateTime
	ReleasedOrigAt *DateOrDateTime
	Publisher      string
	Copyright      string

	Album Album

	Titles Titles
	Actors Actors

	Indexes Indexes
	Metrics Metrics

	Color *Color

	PlayCounter PlayCounter

	Cues Cues
	Tags Tags

	// LastSynchronizedRevision is the entity revision at which the file
	// and the store last agreed; set by the directory synchronizer.
	LastSynchronizedRevision *int64
}

// Canonicalize canonicalizes every child collection of t and returns the
// result; it never mutates the receiver's slices in place.
func (t Track) Canonicalize() Track {
	t.Album = t.Album.Canonicalize()
	t.Titles = t.Titles.Canonicalize()
	t.Actors = t.Actors.Canonicalize()
	t.Cues = t.Cues.Canonicalize()
	t.Tags = t.Tags.Canonicalize()
	return t
}

// IsCanonical reports whether every child collection of t is canonical.
func (t Track) IsCanonical() bool {
	return t.Album.IsCanonical() &&
		t.Titles.IsCanonical() &&
		t.Actors.IsCanonical() &&
		t.Cues.IsCanonical() &&
		t.Tags.IsCanonical()
}

// TrackInvalidity aggregates validation failures across a Track's children.
type TrackInvalidity struct {
	Titles TitlesInvalidity
	Actors ActorsInvalidity
	Cues   CuesInvalidity
	Tags   TagsInvalidity
	Kind   string
}

// Validate reports structural problems across all of t's children without
// repairing them. Call Canonicalize first when invariants require sorted
// input (e.g. duplicate-actor/cue detection assumes canonical form).
func (t Track) Validate() []TrackInvalidity {
	var issues []TrackInvalidity
	for _, i := range t.Titles.Validate() {
		issues = append(issues, TrackInvalidity{Titles: i, Kind: "titles"})
	}
	for _, i := range t.Album.Titles.Validate() {
		issues = append(issues, TrackInvalidity{Titles: i, Kind: "album_titles"})
	}
	for _, i := range t.Actors.Validate() {
		issues = append(issues, TrackInvalidity{Actors: i, Kind: "actors"})
	}
	for _, i := range t.Album.Actors.Validate() {
		issues = append(issues, TrackInvalidity{Actors: i, Kind: "album_actors"})
	}
	for _, i := range t.Cues.Validate() {
		issues = append(issues, TrackInvalidity{Cues: i, Kind: "cues"})
	}
	for _, i := range t.Tags.Validate() {
		issues = append(issues, TrackInvalidity{Tags: i, Kind: "tags"})
	}
	return issues
}

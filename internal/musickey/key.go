// Package musickey implements bidirectional conversion among musical key
// notations (canonical, traditional, Open Key, Lancelot/Camelot, Traxsource,
// Beatport, Serato, Engine), plus tempo and loudness value types used by
// the importer.
//
// The key numbering and per-notation tables are grounded on the original
// Rust implementation's crates/core/src/music/key/mod.rs (see
// original_source/ in the retrieval pack): codes run 1..24 around the
// Circle of Fifths, alternating major/minor, with 0 meaning "unknown/off".
package musickey

import "golang.org/x/text/unicode/norm"

// Code is a key-signature code in 0..=24. 0 means unknown/off.
type Code uint8

// MaxCode is the highest valid key code.
const MaxCode Code = 24

// Mode is the major/minor quality of a key.
type Mode int

const (
	ModeMajor Mode = iota
	ModeMinor
)

// Mode derives the major/minor quality of a code: odd codes are major,
// even codes are minor. Off (0) has no mode.
func (c Code) Mode() (Mode, bool) {
	if c == 0 {
		return 0, false
	}
	if c%2 == 1 {
		return ModeMajor, true
	}
	return ModeMinor, true
}

// Valid reports whether c is in the accepted range.
func (c Code) Valid() bool { return c <= MaxCode }

type keyEntry struct {
	canonical, traditional, openKey, lancelot, traxsource, beatport, serato string
}

// keyTable is indexed by Code (0 = Off).
var keyTable = [25]keyEntry{
	0:  {"", "", "", "", "", "", "o"},
	1:  {"Cmaj", "C", "1d", "8B", "Cmaj", "C maj", "C"},
	2:  {"Amin", "Am", "1m", "8A", "Amin", "A min", "Am"},
	3:  {"Gmaj", "G", "2d", "9B", "Gmaj", "G maj", "G"},
	4:  {"Emin", "Em", "2m", "9A", "Emin", "E min", "Em"},
	5:  {"Dmaj", "D", "3d", "10B", "Dmaj", "D maj", "D"},
	6:  {"Bmin", "Bm", "3m", "10A", "Bmin", "B min", "Bm"},
	7:  {"Amaj", "A", "4d", "11B", "Amaj", "A maj", "A"},
	8:  {"Gbmin", "Gbm/F#m", "4m", "11A", "F#min", "G♭/F♯ min", "F#m"},
	9:  {"Emaj", "E", "5d", "12B", "Emaj", "E maj", "E"},
	10: {"Dbmin", "Dbm/C#m", "5m", "12A", "C#min", "D♭/C♯ min", "C#m"},
	11: {"Bmaj", "B", "6d", "1B", "Bmaj", "B maj", "B"},
	12: {"Abmin", "Ab/G#m", "6m", "1A", "G#min", "A♭/G♯ min", "G#m"},
	13: {"Gbmaj", "Gb/F#", "7d", "2B", "F#maj", "G♭/F♯ maj", "F#"},
	14: {"Ebmin", "Ebm/D#m", "7m", "2A", "D#min", "E♭/D♯ min", "Ebm"},
	15: {"Dbmaj", "Db/C#", "8d", "3B", "C#maj", "D♭/C♯ maj", "C#"},
	16: {"Bbmin", "Bbm", "8m", "3A", "A#min", "B♭/A♯ min", "Bbm"},
	17: {"Abmaj", "Ab/G#", "9d", "4B", "G#maj", "A♭/G♯ maj", "G#"},
	18: {"Fmin", "Fm", "9m", "4A", "Fmin", "F min", "Fm"},
	19: {"Ebmaj", "Eb/D#", "10d", "5B", "D#maj", "E♭/D♯ maj", "Eb"},
	20: {"Cmin", "Cm", "10m", "5A", "Cmin", "C min", "Cm"},
	21: {"Bbmaj", "B♭", "11d", "6B", "A#maj", "B♭/A♯ maj", "Bb"},
	22: {"Gmin", "Gm", "11m", "6A", "Gmin", "G min", "Gm"},
	23: {"Fmaj", "F", "12d", "7B", "Fmaj", "F maj", "F"},
	24: {"Dmin", "Dm", "12m", "7A", "Dmin", "D min", "Dm"},
}

// FormatCanonical renders c in the canonical "Cmaj"/"Amin" form.
func FormatCanonical(c Code) string { return keyTable[c].canonical }

// FormatTraditional renders c using the traditional letter+accidental
// convention ("C", "Am", "Gbm/F#m", ...).
func FormatTraditional(c Code) string { return keyTable[c].traditional }

// FormatOpenKey renders c in Open Key notation ("1d", "8m", ...).
func FormatOpenKey(c Code) string { return keyTable[c].openKey }

// FormatLancelot renders c in Lancelot/Camelot notation ("8B", "5A", ...).
func FormatLancelot(c Code) string { return keyTable[c].lancelot }

// FormatTraxsource renders c in Traxsource notation.
func FormatTraxsource(c Code) string { return keyTable[c].traxsource }

// FormatBeatport renders c in Beatport notation ("C maj", "A min", ...).
func FormatBeatport(c Code) string { return keyTable[c].beatport }

// FormatSerato renders c in Serato/ID3 TKEY notation ("C", "Am", ...).
func FormatSerato(c Code) string { return keyTable[c].serato }

func buildIndex(pick func(keyEntry) string, extra map[string]Code) map[string]Code {
	m := make(map[string]Code, len(keyTable)*2)
	for code, e := range keyTable {
		s := pick(e)
		if s == "" && code != 0 {
			continue
		}
		if _, exists := m[s]; !exists || code == 0 {
			m[s] = Code(code)
		}
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

var canonicalIndex = buildIndex(func(e keyEntry) string { return e.canonical }, nil)
var openKeyIndex = buildIndex(func(e keyEntry) string { return e.openKey }, nil)
var lancelotIndex = buildIndex(func(e keyEntry) string { return e.lancelot }, nil)
var traxsourceIndex = buildIndex(func(e keyEntry) string { return e.traxsource }, nil)
var beatportIndex = buildIndex(func(e keyEntry) string { return e.beatport },
	map[string]Code{
		"G♭ min": 8, "F♯ min": 8, "G♭/F♯ min": 8,
		"D♭ min": 10, "C♯ min": 10, "D♭/C♯ min": 10,
		"A♭ min": 12, "G♯ min": 12, "A♭/G♯ min": 12,
		"G♭ maj": 13, "F♯ maj": 13, "G♭/F♯ maj": 13,
		"E♭ min": 14, "D♯ min": 14, "E♭/D♯ min": 14,
		"D♭ maj": 15, "C♯ maj": 15, "D♭/C♯ maj": 15,
		"A♭ maj": 17, "G♯ maj": 17, "A♭/G♯ maj": 17,
		"E♭ maj": 19, "D♯ maj": 19, "E♭/D♯ maj": 19,
	})
var seratoIndex = buildIndex(func(e keyEntry) string { return e.serato }, nil)
var traditionalIndex = buildIndex(func(e keyEntry) string { return e.traditional },
	map[string]Code{
		"Am": 2, "a": 2, "Em": 4, "e": 4, "Bm": 6, "b": 6,
		"Gbm": 8, "F#m": 8, "F#m/Gbm": 8, "gb/f#": 8, "gb": 8, "f#": 8, "f#/gb": 8,
		"Dbm": 10, "C#m": 10, "C#m/Dbm": 10, "db/c#": 10, "db": 10, "c#": 10, "c#/db": 10,
		"Ab/G#m": 12, "Abm": 12, "G#m": 12, "G#m/Abm": 12, "ab/g#": 12, "ab": 12, "g#": 12, "g#/ab": 12,
		"Gb/F#": 13, "Gb": 13, "F#": 13, "F#/Gb": 13,
		"Ebm/D#m": 14, "Ebm": 14, "D#m": 14, "D#m/Ebm": 14, "eb/d#": 14, "eb": 14, "d#": 14, "d#/eb": 14,
		"Db/C#": 15, "Db": 15, "C#": 15, "C#/Db": 15,
		"Bbm": 16, "bb": 16,
		"Ab/G#": 17, "Ab": 17, "G#": 17, "G#/Ab": 17,
		"Fm": 18, "f": 18,
		"Eb/D#": 19, "Eb": 19, "D#": 19, "D#/Eb": 19,
		"Cm": 20, "c": 20,
		"B♭": 21,
		"Gm": 22, "g": 22,
		"Dm": 24, "d": 24,
	})

// ParseCanonical parses the "Cmaj"/"Amin" form. Unknown strings yield false,
// never an error.
func ParseCanonical(s string) (Code, bool) {
	c, ok := canonicalIndex[s]
	return c, ok
}

// ParseTraditional parses the traditional letter+accidental convention,
// accepting both ASCII and Unicode flat/sharp signs and upper/lower case
// shorthand where the original grammar defines it. Input is normalized to
// NFKC first, so a combining-character spelling of ♭/♯ (as some tag
// editors emit) matches the precomposed forms the table is keyed on.
func ParseTraditional(s string) (Code, bool) {
	c, ok := traditionalIndex[norm.NFKC.String(s)]
	return c, ok
}

// ParseOpenKey parses the "1d"/"12m" form.
func ParseOpenKey(s string) (Code, bool) {
	c, ok := openKeyIndex[s]
	return c, ok
}

// ParseLancelot parses the "8B"/"7A" Camelot wheel form.
func ParseLancelot(s string) (Code, bool) {
	c, ok := lancelotIndex[s]
	return c, ok
}

// ParseTraxsource parses Traxsource's "Cmaj"/"F#min" form.
func ParseTraxsource(s string) (Code, bool) {
	c, ok := traxsourceIndex[s]
	return c, ok
}

// ParseBeatport parses Beatport's "C maj"/"A min" form, accepting Unicode
// flat/sharp and the combined "G♭/F♯ min" spelling.
func ParseBeatport(s string) (Code, bool) {
	c, ok := beatportIndex[norm.NFKC.String(s)]
	return c, ok
}

// ParseSerato parses Serato/ID3-TKEY's "C"/"Am" form.
func ParseSerato(s string) (Code, bool) {
	c, ok := seratoIndex[s]
	return c, ok
}

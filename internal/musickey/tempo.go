package musickey

import (
	"fmt"
	"math"
)

// Tempo is a BPM value that remembers whether it was supplied as a whole
// number, so re-exporting a whole-BPM import doesn't grow a spurious
// fractional part.
type Tempo struct {
	Bpm        float64
	WasInteger bool
}

// NewTempo builds a Tempo from a float, inferring WasInteger from whether
// bpm has no fractional part.
func NewTempo(bpm float64) Tempo {
	return Tempo{Bpm: bpm, WasInteger: bpm == math.Trunc(bpm)}
}

// NewIntegerTempo builds a Tempo explicitly flagged as whole-number BPM.
func NewIntegerTempo(bpm int) Tempo {
	return Tempo{Bpm: float64(bpm), WasInteger: true}
}

// String renders the tempo without a decimal point when it came from a
// whole-number source, and with one otherwise.
func (t Tempo) String() string {
	if t.WasInteger {
		return fmt.Sprintf("%d", int64(math.Round(t.Bpm)))
	}
	return fmt.Sprintf("%g", t.Bpm)
}

// Valid reports whether the BPM is a finite, strictly positive value.
func (t Tempo) Valid() bool {
	return t.Bpm > 0 && !math.IsInf(t.Bpm, 0) && !math.IsNaN(t.Bpm)
}

package musickey

// Loudness is a ReplayGain-style gain ratio, stored as the decibel
// adjustment relative to the ReplayGain reference level, together with its
// equivalent LUFS (Loudness Units Full Scale) reading.
//
// The reference level is fixed at -18 LUFS, so LUFS = -18.0 - GainDb.
type Loudness struct {
	GainDb float64
}

const replayGainReferenceLufs = -18.0

// LUFS derives the absolute loudness from the relative gain.
func (l Loudness) LUFS() float64 {
	return replayGainReferenceLufs - l.GainDb
}

// FromLUFS builds a Loudness from an absolute LUFS reading.
func FromLUFS(lufs float64) Loudness {
	return Loudness{GainDb: replayGainReferenceLufs - lufs}
}

// Valid reports whether the gain is a plausible ReplayGain adjustment.
func (l Loudness) Valid() bool {
	return l.GainDb > -60 && l.GainDb < 60
}

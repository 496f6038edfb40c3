// Package fixtures generates reproducible WAV audio files for manual
// testing and demos: a BPM ladder of click tracks, an optional swung
// click, and an optional tempo ramp, plus a manifest.json describing
// what was written.
package fixtures

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Config controls which fixtures Generate emits.
type Config struct {
	OutputDir    string
	SampleRate   int
	Seed         int64
	BPMLadder    []float64
	SwingRatio   float64 // e.g. 0.6 delays the offbeat to 60% of the beat
	IncludeSwing bool
	IncludeRamp  bool
	RampStartBPM float64
	RampEndBPM   float64
}

// Manifest describes the fixtures Generate wrote, for a consumer (a
// catalog import, a test, a human) to discover what's on disk without
// re-deriving it from filenames.
type Manifest struct {
	SampleRate int               `json:"sample_rate"`
	Seed       int64             `json:"seed"`
	Fixtures   []ManifestFixture `json:"fixtures"`
}

// ManifestFixture describes one generated file.
type ManifestFixture struct {
	File        string  `json:"file"`
	Type        string  `json:"type"`
	BPM         float64 `json:"bpm,omitempty"`
	TargetBPM   float64 `json:"target_bpm,omitempty"`
	Beats       int     `json:"beats,omitempty"`
	DurationSec float64 `json:"duration_sec"`
	SwingRatio  float64 `json:"swing_ratio,omitempty"`
}

// Generate writes WAV fixtures and a manifest.json into cfg.OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/audio"
	}
	if len(cfg.BPMLadder) == 0 {
		cfg.BPMLadder = []float64{120}
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("fixtures: mkdir output: %w", err)
	}

	manifest := &Manifest{SampleRate: cfg.SampleRate, Seed: cfg.Seed}

	for _, bpm := range cfg.BPMLadder {
		filename := fmt.Sprintf("click_%dbpm.wav", int(bpm))
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderClickTrack(path, cfg.SampleRate, bpm, 32, 0, 1.0)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "click", BPM: bpm, Beats: 32, DurationSec: duration,
		})
	}

	if cfg.IncludeSwing {
		bpm := cfg.BPMLadder[len(cfg.BPMLadder)/2]
		filename := "swing_click.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderClickTrack(path, cfg.SampleRate, bpm, 32, cfg.SwingRatio, 1.0)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "swing_click", BPM: bpm, SwingRatio: cfg.SwingRatio, Beats: 32, DurationSec: duration,
		})
	}

	if cfg.IncludeRamp {
		filename := "tempo_ramp.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		duration, err := renderTempoRamp(path, cfg.SampleRate, cfg.RampStartBPM, cfg.RampEndBPM, 64)
		if err != nil {
			return nil, err
		}
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File: filename, Type: "tempo_ramp", BPM: cfg.RampStartBPM, TargetBPM: cfg.RampEndBPM, Beats: 64, DurationSec: duration,
		})
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("fixtures: marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return nil, fmt.Errorf("fixtures: write manifest: %w", err)
	}

	return manifest, nil
}

// renderClickTrack writes beats evenly spaced at bpm (or swung to
// swingRatio on odd beats, when swingRatio > 0) as short decaying clicks.
func renderClickTrack(path string, sampleRate int, bpm float64, beats int, swingRatio float64, amplitude float64) (float64, error) {
	secondsPerBeat := 60.0 / bpm
	totalDuration := secondsPerBeat * float64(beats)
	samples := make([]float64, int(totalDuration*float64(sampleRate)))

	clickLen := int(0.01 * float64(sampleRate))
	for i := 0; i < beats; i++ {
		offsetSec := secondsPerBeat * float64(i)
		if swingRatio > 0 && i%2 == 1 {
			offsetSec = secondsPerBeat*float64(i-1) + secondsPerBeat*swingRatio
		}
		offset := int(offsetSec * float64(sampleRate))
		for j := 0; j < clickLen && offset+j < len(samples); j++ {
			samples[offset+j] += amplitude * math.Exp(-4*float64(j)/float64(clickLen))
		}
	}

	if err := writeWAV(path, samples, sampleRate); err != nil {
		return 0, err
	}
	return totalDuration, nil
}

// renderTempoRamp writes clicks whose interval ramps linearly from
// startBPM to endBPM over beats beats.
func renderTempoRamp(path string, sampleRate int, startBPM, endBPM float64, beats int) (float64, error) {
	var samples []float64
	currentTime := 0.0
	clickLen := int(0.01 * float64(sampleRate))

	for i := 0; i < beats; i++ {
		progress := float64(i) / float64(beats-1)
		bpm := startBPM + (endBPM-startBPM)*progress
		offset := int(currentTime * float64(sampleRate))

		need := offset + clickLen
		if need > len(samples) {
			samples = append(samples, make([]float64, need-len(samples))...)
		}
		for j := 0; j < clickLen; j++ {
			samples[offset+j] += math.Exp(-4 * float64(j) / float64(clickLen))
		}

		currentTime += 60.0 / bpm
	}

	if err := writeWAV(path, samples, sampleRate); err != nil {
		return 0, err
	}
	return currentTime, nil
}

// writeWAV encodes samples (in [-1, 1]) as 16-bit mono PCM and writes the
// minimal RIFF/WAVE container the importer's passthrough backend expects.
func writeWAV(path string, samples []float64, sampleRate int) error {
	buf := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf[i] = int16(s * 32767)
	}

	byteRate := sampleRate * 2
	dataSize := len(buf) * 2
	riffSize := 36 + dataSize

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fixtures: create %s: %w", path, err)
	}
	defer f.Close()

	f.Write([]byte("RIFF"))
	binary.Write(f, binary.LittleEndian, uint32(riffSize))
	f.Write([]byte("WAVE"))
	f.Write([]byte("fmt "))
	binary.Write(f, binary.LittleEndian, uint32(16))
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate))
	binary.Write(f, binary.LittleEndian, uint32(byteRate))
	binary.Write(f, binary.LittleEndian, int16(2))
	binary.Write(f, binary.LittleEndian, int16(16))
	f.Write([]byte("data"))
	binary.Write(f, binary.LittleEndian, uint32(dataSize))
	for _, v := range buf {
		if err := binary.Write(f, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("fixtures: write samples: %w", err)
		}
	}
	return nil
}

// Package sync implements the directory synchronizer: it walks a
// collection's root directory, imports new and modified audio files
// through internal/importer, and reconciles the store against what it
// finds on disk.
package sync

import (
	"context"
	"crypto/sha256"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/cartomix/meridian/internal/client"
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/importer"
	"github.com/cartomix/meridian/internal/meridianerr"
	"github.com/cartomix/meridian/internal/store"
)

// Mode selects when an already-tracked file is re-imported.
type Mode int

const (
	// Modified re-imports a file only when its content digest has
	// changed since the last sync.
	Modified Mode = iota
	// Always re-imports every visited file regardless of digest.
	Always
)

// Disposition governs how a sweep phase treats media sources the walk
// didn't account for.
type Disposition int

const (
	// Keep leaves the media source (and its track) untouched.
	Keep Disposition = iota
	// Purge deletes the media source (and, by cascade, its track).
	Purge
)

// ReportMode toggles whether an optional pass runs: Find runs and counts
// it, Ignore skips it.
type ReportMode int

const (
	Ignore ReportMode = iota
	Find
)

// Policies bundles every synchronizer policy knob from the directory
// synchronizer's configuration surface.
type Policies struct {
	SyncMode              Mode
	UntrackedMediaSources Disposition
	OrphanedMediaSources  Disposition
	UntrackedFiles        ReportMode
	UnsynchronizedTracks  ReportMode
	MaxDepth              *int
}

// Config is the synchronizer's per-run input.
type Config struct {
	CollectionUID entityuid.UID
	SubRootURL    string // overrides the collection root when non-empty
	ImportFlags   importer.Flags
	Policies      Policies
}

// Counters tallies per-file outcomes and post-walk sweep results.
type Counters struct {
	Created, Updated, Unchanged, Skipped, Failed int
	UntrackedFiles, UnsynchronizedTracks         int
	OrphanedPurged, UntrackedPurged              int
}

// BatchMetrics summarizes the tempo and loudness of every file imported or
// re-imported in one run, for a quick "did this batch look right" signal
// without querying the whole collection back out.
type BatchMetrics struct {
	TrackCount       int
	TempoMean        float64
	TempoStdDev      float64
	LoudnessMean     float64
	LoudnessStdDev   float64
	HasLoudnessStats bool
}

// summarize computes the batch's tempo/loudness mean and standard
// deviation. Loudness is summarized only over files that reported it;
// tempo defaults to 0 for files with no detected beat grid, which still
// contributes to the mean the way a silent/ambient track legitimately
// would.
func summarize(tempi, loudness []float64) BatchMetrics {
	m := BatchMetrics{TrackCount: len(tempi)}
	if len(tempi) == 0 {
		return m
	}
	m.TempoMean = stat.Mean(tempi, nil)
	m.TempoStdDev = stat.StdDev(tempi, nil)
	if len(loudness) > 1 {
		m.LoudnessMean = stat.Mean(loudness, nil)
		m.LoudnessStdDev = stat.StdDev(loudness, nil)
		m.HasLoudnessStats = true
	}
	return m
}

// supportedExtensions mirrors the container formats internal/importer can
// decode; entries outside this set are ignored by the walk.
var supportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".aiff": true,
	".aif":  true,
	".m4a":  true,
	".mp4":  true,
	".ogg":  true,
	".opus": true,
}

// Synchronizer is the directory-sync worker: it holds its own progress
// cell so a caller can observe Stage transitions without polling, per
// spec.md's single-slot-observable progress contract.
type Synchronizer struct {
	db       *store.DB
	gate     *gatekeeper.Gatekeeper
	progress *client.Cell[client.SyncProgress]
}

// New constructs a Synchronizer bound to db through gate, with its
// progress cell starting at the idle stage.
func New(db *store.DB, gate *gatekeeper.Gatekeeper) *Synchronizer {
	return &Synchronizer{
		db:       db,
		gate:     gate,
		progress: client.NewCell(client.SyncProgress{Stage: "idle"}),
	}
}

// Progress returns the observable progress cell this synchronizer
// publishes to.
func (s *Synchronizer) Progress() *client.Cell[client.SyncProgress] { return s.progress }

// Run walks cfg's collection root (or SubRootURL, if set) and reconciles
// the store against the filesystem. When dryRun is true, no write reaches
// the store: outcomes are computed by comparison only, giving cmd/libcheck
// a plan of what would change.
// Run walks cfg's collection root and reconciles the store against the
// filesystem, recording a sync_job row for the run when dryRun is false
// so a collection's sync history can be queried back out later.
func (s *Synchronizer) Run(ctx context.Context, cfg Config, dryRun bool) (Counters, BatchMetrics, error) {
	if dryRun {
		return s.runWalk(ctx, cfg, dryRun)
	}

	startedAt := time.Now().UTC()
	jobID, jobErr := s.db.StartSyncJob(cfg.CollectionUID, startedAt)

	counters, metrics, err := s.runWalk(ctx, cfg, dryRun)

	if jobErr == nil {
		status := store.SyncJobCompleted
		errMsg := ""
		if err != nil {
			status = store.SyncJobFailed
			errMsg = err.Error()
		}
		_ = s.db.FinishSyncJob(jobID, status, time.Now().UTC(), errMsg)
	}

	return counters, metrics, err
}

func (s *Synchronizer) runWalk(ctx context.Context, cfg Config, dryRun bool) (Counters, BatchMetrics, error) {
	var counters Counters
	var tempi, loudness []float64

	var collection domain.EntityWithBody[domain.Collection]
	if err := s.gate.Read(ctx, func(ctx context.Context) error {
		var err error
		collection, err = s.db.LoadCollection(cfg.CollectionUID)
		return err
	}); err != nil {
		return counters, BatchMetrics{}, err
	}

	rootURL := collection.Body.MediaSource.ContentPath.RootURL
	if cfg.SubRootURL != "" {
		rootURL = cfg.SubRootURL
	}
	rootPath, err := localPathFromFileURL(rootURL)
	if err != nil {
		return counters, BatchMetrics{}, meridianerr.Wrap(meridianerr.InvalidData, "sync: resolve root", err)
	}

	s.publish(client.SyncProgress{Stage: "scanning"})

	files, err := s.walk(rootPath, cfg.Policies.MaxDepth)
	if err != nil {
		return counters, BatchMetrics{}, meridianerr.Wrap(meridianerr.Io, "sync: walk", err)
	}

	s.publish(client.SyncProgress{Stage: "fetching_files", Entries: len(files)})

	visited := make(map[string]bool, len(files))
	total := len(files)
	for i, abs := range files {
		select {
		case <-ctx.Done():
			return counters, summarize(tempi, loudness), meridianerr.Wrap(meridianerr.Cancelled, "sync: aborted", ctx.Err())
		default:
		}

		contentPath, err := filepath.Rel(rootPath, abs)
		if err != nil {
			counters.Failed++
			continue
		}
		contentPath = filepath.ToSlash(contentPath)
		visited[contentPath] = true

		s.publish(client.SyncProgress{Stage: "importing", Imported: i, Total: &total})

		outcome, result, err := s.syncFile(ctx, cfg, abs, contentPath, dryRun)
		if err != nil {
			counters.Failed++
			continue
		}
		if result != nil && (outcome == store.Created || outcome == store.Updated) {
			tempi = append(tempi, result.Track.Metrics.TempoBpm)
			if result.MediaSource.Audio != nil && result.MediaSource.Audio.LoudnessLufs != nil {
				loudness = append(loudness, *result.MediaSource.Audio.LoudnessLufs)
			}
		}
		switch outcome {
		case store.Created:
			counters.Created++
		case store.Updated:
			counters.Updated++
		case store.Unchanged:
			counters.Unchanged++
		default:
			counters.Skipped++
		}
	}

	select {
	case <-ctx.Done():
		return counters, summarize(tempi, loudness), meridianerr.Wrap(meridianerr.Cancelled, "sync: aborted", ctx.Err())
	default:
	}

	s.publish(client.SyncProgress{Stage: "finishing"})

	if err := s.sweep(ctx, cfg, rootPath, visited, dryRun, &counters); err != nil {
		return counters, summarize(tempi, loudness), err
	}

	if cfg.Policies.UnsynchronizedTracks == Find {
		if err := s.gate.Read(ctx, func(ctx context.Context) error {
			n, err := s.db.CountUnsynchronizedTracks(cfg.CollectionUID)
			counters.UnsynchronizedTracks = n
			return err
		}); err != nil {
			return counters, summarize(tempi, loudness), err
		}
	}

	s.publish(client.SyncProgress{Stage: "idle"})
	return counters, summarize(tempi, loudness), nil
}

func (s *Synchronizer) publish(p client.SyncProgress) {
	s.progress.Set(p)
}

// syncFile imports one file and replaces it into the store by content
// path, honoring Modified sync_mode's digest short-circuit. The returned
// *importer.Result is non-nil only when the file was actually decoded this
// run, for the caller's batch tempo/loudness summary.
func (s *Synchronizer) syncFile(ctx context.Context, cfg Config, absPath, contentPath string, dryRun bool) (store.WriteOutcome, *importer.Result, error) {
	info, err := os.Stat(absPath)
	if err != nil {
		return store.NotCreated, nil, meridianerr.Wrap(meridianerr.Io, "sync: stat file", err)
	}

	digest, err := digestFile(absPath)
	if err != nil {
		return store.NotCreated, nil, meridianerr.Wrap(meridianerr.Io, "sync: digest file", err)
	}

	if cfg.Policies.SyncMode == Modified {
		var existingDigest []byte
		var found bool
		if err := s.gate.Read(ctx, func(ctx context.Context) error {
			var err error
			existingDigest, _, found, err = s.db.FindMediaSourceDigest(cfg.CollectionUID, contentPath)
			return err
		}); err != nil {
			return store.NotCreated, nil, err
		}
		if found && digestsEqual(existingDigest, digest) {
			return store.Unchanged, nil, nil
		}
	}

	f, err := os.Open(absPath)
	if err != nil {
		return store.NotCreated, nil, meridianerr.Wrap(meridianerr.Io, "sync: open file", err)
	}
	defer f.Close()

	result, err := importer.Import(f, info.Size(), contentTypeFor(absPath), cfg.ImportFlags)
	if err != nil {
		return store.NotCreated, nil, err
	}
	result.MediaSource.ContentPath = contentPath
	result.MediaSource.ContentDigest = digest

	if dryRun {
		return planOutcome(cfg, s, contentPath, result.MediaSource), &result, nil
	}

	var header domain.EntityHeader
	var outcome store.WriteOutcome
	err = s.gate.Write(ctx, func(ctx context.Context) error {
		var err error
		header, outcome, err = s.db.ReplaceByPath(cfg.CollectionUID, store.CreateOrUpdate, result.MediaSource, result.Track, true, time.Now().UTC())
		return err
	})
	if err != nil {
		return store.NotCreated, nil, err
	}
	if outcome == store.Created || outcome == store.Updated {
		_ = s.db.MarkTrackSynchronized(header.UID, header.Revision)
	}
	return outcome, &result, nil
}

// planOutcome computes what syncFile would have done without writing,
// for Run's dry-run mode.
func planOutcome(cfg Config, s *Synchronizer, contentPath string, ms domain.MediaSource) store.WriteOutcome {
	existingDigest, _, found, err := s.db.FindMediaSourceDigest(cfg.CollectionUID, contentPath)
	if err != nil || !found {
		return store.Created
	}
	if digestsEqual(existingDigest, ms.ContentDigest) {
		return store.Unchanged
	}
	return store.Updated
}

// sweep reconciles media sources the walk never visited: a path whose file
// no longer exists is orphaned; a path that exists but fell outside this
// run's scope (e.g. a sub-root sync) is untracked.
//
// TODO: an orphaned path is purged-and-recreated rather than reconciled by
// content digest against some other path the walk did visit (which would
// preserve play counters across a plain file move). Needs a digest index
// over the current walk's results before it's worth doing.
func (s *Synchronizer) sweep(ctx context.Context, cfg Config, rootPath string, visited map[string]bool, dryRun bool, counters *Counters) error {
	var paths []string
	if err := s.gate.Read(ctx, func(ctx context.Context) error {
		var err error
		paths, err = s.db.ListMediaSourcePaths(cfg.CollectionUID)
		return err
	}); err != nil {
		return err
	}

	for _, p := range paths {
		if visited[p] {
			continue
		}

		abs := filepath.Join(rootPath, filepath.FromSlash(p))
		_, statErr := os.Stat(abs)
		orphaned := errors.Is(statErr, fs.ErrNotExist)

		var disposition Disposition
		switch {
		case orphaned:
			disposition = cfg.Policies.OrphanedMediaSources
		default:
			if cfg.Policies.UntrackedFiles == Find {
				counters.UntrackedFiles++
			}
			disposition = cfg.Policies.UntrackedMediaSources
		}

		if disposition != Purge || dryRun {
			continue
		}

		if err := s.gate.Write(ctx, func(ctx context.Context) error {
			return s.db.DeleteMediaSourceByPath(cfg.CollectionUID, p)
		}); err != nil {
			return err
		}
		if orphaned {
			counters.OrphanedPurged++
		} else {
			counters.UntrackedPurged++
		}
	}

	return nil
}

func (s *Synchronizer) walk(root string, maxDepth *int) ([]string, error) {
	rootDepth := strings.Count(filepath.Clean(root), string(filepath.Separator))
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries, keep walking
		}
		if d.IsDir() {
			if maxDepth != nil {
				depth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
				if depth > *maxDepth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// digestFile hashes the first 64KB of the file for speed, matching the
// identity-not-integrity purpose this digest serves: detecting whether a
// previously-imported file has changed.
func digestFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.CopyN(h, f, 64*1024); err != nil && err != io.EOF {
		return nil, err
	}
	return h.Sum(nil), nil
}

func digestsEqual(a, b []byte) bool {
	return len(a) > 0 && len(b) > 0 && string(a) == string(b)
}

func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".wav":
		return "audio/wav"
	case ".aiff", ".aif":
		return "audio/aiff"
	case ".m4a", ".mp4":
		return "audio/mp4"
	case ".ogg":
		return "audio/vorbis"
	case ".opus":
		return "audio/opus"
	default:
		return "application/octet-stream"
	}
}

// localPathFromFileURL converts a file:// root URL into a local filesystem
// path. Non-file schemes are rejected: the synchronizer only ever walks a
// local directory tree.
func localPathFromFileURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme != "" && u.Scheme != "file" {
		return "", errors.New("sync: unsupported root url scheme " + u.Scheme)
	}
	if u.Path != "" {
		return filepath.FromSlash(u.Path), nil
	}
	return filepath.FromSlash(u.Opaque), nil
}

package client

import (
	"strings"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
)

// CollectionState is the active-collection sum type.
type CollectionState interface{ isCollectionState() }

// Void is the state before any collection has been chosen.
type Void struct{}

func (Void) isCollectionState() {}

// LoadOutcome is the terminal result of a LoadingFromDatabase attempt.
type LoadOutcome interface{ isLoadOutcome() }

type LoadSucceeded struct {
	Entity domain.EntityWithBody[domain.Collection]
}

func (LoadSucceeded) isLoadOutcome() {}

type LoadFailed struct{ Error error }

func (LoadFailed) isLoadOutcome() {}

type LoadEntityNotFound struct{}

func (LoadEntityNotFound) isLoadOutcome() {}

// LoadingFromDatabase is the state while a stored collection is being
// fetched by UID.
type LoadingFromDatabase struct {
	PendingSince time.Time
	Outcome      LoadOutcome // nil while Pending
}

func (LoadingFromDatabase) isCollectionState() {}

// RestoreOutcome is the terminal result of a RestoringFromMusicDirectory
// attempt.
type RestoreOutcome interface{ isRestoreOutcome() }

type RestoreSucceeded struct {
	Entity domain.EntityWithBody[domain.Collection]
	Kind   string
}

func (RestoreSucceeded) isRestoreOutcome() {}

type RestoreFailed struct{ Error error }

func (RestoreFailed) isRestoreOutcome() {}

// RestoreNestedDirectoriesConflict reports that the candidate music
// directory has existing collections nested under it (descendants) with
// no enclosing ancestor: the caller must resolve the ambiguity before a
// new collection can be created.
type RestoreNestedDirectoriesConflict struct {
	Candidates []CollectionRoot
}

func (RestoreNestedDirectoriesConflict) isRestoreOutcome() {}

// RestoringFromMusicDirectory is the state while a music directory is
// being reconciled against existing collections.
type RestoringFromMusicDirectory struct {
	PendingSince time.Time
	Outcome      RestoreOutcome // nil while Pending
}

func (RestoringFromMusicDirectory) isCollectionState() {}

// SyncProgress mirrors the directory synchronizer's single-slot progress
// snapshot (spec.md §4.7); the synchronizer itself lives in
// internal/sync and feeds this via UpdateSyncProgress.
type SyncProgress struct {
	Stage    string // "idle", "scanning", "fetching_files", "importing", "finishing"
	Entries  int
	Files    int
	Imported int
	Total    *int
}

// Synchronizing is the state while a directory sync runs against the
// active collection.
type Synchronizing struct {
	PendingSince time.Time
	Progress     SyncProgress
	Abort        *AbortHandle
}

func (Synchronizing) isCollectionState() {}

// CollectionSummary is the lightweight rollup shown alongside a Ready
// collection (track/playlist counts); computed by the caller and handed
// in, since this package has no store dependency of its own.
type CollectionSummary struct {
	TrackCount    int
	PlaylistCount int
}

// Ready is the settled state: a collection is loaded and not being
// modified.
type Ready struct {
	Entity  domain.EntityWithBody[domain.Collection]
	Summary CollectionSummary
}

func (Ready) isCollectionState() {}

// CollectionRoot is a minimal view of an existing collection used by the
// ancestor/descendant reconciliation in ReconcileMusicDirectory.
type CollectionRoot struct {
	UID     entityuid.UID
	RootURL string
}

// ActiveCollection is the active-collection observable state machine.
type ActiveCollection struct {
	cell *Cell[CollectionState]
}

// NewActiveCollection constructs an ActiveCollection starting at Void.
func NewActiveCollection() *ActiveCollection {
	return &ActiveCollection{cell: NewCell[CollectionState](Void{})}
}

// Snapshot returns the current state.
func (ac *ActiveCollection) Snapshot() CollectionState { return ac.cell.Get() }

// Changed returns a channel that closes on the next state transition.
func (ac *ActiveCollection) Changed() <-chan struct{} { return ac.cell.Changed() }

// BeginLoad transitions to LoadingFromDatabase{Pending}. Rejected while
// Synchronizing is in progress.
func (ac *ActiveCollection) BeginLoad(since time.Time) bool {
	_, ok := ac.cell.CompareAndSet(func(s CollectionState) (CollectionState, bool) {
		if _, syncing := s.(Synchronizing); syncing {
			return s, false
		}
		return LoadingFromDatabase{PendingSince: since}, true
	})
	return ok
}

// FinishLoad delivers a LoadingFromDatabase outcome under the
// continuation check (the pending epoch must still match).
func (ac *ActiveCollection) FinishLoad(since time.Time, outcome LoadOutcome) bool {
	_, ok := ac.cell.CompareAndSet(func(s CollectionState) (CollectionState, bool) {
		loading, isLoading := s.(LoadingFromDatabase)
		if !isLoading || !loading.PendingSince.Equal(since) || loading.Outcome != nil {
			return s, false
		}
		if succeeded, ok := outcome.(LoadSucceeded); ok {
			return Ready{Entity: succeeded.Entity}, true
		}
		return LoadingFromDatabase{PendingSince: since, Outcome: outcome}, true
	})
	return ok
}

// BeginRestore transitions to RestoringFromMusicDirectory{Pending}.
// Rejected while Synchronizing is in progress, matching the spec's rule
// that updating the music directory mid-sync is rejected.
func (ac *ActiveCollection) BeginRestore(since time.Time) bool {
	_, ok := ac.cell.CompareAndSet(func(s CollectionState) (CollectionState, bool) {
		if _, syncing := s.(Synchronizing); syncing {
			return s, false
		}
		return RestoringFromMusicDirectory{PendingSince: since}, true
	})
	return ok
}

// FinishRestore delivers a RestoringFromMusicDirectory outcome under the
// continuation check.
func (ac *ActiveCollection) FinishRestore(since time.Time, outcome RestoreOutcome) bool {
	_, ok := ac.cell.CompareAndSet(func(s CollectionState) (CollectionState, bool) {
		restoring, isRestoring := s.(RestoringFromMusicDirectory)
		if !isRestoring || !restoring.PendingSince.Equal(since) || restoring.Outcome != nil {
			return s, false
		}
		if succeeded, ok := outcome.(RestoreSucceeded); ok {
			return Ready{Entity: succeeded.Entity}, true
		}
		return RestoringFromMusicDirectory{PendingSince: since, Outcome: outcome}, true
	})
	return ok
}

// normalizeRoot strips a trailing slash so prefix comparisons treat
// "file:///music" and "file:///music/" identically.
func normalizeRoot(url string) string {
	return strings.TrimSuffix(url, "/")
}

// isAncestor reports whether ancestor is root's directory, or a parent
// directory of root.
func isAncestor(ancestor, root string) bool {
	a, r := normalizeRoot(ancestor), normalizeRoot(root)
	return a == r || strings.HasPrefix(r, a+"/")
}

// ReconcileMusicDirectory implements the ancestor/descendant search from
// spec.md §4.8: entering RestoringFromMusicDirectory searches for an
// existing collection whose root URL is an ancestor of musicDirURL
// (closest/longest match wins). If none exists and a descendant does,
// the candidates are reported as a conflict; otherwise the caller should
// create a fresh collection rooted at musicDirURL.
func ReconcileMusicDirectory(existing []CollectionRoot, musicDirURL string) (matched *CollectionRoot, conflict []CollectionRoot) {
	var best *CollectionRoot
	bestLen := -1
	var descendants []CollectionRoot

	for _, c := range existing {
		switch {
		case isAncestor(c.RootURL, musicDirURL):
			if l := len(normalizeRoot(c.RootURL)); l > bestLen {
				cc := c
				best = &cc
				bestLen = l
			}
		case isAncestor(musicDirURL, c.RootURL):
			descendants = append(descendants, c)
		}
	}

	if best != nil {
		return best, nil
	}
	if len(descendants) > 0 {
		return nil, descendants
	}
	return nil, nil
}

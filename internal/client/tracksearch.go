package client

import (
	"context"
	"reflect"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/gatekeeper"
	"github.com/cartomix/meridian/internal/meridianerr"
	"github.com/cartomix/meridian/internal/search"
)

// SearchParams bundles the filter and sort order a track search runs
// with. Equal compares by value, treating nil and empty sort slices as
// equal.
type SearchParams struct {
	Filter search.Filter
	Sorts  []search.Sort
}

func (p SearchParams) equal(other SearchParams) bool {
	return reflect.DeepEqual(p.Filter, other.Filter) &&
		((len(p.Sorts) == 0 && len(other.Sorts) == 0) || reflect.DeepEqual(p.Sorts, other.Sorts))
}

// FetchState is the track-search fetch sum type.
type FetchState interface{ isFetchState() }

// Initial is the fetch state before any search has run.
type Initial struct{}

func (Initial) isFetchState() {}

// Pending is a fetch in flight. FetchedBefore is the memo of whatever
// was previously fetched (nil on the very first fetch); Since is the
// pending epoch used by the continuation check.
type Pending struct {
	FetchedBefore *Memo
	Since         time.Time
	Abort         *AbortHandle
}

func (Pending) isFetchState() {}

// FetchReady holds a completed fetch's results.
type FetchReady struct {
	FetchedEntities []search.Hit
	CanFetchMore    bool
	Chain           []OffsetHash
}

func (FetchReady) isFetchState() {}

// Failed holds a fetch's terminal error.
type Failed struct {
	FetchedBefore *Memo
	Error         error
}

func (Failed) isFetchState() {}

// AbortHandle lets a caller cancel an in-flight fetch. Aborting after the
// fetch has already completed is a no-op.
type AbortHandle struct {
	cancel context.CancelFunc
}

// Abort cancels the fetch this handle was returned for.
func (h *AbortHandle) Abort() {
	if h != nil {
		h.cancel()
	}
}

// TrackSearchState is the full observable snapshot.
type TrackSearchState struct {
	DefaultParams SearchParams
	CollectionUID *entityuid.UID
	Params        SearchParams
	Fetch         FetchState
}

// pendingContext is the continuation token a delivered result is checked
// against: the pending epoch, the context (collection + params) and the
// fetched-before memo must all still match, or the result is stale and
// discarded.
type pendingContext struct {
	since         time.Time
	collectionUID *entityuid.UID
	params        SearchParams
	fetchedBefore *Memo
}

func sameCollectionUID(a, b *entityuid.UID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameMemo(a, b *Memo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// TrackSearch is the track-search observable state machine: a single
// Cell whose transitions run fetches through the gatekeeper and discard
// stale results via a continuation check.
type TrackSearch struct {
	cell *Cell[TrackSearchState]
	gate *gatekeeper.Gatekeeper
	db   search.Querier
}

// NewTrackSearch constructs a TrackSearch bound to gate and db, with the
// initial and default params both set to defaultParams.
func NewTrackSearch(gate *gatekeeper.Gatekeeper, db search.Querier, defaultParams SearchParams) *TrackSearch {
	return &TrackSearch{
		cell: NewCell(TrackSearchState{
			DefaultParams: defaultParams,
			Params:        defaultParams,
			Fetch:         Initial{},
		}),
		gate: gate,
		db:   db,
	}
}

// Snapshot returns the current state.
func (ts *TrackSearch) Snapshot() TrackSearchState { return ts.cell.Get() }

// Changed returns a channel that closes on the next state transition.
func (ts *TrackSearch) Changed() <-chan struct{} { return ts.cell.Changed() }

// SetContext changes the active collection and/or params, resetting the
// fetch to Initial. Rejected (returns false) while a fetch is Pending,
// matching the spec's "updating params while a fetch runs is rejected"
// rule for the sibling active-collection machine.
func (ts *TrackSearch) SetContext(collectionUID *entityuid.UID, params SearchParams) bool {
	_, ok := ts.cell.CompareAndSet(func(s TrackSearchState) (TrackSearchState, bool) {
		if _, pending := s.Fetch.(Pending); pending {
			return s, false
		}
		s.CollectionUID = collectionUID
		s.Params = params
		s.Fetch = Initial{}
		return s, true
	})
	return ok
}

// SpawnFetchMore starts a fetch of up to fetchLimit additional entities
// beyond whatever is already fetched, transitioning Fetch to Pending
// immediately and delivering the result asynchronously. It returns the
// AbortHandle for the spawned fetch, or nil if a fetch is already
// Pending.
func (ts *TrackSearch) SpawnFetchMore(ctx context.Context, fetchLimit int) *AbortHandle {
	snapshot := ts.cell.Get()
	if _, pending := snapshot.Fetch.(Pending); pending {
		return nil
	}

	prevCount := 0
	var fetchedBefore *Memo
	var priorEntities []search.Hit
	if ready, ok := snapshot.Fetch.(FetchReady); ok {
		prevCount = len(ready.FetchedEntities)
		priorEntities = ready.FetchedEntities
		memo := MemoOf(ready.Chain)
		fetchedBefore = &memo
	}

	since := time.Now()
	fetchCtx, cancel := context.WithCancel(ctx)
	handle := &AbortHandle{cancel: cancel}

	pc := pendingContext{
		since:         since,
		collectionUID: snapshot.CollectionUID,
		params:        snapshot.Params,
		fetchedBefore: fetchedBefore,
	}

	_, ok := ts.cell.CompareAndSet(func(s TrackSearchState) (TrackSearchState, bool) {
		s.Fetch = Pending{FetchedBefore: fetchedBefore, Since: since, Abort: handle}
		return s, true
	})
	if !ok {
		cancel()
		return nil
	}

	go ts.runFetch(fetchCtx, pc, prevCount, priorEntities, fetchLimit)
	return handle
}

func (ts *TrackSearch) runFetch(ctx context.Context, pc pendingContext, prevCount int, priorEntities []search.Hit, fetchLimit int) {
	offset := prevCount
	var hits []search.Hit
	err := ts.gate.Read(ctx, func(ctx context.Context) error {
		var runErr error
		hits, runErr = search.Run(ts.db, pc.params.Filter, pc.params.Sorts, search.Pagination{Limit: &fetchLimit, Offset: &offset})
		return runErr
	})
	ts.deliver(pc, priorEntities, hits, fetchLimit, err)
}

// deliver applies a fetch's result under the continuation check: if
// the cell's pending marker no longer matches pc, the result is stale
// and silently discarded.
func (ts *TrackSearch) deliver(pc pendingContext, priorEntities []search.Hit, hits []search.Hit, fetchLimit int, runErr error) {
	ts.cell.CompareAndSet(func(s TrackSearchState) (TrackSearchState, bool) {
		pending, ok := s.Fetch.(Pending)
		if !ok || !pending.Since.Equal(pc.since) ||
			!sameCollectionUID(s.CollectionUID, pc.collectionUID) ||
			!s.Params.equal(pc.params) ||
			!sameMemo(fetchedBeforeOf(pending), pc.fetchedBefore) {
			return s, false // stale: discard
		}

		switch {
		case meridianerr.Is(runErr, meridianerr.Cancelled):
			s.Fetch = Initial{}
		case runErr != nil:
			var before *Memo
			if pc.fetchedBefore != nil {
				before = pc.fetchedBefore
			}
			s.Fetch = Failed{FetchedBefore: before, Error: runErr}
		default:
			entities := append(append([]search.Hit{}, priorEntities...), hits...)
			headers := make([]domain.EntityHeader, len(entities))
			for i, hit := range entities {
				headers[i] = domain.EntityHeader{UID: hit.UID, Revision: hit.Revision}
			}
			s.Fetch = FetchReady{
				FetchedEntities: entities,
				CanFetchMore:    len(hits) == fetchLimit,
				Chain:           Chain(headers),
			}
		}
		return s, true
	})
}

func fetchedBeforeOf(p Pending) *Memo { return p.FetchedBefore }

package domain

import "github.com/cartomix/meridian/internal/entityuid"

// EntityHeader identifies a mutable entity and its optimistic-concurrency
// revision.
type EntityHeader struct {
	UID      entityuid.UID
	Revision int64
}

// NewEntityHeader mints a header for a freshly created entity: a random
// UID at revision 1.
func NewEntityHeader() EntityHeader {
	return EntityHeader{UID: entityuid.New(), Revision: 1}
}

// NextRevision returns a header for the same entity bumped to the next
// revision, as every successful update must do.
func (h EntityHeader) NextRevision() EntityHeader {
	return EntityHeader{UID: h.UID, Revision: h.Revision + 1}
}

// EntityWithBody pairs an entity header with its materialized body.
type EntityWithBody[T any] struct {
	Header EntityHeader
	Body   T
}

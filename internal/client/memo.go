package client

// Memo is a snapshot of a fetched-entities list used to compute
// append-vs-replace diffs without re-fetching or re-hashing the whole
// list: just the count and the hash chain's last link.
type Memo struct {
	Count    int
	LastHash OffsetHash
}

// MemoOf builds a Memo from a hash chain (the output of Chain).
func MemoOf(chain []OffsetHash) Memo {
	if len(chain) == 0 {
		return Memo{}
	}
	return Memo{Count: len(chain), LastHash: chain[len(chain)-1]}
}

// FetchedEntitiesDiff distinguishes how a new fetched list relates to the
// memo's list.
type FetchedEntitiesDiff int

const (
	// Replace means the new list is not a superset-by-prefix of the
	// memoized list: the caller should discard what it had and render
	// the new list from scratch.
	Replace FetchedEntitiesDiff = iota
	// Append means the new list agrees with the memoized list up to the
	// memoized count: the caller can keep its rendered prefix and append
	// the remainder.
	Append
)

// MemoDiff is the result of comparing a caller-held Memo against a fresh
// hash chain.
type MemoDiff struct {
	Unchanged       bool
	FetchedEntities FetchedEntitiesDiff
}

// UpdateMemoDelta compares old against the hash chain of a freshly
// fetched list and reports how the caller should reconcile its view.
func UpdateMemoDelta(old Memo, freshChain []OffsetHash) MemoDiff {
	fresh := MemoOf(freshChain)
	if old.Count == fresh.Count && old.LastHash == fresh.LastHash {
		return MemoDiff{Unchanged: true}
	}
	if old.Count > 0 && old.Count <= len(freshChain) && freshChain[old.Count-1] == old.LastHash {
		return MemoDiff{FetchedEntities: Append}
	}
	if old.Count == 0 {
		return MemoDiff{FetchedEntities: Append}
	}
	return MemoDiff{FetchedEntities: Replace}
}

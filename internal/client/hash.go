package client

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/cartomix/meridian/internal/domain"
)

// OffsetHash is one link of the fetched-list hash chain: h_{i+1} =
// H(h_i, entity_header_i), seeded with 0. A consumer holding the hash at
// some offset can tell whether a freshly fetched list's hash at that same
// offset agrees (an append) or diverges (a replace).
//
// See DESIGN.md for why this chains with FNV-1a rather than the
// HighwayHash64 named in the originating design: no example in this
// module's corpus imports any third-party hash library, and FNV-1a gives
// the same deterministic-seeded-chain property this needs.
type OffsetHash uint64

// ChainSeed is h_0.
const ChainSeed OffsetHash = 0

// Next extends the chain with header, returning h_{i+1}.
func (h OffsetHash) Next(header domain.EntityHeader) OffsetHash {
	sum := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(h))
	sum.Write(buf[:])
	sum.Write(header.UID[:])
	binary.BigEndian.PutUint64(buf[:], uint64(header.Revision))
	sum.Write(buf[:])
	return OffsetHash(sum.Sum64())
}

// Chain computes every link of the hash chain over headers, starting
// from ChainSeed. Chain(headers)[i] is the hash after the first i+1
// headers; an empty input yields an empty chain.
func Chain(headers []domain.EntityHeader) []OffsetHash {
	chain := make([]OffsetHash, len(headers))
	h := ChainSeed
	for i, header := range headers {
		h = h.Next(header)
		chain[i] = h
	}
	return chain
}

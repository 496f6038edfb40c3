// Package entityuid implements the opaque 192-bit entity identifier used
// for every mutable entity in the catalog (collections, media sources,
// tracks, playlists). The identifier has a URL-safe Base64 string form.
package entityuid

import (
	"encoding/base64"
	"errors"

	"github.com/google/uuid"
)

// Size is the width of an entity UID in bytes (192 bits).
const Size = 24

// UID is an opaque, comparable, content-free identifier.
type UID [Size]byte

// Nil is the zero-value UID used before an entity is created.
var Nil UID

// New generates a fresh random UID from two independent UUIDv4 draws: all
// 16 bytes of the first and the first 8 bytes of the second. The UUIDv4
// version and variant bits are fixed, so fewer than the full 192 bits are
// random (about 182).
func New() UID {
	var id UID
	a := uuid.New()
	b := uuid.New()
	copy(id[:16], a[:])
	copy(id[16:], b[:8])
	return id
}

// String renders the UID as URL-safe, unpadded Base64.
func (id UID) String() string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// IsNil reports whether id is the zero value.
func (id UID) IsNil() bool {
	return id == Nil
}

// Parse decodes a URL-safe Base64 string produced by String.
func Parse(s string) (UID, error) {
	var id UID
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != Size {
		return id, errors.New("entityuid: decoded length mismatch")
	}
	copy(id[:], b)
	return id, nil
}

// MarshalText implements encoding.TextMarshaler.
func (id UID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *UID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

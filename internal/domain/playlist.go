package domain

import (
	"time"

	"github.com/cartomix/meridian/internal/entityuid"
)

// PlaylistItemKind distinguishes a track reference from a visual separator.
type PlaylistItemKind int

const (
	PlaylistItemSeparator PlaylistItemKind = iota
	PlaylistItemTrack
)

// PlaylistItem is either a Separator or a reference to a Track by UID.
type PlaylistItem struct {
	Kind    PlaylistItemKind
	TrackUID entityuid.UID
}

// PlaylistEntry is one ordered row of a Playlist.
type PlaylistEntry struct {
	Ordering int64
	AddedAt  time.Time
	Title    string
	Notes    string
	Item     PlaylistItem
}

// Playlist is a named ordered list of entries.
type Playlist struct {
	Title          string
	Kind           string
	Color          *uint32
	CollectionUID  *entityuid.UID
}

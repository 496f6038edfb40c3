package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// CreatePlaylist inserts a new, empty Playlist and returns its header.
func (d *DB) CreatePlaylist(body domain.Playlist) (domain.EntityHeader, error) {
	header := domain.NewEntityHeader()
	var collectionRowID any
	if body.CollectionUID != nil {
		id, err := d.collectionRowID(d.db, *body.CollectionUID)
		if err != nil {
			return domain.EntityHeader{}, err
		}
		collectionRowID = id
	}
	_, err := d.db.Exec(`
		INSERT INTO playlist (uid, revision, collection_id, title, kind, color)
		VALUES (?, ?, ?, ?, ?, ?)
	`, header.UID.String(), header.Revision, collectionRowID, body.Title, body.Kind, nullUint32(body.Color))
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create playlist", err)
	}
	return header, nil
}

// UpdatePlaylist updates a Playlist's own fields (not its entries),
// enforcing the optimistic-concurrency check against header.Revision.
func (d *DB) UpdatePlaylist(header domain.EntityHeader, body domain.Playlist) (domain.EntityHeader, error) {
	next := header.NextRevision()
	var collectionRowID any
	if body.CollectionUID != nil {
		id, err := d.collectionRowID(d.db, *body.CollectionUID)
		if err != nil {
			return domain.EntityHeader{}, err
		}
		collectionRowID = id
	}
	res, err := d.db.Exec(`
		UPDATE playlist SET revision = ?, collection_id = ?, title = ?, kind = ?, color = ?
		WHERE uid = ? AND revision = ?
	`, next.Revision, collectionRowID, body.Title, body.Kind, nullUint32(body.Color), header.UID.String(), header.Revision)
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update playlist", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update playlist", err)
	}
	if n == 0 {
		return domain.EntityHeader{}, meridianerr.New(meridianerr.Conflict, "store: playlist revision mismatch")
	}
	return next, nil
}

// LoadPlaylist fetches a Playlist's own fields (not its entries) by UID.
func (d *DB) LoadPlaylist(uid entityuid.UID) (domain.EntityWithBody[domain.Playlist], error) {
	row := d.db.QueryRow(`
		SELECT p.revision, p.title, p.kind, p.color, c.uid
		FROM playlist p LEFT JOIN collection c ON c.row_id = p.collection_id
		WHERE p.uid = ?
	`, uid.String())

	var revision int64
	var title, kind string
	var color sql.NullInt64
	var collectionUID sql.NullString
	if err := row.Scan(&revision, &title, &kind, &color, &collectionUID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EntityWithBody[domain.Playlist]{}, meridianerr.New(meridianerr.NotFound, "store: playlist not found")
		}
		return domain.EntityWithBody[domain.Playlist]{}, meridianerr.Wrap(meridianerr.Io, "store: load playlist", err)
	}

	body := domain.Playlist{Title: title, Kind: kind, Color: uint32Ptr(color)}
	if collectionUID.Valid {
		parsed, err := entityuid.Parse(collectionUID.String)
		if err != nil {
			return domain.EntityWithBody[domain.Playlist]{}, meridianerr.Wrap(meridianerr.InvalidData, "store: parse collection uid", err)
		}
		body.CollectionUID = &parsed
	}

	return domain.EntityWithBody[domain.Playlist]{
		Header: domain.EntityHeader{UID: uid, Revision: revision},
		Body:   body,
	}, nil
}

func (d *DB) collectionRowID(q querier, uid entityuid.UID) (int64, error) {
	var id int64
	if err := q.QueryRow(`SELECT row_id FROM collection WHERE uid = ?`, uid.String()).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, meridianerr.New(meridianerr.NotFound, "store: collection not found")
		}
		return 0, meridianerr.Wrap(meridianerr.Io, "store: lookup collection", err)
	}
	return id, nil
}

func (d *DB) playlistRowID(q querier, uid entityuid.UID) (int64, error) {
	var id int64
	if err := q.QueryRow(`SELECT row_id FROM playlist WHERE uid = ?`, uid.String()).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, meridianerr.New(meridianerr.NotFound, "store: playlist not found")
		}
		return 0, meridianerr.Wrap(meridianerr.Io, "store: lookup playlist", err)
	}
	return id, nil
}

// entryOrderings returns the min and max ordering of playlistRowID's
// entries, plus whether any entry exists.
func entryOrderings(q querier, playlistRowID int64) (min, max int64, has bool, err error) {
	var minN, maxN sql.NullInt64
	row := q.QueryRow(`SELECT MIN(ordering), MAX(ordering) FROM playlist_entry WHERE playlist_id = ?`, playlistRowID)
	if err := row.Scan(&minN, &maxN); err != nil {
		return 0, 0, false, meridianerr.Wrap(meridianerr.Io, "store: scan playlist orderings", err)
	}
	if !minN.Valid {
		return 0, 0, false, nil
	}
	return minN.Int64, maxN.Int64, true, nil
}

func insertEntry(tx *sql.Tx, playlistRowID int64, ordering int64, addedAt time.Time, entry domain.PlaylistEntry) error {
	var trackUID any
	if entry.Item.Kind == domain.PlaylistItemTrack {
		trackUID = entry.Item.TrackUID.String()
	}
	_, err := tx.Exec(`
		INSERT INTO playlist_entry (playlist_id, ordering, added_at, title, notes, item_kind, track_uid)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, playlistRowID, ordering, addedAt, entry.Title, entry.Notes, int(entry.Item.Kind), trackUID)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: insert playlist entry", err)
	}
	return nil
}

// AppendEntries adds entries at the end of the playlist, assigning orderings
// max_ordering+1, +2, … (starting at 0 for an empty playlist).
func (d *DB) AppendEntries(playlistUID entityuid.UID, entries []domain.PlaylistEntry, addedAt time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: append entries", err)
	}
	defer tx.Rollback()

	rowID, err := d.playlistRowID(tx, playlistUID)
	if err != nil {
		return err
	}
	_, maxOrd, has, err := entryOrderings(tx, rowID)
	if err != nil {
		return err
	}

	next := int64(0)
	if has {
		next = maxOrd + 1
	}
	for i, e := range entries {
		if err := insertEntry(tx, rowID, next+int64(i), addedAt, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// PrependEntries adds entries before the start of the playlist, assigning
// orderings min_ordering-N, …, min_ordering-1.
func (d *DB) PrependEntries(playlistUID entityuid.UID, entries []domain.PlaylistEntry, addedAt time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: prepend entries", err)
	}
	defer tx.Rollback()

	rowID, err := d.playlistRowID(tx, playlistUID)
	if err != nil {
		return err
	}
	minOrd, _, has, err := entryOrderings(tx, rowID)
	if err != nil {
		return err
	}

	n := int64(len(entries))
	base := -n
	if has {
		base = minOrd - n
	}
	for i, e := range entries {
		if err := insertEntry(tx, rowID, base+int64(i), addedAt, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// InsertBeforeIndex inserts entries before the entry currently at position
// k (0-based, by ordering), following the gap-tolerant rule from the
// ordering model: if the gap between the neighboring orderings is wide
// enough the new entries slot directly into it; otherwise every entry from
// index k onward is shifted forward (processed in descending ordering to
// avoid transient UNIQUE collisions) before the new entries are inserted.
func (d *DB) InsertBeforeIndex(playlistUID entityuid.UID, k int, entries []domain.PlaylistEntry, addedAt time.Time) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: insert entries", err)
	}
	defer tx.Rollback()

	rowID, err := d.playlistRowID(tx, playlistUID)
	if err != nil {
		return err
	}

	rows, err := tx.Query(`SELECT row_id, ordering FROM playlist_entry WHERE playlist_id = ? ORDER BY ordering`, rowID)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list playlist entries", err)
	}
	type row struct {
		rowID    int64
		ordering int64
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowID, &r.ordering); err != nil {
			rows.Close()
			return meridianerr.Wrap(meridianerr.Io, "store: scan playlist entry", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list playlist entries", err)
	}

	n := int64(len(entries))
	if k > len(all) {
		k = len(all)
	}
	var p int64 = -1
	if k > 0 && k-1 < len(all) {
		p = all[k-1].ordering
	}
	var q int64
	hasNext := k < len(all)
	if hasNext {
		q = all[k].ordering
	}

	if !hasNext {
		// Inserting at (or past) the tail is an append at orderings p+1..p+n.
		for i, e := range entries {
			if err := insertEntry(tx, rowID, p+1+int64(i), addedAt, e); err != nil {
				return err
			}
		}
		return tx.Commit()
	}

	if q-p > n {
		for i, e := range entries {
			if err := insertEntry(tx, rowID, p+1+int64(i), addedAt, e); err != nil {
				return err
			}
		}
		return tx.Commit()
	}

	shift := n + (q - p)
	for i := len(all) - 1; i >= k; i-- {
		if _, err := tx.Exec(`UPDATE playlist_entry SET ordering = ordering + ? WHERE row_id = ?`, shift, all[i].rowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: shift playlist entries", err)
		}
	}
	for i, e := range entries {
		if err := insertEntry(tx, rowID, p+1+int64(i), addedAt, e); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RemoveRange deletes the entries occupying index range [a, b) by ordering.
func (d *DB) RemoveRange(playlistUID entityuid.UID, a, b int) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: remove entries", err)
	}
	defer tx.Rollback()

	rowID, err := d.playlistRowID(tx, playlistUID)
	if err != nil {
		return err
	}
	if b <= a {
		return tx.Commit()
	}

	rows, err := tx.Query(`
		SELECT row_id FROM playlist_entry WHERE playlist_id = ? ORDER BY ordering LIMIT ? OFFSET ?
	`, rowID, b-a, a)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list entries to remove", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return meridianerr.Wrap(meridianerr.Io, "store: scan entry id", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list entries to remove", err)
	}

	for _, id := range ids {
		if _, err := tx.Exec(`DELETE FROM playlist_entry WHERE row_id = ?`, id); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: delete playlist entry", err)
		}
	}
	return tx.Commit()
}

// ReverseAll reverses the order of every entry in the playlist. When the
// minimum and maximum orderings have opposite signs, negating every
// ordering in one statement reverses the sequence with no risk of a
// transient UNIQUE collision. Otherwise every entry is first moved above
// the current range (by max-min+1), then orderings are reassigned
// descending from the old max, walked in ascending old-order, so that no
// write lands on an ordering another entry still occupies.
func (d *DB) ReverseAll(playlistUID entityuid.UID) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: reverse playlist", err)
	}
	defer tx.Rollback()

	rowID, err := d.playlistRowID(tx, playlistUID)
	if err != nil {
		return err
	}
	minOrd, maxOrd, has, err := entryOrderings(tx, rowID)
	if err != nil {
		return err
	}
	if !has {
		return tx.Commit()
	}

	if (minOrd < 0) != (maxOrd < 0) {
		if _, err := tx.Exec(`UPDATE playlist_entry SET ordering = -ordering WHERE playlist_id = ?`, rowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: negate playlist orderings", err)
		}
		return tx.Commit()
	}

	rows, err := tx.Query(`SELECT row_id, ordering FROM playlist_entry WHERE playlist_id = ? ORDER BY ordering`, rowID)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list playlist entries", err)
	}
	type row struct {
		rowID    int64
		ordering int64
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.rowID, &r.ordering); err != nil {
			rows.Close()
			return meridianerr.Wrap(meridianerr.Io, "store: scan playlist entry", err)
		}
		all = append(all, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list playlist entries", err)
	}

	if _, err := tx.Exec(`UPDATE playlist_entry SET ordering = ordering + ? WHERE playlist_id = ?`, maxOrd-minOrd+1, rowID); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: shift playlist orderings", err)
	}
	for i, r := range all {
		newOrdering := maxOrd - int64(i)
		if _, err := tx.Exec(`UPDATE playlist_entry SET ordering = ? WHERE row_id = ?`, newOrdering, r.rowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: reassign playlist ordering", err)
		}
	}
	return tx.Commit()
}

// CopyAll copies every entry of the source playlist to the destination
// playlist, preserving orderings (and their gaps) exactly.
func (d *DB) CopyAll(sourceUID, destUID entityuid.UID) error {
	tx, err := d.db.Begin()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: copy playlist", err)
	}
	defer tx.Rollback()

	srcRowID, err := d.playlistRowID(tx, sourceUID)
	if err != nil {
		return err
	}
	destRowID, err := d.playlistRowID(tx, destUID)
	if err != nil {
		return err
	}

	rows, err := tx.Query(`
		SELECT ordering, added_at, title, notes, item_kind, track_uid
		FROM playlist_entry WHERE playlist_id = ? ORDER BY ordering
	`, srcRowID)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list source entries", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ordering int64
		var addedAt time.Time
		var title, notes string
		var itemKind int
		var trackUID sql.NullString
		if err := rows.Scan(&ordering, &addedAt, &title, &notes, &itemKind, &trackUID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: scan source entry", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO playlist_entry (playlist_id, ordering, added_at, title, notes, item_kind, track_uid)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, destRowID, ordering, addedAt, title, notes, itemKind, trackUID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: insert copied entry", err)
		}
	}
	if err := rows.Err(); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: list source entries", err)
	}
	return tx.Commit()
}

// LoadPlaylistEntries fetches every entry of a playlist sorted by ordering.
func (d *DB) LoadPlaylistEntries(playlistUID entityuid.UID) ([]domain.PlaylistEntry, error) {
	rowID, err := d.playlistRowID(d.db, playlistUID)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.Query(`
		SELECT ordering, added_at, title, notes, item_kind, track_uid
		FROM playlist_entry WHERE playlist_id = ? ORDER BY ordering
	`, rowID)
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: load playlist entries", err)
	}
	defer rows.Close()

	var entries []domain.PlaylistEntry
	for rows.Next() {
		var e domain.PlaylistEntry
		var itemKind int
		var trackUID sql.NullString
		if err := rows.Scan(&e.Ordering, &e.AddedAt, &e.Title, &e.Notes, &itemKind, &trackUID); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: scan playlist entry", err)
		}
		e.Item.Kind = domain.PlaylistItemKind(itemKind)
		if trackUID.Valid {
			uid, err := entityuid.Parse(trackUID.String)
			if err != nil {
				return nil, meridianerr.Wrap(meridianerr.InvalidData, "store: parse track uid", err)
			}
			e.Item.TrackUID = uid
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

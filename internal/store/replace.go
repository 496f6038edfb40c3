package store

import (
	"database/sql"
	"errors"
	"reflect"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// ReplaceByPath is the combined upsert the directory synchronizer drives:
// given a collection and a content path relative to its root, it looks up
// the existing track by (collection, content_path) and either creates,
// updates, or leaves it unchanged, governed by mode.
//
// When preserveCollectedAt is true and an existing media source is found,
// ms.CollectedAt is overwritten with the stored value before the
// unchanged-comparison and before any write, so that re-importing an
// untouched file never perturbs its recorded collection time.
func (d *DB) ReplaceByPath(collectionUID entityuid.UID, mode WriteMode, ms domain.MediaSource, t domain.Track, preserveCollectedAt bool, now time.Time) (domain.EntityHeader, WriteOutcome, error) {
	t = t.Canonicalize()

	collectionRowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return domain.EntityHeader{}, NotCreated, err
	}

	uid, existingMS, existingBody, found, err := d.findTrackByPath(collectionRowID, ms.ContentPath)
	if err != nil {
		return domain.EntityHeader{}, NotCreated, err
	}

	if !found {
		if mode == UpdateOnly {
			return domain.EntityHeader{}, NotCreated, nil
		}
		header, err := d.CreateTrack(collectionUID, ms, t, now)
		if err != nil {
			return domain.EntityHeader{}, NotCreated, err
		}
		return header, Created, nil
	}

	if mode == CreateOnly {
		return domain.EntityHeader{}, NotUpdated, nil
	}

	if preserveCollectedAt {
		ms.CollectedAt = existingMS.CollectedAt
	}

	entity, err := d.LoadTrackEntity(uid)
	if err != nil {
		return domain.EntityHeader{}, NotUpdated, err
	}

	if mediaSourcesEqual(existingMS, ms) && trackContentEqual(existingBody, t) {
		return entity.Header, Unchanged, nil
	}

	header, err := d.UpdateTrack(uid, entity.Header.Revision, ms, t, now)
	if err != nil {
		return domain.EntityHeader{}, NotUpdated, err
	}
	return header, Updated, nil
}

// findTrackByPath resolves a track by its media source's content path
// within a collection, returning found=false rather than an error when no
// such media source is tracked yet.
func (d *DB) findTrackByPath(collectionRowID int64, contentPath string) (uid entityuid.UID, ms domain.MediaSource, body domain.Track, found bool, err error) {
	var mediaSourceRowID, trackRowID int64
	var uidStr string
	row := d.db.QueryRow(`
		SELECT t.uid, t.row_id, ms.row_id
		FROM track t
		JOIN media_source ms ON ms.row_id = t.media_source_id
		WHERE ms.collection_id = ? AND ms.content_path = ?
	`, collectionRowID, contentPath)
	if err := row.Scan(&uidStr, &trackRowID, &mediaSourceRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return entityuid.UID{}, domain.MediaSource{}, domain.Track{}, false, nil
		}
		return entityuid.UID{}, domain.MediaSource{}, domain.Track{}, false, meridianerr.Wrap(meridianerr.Io, "store: find track by path", err)
	}

	uid, err = entityuid.Parse(uidStr)
	if err != nil {
		return entityuid.UID{}, domain.MediaSource{}, domain.Track{}, false, meridianerr.Wrap(meridianerr.Io, "store: parse track uid", err)
	}

	msRow := d.db.QueryRow(`SELECT `+mediaSourceSelectColumns+` FROM media_source WHERE row_id = ?`, mediaSourceRowID)
	_, ms, err = scanMediaSource(msRow)
	if err != nil {
		return entityuid.UID{}, domain.MediaSource{}, domain.Track{}, false, meridianerr.Wrap(meridianerr.Io, "store: load media source", err)
	}

	body, err = d.loadTrackBody(trackRowID)
	if err != nil {
		return entityuid.UID{}, domain.MediaSource{}, domain.Track{}, false, err
	}

	return uid, ms, body, true, nil
}

// FindMediaSourceDigest returns the content digest and collected_at of the
// existing media source at contentPath, for the directory synchronizer's
// Modified sync_mode check, without loading the (potentially large) track
// body that ReplaceByPath itself needs.
func (d *DB) FindMediaSourceDigest(collectionUID entityuid.UID, contentPath string) (digest []byte, collectedAt time.Time, found bool, err error) {
	collectionRowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	row := d.db.QueryRow(`SELECT content_digest, collected_at FROM media_source WHERE collection_id = ? AND content_path = ?`, collectionRowID, contentPath)
	if err := row.Scan(&digest, &collectedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, false, nil
		}
		return nil, time.Time{}, false, meridianerr.Wrap(meridianerr.Io, "store: find media source digest", err)
	}
	return digest, collectedAt, true, nil
}

// ListMediaSourcePaths returns every tracked content path in the
// collection, for the directory synchronizer's untracked/orphan sweep once
// a walk completes.
func (d *DB) ListMediaSourcePaths(collectionUID entityuid.UID) ([]string, error) {
	rows, err := d.db.Query(`
		SELECT ms.content_path FROM media_source ms
		JOIN collection c ON c.row_id = ms.collection_id
		WHERE c.uid = ?
	`, collectionUID.String())
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: list media source paths", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: scan media source path", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// DeleteMediaSourceByPath deletes the media source at contentPath within
// the collection; the track row and its child collections cascade with it.
func (d *DB) DeleteMediaSourceByPath(collectionUID entityuid.UID, contentPath string) error {
	collectionRowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(`DELETE FROM media_source WHERE collection_id = ? AND content_path = ?`, collectionRowID, contentPath); err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: delete media source", err)
	}
	return nil
}

// MarkTrackSynchronized sets last_synchronized_revision to revision for the
// track identified by uid, recording that the file and the store currently
// agree at that revision.
func (d *DB) MarkTrackSynchronized(uid entityuid.UID, revision int64) error {
	res, err := d.db.Exec(`UPDATE track SET last_synchronized_revision = ? WHERE uid = ?`, revision, uid.String())
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: mark track synchronized", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: mark track synchronized", err)
	}
	if n == 0 {
		return meridianerr.New(meridianerr.NotFound, "store: track not found")
	}
	return nil
}

// CountUnsynchronizedTracks reports how many tracks in the collection have
// never been marked synchronized, or whose stored revision has since moved
// past the last synchronization (an out-of-band edit since the last sync).
func (d *DB) CountUnsynchronizedTracks(collectionUID entityuid.UID) (int, error) {
	collectionRowID, err := d.collectionRowID(d.db, collectionUID)
	if err != nil {
		return 0, err
	}
	var n int
	row := d.db.QueryRow(`
		SELECT COUNT(*) FROM track t
		JOIN media_source ms ON ms.row_id = t.media_source_id
		WHERE ms.collection_id = ?
			AND (t.last_synchronized_revision IS NULL OR t.last_synchronized_revision != t.revision)
	`, collectionRowID)
	if err := row.Scan(&n); err != nil {
		return 0, meridianerr.Wrap(meridianerr.Io, "store: count unsynchronized tracks", err)
	}
	return n, nil
}

// trackContentEqual compares two canonicalized Track bodies for the
// purpose of replace-by-path's unchanged check, ignoring the fields the
// store itself manages rather than the importer: play counter state and
// the last-synchronized-revision marker.
func trackContentEqual(a, b domain.Track) bool {
	a.PlayCounter = domain.PlayCounter{}
	b.PlayCounter = domain.PlayCounter{}
	a.LastSynchronizedRevision = nil
	b.LastSynchronizedRevision = nil
	return reflect.DeepEqual(a, b)
}

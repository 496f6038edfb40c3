package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// CreateCollection inserts a new Collection and returns its freshly minted
// header.
func (d *DB) CreateCollection(body domain.Collection) (domain.EntityHeader, error) {
	header := domain.NewEntityHeader()
	_, err := d.db.Exec(`
		INSERT INTO collection (uid, revision, title, kind, color, path_kind, root_url)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, header.UID.String(), header.Revision, body.Title, body.Kind, nullUint32(body.Color),
		int(body.MediaSource.ContentPath.Kind), body.MediaSource.ContentPath.RootURL)
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create collection", err)
	}
	return header, nil
}

// UpdateCollection updates an existing Collection, enforcing the optimistic
// concurrency check against header.Revision.
func (d *DB) UpdateCollection(header domain.EntityHeader, body domain.Collection) (domain.EntityHeader, error) {
	next := header.NextRevision()
	res, err := d.db.Exec(`
		UPDATE collection
		SET revision = ?, title = ?, kind = ?, color = ?, path_kind = ?, root_url = ?
		WHERE uid = ? AND revision = ?
	`, next.Revision, body.Title, body.Kind, nullUint32(body.Color),
		int(body.MediaSource.ContentPath.Kind), body.MediaSource.ContentPath.RootURL,
		header.UID.String(), header.Revision)
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update collection", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update collection", err)
	}
	if n == 0 {
		return domain.EntityHeader{}, meridianerr.New(meridianerr.Conflict, "store: collection revision mismatch")
	}
	return next, nil
}

// LoadCollection fetches a Collection by UID.
func (d *DB) LoadCollection(uid entityuid.UID) (domain.EntityWithBody[domain.Collection], error) {
	row := d.db.QueryRow(`
		SELECT revision, title, kind, color, path_kind, root_url
		FROM collection WHERE uid = ?
	`, uid.String())

	var revision int64
	var title, kind, rootURL string
	var color sql.NullInt64
	var pathKind int

	if err := row.Scan(&revision, &title, &kind, &color, &pathKind, &rootURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EntityWithBody[domain.Collection]{}, meridianerr.New(meridianerr.NotFound, "store: collection not found")
		}
		return domain.EntityWithBody[domain.Collection]{}, meridianerr.Wrap(meridianerr.Io, "store: load collection", err)
	}

	body := domain.Collection{
		Title: title,
		Kind:  kind,
		Color: uint32Ptr(color),
		MediaSource: domain.MediaSourceConfig{
			ContentPath: domain.ContentPathConfig{
				Kind:    domain.ContentPathKind(pathKind),
				RootURL: rootURL,
			},
		},
	}
	return domain.EntityWithBody[domain.Collection]{
		Header: domain.EntityHeader{UID: uid, Revision: revision},
		Body:   body,
	}, nil
}

// ListCollections returns the UID of every collection in the store, in no
// particular order, for tools that operate across the whole catalog
// (e.g. libcheck's default "check everything" mode).
func (d *DB) ListCollections() ([]entityuid.UID, error) {
	rows, err := d.db.Query(`SELECT uid FROM collection`)
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: list collections", err)
	}
	defer rows.Close()

	var uids []entityuid.UID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: scan collection uid", err)
		}
		uid, err := entityuid.Parse(s)
		if err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: parse collection uid", err)
		}
		uids = append(uids, uid)
	}
	return uids, rows.Err()
}

func nullUint32(v *uint32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func uint32Ptr(v sql.NullInt64) *uint32 {
	if !v.Valid {
		return nil
	}
	u := uint32(v.Int64)
	return &u
}

func int32Ptr(v sql.NullInt64) *int32 {
	if !v.Valid {
		return nil
	}
	i := int32(v.Int64)
	return &i
}

func nullInt32(v *int32) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func nullFloat64(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func float64Ptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var errUnsupportedMode = fmt.Errorf("store: unsupported write mode")

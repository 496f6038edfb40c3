package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// querier is satisfied by both *sql.DB and *sql.Tx, letting the child-
// collection loaders run either inside a transaction or standalone.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// CreateTrack inserts a media source and its track row as a single new
// entity, returning the freshly minted header. createdAt stamps both the
// track's created_at and updated_at columns.
func (d *DB) CreateTrack(collectionUID entityuid.UID, ms domain.MediaSource, t domain.Track, createdAt time.Time) (domain.EntityHeader, error) {
	t = t.Canonicalize()

	tx, err := d.db.Begin()
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create track", err)
	}
	defer tx.Rollback()

	var collectionRowID int64
	if err := tx.QueryRow(`SELECT row_id FROM collection WHERE uid = ?`, collectionUID.String()).Scan(&collectionRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EntityHeader{}, meridianerr.New(meridianerr.NotFound, "store: collection not found")
		}
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create track", err)
	}

	msHeader := domain.NewEntityHeader()
	args := append([]any{msHeader.UID.String(), msHeader.Revision, collectionRowID}, mediaSourceArgs(ms)...)
	res, err := tx.Exec(`
		INSERT INTO media_source (uid, revision, collection_id, `+mediaSourceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, args...)
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create media source", err)
	}
	mediaSourceRowID, err := res.LastInsertId()
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create media source", err)
	}

	header := domain.NewEntityHeader()
	if err := insertTrackRow(tx, header, mediaSourceRowID, t, createdAt); err != nil {
		return domain.EntityHeader{}, err
	}
	trackRowID, err := lastTrackRowID(tx, header.UID)
	if err != nil {
		return domain.EntityHeader{}, err
	}
	if err := insertTrackChildren(tx, trackRowID, t); err != nil {
		return domain.EntityHeader{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: create track", err)
	}
	return header, nil
}

func insertTrackRow(tx *sql.Tx, header domain.EntityHeader, mediaSourceRowID int64, t domain.Track, createdAt time.Time) error {
	aux := auxColumnsFor(t)
	var recordedAt, releasedAt, releasedOrigAt any
	var recordedClock, releasedClock, releasedOrigClock int
	if t.RecordedAt != nil {
		recordedAt = t.RecordedAt.Time
		recordedClock = boolToInt(t.RecordedAt.HasClock)
	}
	if t.ReleasedAt != nil {
		releasedAt = t.ReleasedAt.Time
		releasedClock = boolToInt(t.ReleasedAt.HasClock)
	}
	if t.ReleasedOrigAt != nil {
		releasedOrigAt = t.ReleasedOrigAt.Time
		releasedOrigClock = boolToInt(t.ReleasedOrigAt.HasClock)
	}

	var beatUnit any
	var beatsPerMeasure any
	if t.Metrics.TimeSignature != nil {
		beatsPerMeasure = t.Metrics.TimeSignature.BeatsPerMeasure
		beatUnit = nullInt32(t.Metrics.TimeSignature.BeatUnit)
	}

	var colorRGB, colorPalette any
	if t.Color != nil {
		colorRGB = nullUint32(t.Color.RGB)
		colorPalette = nullInt32(t.Color.Palette)
	}

	var lastPlayedAt any
	if t.PlayCounter.LastPlayedAt != nil {
		lastPlayedAt = *t.PlayCounter.LastPlayedAt
	}

	var lastSyncRev any
	if t.LastSynchronizedRevision != nil {
		lastSyncRev = *t.LastSynchronizedRevision
	}

	_, err := tx.Exec(`
		INSERT INTO track (
			uid, revision, media_source_id,
			recorded_at, recorded_has_clock, released_at, released_has_clock,
			released_orig_at, released_orig_has_clock, publisher, copyright,
			album_kind, album_replaygain_db,
			track_number, track_total, disc_number, disc_total, movement_number, movement_total,
			tempo_bpm, music_flags, key_code, beats_per_measure, beat_unit, replaygain_db,
			color_rgb, color_palette, last_played_at, times_played, last_synchronized_revision,
			created_at, updated_at,
			aux_track_title, aux_track_artist, aux_track_composer, aux_album_title, aux_album_artist
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		header.UID.String(), header.Revision, mediaSourceRowID,
		recordedAt, recordedClock, releasedAt, releasedClock,
		releasedOrigAt, releasedOrigClock, t.Publisher, t.Copyright,
		int(t.Album.Kind), nullFloat64(t.Album.ReplayGainDb),
		nullInt32(t.Indexes.TrackNumber), nullInt32(t.Indexes.TrackTotal),
		nullInt32(t.Indexes.DiscNumber), nullInt32(t.Indexes.DiscTotal),
		nullInt32(t.Indexes.MovementNumber), nullInt32(t.Indexes.MovementTotal),
		nullFloat64(nonZeroTempo(t.Metrics.TempoBpm)), uint32(t.Metrics.Flags), t.Metrics.KeyCode,
		beatsPerMeasure, beatUnit, nullFloat64(t.Metrics.ReplayGainDb),
		colorRGB, colorPalette, lastPlayedAt, t.PlayCounter.TimesPlayed, lastSyncRev,
		createdAt, createdAt,
		aux.title, aux.artist, aux.composer, aux.albumTitle, aux.albumArtist,
	)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: insert track", err)
	}
	return nil
}

func nonZeroTempo(bpm float64) *float64 {
	if bpm == 0 {
		return nil
	}
	return &bpm
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func lastTrackRowID(tx *sql.Tx, uid entityuid.UID) (int64, error) {
	var rowID int64
	if err := tx.QueryRow(`SELECT row_id FROM track WHERE uid = ?`, uid.String()).Scan(&rowID); err != nil {
		return 0, meridianerr.Wrap(meridianerr.Io, "store: lookup track row", err)
	}
	return rowID, nil
}

func insertTrackChildren(tx *sql.Tx, trackRowID int64, t domain.Track) error {
	for _, title := range t.Titles {
		if _, err := tx.Exec(`INSERT INTO track_title (track_id, scope, kind, name) VALUES (?, ?, ?, ?)`,
			trackRowID, domain.TitleScopeTrack, int(title.Kind), title.Name); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: insert track title", err)
		}
	}
	for _, title := range t.Album.Titles {
		if _, err := tx.Exec(`INSERT INTO track_title (track_id, scope, kind, name) VALUES (?, ?, ?, ?)`,
			trackRowID, domain.TitleScopeAlbum, int(title.Kind), title.Name); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: insert album title", err)
		}
	}
	for _, actor := range t.Actors {
		if err := insertActor(tx, trackRowID, domain.TitleScopeTrack, actor); err != nil {
			return err
		}
	}
	for _, actor := range t.Album.Actors {
		if err := insertActor(tx, trackRowID, domain.TitleScopeAlbum, actor); err != nil {
			return err
		}
	}
	for _, cue := range t.Cues {
		if _, err := tx.Exec(`
			INSERT INTO track_cue (track_id, bank_index, slot_index, kind, position_ms, out_position_ms, label, color, flags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, trackRowID, cue.BankIndex, cue.SlotIndex, int(cue.Kind), cue.PositionMs,
			nullInt64Ptr(cue.OutPositionMs), cue.Label, nullUint32(cue.Color), cue.Flags); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: insert track cue", err)
		}
	}
	for key, tags := range t.Tags.ToMap() {
		facetID := ""
		if key.IsSet {
			facetID = string(key.Facet)
		}
		for _, tag := range tags {
			if _, err := tx.Exec(`INSERT INTO track_tag (track_id, facet_id, label, score) VALUES (?, ?, ?, ?)`,
				trackRowID, facetID, string(tag.Label), float64(tag.Score)); err != nil {
				return meridianerr.Wrap(meridianerr.Io, "store: insert track tag", err)
			}
		}
	}
	return nil
}

func insertActor(tx *sql.Tx, trackRowID int64, scope domain.TitleScope, actor domain.Actor) error {
	_, err := tx.Exec(`
		INSERT INTO track_actor (track_id, scope, role, kind, name, role_notes) VALUES (?, ?, ?, ?, ?, ?)
	`, trackRowID, scope, int(actor.Role), int(actor.Kind), actor.Name, actor.RoleNotes)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: insert track actor", err)
	}
	return nil
}

func nullInt64Ptr(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

type auxColumns struct {
	title, artist, composer, albumTitle, albumArtist string
}

// auxColumnsFor recomputes the denormalized sort/search columns from a
// canonicalized Track body: the main title, the Summary artist credit, the
// Summary composer credit, and the same two for the embedded album.
func auxColumnsFor(t domain.Track) auxColumns {
	var aux auxColumns
	if main, ok := t.Titles.Main(); ok {
		aux.title = main.Name
	}
	if artist, ok := t.Actors.Summary(domain.ActorRoleArtist); ok {
		aux.artist = artist.Name
	}
	if composer, ok := t.Actors.Summary(domain.ActorRoleComposer); ok {
		aux.composer = composer.Name
	}
	if main, ok := t.Album.Titles.Main(); ok {
		aux.albumTitle = main.Name
	}
	if artist, ok := t.Album.Actors.Summary(domain.ActorRoleArtist); ok {
		aux.albumArtist = artist.Name
	}
	return aux
}

// UpdateTrack implements the Track write contract: the caller supplies the
// record's UID, the expected revision, the new canonical body and an
// updated_at timestamp for the underlying media source. It writes new
// media_source values only if they differ, bumps the track's revision with
// a conflict check, diffs each child collection against its stored
// canonical form (skipping unchanged ones), and recomputes the aux columns.
func (d *DB) UpdateTrack(uid entityuid.UID, expectedRev int64, ms domain.MediaSource, t domain.Track, updatedAt time.Time) (domain.EntityHeader, error) {
	t = t.Canonicalize()

	tx, err := d.db.Begin()
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update track", err)
	}
	defer tx.Rollback()

	var trackRowID, mediaSourceRowID int64
	if err := tx.QueryRow(`SELECT row_id, media_source_id FROM track WHERE uid = ?`, uid.String()).
		Scan(&trackRowID, &mediaSourceRowID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EntityHeader{}, meridianerr.New(meridianerr.NotFound, "store: track not found")
		}
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update track", err)
	}

	existingMSRow := tx.QueryRow(`SELECT `+mediaSourceSelectColumns+` FROM media_source WHERE row_id = ?`, mediaSourceRowID)
	_, existingMS, err := scanMediaSource(existingMSRow)
	if err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: load media source", err)
	}
	ms.CollectedAt = updatedAt
	if !mediaSourcesEqual(existingMS, ms) {
		args := append(mediaSourceArgs(ms), mediaSourceRowID)
		sets := make([]string, len(mediaSourceColumnList))
		for i, c := range mediaSourceColumnList {
			sets[i] = c + " = ?"
		}
		query := fmt.Sprintf(`UPDATE media_source SET %s WHERE row_id = ?`, strings.Join(sets, ", "))
		if _, err := tx.Exec(query, args...); err != nil {
			return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update media source", err)
		}
	}

	next := domain.EntityHeader{UID: uid, Revision: expectedRev}.NextRevision()
	if err := updateTrackRow(tx, trackRowID, next, t, updatedAt); err != nil {
		return domain.EntityHeader{}, err
	}

	if err := diffAndReplaceChildren(tx, trackRowID, t); err != nil {
		return domain.EntityHeader{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.EntityHeader{}, meridianerr.Wrap(meridianerr.Io, "store: update track", err)
	}
	return next, nil
}

// updateTrackRow issues the revision-checked UPDATE for the track row
// itself. Zero rows affected means the caller's expected_rev was stale, so
// the update is reported as a Conflict.
func updateTrackRow(tx *sql.Tx, trackRowID int64, next domain.EntityHeader, t domain.Track, updatedAt time.Time) error {
	aux := auxColumnsFor(t)
	var recordedAt, releasedAt, releasedOrigAt any
	var recordedClock, releasedClock, releasedOrigClock int
	if t.RecordedAt != nil {
		recordedAt = t.RecordedAt.Time
		recordedClock = boolToInt(t.RecordedAt.HasClock)
	}
	if t.ReleasedAt != nil {
		releasedAt = t.ReleasedAt.Time
		releasedClock = boolToInt(t.ReleasedAt.HasClock)
	}
	if t.ReleasedOrigAt != nil {
		releasedOrigAt = t.ReleasedOrigAt.Time
		releasedOrigClock = boolToInt(t.ReleasedOrigAt.HasClock)
	}

	var beatUnit, beatsPerMeasure any
	if t.Metrics.TimeSignature != nil {
		beatsPerMeasure = t.Metrics.TimeSignature.BeatsPerMeasure
		beatUnit = nullInt32(t.Metrics.TimeSignature.BeatUnit)
	}
	var colorRGB, colorPalette any
	if t.Color != nil {
		colorRGB = nullUint32(t.Color.RGB)
		colorPalette = nullInt32(t.Color.Palette)
	}
	var lastPlayedAt any
	if t.PlayCounter.LastPlayedAt != nil {
		lastPlayedAt = *t.PlayCounter.LastPlayedAt
	}
	var lastSyncRev any
	if t.LastSynchronizedRevision != nil {
		lastSyncRev = *t.LastSynchronizedRevision
	}

	res, err := tx.Exec(`
		UPDATE track SET
			revision = ?,
			recorded_at = ?, recorded_has_clock = ?, released_at = ?, released_has_clock = ?,
			released_orig_at = ?, released_orig_has_clock = ?, publisher = ?, copyright = ?,
			album_kind = ?, album_replaygain_db = ?,
			track_number = ?, track_total = ?, disc_number = ?, disc_total = ?,
			movement_number = ?, movement_total = ?,
			tempo_bpm = ?, music_flags = ?, key_code = ?, beats_per_measure = ?, beat_unit = ?,
			replaygain_db = ?, color_rgb = ?, color_palette = ?, last_played_at = ?,
			times_played = ?, last_synchronized_revision = ?, updated_at = ?,
			aux_track_title = ?, aux_track_artist = ?, aux_track_composer = ?,
			aux_album_title = ?, aux_album_artist = ?
		WHERE row_id = ? AND revision = ?
	`,
		next.Revision,
		recordedAt, recordedClock, releasedAt, releasedClock,
		releasedOrigAt, releasedOrigClock, t.Publisher, t.Copyright,
		int(t.Album.Kind), nullFloat64(t.Album.ReplayGainDb),
		nullInt32(t.Indexes.TrackNumber), nullInt32(t.Indexes.TrackTotal),
		nullInt32(t.Indexes.DiscNumber), nullInt32(t.Indexes.DiscTotal),
		nullInt32(t.Indexes.MovementNumber), nullInt32(t.Indexes.MovementTotal),
		nullFloat64(nonZeroTempo(t.Metrics.TempoBpm)), uint32(t.Metrics.Flags), t.Metrics.KeyCode,
		beatsPerMeasure, beatUnit, nullFloat64(t.Metrics.ReplayGainDb),
		colorRGB, colorPalette, lastPlayedAt, t.PlayCounter.TimesPlayed, lastSyncRev, updatedAt,
		aux.title, aux.artist, aux.composer, aux.albumTitle, aux.albumArtist,
		trackRowID, next.Revision-1,
	)
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: update track row", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return meridianerr.Wrap(meridianerr.Io, "store: update track row", err)
	}
	if n == 0 {
		return meridianerr.New(meridianerr.Conflict, "store: track revision mismatch")
	}
	return nil
}

// diffAndReplaceChildren loads each child collection's stored canonical
// form, compares it to the incoming canonical body, and only deletes and
// reinserts a collection whose contents actually changed.
func diffAndReplaceChildren(tx *sql.Tx, trackRowID int64, t domain.Track) error {
	storedTitles, storedAlbumTitles, err := loadTitles(tx, trackRowID)
	if err != nil {
		return err
	}
	if !titlesEqual(storedTitles, t.Titles) || !titlesEqual(storedAlbumTitles, t.Album.Titles) {
		if _, err := tx.Exec(`DELETE FROM track_title WHERE track_id = ?`, trackRowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: clear track titles", err)
		}
		for _, title := range t.Titles {
			if _, err := tx.Exec(`INSERT INTO track_title (track_id, scope, kind, name) VALUES (?, ?, ?, ?)`,
				trackRowID, domain.TitleScopeTrack, int(title.Kind), title.Name); err != nil {
				return meridianerr.Wrap(meridianerr.Io, "store: insert track title", err)
			}
		}
		for _, title := range t.Album.Titles {
			if _, err := tx.Exec(`INSERT INTO track_title (track_id, scope, kind, name) VALUES (?, ?, ?, ?)`,
				trackRowID, domain.TitleScopeAlbum, int(title.Kind), title.Name); err != nil {
				return meridianerr.Wrap(meridianerr.Io, "store: insert album title", err)
			}
		}
	}

	storedActors, storedAlbumActors, err := loadActors(tx, trackRowID)
	if err != nil {
		return err
	}
	if !actorsEqual(storedActors, t.Actors) || !actorsEqual(storedAlbumActors, t.Album.Actors) {
		if _, err := tx.Exec(`DELETE FROM track_actor WHERE track_id = ?`, trackRowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: clear track actors", err)
		}
		for _, actor := range t.Actors {
			if err := insertActor(tx, trackRowID, domain.TitleScopeTrack, actor); err != nil {
				return err
			}
		}
		for _, actor := range t.Album.Actors {
			if err := insertActor(tx, trackRowID, domain.TitleScopeAlbum, actor); err != nil {
				return err
			}
		}
	}

	storedCues, err := loadCues(tx, trackRowID)
	if err != nil {
		return err
	}
	if !cuesEqual(storedCues, t.Cues) {
		if _, err := tx.Exec(`DELETE FROM track_cue WHERE track_id = ?`, trackRowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: clear track cues", err)
		}
		for _, cue := range t.Cues {
			if _, err := tx.Exec(`
				INSERT INTO track_cue (track_id, bank_index, slot_index, kind, position_ms, out_position_ms, label, color, flags)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, trackRowID, cue.BankIndex, cue.SlotIndex, int(cue.Kind), cue.PositionMs,
				nullInt64Ptr(cue.OutPositionMs), cue.Label, nullUint32(cue.Color), cue.Flags); err != nil {
				return meridianerr.Wrap(meridianerr.Io, "store: insert track cue", err)
			}
		}
	}

	storedTags, err := loadTags(tx, trackRowID)
	if err != nil {
		return err
	}
	if !tagsEqual(storedTags, t.Tags) {
		if _, err := tx.Exec(`DELETE FROM track_tag WHERE track_id = ?`, trackRowID); err != nil {
			return meridianerr.Wrap(meridianerr.Io, "store: clear track tags", err)
		}
		for key, tags := range t.Tags.ToMap() {
			facetID := ""
			if key.IsSet {
				facetID = string(key.Facet)
			}
			for _, tag := range tags {
				if _, err := tx.Exec(`INSERT INTO track_tag (track_id, facet_id, label, score) VALUES (?, ?, ?, ?)`,
					trackRowID, facetID, string(tag.Label), float64(tag.Score)); err != nil {
					return meridianerr.Wrap(meridianerr.Io, "store: insert track tag", err)
				}
			}
		}
	}

	return nil
}

func tagsEqual(a, b domain.Tags) bool {
	a, b = a.Canonicalize(), b.Canonicalize()
	if len(a.Plain) != len(b.Plain) || len(a.Facets) != len(b.Facets) {
		return false
	}
	for i := range a.Plain {
		if a.Plain[i] != b.Plain[i] {
			return false
		}
	}
	for i := range a.Facets {
		fa, fb := a.Facets[i], b.Facets[i]
		if fa.FacetID != fb.FacetID || len(fa.Tags) != len(fb.Tags) {
			return false
		}
		for j := range fa.Tags {
			if fa.Tags[j] != fb.Tags[j] {
				return false
			}
		}
	}
	return true
}

func titlesEqual(a, b domain.Titles) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func actorsEqual(a, b domain.Actors) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cuesEqual(a, b domain.Cues) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.BankIndex != y.BankIndex || x.SlotIndex != y.SlotIndex || x.Kind != y.Kind ||
			x.PositionMs != y.PositionMs || x.Label != y.Label || x.Flags != y.Flags {
			return false
		}
		if (x.OutPositionMs == nil) != (y.OutPositionMs == nil) {
			return false
		}
		if x.OutPositionMs != nil && *x.OutPositionMs != *y.OutPositionMs {
			return false
		}
		if (x.Color == nil) != (y.Color == nil) {
			return false
		}
		if x.Color != nil && *x.Color != *y.Color {
			return false
		}
	}
	return true
}

func loadTitles(q querier, trackRowID int64) (track domain.Titles, album domain.Titles, err error) {
	rows, err := q.Query(`SELECT scope, kind, name FROM track_title WHERE track_id = ? ORDER BY scope, kind, name`, trackRowID)
	if err != nil {
		return nil, nil, meridianerr.Wrap(meridianerr.Io, "store: load track titles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope, kind int
		var name string
		if err := rows.Scan(&scope, &kind, &name); err != nil {
			return nil, nil, meridianerr.Wrap(meridianerr.Io, "store: scan track title", err)
		}
		title := domain.Title{Kind: domain.TitleKind(kind), Name: name}
		if domain.TitleScope(scope) == domain.TitleScopeAlbum {
			album = append(album, title)
		} else {
			track = append(track, title)
		}
	}
	return track, album, rows.Err()
}

func loadActors(q querier, trackRowID int64) (track domain.Actors, album domain.Actors, err error) {
	rows, err := q.Query(`SELECT scope, role, kind, name, role_notes FROM track_actor WHERE track_id = ? ORDER BY scope, role, kind, name`, trackRowID)
	if err != nil {
		return nil, nil, meridianerr.Wrap(meridianerr.Io, "store: load track actors", err)
	}
	defer rows.Close()

	for rows.Next() {
		var scope, role, kind int
		var name, roleNotes string
		if err := rows.Scan(&scope, &role, &kind, &name, &roleNotes); err != nil {
			return nil, nil, meridianerr.Wrap(meridianerr.Io, "store: scan track actor", err)
		}
		actor := domain.Actor{Name: name, Role: domain.ActorRole(role), Kind: domain.ActorKind(kind), RoleNotes: roleNotes}
		if domain.TitleScope(scope) == domain.TitleScopeAlbum {
			album = append(album, actor)
		} else {
			track = append(track, actor)
		}
	}
	return track, album, rows.Err()
}

func loadCues(q querier, trackRowID int64) (domain.Cues, error) {
	rows, err := q.Query(`
		SELECT bank_index, slot_index, kind, position_ms, out_position_ms, label, color, flags
		FROM track_cue WHERE track_id = ? ORDER BY bank_index, slot_index, position_ms
	`, trackRowID)
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "store: load track cues", err)
	}
	defer rows.Close()

	var cues domain.Cues
	for rows.Next() {
		var bank, slot uint8
		var kind int
		var positionMs int64
		var outPositionMs sql.NullInt64
		var label string
		var color sql.NullInt64
		var flags uint32
		if err := rows.Scan(&bank, &slot, &kind, &positionMs, &outPositionMs, &label, &color, &flags); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "store: scan track cue", err)
		}
		cue := domain.Cue{
			BankIndex: bank, SlotIndex: slot, Kind: domain.CueKind(kind), PositionMs: positionMs,
			Label: label, Flags: flags,
		}
		if outPositionMs.Valid {
			v := outPositionMs.Int64
			cue.OutPositionMs = &v
		}
		cue.Color = uint32Ptr(color)
		cues = append(cues, cue)
	}
	return cues, rows.Err()
}

func loadTags(q querier, trackRowID int64) (domain.Tags, error) {
	rows, err := q.Query(`SELECT facet_id, label, score FROM track_tag WHERE track_id = ? ORDER BY facet_id, label`, trackRowID)
	if err != nil {
		return domain.Tags{}, meridianerr.Wrap(meridianerr.Io, "store: load track tags", err)
	}
	defer rows.Close()

	m := domain.TagsMap{}
	for rows.Next() {
		var facetID, label string
		var score float64
		if err := rows.Scan(&facetID, &label, &score); err != nil {
			return domain.Tags{}, meridianerr.Wrap(meridianerr.Io, "store: scan track tag", err)
		}
		key := domain.NoFacet
		if facetID != "" {
			key = domain.FacetKeyOf(domain.FacetID(facetID))
		}
		m[key] = append(m[key], domain.PlainTag{Label: domain.Label(label), Score: domain.Score(score)})
	}
	return domain.FromMap(m), rows.Err()
}

// LoadTrackEntity fetches the track row plus all child collections in
// their canonical order and returns a fully-materialized EntityWithBody.
func (d *DB) LoadTrackEntity(uid entityuid.UID) (domain.EntityWithBody[domain.Track], error) {
	var trackRowID, mediaSourceRowID, revision int64
	row := d.db.QueryRow(`SELECT row_id, media_source_id, revision FROM track WHERE uid = ?`, uid.String())
	if err := row.Scan(&trackRowID, &mediaSourceRowID, &revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.EntityWithBody[domain.Track]{}, meridianerr.New(meridianerr.NotFound, "store: track not found")
		}
		return domain.EntityWithBody[domain.Track]{}, meridianerr.Wrap(meridianerr.Io, "store: load track", err)
	}

	t, err := d.loadTrackBody(trackRowID)
	if err != nil {
		return domain.EntityWithBody[domain.Track]{}, err
	}

	return domain.EntityWithBody[domain.Track]{
		Header: domain.EntityHeader{UID: uid, Revision: revision},
		Body:   t,
	}, nil
}

func (d *DB) loadTrackBody(trackRowID int64) (domain.Track, error) {
	var t domain.Track
	var recordedAt, releasedAt, releasedOrigAt sql.NullTime
	var recordedClock, releasedClock, releasedOrigClock int
	var publisher, copyright string
	var albumKind int
	var albumGain sql.NullFloat64
	var trackNum, trackTotal, discNum, discTotal, movementNum, movementTotal sql.NullInt64
	var tempo sql.NullFloat64
	var musicFlags uint32
	var keyCode int
	var beatsPerMeasure, beatUnit sql.NullInt64
	var replayGain sql.NullFloat64
	var colorRGB, colorPalette sql.NullInt64
	var lastPlayedAt sql.NullTime
	var timesPlayed int64
	var lastSyncRev sql.NullInt64

	row := d.db.QueryRow(`
		SELECT recorded_at, recorded_has_clock, released_at, released_has_clock,
			released_orig_at, released_orig_has_clock, publisher, copyright,
			album_kind, album_replaygain_db,
			track_number, track_total, disc_number, disc_total, movement_number, movement_total,
			tempo_bpm, music_flags, key_code, beats_per_measure, beat_unit, replaygain_db,
			color_rgb, color_palette, last_played_at, times_played, last_synchronized_revision
		FROM track WHERE row_id = ?
	`, trackRowID)
	if err := row.Scan(
		&recordedAt, &recordedClock, &releasedAt, &releasedClock,
		&releasedOrigAt, &releasedOrigClock, &publisher, &copyright,
		&albumKind, &albumGain,
		&trackNum, &trackTotal, &discNum, &discTotal, &movementNum, &movementTotal,
		&tempo, &musicFlags, &keyCode, &beatsPerMeasure, &beatUnit, &replayGain,
		&colorRGB, &colorPalette, &lastPlayedAt, &timesPlayed, &lastSyncRev,
	); err != nil {
		return t, meridianerr.Wrap(meridianerr.Io, "store: load track row", err)
	}

	if recordedAt.Valid {
		t.RecordedAt = &domain.DateOrDateTime{Time: recordedAt.Time, HasClock: recordedClock == 1}
	}
	if releasedAt.Valid {
		t.ReleasedAt = &domain.DateOrDateTime{Time: releasedAt.Time, HasClock: releasedClock == 1}
	}
	if releasedOrigAt.Valid {
		t.ReleasedOrigAt = &domain.DateOrDateTime{Time: releasedOrigAt.Time, HasClock: releasedOrigClock == 1}
	}
	t.Publisher = publisher
	t.Copyright = copyright
	t.Album.Kind = domain.AlbumKind(albumKind)
	t.Album.ReplayGainDb = float64Ptr(albumGain)
	t.Indexes = domain.Indexes{
		TrackNumber: int32Ptr(trackNum), TrackTotal: int32Ptr(trackTotal),
		DiscNumber: int32Ptr(discNum), DiscTotal: int32Ptr(discTotal),
		MovementNumber: int32Ptr(movementNum), MovementTotal: int32Ptr(movementTotal),
	}
	t.Metrics = domain.Metrics{
		TempoBpm: tempo.Float64, Flags: domain.MusicFlags(musicFlags), KeyCode: keyCode,
		ReplayGainDb: float64Ptr(replayGain),
	}
	if beatsPerMeasure.Valid {
		t.Metrics.TimeSignature = &domain.TimeSignature{
			BeatsPerMeasure: int32(beatsPerMeasure.Int64),
			BeatUnit:        int32Ptr(beatUnit),
		}
	}
	if colorRGB.Valid || colorPalette.Valid {
		t.Color = &domain.Color{RGB: uint32Ptr(colorRGB), Palette: int32Ptr(colorPalette)}
	}
	t.PlayCounter = domain.PlayCounter{TimesPlayed: timesPlayed}
	if lastPlayedAt.Valid {
		v := lastPlayedAt.Time
		t.PlayCounter.LastPlayedAt = &v
	}
	if lastSyncRev.Valid {
		v := lastSyncRev.Int64
		t.LastSynchronizedRevision = &v
	}

	titles, albumTitles, err := loadTitles(d.db, trackRowID)
	if err != nil {
		return t, err
	}
	t.Titles = titles
	t.Album.Titles = albumTitles

	actors, albumActors, err := loadActors(d.db, trackRowID)
	if err != nil {
		return t, err
	}
	t.Actors = actors
	t.Album.Actors = albumActors

	cues, err := loadCues(d.db, trackRowID)
	if err != nil {
		return t, err
	}
	t.Cues = cues

	tags, err := loadTags(d.db, trackRowID)
	if err != nil {
		return t, err
	}
	t.Tags = tags

	return t, nil
}

package search

// SortField enumerates every column a search result list may be ordered
// by. The track row_id is always appended as a stable tiebreaker after
// the caller's own sort terms.
type SortField int

const (
	SortAlbumArtist SortField = iota
	SortAlbumTitle
	SortAudioBitrateBps
	SortAudioChannelCount
	SortAudioDurationMs
	SortAudioLoudnessLufs
	SortAudioSampleRateHz
	SortCollectedAt
	SortContentPath
	SortContentType
	SortCreatedAt
	SortDiscNumber
	SortDiscTotal
	SortLastPlayedAt
	SortMusicTempoBpm
	SortMusicKeyCode
	SortPublisher
	SortRecordedAtDate
	SortReleasedAtDate
	SortReleasedOrigAtDate
	SortTrackArtist
	SortTrackNumber
	SortTrackTitle
	SortTrackTotal
	SortTimesPlayed
	SortUpdatedAt
)

// Direction is the ordering direction of one Sort term.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Sort is one (field, direction) ordering term. Sort order is a list of
// these, applied left to right.
type Sort struct {
	Field     SortField
	Direction Direction
}

// Pagination bounds a result list. A nil Limit means "no limit"; a nil
// Offset means "start from the beginning".
type Pagination struct {
	Limit  *int
	Offset *int
}

// sortColumns maps each SortField to its backing SQL expression over the
// track ⨝ media_source join.
var sortColumns = map[SortField]string{
	SortAlbumArtist:        "t.aux_album_artist",
	SortAlbumTitle:         "t.aux_album_title",
	SortAudioBitrateBps:    "ms.bitrate_bps",
	SortAudioChannelCount:  "ms.channels",
	SortAudioDurationMs:    "ms.duration_ms",
	SortAudioLoudnessLufs:  "ms.loudness_lufs",
	SortAudioSampleRateHz:  "ms.sample_rate_hz",
	SortCollectedAt:        "ms.collected_at",
	SortContentPath:        "ms.content_path",
	SortContentType:        "ms.content_type",
	SortCreatedAt:          "t.created_at",
	SortDiscNumber:         "t.disc_number",
	SortDiscTotal:          "t.disc_total",
	SortLastPlayedAt:       "t.last_played_at",
	SortMusicTempoBpm:      "t.tempo_bpm",
	SortMusicKeyCode:       "t.key_code",
	SortPublisher:          "t.publisher",
	SortRecordedAtDate:     "t.recorded_at",
	SortReleasedAtDate:     "t.released_at",
	SortReleasedOrigAtDate: "t.released_orig_at",
	SortTrackArtist:        "t.aux_track_artist",
	SortTrackNumber:        "t.track_number",
	SortTrackTitle:         "t.aux_track_title",
	SortTrackTotal:         "t.track_total",
	SortTimesPlayed:        "t.times_played",
	SortUpdatedAt:          "t.updated_at",
}

func direction(d Direction) string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// orderByClause renders sorts plus the mandatory row_id tiebreaker.
func orderByClause(sorts []Sort) string {
	terms := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		col, ok := sortColumns[s.Field]
		if !ok {
			continue
		}
		terms = append(terms, col+" "+direction(s.Direction))
	}
	terms = append(terms, "t.row_id ASC")
	clause := "ORDER BY "
	for i, term := range terms {
		if i > 0 {
			clause += ", "
		}
		clause += term
	}
	return clause
}

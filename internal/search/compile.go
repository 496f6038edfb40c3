package search

import (
	"fmt"
	"strings"
)

// phraseColumns maps a StringField to its backing SQL expression. The
// "any indexed aux field" fallback used by an empty Phrase.Fields lists
// every aux_* column.
var phraseColumns = map[StringField]string{
	StringFieldTrackTitle:    "t.aux_track_title",
	StringFieldTrackArtist:   "t.aux_track_artist",
	StringFieldTrackComposer: "t.aux_track_composer",
	StringFieldAlbumTitle:    "t.aux_album_title",
	StringFieldAlbumArtist:   "t.aux_album_artist",
	StringFieldContentPath:   "ms.content_path",
}

var defaultPhraseFields = []StringField{
	StringFieldTrackTitle, StringFieldTrackArtist, StringFieldTrackComposer,
	StringFieldAlbumTitle, StringFieldAlbumArtist,
}

var numericColumns = map[NumericField]string{
	NumericFieldAudioBitrateBps:   "ms.bitrate_bps",
	NumericFieldAudioChannelCount: "ms.channels",
	NumericFieldAudioDurationMs:   "ms.duration_ms",
	NumericFieldAudioLoudnessLufs: "ms.loudness_lufs",
	NumericFieldAudioSampleRateHz: "ms.sample_rate_hz",
	NumericFieldDiscNumber:        "t.disc_number",
	NumericFieldDiscTotal:         "t.disc_total",
	NumericFieldMusicTempoBpm:     "t.tempo_bpm",
	NumericFieldMusicKeyCode:      "t.key_code",
	NumericFieldTrackNumber:       "t.track_number",
	NumericFieldTrackTotal:        "t.track_total",
	NumericFieldTimesPlayed:       "t.times_played",
}

var dateTimeColumns = map[DateTimeField]string{
	DateTimeFieldCollectedAt:    "ms.collected_at",
	DateTimeFieldCreatedAt:      "t.created_at",
	DateTimeFieldUpdatedAt:      "t.updated_at",
	DateTimeFieldLastPlayedAt:   "t.last_played_at",
	DateTimeFieldRecordedAt:     "t.recorded_at",
	DateTimeFieldReleasedAt:     "t.released_at",
	DateTimeFieldReleasedOrigAt: "t.released_orig_at",
}

func numericOperator(p NumericPredicate) string {
	switch p {
	case LessThan:
		return "<"
	case LessOrEqual:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "="
	case NotEqual:
		return "!="
	default:
		return "="
	}
}

// compile renders f into a parenthesized SQL boolean expression plus its
// positional arguments, in the order they appear in the expression.
func compile(f Filter) (string, []any) {
	switch v := f.(type) {
	case Phrase:
		return compilePhrase(v)
	case Numeric:
		col := numericColumns[v.Field]
		return fmt.Sprintf("(%s %s ?)", col, numericOperator(v.Predicate)), []any{v.Value}
	case DateTime:
		col := dateTimeColumns[v.Field]
		return fmt.Sprintf("(CAST(strftime('%%s', %s) AS INTEGER) %s ?)", col, numericOperator(v.Predicate)), []any{v.Value}
	case Condition:
		return compileCondition(v), nil
	case Tag:
		return compileTag(v.TagFilter, false)
	case CueLabel:
		return compileCueLabel(v, false)
	case PlaylistUid:
		return compilePlaylistUID(v, false)
	case All:
		return compileConjunction(v.Filters, "AND", "1=1")
	case Any:
		return compileConjunction(v.Filters, "OR", "1=0")
	case Not:
		switch inner := v.Filter.(type) {
		case Tag:
			return compileTag(inner.TagFilter, true)
		case CueLabel:
			return compileCueLabel(inner, true)
		case PlaylistUid:
			return compilePlaylistUID(inner, true)
		default:
			sql, args := compile(v.Filter)
			return "(NOT " + sql + ")", args
		}
	default:
		return "1=1", nil
	}
}

func compileConjunction(filters []Filter, joiner, empty string) (string, []any) {
	if len(filters) == 0 {
		return empty, nil
	}
	var b strings.Builder
	var args []any
	b.WriteString("(")
	for i, child := range filters {
		if i > 0 {
			b.WriteString(" " + joiner + " ")
		}
		sql, childArgs := compile(child)
		b.WriteString(sql)
		args = append(args, childArgs...)
	}
	b.WriteString(")")
	return b.String(), args
}

func compilePhrase(p Phrase) (string, []any) {
	fields := p.Fields
	if len(fields) == 0 {
		fields = defaultPhraseFields
	}
	var b strings.Builder
	var args []any
	b.WriteString("(")
	for i, term := range p.Terms {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("(")
		pattern := "%" + strings.ToLower(term) + "%"
		for j, field := range fields {
			if j > 0 {
				b.WriteString(" OR ")
			}
			col := phraseColumns[field]
			b.WriteString(fmt.Sprintf("LOWER(%s) LIKE ?", col))
			args = append(args, pattern)
		}
		b.WriteString(")")
	}
	b.WriteString(")")
	if len(p.Terms) == 0 {
		return "1=1", nil
	}
	return b.String(), args
}

func compileCondition(c Condition) string {
	switch c.Kind {
	case SourceTracked:
		return "(t.last_synchronized_revision IS NOT NULL AND t.last_synchronized_revision = t.revision)"
	case SourceUntracked:
		return "(t.last_synchronized_revision IS NULL OR t.last_synchronized_revision != t.revision)"
	default:
		return "1=1"
	}
}

func compileTag(f TagFilter, negate bool) (string, []any) {
	var b strings.Builder
	var args []any
	b.WriteString("EXISTS (SELECT 1 FROM track_tag tt WHERE tt.track_id = t.row_id")
	if f.FacetID != nil {
		b.WriteString(" AND tt.facet_id = ?")
		args = append(args, *f.FacetID)
	}
	if f.Label != nil {
		switch f.Label.Predicate {
		case StringContains:
			b.WriteString(" AND LOWER(tt.label) LIKE ?")
			args = append(args, "%"+strings.ToLower(f.Label.Value)+"%")
		default:
			b.WriteString(" AND tt.label = ?")
			args = append(args, f.Label.Value)
		}
	}
	if f.ScoreMin != nil {
		b.WriteString(" AND tt.score >= ?")
		args = append(args, *f.ScoreMin)
	}
	if f.ScoreMax != nil {
		b.WriteString(" AND tt.score <= ?")
		args = append(args, *f.ScoreMax)
	}
	b.WriteString(")")
	if negate {
		return "(NOT " + b.String() + ")", args
	}
	return "(" + b.String() + ")", args
}

func compileCueLabel(c CueLabel, negate bool) (string, []any) {
	var args []any
	predicate := "tc.label = ?"
	value := c.StringFilter.Value
	if c.StringFilter.Predicate == StringContains {
		predicate = "LOWER(tc.label) LIKE ?"
		value = "%" + strings.ToLower(value) + "%"
	}
	args = append(args, value)
	sql := fmt.Sprintf("EXISTS (SELECT 1 FROM track_cue tc WHERE tc.track_id = t.row_id AND %s)", predicate)
	if negate {
		return "(NOT " + sql + ")", args
	}
	return "(" + sql + ")", args
}

func compilePlaylistUID(p PlaylistUid, negate bool) (string, []any) {
	sql := `EXISTS (
		SELECT 1 FROM playlist_entry pe
		JOIN playlist pl ON pl.row_id = pe.playlist_id
		WHERE pe.track_uid = t.uid AND pl.uid = ?
	)`
	if negate {
		return "(NOT " + sql + ")", []any{p.UID.String()}
	}
	return "(" + sql + ")", []any{p.UID.String()}
}

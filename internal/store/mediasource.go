package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cartomix/meridian/internal/domain"
)

func scanMediaSource(row *sql.Row) (int64, domain.MediaSource, error) {
	var rowID int64
	var ms domain.MediaSource
	var contentDigest []byte
	var flags int
	var durationMs, sampleRate, bitrate sql.NullInt64
	var channels sql.NullInt64
	var loudness sql.NullFloat64
	var encoder string
	var artworkSource, artworkApic int
	var artworkMediaType string
	var artworkWidth, artworkHeight sql.NullInt64
	var artworkDigest, artworkThumb []byte
	var artworkURI string
	var advisory int
	var collectedAt time.Time

	err := row.Scan(
		&rowID, &ms.ContentPath, &ms.ContentType, &contentDigest, &flags,
		&durationMs, &channels, &sampleRate, &bitrate, &loudness, &encoder,
		&artworkSource, &artworkApic, &artworkMediaType, &artworkWidth, &artworkHeight,
		&artworkDigest, &artworkThumb, &artworkURI, &advisory, &collectedAt,
	)
	if err != nil {
		return 0, domain.MediaSource{}, err
	}

	ms.ContentDigest = contentDigest
	ms.ContentMetadataFlags = domain.ContentMetadataFlags(flags)
	ms.AdvisoryRating = domain.AdvisoryRating(advisory)
	ms.CollectedAt = collectedAt

	if durationMs.Valid {
		ms.Audio = &domain.AudioContentMetadata{
			DurationMs:   durationMs.Int64,
			Channels:     domain.ChannelLayout(channels.Int64),
			SampleRateHz: int32(sampleRate.Int64),
			BitrateBps:   int32(bitrate.Int64),
			LoudnessLufs: float64Ptr(loudness),
			Encoder:      encoder,
		}
	}

	ms.Artwork = domain.Artwork{
		Source:    domain.ArtworkSource(artworkSource),
		ApicType:  domain.ApicType(artworkApic),
		MediaType: artworkMediaType,
		URI:       artworkURI,
		Digest:    artworkDigest,
	}
	if artworkWidth.Valid && artworkHeight.Valid {
		ms.Artwork.Size = &domain.ArtworkSize{Width: int32(artworkWidth.Int64), Height: int32(artworkHeight.Int64)}
	}
	if len(artworkThumb) == domain.ThumbnailSize {
		copy(ms.Artwork.Thumbnail[:], artworkThumb)
	}

	return rowID, ms, nil
}

func mediaSourceArgs(ms domain.MediaSource) []any {
	var durationMs, sampleRate, bitrate, channels any
	var loudness any
	var encoder string
	if ms.Audio != nil {
		durationMs = ms.Audio.DurationMs
		channels = int(ms.Audio.Channels)
		sampleRate = ms.Audio.SampleRateHz
		bitrate = ms.Audio.BitrateBps
		loudness = nullFloat64(ms.Audio.LoudnessLufs)
		encoder = ms.Audio.Encoder
	}

	var width, height any
	if ms.Artwork.Size != nil {
		width = ms.Artwork.Size.Width
		height = ms.Artwork.Size.Height
	}
	var thumb any
	if ms.Artwork.Thumbnail != ([domain.ThumbnailSize]byte{}) {
		b := ms.Artwork.Thumbnail
		thumb = b[:]
	}

	return []any{
		ms.ContentPath, ms.ContentType, ms.ContentDigest, int(ms.ContentMetadataFlags),
		durationMs, channels, sampleRate, bitrate, loudness, encoder,
		int(ms.Artwork.Source), int(ms.Artwork.ApicType), ms.Artwork.MediaType, width, height,
		ms.Artwork.Digest, thumb, ms.Artwork.URI, int(ms.AdvisoryRating), ms.CollectedAt,
	}
}

var mediaSourceColumnList = []string{
	"content_path", "content_type", "content_digest", "metadata_flags",
	"duration_ms", "channels", "sample_rate_hz", "bitrate_bps", "loudness_lufs", "encoder",
	"artwork_source", "artwork_apic", "artwork_media_type", "artwork_width", "artwork_height",
	"artwork_digest", "artwork_thumb", "artwork_uri", "advisory_rating", "collected_at",
}

const mediaSourceColumns = `content_path, content_type, content_digest, metadata_flags,
		duration_ms, channels, sample_rate_hz, bitrate_bps, loudness_lufs, encoder,
		artwork_source, artwork_apic, artwork_media_type, artwork_width, artwork_height,
		artwork_digest, artwork_thumb, artwork_uri, advisory_rating, collected_at`

const mediaSourceSelectColumns = `row_id, content_path, content_type, content_digest, metadata_flags,
		duration_ms, channels, sample_rate_hz, bitrate_bps, loudness_lufs, encoder,
		artwork_source, artwork_apic, artwork_media_type, artwork_width, artwork_height,
		artwork_digest, artwork_thumb, artwork_uri, advisory_rating, collected_at`

func mediaSourcesEqual(a, b domain.MediaSource) bool {
	if a.ContentPath != b.ContentPath || a.ContentType != b.ContentType {
		return false
	}
	if string(a.ContentDigest) != string(b.ContentDigest) {
		return false
	}
	if a.ContentMetadataFlags != b.ContentMetadataFlags {
		return false
	}
	if a.AdvisoryRating != b.AdvisoryRating {
		return false
	}
	if !a.CollectedAt.Equal(b.CollectedAt) {
		return false
	}
	if (a.Audio == nil) != (b.Audio == nil) {
		return false
	}
	if a.Audio != nil && !audioEqual(*a.Audio, *b.Audio) {
		return false
	}
	return artworkEqual(a.Artwork, b.Artwork)
}

func audioEqual(a, b domain.AudioContentMetadata) bool {
	if a.DurationMs != b.DurationMs || a.Channels != b.Channels ||
		a.SampleRateHz != b.SampleRateHz || a.BitrateBps != b.BitrateBps || a.Encoder != b.Encoder {
		return false
	}
	if (a.LoudnessLufs == nil) != (b.LoudnessLufs == nil) {
		return false
	}
	if a.LoudnessLufs != nil && *a.LoudnessLufs != *b.LoudnessLufs {
		return false
	}
	return true
}

func artworkEqual(a, b domain.Artwork) bool {
	if a.Source != b.Source || a.ApicType != b.ApicType || a.MediaType != b.MediaType || a.URI != b.URI {
		return false
	}
	if string(a.Digest) != string(b.Digest) {
		return false
	}
	if a.Thumbnail != b.Thumbnail {
		return false
	}
	if (a.Size == nil) != (b.Size == nil) {
		return false
	}
	if a.Size != nil && *a.Size != *b.Size {
		return false
	}
	return true
}

var errMediaSourceNotFound = errors.New("store: media source not found")

package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/cartomix/meridian/internal/domain"
)

// dhowdenBackend wraps github.com/dhowden/tag for the FLAC, MP4, MPEG
// (ID3v2) and Vorbis (Ogg) containers, translating its Metadata interface
// and raw frame map into normalized Items.
type dhowdenBackend struct {
	container Container
}

func (b dhowdenBackend) Container() Container { return b.container }

func (b dhowdenBackend) Decode(r io.ReadSeeker, size int64, mapping GroupingMapping) (Items, AudioProperties, *EmbeddedPicture, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, AudioProperties{}, nil, fmt.Errorf("dhowden backend: %w", err)
	}

	items := Items{}
	if v := m.Title(); v != "" {
		items[ItemTrackTitle] = v
	}
	if v := m.Album(); v != "" {
		items[ItemAlbumTitle] = v
	}
	if v := m.Artist(); v != "" {
		items[ItemTrackArtist] = v
	}
	if v := m.AlbumArtist(); v != "" {
		items[ItemAlbumArtist] = v
	}
	if v := m.Composer(); v != "" {
		items[ItemComposer] = v
	}
	if v := m.Genre(); v != "" {
		items[ItemGenre] = v
	}
	if y := m.Year(); y != 0 {
		items[ItemYear] = strconv.Itoa(y)
	}

	raw := m.Raw()
	assignString := func(key ItemKey, frameKeys ...string) {
		for _, fk := range frameKeys {
			if v := rawText(raw, fk); v != "" {
				items[key] = v
				return
			}
		}
	}

	switch m.Format() {
	case tag.ID3v2_2, tag.ID3v2_3, tag.ID3v2_4:
		assignString(ItemBPM, "TBPM", "TBP")
		assignString(ItemInitialKey, "TKEY", "TKE")
		assignString(ItemComment, "COMM", "COM")
		assignString(ItemISRC, "TSRC", "TRC")
		assignString(ItemConductor, "TPE3", "TP3")
		assignString(ItemPublisher, "TPUB", "TPB")
		assignString(ItemCopyrightMessage, "TCOP", "TCR")
		assignString(ItemRecordingDate, "TDRC", "TYE")
		assignString(ItemOriginalReleaseDate, "TDOR", "TOR")
		assignString(ItemEncodedBy, "TENC", "TEN")
		assignString(ItemEncoderSoftware, "TSSE", "TSS")
		assignString(ItemReplayGainTrackGain, "TXXX:REPLAYGAIN_TRACK_GAIN", "TXXX:replaygain_track_gain")
		assignString(ItemParentalAdvisory, "TXXX:ITUNESADVISORY")

		switch mapping {
		case GroupingAppleGRP1:
			assignString(ItemContentGroup, "GRP1")
			assignString(ItemMovement, "TIT1", "MVNM")
		default: // GroupingLegacy
			assignString(ItemContentGroup, "TIT1")
			assignString(ItemMovement, "TXXX:WORK", "MVNM")
		}

	case tag.VORBIS, tag.FLAC:
		assignString(ItemBPM, "BPM", "TEMPO")
		assignString(ItemInitialKey, "INITIALKEY", "KEY")
		assignString(ItemComment, "COMMENT", "DESCRIPTION")
		assignString(ItemISRC, "ISRC")
		assignString(ItemConductor, "CONDUCTOR")
		assignString(ItemPublisher, "PUBLISHER", "LABEL")
		assignString(ItemCopyrightMessage, "COPYRIGHT")
		assignString(ItemRecordingDate, "DATE")
		assignString(ItemOriginalReleaseDate, "ORIGINALDATE")
		assignString(ItemEncodedBy, "ENCODED-BY")
		assignString(ItemEncoderSoftware, "ENCODER")
		assignString(ItemReplayGainTrackGain, "REPLAYGAIN_TRACK_GAIN")
		assignString(ItemContentGroup, "GROUPING", "CONTENTGROUP")
		assignString(ItemMovement, "MOVEMENTNAME")

	case tag.MP4:
		assignString(ItemBPM, "tmpo")
		assignString(ItemComment, "\xa9cmt")
		assignString(ItemConductor, "cond")
		assignString(ItemCopyrightMessage, "cprt")
		assignString(ItemContentGroup, "\xa9grp")

	default:
		assignString(ItemComment, "comment")
	}

	var pic *EmbeddedPicture
	if p := m.Picture(); p != nil {
		pic = &EmbeddedPicture{
			Role:      apicRoleFromDescription(p.Type),
			MediaType: p.MIMEType,
			Data:      p.Data,
		}
	}

	props := AudioProperties{}
	return items, props, pic, nil
}

// rawText extracts a plain string from a dhowden/tag Raw() frame value,
// unwrapping the *tag.Comm shape used for COMM/USLT/TXXX-style frames.
func rawText(raw map[string]interface{}, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case *tag.Comm:
		return strings.TrimSpace(t.Text)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

func apicRoleFromDescription(pictureType string) domain.ApicType {
	switch pictureType {
	case "Cover (front)":
		return domain.ApicCoverFront
	case "Cover (back)":
		return domain.ApicCoverBack
	case "Leaflet page":
		return domain.ApicLeaflet
	case "Media (e.g. lable side of CD)":
		return domain.ApicMedia
	default:
		return domain.ApicOther
	}
}

package importer

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dhowden/tag"

	"github.com/cartomix/meridian/internal/domain"
)

// aiffBackend reads the IFF chunk structure of an AIFF file directly: the
// COMM chunk for audio properties, and an embedded "ID3 " chunk (as written
// by most taggers) for text frames, read through itemsFromID3Metadata.
type aiffBackend struct{}

func (aiffBackend) Container() Container { return ContainerAiff }

func (aiffBackend) Decode(r io.ReadSeeker, size int64, mapping GroupingMapping) (Items, AudioProperties, *EmbeddedPicture, error) {
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, AudioProperties{}, nil, fmt.Errorf("aiff backend: read header: %w", err)
	}
	if string(header[0:4]) != "FORM" || string(header[8:12]) != "AIFF" {
		return nil, AudioProperties{}, nil, fmt.Errorf("aiff backend: not an AIFF container")
	}

	props := AudioProperties{}
	items := Items{}

	for {
		var chunkHeader [8]byte
		if _, err := io.ReadFull(r, chunkHeader[:]); err != nil {
			break // end of chunks
		}
		chunkID := string(chunkHeader[0:4])
		chunkSize := int64(binary.BigEndian.Uint32(chunkHeader[4:8]))

		switch chunkID {
		case "COMM":
			var body [18]byte
			if _, err := io.ReadFull(r, body[:]); err != nil {
				return items, props, nil, fmt.Errorf("aiff backend: COMM chunk: %w", err)
			}
			numChannels := binary.BigEndian.Uint16(body[0:2])
			numSampleFrames := binary.BigEndian.Uint32(body[2:6])
			sampleRate := decodeIEEE80(body[8:18])
			props.Channels = channelLayoutFor(int(numChannels))
			props.SampleRateHz = int32(sampleRate)
			if sampleRate > 0 {
				props.DurationMs = int64(float64(numSampleFrames) / sampleRate * 1000)
			}
			if _, err := r.Seek(chunkSize-18, io.SeekCurrent); err != nil {
				return items, props, nil, err
			}

		case "ID3 ":
			buf := make([]byte, chunkSize)
			if _, err := io.ReadFull(r, buf); err != nil {
				return items, props, nil, fmt.Errorf("aiff backend: ID3 chunk: %w", err)
			}
			m, err := tag.ReadID3v2Tags(bytes.NewReader(buf))
			if err == nil {
				d, p, _, _ := itemsFromID3Metadata(m, mapping)
				for k, v := range d {
					items[k] = v
				}
				_ = p
			}

		default:
			if _, err := r.Seek(chunkSize, io.SeekCurrent); err != nil {
				return items, props, nil, err
			}
		}

		if chunkSize%2 == 1 {
			r.Seek(1, io.SeekCurrent) // chunks are word-aligned
		}
	}

	return items, props, nil, nil
}

// decodeIEEE80 decodes the 80-bit IEEE extended float AIFF uses for its
// sample rate field.
func decodeIEEE80(b []byte) float64 {
	if len(b) < 10 {
		return 0
	}
	exponent := int(binary.BigEndian.Uint16(b[0:2]))
	mantissa := binary.BigEndian.Uint64(b[2:10])
	sign := 1.0
	if exponent&0x8000 != 0 {
		sign = -1.0
		exponent &^= 0x8000
	}
	if exponent == 0 && mantissa == 0 {
		return 0
	}
	return sign * float64(mantissa) * math.Pow(2, float64(exponent-16383-63))
}

func channelLayoutFor(n int) domain.ChannelLayout {
	switch n {
	case 1:
		return domain.ChannelLayoutMono
	case 2:
		return domain.ChannelLayoutStereo
	case 6:
		return domain.ChannelLayoutSurround51
	case 8:
		return domain.ChannelLayoutSurround71
	default:
		return domain.ChannelLayoutUnknown
	}
}

// itemsFromID3Metadata maps a tag.Metadata obtained by an alternate route
// (an embedded ID3 chunk inside a non-MPEG container) to items. Only title,
// album, artist, album artist and genre are mapped; other frames (BPM, key,
// grouping, ...) are not read, mapping is ignored, and no picture or audio
// properties are returned.
func itemsFromID3Metadata(m tag.Metadata, mapping GroupingMapping) (Items, *EmbeddedPicture, AudioProperties, error) {
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
	if v := m.Genre(); v != "" {
		items[ItemGenre] = v
	}
	return items, nil, AudioProperties{}, nil
}

// opusBackend parses the Ogg/Opus comment header (the "OpusTags" packet),
// which uses the same vendor-string + key=value comment-list layout as
// Vorbis comments.
type opusBackend struct{}

func (opusBackend) Container() Container { return ContainerOpus }

func (opusBackend) Decode(r io.ReadSeeker, size int64, mapping GroupingMapping) (Items, AudioProperties, *EmbeddedPicture, error) {
	br := bufio.NewReader(r)
	packet, err := readSecondOggPacket(br)
	if err != nil {
		return nil, AudioProperties{}, nil, fmt.Errorf("opus backend: %w", err)
	}
	if len(packet) < 8 || string(packet[0:8]) != "OpusTags" {
		return Items{}, AudioProperties{}, nil, nil
	}
	comments, err := parseVorbisCommentList(packet[8:])
	if err != nil {
		return nil, AudioProperties{}, nil, fmt.Errorf("opus backend: comments: %w", err)
	}

	items := Items{}
	assign := func(key ItemKey, names ...string) {
		for _, n := range names {
			if v, ok := comments[n]; ok {
				items[key] = v
				return
			}
		}
	}
	assign(ItemTrackTitle, "TITLE")
	assign(ItemAlbumTitle, "ALBUM")
	assign(ItemTrackArtist, "ARTIST")
	assign(ItemAlbumArtist, "ALBUMARTIST")
	assign(ItemComposer, "COMPOSER")
	assign(ItemGenre, "GENRE")
	assign(ItemBPM, "BPM", "TEMPO")
	assign(ItemInitialKey, "INITIALKEY", "KEY")
	assign(ItemComment, "COMMENT", "DESCRIPTION")
	assign(ItemISRC, "ISRC")
	assign(ItemRecordingDate, "DATE")
	assign(ItemReplayGainTrackGain, "REPLAYGAIN_TRACK_GAIN")
	assign(ItemContentGroup, "GROUPING")

	return items, AudioProperties{}, nil, nil
}

// readSecondOggPacket skips the identification-header page and returns the
// payload of the first packet on the following page (the comment header).
func readSecondOggPacket(br *bufio.Reader) ([]byte, error) {
	if _, err := readOggPage(br); err != nil {
		return nil, err
	}
	return readOggPage(br)
}

func readOggPage(br *bufio.Reader) ([]byte, error) {
	var magic [4]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, err
	}
	if string(magic[:]) != "OggS" {
		return nil, fmt.Errorf("expected OggS page header")
	}
	if _, err := io.CopyN(io.Discard, br, 22); err != nil {
		return nil, err
	}
	var segCountB [1]byte
	if _, err := io.ReadFull(br, segCountB[:]); err != nil {
		return nil, err
	}
	segCount := int(segCountB[0])
	segTable := make([]byte, segCount)
	if _, err := io.ReadFull(br, segTable); err != nil {
		return nil, err
	}
	total := 0
	for _, s := range segTable {
		total += int(s)
	}
	payload := make([]byte, total)
	if _, err := io.ReadFull(br, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// parseVorbisCommentList parses the common Vorbis-comment wire layout:
// a length-prefixed vendor string followed by a count and that many
// length-prefixed "KEY=VALUE" entries.
func parseVorbisCommentList(b []byte) (map[string]string, error) {
	r := bytes.NewReader(b)
	readLenPrefixed := func() (string, error) {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return "", err
		}
		n := binary.LittleEndian.Uint32(lenBuf[:])
		buf := make([]byte, n)
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", err
		}
		return string(buf), nil
	}

	if _, err := readLenPrefixed(); err != nil { // vendor string, discarded
		return nil, err
	}
	var countBuf [4]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, err
	}
	count := binary.LittleEndian.Uint32(countBuf[:])

	out := make(map[string]string, count)
	for i := uint32(0); i < count; i++ {
		entry, err := readLenPrefixed()
		if err != nil {
			return nil, err
		}
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 {
			continue
		}
		out[strings.ToUpper(kv[0])] = kv[1]
	}
	return out, nil
}

// otherBackend is the passthrough used for containers without a dedicated
// reader (e.g. WAV): audio properties are left zero and no tag frames are
// emitted, but the import still succeeds so the file is cataloged.
type otherBackend struct{}

func (otherBackend) Container() Container { return ContainerOther }

func (otherBackend) Decode(r io.ReadSeeker, size int64, mapping GroupingMapping) (Items, AudioProperties, *EmbeddedPicture, error) {
	return Items{}, AudioProperties{}, nil, nil
}

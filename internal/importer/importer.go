// Package importer reads audio-file tag frames into the domain model. It is
// a sum type over container format: each backend decodes its own frame
// layout and emits a normalized set of item keys, which Import then maps
// onto a domain.Track and domain.MediaSource.
package importer

import (
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/cartomix/meridian/internal/artwork"
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/meridianerr"
	"github.com/cartomix/meridian/internal/musickey"
)

// Container identifies the audio file's underlying tag format.
type Container int

const (
	ContainerOther Container = iota
	ContainerAiff
	ContainerFlac
	ContainerMp4
	ContainerMpeg
	ContainerOpus
	ContainerVorbis
)

// ItemKey names one normalized tag-frame slot a backend can fill in.
type ItemKey int

const (
	ItemTrackTitle ItemKey = iota
	ItemTrackArtist
	ItemAlbumTitle
	ItemAlbumArtist
	ItemComposer
	ItemConductor
	ItemProducer
	ItemLyricist
	ItemEngineer
	ItemMixDj
	ItemMixEngineer
	ItemPerformer
	ItemWriter
	ItemArranger
	ItemBPM
	ItemInitialKey
	ItemGenre
	ItemMood
	ItemComment
	ItemDescription
	ItemContentGroup
	ItemISRC
	ItemRecordingDate
	ItemOriginalReleaseDate
	ItemYear
	ItemCopyrightMessage
	ItemLabel
	ItemPublisher
	ItemMovement
	ItemParentalAdvisory
	ItemReplayGainTrackGain
	ItemEncodedBy
	ItemEncoderSoftware
	ItemEncoderSettings
)

// Items is the normalized, backend-agnostic view of a file's tag frames.
type Items map[ItemKey]string

// Flags is the import-flags bitset controlling optional processing stages.
type Flags uint32

const (
	Metadata Flags = 1 << iota
	MetadataEmbeddedArtwork
	MetadataEmbeddedArtworkDigest
	CompatibilityID3v2AppleGRP1
	GigtagsCGRP
	GigtagsCOMM
	SeratoMarkers
)

// DefaultFlags matches every flag except the Apple GRP1/TIT1 compatibility
// mapping, which the legacy content-group/work mapping is preferred over.
const DefaultFlags = Metadata | MetadataEmbeddedArtwork | MetadataEmbeddedArtworkDigest |
	GigtagsCGRP | GigtagsCOMM | SeratoMarkers

// Result is the outcome of importing one file: the decoded MediaSource and
// Track bodies, already canonicalized.
type Result struct {
	MediaSource domain.MediaSource
	Track       domain.Track
}

// Backend decodes one container format into normalized Items plus whatever
// audio properties it can read directly. mapping resolves the ID3v2
// content-group/work ambiguity; formats with no such ambiguity ignore it.
type Backend interface {
	Container() Container
	Decode(r io.ReadSeeker, size int64, mapping GroupingMapping) (Items, AudioProperties, *EmbeddedPicture, error)
}

// AudioProperties are the physical properties read directly from the
// container, independent of tag frames.
type AudioProperties struct {
	DurationMs   int64
	Channels     domain.ChannelLayout
	SampleRateHz int32
	BitrateBps   int32
}

// EmbeddedPicture is raw picture data recovered from a tag frame, with its
// ID3-style role. Import uses the single picture a backend returns as is;
// it does not choose among several pictures by role.
type EmbeddedPicture struct {
	Role      domain.ApicType
	MediaType string
	Data      []byte
}

func detectContainer(b []byte) Container {
	switch {
	case len(b) >= 4 && string(b[0:4]) == "fLaC":
		return ContainerFlac
	case len(b) >= 4 && string(b[0:4]) == "FORM":
		return ContainerAiff
	case len(b) >= 4 && string(b[0:4]) == "OggS":
		if len(b) >= 36 && string(b[28:36]) == "OpusHead" {
			return ContainerOpus
		}
		return ContainerVorbis
	case len(b) >= 11 && string(b[4:11]) == "ftypM4A":
		return ContainerMp4
	case len(b) >= 3 && string(b[0:3]) == "ID3":
		return ContainerMpeg
	}
	return ContainerOther
}

// Import reads r (total size bytes) and maps its tag frames onto a
// domain.Track and domain.MediaSource, applying flags' optional stages in
// the order audio properties, text frames, domain mapping, tag
// canonicalization, gig-tag extraction, artwork extraction/downscale,
// artwork digest.
func Import(r io.ReadSeeker, size int64, contentType string, flags Flags) (Result, error) {
	head := make([]byte, 64)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Result{}, meridianerr.Wrap(meridianerr.Io, "importer: read header", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return Result{}, meridianerr.Wrap(meridianerr.Io, "importer: seek start", err)
	}
	container := detectContainer(head[:n])
	if container == ContainerOther && !strings.HasPrefix(contentType, "audio/") {
		return Result{}, meridianerr.New(meridianerr.UnsupportedContentType,
			fmt.Sprintf("importer: no backend for content type %q", contentType))
	}

	backend := backendFor(container)

	mapping := mappingFromFlags(flags)
	items, props, pic, err := backend.Decode(r, size, mapping)
	if err != nil {
		return Result{}, meridianerr.Wrap(meridianerr.InvalidData, "importer: decode", err)
	}

	ms := domain.MediaSource{
		ContentType: contentType,
		CollectedAt: time.Now().UTC(),
		Audio: &domain.AudioContentMetadata{
			DurationMs:   props.DurationMs,
			Channels:     props.Channels,
			SampleRateHz: props.SampleRateHz,
			BitrateBps:   props.BitrateBps,
		},
	}

	track := mapItems(items)
	facets := track.Tags.Facets[:0]
	for _, f := range track.Tags.Facets {
		if f.FacetID == "encoder" && len(f.Tags) > 0 {
			ms.Audio.Encoder = string(f.Tags[0].Label)
			continue
		}
		facets = append(facets, f)
	}
	track.Tags.Facets = facets

	if flags&(GigtagsCGRP|GigtagsCOMM) != 0 {
		applyGigTags(&track, items, flags)
	}
	track = track.Canonicalize()

	if flags&MetadataEmbeddedArtwork != 0 && pic != nil {
		thumb, size, err := artwork.Downscale(pic.Data)
		if err == nil {
			ms.Artwork = domain.Artwork{
				Source:    domain.ArtworkEmbedded,
				ApicType:  pic.Role,
				MediaType: pic.MediaType,
				Size:      size,
				Thumbnail: thumb,
			}
			if flags&MetadataEmbeddedArtworkDigest != 0 {
				sum := sha256.Sum256(pic.Data)
				ms.Artwork.Digest = sum[:]
			}
		}
	} else {
		ms.Artwork = domain.Artwork{Source: domain.ArtworkMissing}
	}

	return Result{MediaSource: ms, Track: track}, nil
}

// GroupingMapping selects which ID3v2 frames carry content-group vs. work.
type GroupingMapping int

const (
	// GroupingLegacy puts content-group in TIT1 and work in TXXX:WORK.
	GroupingLegacy GroupingMapping = iota
	// GroupingAppleGRP1 puts content-group in GRP1 and work in TIT1.
	GroupingAppleGRP1
)

func mappingFromFlags(flags Flags) GroupingMapping {
	if flags&CompatibilityID3v2AppleGRP1 != 0 {
		return GroupingAppleGRP1
	}
	return GroupingLegacy
}

func mapItems(items Items) domain.Track {
	var t domain.Track

	if v := items[ItemTrackTitle]; v != "" {
		t.Titles = append(t.Titles, domain.Title{Kind: domain.TitleKindMain, Name: v})
	}
	if v := items[ItemMovement]; v != "" {
		t.Titles = append(t.Titles, domain.Title{Kind: domain.TitleKindMovement, Name: v})
	}
	if v := items[ItemAlbumTitle]; v != "" {
		t.Album.Titles = append(t.Album.Titles, domain.Title{Kind: domain.TitleKindMain, Name: v})
	}

	addActor := func(name string, role domain.ActorRole, kind domain.ActorKind, album bool) {
		if name == "" {
			return
		}
		a := domain.Actor{Name: name, Role: role, Kind: kind}
		if album {
			t.Album.Actors = append(t.Album.Actors, a)
		} else {
			t.Actors = append(t.Actors, a)
		}
	}
	addActor(items[ItemTrackArtist], domain.ActorRoleArtist, domain.ActorKindIndividual, false)
	addActor(items[ItemAlbumArtist], domain.ActorRoleArtist, domain.ActorKindIndividual, true)
	addActor(items[ItemComposer], domain.ActorRoleComposer, domain.ActorKindIndividual, false)
	addActor(items[ItemConductor], domain.ActorRoleConductor, domain.ActorKindIndividual, false)
	addActor(items[ItemProducer], domain.ActorRoleProducer, domain.ActorKindIndividual, false)
	addActor(items[ItemLyricist], domain.ActorRoleLyricist, domain.ActorKindIndividual, false)
	addActor(items[ItemEngineer], domain.ActorRoleEngineer, domain.ActorKindIndividual, false)
	addActor(items[ItemMixDj], domain.ActorRoleMixDj, domain.ActorKindIndividual, false)
	addActor(items[ItemMixEngineer], domain.ActorRoleMixEngineer, domain.ActorKindIndividual, false)
	addActor(items[ItemPerformer], domain.ActorRolePerformer, domain.ActorKindIndividual, false)
	addActor(items[ItemWriter], domain.ActorRoleWriter, domain.ActorKindIndividual, false)
	addActor(items[ItemArranger], domain.ActorRoleArranger, domain.ActorKindIndividual, false)
	addActor(items[ItemLabel], domain.ActorRolePublisher, domain.ActorKindIndividual, true)
	addActor(items[ItemPublisher], domain.ActorRolePublisher, domain.ActorKindIndividual, false)

	if v := items[ItemBPM]; v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			tempo := musickey.Tempo{Bpm: f, WasInteger: !strings.Contains(v, ".")}
			t.Metrics.TempoBpm = tempo.Bpm
			if tempo.WasInteger {
				t.Metrics.Flags |= domain.TempoBpmNonFractional
			}
		}
	}
	if v := items[ItemInitialKey]; v != "" {
		if code, ok := parseAnyKeyNotation(v); ok {
			t.Metrics.KeyCode = int(code)
		}
	}
	if v := items[ItemReplayGainTrackGain]; v != "" {
		if db, ok := parseReplayGain(v); ok {
			t.Metrics.ReplayGainDb = &db
		}
	}

	if v := items[ItemGenre]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetGenre,
			Tags:    domain.PlainTags{taggedAsFacet(domain.FacetGenre, v)},
		})
	}
	if v := items[ItemMood]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetMood,
			Tags:    domain.PlainTags{{Label: domain.Label(v), Score: domain.DefaultScore}},
		})
	}
	if v := items[ItemComment]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetComment,
			Tags:    domain.PlainTags{{Label: domain.Label(v), Score: domain.DefaultScore}},
		})
	}
	if v := items[ItemDescription]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetDescription,
			Tags:    domain.PlainTags{{Label: domain.Label(v), Score: domain.DefaultScore}},
		})
	}
	if v := items[ItemContentGroup]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetGrouping,
			Tags:    domain.PlainTags{{Label: domain.Label(v), Score: domain.DefaultScore}},
		})
	}
	if v := items[ItemISRC]; v != "" {
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: domain.FacetISRC,
			Tags:    domain.PlainTags{{Label: domain.Label(v), Score: domain.DefaultScore}},
		})
	}

	if v := items[ItemRecordingDate]; v != "" {
		if d, ok := parseDate(v); ok {
			t.RecordedAt = &d
		}
	}
	if v := items[ItemOriginalReleaseDate]; v != "" {
		if d, ok := parseDate(v); ok {
			t.ReleasedOrigAt = &d
		}
	} else if v := items[ItemYear]; v != "" {
		if d, ok := parseDate(v); ok {
			t.ReleasedAt = &d
		}
	}

	t.Publisher = items[ItemLabel]
	t.Copyright = items[ItemCopyrightMessage]

	if v := items[ItemParentalAdvisory]; v != "" {
		// MediaSource carries the advisory rating, not Track. This item is
		// not mapped anywhere: Import leaves AdvisoryRating at its zero
		// value.
		_ = v
	}

	encoders := []string{}
	if v := items[ItemEncoderSoftware]; v != "" {
		encoders = append(encoders, v)
	}
	if v := items[ItemEncoderSettings]; v != "" {
		encoders = append(encoders, v)
	}
	if v := items[ItemEncodedBy]; v != "" {
		encoders = append(encoders, v)
	}
	if len(encoders) > 0 {
		// Joined encoder string travels on the MediaSource's Audio.Encoder
		// field; stash it in a tag facet that Import lifts out onto it.
		t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
			FacetID: "encoder",
			Tags:    domain.PlainTags{{Label: domain.Label(strings.Join(encoders, "|")), Score: domain.DefaultScore}},
		})
	}

	return t.Canonicalize()
}

func taggedAsFacet(facet domain.FacetID, raw string) domain.PlainTag {
	return domain.PlainTag{Label: domain.Label(raw), Score: domain.DefaultScore}
}

func parseDate(v string) (domain.DateOrDateTime, bool) {
	layouts := []string{"2006-01-02T15:04:05Z07:00", "2006-01-02T15:04:05", "2006-01-02", "2006"}
	for i, layout := range layouts {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.DateOrDateTime{Time: t, HasClock: i < 2}, true
		}
	}
	return domain.DateOrDateTime{}, false
}

func parseReplayGain(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	v = strings.TrimSuffix(v, "dB")
	v = strings.TrimSpace(v)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseAnyKeyNotation(v string) (musickey.Code, bool) {
	parsers := []func(string) (musickey.Code, bool){
		musickey.ParseCanonical,
		musickey.ParseLancelot,
		musickey.ParseOpenKey,
		musickey.ParseTraditional,
		musickey.ParseTraxsource,
		musickey.ParseBeatport,
		musickey.ParseSerato,
	}
	for _, p := range parsers {
		if c, ok := p(v); ok {
			return c, true
		}
	}
	return 0, false
}

func backendFor(c Container) Backend {
	switch c {
	case ContainerFlac, ContainerMp4, ContainerMpeg, ContainerVorbis:
		return dhowdenBackend{container: c}
	case ContainerAiff:
		return aiffBackend{}
	case ContainerOpus:
		return opusBackend{}
	default:
		return otherBackend{}
	}
}


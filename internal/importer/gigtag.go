package importer

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/cartomix/meridian/internal/domain"
)

// gigTagPattern matches a single gig-tag token: #facet/label[=score] or
// #label[=score]. Scores default to 1.0 when absent.
var gigTagPattern = regexp.MustCompile(`#([^\s=/]+)(?:/([^\s=]+))?(?:=([0-9]*\.?[0-9]+))?`)

type gigTag struct {
	facet domain.FacetID
	label string
	score domain.Score
}

// extractGigTags scans text for gig-tag tokens, returning the parsed tags
// and the text with matched tokens removed (unmatched-looking tokens, i.e.
// a bare '#' with no following label, are left untouched).
func extractGigTags(text string) ([]gigTag, string) {
	var tags []gigTag
	remainder := gigTagPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := gigTagPattern.FindStringSubmatch(tok)
		first, second, scoreStr := m[1], m[2], m[3]

		score := domain.DefaultScore
		if scoreStr != "" {
			if f, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				score = domain.Score(f).Clamp()
			}
		}

		var facet domain.FacetID
		var label string
		if second != "" {
			facet, label = domain.FacetID(strings.ToLower(first)), second
		} else {
			label = first
		}
		tags = append(tags, gigTag{facet: facet, label: label, score: score})
		return ""
	})
	return tags, strings.Join(strings.Fields(remainder), " ")
}

// applyGigTags parses gig-tag syntax out of the Grouping and/or Comment
// items per flags and merges the results into the track's tag facets. The
// text left over after extraction is discarded: the Grouping/Comment facet
// keeps the item's full original text.
func applyGigTags(t *domain.Track, items Items, flags Flags) {
	apply := func(raw string) {
		if raw == "" {
			return
		}
		parsed, _ := extractGigTags(raw)
		for _, gt := range parsed {
			pt := domain.PlainTag{Label: domain.Label(gt.label), Score: gt.score}
			if gt.facet == "" {
				t.Tags.Plain = append(t.Tags.Plain, pt)
				continue
			}
			t.Tags.Facets = append(t.Tags.Facets, domain.FacetedTag{
				FacetID: gt.facet,
				Tags:    domain.PlainTags{pt},
			})
		}
	}
	if flags&GigtagsCGRP != 0 {
		apply(items[ItemContentGroup])
	}
	if flags&GigtagsCOMM != 0 {
		apply(items[ItemComment])
	}
}

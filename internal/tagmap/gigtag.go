// Package tagmap provides the facet aggregation view over a collection's
// tags and the gig-tag text codec used to round-trip tags through a
// Grouping or Comment field in an external tag editor.
package tagmap

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cartomix/meridian/internal/domain"
)

// gigTagPattern matches a single gig-tag token: #facet/label[=score] or
// #label[=score]. Scores, when absent, default to domain.DefaultScore.
var gigTagPattern = regexp.MustCompile(`#([^\s=/]+)(?:/([^\s=]+))?(?:=([0-9]*\.?[0-9]+))?`)

// Decode extracts gig-tag tokens out of text and returns them as a Tags
// aggregate, along with text with every matched token removed and
// surrounding whitespace collapsed. A bare '#' with no following label is
// left untouched, matching the token grammar's requirement of a label.
func Decode(text string) (domain.Tags, string) {
	var t domain.Tags
	remainder := gigTagPattern.ReplaceAllStringFunc(text, func(tok string) string {
		m := gigTagPattern.FindStringSubmatch(tok)
		first, second, scoreStr := m[1], m[2], m[3]

		score := domain.DefaultScore
		if scoreStr != "" {
			if f, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				score = domain.Score(f).Clamp()
			}
		}

		if second != "" {
			pt := domain.PlainTag{Label: domain.Label(second), Score: score}
			t.Facets = append(t.Facets, domain.FacetedTag{
				FacetID: domain.FacetID(strings.ToLower(first)),
				Tags:    domain.PlainTags{pt},
			})
		} else {
			t.Plain = append(t.Plain, domain.PlainTag{Label: domain.Label(first), Score: score})
		}
		return ""
	})
	return t.Canonicalize(), strings.Join(strings.Fields(remainder), " ")
}

// Encode renders t as whitespace-separated gig-tag tokens in canonical
// order: #facet/label=score for faceted tags, #label=score for plain
// ones. The score is always emitted explicitly, so Decode(Encode(t))
// never depends on the 1.0 default to reproduce t.
func Encode(t domain.Tags) string {
	t = t.Canonicalize()
	tokens := make([]string, 0, len(t.Plain))
	for _, pt := range t.Plain {
		tokens = append(tokens, fmt.Sprintf("#%s=%s", pt.Label, formatScore(pt.Score)))
	}
	for _, f := range t.Facets {
		for _, pt := range f.Tags {
			tokens = append(tokens, fmt.Sprintf("#%s/%s=%s", f.FacetID, pt.Label, formatScore(pt.Score)))
		}
	}
	return strings.Join(tokens, " ")
}

func formatScore(s domain.Score) string {
	return strconv.FormatFloat(float64(s), 'g', -1, 64)
}

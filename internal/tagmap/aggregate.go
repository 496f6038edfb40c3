package tagmap

import (
	"github.com/cartomix/meridian/internal/domain"
	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
	"github.com/cartomix/meridian/internal/search"
)

// LabelSummary aggregates one label's occurrences across a collection's
// tracks, with the score distribution it was tagged with.
type LabelSummary struct {
	Label  domain.Label
	Scores search.NumericSummary
}

// FacetSummary aggregates one facet (or the unfaceted bucket, when Facet
// is domain.NoFacet) across a collection's tracks.
type FacetSummary struct {
	Facet  domain.FacetKey
	Labels []LabelSummary
}

type bucketKey struct {
	facet domain.FacetKey
	label domain.Label
}

// Aggregate groups every track_tag row belonging to collectionUID by
// facet then label, summarizing each label's score distribution with
// internal/search's NumericSummary. Facets and labels are returned in
// first-seen order; callers wanting a stable display order should sort
// the result themselves.
func Aggregate(q search.Querier, collectionUID entityuid.UID) ([]FacetSummary, error) {
	rows, err := q.Query(`
		SELECT tt.facet_id, tt.label, tt.score
		FROM track_tag tt
		JOIN track t ON t.row_id = tt.track_id
		JOIN media_source ms ON ms.row_id = t.media_source_id
		JOIN collection c ON c.row_id = ms.collection_id
		WHERE c.uid = ?
	`, collectionUID.String())
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "tagmap: query track tags", err)
	}
	defer rows.Close()

	scores := map[bucketKey][]float64{}
	var facetOrder []domain.FacetKey
	seenFacet := map[domain.FacetKey]bool{}
	labelOrder := map[domain.FacetKey][]domain.Label{}
	seenLabel := map[bucketKey]bool{}

	for rows.Next() {
		var facetID, label string
		var score float64
		if err := rows.Scan(&facetID, &label, &score); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "tagmap: scan track tag", err)
		}

		facet := domain.NoFacet
		if facetID != "" {
			facet = domain.FacetKeyOf(domain.FacetID(facetID))
		}
		if !seenFacet[facet] {
			seenFacet[facet] = true
			facetOrder = append(facetOrder, facet)
		}

		key := bucketKey{facet: facet, label: domain.Label(label)}
		if !seenLabel[key] {
			seenLabel[key] = true
			labelOrder[facet] = append(labelOrder[facet], domain.Label(label))
		}
		scores[key] = append(scores[key], score)
	}
	if err := rows.Err(); err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "tagmap: iterate track tags", err)
	}

	summaries := make([]FacetSummary, 0, len(facetOrder))
	for _, facet := range facetOrder {
		fs := FacetSummary{Facet: facet}
		for _, label := range labelOrder[facet] {
			ns, err := search.Summarize(scores[bucketKey{facet: facet, label: label}])
			if err != nil {
				return nil, err
			}
			fs.Labels = append(fs.Labels, LabelSummary{Label: label, Scores: ns})
		}
		summaries = append(summaries, fs)
	}
	return summaries, nil
}

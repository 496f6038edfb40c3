package search

import (
	"database/sql"
	"fmt"

	"github.com/montanaflynn/stats"

	"github.com/cartomix/meridian/internal/entityuid"
	"github.com/cartomix/meridian/internal/meridianerr"
)

// Querier is the subset of *store.DB a search needs: a read-only query
// method. Accepting the interface rather than the concrete type keeps
// this package from importing internal/store.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// Hit is one row of a search result: enough to identify the track and
// seed the reactive client's offset-hash chain (see internal/client).
type Hit struct {
	UID      entityuid.UID
	Revision int64
}

// Run compiles filter and sorts into a single SQL query against the
// track ⨝ media_source join and returns the matching rows as Hits, in
// result order.
func Run(q Querier, filter Filter, sorts []Sort, page Pagination) ([]Hit, error) {
	if filter == nil {
		filter = All{}
	}
	where, args := compile(filter)

	query := fmt.Sprintf(`
		SELECT t.uid, t.revision
		FROM track t
		JOIN media_source ms ON ms.row_id = t.media_source_id
		WHERE %s
		%s
	`, where, orderByClause(sorts))

	if page.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *page.Limit)
		if page.Offset != nil {
			query += " OFFSET ?"
			args = append(args, *page.Offset)
		}
	} else if page.Offset != nil {
		// SQLite requires a LIMIT clause before OFFSET; -1 means unbounded.
		query += " LIMIT -1 OFFSET ?"
		args = append(args, *page.Offset)
	}

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "search: run query", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var uidText string
		var h Hit
		if err := rows.Scan(&uidText, &h.Revision); err != nil {
			return nil, meridianerr.Wrap(meridianerr.Io, "search: scan row", err)
		}
		uid, err := entityuid.Parse(uidText)
		if err != nil {
			return nil, meridianerr.Wrap(meridianerr.InvalidData, "search: parse uid", err)
		}
		h.UID = uid
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, meridianerr.Wrap(meridianerr.Io, "search: iterate rows", err)
	}
	return hits, nil
}

// NumericSummary reports the central-tendency and spread statistics for a
// facet's score distribution, used by batch/summary views over a tag
// facet's scores.
type NumericSummary struct {
	Count  int
	Mean   float64
	Median float64
	P25    float64
	P75    float64
}

// Summarize computes a NumericSummary over values. An empty input yields
// the zero NumericSummary.
func Summarize(values []float64) (NumericSummary, error) {
	if len(values) == 0 {
		return NumericSummary{}, nil
	}
	mean, err := stats.Mean(values)
	if err != nil {
		return NumericSummary{}, meridianerr.Wrap(meridianerr.Other, "search: compute mean", err)
	}
	median, err := stats.Median(values)
	if err != nil {
		return NumericSummary{}, meridianerr.Wrap(meridianerr.Other, "search: compute median", err)
	}
	p25, err := stats.Percentile(values, 25)
	if err != nil {
		return NumericSummary{}, meridianerr.Wrap(meridianerr.Other, "search: compute p25", err)
	}
	p75, err := stats.Percentile(values, 75)
	if err != nil {
		return NumericSummary{}, meridianerr.Wrap(meridianerr.Other, "search: compute p75", err)
	}
	return NumericSummary{
		Count:  len(values),
		Mean:   mean,
		Median: median,
		P25:    p25,
		P75:    p75,
	}, nil
}

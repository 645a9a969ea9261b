package synth

import "github.com/justestif/go-music-muse/internal/query"

type limitKind int

const (
	limitNone limitKind = iota
	limitOne
	limitOffsetOne
	limitOverFetch
)

type shapeKey struct {
	action query.Action
	entity query.EntityType
}

// shape holds the fragments of one query form.
type shape struct {
	columns     []string
	metric      string // appended select expression
	countMetric string // replaces metric when ranking by play count
	where       []string
	groupBy     []string
	order       string
	countOrder  string
	limit       limitKind
}

func (s shape) metricFor(q query.ParsedQuery) string {
	if q.UseCount() && s.countMetric != "" {
		return s.countMetric
	}
	return s.metric
}

func (s shape) orderFor(q query.ParsedQuery) string {
	if q.UseCount() && s.countOrder != "" {
		return s.countOrder
	}
	return s.order
}

type entityColumns struct {
	selects []string
	groupBy []string
}

var entityCols = map[query.EntityType]entityColumns{
	query.EntityArtist: {
		selects: []string{"ar.artist_name AS entity"},
		groupBy: []string{"ar.artist_name"},
	},
	query.EntityTrack: {
		selects: []string{"t.track_name AS entity", "ar.artist_name AS sub_entity"},
		groupBy: []string{"t.track_name", "ar.artist_name"},
	},
	query.EntityAlbum: {
		selects: []string{"a.album_name AS entity", "ar.artist_name AS sub_entity"},
		groupBy: []string{"a.album_name", "ar.artist_name"},
	},
}

// shapes is the query form for every (action, entity) pair.
var shapes = buildShapes()

func buildShapes() map[shapeKey]shape {
	table := make(map[shapeKey]shape)
	for entity, ec := range entityCols {
		chronological := func(order string, limit limitKind) shape {
			return shape{
				columns: append(append([]string(nil), ec.selects...), "lh.timestamp AS listened_at"),
				order:   order,
				limit:   limit,
			}
		}
		table[shapeKey{query.ActionFirst, entity}] = chronological("lh.timestamp ASC", limitOne)
		table[shapeKey{query.ActionLast, entity}] = chronological("lh.timestamp DESC", limitOne)
		table[shapeKey{query.ActionNth, entity}] = chronological("lh.timestamp ASC", limitOffsetOne)

		table[shapeKey{query.ActionPercentage, entity}] = shape{
			columns: []string{
				"COUNT(*) FILTER (WHERE lh.skipped = TRUE) AS skipped_count",
				"COUNT(*) AS total_count",
			},
		}

		table[shapeKey{query.ActionSkipped, entity}] = shape{
			columns: ec.selects,
			metric:  "COUNT(*) AS skip_count",
			where:   []string{"lh.skipped = TRUE"},
			groupBy: ec.groupBy,
			order:   "skip_count DESC",
			limit:   limitOverFetch,
		}
		table[shapeKey{query.ActionTop, entity}] = shape{
			columns:     ec.selects,
			metric:      "SUM(lh.ms_played)::bigint AS total_ms",
			countMetric: "COUNT(*) AS play_count",
			groupBy:     ec.groupBy,
			order:       "total_ms DESC",
			countOrder:  "play_count DESC",
			limit:       limitOverFetch,
		}
	}
	return table
}

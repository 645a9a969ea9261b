// Package synth maps a ParsedQuery to one parameterized SQL statement.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
)

// ErrUnsupportedShape is returned when no shape exists for an action and entity.
var ErrUnsupportedShape = errors.New("unsupported query shape")

// OverFetchFactor multiplies the requested limit of ranked queries so that
// placeholder rows can be dropped without a second round trip.
const OverFetchFactor = 2

var tracer = otel.Tracer("music-muse.synth")

const baseJoin = `FROM listening_history lh
JOIN tracks t ON lh.track_id = t.track_id
JOIN albums a ON t.album_id = a.album_id
JOIN artists ar ON a.artist_id = ar.artist_id`

// Statement is a query ready to run.
type Statement struct {
	SQL  string
	Args []any
}

func (s Statement) String() string {
	return fmt.Sprintf("%s %v", strings.Join(strings.Fields(s.SQL), " "), s.Args)
}

// Build synthesizes the statement for q. A non-empty userID restricts rows to
// that user.
func Build(ctx context.Context, q query.ParsedQuery, userID string) (Statement, error) {
	start := time.Now()
	_, span := tracer.Start(ctx, "synth.Build")
	defer span.End()
	defer func() {
		metrics.StageDuration.WithLabelValues("synthesize").Observe(time.Since(start).Seconds())
	}()

	sh, ok := shapes[shapeKey{q.Action(), q.Entity()}]
	if !ok {
		return Statement{}, fmt.Errorf("%w: %s/%s", ErrUnsupportedShape, q.Action(), q.Entity())
	}

	wb := predicates(q, userID)
	for _, clause := range sh.where {
		wb.add(clause)
	}

	stmt := assemble(sh, q, wb)
	span.SetAttributes(
		attribute.String("action", string(q.Action())),
		attribute.String("entity", string(q.Entity())),
		attribute.Int("args", len(stmt.Args)),
	)
	return stmt, nil
}

// predicates turns every active constraint into a bound WHERE clause.
func predicates(q query.ParsedQuery, userID string) *whereBuilder {
	wb := &whereBuilder{}
	if userID != "" {
		wb.add("lh.user_id = ?", userID)
	}

	tc := q.Time()
	if tc.Year != nil {
		wb.add("EXTRACT(YEAR FROM lh.timestamp) = ?", *tc.Year)
	}
	if tc.Since != nil {
		wb.add("lh.timestamp >= ?", *tc.Since)
	}
	if tc.Weekday != nil {
		wb.add("EXTRACT(DOW FROM lh.timestamp) = ?", *tc.Weekday)
	}
	if tc.HourAfter != nil {
		wb.add("EXTRACT(HOUR FROM lh.timestamp) >= ?", *tc.HourAfter)
	}
	if tc.HourUntil != nil {
		wb.add("EXTRACT(HOUR FROM lh.timestamp) < ?", *tc.HourUntil)
	}
	if tc.Month != nil {
		wb.add("EXTRACT(MONTH FROM lh.timestamp) = ?", *tc.Month)
	} else if months := tc.Season.Months(); months != nil {
		wb.in("EXTRACT(MONTH FROM lh.timestamp)", months)
	}
	if start, end, ok := q.EventWindow(); ok {
		wb.add("lh.timestamp >= ?", start)
		wb.add("lh.timestamp < ?", end.AddDate(0, 0, 1))
	}

	f := q.Filters()
	if f.Name != "" {
		wb.add("ar.artist_name ILIKE ? ESCAPE '\\'", contains(f.Name))
	}
	if f.Platform != "" {
		wb.add("lh.platform ILIKE ? ESCAPE '\\'", contains(f.Platform))
	}
	if f.Country != "" {
		wb.add("lh.country ILIKE ? ESCAPE '\\'", contains(f.Country))
	}
	if f.Shuffle != nil {
		wb.add("lh.shuffle = ?", *f.Shuffle)
	}
	if f.Mood != "" {
		wb.add("lh.moods ILIKE ? ESCAPE '\\'", contains(f.Mood))
	}
	if f.ReasonStart != "" {
		wb.add("lh.reason_start ILIKE ? ESCAPE '\\'", contains(f.ReasonStart))
	}
	return wb
}

// assemble joins a shape's fragments with the bound predicates.
func assemble(sh shape, q query.ParsedQuery, wb *whereBuilder) Statement {
	var sb strings.Builder
	args := append([]any(nil), wb.args...)

	cols := append([]string(nil), sh.columns...)
	if metric := sh.metricFor(q); metric != "" {
		cols = append(cols, metric)
	}
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString("\n")
	sb.WriteString(baseJoin)

	if where := wb.build(); where != "" {
		sb.WriteString("\nWHERE ")
		sb.WriteString(where)
	}
	if len(sh.groupBy) > 0 {
		sb.WriteString("\nGROUP BY ")
		sb.WriteString(strings.Join(sh.groupBy, ", "))
		if pc := q.Filters().PlayCount; pc != nil {
			sb.WriteString("\nHAVING COUNT(*) = ?")
			args = append(args, *pc)
		}
	}
	if order := sh.orderFor(q); order != "" {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(order)
	}

	switch sh.limit {
	case limitOne:
		sb.WriteString("\nLIMIT 1")
	case limitOffsetOne:
		sb.WriteString("\nOFFSET ? LIMIT 1")
		args = append(args, q.Offset())
	case limitOverFetch:
		sb.WriteString("\nLIMIT ?")
		args = append(args, q.Limit()*OverFetchFactor)
	}

	return Statement{SQL: rebind(sb.String()), Args: args}
}

// contains builds an ILIKE pattern matching v literally anywhere in the column.
func contains(v string) string {
	return "%" + db.EscapeLike(v) + "%"
}

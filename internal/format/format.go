// Package format renders query results as HTML fragments.
//
// Response never returns an empty string: zero rows, an unresolved event and
// a failed store call all render a message.
package format

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
)

// ErrorRowLabel is the first column of the single row returned when the store
// call failed. The second column holds the message.
const ErrorRowLabel = "Error executing query"

const (
	timestampFormat = "2006-01-02 03:04 PM"
	dateFormat      = "2006-01-02"
)

var placeholders = map[string]bool{
	"unknown artist": true,
	"unknown track":  true,
	"unknown album":  true,
}

// ErrorRow builds the sentinel row for a failed store call.
func ErrorRow(msg string) db.Row {
	return db.Row{ErrorRowLabel, msg}
}

// IsErrorRow reports whether rows is the store failure sentinel and returns its message.
func IsErrorRow(rows []db.Row) (string, bool) {
	if len(rows) != 1 || len(rows[0]) != 2 {
		return "", false
	}
	if label, ok := rows[0][0].(string); !ok || label != ErrorRowLabel {
		return "", false
	}
	return text(rows[0][1]), true
}

// Response renders rows as the answer to q.
func Response(q query.ParsedQuery, rows []db.Row) string {
	if msg, ok := IsErrorRow(rows); ok {
		return "<h2>Sorry, something went wrong while answering your question.</h2>" +
			"<p class='error'>" + html.EscapeString(msg) + "</p>"
	}

	switch q.Action() {
	case query.ActionFirst:
		return firstListen(q, rows)
	case query.ActionLast:
		return lastPlayed(q, rows)
	case query.ActionNth:
		return nthStreamed(q, rows)
	case query.ActionPercentage:
		return skipPercentage(q, rows)
	default:
		return ranked(q, rows)
	}
}

func firstListen(q query.ParsedQuery, rows []db.Row) string {
	if len(rows) == 0 {
		return h2("No matching record found for your first listen query.")
	}
	return h2("You first listened to " + subject(q.Entity(), rows[0]) + " on " + timestamp(rows[0]) + ".")
}

func lastPlayed(q query.ParsedQuery, rows []db.Row) string {
	if len(rows) == 0 {
		return h2("No matching record found for your last played query.")
	}
	return h2(fmt.Sprintf("Your last played %s was %s on %s.",
		q.Entity(), subject(q.Entity(), rows[0]), timestamp(rows[0])))
}

func nthStreamed(q query.ParsedQuery, rows []db.Row) string {
	if len(rows) == 0 {
		return h2(fmt.Sprintf("No matching record found for your %d streamed track query.", q.Ordinal()))
	}
	return h2(fmt.Sprintf("Your %s streamed %s was %s on %s.",
		query.Ordinal(q.Ordinal()), q.Entity(), subject(q.Entity(), rows[0]), timestamp(rows[0])))
}

func skipPercentage(q query.ParsedQuery, rows []db.Row) string {
	if len(rows) == 0 || len(rows[0]) < 2 {
		return h2("No data available to calculate percentage.")
	}
	skipped, ok1 := number(rows[0][0])
	total, ok2 := number(rows[0][1])
	if !ok1 || !ok2 || total == 0 {
		return h2("No data available to calculate percentage.")
	}

	scope := "my"
	if name := q.Filters().Name; name != "" {
		scope = "my " + html.EscapeString(name)
	}
	return h2(fmt.Sprintf("%.2f%% of %s plays were skipped.", skipped/total*100, scope))
}

func ranked(q query.ParsedQuery, rows []db.Row) string {
	header := Header(q)
	valid := Valid(q.Entity(), rows)
	if len(valid) > q.Limit() {
		valid = valid[:q.Limit()]
	}

	var sb strings.Builder
	sb.WriteString(h2(html.EscapeString(header)))

	if len(valid) == 0 {
		if ev, ok := q.Event(); ok && ev.Resolved {
			sb.WriteString(h2(fmt.Sprintf("No listening data found during %s (%s to %s).",
				html.EscapeString(ev.Name), ev.Start.Format(dateFormat), ev.End.Format(dateFormat))))
		} else {
			sb.WriteString(h2("No results found for your query."))
		}
		return sb.String()
	}

	sb.WriteString("<ul class='result-list'>")
	for _, row := range valid {
		sb.WriteString("<li>")
		switch q.Entity() {
		case query.EntityTrack:
			sb.WriteString(span("track-name", cell(row, 0)) + " by " + span("artist-name", cell(row, 1)))
		case query.EntityAlbum:
			sb.WriteString(span("album-name", cell(row, 0)) + " by " + span("artist-name", cell(row, 1)))
		default:
			sb.WriteString(span("artist-name", cell(row, 0)))
		}
		sb.WriteString("</li>")
	}
	sb.WriteString("</ul>")
	return sb.String()
}

// Header describes a ranked query with every active constraint, e.g.
// "Your top songs on Fridays in 2023 after 8PM:".
func Header(q query.ParsedQuery) string {
	var conds []string
	tc := q.Time()
	f := q.Filters()

	if tc.Weekday != nil {
		conds = append(conds, "on "+query.WeekdayName(*tc.Weekday))
	}
	if tc.Year != nil {
		conds = append(conds, fmt.Sprintf("in %d", *tc.Year))
	}
	if tc.Window != "" {
		conds = append(conds, tc.Window.Label())
	}
	switch {
	case tc.HourAfter != nil && tc.HourUntil != nil:
		conds = append(conds, "between "+query.FormatHour(*tc.HourAfter)+" and "+query.FormatHour(*tc.HourUntil))
	case tc.HourAfter != nil:
		conds = append(conds, "after "+query.FormatHour(*tc.HourAfter))
	case tc.HourUntil != nil:
		conds = append(conds, "before "+query.FormatHour(*tc.HourUntil))
	}
	if tc.Month != nil {
		conds = append(conds, "in "+query.MonthName(*tc.Month))
	} else if tc.Season != "" {
		conds = append(conds, "during "+string(tc.Season))
	}
	if f.Platform != "" {
		conds = append(conds, "on "+capitalize(f.Platform))
	}
	if f.Country != "" {
		conds = append(conds, "in "+capitalize(f.Country))
	}
	if f.Mood != "" {
		conds = append(conds, "with a "+f.Mood+" mood")
	}
	if f.ReasonStart != "" {
		conds = append(conds, "started via "+f.ReasonStart)
	}
	if ev, ok := q.Event(); ok && ev.Resolved {
		conds = append(conds, "during "+ev.Name)
	}

	verb := "top"
	if q.Action() == query.ActionSkipped {
		verb = "most skipped"
	}
	header := "Your " + verb + " " + q.Entity().Plural()
	if len(conds) > 0 {
		header += " " + strings.Join(conds, " ")
	}
	return header + ":"
}

// Valid drops rows whose name columns hold a placeholder such as "Unknown Artist".
func Valid(entity query.EntityType, rows []db.Row) []db.Row {
	names := 2
	if entity == query.EntityArtist {
		names = 1
	}

	valid := make([]db.Row, 0, len(rows))
	for _, row := range rows {
		if isPlaceholder(row, names) {
			metrics.PlaceholderRowsDropped.Inc()
			continue
		}
		valid = append(valid, row)
	}
	return valid
}

func isPlaceholder(row db.Row, names int) bool {
	for i := 0; i < names && i < len(row); i++ {
		if s, ok := row[i].(string); ok && placeholders[strings.ToLower(strings.TrimSpace(s))] {
			return true
		}
	}
	return false
}

// subject renders "Name" for artists and "Name by Artist" otherwise.
func subject(entity query.EntityType, row db.Row) string {
	if entity == query.EntityArtist || len(row) < 3 {
		return html.EscapeString(cell(row, 0))
	}
	return html.EscapeString(cell(row, 0)) + " by " + html.EscapeString(cell(row, 1))
}

// timestamp formats the last column of a chronological row.
func timestamp(row db.Row) string {
	if len(row) == 0 {
		return ""
	}
	if ts, ok := row[len(row)-1].(time.Time); ok {
		return ts.Format(timestampFormat)
	}
	return html.EscapeString(text(row[len(row)-1]))
}

func cell(row db.Row, i int) string {
	if i >= len(row) {
		return ""
	}
	return text(row[i])
}

func text(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

func number(v any) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	case int:
		return float64(x), true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	default:
		return 0, false
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func span(class, value string) string {
	return "<span class='" + class + "'>" + html.EscapeString(value) + "</span>"
}

func h2(s string) string {
	return "<h2>" + s + "</h2>"
}

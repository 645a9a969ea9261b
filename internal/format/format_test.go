package format

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
)

func intp(v int) *int { return &v }

var listenedAt = time.Date(2019, 3, 14, 21, 5, 0, 0, time.UTC)

func TestResponseChronological(t *testing.T) {
	tests := []struct {
		name string
		q    query.ParsedQuery
		rows []db.Row
		want string
	}{
		{
			name: "first artist",
			q:    query.NewBuilder("").Action(query.ActionFirst).Build(),
			rows: []db.Row{{"Frank Ocean", listenedAt}},
			want: "<h2>You first listened to Frank Ocean on 2019-03-14 09:05 PM.</h2>",
		},
		{
			name: "first track",
			q:    query.NewBuilder("").Action(query.ActionFirst).Entity(query.EntityTrack).Build(),
			rows: []db.Row{{"Nights", "Frank Ocean", listenedAt}},
			want: "<h2>You first listened to Nights by Frank Ocean on 2019-03-14 09:05 PM.</h2>",
		},
		{
			name: "first empty",
			q:    query.NewBuilder("").Action(query.ActionFirst).Build(),
			want: "<h2>No matching record found for your first listen query.</h2>",
		},
		{
			name: "last album",
			q:    query.NewBuilder("").Action(query.ActionLast).Entity(query.EntityAlbum).Build(),
			rows: []db.Row{{"Blonde", "Frank Ocean", listenedAt}},
			want: "<h2>Your last played album was Blonde by Frank Ocean on 2019-03-14 09:05 PM.</h2>",
		},
		{
			name: "last empty",
			q:    query.NewBuilder("").Action(query.ActionLast).Build(),
			want: "<h2>No matching record found for your last played query.</h2>",
		},
		{
			name: "nth track",
			q:    query.NewBuilder("").Action(query.ActionNth).Ordinal(22).Entity(query.EntityTrack).Build(),
			rows: []db.Row{{"Pink + White", "Frank Ocean", listenedAt}},
			want: "<h2>Your 22nd streamed track was Pink + White by Frank Ocean on 2019-03-14 09:05 PM.</h2>",
		},
		{
			name: "nth empty",
			q:    query.NewBuilder("").Action(query.ActionNth).Ordinal(50).Build(),
			want: "<h2>No matching record found for your 50 streamed track query.</h2>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Response(tt.q, tt.rows); got != tt.want {
				t.Errorf("Response() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponsePercentage(t *testing.T) {
	drake := query.NewBuilder("").
		Action(query.ActionPercentage).
		Filters(query.AttributeFilters{Name: "Drake"}).
		Build()
	all := query.NewBuilder("").Action(query.ActionPercentage).Build()

	tests := []struct {
		name string
		q    query.ParsedQuery
		rows []db.Row
		want string
	}{
		{"with filter", drake, []db.Row{{int64(5), int64(20)}}, "<h2>25.00% of my Drake plays were skipped.</h2>"},
		{"without filter", all, []db.Row{{int64(1), int64(3)}}, "<h2>33.33% of my plays were skipped.</h2>"},
		{"zero total", drake, []db.Row{{int64(0), int64(0)}}, "<h2>No data available to calculate percentage.</h2>"},
		{"no rows", drake, nil, "<h2>No data available to calculate percentage.</h2>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Response(tt.q, tt.rows); got != tt.want {
				t.Errorf("Response() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	tests := []struct {
		name string
		q    query.ParsedQuery
		want string
	}{
		{
			name: "plain",
			q:    query.NewBuilder("").Build(),
			want: "Your top artists:",
		},
		{
			name: "clause order",
			q: query.NewBuilder("").
				Action(query.ActionSkipped).
				Entity(query.EntityTrack).
				Time(query.TimeConstraint{Year: intp(2023), Weekday: intp(5), HourAfter: intp(20), Season: query.SeasonSummer}).
				Filters(query.AttributeFilters{Platform: "ios", Country: "mexico", Mood: "chill", ReasonStart: "playlist"}).
				Build(),
			want: "Your most skipped songs on Fridays in 2023 after 8PM during summer on Ios in Mexico with a chill mood started via playlist:",
		},
		{
			name: "between hours and month",
			q: query.NewBuilder("").
				Entity(query.EntityAlbum).
				Time(query.TimeConstraint{HourAfter: intp(0), HourUntil: intp(12), Month: intp(3)}).
				Build(),
			want: "Your top albums between 12AM and 12PM in March:",
		},
		{
			name: "before only",
			q:    query.NewBuilder("").Time(query.TimeConstraint{HourUntil: intp(8)}).Build(),
			want: "Your top artists before 8AM:",
		},
		{
			name: "past month",
			q: query.NewBuilder("").
				Entity(query.EntityTrack).
				Time(query.TimeConstraint{Window: query.WindowPastMonth, HourAfter: intp(20)}).
				Build(),
			want: "Your top songs in the past month after 8PM:",
		},
		{
			name: "resolved event",
			q: query.NewBuilder("").
				Event(query.EventContext{Name: "Semester Abroad", Resolved: true}).
				Build(),
			want: "Your top artists during Semester Abroad:",
		},
		{
			name: "unresolved event omitted",
			q:    query.NewBuilder("").Event(query.EventContext{Name: "semester abroad"}).Build(),
			want: "Your top artists:",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Header(tt.q); got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResponseRankedDropsPlaceholders(t *testing.T) {
	q := query.NewBuilder("").Entity(query.EntityTrack).Limit(2).Build()
	rows := []db.Row{
		{"Unknown Track", "Frank Ocean", int64(900)},
		{"Nights", "Frank Ocean", int64(800)},
		{"Ivy", " unknown artist ", int64(700)},
		{"Solo", "Frank Ocean", int64(600)},
		{"Self Control", "Frank Ocean", int64(500)},
	}
	before := testutil.ToFloat64(metrics.PlaceholderRowsDropped)

	got := Response(q, rows)

	want := "<h2>Your top songs:</h2><ul class='result-list'>" +
		"<li><span class='track-name'>Nights</span> by <span class='artist-name'>Frank Ocean</span></li>" +
		"<li><span class='track-name'>Solo</span> by <span class='artist-name'>Frank Ocean</span></li>" +
		"</ul>"
	if got != want {
		t.Errorf("Response() =\n%s\nwant\n%s", got, want)
	}
	if delta := testutil.ToFloat64(metrics.PlaceholderRowsDropped) - before; delta != 2 {
		t.Errorf("placeholder rows dropped = %v, want 2", delta)
	}
}

func TestResponseRankedArtists(t *testing.T) {
	q := query.NewBuilder("").Build()
	got := Response(q, []db.Row{{"Unknown Artist", int64(10)}, {"SZA", int64(5)}})
	want := "<h2>Your top artists:</h2><ul class='result-list'><li><span class='artist-name'>SZA</span></li></ul>"
	if got != want {
		t.Errorf("Response() = %q, want %q", got, want)
	}
}

func TestResponseRankedEmpty(t *testing.T) {
	resolved := query.NewBuilder("").
		Entity(query.EntityTrack).
		Event(query.EventContext{
			Name:     "Semester Abroad",
			Resolved: true,
			Start:    time.Date(2021, 8, 20, 0, 0, 0, 0, time.UTC),
			End:      time.Date(2021, 12, 15, 0, 0, 0, 0, time.UTC),
		}).
		Build()

	got := Response(resolved, nil)
	if !strings.Contains(got, "No listening data found during Semester Abroad (2021-08-20 to 2021-12-15).") {
		t.Errorf("Response() = %q, want event window message", got)
	}

	got = Response(query.NewBuilder("").Build(), []db.Row{{"Unknown Artist", int64(1)}})
	want := "<h2>Your top artists:</h2><h2>No results found for your query.</h2>"
	if got != want {
		t.Errorf("Response() = %q, want %q", got, want)
	}
}

func TestResponseErrorRow(t *testing.T) {
	q := query.NewBuilder("").Build()
	got := Response(q, []db.Row{ErrorRow("relation <x> does not exist")})
	want := "<h2>Sorry, something went wrong while answering your question.</h2>" +
		"<p class='error'>relation &lt;x&gt; does not exist</p>"
	if got != want {
		t.Errorf("Response() = %q, want %q", got, want)
	}
}

func TestResponseEscapesValues(t *testing.T) {
	q := query.NewBuilder("").Build()
	got := Response(q, []db.Row{{"<script>alert(1)</script>", int64(1)}})
	if strings.Contains(got, "<script>") {
		t.Errorf("Response() did not escape: %s", got)
	}
}

func TestResponseNeverEmpty(t *testing.T) {
	actions := []query.Action{
		query.ActionTop, query.ActionSkipped, query.ActionFirst,
		query.ActionLast, query.ActionNth, query.ActionPercentage,
	}
	for _, a := range actions {
		q := query.NewBuilder("").Action(a).Ordinal(1).Build()
		for _, rows := range [][]db.Row{nil, {}, {{}}} {
			if got := Response(q, rows); got == "" {
				t.Errorf("Response(%s, %v) is empty", a, rows)
			}
		}
	}
}

func TestIsErrorRow(t *testing.T) {
	if _, ok := IsErrorRow([]db.Row{{"Nights", "Frank Ocean"}}); ok {
		t.Error("IsErrorRow() matched a data row")
	}
	if msg, ok := IsErrorRow([]db.Row{ErrorRow("boom")}); !ok || msg != "boom" {
		t.Errorf("IsErrorRow() = %q, %v", msg, ok)
	}
}

// Package query defines the parsed representation of a listening-history question.
package query

import (
	"time"
)

// Limits applied to ranked answers.
const (
	DefaultLimit = 5
	MaxLimit     = 20
)

// EntityType is the noun class a question is about.
type EntityType string

const (
	EntityArtist EntityType = "artist"
	EntityTrack  EntityType = "track"
	EntityAlbum  EntityType = "album"
)

// Plural returns the word used for the entity in ranked headers.
func (e EntityType) Plural() string {
	switch e {
	case EntityTrack:
		return "songs"
	case EntityAlbum:
		return "albums"
	default:
		return "artists"
	}
}

// Action is what the question asks for.
type Action string

const (
	ActionTop        Action = "top"
	ActionSkipped    Action = "skipped"
	ActionFirst      Action = "first"
	ActionLast       Action = "last"
	ActionNth        Action = "nth"
	ActionPercentage Action = "percentage"
)

// Ranked reports whether the action produces a grouped, ranked list.
func (a Action) Ranked() bool {
	return a == ActionTop || a == ActionSkipped
}

// Season is a named quarter of the year.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonFall   Season = "fall"
	SeasonWinter Season = "winter"
)

var seasonMonths = map[Season][]int{
	SeasonSpring: {3, 4, 5},
	SeasonSummer: {6, 7, 8},
	SeasonFall:   {9, 10, 11},
	SeasonWinter: {12, 1, 2},
}

// Months returns the calendar months of the season, or nil for an unknown season.
func (s Season) Months() []int {
	return seasonMonths[s]
}

// Window is a rolling period that ends today.
type Window string

const (
	WindowPastWeek  Window = "past_week"
	WindowPastMonth Window = "past_month"
)

// Label returns the header clause for the window.
func (w Window) Label() string {
	switch w {
	case WindowPastWeek:
		return "in the past week"
	case WindowPastMonth:
		return "in the past month"
	default:
		return ""
	}
}

// TimeConstraint limits which listening events count. Nil fields are unconstrained.
type TimeConstraint struct {
	Year      *int
	Window    Window
	Since     *time.Time // first day of Window, inclusive
	Month     *int // 1-12; exclusive with Season
	Season    Season
	Weekday   *int // Sunday=0
	HourAfter *int // inclusive lower bound
	HourUntil *int // exclusive upper bound
}

// AttributeFilters are independent AND-ed predicates on listening events.
type AttributeFilters struct {
	Name        string // artist-name substring
	Platform    string
	Country     string
	Mood        string
	Shuffle     *bool
	ReasonStart string
	PlayCount   *int // exact count, grouped queries only
}

// EventContext is a named life event referenced by a question.
type EventContext struct {
	Name        string
	Resolved    bool
	Start       time.Time
	End         time.Time
	Description string
}

// ParsedQuery is the immutable result of parsing one question.
// Create it with a Builder.
type ParsedQuery struct {
	original string
	action   Action
	entity   EntityType
	ordinal  int
	time     TimeConstraint
	filters  AttributeFilters
	event    *EventContext
	limit    int
	useCount bool
	fired    []string
}

// Original returns the question text as asked.
func (q ParsedQuery) Original() string { return q.original }

// Action returns the resolved action.
func (q ParsedQuery) Action() Action { return q.action }

// Entity returns the entity type.
func (q ParsedQuery) Entity() EntityType { return q.entity }

// Ordinal returns the 1-based ordinal of an Nth query, or 0.
func (q ParsedQuery) Ordinal() int { return q.ordinal }

// Offset returns the 0-based row offset of an Nth query.
func (q ParsedQuery) Offset() int {
	if q.ordinal < 1 {
		return 0
	}
	return q.ordinal - 1
}

// Time returns a copy of the time constraint.
func (q ParsedQuery) Time() TimeConstraint {
	t := q.time
	t.Year = copyInt(t.Year)
	t.Month = copyInt(t.Month)
	t.Weekday = copyInt(t.Weekday)
	t.HourAfter = copyInt(t.HourAfter)
	t.HourUntil = copyInt(t.HourUntil)
	if t.Since != nil {
		since := *t.Since
		t.Since = &since
	}
	return t
}

// Filters returns a copy of the attribute filters.
func (q ParsedQuery) Filters() AttributeFilters {
	f := q.filters
	f.PlayCount = copyInt(f.PlayCount)
	if f.Shuffle != nil {
		v := *f.Shuffle
		f.Shuffle = &v
	}
	return f
}

// Event returns the event context and whether the question referenced one.
func (q ParsedQuery) Event() (EventContext, bool) {
	if q.event == nil {
		return EventContext{}, false
	}
	return *q.event, true
}

// EventWindow returns the resolved event date range.
func (q ParsedQuery) EventWindow() (start, end time.Time, ok bool) {
	if q.event == nil || !q.event.Resolved {
		return time.Time{}, time.Time{}, false
	}
	return q.event.Start, q.event.End, true
}

// Limit returns the number of ranked rows to show, always in [1, MaxLimit].
func (q ParsedQuery) Limit() int { return q.limit }

// UseCount reports whether ranking is by play count instead of listening time.
func (q ParsedQuery) UseCount() bool { return q.useCount }

// Fired returns the names of the extraction rules that matched.
func (q ParsedQuery) Fired() []string {
	return append([]string(nil), q.fired...)
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

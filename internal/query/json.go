package query

import (
	"time"

	json "github.com/goccy/go-json"
)

type jsonTime struct {
	Year      *int   `json:"year,omitempty"`
	Window    Window `json:"window,omitempty"`
	Since     string `json:"since,omitempty"`
	Month     *int   `json:"month,omitempty"`
	Season    Season `json:"season,omitempty"`
	Weekday   *int   `json:"weekday,omitempty"`
	HourAfter *int   `json:"hour_after,omitempty"`
	HourUntil *int   `json:"hour_before,omitempty"`
}

type jsonFilters struct {
	Name        string `json:"filter_value,omitempty"`
	Platform    string `json:"platform,omitempty"`
	Country     string `json:"country,omitempty"`
	Mood        string `json:"mood,omitempty"`
	Shuffle     *bool  `json:"shuffle,omitempty"`
	ReasonStart string `json:"reason_start,omitempty"`
	PlayCount   *int   `json:"play_count,omitempty"`
}

type jsonEvent struct {
	Name        string `json:"name"`
	Resolved    bool   `json:"resolved"`
	Start       string `json:"start_date,omitempty"`
	End         string `json:"end_date,omitempty"`
	Description string `json:"description,omitempty"`
}

type jsonQuery struct {
	Query    string      `json:"query"`
	Action   Action      `json:"action"`
	Entity   EntityType  `json:"entity_type"`
	Ordinal  int         `json:"nth,omitempty"`
	Time     jsonTime    `json:"time"`
	Filters  jsonFilters `json:"filters"`
	Event    *jsonEvent  `json:"event,omitempty"`
	Limit    int         `json:"limit"`
	UseCount bool        `json:"use_count"`
	Rules    []string    `json:"rules,omitempty"`
}

// MarshalJSON renders the query as an intent object.
func (q ParsedQuery) MarshalJSON() ([]byte, error) {
	t := q.Time()
	f := q.Filters()
	out := jsonQuery{
		Query:   q.original,
		Action:  q.action,
		Entity:  q.entity,
		Ordinal: q.ordinal,
		Time: jsonTime{
			Year:      t.Year,
			Window:    t.Window,
			Month:     t.Month,
			Season:    t.Season,
			Weekday:   t.Weekday,
			HourAfter: t.HourAfter,
			HourUntil: t.HourUntil,
		},
		Filters: jsonFilters{
			Name:        f.Name,
			Platform:    f.Platform,
			Country:     f.Country,
			Mood:        f.Mood,
			Shuffle:     f.Shuffle,
			ReasonStart: f.ReasonStart,
			PlayCount:   f.PlayCount,
		},
		Limit:    q.limit,
		UseCount: q.useCount,
		Rules:    q.Fired(),
	}
	if t.Since != nil {
		out.Time.Since = t.Since.Format(time.DateOnly)
	}
	if ev, ok := q.Event(); ok {
		je := &jsonEvent{Name: ev.Name, Resolved: ev.Resolved, Description: ev.Description}
		if ev.Resolved {
			je.Start = ev.Start.Format(time.DateOnly)
			je.End = ev.End.Format(time.DateOnly)
		}
		out.Event = je
	}
	return json.Marshal(out)
}

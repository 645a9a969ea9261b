package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/justestif/go-music-muse/internal/query"
)

// Rule order is part of the contract. Later action rules override earlier ones,
// giving ordinal < percentage < last < first < skip/top default.
func defaultRules(now func() time.Time) []Rule {
	return []Rule{
		{Name: "time_between", Match: matchBetween},
		{Name: "year", Match: matchYear},
		{Name: "this_year", Match: thisYear(now)},
		{Name: "relative_window", Match: relativeWindow(now)},
		{Name: "all_time", Match: matchAllTime},
		{Name: "month", Match: matchMonth},
		{Name: "weekday", Match: matchWeekday},
		{Name: "time_after", Match: matchAfter},
		{Name: "time_before", Match: matchBefore},
		{Name: "season", Match: matchSeason},
		{Name: "ordinal", Match: matchOrdinal},
		{Name: "percentage", Match: matchPercentage},
		{Name: "last", Match: matchLast},
		{Name: "first", Match: matchFirst},
		{Name: "default_action", Match: matchDefaultAction},
		{Name: "entity", Match: matchEntity},
		{Name: "filter_by", Match: matchByFilter},
		{Name: "filter_which", Match: matchWhichFilter},
		{Name: "filter_favorite", Match: matchFavoriteFilter},
		{Name: "platform", Match: matchPlatform},
		{Name: "country", Match: matchCountry},
		{Name: "shuffle", Match: matchShuffle},
		{Name: "mood", Match: matchMood},
		{Name: "reason_start", Match: matchReasonStart},
		{Name: "play_count", Match: matchPlayCount},
		{Name: "limit", Match: matchLimit},
		{Name: "limit_singular", Match: matchSingular},
		{Name: "limit_favorite", Match: matchFavoriteLimit},
		{Name: "use_count", Match: matchUseCount},
		{Name: "event", Match: matchEvent},
	}
}

var (
	betweenRe = regexp.MustCompile(`between\s+(\d{1,2})(?::\d{2})?\s*(am|pm)\s+and\s+(\d{1,2})(?::\d{2})?\s*(am|pm)`)
	afterRe   = regexp.MustCompile(`\bafter\s+(\d{1,2})(?::\d{2})?\s*(am|pm)?\b`)
	beforeRe  = regexp.MustCompile(`\bbefore\s+(\d{1,2})(?::\d{2})?\s*(am|pm)?\b`)
	yearRe    = regexp.MustCompile(`\b(20\d{2})\b`)

	ordinalRe       = regexp.MustCompile(`\b(\d+)(?:st|nd|rd|th)\b`)
	ordinalFilterRe = regexp.MustCompile(`\d+(?:st|nd|rd|th)\s+([a-z\s]+?)\s+(?:song|track|album)`)
	percentFilterRe = regexp.MustCompile(`percentage.*of my\s+([a-z\s]+?)\s+plays`)

	lastRe        = regexp.MustCompile(`\b(?:last(?:\s+time\s+i)?\s+(?:listen(?:ed)?|played|heard)|most\s+recent(?:ly)?\s+(?:listen(?:ed)?|played))\b`)
	lastFilterRe  = regexp.MustCompile(`last(?:\s+time\s+i)?\s+listen(?:ed)?\s+to\s+(.+?)(?:\s+from|$)`)
	firstFilterRe = regexp.MustCompile(`first listen(?:ed)? to\s+(.+?)(?:\s+from|$)`)
	fromRe        = regexp.MustCompile(`from\s+(.+)`)
	firstEntityRe = regexp.MustCompile(`first\s+(.+?)\s+(?:song|track)`)
	punctRe       = regexp.MustCompile(`[^\w\s]`)

	byNameRe    = regexp.MustCompile(`\bby\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	fromNameRe  = regexp.MustCompile(`\bfrom\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)`)
	whichRe     = regexp.MustCompile(`(?:what|which)\s+([a-z]+(?:\s+[a-z]+){0,3})\s+(?:song|track|album)`)
	favoriteRe  = regexp.MustCompile(`my favorite\s+([a-z\s]+?)\s+(?:song|track|album)`)
	playCountRe = regexp.MustCompile(`exactly\s+(\d+)\s+times?`)

	limitRe    = regexp.MustCompile(`\b(?:top|skipped|most listened|most played|streamed|replay|replayed|favorite|binge-listen)\s+(\d+)`)
	altLimitRe = regexp.MustCompile(`what\s+(\d+)\s+(?:tracks|albums|artists|songs)`)

	eventRe = regexp.MustCompile(`\bduring\s+(?:my|the)\s+([a-z0-9'\- ]+?)\s*(?:\b(?:event|period|time|in|on|at|after|before|between|from|by|with|when|while)\b|[?.!,;]|$)`)
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

var weekdayNames = []string{
	"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday",
}

var (
	monthRes   = wordPatterns(monthNames, "")
	weekdayRes = wordPatterns(weekdayNames, "s?")
)

var seasonWords = []struct {
	words  []string
	season query.Season
}{
	{[]string{"summer"}, query.SeasonSummer},
	{[]string{"winter"}, query.SeasonWinter},
	{[]string{"fall", "autumn"}, query.SeasonFall},
	{[]string{"spring"}, query.SeasonSpring},
}

var (
	platforms = []string{"ios", "android", "spotify", "apple music", "youtube", "soundcloud", "pandora"}
	countries = []string{"mexico", "uk", "canada", "japan", "usa"}
	moods     = []string{"chill", "sad", "happy", "focus", "high-energy", "workout", "rain", "snow", "holiday", "christmas"}

	platformRes = wordPatterns(platforms, "")
	moodRes     = wordPatterns(moods, "")
)

// Captured spans that are the question's own scaffolding, not names.
var whichStoplist = map[string]bool{
	"are my top":  true,
	"my favorite": true,
	"my top":      true,
}

var scaffoldWords = map[string]bool{
	"are": true, "is": true, "was": true, "were": true, "do": true, "did": true,
	"does": true, "have": true, "has": true, "my": true, "your": true,
	"top": true, "most": true, "favorite": true,
}

func wordPatterns(words []string, suffix string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(words))
	for i, w := range words {
		res[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + suffix + `\b`)
	}
	return res
}

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// toHour converts a clock value to 24-hour form: pm adds 12 unless the hour
// is already 12 or more, am leaves it as written. ok is false past 23.
func toHour(digits, period string) (int, bool) {
	h, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	if period == "pm" && h < 12 {
		h += 12
	}
	if h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func matchBetween(in Input, _ Extraction) Update {
	m := betweenRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	from, ok1 := toHour(m[1], m[2])
	until, ok2 := toHour(m[3], m[4])
	if !ok1 || !ok2 {
		return nil
	}
	return func(e *Extraction) {
		e.Time.HourAfter = intPtr(from)
		e.Time.HourUntil = intPtr(until)
	}
}

func matchYear(in Input, _ Extraction) Update {
	m := yearRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[1])
	return func(e *Extraction) { e.Time.Year = intPtr(year) }
}

func thisYear(now func() time.Time) func(Input, Extraction) Update {
	return func(in Input, cur Extraction) Update {
		if cur.Time.Year != nil || !(strings.Contains(in.Lower, "this year") || strings.Contains(in.Lower, "current year")) {
			return nil
		}
		year := now().Year()
		return func(e *Extraction) { e.Time.Year = intPtr(year) }
	}
}

var relativeWindows = []struct {
	phrases []string
	window  query.Window
	since   func(today time.Time) time.Time
}{
	{[]string{"last week", "past week"}, query.WindowPastWeek, func(d time.Time) time.Time { return d.AddDate(0, 0, -7) }},
	{[]string{"last month", "past month"}, query.WindowPastMonth, func(d time.Time) time.Time { return d.AddDate(0, -1, 0) }},
}

func relativeWindow(now func() time.Time) func(Input, Extraction) Update {
	return func(in Input, _ Extraction) Update {
		for _, rw := range relativeWindows {
			for _, p := range rw.phrases {
				if !containsWord(in.Lower, p) {
					continue
				}
				y, m, d := now().Date()
				since := rw.since(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
				window := rw.window
				return func(e *Extraction) {
					e.Time.Window = window
					e.Time.Since = &since
				}
			}
		}
		return nil
	}
}

// matchAllTime drops every calendar-span constraint found so far.
func matchAllTime(in Input, _ Extraction) Update {
	if !containsWord(in.Lower, "all time") {
		return nil
	}
	return func(e *Extraction) {
		e.Time.Year = nil
		e.Time.Window = ""
		e.Time.Since = nil
	}
}

func matchMonth(in Input, _ Extraction) Update {
	for i, re := range monthRes {
		if re.MatchString(in.Lower) {
			month := i + 1
			return func(e *Extraction) { e.Time.Month = intPtr(month) }
		}
	}
	return nil
}

func matchWeekday(in Input, _ Extraction) Update {
	for i, re := range weekdayRes {
		if re.MatchString(in.Lower) {
			day := i
			return func(e *Extraction) { e.Time.Weekday = intPtr(day) }
		}
	}
	return nil
}

func matchAfter(in Input, cur Extraction) Update {
	if cur.Time.HourAfter != nil {
		return nil
	}
	m := afterRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	h, ok := toHour(m[1], m[2])
	if !ok {
		return nil
	}
	return func(e *Extraction) { e.Time.HourAfter = intPtr(h) }
}

func matchBefore(in Input, cur Extraction) Update {
	if cur.Time.HourUntil != nil {
		return nil
	}
	m := beforeRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	h, ok := toHour(m[1], m[2])
	// hour < 0 matches nothing
	if !ok || h == 0 {
		return nil
	}
	return func(e *Extraction) { e.Time.HourUntil = intPtr(h) }
}

func matchSeason(in Input, _ Extraction) Update {
	for _, s := range seasonWords {
		for _, w := range s.words {
			if containsWord(in.Lower, w) {
				season := s.season
				return func(e *Extraction) { e.Time.Season = season }
			}
		}
	}
	return nil
}

func matchOrdinal(in Input, _ Extraction) Update {
	m := ordinalRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return nil
	}
	var name string
	if fm := ordinalFilterRe.FindStringSubmatch(in.Lower); fm != nil {
		name = strings.TrimSpace(fm[1])
	}
	return func(e *Extraction) {
		e.Action = query.ActionNth
		e.Ordinal = n
		if name != "" {
			e.Filters.Name = name
		}
	}
}

func matchPercentage(in Input, cur Extraction) Update {
	if !strings.Contains(in.Lower, "percentage") {
		return nil
	}
	var name string
	if cur.Filters.Name == "" {
		if m := percentFilterRe.FindStringSubmatch(in.Lower); m != nil {
			name = titleCase(m[1])
		}
	}
	return func(e *Extraction) {
		e.Action = query.ActionPercentage
		if name != "" {
			e.Filters.Name = name
		}
	}
}

func matchLast(in Input, _ Extraction) Update {
	if !lastRe.MatchString(in.Lower) {
		return nil
	}
	var name string
	if m := lastFilterRe.FindStringSubmatch(in.Lower); m != nil {
		name = cleanName(m[1])
	}
	return func(e *Extraction) {
		e.Action = query.ActionLast
		if name != "" {
			e.Filters.Name = name
		}
	}
}

func matchFirst(in Input, cur Extraction) Update {
	lower := in.Lower
	if !strings.Contains(lower, "first listen") && !(strings.Contains(lower, "first") && strings.Contains(lower, "listen")) {
		return nil
	}
	var name string
	if m := firstFilterRe.FindStringSubmatch(lower); m != nil {
		name = cleanName(m[1])
	} else if m := fromRe.FindStringSubmatch(lower); m != nil {
		name = cleanName(m[1])
	}
	if name == "" && cur.Filters.Name == "" {
		if m := firstEntityRe.FindStringSubmatch(lower); m != nil {
			name = strings.TrimSpace(m[1])
		}
	}
	return func(e *Extraction) {
		e.Action = query.ActionFirst
		if name != "" {
			e.Filters.Name = name
		}
	}
}

func cleanName(s string) string {
	s = strings.TrimSpace(punctRe.ReplaceAllString(s, ""))
	if s == "" {
		return ""
	}
	return titleCase(s)
}

func matchDefaultAction(in Input, cur Extraction) Update {
	if cur.Action != "" {
		return nil
	}
	action := query.ActionTop
	if strings.Contains(in.Lower, "skip") {
		action = query.ActionSkipped
	}
	return func(e *Extraction) { e.Action = action }
}

func matchEntity(in Input, _ Extraction) Update {
	entity := query.EntityArtist
	switch {
	case strings.Contains(in.Lower, "artist"):
	case strings.Contains(in.Lower, "track"), strings.Contains(in.Lower, "song"):
		entity = query.EntityTrack
	case strings.Contains(in.Lower, "album"):
		entity = query.EntityAlbum
	}
	return func(e *Extraction) { e.Entity = entity }
}

func matchByFilter(in Input, cur Extraction) Update {
	if cur.Filters.Name != "" {
		return nil
	}
	m := byNameRe.FindStringSubmatch(in.Original)
	if m == nil {
		m = fromNameRe.FindStringSubmatch(in.Original)
	}
	if m == nil {
		return nil
	}
	name := strings.TrimSpace(m[1])
	return func(e *Extraction) { e.Filters.Name = name }
}

func matchWhichFilter(in Input, cur Extraction) Update {
	if cur.Filters.Name != "" || (cur.Entity != query.EntityTrack && cur.Entity != query.EntityAlbum) {
		return nil
	}
	m := whichRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	candidate := strings.TrimSpace(m[1])
	if isScaffolding(candidate) {
		return nil
	}
	name := titleCase(candidate)
	return func(e *Extraction) { e.Filters.Name = name }
}

func isScaffolding(candidate string) bool {
	if whichStoplist[candidate] {
		return true
	}
	words := strings.Fields(candidate)
	if len(words) == 0 || scaffoldWords[words[0]] {
		return true
	}
	for _, w := range words {
		if w == "my" {
			return true
		}
	}
	return false
}

func matchFavoriteFilter(in Input, cur Extraction) Update {
	if cur.Filters.Name != "" || !strings.Contains(in.Lower, "my favorite") {
		return nil
	}
	m := favoriteRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	name := titleCase(m[1])
	return func(e *Extraction) { e.Filters.Name = name }
}

func matchPlatform(in Input, _ Extraction) Update {
	for i, re := range platformRes {
		if re.MatchString(in.Lower) {
			platform := platforms[i]
			return func(e *Extraction) { e.Filters.Platform = platform }
		}
	}
	return nil
}

func matchCountry(in Input, _ Extraction) Update {
	for _, c := range countries {
		if containsWord(in.Lower, "in "+c) {
			country := c
			return func(e *Extraction) { e.Filters.Country = country }
		}
	}
	return nil
}

func matchShuffle(in Input, _ Extraction) Update {
	if !strings.Contains(in.Lower, "shuffle") {
		return nil
	}
	on := true
	for _, neg := range []string{"not shuffle", "without shuffle", "no shuffle"} {
		if strings.Contains(in.Lower, neg) {
			on = false
			break
		}
	}
	return func(e *Extraction) { e.Filters.Shuffle = boolPtr(on) }
}

func matchMood(in Input, _ Extraction) Update {
	for i, re := range moodRes {
		if re.MatchString(in.Lower) {
			mood := moods[i]
			return func(e *Extraction) { e.Filters.Mood = mood }
		}
	}
	return nil
}

func matchReasonStart(in Input, _ Extraction) Update {
	var reason string
	switch {
	case strings.Contains(in.Lower, "playlist"):
		reason = "playlist"
	case strings.Contains(in.Lower, "voice command"):
		reason = "voice command"
	default:
		return nil
	}
	return func(e *Extraction) { e.Filters.ReasonStart = reason }
}

func matchPlayCount(in Input, _ Extraction) Update {
	m := playCountRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return func(e *Extraction) { e.Filters.PlayCount = intPtr(n) }
}

func matchLimit(in Input, _ Extraction) Update {
	m := limitRe.FindStringSubmatch(in.Lower)
	if m == nil {
		m = altLimitRe.FindStringSubmatch(in.Lower)
	}
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		n = query.MaxLimit
	}
	return func(e *Extraction) {
		e.Limit = query.ClampLimit(n)
		e.ExplicitLimit = true
	}
}

var singularNouns = map[query.EntityType][2]*regexp.Regexp{
	query.EntityTrack:  {regexp.MustCompile(`\b(?:song|track)\b`), regexp.MustCompile(`\b(?:songs|tracks)\b`)},
	query.EntityAlbum:  {regexp.MustCompile(`\balbum\b`), regexp.MustCompile(`\balbums\b`)},
	query.EntityArtist: {regexp.MustCompile(`\bartist\b`), regexp.MustCompile(`\bartists\b`)},
}

func matchSingular(in Input, cur Extraction) Update {
	if cur.ExplicitLimit {
		return nil
	}
	nouns, ok := singularNouns[cur.Entity]
	if !ok || !nouns[0].MatchString(in.Lower) || nouns[1].MatchString(in.Lower) {
		return nil
	}
	return func(e *Extraction) { e.Limit = 1 }
}

func matchFavoriteLimit(in Input, cur Extraction) Update {
	if cur.ExplicitLimit || !strings.Contains(in.Lower, "favorite") {
		return nil
	}
	return func(e *Extraction) { e.Limit = query.DefaultLimit }
}

func matchUseCount(in Input, _ Extraction) Update {
	for _, p := range []string{"most times", "most frequently", "most often"} {
		if strings.Contains(in.Lower, p) {
			return func(e *Extraction) { e.UseCount = true }
		}
	}
	return nil
}

func matchEvent(in Input, _ Extraction) Update {
	m := eventRe.FindStringSubmatch(in.Lower)
	if m == nil {
		return nil
	}
	phrase := strings.Join(strings.Fields(m[1]), " ")
	if phrase == "" || eventNouns[phrase] || isCalendarPhrase(phrase) {
		return nil
	}
	return func(e *Extraction) { e.EventPhrase = phrase }
}

// eventNouns end an event phrase but are never one on their own.
var eventNouns = map[string]bool{"event": true, "period": true, "time": true}

// isCalendarPhrase reports whether a "during the ..." phrase names a season or
// month rather than a life event.
func isCalendarPhrase(phrase string) bool {
	first := strings.Fields(phrase)[0]
	for _, s := range seasonWords {
		for _, w := range s.words {
			if first == w {
				return true
			}
		}
	}
	for _, m := range monthNames {
		if first == m {
			return true
		}
	}
	return false
}

func containsWord(s, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Package resolve turns extracted fields and life event references into a
// ParsedQuery.
package resolve

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/adrg/strutil"
	strmetrics "github.com/adrg/strutil/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/logging"
	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
)

var tracer = otel.Tracer("music-muse.resolve")

// EventFinder looks up a user's events whose name contains a phrase.
type EventFinder interface {
	FindByName(ctx context.Context, userID, phrase string) ([]db.Event, error)
}

// ContextResolver resolves "during my ..." references to date ranges.
type ContextResolver struct {
	finder  EventFinder
	now     func() time.Time
	timeout time.Duration
}

// Option configures a ContextResolver.
type Option func(*ContextResolver)

// WithClock sets the clock that ends open-ended events.
func WithClock(now func() time.Time) Option {
	return func(r *ContextResolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithTimeout bounds each event lookup. Zero leaves only the caller's deadline.
func WithTimeout(d time.Duration) Option {
	return func(r *ContextResolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewContextResolver creates a resolver. A nil finder never resolves.
func NewContextResolver(finder EventFinder, opts ...Option) *ContextResolver {
	r := &ContextResolver{finder: finder, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve looks up phrase among the user's events. Lookup failures and a
// missing user id leave the event unresolved.
func (r *ContextResolver) Resolve(ctx context.Context, phrase, userID string) query.EventContext {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "resolve.ContextResolver.Resolve")
	defer span.End()
	defer func() {
		metrics.StageDuration.WithLabelValues("resolve_context").Observe(time.Since(start).Seconds())
	}()

	ev := query.EventContext{Name: phrase}
	if userID == "" || r.finder == nil || phrase == "" {
		metrics.EventLookups.WithLabelValues("skipped").Inc()
		return ev
	}

	lookupCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	candidates, err := r.finder.FindByName(lookupCtx, userID, phrase)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event", phrase).Msg("event lookup failed")
		metrics.EventLookups.WithLabelValues("error").Inc()
		return ev
	}
	best, ok := bestMatch(phrase, candidates)
	if !ok {
		metrics.EventLookups.WithLabelValues("unresolved").Inc()
		span.SetAttributes(attribute.Bool("resolved", false))
		return ev
	}

	ev.Name = best.Name
	ev.Resolved = true
	ev.Start = dateOf(best.StartDate)
	if best.EndDate != nil {
		ev.End = dateOf(*best.EndDate)
	} else {
		ev.End = dateOf(r.now())
	}
	if best.Description != nil {
		ev.Description = *best.Description
	}

	metrics.EventLookups.WithLabelValues("resolved").Inc()
	span.SetAttributes(
		attribute.Bool("resolved", true),
		attribute.String("event", ev.Name),
	)
	return ev
}

// bestMatch keeps candidates containing phrase and ranks them by similarity,
// then by shorter name, then by earlier start.
func bestMatch(phrase string, candidates []db.Event) (db.Event, bool) {
	needle := strings.ToLower(strings.TrimSpace(phrase))
	matches := make([]db.Event, 0, len(candidates))
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Name), needle) {
			matches = append(matches, c)
		}
	}
	if len(matches) == 0 {
		return db.Event{}, false
	}

	sort.SliceStable(matches, func(i, j int) bool {
		si := similarity(needle, strings.ToLower(matches[i].Name))
		sj := similarity(needle, strings.ToLower(matches[j].Name))
		if si != sj {
			return si > sj
		}
		if len(matches[i].Name) != len(matches[j].Name) {
			return len(matches[i].Name) < len(matches[j].Name)
		}
		return matches[i].StartDate.Before(matches[j].StartDate)
	})
	return matches[0], true
}

var jaroWinkler = strmetrics.NewJaroWinkler()

// similarity returns the Jaro-Winkler similarity of a and b, in [0, 1].
func similarity(a, b string) float64 {
	return strutil.Similarity(a, b, jaroWinkler)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Package extract turns question text into typed query fields using an ordered
// table of deterministic pattern rules.
package extract

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
)

var tracer = otel.Tracer("music-muse.extract")

// Input is the immutable text a rule inspects.
type Input struct {
	Original string // as asked, used for case-sensitive name spans
	Lower    string // case-folded with unsupported terms removed
}

// Extraction holds the fields found in a question. Nil and zero values mean
// the rule for that field did not fire.
type Extraction struct {
	Action        query.Action
	Entity        query.EntityType
	Ordinal       int
	Time          query.TimeConstraint
	Filters       query.AttributeFilters
	Limit         int
	ExplicitLimit bool
	UseCount      bool
	EventPhrase   string
	Fired         []string
}

// Update is a partial change produced by a rule.
type Update func(*Extraction)

// Rule inspects the input and the extraction so far and returns an update, or
// nil when it does not apply.
type Rule struct {
	Name  string
	Match func(in Input, cur Extraction) Update
}

// Extractor applies rules in order. It is safe for concurrent use.
type Extractor struct {
	rules []Rule
	now   func() time.Time
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the clock used for relative phrases such as "this year".
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an extractor with the default rule table.
func New(opts ...Option) *Extractor {
	e := &Extractor{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	e.rules = defaultRules(e.now)
	return e
}

// Rules returns the rule names in application order.
func (e *Extractor) Rules() []string {
	names := make([]string, len(e.rules))
	for i, r := range e.rules {
		names[i] = r.Name
	}
	return names
}

// Extract runs every rule over text.
func (e *Extractor) Extract(ctx context.Context, text string) Extraction {
	start := time.Now()
	_, span := tracer.Start(ctx, "extract.Extractor.Extract")
	defer span.End()

	in := NewInput(text)
	ext := Extraction{Limit: query.DefaultLimit}
	for _, rule := range e.rules {
		update := rule.Match(in, ext)
		if update == nil {
			continue
		}
		update(&ext)
		ext.Fired = append(ext.Fired, rule.Name)
		metrics.RulesFired.WithLabelValues(rule.Name).Inc()
	}

	span.SetAttributes(
		attribute.String("action", string(ext.Action)),
		attribute.String("entity", string(ext.Entity)),
		attribute.Int("rules_fired", len(ext.Fired)),
	)
	metrics.StageDuration.WithLabelValues("extract").Observe(time.Since(start).Seconds())
	return ext
}

var unsupportedTerms = []string{"rediscover", "discover", "stop listening"}

// NewInput prepares text for rule matching.
func NewInput(text string) Input {
	lower := strings.ToLower(text)
	for _, term := range unsupportedTerms {
		lower = strings.ReplaceAll(lower, term, "")
	}
	return Input{Original: text, Lower: lower}
}

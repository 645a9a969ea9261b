// Package engine answers listening-history questions end to end.
//
// ExecuteQuery runs extraction, event resolution, intent resolution, SQL
// synthesis and the store round trip. It never returns an error: failures
// become a single sentinel row that FormatResponse renders as a message.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/justestif/go-music-muse/internal/db"
	"github.com/justestif/go-music-muse/internal/extract"
	"github.com/justestif/go-music-muse/internal/format"
	"github.com/justestif/go-music-muse/internal/logging"
	"github.com/justestif/go-music-muse/internal/metrics"
	"github.com/justestif/go-music-muse/internal/query"
	"github.com/justestif/go-music-muse/internal/resolve"
	"github.com/justestif/go-music-muse/internal/synth"
)

// ErrorRowLabel marks the sentinel row returned for a failed store call.
const ErrorRowLabel = format.ErrorRowLabel

// DefaultTimeout bounds each store round trip: the event lookup and the
// listening query each get their own.
const DefaultTimeout = 5 * time.Second

// BreakerName identifies the store circuit breaker in logs and metrics.
const BreakerName = "musemuse-store"

var errNoStore = errors.New("no listening store configured")

// errCallerGone wraps store errors that happened after the caller's own
// context ended. They say nothing about store health.
var errCallerGone = errors.New("caller gave up")

var tracer = otel.Tracer("music-muse.engine")

// Store runs a parameterized read query. db.ListeningRepository implements it.
type Store interface {
	Run(ctx context.Context, sql string, args ...any) ([]db.Row, error)
}

// BreakerConfig configures the circuit breaker around the store.
type BreakerConfig struct {
	MaxRequests      uint32        // requests allowed while half-open
	Interval         time.Duration // closed-state count reset period
	Timeout          time.Duration // open duration before half-open
	FailureThreshold uint32        // consecutive failures that open the breaker
}

// DefaultBreakerConfig returns production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Engine is safe for concurrent use. It holds no per-request state.
type Engine struct {
	store     Store
	extractor *extract.Extractor
	resolver  *resolve.ContextResolver
	breaker   *gobreaker.CircuitBreaker[[]db.Row]
	timeout   time.Duration
}

type options struct {
	timeout time.Duration
	breaker BreakerConfig
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithTimeout sets the per-call store timeout. Non-positive values keep the default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(cfg BreakerConfig) Option {
	return func(o *options) {
		o.breaker = cfg
	}
}

// WithClock sets the clock used for "this year" and open-ended events.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates an engine over store. finder may be nil, in which case event
// references never resolve.
func New(store Store, finder resolve.EventFinder, opts ...Option) *Engine {
	o := options{
		timeout: DefaultTimeout,
		breaker: DefaultBreakerConfig(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Engine{
		store:     store,
		extractor: extract.New(extract.WithClock(o.now)),
		resolver:  resolve.NewContextResolver(finder, resolve.WithClock(o.now), resolve.WithTimeout(o.timeout)),
		breaker:   newBreaker(o.breaker),
		timeout:   o.timeout,
	}
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[[]db.Row] {
	metrics.CircuitBreakerState.WithLabelValues(BreakerName).Set(float64(gobreaker.StateClosed))
	return gobreaker.NewCircuitBreaker[[]db.Row](gobreaker.Settings{
		Name:        BreakerName,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		IsSuccessful: storeHealthy,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// ExecuteQuery parses text and runs it against the store. A non-empty userID
// scopes both the event lookup and the listening rows to that user.
func (e *Engine) ExecuteQuery(ctx context.Context, text, userID string) (query.ParsedQuery, []db.Row) {
	ctx, span := tracer.Start(ctx, "engine.ExecuteQuery")
	defer span.End()
	if userID != "" {
		ctx = logging.ContextWithUserID(ctx, userID)
	}
	log := logging.Ctx(ctx)

	ext := e.extractor.Extract(ctx, text)

	var ev *query.EventContext
	if ext.EventPhrase != "" {
		resolved := e.resolver.Resolve(ctx, ext.EventPhrase, userID)
		ev = &resolved
	}
	q := resolve.Intent(text, ext, ev)
	span.SetAttributes(
		attribute.String("action", string(q.Action())),
		attribute.String("entity", string(q.Entity())),
	)

	stmt, err := synth.Build(ctx, q, userID)
	if err != nil {
		log.Error().Err(err).Str("action", string(q.Action())).Msg("synthesizing query")
		return q, e.fail(span, q, err)
	}
	log.Debug().Str("sql", stmt.SQL).Interface("args", stmt.Args).Msg("synthesized statement")

	rows, err := e.run(ctx, q.Action(), stmt)
	if err != nil {
		log.Error().Err(err).Str("action", string(q.Action())).Msg("executing query")
		return q, e.fail(span, q, err)
	}

	outcome := "ok"
	if len(rows) == 0 {
		outcome = "empty"
	}
	metrics.QueriesTotal.WithLabelValues(string(q.Action()), outcome).Inc()
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return q, rows
}

// FormatResponse renders rows as an HTML fragment. The result is never empty.
func (e *Engine) FormatResponse(q query.ParsedQuery, rows []db.Row) string {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("format").Observe(time.Since(start).Seconds())
	}()
	return format.Response(q, rows)
}

// Answer runs ExecuteQuery and FormatResponse.
func (e *Engine) Answer(ctx context.Context, text, userID string) (query.ParsedQuery, string) {
	q, rows := e.ExecuteQuery(ctx, text, userID)
	return q, e.FormatResponse(q, rows)
}

// Rules lists the extraction rules in evaluation order.
func (e *Engine) Rules() []string {
	return e.extractor.Rules()
}

// run performs one store round trip under the timeout and breaker.
func (e *Engine) run(ctx context.Context, action query.Action, stmt synth.Statement) ([]db.Row, error) {
	if e.store == nil {
		return nil, errNoStore
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	callerCtx := ctx
	ctx, span := tracer.Start(ctx, "engine.store")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.breaker.Execute(func() ([]db.Row, error) {
		rows, err := e.store.Run(ctx, stmt.SQL, stmt.Args...)
		if err != nil && callerCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errCallerGone, err)
		}
		return rows, err
	})
	metrics.StoreQueryDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rows, err
}

// storeHealthy tells the breaker which outcomes count against the store.
// Cancellations and deadlines owned by the caller do not; the engine's own
// per-call timeout does.
func storeHealthy(err error) bool {
	return err == nil || errors.Is(err, errCallerGone) || errors.Is(err, context.Canceled)
}

func (e *Engine) fail(span trace.Span, q query.ParsedQuery, err error) []db.Row {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.QueriesTotal.WithLabelValues(string(q.Action()), "error").Inc()
	return []db.Row{format.ErrorRow(err.Error())}
}

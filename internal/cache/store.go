package cache

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrijs2005/coursecache/internal/common"
	"github.com/dmitrijs2005/coursecache/internal/logging"
)

// Generator produces a fresh payload for a key.
type Generator[T any] func(ctx context.Context) (T, error)

// Validator reports whether a live payload must nevertheless be regenerated.
type Validator[T any] func(ctx context.Context, payload T) bool

type options struct {
	clock  Clock
	logger logging.Logger
	meter  metric.Meter
}

type Option func(*options)

func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// Store serves payloads of type T for one namespace.
//
// Callers never wait for each other: concurrent misses on the same key each
// run the generator, and the backend's compare-and-swap decides which result
// is kept. A caller that loses adopts the stored value when it is live.
type Store[T any] struct {
	namespace string
	backend   Backend[T]
	clock     Clock
	log       logging.Logger
	metrics   *metrics
	tracer    trace.Tracer
}

func NewStore[T any](namespace string, backend Backend[T], opts ...Option) *Store[T] {
	o := options{clock: SystemClock, logger: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		namespace: namespace,
		backend:   backend,
		clock:     o.clock,
		log:       o.logger.With("cache", namespace),
		metrics:   newMetrics(o.meter, namespace),
		tracer:    otel.Tracer(instrumentationName),
	}
}

func (s *Store[T]) Namespace() string {
	return s.namespace
}

// GetOrGenerate returns the live payload for key, regenerating it when the
// key is missing, invalidated, soft-expired, or needsRegen asks for it.
// Generator errors are wrapped in common.ErrGeneratorFailure and leave the
// stored entry untouched. Backend errors are logged and the freshly generated
// payload is returned anyway.
func (s *Store[T]) GetOrGenerate(ctx context.Context, key Key, gen Generator[T], needsRegen Validator[T]) (T, error) {
	mk := memoKey{target: s, key: key.String()}
	ctx, span := s.tracer.Start(ctx, "cache.GetOrGenerate",
		trace.WithAttributes(attribute.String("cache.key", mk.key)))
	defer span.End()

	now := s.clock.Now()
	scope := activeScope(ctx)

	if scope != nil {
		if m, ok := scope.lookup(mk); ok {
			if e, ok := m.entry.(Entry[T]); ok && e.Live(now) && !s.stale(ctx, e.Payload, needsRegen) {
				s.metrics.add(ctx, s.metrics.hits)
				span.SetAttributes(attribute.String("cache.outcome", "scope_hit"))
				return e.Payload, nil
			}
			if m.invalidated {
				s.metrics.add(ctx, s.metrics.misses)
				span.SetAttributes(attribute.String("cache.outcome", "miss"))
				return s.regenerate(ctx, span, mk, scope, gen)
			}
		}
	}

	e, found, err := s.backend.Load(ctx, mk.key)
	switch {
	case err != nil:
		s.log.Warn(ctx, "cache load failed", "key", mk.key, "error", err)
	case found && e.Live(now) && !s.stale(ctx, e.Payload, needsRegen):
		s.metrics.add(ctx, s.metrics.hits)
		span.SetAttributes(attribute.String("cache.outcome", "hit"))
		return e.Payload, nil
	}

	s.metrics.add(ctx, s.metrics.misses)
	span.SetAttributes(attribute.String("cache.outcome", "miss"))
	return s.regenerate(ctx, span, mk, scope, gen)
}

func (s *Store[T]) stale(ctx context.Context, payload T, needsRegen Validator[T]) bool {
	return needsRegen != nil && needsRegen(ctx, payload)
}

func (s *Store[T]) regenerate(ctx context.Context, span trace.Span, mk memoKey, scope *Scope, gen Generator[T]) (T, error) {
	start := s.clock.Now()
	s.metrics.add(ctx, s.metrics.regenerations)
	s.log.Debug(ctx, "regenerating cache entry", "key", mk.key)

	payload, err := gen(ctx)
	if err != nil {
		s.metrics.add(ctx, s.metrics.generatorFailures)
		span.RecordError(err)
		span.SetStatus(codes.Error, "generator failed")
		var zero T
		return zero, fmt.Errorf("%w: %s: %w", common.ErrGeneratorFailure, mk.key, err)
	}

	if isDirty(payload) {
		s.log.Warn(ctx, "generated payload is dirty, not caching", "key", mk.key)
		return payload, nil
	}

	entry := Entry[T]{Stamp: start, Valid: true, Payload: payload, SoftExpiry: softExpiryOf(payload)}

	if scope != nil {
		scope.store(mk, entry)
		return payload, nil
	}

	current, swapped, err := s.backend.CompareAndSwap(ctx, mk.key, start, entry)
	if err != nil {
		s.log.Warn(ctx, "cache commit failed", "key", mk.key, "error", err)
		return payload, nil
	}
	if swapped {
		return payload, nil
	}

	s.metrics.add(ctx, s.metrics.racesLost)
	span.SetAttributes(attribute.Bool("cache.race_lost", true))
	if current.Live(s.clock.Now()) {
		s.log.Debug(ctx, "lost regeneration race, adopting stored value", "key", mk.key)
		return current.Payload, nil
	}
	s.log.Debug(ctx, "lost regeneration race to an invalidation", "key", mk.key)
	return payload, nil
}

// Invalidate marks key as having no valid value. Inside a scope the
// invalidation is buffered until the outermost scope commits.
func (s *Store[T]) Invalidate(ctx context.Context, key Key) error {
	mk := memoKey{target: s, key: key.String()}
	if scope := activeScope(ctx); scope != nil {
		scope.invalidate(mk)
		s.log.Debug(ctx, "invalidation buffered", "key", mk.key)
		return nil
	}
	return s.applyInvalidation(ctx, mk.key, s.clock.Now())
}

func (s *Store[T]) now() time.Time {
	return s.clock.Now()
}

func (s *Store[T]) applyInvalidation(ctx context.Context, key string, at time.Time) error {
	if err := s.backend.Invalidate(ctx, key, at); err != nil {
		s.log.Error(ctx, "cache invalidation failed", "key", key, "error", err)
		return err
	}
	s.metrics.add(ctx, s.metrics.invalidations)
	return nil
}

// Peek returns the entry held by the backend, ignoring scopes and liveness.
func (s *Store[T]) Peek(ctx context.Context, key Key) (Entry[T], bool, error) {
	return s.backend.Load(ctx, key.String())
}

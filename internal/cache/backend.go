package cache

import (
	"context"
	"time"
)

// Backend is the shared key to entry table behind a Store. Implementations
// must make CompareAndSwap and Invalidate atomic per key.
type Backend[T any] interface {
	// Load returns the stored entry, or found=false when the key was never
	// written.
	Load(ctx context.Context, key string) (entry Entry[T], found bool, err error)

	// CompareAndSwap installs entry unless the stored entry supersedes a
	// generation started at start. It returns the entry left in place.
	CompareAndSwap(ctx context.Context, key string, start time.Time, entry Entry[T]) (current Entry[T], swapped bool, err error)

	// Invalidate replaces the entry with an invalidation marker stamped at,
	// or at the stored stamp if that is later.
	Invalidate(ctx context.Context, key string, at time.Time) error
}

// Clock supplies generation stamps.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

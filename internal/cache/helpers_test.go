package cache

import (
	"context"
	"sync"
	"time"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testPayload struct {
	Value  int
	Expiry *time.Time `json:",omitempty"`
	Dirty  bool       `json:"-"`
}

func (p *testPayload) ExpiresAt() *time.Time { return p.Expiry }
func (p *testPayload) IsDirty() bool         { return p.Dirty }

// countingGen returns a generator producing value and counting its calls.
func countingGen(calls *int, value int) Generator[*testPayload] {
	var mu sync.Mutex
	return func(context.Context) (*testPayload, error) {
		mu.Lock()
		*calls++
		mu.Unlock()
		return &testPayload{Value: value}, nil
	}
}

// recordingBackend remembers the order invalidations reach it.
type recordingBackend[T any] struct {
	*MemoryBackend[T]
	mu          sync.Mutex
	invalidated []string
}

func (b *recordingBackend[T]) Invalidate(ctx context.Context, key string, at time.Time) error {
	b.mu.Lock()
	b.invalidated = append(b.invalidated, key)
	b.mu.Unlock()
	return b.MemoryBackend.Invalidate(ctx, key, at)
}

type failingBackend[T any] struct{ err error }

func (b failingBackend[T]) Load(context.Context, string) (Entry[T], bool, error) {
	return Entry[T]{}, false, b.err
}

func (b failingBackend[T]) CompareAndSwap(context.Context, string, time.Time, Entry[T]) (Entry[T], bool, error) {
	return Entry[T]{}, false, b.err
}

func (b failingBackend[T]) Invalidate(context.Context, string, time.Time) error {
	return b.err
}

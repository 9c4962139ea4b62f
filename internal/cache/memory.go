package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is the shard count used when a non-positive count is given.
const DefaultShards = 32

// MemoryBackend is a process-local Backend. Keys are spread over independently
// locked shards so readers of unrelated keys never contend. Payloads are
// shared by reference and must be treated as immutable once stored.
type MemoryBackend[T any] struct {
	shards []*memoryShard[T]
}

type memoryShard[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

func NewMemoryBackend[T any](shards int) *MemoryBackend[T] {
	if shards <= 0 {
		shards = DefaultShards
	}
	b := &MemoryBackend[T]{shards: make([]*memoryShard[T], shards)}
	for i := range b.shards {
		b.shards[i] = &memoryShard[T]{entries: make(map[string]Entry[T])}
	}
	return b
}

func (b *MemoryBackend[T]) shard(key string) *memoryShard[T] {
	return b.shards[xxhash.Sum64String(key)%uint64(len(b.shards))]
}

func (b *MemoryBackend[T]) Load(_ context.Context, key string) (Entry[T], bool, error) {
	s := b.shard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	return e, ok, nil
}

func (b *MemoryBackend[T]) CompareAndSwap(_ context.Context, key string, start time.Time, entry Entry[T]) (Entry[T], bool, error) {
	s := b.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur.Supersedes(start) {
		return cur, false, nil
	}
	s.entries[key] = entry
	return entry, true, nil
}

func (b *MemoryBackend[T]) Invalidate(_ context.Context, key string, at time.Time) error {
	s := b.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[key]; ok && cur.Stamp.After(at) {
		at = cur.Stamp
	}
	s.entries[key] = Entry[T]{Stamp: at}
	return nil
}

// Len returns the number of stored entries, invalidation markers included.
func (b *MemoryBackend[T]) Len() int {
	n := 0
	for _, s := range b.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}

// Purge drops everything. The cache holds only derived data, so this costs
// recomputation and nothing else.
func (b *MemoryBackend[T]) Purge() {
	for _, s := range b.shards {
		s.mu.Lock()
		s.entries = make(map[string]Entry[T])
		s.mu.Unlock()
	}
}

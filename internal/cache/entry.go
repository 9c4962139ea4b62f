package cache

import "time"

// Entry is the stored state of one key.
//
// When Valid is true, Stamp is the instant the generation producing Payload
// started. When Valid is false the entry is an invalidation marker and Stamp
// is the instant of invalidation.
type Entry[T any] struct {
	Stamp      time.Time
	Valid      bool
	Payload    T
	SoftExpiry *time.Time
}

// Live reports whether the entry may be served at now.
func (e Entry[T]) Live(now time.Time) bool {
	if !e.Valid {
		return false
	}
	return e.SoftExpiry == nil || now.Before(*e.SoftExpiry)
}

// Supersedes reports whether this stored entry must be kept over a value whose
// generation started at start. Later stamps always win; on a tie the
// invalidation wins so a regeneration racing an invalidation never resurrects
// the key.
func (e Entry[T]) Supersedes(start time.Time) bool {
	if e.Stamp.After(start) {
		return true
	}
	return e.Stamp.Equal(start) && !e.Valid
}

// Expirer is implemented by payloads that become stale at a known instant
// without any write happening.
type Expirer interface {
	ExpiresAt() *time.Time
}

// Dirtier is implemented by payloads that may be best-effort results.
// Dirty payloads are handed to the caller but never committed.
type Dirtier interface {
	IsDirty() bool
}

func softExpiryOf(payload any) *time.Time {
	if e, ok := payload.(Expirer); ok {
		return e.ExpiresAt()
	}
	return nil
}

func isDirty(payload any) bool {
	d, ok := payload.(Dirtier)
	return ok && d.IsDirty()
}

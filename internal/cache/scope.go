package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/coursecache/internal/common"
)

// flushTarget is the store an invalidation recorded in a scope belongs to.
type flushTarget interface {
	now() time.Time
	applyInvalidation(ctx context.Context, key string, at time.Time) error
}

type memoKey struct {
	target flushTarget
	key    string
}

// memo is the scope-local view of one key: invalidated inside the scope,
// holding a value generated inside the scope, or both.
type memo struct {
	invalidated bool
	entry       any
}

// Scope buffers cache writes made during one level of a write transaction.
//
// Invalidations recorded in a scope are visible to reads through the same
// context immediately but reach the backend only when the outermost scope
// commits. Committing a nested scope merges it into its parent; rolling it
// back discards only what it recorded. Values generated inside a scope stay
// local to the scope and are never published.
type Scope struct {
	parent *Scope

	mu    sync.Mutex
	memos map[memoKey]*memo
	order []memoKey
	done  bool
}

type scopeCtxKey struct{}

// BeginScope opens a scope nested in the active scope of ctx, if any, and
// returns a context carrying it.
func BeginScope(ctx context.Context) (context.Context, *Scope) {
	s := &Scope{
		parent: activeScope(ctx),
		memos:  make(map[memoKey]*memo),
	}
	return context.WithValue(ctx, scopeCtxKey{}, s), s
}

// activeScope returns the innermost scope of ctx that is still open.
func activeScope(ctx context.Context) *Scope {
	s, _ := ctx.Value(scopeCtxKey{}).(*Scope)
	for s != nil {
		s.mu.Lock()
		done := s.done
		s.mu.Unlock()
		if !done {
			return s
		}
		s = s.parent
	}
	return nil
}

// InScope reports whether ctx carries an open scope.
func InScope(ctx context.Context) bool {
	return activeScope(ctx) != nil
}

// Root reports whether the scope has no parent.
func (s *Scope) Root() bool {
	return s.parent == nil
}

// Pending returns the number of invalidations this scope would flush or merge.
func (s *Scope) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

func (s *Scope) invalidate(mk memoKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memos[mk]; ok && m.invalidated {
		m.entry = nil
		return
	}
	s.memos[mk] = &memo{invalidated: true}
	s.order = append(s.order, mk)
}

func (s *Scope) store(mk memoKey, entry any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.memos[mk]; ok {
		m.entry = entry
		return
	}
	s.memos[mk] = &memo{entry: entry}
}

// lookup walks from s outwards and returns the first memo found for mk. The
// result is marked invalidated when any enclosing open scope invalidated mk,
// so a stale inner value never falls through to the backend.
func (s *Scope) lookup(mk memoKey) (memo, bool) {
	var (
		found  bool
		result memo
	)
	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		m, ok := cur.memos[mk]
		var snapshot memo
		if ok {
			snapshot = *m
		}
		done := cur.done
		cur.mu.Unlock()
		if !ok || done {
			continue
		}
		if !found {
			found, result = true, snapshot
		}
		if snapshot.invalidated {
			result.invalidated = true
			break
		}
	}
	return result, found
}

// Commit closes the scope. A nested scope hands its memos to the parent; the
// outermost scope applies its invalidations to their stores in the order they
// were first recorded, all stamped with the single instant the commit began.
func (s *Scope) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return common.ErrScopeClosed
	}
	s.done = true
	memos, order := s.memos, s.order
	s.memos, s.order = nil, nil
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.merge(memos, order)
		return nil
	}

	if len(order) == 0 {
		return nil
	}
	at := order[0].target.now()
	var errs []error
	for _, mk := range order {
		if err := mk.target.applyInvalidation(ctx, mk.key, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rollback closes the scope and drops everything recorded in it.
func (s *Scope) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return common.ErrScopeClosed
	}
	s.done = true
	s.memos, s.order = nil, nil
	return nil
}

func (s *Scope) merge(memos map[memoKey]*memo, order []memoKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mk := range order {
		if m, ok := s.memos[mk]; !ok || !m.invalidated {
			s.order = append(s.order, mk)
		}
	}
	for mk, m := range memos {
		if prev, ok := s.memos[mk]; ok && prev.invalidated {
			m.invalidated = true
		}
		s.memos[mk] = m
	}
}

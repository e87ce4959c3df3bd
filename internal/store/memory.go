package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemorySource is an in-process Source with the same semantics as the
// Postgres one. It backs tests and the no-DSN development mode. Returned
// records are clones, never the stored values, so the mirror's merge step
// always sees a distinct incoming record.
type MemorySource[T Record] struct {
	mu    sync.Mutex
	recs  map[string]T
	clone func(T) T
	match func(T, Filter) bool
}

func NewMemorySource[T Record](clone func(T) T, match func(T, Filter) bool) *MemorySource[T] {
	return &MemorySource[T]{
		recs:  make(map[string]T),
		clone: clone,
		match: match,
	}
}

// Put stores a record as-is. The caller is responsible for bumping UpdatedAt,
// same as any external writer against the real store.
func (s *MemorySource[T]) Put(rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs[rec.GetID()] = s.clone(rec)
}

func (s *MemorySource[T]) UpdatedSince(ctx context.Context, since time.Time, fields []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, rec := range s.recs {
		if rec.GetUpdatedAt().After(since) {
			out = append(out, s.clone(rec))
		}
	}
	sortByUpdated(out)
	return out, nil
}

func (s *MemorySource[T]) Find(ctx context.Context, filter Filter, fields []string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []T
	for _, rec := range s.recs {
		if s.match == nil || s.match(rec, filter) {
			out = append(out, s.clone(rec))
		}
	}
	sortByUpdated(out)
	return out, nil
}

func (s *MemorySource[T]) DeleteOne(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, id)
	return nil
}

func (s *MemorySource[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func sortByUpdated[T Record](recs []T) {
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].GetUpdatedAt(), recs[j].GetUpdatedAt()
		if a.Equal(b) {
			return recs[i].GetID() < recs[j].GetID()
		}
		return a.Before(b)
	})
}

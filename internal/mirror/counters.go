package mirror

import (
	"sync"
	"time"
)

// Counter accumulates repeated actions for one key. Date is the last touch.
type Counter[T any] struct {
	Date  time.Time
	Count int
	Items []T
}

// CounterService keeps per-key counters and evicts entries untouched for
// longer than the configured timeout. Eviction runs on a ticker at a tenth
// of the timeout, so staleness granularity is timeout/10.
//
// Carries its own lock: counters are touched from request paths and from the
// cleanup ticker, independently of the mirror lock.
type CounterService[T any] struct {
	mu      sync.Mutex
	entries map[string]*Counter[T]
	timeout time.Duration
	stop    chan struct{}
	now     func() time.Time

	zero *Counter[T] // shared sentinel, callers must not mutate
}

func NewCounterService[T any](timeout time.Duration) *CounterService[T] {
	return &CounterService[T]{
		entries: make(map[string]*Counter[T]),
		timeout: timeout,
		now:     time.Now,
		zero:    &Counter[T]{},
	}
}

// Get returns the counter for id, or a shared zero-value sentinel. Never nil.
func (s *CounterService[T]) Get(id string) *Counter[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.entries[id]; ok {
		return c
	}
	return s.zero
}

// Add creates or refreshes the counter for id, bumping Count by count and
// appending any items. The new count is computed under the lock; reading it
// off the entry afterwards would race with concurrent writers.
func (s *CounterService[T]) Add(id string, count int, items ...T) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[id]
	if !ok {
		c = &Counter[T]{}
		s.entries[id] = c
	}
	c.Date = s.now()
	c.Count += count
	c.Items = append(c.Items, items...)
	return c.Count
}

func (s *CounterService[T]) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Cleanup drops every entry last touched more than the timeout ago.
func (s *CounterService[T]) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	threshold := s.now().Add(-s.timeout)
	for id, c := range s.entries {
		if c.Date.Before(threshold) {
			delete(s.entries, id)
		}
	}
}

// Start begins the cleanup ticker. Idempotent.
func (s *CounterService[T]) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}
	stop := make(chan struct{})
	s.stop = stop
	interval := s.timeout / 10
	if interval <= 0 {
		interval = time.Millisecond
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-stop:
				return
			}
		}
	}()
}

// Stop cancels the cleanup ticker. Idempotent.
func (s *CounterService[T]) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
}

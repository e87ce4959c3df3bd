package mirror

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"admin-mirror/internal/store"
)

const (
	defaultPollInterval = time.Second
	tickTimeout         = 30 * time.Second
)

// Listener receives per-key notifications. data is the cleaned snapshot of
// the record, or nil when the record was deleted.
type Listener func(id string, data any)

// Subscription is a per-key unsubscribe handle.
type Subscription struct {
	cancel func()
}

func (s *Subscription) Unsubscribe() {
	if s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// Options configures one LiveList. All hooks are optional and run with the
// list lock held; they must only call unexported (unlocked) list helpers.
type Options[T store.Record] struct {
	Kind     string
	Fields   []string
	Interval time.Duration

	// NoStore marks kinds that are never trusted across restarts: the
	// watermark starts at "now" so the list only sees records written after
	// startup, and on-demand Fetch is the only full-load path.
	NoStore bool

	// Lock shares a coarse mutex across lists whose hooks touch each other's
	// state. When nil the list locks only itself.
	Lock *sync.Mutex

	Clean  func(T) any
	Fix    func(T) error
	Ignore func(T) bool

	OnAdd                func(T)
	OnUpdate             func(old, fresh T)
	OnDelete             func(T)
	OnAddedOrUpdated     func()
	OnFinished           func()
	OnSubscribeToMissing func(id string) T
}

// LiveList keeps items and itemsMap as a near-real-time mirror of one
// backing collection, driven by a repeating watermark poll.
type LiveList[T store.Record] struct {
	log  *slog.Logger
	src  store.Source[T]
	opts Options[T]
	mu   *sync.Mutex

	items     []T
	itemsMap  map[string]T
	listeners map[string][]*listenerEntry

	timestamp time.Time
	finished  bool
	running   atomic.Bool
	stop      chan struct{}
}

type listenerEntry struct {
	fn Listener
}

func NewLiveList[T store.Record](log *slog.Logger, src store.Source[T], opts Options[T]) *LiveList[T] {
	if opts.Interval <= 0 {
		opts.Interval = defaultPollInterval
	}
	mu := opts.Lock
	if mu == nil {
		mu = &sync.Mutex{}
	}
	l := &LiveList[T]{
		log:       log,
		src:       src,
		opts:      opts,
		mu:        mu,
		itemsMap:  make(map[string]T),
		listeners: make(map[string][]*listenerEntry),
	}
	if opts.NoStore {
		l.timestamp = time.Now()
	}
	return l
}

// Start begins polling: one immediate update, then one tick per interval.
// Idempotent while running.
func (l *LiveList[T]) Start() {
	if !l.running.CompareAndSwap(false, true) {
		return
	}
	l.stop = make(chan struct{})
	go l.run(l.stop)
}

// Stop halts the poll loop. An in-flight update is not aborted, it is simply
// not followed by another tick.
func (l *LiveList[T]) Stop() {
	if l.running.CompareAndSwap(true, false) {
		close(l.stop)
	}
}

func (l *LiveList[T]) run(stop chan struct{}) {
	for {
		l.tick()
		select {
		case <-stop:
			return
		case <-time.After(l.opts.Interval):
		}
	}
}

// tick runs one poll cycle. Errors are logged and swallowed: the loop must
// never die from a single failed cycle.
func (l *LiveList[T]) tick() {
	if !l.running.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()
	if err := l.Update(ctx); err != nil {
		l.log.Warn("mirror_tick_failed", "kind", l.opts.Kind, "error", err)
	}
}

// Update polls the store for records changed since the watermark and merges
// them in. Exported so tests and callers can drive cycles deterministically.
func (l *LiveList[T]) Update(ctx context.Context) error {
	return l.refresh(ctx, true, store.Filter{})
}

// Fetch force-loads a filtered subset outside the polling cadence. Does not
// advance the watermark and does not suppress records via Ignore.
func (l *LiveList[T]) Fetch(ctx context.Context, filter store.Filter) error {
	return l.refresh(ctx, false, filter)
}

func (l *LiveList[T]) refresh(ctx context.Context, live bool, filter store.Filter) error {
	var batch []T
	var err error
	if live {
		batch, err = l.src.UpdatedSince(ctx, l.Timestamp(), l.opts.Fields)
	} else {
		batch, err = l.src.Find(ctx, filter, l.opts.Fields)
	}
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.apply(batch, live)
	return nil
}

// apply merges one fetched batch into the mirror. Lock held. Per-record
// failures are logged and skipped; the rest of the batch proceeds.
func (l *LiveList[T]) apply(batch []T, live bool) {
	processed := false
	for _, rec := range batch {
		id := rec.GetID()
		if id == "" {
			l.log.Warn("mirror_record_without_id", "kind", l.opts.Kind)
			continue
		}
		if l.opts.Fix != nil {
			if err := l.opts.Fix(rec); err != nil {
				l.log.Warn("mirror_record_rejected", "kind", l.opts.Kind, "id", id, "error", err)
				continue
			}
		}
		if live {
			// Advance per record as the batch streams, so an interrupted
			// cycle still leaves a correct lower-bound watermark.
			if ts := rec.GetUpdatedAt(); ts.After(l.timestamp) {
				l.timestamp = ts
			}
		}
		if existing, ok := l.itemsMap[id]; ok {
			if l.opts.OnUpdate != nil {
				l.opts.OnUpdate(existing, rec)
				l.trigger(id, existing)
			} else {
				l.swap(id, rec)
				l.trigger(id, rec)
			}
			processed = true
		} else if !live || l.opts.Ignore == nil || !l.opts.Ignore(rec) {
			l.add(rec)
			processed = true
		}
	}
	if processed && l.opts.OnAddedOrUpdated != nil {
		l.opts.OnAddedOrUpdated()
	}
	if !l.finished {
		l.finished = true
		if l.opts.OnFinished != nil {
			l.opts.OnFinished()
		}
	}
}

// swap replaces the stored record wholesale, keeping list order. Used for
// kinds with no derived in-memory state and no OnUpdate hook.
func (l *LiveList[T]) swap(id string, fresh T) {
	l.itemsMap[id] = fresh
	for i, it := range l.items {
		if it.GetID() == id {
			l.items[i] = fresh
			return
		}
	}
}

// Get returns the mirrored record, live and mutable by the service. Callers
// wanting a snapshot must use a subscription's cleaned payloads.
func (l *LiveList[T]) Get(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.itemsMap[id]
	return rec, ok
}

// For invokes fn with the record if id is non-empty and present.
func (l *LiveList[T]) For(id string, fn func(T)) {
	if id == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.itemsMap[id]; ok {
		fn(rec)
	}
}

// All returns a copy of the ordered item slice.
func (l *LiveList[T]) All() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]T(nil), l.items...)
}

func (l *LiveList[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Add inserts a record into the mirror, fires OnAdd and notifies subscribers.
func (l *LiveList[T]) Add(rec T) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.add(rec)
}

func (l *LiveList[T]) add(rec T) T {
	id := rec.GetID()
	l.items = append(l.items, rec)
	l.itemsMap[id] = rec
	if l.opts.OnAdd != nil {
		l.opts.OnAdd(rec)
	}
	l.trigger(id, rec)
	return rec
}

// Remove deletes the record from the backing store, then applies the local
// removal. Store errors propagate to the caller.
func (l *LiveList[T]) Remove(ctx context.Context, id string) error {
	if err := l.src.DeleteOne(ctx, id); err != nil {
		return err
	}
	l.Removed(id)
	return nil
}

// Removed applies a deletion that already happened at the source: notifies
// subscribers with nil before dropping the record, then fires OnDelete.
// Safe no-op for unknown ids.
func (l *LiveList[T]) Removed(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed(id)
}

func (l *LiveList[T]) removed(id string) {
	item, ok := l.itemsMap[id]
	if !ok {
		return
	}
	l.triggerGone(id)
	l.drop(id)
	if l.opts.OnDelete != nil {
		l.opts.OnDelete(item)
	}
}

// Discard silently evicts a record: no notification, no OnDelete. Cache
// eviction, not authoritative deletion.
func (l *LiveList[T]) Discard(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.discard(id)
}

func (l *LiveList[T]) discard(id string) {
	if _, ok := l.itemsMap[id]; ok {
		l.drop(id)
	}
}

func (l *LiveList[T]) drop(id string) {
	delete(l.itemsMap, id)
	for i, it := range l.items {
		if it.GetID() == id {
			l.items = append(l.items[:i], l.items[i+1:]...)
			return
		}
	}
}

// Trigger re-notifies every listener of id with the current cleaned state.
func (l *LiveList[T]) Trigger(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if item, ok := l.itemsMap[id]; ok {
		l.trigger(id, item)
	} else {
		l.triggerGone(id)
	}
}

func (l *LiveList[T]) trigger(id string, item T) {
	entries := l.listeners[id]
	if len(entries) == 0 {
		return
	}
	var data any = item
	if l.opts.Clean != nil {
		data = l.opts.Clean(item)
	}
	for _, e := range append([]*listenerEntry(nil), entries...) {
		e.fn(id, data)
	}
}

func (l *LiveList[T]) triggerGone(id string) {
	for _, e := range append([]*listenerEntry(nil), l.listeners[id]...) {
		e.fn(id, nil)
	}
}

// Subscribe registers a per-key listener. An existing record is delivered
// immediately; a missing one is synthesized through OnSubscribeToMissing
// when configured (the add path then performs the single delivery).
func (l *LiveList[T]) Subscribe(id string, fn Listener) *Subscription {
	l.mu.Lock()
	entry := &listenerEntry{fn: fn}
	l.listeners[id] = append(l.listeners[id], entry)

	if item, ok := l.itemsMap[id]; ok {
		var data any = item
		if l.opts.Clean != nil {
			data = l.opts.Clean(item)
		}
		fn(id, data)
	} else if l.opts.OnSubscribeToMissing != nil {
		l.add(l.opts.OnSubscribeToMissing(id))
	}
	l.mu.Unlock()

	return &Subscription{cancel: func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		entries := l.listeners[id]
		for i, e := range entries {
			if e == entry {
				entries = append(entries[:i], entries[i+1:]...)
				break
			}
		}
		if len(entries) == 0 {
			delete(l.listeners, id)
		} else {
			l.listeners[id] = entries
		}
	}}
}

// HasSubscriptions reports whether any listener is registered for id.
func (l *LiveList[T]) HasSubscriptions(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.listeners[id]) > 0
}

func (l *LiveList[T]) hasSubscriptions(id string) bool {
	return len(l.listeners[id]) > 0
}

// Timestamp returns the current watermark.
func (l *LiveList[T]) Timestamp() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timestamp
}

// Finished reports whether the first poll or fetch has completed.
func (l *LiveList[T]) Finished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished
}

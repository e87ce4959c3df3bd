// Package mirror is the live in-memory mirror of the admin store: the
// LiveList polling sync engine, the ObservableList and CounterService
// helpers, and the AdminService that composes the five mirrored kinds with
// their cross-entity indexes.
package mirror

// ObservableList wraps an ordered backing sequence and a per-item projection.
// Every change notifies all subscribers synchronously with a freshly mapped
// snapshot of the whole sequence; the snapshot is safe to retain.
//
// Not internally locked: the owner mutates it under the admin service lock.
type ObservableList[T comparable, R any] struct {
	items   []T
	project func(T) R
	subs    []*ListSubscription[R]
}

// ListSubscription is the unsubscribe handle returned by Subscribe.
type ListSubscription[R any] struct {
	listener func([]R)
	cancel   func(*ListSubscription[R])
}

func (s *ListSubscription[R]) Unsubscribe() {
	if s.cancel != nil {
		s.cancel(s)
		s.cancel = nil
	}
}

func NewObservableList[T comparable, R any](items []T, project func(T) R) *ObservableList[T, R] {
	return &ObservableList[T, R]{items: items, project: project}
}

// Push appends and notifies.
func (l *ObservableList[T, R]) Push(item T) {
	l.items = append(l.items, item)
	l.notify()
}

// PushOrdered inserts at the position keeping the sequence sorted by compare.
// Stable: the new item lands after existing equal elements.
func (l *ObservableList[T, R]) PushOrdered(item T, compare func(a, b T) int) {
	pos := len(l.items)
	for i, existing := range l.items {
		if compare(item, existing) < 0 {
			pos = i
			break
		}
	}
	l.items = append(l.items, item)
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = item
	l.notify()
}

// Remove drops the first element equal to item (reference equality for
// pointer types). Notifies even when nothing matched; consumers re-render
// the full snapshot so a spurious notify is harmless.
func (l *ObservableList[T, R]) Remove(item T) bool {
	found := false
	for i, existing := range l.items {
		if existing == item {
			l.items = append(l.items[:i], l.items[i+1:]...)
			found = true
			break
		}
	}
	l.notify()
	return found
}

// Replace swaps the backing sequence wholesale and notifies.
func (l *ObservableList[T, R]) Replace(items []T) {
	l.items = items
	l.notify()
}

// Subscribe registers a listener and immediately delivers the current
// snapshot, empty included.
func (l *ObservableList[T, R]) Subscribe(listener func([]R)) *ListSubscription[R] {
	sub := &ListSubscription[R]{listener: listener, cancel: l.unsubscribe}
	l.subs = append(l.subs, sub)
	listener(l.snapshot())
	return sub
}

func (l *ObservableList[T, R]) HasSubscribers() bool {
	return len(l.subs) > 0
}

func (l *ObservableList[T, R]) Items() []T {
	return l.items
}

func (l *ObservableList[T, R]) unsubscribe(sub *ListSubscription[R]) {
	for i, s := range l.subs {
		if s == sub {
			l.subs = append(l.subs[:i], l.subs[i+1:]...)
			return
		}
	}
}

func (l *ObservableList[T, R]) notify() {
	if len(l.subs) == 0 {
		return
	}
	snapshot := l.snapshot()
	for _, sub := range append([]*ListSubscription[R](nil), l.subs...) {
		sub.listener(snapshot)
	}
}

func (l *ObservableList[T, R]) snapshot() []R {
	out := make([]R, len(l.items))
	for i, item := range l.items {
		out[i] = l.project(item)
	}
	return out
}

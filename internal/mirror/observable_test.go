package mirror

import (
	"strings"
	"testing"

	"admin-mirror/internal/models"
)

func newPonyList(items ...*models.Pony) *ObservableList[*models.Pony, *models.PonyInfo] {
	return NewObservableList(items, models.CleanPony)
}

func TestObservableList_SubscribeDeliversImmediately(t *testing.T) {
	l := newPonyList(&models.Pony{ID: "p1", Name: "Twi"})

	var got [][]*models.PonyInfo
	sub := l.Subscribe(func(items []*models.PonyInfo) {
		got = append(got, items)
	})
	defer sub.Unsubscribe()

	if len(got) != 1 {
		t.Fatalf("expected immediate snapshot, got %d deliveries", len(got))
	}
	if len(got[0]) != 1 || got[0][0].ID != "p1" {
		t.Errorf("unexpected snapshot: %v", got[0])
	}
}

func TestObservableList_PushOrderedKeepsOrder(t *testing.T) {
	l := newPonyList()
	l.Push(&models.Pony{ID: "p2", Name: "b"})

	compare := func(a, b *models.Pony) int { return strings.Compare(a.Name, b.Name) }
	l.PushOrdered(&models.Pony{ID: "p1", Name: "a"}, compare)
	l.PushOrdered(&models.Pony{ID: "p3", Name: "c"}, compare)

	items := l.Items()
	if len(items) != 3 || items[0].ID != "p1" || items[1].ID != "p2" || items[2].ID != "p3" {
		t.Fatalf("unexpected order: %v", items)
	}
}

func TestObservableList_RemoveNotifiesEvenOnMiss(t *testing.T) {
	p := &models.Pony{ID: "p1"}
	l := newPonyList(p)

	deliveries := 0
	sub := l.Subscribe(func([]*models.PonyInfo) { deliveries++ })
	defer sub.Unsubscribe()

	if !l.Remove(p) {
		t.Error("expected removal of present item")
	}
	if l.Remove(&models.Pony{ID: "other"}) {
		t.Error("expected miss for unknown item")
	}
	// initial snapshot + hit + miss
	if deliveries != 3 {
		t.Errorf("expected 3 deliveries, got %d", deliveries)
	}
}

func TestObservableList_Unsubscribe(t *testing.T) {
	l := newPonyList()

	deliveries := 0
	sub := l.Subscribe(func([]*models.PonyInfo) { deliveries++ })
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent

	l.Push(&models.Pony{ID: "p1"})
	if deliveries != 1 {
		t.Errorf("expected only the initial snapshot, got %d deliveries", deliveries)
	}
	if l.HasSubscribers() {
		t.Error("expected no subscribers left")
	}
}

func TestObservableList_SnapshotIsProjected(t *testing.T) {
	p := &models.Pony{ID: "p1", Name: "before"}
	l := newPonyList(p)

	var snapshot []*models.PonyInfo
	sub := l.Subscribe(func(items []*models.PonyInfo) { snapshot = items })
	defer sub.Unsubscribe()

	p.Name = "after"
	if snapshot[0].Name != "before" {
		t.Error("snapshot must not alias the live record")
	}
}

package store

import (
	"context"
	"testing"
	"time"

	"admin-mirror/internal/models"
)

func TestMemorySource_UpdatedSince(t *testing.T) {
	src := NewMemoryAccounts()
	base := time.Now()

	src.Put(&models.Account{ID: "a1", UpdatedAt: base})
	src.Put(&models.Account{ID: "a2", UpdatedAt: base.Add(time.Second)})
	src.Put(&models.Account{ID: "a3", UpdatedAt: base.Add(2 * time.Second)})

	// strictly after: the record at the watermark itself is excluded
	out, err := src.UpdatedSince(context.Background(), base.Add(time.Second), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "a3" {
		t.Fatalf("expected only a3, got %v", out)
	}

	// ascending by updatedAt
	all, err := src.UpdatedSince(context.Background(), time.Time{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != "a1" || all[2].ID != "a3" {
		t.Fatalf("expected a1..a3 in update order, got %v", all)
	}
}

func TestMemorySource_ReturnsClones(t *testing.T) {
	src := NewMemoryAccounts()
	src.Put(&models.Account{ID: "a1", Name: "orig", UpdatedAt: time.Now()})

	out, err := src.UpdatedSince(context.Background(), time.Time{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	out[0].Name = "mutated"

	again, err := src.UpdatedSince(context.Background(), time.Time{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if again[0].Name != "orig" {
		t.Error("stored record was mutated through a returned clone")
	}
	if out[0] == again[0] {
		t.Error("expected distinct clones per fetch")
	}
}

func TestMemorySource_FindByAccount(t *testing.T) {
	src := NewMemoryPonies()
	src.Put(&models.Pony{ID: "p1", Account: "a1", UpdatedAt: time.Now()})
	src.Put(&models.Pony{ID: "p2", Account: "a2", UpdatedAt: time.Now()})

	out, err := src.Find(context.Background(), Filter{Account: "a1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].ID != "p1" {
		t.Fatalf("expected only a1's pony, got %v", out)
	}
}

func TestMemorySource_DeleteOne(t *testing.T) {
	src := NewMemoryEvents()
	src.Put(&models.Event{ID: "e1", UpdatedAt: time.Now()})

	if err := src.DeleteOne(context.Background(), "e1"); err != nil {
		t.Fatal(err)
	}
	if src.Len() != 0 {
		t.Errorf("expected empty source, got %d records", src.Len())
	}
	// deleting an unknown id is a no-op
	if err := src.DeleteOne(context.Background(), "missing"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

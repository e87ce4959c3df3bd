// Package store is the backing-store boundary of the mirror. Each mirrored
// kind gets a Source; the watermark contract requires updated_at to increase
// monotonically on every write by any writer, including writers outside this
// process.
package store

import (
	"context"
	"time"
)

// Record is the minimal shape every mirrored kind exposes.
type Record interface {
	GetID() string
	GetUpdatedAt() time.Time
}

// Filter narrows a one-shot Find. The zero Filter matches everything.
type Filter struct {
	Account string
	IDs     []string
}

// Source is one kind's collection in the backing store. Fields is the column
// projection the mirror was configured with; implementations may ignore it
// (the in-memory source returns full copies).
type Source[T Record] interface {
	UpdatedSince(ctx context.Context, since time.Time, fields []string) ([]T, error)
	Find(ctx context.Context, filter Filter, fields []string) ([]T, error)
	DeleteOne(ctx context.Context, id string) error
}

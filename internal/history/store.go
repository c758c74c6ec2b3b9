package history

import (
	"context"
	"time"
)

// Store is the contract the request-handling layer depends on.
type Store interface {
	// ListRecent returns up to RecentLimit records, most recent first.
	// Returns an empty slice (not nil) when the store is empty.
	ListRecent(ctx context.Context) ([]Record, error)

	// Insert parses the draft, assigns a fresh id and persists the record.
	// Returns the stored record including its id.
	Insert(ctx context.Context, d Draft) (Record, error)

	// Delete removes the record with the given id.
	// Returns 0 if no such record exists.
	Delete(ctx context.Context, id string) (int64, error)
}

// Backend is a Store owned by a composition root, with the extra reads used by
// operational tooling.
type Backend interface {
	Store

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Span returns the record count and the created_at range without
	// reading the records.
	Span(ctx context.Context) (Span, error)

	// All returns every record in list order.
	All(ctx context.Context) ([]Record, error)

	// Ping checks that the durable medium is reachable.
	Ping(ctx context.Context) error

	// Close releases the durable medium.
	Close() error
}

// Span summarises a store. Oldest and Newest are zero when Count is 0.
type Span struct {
	Count  int64
	Oldest time.Time
	Newest time.Time
}

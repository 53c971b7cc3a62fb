package storage

import (
	"context"

	"meme-ledger/internal/domain"
)

// EventStore provides access to ledger_events storage.
// Events are append-only and keyed by their ledger sequence number.
type EventStore interface {
	// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate seq.
	InsertBulk(ctx context.Context, events []*domain.Event) error

	// GetByToken retrieves all events for a token, ordered by seq ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.Event, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by seq ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error)

	// GetByKind retrieves all events of a kind, ordered by seq ASC.
	GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error)

	// LatestSeq returns the highest stored seq, or 0 when empty.
	LatestSeq(ctx context.Context) (uint64, error)
}

// PurchaseStore provides access to purchases storage (price history analytics).
type PurchaseStore interface {
	// InsertBulk adds multiple purchases. Fails entire batch on any duplicate seq.
	InsertBulk(ctx context.Context, purchases []*domain.Purchase) error

	// GetByToken retrieves all purchases of a token, ordered by timestamp ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.Purchase, error)

	// GetByTimeRange retrieves purchases of a token within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, token domain.Address, start, end int64) ([]*domain.Purchase, error)
}

package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

const eventColumns = `seq, kind, token, actor, amount::text, cost::text, votes, passed, timestamp`

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate seq.
func (s *EventStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.Seq == 0 || !e.Kind.IsValid() {
			return storage.ErrInvalidInput
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ledger_events (
			seq, kind, token, actor, amount, cost, votes, passed, timestamp
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9)
	`

	for _, e := range events {
		_, err := tx.Exec(ctx, query,
			int64(e.Seq),
			string(e.Kind),
			string(e.Token),
			string(e.Actor),
			numeric(e.Amount),
			numeric(e.Cost),
			int64(e.Votes),
			e.Passed,
			e.Timestamp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert event in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByToken retrieves all events for a token, ordered by seq ASC.
func (s *EventStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE token = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, string(token))
	if err != nil {
		return nil, fmt.Errorf("get events by token: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByTimeRange retrieves events within [start, end] (inclusive), ordered by seq ASC.
func (s *EventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE timestamp >= $1 AND timestamp <= $2
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get events by time range: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// GetByKind retrieves all events of a kind, ordered by seq ASC.
func (s *EventStore) GetByKind(ctx context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM ledger_events
		WHERE kind = $1
		ORDER BY seq ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("get events by kind: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// LatestSeq returns the highest stored seq, or 0 when the table is empty.
func (s *EventStore) LatestSeq(ctx context.Context) (uint64, error) {
	var seq int64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM ledger_events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get latest seq: %w", err)
	}
	return uint64(seq), nil
}

// scanEvents scans multiple rows into a slice of Event.
func scanEvents(rows pgx.Rows) ([]*domain.Event, error) {
	var events []*domain.Event

	for rows.Next() {
		var (
			e            domain.Event
			seq, votes   int64
			kind         string
			token, actor string
			amount, cost *string
		)

		err := rows.Scan(&seq, &kind, &token, &actor, &amount, &cost, &votes, &e.Passed, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}

		e.Seq = uint64(seq)
		e.Kind = domain.EventKind(kind)
		e.Token = domain.Address(token)
		e.Actor = domain.Address(actor)
		e.Votes = uint64(votes)
		if e.Amount, err = parseNumeric(amount); err != nil {
			return nil, err
		}
		if e.Cost, err = parseNumeric(cost); err != nil {
			return nil, err
		}

		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}

	return events, nil
}

// numeric renders v for a ::numeric parameter; nil stays NULL.
func numeric(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseNumeric(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("parse numeric %q: %w", *s, storage.ErrInvalidInput)
	}
	return v, nil
}

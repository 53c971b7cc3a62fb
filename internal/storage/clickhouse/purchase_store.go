package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/storage"
)

// PurchaseStore implements storage.PurchaseStore using ClickHouse.
type PurchaseStore struct {
	conn *Conn
}

// NewPurchaseStore creates a new PurchaseStore.
func NewPurchaseStore(conn *Conn) *PurchaseStore {
	return &PurchaseStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PurchaseStore = (*PurchaseStore)(nil)

// InsertBulk adds multiple purchases. Fails entire batch on duplicate seq.
// MergeTree does not enforce uniqueness, so duplicates are checked first.
func (s *PurchaseStore) InsertBulk(ctx context.Context, purchases []*domain.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[uint64]struct{}, len(purchases))
	for _, p := range purchases {
		if p == nil || p.Seq == 0 || p.Token == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[p.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		seen[p.Seq] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, p := range purchases {
		exists, err := s.exists(ctx, p.Seq)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO purchases (
			seq, token, buyer, quantity, cost, timestamp
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range purchases {
		err = batch.Append(
			p.Seq, string(p.Token), string(p.Buyer),
			orZero(p.Quantity), orZero(p.Cost), uint64(p.Timestamp),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all purchases of a token, ordered by timestamp ASC.
func (s *PurchaseStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.Purchase, error) {
	query := `
		SELECT seq, token, buyer, quantity, cost, timestamp
		FROM purchases
		WHERE token = ?
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, string(token))
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// GetByTimeRange retrieves purchases of a token within [start, end] (inclusive).
func (s *PurchaseStore) GetByTimeRange(ctx context.Context, token domain.Address, start, end int64) ([]*domain.Purchase, error) {
	if start < 0 {
		start = 0
	}
	if end < start {
		return nil, nil
	}

	query := `
		SELECT seq, token, buyer, quantity, cost, timestamp
		FROM purchases
		WHERE token = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, seq ASC
	`

	rows, err := s.conn.Query(ctx, query, string(token), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPurchases(rows)
}

// exists checks if a purchase with the given seq exists.
func (s *PurchaseStore) exists(ctx context.Context, seq uint64) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM purchases WHERE seq = ?`, seq).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// scanPurchases scans multiple rows.
func scanPurchases(rows chRows) ([]*domain.Purchase, error) {
	var purchases []*domain.Purchase

	for rows.Next() {
		var (
			p              domain.Purchase
			token, buyer   string
			quantity, cost big.Int
			timestamp      uint64
		)

		err := rows.Scan(&p.Seq, &token, &buyer, &quantity, &cost, &timestamp)
		if err != nil {
			return nil, fmt.Errorf("scan purchase row: %w", err)
		}

		p.Token = domain.Address(token)
		p.Buyer = domain.Address(buyer)
		p.Quantity = new(big.Int).Set(&quantity)
		p.Cost = new(big.Int).Set(&cost)
		p.Timestamp = int64(timestamp)
		purchases = append(purchases, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase rows: %w", err)
	}

	return purchases, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

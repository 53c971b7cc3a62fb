package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/storage"
)

// PurchaseStore is an in-memory implementation of storage.PurchaseStore.
type PurchaseStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.Purchase // keyed by seq
}

// NewPurchaseStore creates a new in-memory purchase store.
func NewPurchaseStore() *PurchaseStore {
	return &PurchaseStore{
		data: make(map[uint64]*domain.Purchase),
	}
}

// InsertBulk adds multiple purchases atomically. Fails entire batch on any duplicate.
func (s *PurchaseStore) InsertBulk(_ context.Context, purchases []*domain.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[uint64]struct{}, len(purchases))
	for _, p := range purchases {
		if p == nil || p.Seq == 0 || p.Token == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[p.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[p.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		batch[p.Seq] = struct{}{}
	}

	for _, p := range purchases {
		s.data[p.Seq] = clonePurchase(p)
	}
	return nil
}

// GetByToken retrieves all purchases of a token, ordered by timestamp ASC.
func (s *PurchaseStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.Purchase, error) {
	return s.filter(func(p *domain.Purchase) bool { return p.Token == token }), nil
}

// GetByTimeRange retrieves purchases of a token within [start, end] (inclusive).
func (s *PurchaseStore) GetByTimeRange(_ context.Context, token domain.Address, start, end int64) ([]*domain.Purchase, error) {
	return s.filter(func(p *domain.Purchase) bool {
		return p.Token == token && p.Timestamp >= start && p.Timestamp <= end
	}), nil
}

func (s *PurchaseStore) filter(keep func(*domain.Purchase) bool) []*domain.Purchase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Purchase
	for _, p := range s.data {
		if keep(p) {
			result = append(result, clonePurchase(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].Seq < result[j].Seq
	})
	return result
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.Amount = cloneOptional(e.Amount)
	c.Cost = cloneOptional(e.Cost)
	return &c
}

func clonePurchase(p *domain.Purchase) *domain.Purchase {
	c := *p
	c.Quantity = cloneOptional(p.Quantity)
	c.Cost = cloneOptional(p.Cost)
	return &c
}

func cloneOptional(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

var _ storage.PurchaseStore = (*PurchaseStore)(nil)

package memory

import (
	"context"
	"sort"
	"sync"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu   sync.RWMutex
	data map[uint64]*domain.Event // keyed by seq
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make(map[uint64]*domain.Event),
	}
}

// InsertBulk adds multiple events atomically. Fails entire batch on any duplicate.
func (s *EventStore) InsertBulk(_ context.Context, events []*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[uint64]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Seq == 0 || !e.Kind.IsValid() {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[e.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[e.Seq]; exists {
			return storage.ErrDuplicateKey
		}
		batch[e.Seq] = struct{}{}
	}

	for _, e := range events {
		s.data[e.Seq] = cloneEvent(e)
	}
	return nil
}

// GetByToken retrieves all events for a token, ordered by seq ASC.
func (s *EventStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Token == token }), nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive).
func (s *EventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool {
		return e.Timestamp >= start && e.Timestamp <= end
	}), nil
}

// GetByKind retrieves all events of a kind.
func (s *EventStore) GetByKind(_ context.Context, kind domain.EventKind) ([]*domain.Event, error) {
	return s.filter(func(e *domain.Event) bool { return e.Kind == kind }), nil
}

// LatestSeq returns the highest stored seq.
func (s *EventStore) LatestSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest uint64
	for seq := range s.data {
		if seq > latest {
			latest = seq
		}
	}
	return latest, nil
}

func (s *EventStore) filter(keep func(*domain.Event) bool) []*domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Event
	for _, e := range s.data {
		if keep(e) {
			result = append(result, cloneEvent(e))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Seq < result[j].Seq
	})
	return result
}

var _ storage.EventStore = (*EventStore)(nil)

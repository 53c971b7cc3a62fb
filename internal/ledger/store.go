package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"meme-ledger/internal/domain"
)

// Options configures a Store.
type Options struct {
	Owner    domain.Address // required; the only address allowed to set the gate
	Notifier Notifier       // optional; receives committed events
	StartSeq uint64         // last seq already handed out; the first event gets StartSeq+1
	Logger   zerolog.Logger
}

// Store is the in-memory Ledger.
type Store struct {
	// opMu serializes operations: Exec holds it exclusively, View shared.
	opMu sync.RWMutex
	// mu guards the maps below for the duration of a single read or write.
	mu sync.RWMutex

	owner domain.Address
	gate  domain.Address

	tokens   map[domain.Address]*domain.TokenRecord
	order    []domain.Address
	stakes   map[domain.StakeKey]*domain.StakeRecord
	votes    map[domain.Address]*domain.VoteState
	receipts map[domain.ReceiptKey]struct{}
	voting   []domain.Address

	seq      uint64
	notifier Notifier
	logger   zerolog.Logger
}

// New creates an empty ledger owned by opts.Owner. The access gate is unset
// until the owner installs one, so every gated write fails until then.
func New(opts Options) (*Store, error) {
	if !opts.Owner.Valid() {
		return nil, fmt.Errorf("ledger owner: %w", domain.ErrInvalidAddress)
	}

	return &Store{
		owner:    opts.Owner,
		tokens:   make(map[domain.Address]*domain.TokenRecord),
		stakes:   make(map[domain.StakeKey]*domain.StakeRecord),
		votes:    make(map[domain.Address]*domain.VoteState),
		receipts: make(map[domain.ReceiptKey]struct{}),
		seq:      opts.StartSeq,
		notifier: opts.Notifier,
		logger:   opts.Logger.With().Str("component", "ledger").Logger(),
	}, nil
}

// Owner returns the address fixed at construction.
func (s *Store) Owner() domain.Address {
	return s.owner
}

// AccessGate returns the current writer, or "" if none is set.
func (s *Store) AccessGate() domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gate
}

// SetAccessGate installs the single authorized writer. Owner only.
func (s *Store) SetAccessGate(ctx context.Context, caller, gate domain.Address) error {
	return s.write(ctx, s.requireOwner(caller), func(tx *txn) error {
		if !gate.Valid() {
			return fmt.Errorf("access gate: %w", domain.ErrInvalidAddress)
		}

		prev := s.gate
		s.gate = gate
		tx.record(func() { s.gate = prev })
		return nil
	})
}

// Token returns a copy of the catalog entry for addr.
func (s *Store) Token(addr domain.Address) (domain.TokenRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[addr]
	if !ok {
		return domain.TokenRecord{}, false
	}
	return rec.Clone(), true
}

// Tokens returns all catalog entries in registration order.
func (s *Store) Tokens() []domain.TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TokenRecord, 0, len(s.order))
	for _, addr := range s.order {
		out = append(out, s.tokens[addr].Clone())
	}
	return out
}

// TokenAddresses returns the catalog addresses in registration order.
func (s *Store) TokenAddresses() []domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Address(nil), s.order...)
}

// TokenCount returns the catalog size.
func (s *Store) TokenCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Stake returns the holder's position in token.
func (s *Store) Stake(holder, token domain.Address) (domain.StakeRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.stakes[domain.StakeKey{Holder: holder, Token: token}]
	if !ok {
		return domain.StakeRecord{}, false
	}
	return rec.Clone(), true
}

// VoteState returns the voting state of token, if one was ever created.
func (s *Store) VoteState(token domain.Address) (domain.VoteState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.votes[token]
	if !ok {
		return domain.VoteState{Token: token}, false
	}
	return *v, true
}

// HasVoted reports whether a receipt exists.
func (s *Store) HasVoted(key domain.ReceiptKey) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.receipts[key]
	return ok
}

// VotingTokens returns the voting token set in order.
func (s *Store) VotingTokens() []domain.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Address(nil), s.voting...)
}

// Spotlight returns the spotlight weight of token.
func (s *Store) Spotlight(token domain.Address) (uint8, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.tokens[token]
	if !ok {
		return 0, false
	}
	return rec.Spotlight, true
}

func (s *Store) requireGate(caller domain.Address) func() error {
	return func() error {
		if s.gate == "" || caller != s.gate {
			return fmt.Errorf("%w: %s is not the access gate", domain.ErrUnauthorized, caller)
		}
		return nil
	}
}

func (s *Store) requireOwner(caller domain.Address) func() error {
	return func() error {
		if caller != s.owner {
			return fmt.Errorf("%w: %s is not the owner", domain.ErrUnauthorized, caller)
		}
		return nil
	}
}

var _ Ledger = (*Store)(nil)

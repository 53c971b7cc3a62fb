package ledger

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
)

// RegisterToken adds a catalog entry. Fails with ErrInvalidAddress on a
// zero or malformed identity and ErrAlreadyExists on a duplicate.
func (s *Store) RegisterToken(ctx context.Context, caller domain.Address, rec domain.TokenRecord) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if !rec.Address.Valid() {
			return fmt.Errorf("token %q: %w", rec.Address, domain.ErrInvalidAddress)
		}
		if rec.Spotlight > domain.MaxSpotlight {
			return fmt.Errorf("spotlight %d: %w", rec.Spotlight, domain.ErrOutOfRange)
		}

		if _, exists := s.tokens[rec.Address]; exists {
			return fmt.Errorf("token %s: %w", rec.Address, domain.ErrAlreadyExists)
		}

		c := rec.Clone()
		s.tokens[rec.Address] = &c
		s.order = append(s.order, rec.Address)
		tx.record(func() {
			delete(s.tokens, rec.Address)
			s.order = s.order[:len(s.order)-1]
		})
		return nil
	})
}

// AddFundsRaised increases a token's FundsRaised.
func (s *Store) AddFundsRaised(ctx context.Context, caller, token domain.Address, amount *big.Int) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if amount == nil || amount.Sign() < 0 {
			return fmt.Errorf("funds amount: %w", domain.ErrInvalidInput)
		}

		rec, ok := s.tokens[token]
		if !ok {
			return fmt.Errorf("token %s not registered: %w", token, domain.ErrInvalidInput)
		}

		prev := rec.FundsRaised
		rec.FundsRaised = new(big.Int).Add(prev, amount)
		tx.record(func() { rec.FundsRaised = prev })
		return nil
	})
}

// AddStake adds amount to the holder's position, creating it if needed,
// and resets its start time to now.
func (s *Store) AddStake(ctx context.Context, caller, holder, token domain.Address, amount *big.Int, now int64) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("stake amount: %w", domain.ErrInvalidInput)
		}

		key := domain.StakeKey{Holder: holder, Token: token}
		total := new(big.Int).Set(amount)
		if cur, ok := s.stakes[key]; ok {
			total.Add(total, cur.Amount)
		}
		s.putStake(tx, key, &domain.StakeRecord{Holder: holder, Token: token, Amount: total, StartTime: now})
		return nil
	})
}

// SetStake replaces the holder's amount and resets its start time.
// Use DeleteStake to remove a position; a zero amount is rejected.
func (s *Store) SetStake(ctx context.Context, caller, holder, token domain.Address, amount *big.Int, now int64) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if amount == nil || amount.Sign() <= 0 {
			return fmt.Errorf("stake amount: %w", domain.ErrInvalidInput)
		}

		key := domain.StakeKey{Holder: holder, Token: token}
		s.putStake(tx, key, &domain.StakeRecord{
			Holder: holder, Token: token, Amount: new(big.Int).Set(amount), StartTime: now,
		})
		return nil
	})
}

// TouchStake resets only the start time of an existing position.
func (s *Store) TouchStake(ctx context.Context, caller, holder, token domain.Address, now int64) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		key := domain.StakeKey{Holder: holder, Token: token}
		cur, ok := s.stakes[key]
		if !ok {
			return domain.ErrNoStake
		}
		next := cur.Clone()
		next.StartTime = now
		s.putStake(tx, key, &next)
		return nil
	})
}

// DeleteStake removes a position.
func (s *Store) DeleteStake(ctx context.Context, caller, holder, token domain.Address) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		key := domain.StakeKey{Holder: holder, Token: token}
		if _, ok := s.stakes[key]; !ok {
			return domain.ErrNoStake
		}
		s.putStake(tx, key, nil)
		return nil
	})
}

// putStake stores rec under key, or deletes the key when rec is nil.
func (s *Store) putStake(tx *txn, key domain.StakeKey, rec *domain.StakeRecord) {
	prev, had := s.stakes[key]
	if rec == nil {
		delete(s.stakes, key)
	} else {
		s.stakes[key] = rec
	}
	tx.record(func() {
		if had {
			s.stakes[key] = prev
		} else {
			delete(s.stakes, key)
		}
	})
}

// SetVoting sets a token's active flag and window, creating its state on
// first use. Activating an inactive token starts a new round with zero
// votes. Deactivating clears the window and keeps the final count.
func (s *Store) SetVoting(ctx context.Context, caller, token domain.Address, active bool, start, end int64) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if active && end < start {
			return fmt.Errorf("voting window [%d, %d]: %w", start, end, domain.ErrInvalidInput)
		}

		if _, ok := s.tokens[token]; !ok {
			return fmt.Errorf("token %s not registered: %w", token, domain.ErrInvalidInput)
		}

		prev, had := s.votes[token]
		next := domain.VoteState{Token: token}
		if had {
			next = *prev
		}

		switch {
		case active && !next.Active:
			next.Votes = 0
			next.Start, next.End = start, end
		case active:
			next.Start, next.End = start, end
		default:
			next.Start, next.End = 0, 0
		}
		next.Active = active

		s.votes[token] = &next
		tx.record(func() {
			if had {
				s.votes[token] = prev
			} else {
				delete(s.votes, token)
			}
		})
		return nil
	})
}

// IncrementVotes adds exactly one vote to an active round and returns the
// new count.
func (s *Store) IncrementVotes(ctx context.Context, caller, token domain.Address) (uint64, error) {
	var count uint64
	err := s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		v, ok := s.votes[token]
		if !ok || !v.Active {
			return fmt.Errorf("token %s: %w", token, domain.ErrNotActive)
		}

		v.Votes++
		count = v.Votes
		tx.record(func() { v.Votes-- })
		return nil
	})
	return count, err
}

// WriteReceipt records that a voter has voted. A receipt is written once
// and never cleared.
func (s *Store) WriteReceipt(ctx context.Context, caller domain.Address, key domain.ReceiptKey) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if key == "" {
			return fmt.Errorf("receipt key: %w", domain.ErrInvalidInput)
		}

		if _, ok := s.receipts[key]; ok {
			return domain.ErrAlreadyVoted
		}
		s.receipts[key] = struct{}{}
		tx.record(func() { delete(s.receipts, key) })
		return nil
	})
}

// AppendVotingToken adds token to the end of the voting token set.
// Appending a member again is a no-op.
func (s *Store) AppendVotingToken(ctx context.Context, caller, token domain.Address) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		for _, t := range s.voting {
			if t == token {
				return nil
			}
		}
		s.voting = append(s.voting, token)
		tx.record(func() { s.voting = s.voting[:len(s.voting)-1] })
		return nil
	})
}

// ReplaceVotingTokens swaps the voting token set wholesale.
func (s *Store) ReplaceVotingTokens(ctx context.Context, caller domain.Address, tokens []domain.Address) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		prev := s.voting
		s.voting = append([]domain.Address(nil), tokens...)
		tx.record(func() { s.voting = prev })
		return nil
	})
}

// SetSpotlight sets a token's display priority, 0 to 100.
func (s *Store) SetSpotlight(ctx context.Context, caller, token domain.Address, weight uint8) error {
	return s.write(ctx, s.requireGate(caller), func(tx *txn) error {
		if weight > domain.MaxSpotlight {
			return fmt.Errorf("spotlight %d: %w", weight, domain.ErrOutOfRange)
		}

		rec, ok := s.tokens[token]
		if !ok {
			return fmt.Errorf("token %s not registered: %w", token, domain.ErrInvalidInput)
		}

		prev := rec.Spotlight
		rec.Spotlight = weight
		tx.record(func() { rec.Spotlight = prev })
		return nil
	})
}

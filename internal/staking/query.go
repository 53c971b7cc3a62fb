package staking

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
)

// StakeHolders returns up to maxHolders addresses with a position in
// token. Only catalog creators are considered, so a holder that never
// created a token is not found.
func (e *Engine) StakeHolders(ctx context.Context, tokenAddr domain.Address, maxHolders int) ([]domain.Address, error) {
	if maxHolders < 1 {
		return nil, fmt.Errorf("max holders %d: %w", maxHolders, domain.ErrInvalidInput)
	}

	out := []domain.Address{}
	err := e.ledger.View(ctx, func(ctx context.Context) error {
		seen := make(map[domain.Address]struct{})
		for _, rec := range e.ledger.Tokens() {
			if len(out) == maxHolders {
				break
			}
			if _, dup := seen[rec.Creator]; dup {
				continue
			}
			seen[rec.Creator] = struct{}{}
			if _, ok := e.ledger.Stake(rec.Creator, tokenAddr); ok {
				out = append(out, rec.Creator)
			}
		}
		return nil
	})
	return out, err
}

// GetStake returns the holder's position in token.
func (e *Engine) GetStake(ctx context.Context, holder, tokenAddr domain.Address) (domain.StakeRecord, error) {
	var rec domain.StakeRecord
	err := e.ledger.View(ctx, func(ctx context.Context) error {
		var ok bool
		rec, ok = e.ledger.Stake(holder, tokenAddr)
		if !ok {
			return domain.ErrNoStake
		}
		return nil
	})
	return rec, err
}

// PendingReward returns what ClaimReward would mint now.
func (e *Engine) PendingReward(ctx context.Context, holder, tokenAddr domain.Address) (*big.Int, error) {
	rec, err := e.GetStake(ctx, holder, tokenAddr)
	if err != nil {
		return nil, err
	}
	return Reward(rec.Amount, rec.StartTime, clock.Unix(e.clock)), nil
}

// Approve lets custody pull up to amount of token from holder.
func (e *Engine) Approve(ctx context.Context, holder, tokenAddr domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("allowance must not be negative: %w", domain.ErrInvalidInput)
	}
	tok, err := e.lookup(tokenAddr)
	if err != nil {
		return err
	}
	return tok.Approve(ctx, holder, e.custody, amount)
}

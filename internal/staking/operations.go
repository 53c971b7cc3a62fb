package staking

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
)

// Stake moves amount of token from the caller into custody and adds it to
// the caller's position. Any reward accrued on an existing position is
// claimed first, and the position's clock restarts. The caller must have
// approved the custody address for at least amount.
func (e *Engine) Stake(ctx context.Context, caller, tokenAddr domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("stake amount must be positive: %w", domain.ErrInvalidInput)
	}
	if !caller.Valid() {
		return fmt.Errorf("staker: %w", domain.ErrInvalidAddress)
	}

	var reward *big.Int
	err := e.ledger.Exec(ctx, func(ctx context.Context) error {
		release, err := e.stakeGuard.Enter()
		if err != nil {
			return err
		}
		defer release()

		tok, err := e.lookup(tokenAddr)
		if err != nil {
			return err
		}

		bal, err := tok.BalanceOf(ctx, caller)
		if err != nil {
			return fmt.Errorf("balance of %s: %w", caller, err)
		}
		if bal.Cmp(amount) < 0 {
			return fmt.Errorf("%w: balance %s below stake %s", domain.ErrInsufficientFunds, bal, amount)
		}

		now := clock.Unix(e.clock)
		reward = new(big.Int)
		if cur, ok := e.ledger.Stake(caller, tokenAddr); ok {
			reward = Reward(cur.Amount, cur.StartTime, now)
		}

		if err := e.ledger.AddStake(ctx, e.self, caller, tokenAddr, amount, now); err != nil {
			return err
		}
		if reward.Sign() > 0 {
			if err := e.emit(ctx, domain.EventRewardClaimed, tokenAddr, caller, reward, now); err != nil {
				return err
			}
		}
		if err := e.emit(ctx, domain.EventStaked, tokenAddr, caller, amount, now); err != nil {
			return err
		}

		if err := tok.TransferFrom(ctx, e.custody, caller, e.custody, amount); err != nil {
			return transferFailed("move stake into custody", err)
		}
		if reward.Sign() > 0 {
			if err := tok.Mint(ctx, e.self, caller, reward); err != nil {
				if rerr := tok.Transfer(ctx, e.custody, caller, amount); rerr != nil {
					e.logger.Error().Err(rerr).Msg("return stake after failed reward")
				}
				return transferFailed("mint reward", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.logger.Debug().
		Str("token", tokenAddr.String()).
		Str("holder", caller.String()).
		Str("amount", amount.String()).
		Str("reward", reward.String()).
		Msg("staked")
	return nil
}

// Unstake returns the caller's full principal, minting any accrued reward,
// and deletes the position.
func (e *Engine) Unstake(ctx context.Context, caller, tokenAddr domain.Address) (principal, reward *big.Int, err error) {
	err = e.ledger.Exec(ctx, func(ctx context.Context) error {
		release, err := e.unstakeGuard.Enter()
		if err != nil {
			return err
		}
		defer release()

		tok, err := e.lookup(tokenAddr)
		if err != nil {
			return err
		}
		cur, ok := e.ledger.Stake(caller, tokenAddr)
		if !ok {
			return domain.ErrNoStake
		}

		now := clock.Unix(e.clock)
		principal = cur.Amount
		reward = Reward(cur.Amount, cur.StartTime, now)

		if err := e.ledger.DeleteStake(ctx, e.self, caller, tokenAddr); err != nil {
			return err
		}
		if reward.Sign() > 0 {
			if err := e.emit(ctx, domain.EventRewardClaimed, tokenAddr, caller, reward, now); err != nil {
				return err
			}
		}
		if err := e.emit(ctx, domain.EventUnstaked, tokenAddr, caller, principal, now); err != nil {
			return err
		}

		if err := tok.Transfer(ctx, e.custody, caller, principal); err != nil {
			return transferFailed("return principal", err)
		}
		if reward.Sign() > 0 {
			if err := tok.Mint(ctx, e.self, caller, reward); err != nil {
				if rerr := tok.Transfer(ctx, caller, e.custody, principal); rerr != nil {
					e.logger.Error().Err(rerr).Msg("reclaim principal after failed reward")
				}
				return transferFailed("mint reward", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	e.logger.Debug().
		Str("token", tokenAddr.String()).
		Str("holder", caller.String()).
		Str("principal", principal.String()).
		Str("reward", reward.String()).
		Msg("unstaked")
	return principal, reward, nil
}

// ClaimReward mints the reward accrued over whole days and restarts the
// position's clock. With less than one whole day accrued it changes
// nothing and returns zero.
func (e *Engine) ClaimReward(ctx context.Context, caller, tokenAddr domain.Address) (*big.Int, error) {
	var reward *big.Int
	err := e.ledger.Exec(ctx, func(ctx context.Context) error {
		release, err := e.claimGuard.Enter()
		if err != nil {
			return err
		}
		defer release()

		tok, err := e.lookup(tokenAddr)
		if err != nil {
			return err
		}
		cur, ok := e.ledger.Stake(caller, tokenAddr)
		if !ok {
			return domain.ErrNoStake
		}

		now := clock.Unix(e.clock)
		if wholeDays(cur.StartTime, now) == 0 {
			reward = new(big.Int)
			return nil
		}
		reward = Reward(cur.Amount, cur.StartTime, now)

		if err := e.ledger.TouchStake(ctx, e.self, caller, tokenAddr, now); err != nil {
			return err
		}
		if err := e.emit(ctx, domain.EventRewardClaimed, tokenAddr, caller, reward, now); err != nil {
			return err
		}
		if reward.Sign() > 0 {
			if err := tok.Mint(ctx, e.self, caller, reward); err != nil {
				return transferFailed("mint reward", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reward, nil
}

func (e *Engine) emit(ctx context.Context, kind domain.EventKind, tok, actor domain.Address, amount *big.Int, now int64) error {
	return e.ledger.Emit(ctx, &domain.Event{
		Kind:      kind,
		Token:     tok,
		Actor:     actor,
		Amount:    amount,
		Timestamp: now,
	})
}

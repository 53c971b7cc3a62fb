package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
)

// SetSpotlight updates a token's display priority. Administrator only.
func (c *Controller) SetSpotlight(ctx context.Context, caller, tokenAddr domain.Address, weight int) error {
	if caller != c.admin {
		return fmt.Errorf("%w: spotlight is administrator only", domain.ErrUnauthorized)
	}
	if weight < 0 || weight > int(domain.MaxSpotlight) {
		return fmt.Errorf("spotlight %d: %w", weight, domain.ErrOutOfRange)
	}

	return c.ledger.Exec(ctx, func(ctx context.Context) error {
		if _, ok := c.ledger.Token(tokenAddr); !ok {
			return fmt.Errorf("token %s: %w", tokenAddr, domain.ErrUnknownToken)
		}
		if err := c.ledger.SetSpotlight(ctx, c.self, tokenAddr, uint8(weight)); err != nil {
			return err
		}
		return c.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventSpotlightUpdated,
			Token:     tokenAddr,
			Actor:     caller,
			Amount:    big.NewInt(int64(weight)),
			Timestamp: clock.Unix(c.clock),
		})
	})
}

// CreditNative mints native sub-units to a holder. It stands in for
// deposits from outside the system. Administrator only.
func (c *Controller) CreditNative(ctx context.Context, caller, to domain.Address, amount *big.Int) error {
	if caller != c.admin {
		return fmt.Errorf("%w: credit is administrator only", domain.ErrUnauthorized)
	}
	if !to.Valid() {
		return fmt.Errorf("credit recipient: %w", domain.ErrInvalidAddress)
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("credit amount must be positive: %w", domain.ErrInvalidInput)
	}

	return c.ledger.Exec(ctx, func(ctx context.Context) error {
		if err := c.tokens.Native().Mint(ctx, c.self, to, amount); err != nil {
			return fmt.Errorf("credit native: %w: %v", domain.ErrTransferFailed, err)
		}
		return nil
	})
}

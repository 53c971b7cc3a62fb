package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/pricing"
)

// Purchase is the outcome of BuyToken.
type Purchase struct {
	Token    domain.Address
	Quantity *big.Int // whole tokens minted
	Cost     *big.Int // native sub-units kept
	Refund   *big.Int // native sub-units returned
}

// BuyToken sells quantity whole tokens along the bonding curve. The caller
// pays payment native sub-units; anything above the cost is refunded after
// the ledger and the mint are final. Re-entering BuyToken from within the
// refund fails with domain.ErrReentrant.
func (c *Controller) BuyToken(ctx context.Context, caller, tokenAddr domain.Address, quantity, payment *big.Int) (*Purchase, error) {
	if quantity == nil || quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}
	if payment == nil || payment.Sign() < 0 {
		return nil, fmt.Errorf("payment must not be negative: %w", domain.ErrInvalidInput)
	}
	if !caller.Valid() {
		return nil, fmt.Errorf("buyer: %w", domain.ErrInvalidAddress)
	}

	var out *Purchase
	err := c.ledger.Exec(ctx, func(ctx context.Context) error {
		release, err := c.buyGuard.Enter()
		if err != nil {
			return err
		}
		defer release()

		_, tok, err := c.lookup(tokenAddr)
		if err != nil {
			return err
		}

		sold, err := c.soldSupply(ctx, tok)
		if err != nil {
			return err
		}
		cost, err := c.curve.CalculateCost(sold, quantity)
		if err != nil {
			return err
		}
		if payment.Cmp(cost) < 0 {
			return fmt.Errorf("%w: payment %s below cost %s", domain.ErrInsufficientFunds, payment, cost)
		}

		native := c.tokens.Native()
		if err := requireFunds(ctx, native, caller, payment); err != nil {
			return err
		}

		now := clock.Unix(c.clock)
		if err := c.ledger.AddFundsRaised(ctx, c.self, tokenAddr, cost); err != nil {
			return fmt.Errorf("record funds: %w", err)
		}
		if err := c.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventTokenPurchased,
			Token:     tokenAddr,
			Actor:     caller,
			Amount:    quantity,
			Cost:      cost,
			Timestamp: now,
		}); err != nil {
			return err
		}

		comp := &compensations{logger: c.logger}
		if err := native.Transfer(ctx, caller, c.treasury, payment); err != nil {
			return fmt.Errorf("collect payment: %w: %v", domain.ErrTransferFailed, err)
		}
		comp.add(func(ctx context.Context) error {
			return native.Transfer(ctx, c.treasury, caller, payment)
		})

		minted := pricing.WholeToSub(quantity)
		if err := tok.Mint(ctx, c.self, caller, minted); err != nil {
			comp.run(ctx)
			return fmt.Errorf("mint: %w: %v", domain.ErrTransferFailed, err)
		}
		comp.add(func(ctx context.Context) error {
			return tok.Burn(ctx, caller, minted)
		})

		refund := new(big.Int).Sub(payment, cost)
		if refund.Sign() > 0 {
			if err := native.Transfer(ctx, c.treasury, caller, refund); err != nil {
				comp.run(ctx)
				return fmt.Errorf("refund: %w: %v", domain.ErrTransferFailed, err)
			}
		}

		out = &Purchase{
			Token:    tokenAddr,
			Quantity: new(big.Int).Set(quantity),
			Cost:     cost,
			Refund:   refund,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("token", tokenAddr.String()).
		Str("buyer", caller.String()).
		Str("quantity", quantity.String()).
		Str("cost", out.Cost.String()).
		Msg("tokens purchased")
	return out, nil
}

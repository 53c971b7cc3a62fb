package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/pricing"
)

// CreateTokenParams are the creator-supplied fields of a new token.
type CreateTokenParams struct {
	Name        string
	Symbol      string
	Image       string
	Description string
	Source      string
	FeePaid     *big.Int // native sub-units the creator pays, at least the platform fee
}

// CreateToken deploys a token, mints the initial supply to the creator and
// registers it in the catalog. The whole fee payment goes to the treasury.
func (c *Controller) CreateToken(ctx context.Context, caller domain.Address, p CreateTokenParams) (domain.Address, error) {
	if p.Name == "" || p.Symbol == "" || p.Source == "" {
		return "", fmt.Errorf("name, symbol and source are required: %w", domain.ErrInvalidInput)
	}
	if !caller.Valid() {
		return "", fmt.Errorf("creator: %w", domain.ErrInvalidAddress)
	}
	if p.FeePaid == nil || p.FeePaid.Cmp(c.fee) < 0 {
		return "", fmt.Errorf("%w: fee %s below platform fee %s", domain.ErrInsufficientFunds, p.FeePaid, c.fee)
	}

	var created domain.Address
	err := c.ledger.Exec(ctx, func(ctx context.Context) error {
		native := c.tokens.Native()
		if err := requireFunds(ctx, native, caller, p.FeePaid); err != nil {
			return err
		}

		tok, err := c.tokens.Deploy(ctx, caller, p.Name, p.Symbol)
		if err != nil {
			return fmt.Errorf("deploy token: %w", err)
		}
		comp := &compensations{logger: c.logger}
		comp.add(func(ctx context.Context) error {
			return c.tokens.Undeploy(ctx, tok.Address())
		})

		now := clock.Unix(c.clock)
		rec := domain.TokenRecord{
			Address:     tok.Address(),
			Name:        p.Name,
			Symbol:      p.Symbol,
			Description: p.Description,
			Image:       p.Image,
			FundsRaised: new(big.Int),
			Creator:     caller,
			Source:      p.Source,
			Spotlight:   domain.DefaultSpotlight,
			CreatedAt:   now,
		}
		if err := c.ledger.RegisterToken(ctx, c.self, rec); err != nil {
			comp.run(ctx)
			return fmt.Errorf("register token: %w", err)
		}

		initial := pricing.WholeToSub(InitialSupply)
		if err := c.ledger.Emit(ctx, &domain.Event{
			Kind:      domain.EventTokenCreated,
			Token:     rec.Address,
			Actor:     caller,
			Amount:    initial,
			Cost:      p.FeePaid,
			Timestamp: now,
		}); err != nil {
			comp.run(ctx)
			return err
		}

		// Value moves last.
		if err := native.Transfer(ctx, caller, c.treasury, p.FeePaid); err != nil {
			comp.run(ctx)
			return fmt.Errorf("collect fee: %w: %v", domain.ErrTransferFailed, err)
		}
		comp.add(func(ctx context.Context) error {
			return native.Transfer(ctx, c.treasury, caller, p.FeePaid)
		})

		if err := tok.Mint(ctx, c.self, caller, initial); err != nil {
			comp.run(ctx)
			return fmt.Errorf("mint initial supply: %w: %v", domain.ErrTransferFailed, err)
		}

		created = rec.Address
		return nil
	})
	if err != nil {
		return "", err
	}

	c.logger.Debug().
		Str("token", created.String()).
		Str("symbol", p.Symbol).
		Str("creator", caller.String()).
		Msg("token created")
	return created, nil
}

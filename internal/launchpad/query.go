package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/token"
)

// page returns the [lo, hi) bounds of a 1-indexed page over n items.
// Out-of-range pages yield lo == hi.
func page(n, pageNum, pageSize int) (lo, hi int, err error) {
	if pageNum < 1 || pageSize < 1 {
		return 0, 0, fmt.Errorf("page %d size %d: %w", pageNum, pageSize, domain.ErrInvalidInput)
	}
	// compare page indexes before multiplying so huge pages cannot wrap
	if n == 0 || pageNum-1 > (n-1)/pageSize {
		return 0, 0, nil
	}
	lo = (pageNum - 1) * pageSize
	hi = n
	if pageSize < n-lo {
		hi = lo + pageSize
	}
	return lo, hi, nil
}

// ListTokens returns one page of the catalog in registration order, each
// entry enriched with its curve figures.
func (c *Controller) ListTokens(ctx context.Context, pageNum, pageSize int) ([]domain.TokenView, error) {
	var out []domain.TokenView
	err := c.ledger.View(ctx, func(ctx context.Context) error {
		records := c.ledger.Tokens()
		lo, hi, err := page(len(records), pageNum, pageSize)
		if err != nil {
			return err
		}

		out = make([]domain.TokenView, 0, hi-lo)
		for _, rec := range records[lo:hi] {
			tok, err := c.tokens.Lookup(rec.Address)
			if err != nil {
				return fmt.Errorf("token ledger %s: %w", rec.Address, err)
			}
			v, err := c.view(ctx, rec, tok)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

// GetToken returns the view of one catalog entry.
func (c *Controller) GetToken(ctx context.Context, addr domain.Address) (domain.TokenView, error) {
	var out domain.TokenView
	err := c.ledger.View(ctx, func(ctx context.Context) error {
		rec, tok, err := c.lookup(addr)
		if err != nil {
			return err
		}
		out, err = c.view(ctx, rec, tok)
		return err
	})
	return out, err
}

// Quote returns the cost of quantity whole tokens at the current supply
// without buying them.
func (c *Controller) Quote(ctx context.Context, addr domain.Address, quantity *big.Int) (*big.Int, error) {
	if quantity == nil || quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", domain.ErrInvalidInput)
	}

	var cost *big.Int
	err := c.ledger.View(ctx, func(ctx context.Context) error {
		_, tok, err := c.lookup(addr)
		if err != nil {
			return err
		}
		sold, err := c.soldSupply(ctx, tok)
		if err != nil {
			return err
		}
		cost, err = c.curve.CalculateCost(sold, quantity)
		return err
	})
	return cost, err
}

// UserHoldings returns one page of the catalog tokens in which holder has a
// nonzero balance. Every catalog token is checked, so the cost grows with
// the catalog.
func (c *Controller) UserHoldings(ctx context.Context, holder domain.Address, pageNum, pageSize int) ([]domain.Holding, error) {
	if pageNum < 1 || pageSize < 1 {
		return nil, fmt.Errorf("page %d size %d: %w", pageNum, pageSize, domain.ErrInvalidInput)
	}

	var held []domain.Holding
	err := c.ledger.View(ctx, func(ctx context.Context) error {
		for _, rec := range c.ledger.Tokens() {
			tok, err := c.tokens.Lookup(rec.Address)
			if err != nil {
				return fmt.Errorf("token ledger %s: %w", rec.Address, err)
			}
			bal, err := tok.BalanceOf(ctx, holder)
			if err != nil {
				return fmt.Errorf("balance of %s in %s: %w", holder, rec.Address, err)
			}
			if bal.Sign() == 0 {
				continue
			}
			held = append(held, domain.Holding{
				Token:   rec.Address,
				Name:    rec.Name,
				Symbol:  rec.Symbol,
				Balance: bal,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lo, hi, _ := page(len(held), pageNum, pageSize)
	return held[lo:hi], nil
}

func (c *Controller) view(ctx context.Context, rec domain.TokenRecord, tok token.Token) (domain.TokenView, error) {
	sold, err := c.soldSupply(ctx, tok)
	if err != nil {
		return domain.TokenView{}, err
	}
	price, err := c.curve.SpotPrice(sold)
	if err != nil {
		return domain.TokenView{}, err
	}
	return domain.TokenView{
		TokenRecord:         rec,
		AvailableSupply:     c.curve.AvailableSupply(sold),
		Price:               price,
		BondingCurvePercent: c.curve.CalculatePercentage(sold),
	}, nil
}

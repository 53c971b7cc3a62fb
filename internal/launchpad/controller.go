// Package launchpad is the token lifecycle controller: it creates tokens,
// sells them along the bonding curve and serves catalog queries.
package launchpad

import (
	"context"
	"fmt"
	"math/big"

	"github.com/rs/zerolog"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/guard"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/pricing"
	"meme-ledger/internal/token"
)

var (
	// DefaultPlatformFee is the creation fee: 0.01 native.
	DefaultPlatformFee = new(big.Int).Div(pricing.Unit, big.NewInt(100))

	// InitialSupply is minted to the creator, in whole tokens.
	InitialSupply = big.NewInt(200_000_000)
)

// Options configures a Controller.
type Options struct {
	Ledger ledger.Ledger
	Tokens token.Factory
	Curve  *pricing.Curve // default: pricing.Default()
	Clock  clock.Clock    // default: clock.System{}

	// Self is the controller's identity: the ledger access gate and a
	// registered minter of every deployed token and of the native asset.
	Self domain.Address
	// Treasury holds creation fees and purchase payments.
	Treasury domain.Address
	// Admin may update spotlight weights and credit the native asset.
	Admin domain.Address

	PlatformFee *big.Int // default: DefaultPlatformFee
	Logger      zerolog.Logger
}

// Controller implements token creation, purchase and catalog queries.
type Controller struct {
	ledger   ledger.Ledger
	tokens   token.Factory
	curve    *pricing.Curve
	clock    clock.Clock
	self     domain.Address
	treasury domain.Address
	admin    domain.Address
	fee      *big.Int
	buyGuard *guard.Guard
	logger   zerolog.Logger
}

// New creates a Controller.
func New(opts Options) (*Controller, error) {
	if opts.Ledger == nil || opts.Tokens == nil {
		return nil, fmt.Errorf("launchpad: ledger and token factory are required: %w", domain.ErrInvalidInput)
	}
	for name, a := range map[string]domain.Address{"self": opts.Self, "treasury": opts.Treasury, "admin": opts.Admin} {
		if !a.Valid() {
			return nil, fmt.Errorf("launchpad %s: %w", name, domain.ErrInvalidAddress)
		}
	}

	curve := opts.Curve
	if curve == nil {
		curve = pricing.Default()
	}
	if err := curve.Validate(); err != nil {
		return nil, fmt.Errorf("launchpad curve: %w", err)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	fee := opts.PlatformFee
	if fee == nil {
		fee = DefaultPlatformFee
	}

	return &Controller{
		ledger:   opts.Ledger,
		tokens:   opts.Tokens,
		curve:    curve,
		clock:    clk,
		self:     opts.Self,
		treasury: opts.Treasury,
		admin:    opts.Admin,
		fee:      new(big.Int).Set(fee),
		buyGuard: guard.New("buy token"),
		logger:   opts.Logger.With().Str("component", "launchpad").Logger(),
	}, nil
}

// PlatformFee returns the creation fee in native sub-units.
func (c *Controller) PlatformFee() *big.Int {
	return new(big.Int).Set(c.fee)
}

// Curve returns the pricing curve.
func (c *Controller) Curve() *pricing.Curve {
	return c.curve
}

// soldSupply is the whole-token supply sold through the curve: total
// supply above the creator's initial mint, floored at zero.
func (c *Controller) soldSupply(ctx context.Context, tok token.Token) (*big.Int, error) {
	total, err := tok.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("total supply of %s: %w", tok.Address(), err)
	}
	sold := new(big.Int).Sub(total, pricing.WholeToSub(InitialSupply))
	if sold.Sign() <= 0 {
		return new(big.Int), nil
	}
	return pricing.SubToWhole(sold), nil
}

// lookup returns the catalog record and token ledger of addr.
func (c *Controller) lookup(addr domain.Address) (domain.TokenRecord, token.Token, error) {
	rec, ok := c.ledger.Token(addr)
	if !ok {
		return domain.TokenRecord{}, nil, fmt.Errorf("token %s: %w", addr, domain.ErrUnknownToken)
	}
	tok, err := c.tokens.Lookup(addr)
	if err != nil {
		return domain.TokenRecord{}, nil, fmt.Errorf("token ledger %s: %w", addr, err)
	}
	return rec, tok, nil
}

// requireFunds fails with ErrInsufficientFunds if holder's balance of tok
// is below amount.
func requireFunds(ctx context.Context, tok token.Token, holder domain.Address, amount *big.Int) error {
	bal, err := tok.BalanceOf(ctx, holder)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", holder, err)
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: balance %s below %s", domain.ErrInsufficientFunds, bal, amount)
	}
	return nil
}

// compensations undo deployments and value transfers when an operation fails
// part way. The ledger rolls back its own writes; token ledgers do not.
type compensations struct {
	steps  []func(ctx context.Context) error
	logger zerolog.Logger
}

func (c *compensations) add(fn func(ctx context.Context) error) {
	c.steps = append(c.steps, fn)
}

func (c *compensations) run(ctx context.Context) {
	for i := len(c.steps) - 1; i >= 0; i-- {
		if err := c.steps[i](ctx); err != nil {
			c.logger.Error().Err(err).Msg("compensating transfer failed")
		}
	}
	c.steps = nil
}

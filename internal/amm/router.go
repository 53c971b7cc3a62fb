// Package amm integrates an external constant-product exchange so launched
// tokens can be paired and traded outside the bonding curve.
package amm

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
)

// Errors returned by routers.
var (
	ErrPairNotFound    = errors.New("amm: pair not found")
	ErrDeadlineExpired = errors.New("amm: deadline expired")
	ErrSlippage        = errors.New("amm: output below minimum")
	ErrUnavailable     = errors.New("amm: router not configured")
)

// Pair is a liquidity pool of two tokens.
type Pair struct {
	Address  domain.Address `json:"address"`
	Token0   domain.Address `json:"token0"`
	Token1   domain.Address `json:"token1"`
	Reserve0 *big.Int       `json:"reserve0"`
	Reserve1 *big.Int       `json:"reserve1"`
}

// AddLiquidityParams deposits up to the desired amounts, never less than
// the minimums.
type AddLiquidityParams struct {
	TokenA         domain.Address
	TokenB         domain.Address
	AmountADesired *big.Int
	AmountBDesired *big.Int
	AmountAMin     *big.Int
	AmountBMin     *big.Int
	To             domain.Address
	Deadline       int64 // unix seconds
}

// RemoveLiquidityParams burns Liquidity pool shares.
type RemoveLiquidityParams struct {
	TokenA     domain.Address
	TokenB     domain.Address
	Liquidity  *big.Int
	AmountAMin *big.Int
	AmountBMin *big.Int
	To         domain.Address
	Deadline   int64
}

// LiquidityResult reports what a liquidity change actually moved.
type LiquidityResult struct {
	AmountA   *big.Int
	AmountB   *big.Int
	Liquidity *big.Int
}

// SwapParams swaps exactly AmountIn of Path[0] along Path.
type SwapParams struct {
	AmountIn     *big.Int
	MinAmountOut *big.Int
	Path         []domain.Address
	To           domain.Address
	Deadline     int64
}

// SwapResult holds the amount at every hop; the last is the output.
type SwapResult struct {
	Amounts []*big.Int
}

// AmountOut returns the final output amount.
func (r *SwapResult) AmountOut() *big.Int {
	if r == nil || len(r.Amounts) == 0 {
		return new(big.Int)
	}
	return r.Amounts[len(r.Amounts)-1]
}

// Router is the exchange surface the service uses.
type Router interface {
	GetPair(ctx context.Context, tokenA, tokenB domain.Address) (*Pair, error)
	CreatePair(ctx context.Context, tokenA, tokenB domain.Address) (domain.Address, error)
	AddLiquidity(ctx context.Context, p AddLiquidityParams) (*LiquidityResult, error)
	RemoveLiquidity(ctx context.Context, p RemoveLiquidityParams) (*LiquidityResult, error)
	SwapExactTokensForTokens(ctx context.Context, p SwapParams) (*SwapResult, error)
}

func validatePair(a, b domain.Address) error {
	if !a.Valid() || !b.Valid() {
		return fmt.Errorf("pair tokens: %w", domain.ErrInvalidAddress)
	}
	if a == b {
		return fmt.Errorf("%w: identical pair tokens", domain.ErrInvalidInput)
	}
	return nil
}

func validateDeadline(deadline, now int64) error {
	if deadline < now {
		return fmt.Errorf("%w: %d < %d", ErrDeadlineExpired, deadline, now)
	}
	return nil
}

func positive(name string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", domain.ErrInvalidInput, name)
	}
	return nil
}

func nonNegative(name string, v *big.Int) error {
	if v != nil && v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", domain.ErrInvalidInput, name)
	}
	return nil
}

func (p AddLiquidityParams) validate(now int64) error {
	if err := validatePair(p.TokenA, p.TokenB); err != nil {
		return err
	}
	if !p.To.Valid() {
		return fmt.Errorf("recipient: %w", domain.ErrInvalidAddress)
	}
	for _, check := range []error{
		positive("amountADesired", p.AmountADesired),
		positive("amountBDesired", p.AmountBDesired),
		nonNegative("amountAMin", p.AmountAMin),
		nonNegative("amountBMin", p.AmountBMin),
	} {
		if check != nil {
			return check
		}
	}
	return validateDeadline(p.Deadline, now)
}

func (p RemoveLiquidityParams) validate(now int64) error {
	if err := validatePair(p.TokenA, p.TokenB); err != nil {
		return err
	}
	if !p.To.Valid() {
		return fmt.Errorf("recipient: %w", domain.ErrInvalidAddress)
	}
	for _, check := range []error{
		positive("liquidity", p.Liquidity),
		nonNegative("amountAMin", p.AmountAMin),
		nonNegative("amountBMin", p.AmountBMin),
	} {
		if check != nil {
			return check
		}
	}
	return validateDeadline(p.Deadline, now)
}

func (p SwapParams) validate(now int64) error {
	if len(p.Path) < 2 {
		return fmt.Errorf("%w: swap path needs at least two tokens", domain.ErrInvalidInput)
	}
	for i := 1; i < len(p.Path); i++ {
		if err := validatePair(p.Path[i-1], p.Path[i]); err != nil {
			return err
		}
	}
	if !p.To.Valid() {
		return fmt.Errorf("recipient: %w", domain.ErrInvalidAddress)
	}
	if err := positive("amountIn", p.AmountIn); err != nil {
		return err
	}
	if err := nonNegative("minAmountOut", p.MinAmountOut); err != nil {
		return err
	}
	return validateDeadline(p.Deadline, now)
}

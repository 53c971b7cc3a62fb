// Package pricing implements the exponential bonding curve.
//
// All arithmetic is fixed-point on math/big integers with one whole unit
// equal to 10^18 sub-units. Results must be reproducible bit for bit, so
// nothing in this package touches floating point.
package pricing

import (
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
)

// Default curve parameters.
var (
	// Unit is one whole token or one whole native coin in sub-units.
	Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

	// DefaultInitialPrice is the price of the first token, in native sub-units.
	DefaultInitialPrice = big.NewInt(10_000_000_000_000) // 0.00001

	// DefaultMinPrice floors every cost.
	DefaultMinPrice = big.NewInt(1_000_000_000_000) // 0.000001

	// DefaultSteepness is k in fixed point: 6.25e-8 per whole token.
	DefaultSteepness = big.NewInt(62_500_000_000)

	// DefaultMaxCurveSupply is the number of whole tokens sold through the curve.
	// k * DefaultMaxCurveSupply equals the exponent cutoff.
	DefaultMaxCurveSupply = big.NewInt(800_000_000)

	// DefaultExpCutoff is the largest exponent evaluated: 50 units.
	DefaultExpCutoff = new(big.Int).Mul(big.NewInt(50), Unit)

	// MaxValue is returned when a result saturates: 2^256 - 1.
	MaxValue = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
)

// DefaultMaxIterations bounds the Taylor series.
const DefaultMaxIterations = 30

// Curve holds bonding curve parameters. Values are read-only after
// construction; methods never mutate them.
type Curve struct {
	InitialPrice   *big.Int
	MinPrice       *big.Int
	Steepness      *big.Int
	MaxCurveSupply *big.Int
	ExpCutoff      *big.Int
	MaxIterations  int
}

// Default returns the production curve.
func Default() *Curve {
	return &Curve{
		InitialPrice:   new(big.Int).Set(DefaultInitialPrice),
		MinPrice:       new(big.Int).Set(DefaultMinPrice),
		Steepness:      new(big.Int).Set(DefaultSteepness),
		MaxCurveSupply: new(big.Int).Set(DefaultMaxCurveSupply),
		ExpCutoff:      new(big.Int).Set(DefaultExpCutoff),
		MaxIterations:  DefaultMaxIterations,
	}
}

// Validate checks the parameters are usable.
func (c *Curve) Validate() error {
	switch {
	case c.InitialPrice == nil || c.InitialPrice.Sign() <= 0:
		return fmt.Errorf("%w: initial price must be positive", domain.ErrInvalidInput)
	case c.MinPrice == nil || c.MinPrice.Sign() < 0:
		return fmt.Errorf("%w: min price must not be negative", domain.ErrInvalidInput)
	case c.Steepness == nil || c.Steepness.Sign() <= 0:
		return fmt.Errorf("%w: steepness must be positive", domain.ErrInvalidInput)
	case c.MaxCurveSupply == nil || c.MaxCurveSupply.Sign() <= 0:
		return fmt.Errorf("%w: max curve supply must be positive", domain.ErrInvalidInput)
	case c.ExpCutoff == nil || c.ExpCutoff.Sign() <= 0:
		return fmt.Errorf("%w: exponent cutoff must be positive", domain.ErrInvalidInput)
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: iterations must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// Exp approximates e^(x/Unit) * Unit with a Taylor series.
// x must not be negative. Exponents above the cutoff return MaxValue.
func (c *Curve) Exp(x *big.Int) *big.Int {
	if x.Cmp(c.ExpCutoff) > 0 {
		return new(big.Int).Set(MaxValue)
	}

	sum := new(big.Int).Set(Unit)
	term := new(big.Int).Set(Unit)
	div := new(big.Int)

	for i := 1; i <= c.MaxIterations; i++ {
		term.Mul(term, x)
		div.Mul(big.NewInt(int64(i)), Unit)
		term.Quo(term, div)
		if term.Sign() == 0 {
			break
		}
		sum.Add(sum, term)
	}

	return sum
}

// CalculateCost returns the native cost of buying tokensToBuy whole tokens
// when currentSupply whole tokens have already been sold:
//
//	InitialPrice * (exp(k*(s+n)) - exp(k*s)) / k
//
// The cost is floored at MinPrice. A saturated exponent yields MaxValue,
// which callers treat as a valid, unaffordable price.
func (c *Curve) CalculateCost(currentSupply, tokensToBuy *big.Int) (*big.Int, error) {
	if tokensToBuy == nil || tokensToBuy.Sign() <= 0 {
		return nil, fmt.Errorf("%w: tokens to buy must be positive", domain.ErrInvalidInput)
	}
	if currentSupply == nil || currentSupply.Sign() < 0 {
		return nil, fmt.Errorf("%w: current supply must not be negative", domain.ErrInvalidInput)
	}

	x1 := new(big.Int).Mul(c.Steepness, currentSupply)
	x2 := new(big.Int).Add(currentSupply, tokensToBuy)
	x2.Mul(x2, c.Steepness)

	if x2.Cmp(c.ExpCutoff) > 0 {
		return new(big.Int).Set(MaxValue), nil
	}

	e1 := c.Exp(x1)
	e2 := c.Exp(x2)

	cost := new(big.Int).Sub(e2, e1)
	cost.Mul(cost, c.InitialPrice)
	cost.Quo(cost, c.Steepness)

	return c.clamp(cost), nil
}

// SpotPrice returns the cost of exactly one more whole token.
func (c *Curve) SpotPrice(currentSupply *big.Int) (*big.Int, error) {
	return c.CalculateCost(currentSupply, big.NewInt(1))
}

// CalculatePercentage returns how much of the curve has been sold, 0-100.
func (c *Curve) CalculatePercentage(currentSupply *big.Int) uint64 {
	if currentSupply == nil || currentSupply.Sign() <= 0 {
		return 0
	}
	p := new(big.Int).Mul(currentSupply, big.NewInt(100))
	p.Quo(p, c.MaxCurveSupply)
	if p.Cmp(big.NewInt(100)) > 0 {
		return 100
	}
	return p.Uint64()
}

// CalculatePriceFromPercentage returns the per-token price once percentage
// of the curve has been sold:
//
//	InitialPrice * exp(k * MaxCurveSupply * p/100) / Unit
//
// floored at MinPrice.
func (c *Curve) CalculatePriceFromPercentage(percentage uint64) (*big.Int, error) {
	if percentage > 100 {
		return nil, fmt.Errorf("%w: percentage %d exceeds 100", domain.ErrOutOfRange, percentage)
	}

	fraction := new(big.Int).Mul(big.NewInt(int64(percentage)), Unit)
	fraction.Quo(fraction, big.NewInt(100))

	x := new(big.Int).Mul(c.Steepness, c.MaxCurveSupply)
	x.Mul(x, fraction)
	x.Quo(x, Unit)

	e := c.Exp(x)
	if e.Cmp(MaxValue) == 0 {
		return e, nil
	}

	price := new(big.Int).Mul(c.InitialPrice, e)
	price.Quo(price, Unit)

	return c.clamp(price), nil
}

// AvailableSupply returns the whole tokens still purchasable on the curve.
func (c *Curve) AvailableSupply(currentSupply *big.Int) *big.Int {
	left := new(big.Int).Sub(c.MaxCurveSupply, currentSupply)
	if left.Sign() < 0 {
		return new(big.Int)
	}
	return left
}

func (c *Curve) clamp(v *big.Int) *big.Int {
	if v.Cmp(c.MinPrice) < 0 {
		return new(big.Int).Set(c.MinPrice)
	}
	if v.Cmp(MaxValue) > 0 {
		return new(big.Int).Set(MaxValue)
	}
	return v
}

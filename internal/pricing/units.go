package pricing

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"meme-ledger/internal/domain"
)

const unitDecimals = 18

// FormatUnits renders sub-units as a decimal string of whole units.
// Presentation only; never feed the result back into a cost check.
func FormatUnits(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -unitDecimals).String()
}

// ParseUnits parses a decimal string of whole units into sub-units.
// Negative values and more than 18 fractional digits are rejected.
func ParseUnits(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: negative amount %s", domain.ErrInvalidInput, s)
	}

	scaled := d.Shift(unitDecimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("%w: more than %d fractional digits in %s", domain.ErrInvalidInput, unitDecimals, s)
	}
	return scaled.BigInt(), nil
}

// WholeToSub converts whole units to sub-units.
func WholeToSub(whole *big.Int) *big.Int {
	return new(big.Int).Mul(whole, Unit)
}

// SubToWhole converts sub-units to whole units, flooring.
func SubToWhole(sub *big.Int) *big.Int {
	return new(big.Int).Quo(sub, Unit)
}

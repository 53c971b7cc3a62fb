package domain

import "math/big"

// DefaultSpotlight is the spotlight weight assigned at creation.
const DefaultSpotlight uint8 = 50

// MaxSpotlight is the upper bound of a spotlight weight.
const MaxSpotlight uint8 = 100

// TokenRecord is the ledger's catalog entry for a created token.
// Identity fields never change after registration; FundsRaised and
// Spotlight are the only mutable fields.
type TokenRecord struct {
	Address     Address  // token identity
	Name        string   // display name
	Symbol      string   // ticker
	Description string   // free text
	Image       string   // image reference (URL or content hash)
	FundsRaised *big.Int // native sub-units collected through the curve
	Creator     Address  // creator identity
	Source      string   // provenance tag
	Spotlight   uint8    // display priority 0-100
	CreatedAt   int64    // unix seconds
}

// Clone returns a deep copy.
func (t TokenRecord) Clone() TokenRecord {
	c := t
	c.FundsRaised = cloneInt(t.FundsRaised)
	return c
}

// TokenView is a catalog entry enriched with curve-derived figures.
type TokenView struct {
	TokenRecord
	AvailableSupply     *big.Int // whole tokens left on the curve
	Price               *big.Int // native sub-units for one more whole token
	BondingCurvePercent uint64   // 0-100
}

// Holding is a nonzero balance of a catalog token.
type Holding struct {
	Token   Address
	Name    string
	Symbol  string
	Balance *big.Int
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

package domain

import "math/big"

// StakeKey identifies a stake position.
type StakeKey struct {
	Holder Address
	Token  Address
}

// StakeRecord is a holder's position in one token.
// A record exists iff Amount > 0.
type StakeRecord struct {
	Holder    Address
	Token     Address
	Amount    *big.Int // token sub-units in custody
	StartTime int64    // unix seconds of the last amount change or claim
}

// Clone returns a deep copy.
func (s StakeRecord) Clone() StakeRecord {
	c := s
	c.Amount = cloneInt(s.Amount)
	return c
}

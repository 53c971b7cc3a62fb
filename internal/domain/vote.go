package domain

// VoteState is the voting round state of a token.
type VoteState struct {
	Token  Address
	Votes  uint64
	Active bool
	Start  int64 // unix seconds, zero when inactive
	End    int64 // unix seconds, zero when inactive
}

// InWindow reports whether now lies within [Start, End].
func (v VoteState) InWindow(now int64) bool {
	return now >= v.Start && now <= v.End
}

// ReceiptKey is the fingerprint of a (voter, token) pair.
type ReceiptKey string

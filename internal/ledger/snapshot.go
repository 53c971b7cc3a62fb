package ledger

import (
	"sort"

	"meme-ledger/internal/domain"
)

// State is a deep copy of the ledger at one point in time.
type State struct {
	Owner        domain.Address
	AccessGate   domain.Address
	Seq          uint64
	Tokens       []domain.TokenRecord
	Stakes       []domain.StakeRecord
	Votes        []domain.VoteState
	Receipts     int
	VotingTokens []domain.Address
}

// Snapshot copies the ledger state. Stakes are sorted by holder then token
// and votes by token, so snapshots of equal states compare equal.
// Must not be called from inside Exec.
func (s *Store) Snapshot() State {
	s.opMu.RLock()
	defer s.opMu.RUnlock()
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Owner:        s.owner,
		AccessGate:   s.gate,
		Seq:          s.seq,
		Tokens:       make([]domain.TokenRecord, 0, len(s.order)),
		Stakes:       make([]domain.StakeRecord, 0, len(s.stakes)),
		Votes:        make([]domain.VoteState, 0, len(s.votes)),
		Receipts:     len(s.receipts),
		VotingTokens: append([]domain.Address(nil), s.voting...),
	}
	for _, addr := range s.order {
		st.Tokens = append(st.Tokens, s.tokens[addr].Clone())
	}
	for _, rec := range s.stakes {
		st.Stakes = append(st.Stakes, rec.Clone())
	}
	for _, v := range s.votes {
		st.Votes = append(st.Votes, *v)
	}

	sort.Slice(st.Stakes, func(i, j int) bool {
		if st.Stakes[i].Holder != st.Stakes[j].Holder {
			return st.Stakes[i].Holder < st.Stakes[j].Holder
		}
		return st.Stakes[i].Token < st.Stakes[j].Token
	})
	sort.Slice(st.Votes, func(i, j int) bool {
		return st.Votes[i].Token < st.Votes[j].Token
	})
	return st
}

package api

import (
	"math/big"
	"net/http"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/ledger"
)

// Snapshotter returns a consistent copy of ledger state.
type Snapshotter interface {
	Snapshot() ledger.State
}

type statsResponse struct {
	Owner            domain.Address   `json:"owner"`
	AccessGate       domain.Address   `json:"access_gate"`
	Seq              uint64           `json:"seq"`
	Tokens           int              `json:"tokens"`
	TotalFundsRaised string           `json:"total_funds_raised"`
	Stakes           int              `json:"stakes"`
	ActiveVotes      int              `json:"active_votes"`
	Receipts         int              `json:"receipts"`
	VotingTokens     []domain.Address `json:"voting_tokens"`
}

func (s *Server) ledgerStats(r *http.Request) (int, any, error) {
	st := s.ledger.Snapshot()

	raised := new(big.Int)
	for _, t := range st.Tokens {
		if t.FundsRaised != nil {
			raised.Add(raised, t.FundsRaised)
		}
	}
	active := 0
	for _, v := range st.Votes {
		if v.Active {
			active++
		}
	}
	voting := st.VotingTokens
	if voting == nil {
		voting = []domain.Address{}
	}

	return http.StatusOK, statsResponse{
		Owner:            st.Owner,
		AccessGate:       st.AccessGate,
		Seq:              st.Seq,
		Tokens:           len(st.Tokens),
		TotalFundsRaised: raised.String(),
		Stakes:           len(st.Stakes),
		ActiveVotes:      active,
		Receipts:         st.Receipts,
		VotingTokens:     voting,
	}, nil
}

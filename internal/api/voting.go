package api

import (
	"net/http"

	"meme-ledger/internal/domain"
)

type voteStateResponse struct {
	Token  domain.Address `json:"token"`
	Votes  uint64         `json:"votes"`
	Active bool           `json:"active"`
	Start  int64          `json:"start"`
	End    int64          `json:"end"`
	Voted  *bool          `json:"voted,omitempty"`
}

// votingStatus reports the round state. With ?voter= it also reports
// whether that address holds a receipt for the token.
func (s *Server) votingStatus(r *http.Request) (int, any, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	v, err := s.governance.Status(r.Context(), addr)
	if err != nil {
		return 0, nil, err
	}
	out := voteStateResponse{Token: addr, Votes: v.Votes, Active: v.Active, Start: v.Start, End: v.End}

	if raw := r.URL.Query().Get("voter"); raw != "" {
		voter, err := domain.ParseAddress(raw)
		if err != nil {
			return 0, nil, err
		}
		voted, err := s.governance.HasVoted(r.Context(), voter, addr)
		if err != nil {
			return 0, nil, err
		}
		out.Voted = &voted
	}
	return http.StatusOK, out, nil
}

func (s *Server) startVoting(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	if err := s.governance.StartVoting(r.Context(), from, addr); err != nil {
		return 0, nil, err
	}
	v, err := s.governance.Status(r.Context(), addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, voteStateResponse{Token: addr, Votes: v.Votes, Active: v.Active, Start: v.Start, End: v.End}, nil
}

func (s *Server) vote(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	votes, err := s.governance.Vote(r.Context(), from, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"token": addr, "votes": votes}, nil
}

func (s *Server) endVoting(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	out, err := s.governance.EndVoting(r.Context(), from, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{
		"token":  out.Token,
		"votes":  out.Votes,
		"passed": out.Passed,
	}, nil
}

func (s *Server) activeVoting(r *http.Request) (int, any, error) {
	tokens, err := s.governance.ActiveVotingTokens(r.Context())
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"tokens": tokens}, nil
}

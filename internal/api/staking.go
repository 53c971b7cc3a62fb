package api

import (
	"math/big"
	"net/http"

	"meme-ledger/internal/domain"
)

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) approve(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	var req amountRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return 0, nil, err
	}

	if err := s.staking.Approve(r.Context(), from, addr, amount); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":   addr.String(),
		"spender": s.staking.Custody().String(),
		"amount":  amount.String(),
	}, nil
}

func (s *Server) stake(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	var req amountRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return 0, nil, err
	}

	if err := s.staking.Stake(r.Context(), from, addr, amount); err != nil {
		return 0, nil, err
	}
	rec, err := s.staking.GetStake(r.Context(), from, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newStakeResponse(rec, nil), nil
}

func (s *Server) unstake(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	principal, reward, err := s.staking.Unstake(r.Context(), from, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":     addr.String(),
		"principal": amountString(principal),
		"reward":    amountString(reward),
	}, nil
}

func (s *Server) claimReward(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	reward, err := s.staking.ClaimReward(r.Context(), from, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":  addr.String(),
		"reward": amountString(reward),
	}, nil
}

type stakeResponse struct {
	Holder        domain.Address `json:"holder"`
	Token         domain.Address `json:"token"`
	Amount        string         `json:"amount"`
	StartTime     int64          `json:"start_time"`
	PendingReward string         `json:"pending_reward,omitempty"`
}

func newStakeResponse(rec domain.StakeRecord, pending *big.Int) stakeResponse {
	out := stakeResponse{
		Holder:    rec.Holder,
		Token:     rec.Token,
		Amount:    amountString(rec.Amount),
		StartTime: rec.StartTime,
	}
	if pending != nil {
		out.PendingReward = pending.String()
	}
	return out
}

func (s *Server) getStake(r *http.Request) (int, any, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	holder, err := pathAddress(r, "holder")
	if err != nil {
		return 0, nil, err
	}

	rec, err := s.staking.GetStake(r.Context(), holder, addr)
	if err != nil {
		return 0, nil, err
	}
	pending, err := s.staking.PendingReward(r.Context(), holder, addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newStakeResponse(rec, pending), nil
}

func (s *Server) stakeHolders(r *http.Request) (int, any, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	limit, err := queryInt(r, "max", defaultPageSize)
	if err != nil {
		return 0, nil, err
	}

	holders, err := s.staking.StakeHolders(r.Context(), addr, limit)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"token": addr, "holders": holders}, nil
}

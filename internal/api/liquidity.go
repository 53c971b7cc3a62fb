package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"meme-ledger/internal/amm"
	"meme-ledger/internal/domain"
)

// defaultDeadline is how long a liquidity request stays valid when the
// caller sends no deadline.
const defaultDeadline = 20 * time.Minute

type pairResponse struct {
	Address  domain.Address `json:"address"`
	Token0   domain.Address `json:"token0"`
	Token1   domain.Address `json:"token1"`
	Reserve0 string         `json:"reserve0"`
	Reserve1 string         `json:"reserve1"`
}

func (s *Server) getPair(r *http.Request) (int, any, error) {
	if s.amm == nil {
		return 0, nil, amm.ErrUnavailable
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	with, err := domain.ParseAddress(r.URL.Query().Get("with"))
	if err != nil {
		return 0, nil, fmt.Errorf("with: %w", err)
	}

	p, err := s.amm.GetPair(r.Context(), addr, with)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, pairResponse{
		Address:  p.Address,
		Token0:   p.Token0,
		Token1:   p.Token1,
		Reserve0: amountString(p.Reserve0),
		Reserve1: amountString(p.Reserve1),
	}, nil
}

type addLiquidityRequest struct {
	PairToken         string `json:"pair_token"`
	AmountDesired     string `json:"amount_desired"`
	PairAmountDesired string `json:"pair_amount_desired"`
	AmountMin         string `json:"amount_min"`
	PairAmountMin     string `json:"pair_amount_min"`
	To                string `json:"to"`
	Deadline          int64  `json:"deadline"`
	CreatePair        bool   `json:"create_pair"`
}

// addLiquidity deposits the path token and pair_token into their pool.
// With create_pair set, a missing pool is created first.
func (s *Server) addLiquidity(r *http.Request) (int, any, error) {
	if s.amm == nil {
		return 0, nil, amm.ErrUnavailable
	}
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	var req addLiquidityRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}

	p := amm.AddLiquidityParams{TokenA: addr, To: from, Deadline: req.Deadline}
	if p.TokenB, err = domain.ParseAddress(req.PairToken); err != nil {
		return 0, nil, fmt.Errorf("pair_token: %w", err)
	}
	if req.To != "" {
		if p.To, err = domain.ParseAddress(req.To); err != nil {
			return 0, nil, fmt.Errorf("to: %w", err)
		}
	}
	if p.Deadline == 0 {
		p.Deadline = time.Now().Add(defaultDeadline).Unix()
	}
	if p.AmountADesired, err = parseAmount("amount_desired", req.AmountDesired); err != nil {
		return 0, nil, err
	}
	if p.AmountBDesired, err = parseAmount("pair_amount_desired", req.PairAmountDesired); err != nil {
		return 0, nil, err
	}
	if p.AmountAMin, err = parseOptionalAmount("amount_min", req.AmountMin); err != nil {
		return 0, nil, err
	}
	if p.AmountBMin, err = parseOptionalAmount("pair_amount_min", req.PairAmountMin); err != nil {
		return 0, nil, err
	}

	if req.CreatePair {
		if _, err := s.amm.GetPair(r.Context(), p.TokenA, p.TokenB); errors.Is(err, amm.ErrPairNotFound) {
			if _, err := s.amm.CreatePair(r.Context(), p.TokenA, p.TokenB); err != nil {
				return 0, nil, fmt.Errorf("create pair: %w", err)
			}
		} else if err != nil {
			return 0, nil, err
		}
	}

	res, err := s.amm.AddLiquidity(r.Context(), p)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":       addr.String(),
		"pair_token":  p.TokenB.String(),
		"amount":      amountString(res.AmountA),
		"pair_amount": amountString(res.AmountB),
		"liquidity":   amountString(res.Liquidity),
	}, nil
}

package api

import (
	"fmt"
	"net/http"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/launchpad"
)

type tokenResponse struct {
	Address             domain.Address `json:"address"`
	Name                string         `json:"name"`
	Symbol              string         `json:"symbol"`
	Description         string         `json:"description"`
	Image               string         `json:"image"`
	Creator             domain.Address `json:"creator"`
	Source              string         `json:"source"`
	FundsRaised         string         `json:"funds_raised"`
	Spotlight           uint8          `json:"spotlight"`
	CreatedAt           int64          `json:"created_at"`
	AvailableSupply     string         `json:"available_supply"`
	Price               string         `json:"price"`
	BondingCurvePercent uint64         `json:"bonding_curve_percent"`
}

func newTokenResponse(v domain.TokenView) tokenResponse {
	return tokenResponse{
		Address:             v.Address,
		Name:                v.Name,
		Symbol:              v.Symbol,
		Description:         v.Description,
		Image:               v.Image,
		Creator:             v.Creator,
		Source:              v.Source,
		FundsRaised:         amountString(v.FundsRaised),
		Spotlight:           v.Spotlight,
		CreatedAt:           v.CreatedAt,
		AvailableSupply:     amountString(v.AvailableSupply),
		Price:               amountString(v.Price),
		BondingCurvePercent: v.BondingCurvePercent,
	}
}

type createTokenRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Image       string `json:"image"`
	Description string `json:"description"`
	Source      string `json:"source"`
	FeePaid     string `json:"fee_paid"`
}

func (s *Server) createToken(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	var req createTokenRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}

	fee := s.launchpad.PlatformFee()
	if req.FeePaid != "" {
		if fee, err = parseAmount("fee_paid", req.FeePaid); err != nil {
			return 0, nil, err
		}
	}

	addr, err := s.launchpad.CreateToken(r.Context(), from, launchpad.CreateTokenParams{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Image:       req.Image,
		Description: req.Description,
		Source:      req.Source,
		FeePaid:     fee,
	})
	if err != nil {
		return 0, nil, err
	}

	view, err := s.launchpad.GetToken(r.Context(), addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusCreated, newTokenResponse(view), nil
}

func (s *Server) listTokens(r *http.Request) (int, any, error) {
	pageNum, pageSize, err := pagination(r)
	if err != nil {
		return 0, nil, err
	}
	views, err := s.launchpad.ListTokens(r.Context(), pageNum, pageSize)
	if err != nil {
		return 0, nil, err
	}

	out := make([]tokenResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newTokenResponse(v))
	}
	return http.StatusOK, map[string]any{
		"tokens": out,
		"page":   pageNum,
		"size":   pageSize,
	}, nil
}

func (s *Server) getToken(r *http.Request) (int, any, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	view, err := s.launchpad.GetToken(r.Context(), addr)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, newTokenResponse(view), nil
}

func (s *Server) quote(r *http.Request) (int, any, error) {
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	qty, err := parseAmount("quantity", r.URL.Query().Get("quantity"))
	if err != nil {
		return 0, nil, err
	}
	cost, err := s.launchpad.Quote(r.Context(), addr, qty)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":    addr.String(),
		"quantity": qty.String(),
		"cost":     cost.String(),
	}, nil
}

type buyRequest struct {
	Quantity string `json:"quantity"`
	Payment  string `json:"payment"`
}

func (s *Server) buyToken(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	var req buyRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	qty, err := parseAmount("quantity", req.Quantity)
	if err != nil {
		return 0, nil, err
	}
	payment, err := parseAmount("payment", req.Payment)
	if err != nil {
		return 0, nil, err
	}

	p, err := s.launchpad.BuyToken(r.Context(), from, addr, qty, payment)
	if err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{
		"token":    p.Token.String(),
		"quantity": amountString(p.Quantity),
		"cost":     amountString(p.Cost),
		"refund":   amountString(p.Refund),
	}, nil
}

type spotlightRequest struct {
	Weight *int `json:"weight"`
}

func (s *Server) setSpotlight(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	var req spotlightRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	if req.Weight == nil {
		return 0, nil, fmt.Errorf("%w: weight is required", domain.ErrInvalidInput)
	}

	if err := s.launchpad.SetSpotlight(r.Context(), from, addr, *req.Weight); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]any{"token": addr, "spotlight": *req.Weight}, nil
}

type holdingResponse struct {
	Token   domain.Address `json:"token"`
	Name    string         `json:"name"`
	Symbol  string         `json:"symbol"`
	Balance string         `json:"balance"`
}

func (s *Server) userHoldings(r *http.Request) (int, any, error) {
	holder, err := pathAddress(r, "holder")
	if err != nil {
		return 0, nil, err
	}
	pageNum, pageSize, err := pagination(r)
	if err != nil {
		return 0, nil, err
	}
	held, err := s.launchpad.UserHoldings(r.Context(), holder, pageNum, pageSize)
	if err != nil {
		return 0, nil, err
	}

	out := make([]holdingResponse, 0, len(held))
	for _, h := range held {
		out = append(out, holdingResponse{
			Token:   h.Token,
			Name:    h.Name,
			Symbol:  h.Symbol,
			Balance: amountString(h.Balance),
		})
	}
	return http.StatusOK, map[string]any{"holder": holder, "tokens": out}, nil
}

type creditRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) creditNative(r *http.Request) (int, any, error) {
	from, err := caller(r)
	if err != nil {
		return 0, nil, err
	}
	var req creditRequest
	if err := decode(r, &req); err != nil {
		return 0, nil, err
	}
	to, err := domain.ParseAddress(req.To)
	if err != nil {
		return 0, nil, fmt.Errorf("to: %w", err)
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return 0, nil, err
	}

	if err := s.launchpad.CreditNative(r.Context(), from, to, amount); err != nil {
		return 0, nil, err
	}
	return http.StatusOK, map[string]string{"to": to.String(), "amount": amount.String()}, nil
}

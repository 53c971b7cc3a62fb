package api

import (
	"math"
	"net/http"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/feed"
)

// tokenEvents returns the journaled events of a token in seq order.
// The journal is written asynchronously, so the newest events may lag.
func (s *Server) tokenEvents(r *http.Request) (int, any, error) {
	if s.events == nil {
		return 0, nil, errNoJournal
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}

	events, err := s.events.GetByToken(r.Context(), addr)
	if err != nil {
		return 0, nil, err
	}
	out := make([]feed.Message, 0, len(events))
	for _, ev := range events {
		out = append(out, feed.NewMessage(ev))
	}
	return http.StatusOK, map[string]any{"token": addr, "events": out}, nil
}

type purchaseResponse struct {
	Seq       uint64         `json:"seq"`
	Token     domain.Address `json:"token"`
	Buyer     domain.Address `json:"buyer"`
	Quantity  string         `json:"quantity"`
	Cost      string         `json:"cost"`
	Timestamp int64          `json:"timestamp"`
}

// tokenPurchases returns purchases of a token, optionally limited to
// [from, to] unix seconds.
func (s *Server) tokenPurchases(r *http.Request) (int, any, error) {
	if s.purchases == nil {
		return 0, nil, errNoJournal
	}
	addr, err := pathAddress(r, "address")
	if err != nil {
		return 0, nil, err
	}
	from, err := queryInt64(r, "from", 0)
	if err != nil {
		return 0, nil, err
	}
	to, err := queryInt64(r, "to", math.MaxInt64)
	if err != nil {
		return 0, nil, err
	}

	var purchases []*domain.Purchase
	if r.URL.Query().Has("from") || r.URL.Query().Has("to") {
		purchases, err = s.purchases.GetByTimeRange(r.Context(), addr, from, to)
	} else {
		purchases, err = s.purchases.GetByToken(r.Context(), addr)
	}
	if err != nil {
		return 0, nil, err
	}

	out := make([]purchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		out = append(out, purchaseResponse{
			Seq:       p.Seq,
			Token:     p.Token,
			Buyer:     p.Buyer,
			Quantity:  amountString(p.Quantity),
			Cost:      amountString(p.Cost),
			Timestamp: p.Timestamp,
		})
	}
	return http.StatusOK, map[string]any{"token": addr, "purchases": out}, nil
}

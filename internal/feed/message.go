// Package feed streams committed ledger events to websocket clients.
package feed

import (
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
)

// Message is the JSON frame sent for every event. Amounts are decimal
// strings of sub-units so no precision is lost in JSON numbers.
type Message struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Token     string `json:"token,omitempty"`
	Actor     string `json:"actor,omitempty"`
	Amount    string `json:"amount,omitempty"`
	Cost      string `json:"cost,omitempty"`
	Votes     uint64 `json:"votes,omitempty"`
	Passed    bool   `json:"passed,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// NewMessage converts a ledger event to its wire form.
func NewMessage(ev *domain.Event) Message {
	m := Message{
		Seq:       ev.Seq,
		Kind:      ev.Kind.String(),
		Token:     string(ev.Token),
		Actor:     string(ev.Actor),
		Votes:     ev.Votes,
		Passed:    ev.Passed,
		Timestamp: ev.Timestamp,
	}
	if ev.Amount != nil {
		m.Amount = ev.Amount.String()
	}
	if ev.Cost != nil {
		m.Cost = ev.Cost.String()
	}
	return m
}

// Event converts the message back to a ledger event.
func (m Message) Event() (*domain.Event, error) {
	kind := domain.EventKind(m.Kind)
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: event kind %q", domain.ErrInvalidInput, m.Kind)
	}

	ev := &domain.Event{
		Seq:       m.Seq,
		Kind:      kind,
		Token:     domain.Address(m.Token),
		Actor:     domain.Address(m.Actor),
		Votes:     m.Votes,
		Passed:    m.Passed,
		Timestamp: m.Timestamp,
	}

	var err error
	if ev.Amount, err = parseAmount(m.Amount); err != nil {
		return nil, err
	}
	if ev.Cost, err = parseAmount(m.Cost); err != nil {
		return nil, err
	}
	return ev, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", domain.ErrInvalidInput, s)
	}
	return v, nil
}

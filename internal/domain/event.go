package domain

import "math/big"

// EventKind names a committed ledger operation.
type EventKind string

const (
	EventTokenCreated     EventKind = "token_created"
	EventTokenPurchased   EventKind = "token_purchased"
	EventStaked           EventKind = "staked"
	EventUnstaked         EventKind = "unstaked"
	EventRewardClaimed    EventKind = "reward_claimed"
	EventVotingStarted    EventKind = "voting_started"
	EventVoted            EventKind = "voted"
	EventVotingEnded      EventKind = "voting_ended"
	EventSpotlightUpdated EventKind = "spotlight_updated"
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	return string(k)
}

// IsValid checks if the kind is a known value.
func (k EventKind) IsValid() bool {
	switch k {
	case EventTokenCreated, EventTokenPurchased, EventStaked, EventUnstaked,
		EventRewardClaimed, EventVotingStarted, EventVoted, EventVotingEnded,
		EventSpotlightUpdated:
		return true
	}
	return false
}

// Event is the notification emitted by a committed operation.
// Corresponds to ledger_events table in PostgreSQL.
type Event struct {
	Seq       uint64    // commit order, assigned by the ledger
	Kind      EventKind // operation kind
	Token     Address   // token the operation touched
	Actor     Address   // caller
	Amount    *big.Int  // quantity, stake, reward or weight (nullable)
	Cost      *big.Int  // native sub-units paid (purchases, creation fee)
	Votes     uint64    // vote count after the operation (voting kinds)
	Passed    bool      // outcome (voting_ended)
	Timestamp int64     // ledger clock, unix seconds
}

// Purchase is the analytics projection of a token_purchased event.
// Corresponds to purchases table in ClickHouse.
type Purchase struct {
	Seq       uint64
	Token     Address
	Buyer     Address
	Quantity  *big.Int // whole tokens
	Cost      *big.Int // native sub-units
	Timestamp int64    // unix seconds
}

// PurchaseFromEvent projects a purchase event. ok is false for other kinds.
func PurchaseFromEvent(e *Event) (p *Purchase, ok bool) {
	if e == nil || e.Kind != EventTokenPurchased {
		return nil, false
	}
	return &Purchase{
		Seq:       e.Seq,
		Token:     e.Token,
		Buyer:     e.Actor,
		Quantity:  cloneInt(e.Amount),
		Cost:      cloneInt(e.Cost),
		Timestamp: e.Timestamp,
	}, true
}

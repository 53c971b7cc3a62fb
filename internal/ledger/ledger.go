// Package ledger is the single shared store of all persistent state:
// the token catalog, stake positions, vote state, vote receipts, the
// voting token set and spotlight weights.
//
// Every write is gated by a capability argument: the caller address must
// equal the access gate installed by the owner. Reads are unrestricted.
// The ledger is also the serialization boundary of the system. Exec runs
// one mutating operation exclusively and atomically, View runs a read-only
// query under a shared lock.
package ledger

import (
	"context"
	"errors"
	"math/big"

	"meme-ledger/internal/domain"
)

// ErrNoOperation is returned by Emit outside of Exec.
var ErrNoOperation = errors.New("ledger: no operation in progress")

// Reader is the unrestricted read side of the ledger.
type Reader interface {
	Owner() domain.Address
	AccessGate() domain.Address

	// Token returns a copy of the catalog entry for addr.
	Token(addr domain.Address) (domain.TokenRecord, bool)

	// Tokens returns copies of all catalog entries in registration order.
	Tokens() []domain.TokenRecord

	// TokenAddresses returns the catalog addresses in registration order.
	TokenAddresses() []domain.Address

	TokenCount() int

	Stake(holder, token domain.Address) (domain.StakeRecord, bool)
	VoteState(token domain.Address) (domain.VoteState, bool)
	HasVoted(key domain.ReceiptKey) bool
	VotingTokens() []domain.Address
	Spotlight(token domain.Address) (uint8, bool)
}

// Writer is the access-gated write side. Every method fails with
// domain.ErrUnauthorized unless caller is the access gate.
type Writer interface {
	RegisterToken(ctx context.Context, caller domain.Address, rec domain.TokenRecord) error
	AddFundsRaised(ctx context.Context, caller, token domain.Address, amount *big.Int) error

	AddStake(ctx context.Context, caller, holder, token domain.Address, amount *big.Int, now int64) error
	SetStake(ctx context.Context, caller, holder, token domain.Address, amount *big.Int, now int64) error
	TouchStake(ctx context.Context, caller, holder, token domain.Address, now int64) error
	DeleteStake(ctx context.Context, caller, holder, token domain.Address) error

	SetVoting(ctx context.Context, caller, token domain.Address, active bool, start, end int64) error
	IncrementVotes(ctx context.Context, caller, token domain.Address) (uint64, error)
	WriteReceipt(ctx context.Context, caller domain.Address, key domain.ReceiptKey) error
	AppendVotingToken(ctx context.Context, caller, token domain.Address) error
	ReplaceVotingTokens(ctx context.Context, caller domain.Address, tokens []domain.Address) error

	SetSpotlight(ctx context.Context, caller, token domain.Address, weight uint8) error
}

// Ledger is what the engines depend on.
type Ledger interface {
	Reader
	Writer

	// Exec runs fn as one exclusive, all-or-nothing operation.
	Exec(ctx context.Context, fn func(ctx context.Context) error) error

	// View runs fn under a shared lock.
	View(ctx context.Context, fn func(ctx context.Context) error) error

	// Emit queues ev for delivery after the current Exec commits.
	Emit(ctx context.Context, ev *domain.Event) error
}

// Notifier receives committed events in commit order.
// Notify is called while the operation lock is still held, so it must not
// block and must not call back into the ledger.
type Notifier interface {
	Notify(ev *domain.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev *domain.Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev *domain.Event) { f(ev) }

package domain

import (
	"errors"
	"fmt"
)

// Operation errors. Every operation aborts with no partial effect when it
// returns one of these; callers match with errors.Is.
var (
	// ErrUnauthorized is returned when the caller is not the access-gated
	// writer or the required administrator.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput is returned for empty identifiers, zero or negative
	// amounts and unknown tokens.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAddress is returned for malformed or zero identities.
	ErrInvalidAddress = fmt.Errorf("%w: invalid address", ErrInvalidInput)

	// ErrUnknownToken is returned when a token is not in the catalog.
	ErrUnknownToken = fmt.Errorf("%w: unknown token", ErrInvalidInput)

	// ErrInsufficientFunds is returned when a payment or balance is below
	// what the operation requires.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyExists is returned on duplicate registration.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyActive is returned when voting is started twice.
	ErrAlreadyActive = errors.New("voting already active")

	// ErrNotActive is returned when an operation needs an active voting round.
	ErrNotActive = errors.New("voting not active")

	// ErrWindowClosed is returned when a vote arrives outside the window.
	ErrWindowClosed = errors.New("voting window closed")

	// ErrWindowOpen is returned when a non-administrator ends a round whose
	// window has not yet closed.
	ErrWindowOpen = errors.New("voting window still open")

	// ErrAlreadyVoted is returned when a voter has a receipt for the token.
	ErrAlreadyVoted = errors.New("already voted")

	// ErrNoStake is returned when the caller has nothing staked.
	ErrNoStake = fmt.Errorf("%w: no stake", ErrInvalidInput)

	// ErrTransferFailed is returned when the token ledger refuses a transfer.
	ErrTransferFailed = errors.New("transfer failed")

	// ErrOutOfRange is returned for percentages above 100.
	ErrOutOfRange = errors.New("out of range")

	// ErrReentrant is returned when an operation is invoked again while it
	// is still in progress on the same call chain.
	ErrReentrant = errors.New("reentrant call")
)

// Package token defines the fungible token ledger the core calls into.
// The core never implements balances itself; it only uses these methods.
package token

import (
	"context"
	"errors"
	"math/big"

	"meme-ledger/internal/domain"
)

// Token ledger errors.
var (
	// ErrNotFound is returned when no token exists at an address.
	ErrNotFound = errors.New("token not found")

	// ErrInsufficientBalance is returned when the sender cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when a spender exceeds its approval.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrNotMinter is returned when an unregistered address tries to mint.
	ErrNotMinter = errors.New("not a minter")

	// ErrInvalidAmount is returned for nil or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)

// Token is one fungible token ledger.
type Token interface {
	// Address returns the token identity.
	Address() domain.Address
	Name() string
	Symbol() string

	// BalanceOf returns the holder's balance in sub-units.
	BalanceOf(ctx context.Context, holder domain.Address) (*big.Int, error)

	// TotalSupply returns the supply in sub-units.
	TotalSupply(ctx context.Context) (*big.Int, error)

	// Transfer moves amount from the caller to another holder.
	Transfer(ctx context.Context, from, to domain.Address, amount *big.Int) error

	// TransferFrom moves amount on behalf of from, spending the spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to domain.Address, amount *big.Int) error

	// Approve sets the spender's allowance over the owner's balance.
	Approve(ctx context.Context, owner, spender domain.Address, amount *big.Int) error

	// Allowance returns the remaining approval.
	Allowance(ctx context.Context, owner, spender domain.Address) (*big.Int, error)

	// Mint creates amount for to. Restricted to registered minters.
	Mint(ctx context.Context, minter, to domain.Address, amount *big.Int) error

	// Burn destroys amount from holder.
	Burn(ctx context.Context, holder domain.Address, amount *big.Int) error
}

// Factory deploys and looks up tokens.
type Factory interface {
	// Deploy creates a new token owned by creator.
	Deploy(ctx context.Context, creator domain.Address, name, symbol string) (Token, error)

	// Undeploy removes a token deployed by a failed operation. It fails if
	// the token has any supply.
	Undeploy(ctx context.Context, addr domain.Address) error

	// Lookup returns the token at addr. Returns ErrNotFound if none exists.
	Lookup(addr domain.Address) (Token, error)

	// Native returns the quote asset used for fees and payments.
	Native() Token
}

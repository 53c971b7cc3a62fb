package memtoken

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/token"
)

// ReceiveHook is invoked after a transfer or mint credits a holder.
// It runs outside the token's lock with the caller's context, so it may
// call back into the ledger the way a receiving contract could.
type ReceiveHook func(ctx context.Context, tok domain.Address, from, to domain.Address, amount *big.Int)

// Token is an in-memory implementation of token.Token.
type Token struct {
	addr   domain.Address
	name   string
	symbol string

	mu         sync.RWMutex
	supply     *big.Int
	balances   map[domain.Address]*big.Int
	allowances map[domain.Address]map[domain.Address]*big.Int
	minters    map[domain.Address]struct{}

	hook func() ReceiveHook
}

func newToken(addr domain.Address, name, symbol string, minters []domain.Address, hook func() ReceiveHook) *Token {
	t := &Token{
		addr:       addr,
		name:       name,
		symbol:     symbol,
		supply:     new(big.Int),
		balances:   make(map[domain.Address]*big.Int),
		allowances: make(map[domain.Address]map[domain.Address]*big.Int),
		minters:    make(map[domain.Address]struct{}),
		hook:       hook,
	}
	for _, m := range minters {
		t.minters[m] = struct{}{}
	}
	return t
}

// Address returns the token identity.
func (t *Token) Address() domain.Address { return t.addr }

// Name returns the display name.
func (t *Token) Name() string { return t.name }

// Symbol returns the ticker.
func (t *Token) Symbol() string { return t.symbol }

// BalanceOf returns the holder's balance.
func (t *Token) BalanceOf(_ context.Context, holder domain.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balanceLocked(holder), nil
}

// TotalSupply returns the current supply.
func (t *Token) TotalSupply(_ context.Context) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.supply), nil
}

// Transfer moves amount from one holder to another.
func (t *Token) Transfer(ctx context.Context, from, to domain.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	if err := t.moveLocked(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	t.notify(ctx, from, to, amount)
	return nil
}

// TransferFrom moves amount from one holder to another using the spender's allowance.
func (t *Token) TransferFrom(ctx context.Context, spender, from, to domain.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	allowed := t.allowanceLocked(from, spender)
	if allowed.Cmp(amount) < 0 {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s approved %s, need %s", token.ErrInsufficientAllowance, spender, allowed, amount)
	}
	if err := t.moveLocked(from, to, amount); err != nil {
		t.mu.Unlock()
		return err
	}
	t.allowances[from][spender] = allowed.Sub(allowed, amount)
	t.mu.Unlock()

	t.notify(ctx, from, to, amount)
	return nil
}

// Approve sets an allowance.
func (t *Token) Approve(_ context.Context, owner, spender domain.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[domain.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining approval.
func (t *Token) Allowance(_ context.Context, owner, spender domain.Address) (*big.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.allowanceLocked(owner, spender)), nil
}

// Mint creates amount for to.
func (t *Token) Mint(ctx context.Context, minter, to domain.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	if _, ok := t.minters[minter]; !ok {
		t.mu.Unlock()
		return fmt.Errorf("%w: %s", token.ErrNotMinter, minter)
	}
	t.supply.Add(t.supply, amount)
	t.credit(to, amount)
	t.mu.Unlock()

	t.notify(ctx, domain.ZeroAddress, to, amount)
	return nil
}

// Burn destroys amount from holder.
func (t *Token) Burn(_ context.Context, holder domain.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	bal := t.balanceLocked(holder)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", token.ErrInsufficientBalance, holder, bal, amount)
	}
	t.balances[holder] = bal.Sub(bal, amount)
	t.supply.Sub(t.supply, amount)
	return nil
}

// addMinter registers an address allowed to mint.
func (t *Token) addMinter(m domain.Address) {
	t.mu.Lock()
	t.minters[m] = struct{}{}
	t.mu.Unlock()
}

func (t *Token) moveLocked(from, to domain.Address, amount *big.Int) error {
	bal := t.balanceLocked(from)
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", token.ErrInsufficientBalance, from, bal, amount)
	}
	t.balances[from] = bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

func (t *Token) credit(to domain.Address, amount *big.Int) {
	t.balances[to] = new(big.Int).Add(t.balanceLocked(to), amount)
}

func (t *Token) balanceLocked(holder domain.Address) *big.Int {
	if b, ok := t.balances[holder]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) allowanceLocked(owner, spender domain.Address) *big.Int {
	if a, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (t *Token) notify(ctx context.Context, from, to domain.Address, amount *big.Int) {
	if t.hook == nil {
		return
	}
	if h := t.hook(); h != nil {
		h(ctx, t.addr, from, to, new(big.Int).Set(amount))
	}
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return token.ErrInvalidAmount
	}
	return nil
}

var _ token.Token = (*Token)(nil)

// Package memtoken is an in-memory fungible token ledger used by the server
// and tests in place of an external chain.
package memtoken

import (
	"context"
	"fmt"
	"sync"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/idhash"
	"meme-ledger/internal/token"
)

// Options configures a Registry.
type Options struct {
	NativeName    string           // default: "Native"
	NativeSymbol  string           // default: "NATIVE"
	NativeMinters []domain.Address // may mint the native asset (deposit desk)
	Minters       []domain.Address // may mint every deployed token
}

// Registry is an in-memory implementation of token.Factory.
type Registry struct {
	mu      sync.RWMutex
	tokens  map[domain.Address]*Token
	order   []domain.Address
	native  *Token
	minters []domain.Address
	nonce   uint64

	hookMu sync.RWMutex
	hook   ReceiveHook
}

// NewRegistry creates a registry with a native asset.
func NewRegistry(opts Options) *Registry {
	name := opts.NativeName
	if name == "" {
		name = "Native"
	}
	symbol := opts.NativeSymbol
	if symbol == "" {
		symbol = "NATIVE"
	}

	r := &Registry{
		tokens:  make(map[domain.Address]*Token),
		minters: append([]domain.Address(nil), opts.Minters...),
	}

	nativeAddr, _, err := idhash.DeriveTokenAddress(domain.ZeroAddress, symbol, 0)
	if err != nil {
		panic(fmt.Sprintf("derive native address: %v", err))
	}
	r.native = newToken(nativeAddr, name, symbol, opts.NativeMinters, r.currentHook)
	return r
}

// Deploy creates a token with a derived address.
func (r *Registry) Deploy(_ context.Context, creator domain.Address, name, symbol string) (token.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nonce++
	addr, _, err := idhash.DeriveTokenAddress(creator, symbol, r.nonce)
	if err != nil {
		return nil, fmt.Errorf("derive token address: %w", err)
	}
	if _, exists := r.tokens[addr]; exists {
		return nil, fmt.Errorf("%w: token %s", domain.ErrAlreadyExists, addr)
	}

	t := newToken(addr, name, symbol, r.minters, r.currentHook)
	r.tokens[addr] = t
	r.order = append(r.order, addr)
	return t, nil
}

// Undeploy drops an unminted token so a failed creation leaves no trace.
func (r *Registry) Undeploy(ctx context.Context, addr domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[addr]
	if !ok {
		return fmt.Errorf("%w: %s", token.ErrNotFound, addr)
	}
	supply, err := t.TotalSupply(ctx)
	if err != nil {
		return err
	}
	if supply.Sign() != 0 {
		return fmt.Errorf("%w: token %s has supply %s", domain.ErrInvalidInput, addr, supply)
	}

	delete(r.tokens, addr)
	for i, a := range r.order {
		if a == addr {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Lookup returns the token at addr. Returns token.ErrNotFound if none exists.
func (r *Registry) Lookup(addr domain.Address) (token.Token, error) {
	if addr == r.native.addr {
		return r.native, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", token.ErrNotFound, addr)
	}
	return t, nil
}

// Native returns the native asset.
func (r *Registry) Native() token.Token {
	return r.native
}

// AddMinter allows m to mint every current and future deployed token.
func (r *Registry) AddMinter(m domain.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minters = append(r.minters, m)
	for _, t := range r.tokens {
		t.addMinter(m)
	}
}

// SetReceiveHook installs a hook called after every credit. nil removes it.
func (r *Registry) SetReceiveHook(h ReceiveHook) {
	r.hookMu.Lock()
	r.hook = h
	r.hookMu.Unlock()
}

// Count returns the number of deployed tokens, excluding the native asset.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func (r *Registry) currentHook() ReceiveHook {
	r.hookMu.RLock()
	defer r.hookMu.RUnlock()
	return r.hook
}

var _ token.Factory = (*Registry)(nil)

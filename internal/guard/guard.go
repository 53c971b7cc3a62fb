// Package guard provides a per-operation re-entrancy flag.
package guard

import (
	"fmt"
	"sync/atomic"

	"meme-ledger/internal/domain"
)

// Guard is an in-progress flag for one operation. The zero value is ready.
type Guard struct {
	name string
	busy atomic.Bool
}

// New creates a guard labelled name in its errors.
func New(name string) *Guard {
	return &Guard{name: name}
}

// Enter sets the flag and returns the function that clears it.
// Fails with domain.ErrReentrant if the flag is already set.
func (g *Guard) Enter() (release func(), err error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, fmt.Errorf("%s: %w", g.name, domain.ErrReentrant)
	}
	return func() { g.busy.Store(false) }, nil
}

// Busy reports whether the operation is in progress.
func (g *Guard) Busy() bool {
	return g.busy.Load()
}

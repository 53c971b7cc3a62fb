package ledger

import (
	"context"
	"fmt"
	"math/big"

	"meme-ledger/internal/domain"
)

type txnKey struct{}

// txn is the state of one Exec or View call.
type txn struct {
	store    *Store
	readOnly bool
	undo     []func()
	events   []*domain.Event
}

// record appends an undo step. Called with s.mu held.
func (tx *txn) record(fn func()) {
	tx.undo = append(tx.undo, fn)
}

func (s *Store) txnFrom(ctx context.Context) *txn {
	tx, ok := ctx.Value(txnKey{}).(*txn)
	if !ok || tx.store != s {
		return nil
	}
	return tx
}

// Exec runs fn as one exclusive operation. Every write fn makes through
// the context it receives is journaled; if fn returns an error or panics,
// all of them are undone and queued events are dropped. On success the
// events get sequence numbers and go to the Notifier in order.
//
// An Exec on a context derived from a running Exec joins that operation
// with a savepoint: its writes are undone on its own failure and commit
// with the outer operation. An Exec inside View fails with
// domain.ErrReentrant.
func (s *Store) Exec(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx := s.txnFrom(ctx); tx != nil {
		if tx.readOnly {
			return fmt.Errorf("%w: Exec inside View", domain.ErrReentrant)
		}
		return s.nested(ctx, tx, fn)
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	tx := &txn{store: s}
	defer func() {
		if r := recover(); r != nil {
			s.rollbackTo(tx, 0, 0)
			panic(r)
		}
	}()

	if err = fn(context.WithValue(ctx, txnKey{}, tx)); err != nil {
		s.rollbackTo(tx, 0, 0)
		return err
	}

	for _, ev := range s.commit(tx) {
		if s.notifier != nil {
			s.notifier.Notify(ev)
		}
	}
	return nil
}

func (s *Store) nested(ctx context.Context, tx *txn, fn func(ctx context.Context) error) (err error) {
	undoMark, eventMark := len(tx.undo), len(tx.events)
	defer func() {
		if r := recover(); r != nil {
			s.rollbackTo(tx, undoMark, eventMark)
			panic(r)
		}
	}()

	if err = fn(ctx); err != nil {
		s.rollbackTo(tx, undoMark, eventMark)
	}
	return err
}

// View runs fn under the shared operation lock, so it never observes a
// half-applied Exec. Writes inside fn fail with domain.ErrReentrant.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txnFrom(ctx) != nil {
		// Already inside Exec or View on this call chain; the lock is held.
		return fn(ctx)
	}

	s.opMu.RLock()
	defer s.opMu.RUnlock()
	return fn(context.WithValue(ctx, txnKey{}, &txn{store: s, readOnly: true}))
}

// Emit queues ev for delivery after the current Exec commits.
func (s *Store) Emit(ctx context.Context, ev *domain.Event) error {
	tx := s.txnFrom(ctx)
	if tx == nil || tx.readOnly {
		return ErrNoOperation
	}
	if ev == nil || !ev.Kind.IsValid() {
		return fmt.Errorf("%w: event kind", domain.ErrInvalidInput)
	}

	c := *ev
	if ev.Amount != nil {
		c.Amount = new(big.Int).Set(ev.Amount)
	}
	if ev.Cost != nil {
		c.Cost = new(big.Int).Set(ev.Cost)
	}
	tx.events = append(tx.events, &c)
	return nil
}

// write runs one gated mutation. Inside Exec it joins the operation's undo
// journal; outside it takes the operation lock for just this write, which
// validates before mutating and so never needs undoing.
func (s *Store) write(ctx context.Context, authorize func() error, apply func(tx *txn) error) error {
	tx := s.txnFrom(ctx)
	if tx != nil && tx.readOnly {
		return fmt.Errorf("%w: write inside View", domain.ErrReentrant)
	}
	if tx == nil {
		s.opMu.Lock()
		defer s.opMu.Unlock()
		tx = &txn{store: s}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := authorize(); err != nil {
		return err
	}
	return apply(tx)
}

// rollbackTo undoes writes and drops events recorded after the marks.
func (s *Store) rollbackTo(tx *txn, undoMark, eventMark int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	undone := len(tx.undo) - undoMark
	for i := len(tx.undo) - 1; i >= undoMark; i-- {
		tx.undo[i]()
	}
	dropped := len(tx.events) - eventMark
	if undone > 0 || dropped > 0 {
		s.logger.Debug().
			Int("writes", undone).
			Int("events", dropped).
			Msg("operation rolled back")
	}
	tx.undo = tx.undo[:undoMark]
	tx.events = tx.events[:eventMark]
}

func (s *Store) commit(tx *txn) []*domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range tx.events {
		s.seq++
		ev.Seq = s.seq
	}
	events := tx.events
	tx.undo = nil
	tx.events = nil
	return events
}

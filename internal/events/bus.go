// Package events fans committed ledger events out to several consumers.
package events

import (
	"sync"

	"github.com/rs/zerolog"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/ledger"
)

// Bus is a ledger.Notifier that forwards every event to its subscribers in
// subscription order. Subscribers run on the committing goroutine with the
// ledger's operation lock held, so they must only enqueue.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscriber
	nextID int
	logger zerolog.Logger
}

type subscriber struct {
	id   int
	name string
	n    ledger.Notifier
}

// NewBus creates an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "events").Logger()}
}

// Subscribe adds n under name and returns a function that removes it.
func (b *Bus) Subscribe(name string, n ledger.Notifier) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscriber{id: id, name: name, n: n})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of subscribers.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Notify delivers ev to every subscriber. A panicking subscriber is logged
// and skipped; the rest still receive the event.
func (b *Bus) Notify(ev *domain.Event) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s, ev)
	}
}

func (b *Bus) deliver(s subscriber, ev *domain.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("subscriber", s.name).
				Uint64("seq", ev.Seq).
				Interface("panic", r).
				Msg("event subscriber panicked")
		}
	}()
	s.n.Notify(ev)
}

var _ ledger.Notifier = (*Bus)(nil)

package launchpad

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"meme-ledger/internal/clock"
	"meme-ledger/internal/domain"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/pricing"
	"meme-ledger/internal/token/memtoken"
)

func addr(seed byte) domain.Address {
	b := make([]byte, domain.AddressLen)
	for i := range b {
		b[i] = seed
	}
	a, err := domain.AddressFromBytes(b)
	if err != nil {
		panic(err)
	}
	return a
}

var (
	owner    = addr(1)
	self     = addr(2)
	treasury = addr(3)
	admin    = addr(4)
	alice    = addr(20)
	bob      = addr(21)
)

type fixture struct {
	ctx    context.Context
	clock  *clock.Manual
	ledger *ledger.Store
	reg    *memtoken.Registry
	ctrl   *Controller
	events []*domain.Event
}

func units(n int64) *big.Int {
	return pricing.WholeToSub(big.NewInt(n))
}

func newFixture(t *testing.T, regOpts memtoken.Options) *fixture {
	t.Helper()

	f := &fixture{
		ctx:   context.Background(),
		clock: clock.NewManual(time.Unix(1_700_000_000, 0)),
	}

	store, err := ledger.New(ledger.Options{
		Owner:    owner,
		Notifier: ledger.NotifierFunc(func(ev *domain.Event) { f.events = append(f.events, ev) }),
	})
	require.NoError(t, err)
	require.NoError(t, store.SetAccessGate(f.ctx, owner, self))
	f.ledger = store

	f.reg = memtoken.NewRegistry(regOpts)
	f.ctrl, err = New(Options{
		Ledger:   store,
		Tokens:   f.reg,
		Clock:    f.clock,
		Self:     self,
		Treasury: treasury,
		Admin:    admin,
	})
	require.NoError(t, err)
	return f
}

// defaultFixture can mint every token and has alice and bob funded with
// 10 native units each.
func defaultFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t, memtoken.Options{
		NativeMinters: []domain.Address{self},
		Minters:       []domain.Address{self},
	})
	require.NoError(t, f.ctrl.CreditNative(f.ctx, admin, alice, units(10)))
	require.NoError(t, f.ctrl.CreditNative(f.ctx, admin, bob, units(10)))
	return f
}

func (f *fixture) create(t *testing.T, creator domain.Address, symbol string) domain.Address {
	t.Helper()
	a, err := f.ctrl.CreateToken(f.ctx, creator, CreateTokenParams{
		Name:    symbol + " coin",
		Symbol:  symbol,
		Source:  "test",
		FeePaid: DefaultPlatformFee,
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) nativeBalance(t *testing.T, holder domain.Address) *big.Int {
	t.Helper()
	bal, err := f.reg.Native().BalanceOf(f.ctx, holder)
	require.NoError(t, err)
	return bal
}

func (f *fixture) balance(t *testing.T, tok, holder domain.Address) *big.Int {
	t.Helper()
	tt, err := f.reg.Lookup(tok)
	require.NoError(t, err)
	bal, err := tt.BalanceOf(f.ctx, holder)
	require.NoError(t, err)
	return bal
}

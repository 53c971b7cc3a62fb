package ledger

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-ledger/internal/domain"
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
	owner = addr(1)
	gate  = addr(2)
	tokA  = addr(10)
	tokB  = addr(11)
	alice = addr(20)
)

func newStore(t *testing.T, n Notifier) *Store {
	t.Helper()
	s, err := New(Options{Owner: owner, Notifier: n})
	require.NoError(t, err)
	require.NoError(t, s.SetAccessGate(context.Background(), owner, gate))
	return s
}

func record(a domain.Address) domain.TokenRecord {
	return domain.TokenRecord{
		Address:     a,
		Name:        "Token " + a.String()[:4],
		Symbol:      "TKN",
		FundsRaised: new(big.Int),
		Creator:     alice,
		Source:      "test",
		Spotlight:   domain.DefaultSpotlight,
		CreatedAt:   1000,
	}
}

func TestNew_RequiresOwner(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
}

func TestSetAccessGate_OwnerOnly(t *testing.T) {
	ctx := context.Background()
	s, err := New(Options{Owner: owner})
	require.NoError(t, err)

	// No gate yet: every write is refused.
	err = s.RegisterToken(ctx, gate, record(tokA))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = s.SetAccessGate(ctx, gate, gate)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	err = s.SetAccessGate(ctx, owner, domain.ZeroAddress)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	require.NoError(t, s.SetAccessGate(ctx, owner, gate))
	assert.Equal(t, gate, s.AccessGate())
	assert.Equal(t, owner, s.Owner())
}

func TestWrites_RejectNonGate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	intruder := addr(99)
	checks := map[string]error{
		"RegisterToken":  s.RegisterToken(ctx, intruder, record(tokB)),
		"AddFundsRaised": s.AddFundsRaised(ctx, intruder, tokA, big.NewInt(1)),
		"AddStake":       s.AddStake(ctx, intruder, alice, tokA, big.NewInt(1), 0),
		"SetStake":       s.SetStake(ctx, intruder, alice, tokA, big.NewInt(1), 0),
		"TouchStake":     s.TouchStake(ctx, intruder, alice, tokA, 0),
		"DeleteStake":    s.DeleteStake(ctx, intruder, alice, tokA),
		"SetVoting":      s.SetVoting(ctx, intruder, tokA, true, 0, 1),
		"WriteReceipt":   s.WriteReceipt(ctx, intruder, "k"),
		"AppendVoting":   s.AppendVotingToken(ctx, intruder, tokA),
		"ReplaceVoting":  s.ReplaceVotingTokens(ctx, intruder, nil),
		"SetSpotlight":   s.SetSpotlight(ctx, intruder, tokA, 1),
	}
	_, err := s.IncrementVotes(ctx, intruder, tokA)
	checks["IncrementVotes"] = err

	for name, err := range checks {
		assert.ErrorIs(t, err, domain.ErrUnauthorized, name)
	}

	// Nothing changed.
	rec, ok := s.Token(tokA)
	require.True(t, ok)
	assert.Equal(t, int64(0), rec.FundsRaised.Int64())
	assert.Equal(t, 1, s.TokenCount())
}

func TestRegisterToken(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	err := s.RegisterToken(ctx, gate, record(domain.ZeroAddress))
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokB)))

	err = s.RegisterToken(ctx, gate, record(tokA))
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	bad := record(addr(12))
	bad.Spotlight = 101
	assert.ErrorIs(t, s.RegisterToken(ctx, gate, bad), domain.ErrOutOfRange)

	assert.Equal(t, []domain.Address{tokA, tokB}, s.TokenAddresses())
	tokens := s.Tokens()
	require.Len(t, tokens, 2)
	assert.Equal(t, tokA, tokens[0].Address)

	// Returned records are copies.
	tokens[0].FundsRaised.SetInt64(42)
	rec, _ := s.Token(tokA)
	assert.Equal(t, int64(0), rec.FundsRaised.Int64())
}

func TestStakeWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	assert.ErrorIs(t, s.AddStake(ctx, gate, alice, tokA, big.NewInt(0), 1), domain.ErrInvalidInput)

	require.NoError(t, s.AddStake(ctx, gate, alice, tokA, big.NewInt(100), 10))
	require.NoError(t, s.AddStake(ctx, gate, alice, tokA, big.NewInt(50), 20))

	rec, ok := s.Stake(alice, tokA)
	require.True(t, ok)
	assert.Equal(t, int64(150), rec.Amount.Int64())
	assert.Equal(t, int64(20), rec.StartTime)

	require.NoError(t, s.TouchStake(ctx, gate, alice, tokA, 30))
	rec, _ = s.Stake(alice, tokA)
	assert.Equal(t, int64(150), rec.Amount.Int64())
	assert.Equal(t, int64(30), rec.StartTime)

	require.NoError(t, s.SetStake(ctx, gate, alice, tokA, big.NewInt(7), 40))
	rec, _ = s.Stake(alice, tokA)
	assert.Equal(t, int64(7), rec.Amount.Int64())
	assert.Equal(t, int64(40), rec.StartTime)

	require.NoError(t, s.DeleteStake(ctx, gate, alice, tokA))
	_, ok = s.Stake(alice, tokA)
	assert.False(t, ok)

	assert.ErrorIs(t, s.DeleteStake(ctx, gate, alice, tokA), domain.ErrNoStake)
	assert.ErrorIs(t, s.TouchStake(ctx, gate, alice, tokA, 50), domain.ErrNoStake)
}

func TestVotingWrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	assert.ErrorIs(t, s.SetVoting(ctx, gate, tokA, true, 0, 10), domain.ErrInvalidInput)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	_, err := s.IncrementVotes(ctx, gate, tokA)
	assert.ErrorIs(t, err, domain.ErrNotActive)

	require.NoError(t, s.SetVoting(ctx, gate, tokA, true, 100, 200))
	n, err := s.IncrementVotes(ctx, gate, tokA)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
	n, _ = s.IncrementVotes(ctx, gate, tokA)
	assert.Equal(t, uint64(2), n)

	require.NoError(t, s.SetVoting(ctx, gate, tokA, false, 0, 0))
	v, ok := s.VoteState(tokA)
	require.True(t, ok)
	assert.False(t, v.Active)
	assert.Equal(t, uint64(2), v.Votes)
	assert.Zero(t, v.Start)
	assert.Zero(t, v.End)

	_, err = s.IncrementVotes(ctx, gate, tokA)
	assert.ErrorIs(t, err, domain.ErrNotActive)

	// A new round starts from zero.
	require.NoError(t, s.SetVoting(ctx, gate, tokA, true, 300, 400))
	v, _ = s.VoteState(tokA)
	assert.Equal(t, uint64(0), v.Votes)
	assert.True(t, v.InWindow(300))
	assert.True(t, v.InWindow(400))
	assert.False(t, v.InWindow(401))
}

func TestReceiptsAndVotingSet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	require.NoError(t, s.WriteReceipt(ctx, gate, "r1"))
	assert.True(t, s.HasVoted("r1"))
	assert.False(t, s.HasVoted("r2"))
	assert.ErrorIs(t, s.WriteReceipt(ctx, gate, "r1"), domain.ErrAlreadyVoted)

	require.NoError(t, s.AppendVotingToken(ctx, gate, tokA))
	require.NoError(t, s.AppendVotingToken(ctx, gate, tokB))
	require.NoError(t, s.AppendVotingToken(ctx, gate, tokA))
	assert.Equal(t, []domain.Address{tokA, tokB}, s.VotingTokens())

	require.NoError(t, s.ReplaceVotingTokens(ctx, gate, []domain.Address{tokB}))
	assert.Equal(t, []domain.Address{tokB}, s.VotingTokens())
}

func TestSetSpotlight(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	assert.ErrorIs(t, s.SetSpotlight(ctx, gate, tokA, 101), domain.ErrOutOfRange)
	assert.ErrorIs(t, s.SetSpotlight(ctx, gate, tokB, 10), domain.ErrInvalidInput)

	require.NoError(t, s.SetSpotlight(ctx, gate, tokA, 100))
	w, ok := s.Spotlight(tokA)
	require.True(t, ok)
	assert.Equal(t, uint8(100), w)
}

func TestExec_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	var delivered []*domain.Event
	s := newStore(t, NotifierFunc(func(ev *domain.Event) { delivered = append(delivered, ev) }))
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))
	before := s.Snapshot()

	boom := errors.New("boom")
	err := s.Exec(ctx, func(ctx context.Context) error {
		require.NoError(t, s.AddFundsRaised(ctx, gate, tokA, big.NewInt(500)))
		require.NoError(t, s.RegisterToken(ctx, gate, record(tokB)))
		require.NoError(t, s.AddStake(ctx, gate, alice, tokA, big.NewInt(5), 1))
		require.NoError(t, s.SetVoting(ctx, gate, tokA, true, 1, 2))
		_, err := s.IncrementVotes(ctx, gate, tokA)
		require.NoError(t, err)
		require.NoError(t, s.WriteReceipt(ctx, gate, "r"))
		require.NoError(t, s.AppendVotingToken(ctx, gate, tokA))
		require.NoError(t, s.SetSpotlight(ctx, gate, tokA, 99))
		require.NoError(t, s.Emit(ctx, &domain.Event{Kind: domain.EventVoted, Token: tokA}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, before, s.Snapshot())
	assert.False(t, s.HasVoted("r"))
	assert.Empty(t, delivered)
}

func TestExec_RollsBackOnPanic(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))
	before := s.Snapshot()

	assert.Panics(t, func() {
		_ = s.Exec(ctx, func(ctx context.Context) error {
			_ = s.AddFundsRaised(ctx, gate, tokA, big.NewInt(1))
			panic("bad")
		})
	})
	assert.Equal(t, before, s.Snapshot())

	// The operation lock was released.
	require.NoError(t, s.Exec(ctx, func(context.Context) error { return nil }))
}

func TestExec_CommitsAndNotifiesInOrder(t *testing.T) {
	ctx := context.Background()
	var delivered []*domain.Event
	s := newStore(t, NotifierFunc(func(ev *domain.Event) { delivered = append(delivered, ev) }))
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	for i := 0; i < 3; i++ {
		err := s.Exec(ctx, func(ctx context.Context) error {
			if err := s.AddFundsRaised(ctx, gate, tokA, big.NewInt(10)); err != nil {
				return err
			}
			return s.Emit(ctx, &domain.Event{Kind: domain.EventTokenPurchased, Token: tokA, Cost: big.NewInt(10)})
		})
		require.NoError(t, err)
	}

	rec, _ := s.Token(tokA)
	assert.Equal(t, int64(30), rec.FundsRaised.Int64())
	require.Len(t, delivered, 3)
	for i, ev := range delivered {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
	assert.Equal(t, uint64(3), s.Snapshot().Seq)
}

func TestExec_ContinuesFromStartSeq(t *testing.T) {
	ctx := context.Background()
	var got uint64
	s, err := New(Options{
		Owner:    owner,
		StartSeq: 41,
		Notifier: NotifierFunc(func(ev *domain.Event) { got = ev.Seq }),
	})
	require.NoError(t, err)

	err = s.Exec(ctx, func(ctx context.Context) error {
		return s.Emit(ctx, &domain.Event{Kind: domain.EventVoted, Token: tokA})
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), got)
}

func TestExec_NestedJoinsOuter(t *testing.T) {
	ctx := context.Background()
	var delivered []*domain.Event
	s := newStore(t, NotifierFunc(func(ev *domain.Event) { delivered = append(delivered, ev) }))
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	boom := errors.New("boom")
	err := s.Exec(ctx, func(ctx context.Context) error {
		require.NoError(t, s.AddFundsRaised(ctx, gate, tokA, big.NewInt(1)))
		require.NoError(t, s.Emit(ctx, &domain.Event{Kind: domain.EventTokenPurchased, Token: tokA}))

		// A failing nested operation undoes only its own writes.
		inner := s.Exec(ctx, func(ctx context.Context) error {
			require.NoError(t, s.AddFundsRaised(ctx, gate, tokA, big.NewInt(100)))
			require.NoError(t, s.Emit(ctx, &domain.Event{Kind: domain.EventStaked, Token: tokA}))
			return boom
		})
		assert.ErrorIs(t, inner, boom)

		// A successful one commits with the outer operation.
		return s.Exec(ctx, func(ctx context.Context) error {
			require.NoError(t, s.AddFundsRaised(ctx, gate, tokA, big.NewInt(10)))
			return s.Emit(ctx, &domain.Event{Kind: domain.EventStaked, Token: tokA})
		})
	})
	require.NoError(t, err)

	rec, _ := s.Token(tokA)
	assert.Equal(t, int64(11), rec.FundsRaised.Int64())
	require.Len(t, delivered, 2)
	assert.Equal(t, domain.EventTokenPurchased, delivered[0].Kind)
	assert.Equal(t, domain.EventStaked, delivered[1].Kind)
}

func TestExec_NestedRolledBackWithOuter(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	boom := errors.New("boom")
	err := s.Exec(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Exec(ctx, func(ctx context.Context) error {
			return s.AddFundsRaised(ctx, gate, tokA, big.NewInt(5))
		}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rec, _ := s.Token(tokA)
	assert.Equal(t, int64(0), rec.FundsRaised.Int64())
}

func TestExec_InsideViewRefused(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)

	// View nested in Exec runs on the held lock.
	err := s.Exec(ctx, func(ctx context.Context) error {
		return s.View(ctx, func(context.Context) error { return nil })
	})
	assert.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context) error {
		return s.Exec(ctx, func(context.Context) error { return nil })
	})
	assert.ErrorIs(t, err, domain.ErrReentrant)
}

func TestView_RejectsWritesAndEmit(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.RegisterToken(ctx, gate, record(tokA)))

	err := s.View(ctx, func(ctx context.Context) error {
		return s.AddFundsRaised(ctx, gate, tokA, big.NewInt(1))
	})
	assert.ErrorIs(t, err, domain.ErrReentrant)

	err = s.View(ctx, func(ctx context.Context) error {
		return s.Emit(ctx, &domain.Event{Kind: domain.EventVoted})
	})
	assert.ErrorIs(t, err, ErrNoOperation)

	assert.ErrorIs(t, s.Emit(ctx, &domain.Event{Kind: domain.EventVoted}), ErrNoOperation)
}

func TestExec_Serializes(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, nil)
	require.NoError(t, s.SetStake(ctx, gate, alice, tokA, big.NewInt(1), 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Exec(ctx, func(ctx context.Context) error {
				rec, _ := s.Stake(alice, tokA)
				next := new(big.Int).Add(rec.Amount, big.NewInt(1))
				return s.SetStake(ctx, gate, alice, tokA, next, 0)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, _ := s.Stake(alice, tokA)
	assert.Equal(t, int64(51), rec.Amount.Int64())
}

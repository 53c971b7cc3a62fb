package journal

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/observability"
	"meme-ledger/internal/storage/memory"
)

func purchase(seq uint64) *domain.Event {
	return &domain.Event{
		Seq:       seq,
		Kind:      domain.EventTokenPurchased,
		Token:     "tok",
		Actor:     "bob",
		Amount:    big.NewInt(1),
		Cost:      big.NewInt(100),
		Timestamp: int64(1000 + seq),
	}
}

func runJournal(t *testing.T, j *Journal) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	return func() {
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(5 * time.Second):
			t.Fatal("journal did not stop")
		}
	}
}

func TestJournal_FlushesOnShutdown(t *testing.T) {
	events := memory.NewEventStore()
	purchases := memory.NewPurchaseStore()
	j, err := New(Options{Events: events, Purchases: purchases, FlushInterval: time.Hour})
	require.NoError(t, err)

	stop := runJournal(t, j)
	j.Notify(purchase(1))
	j.Notify(&domain.Event{Seq: 2, Kind: domain.EventStaked, Token: "tok", Amount: big.NewInt(5)})
	j.Notify(purchase(3))
	stop()

	ctx := context.Background()
	stored, err := events.GetByToken(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, uint64(3), j.Written())

	ps, err := purchases.GetByToken(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, domain.Address("bob"), ps[0].Buyer)
}

func TestJournal_FlushesFullBatch(t *testing.T) {
	events := memory.NewEventStore()
	j, err := New(Options{Events: events, BatchSize: 2, FlushInterval: time.Hour})
	require.NoError(t, err)

	stop := runJournal(t, j)
	defer stop()

	j.Notify(purchase(1))
	j.Notify(purchase(2))

	require.Eventually(t, func() bool {
		stored, _ := events.GetByKind(context.Background(), domain.EventTokenPurchased)
		return len(stored) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJournal_FlushesOnInterval(t *testing.T) {
	events := memory.NewEventStore()
	j, err := New(Options{Events: events, FlushInterval: 10 * time.Millisecond})
	require.NoError(t, err)

	stop := runJournal(t, j)
	defer stop()

	j.Notify(purchase(1))

	require.Eventually(t, func() bool {
		latest, _ := events.LatestSeq(context.Background())
		return latest == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJournal_DropsWhenFull(t *testing.T) {
	j, err := New(Options{Events: memory.NewEventStore(), QueueSize: 1})
	require.NoError(t, err)

	j.Notify(purchase(1))
	j.Notify(purchase(2))
	j.Notify(purchase(3))

	assert.Equal(t, uint64(2), j.Dropped())
	assert.Equal(t, 1, j.Pending())
}

// flakyStore fails the first n InsertBulk calls.
type flakyStore struct {
	*memory.EventStore
	mu    sync.Mutex
	fails int
	calls int
}

func (s *flakyStore) InsertBulk(ctx context.Context, events []*domain.Event) error {
	s.mu.Lock()
	s.calls++
	fail := s.calls <= s.fails
	s.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return s.EventStore.InsertBulk(ctx, events)
}

func TestJournal_RetriesTransientErrors(t *testing.T) {
	store := &flakyStore{EventStore: memory.NewEventStore(), fails: 2}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	j, err := New(Options{Events: store, Metrics: metrics, FlushInterval: time.Hour, RetryDelay: time.Millisecond})
	require.NoError(t, err)

	stop := runJournal(t, j)
	j.Notify(purchase(1))
	stop()

	assert.Equal(t, 3, store.calls)
	assert.Equal(t, uint64(1), j.Written())
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.DBQueryErrors.WithLabelValues("events", "insert_bulk")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.DBQueryDuration))
}

func TestJournal_DuplicateIsNotRetried(t *testing.T) {
	events := memory.NewEventStore()
	require.NoError(t, events.InsertBulk(context.Background(), []*domain.Event{purchase(1)}))

	j, err := New(Options{Events: events, FlushInterval: time.Hour, RetryDelay: time.Hour})
	require.NoError(t, err)

	stop := runJournal(t, j)
	j.Notify(purchase(1))
	stop()

	assert.Zero(t, j.Written())
}

func TestNew_RequiresEventStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

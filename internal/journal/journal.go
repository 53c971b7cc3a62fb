// Package journal persists committed ledger events off the hot path.
//
// The ledger delivers events while it still holds its operation lock, so
// Notify only enqueues. Run drains the queue in batches into an EventStore
// and projects purchases into a PurchaseStore.
package journal

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"meme-ledger/internal/domain"
	"meme-ledger/internal/ledger"
	"meme-ledger/internal/observability"
	"meme-ledger/internal/storage"
)

const (
	defaultQueueSize     = 4096
	defaultBatchSize     = 256
	defaultFlushInterval = time.Second
	defaultRetryDelay    = 200 * time.Millisecond
	maxRetries           = 3
	shutdownFlushTimeout = 10 * time.Second
)

// Options contains configuration for creating a Journal.
type Options struct {
	Events        storage.EventStore    // required
	Purchases     storage.PurchaseStore // optional
	Metrics       *observability.Metrics
	QueueSize     int           // Default: 4096 events
	BatchSize     int           // Default: 256 events per write
	FlushInterval time.Duration // Default: 1s
	RetryDelay    time.Duration // Default: 200ms, doubled per attempt
	Logger        zerolog.Logger
}

// Journal is a ledger.Notifier backed by a bounded queue.
type Journal struct {
	events        storage.EventStore
	purchases     storage.PurchaseStore
	metrics       *observability.Metrics
	queue         chan *domain.Event
	batchSize     int
	flushInterval time.Duration
	retryDelay    time.Duration
	logger        zerolog.Logger

	dropped atomic.Uint64
	written atomic.Uint64
}

// New creates a journal. It does nothing until Run is called.
func New(opts Options) (*Journal, error) {
	if opts.Events == nil {
		return nil, errors.New("journal: event store is required")
	}

	queueSize := opts.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	flushInterval := opts.FlushInterval
	if flushInterval <= 0 {
		flushInterval = defaultFlushInterval
	}
	retryDelay := opts.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	return &Journal{
		events:        opts.Events,
		purchases:     opts.Purchases,
		metrics:       opts.Metrics,
		queue:         make(chan *domain.Event, queueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		retryDelay:    retryDelay,
		logger:        opts.Logger.With().Str("component", "journal").Logger(),
	}, nil
}

// Notify enqueues ev without blocking. When the queue is full the event
// is dropped and counted.
func (j *Journal) Notify(ev *domain.Event) {
	select {
	case j.queue <- ev:
	default:
		j.dropped.Add(1)
		j.metrics.RecordDrop("journal")
		j.logger.Warn().
			Uint64("seq", ev.Seq).
			Str("kind", ev.Kind.String()).
			Msg("journal queue full, event dropped")
	}
}

// Dropped returns the number of events dropped on a full queue.
func (j *Journal) Dropped() uint64 { return j.dropped.Load() }

// Written returns the number of events stored.
func (j *Journal) Written() uint64 { return j.written.Load() }

// Pending returns the number of queued events.
func (j *Journal) Pending() int { return len(j.queue) }

// Run flushes queued events until ctx is cancelled, then drains what is
// left with a bounded timeout. It blocks until done.
func (j *Journal) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	j.logger.Info().
		Dur("flush_interval", j.flushInterval).
		Int("batch_size", j.batchSize).
		Int("queue_size", cap(j.queue)).
		Msg("journal started")

	batch := make([]*domain.Event, 0, j.batchSize)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
			batch = j.drain(batch)
			j.flush(flushCtx, batch)
			cancel()
			j.logger.Info().Uint64("written", j.Written()).Uint64("dropped", j.Dropped()).Msg("journal stopped")
			return ctx.Err()

		case ev := <-j.queue:
			batch = append(batch, ev)
			if len(batch) >= j.batchSize {
				j.flush(ctx, batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				j.flush(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// drain moves everything currently queued into batch.
func (j *Journal) drain(batch []*domain.Event) []*domain.Event {
	for {
		select {
		case ev := <-j.queue:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

// flush writes batch in chunks of batchSize.
func (j *Journal) flush(ctx context.Context, batch []*domain.Event) {
	for start := 0; start < len(batch); start += j.batchSize {
		end := start + j.batchSize
		if end > len(batch) {
			end = len(batch)
		}
		j.write(ctx, batch[start:end])
	}
}

func (j *Journal) write(ctx context.Context, chunk []*domain.Event) {
	if len(chunk) == 0 {
		return
	}

	err := j.retry(ctx, "events", func() error { return j.events.InsertBulk(ctx, chunk) })
	j.metrics.RecordJournalWrite("events", err)
	if err != nil {
		j.logger.Error().Err(err).
			Uint64("first_seq", chunk[0].Seq).
			Int("count", len(chunk)).
			Msg("failed to store events")
		return
	}
	j.written.Add(uint64(len(chunk)))

	if j.purchases == nil {
		return
	}
	var purchases []*domain.Purchase
	for _, ev := range chunk {
		if p, ok := domain.PurchaseFromEvent(ev); ok {
			purchases = append(purchases, p)
		}
	}
	if len(purchases) == 0 {
		return
	}

	err = j.retry(ctx, "purchases", func() error { return j.purchases.InsertBulk(ctx, purchases) })
	j.metrics.RecordJournalWrite("purchases", err)
	if err != nil {
		j.logger.Error().Err(err).
			Uint64("first_seq", purchases[0].Seq).
			Int("count", len(purchases)).
			Msg("failed to store purchases")
	}
}

// retry runs fn with exponential backoff. Duplicate keys and invalid input
// are permanent and returned at once.
func (j *Journal) retry(ctx context.Context, store string, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		start := time.Now()
		err := fn()
		j.metrics.RecordDBQuery(store, "insert_bulk", time.Since(start).Seconds(), err)
		if err == nil {
			return nil
		}
		if errors.Is(err, storage.ErrDuplicateKey) || errors.Is(err, storage.ErrInvalidInput) {
			return err
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}

		delay := j.retryDelay * time.Duration(1<<attempt)
		j.logger.Warn().Err(err).
			Str("store", store).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("retrying journal write")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}

var _ ledger.Notifier = (*Journal)(nil)

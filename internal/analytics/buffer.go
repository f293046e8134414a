package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/metrics"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	// DefaultFlushBatchSize triggers an auto-flush once this many events are
	// buffered.
	DefaultFlushBatchSize = 50

	// DefaultFlushInterval is how often the timer flushes a non-empty buffer.
	DefaultFlushInterval = 5 * time.Second
)

// flight tracks one in-progress flush so concurrent triggers can await its
// outcome instead of double-submitting.
type flight struct {
	done chan struct{}
	err  error
}

// EventBuffer batches inbound analytics events in memory and persists them
// in bulk. All state is owned by the instance; the mutex is held only around
// slice swaps, never across the insert itself.
type EventBuffer struct {
	db *gorm.DB

	mu       sync.Mutex
	pending  []models.AnalyticsEvent
	inflight *flight

	batchSize int
	interval  time.Duration

	// onFlush is invoked after a successful flush with the number of rows
	// actually persisted. Used to invalidate the summary cache.
	onFlush func(persisted int)

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEventBuffer creates an event buffer writing to db. batchSize and
// interval fall back to the defaults when zero.
func NewEventBuffer(db *gorm.DB, batchSize int, interval time.Duration) *EventBuffer {
	if batchSize <= 0 {
		batchSize = DefaultFlushBatchSize
	}
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &EventBuffer{
		db:        db,
		batchSize: batchSize,
		interval:  interval,
	}
}

// OnFlush registers the post-flush callback. Must be called before Start.
func (b *EventBuffer) OnFlush(fn func(persisted int)) {
	b.onFlush = fn
}

// Len returns the current number of buffered events.
func (b *EventBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Enqueue appends sanitized events to the buffer. Empty input is a no-op.
// When the buffer reaches the batch threshold a background flush is kicked
// off; its failure is logged and the batch retried on the next trigger.
func (b *EventBuffer) Enqueue(events []models.AnalyticsEvent) {
	if len(events) == 0 {
		return
	}

	b.mu.Lock()
	b.pending = append(b.pending, events...)
	n := len(b.pending)
	b.mu.Unlock()

	m := metrics.Get()
	m.EventsBuffered.Add(float64(len(events)))
	m.BufferLength.Set(float64(n))

	if n >= b.batchSize {
		go func() {
			if err := b.Flush(context.Background()); err != nil {
				logger.Log.Warn("Threshold flush failed, batch will be retried",
					zap.Int("buffered", b.Len()),
					zap.Error(err))
			}
		}()
	}
}

// Flush persists the buffered events. At most one flush runs at a time;
// callers arriving while one is in progress wait for it and share its
// outcome. On insert failure the batch is prepended back onto the current
// buffer, ahead of anything enqueued during the failed attempt, so order is
// preserved for the retry.
func (b *EventBuffer) Flush(ctx context.Context) error {
	b.mu.Lock()
	if fl := b.inflight; fl != nil {
		b.mu.Unlock()
		select {
		case <-fl.done:
			return fl.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	batch := b.pending
	b.pending = nil
	fl := &flight{done: make(chan struct{})}
	b.inflight = fl
	b.mu.Unlock()

	// Duplicate-skip insert: replayed batches must not double-count events.
	res := b.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(batch, b.batchSize)

	m := metrics.Get()

	b.mu.Lock()
	if res.Error != nil {
		b.pending = append(batch, b.pending...)
		m.FlushesTotal.WithLabelValues("error").Inc()
	} else {
		m.FlushesTotal.WithLabelValues("ok").Inc()
		m.EventsFlushed.Add(float64(res.RowsAffected))
	}
	m.BufferLength.Set(float64(len(b.pending)))
	fl.err = res.Error
	b.inflight = nil
	b.mu.Unlock()
	close(fl.done)

	if res.Error != nil {
		logger.Log.Error("Event buffer flush failed",
			zap.Int("batch_size", len(batch)),
			zap.Error(res.Error))
		return res.Error
	}

	if b.onFlush != nil {
		b.onFlush(int(res.RowsAffected))
	}
	return nil
}

// Start launches the interval flush timer.
func (b *EventBuffer) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})

	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if b.Len() == 0 {
					continue
				}
				if err := b.Flush(context.Background()); err != nil {
					logger.Log.Warn("Timer flush failed, batch will be retried",
						zap.Error(err))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the timer, waits out any in-flight flush, then forces a final
// flush of whatever remains.
func (b *EventBuffer) Stop(ctx context.Context) error {
	if b.cancel != nil {
		b.cancel()
		select {
		case <-b.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// A Flush that joins an in-flight attempt does not cover events enqueued
	// after that attempt swapped the buffer, so drain explicitly.
	if err := b.Flush(ctx); err != nil {
		return err
	}
	if b.Len() > 0 {
		return b.Flush(ctx)
	}
	return nil
}

package analytics

import (
	"context"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/metrics"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRetentionDays is the age beyond which raw analytics rows are
// eligible for deletion.
const DefaultRetentionDays = 180

// Pruner deletes aged-out raw events and sessions on a schedule.
type Pruner struct {
	db            *gorm.DB
	buffer        *EventBuffer
	cache         *SummaryCache
	retentionDays int
	now           func() time.Time
}

// NewPruner creates a retention pruner. retentionDays falls back to the
// default when zero.
func NewPruner(db *gorm.DB, buffer *EventBuffer, cache *SummaryCache, retentionDays int) *Pruner {
	if retentionDays <= 0 {
		retentionDays = DefaultRetentionDays
	}
	return &Pruner{
		db:            db,
		buffer:        buffer,
		cache:         cache,
		retentionDays: retentionDays,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Run flushes the buffer, deletes rows past the retention horizon, and
// invalidates the summary cache whether or not anything was deleted.
//
// The flush comes first so buffered events are durable before any delete
// window applies; a failed flush leaves them buffered, which pruning cannot
// touch, so the prune still proceeds.
func (p *Pruner) Run(ctx context.Context) error {
	if err := p.buffer.Flush(ctx); err != nil {
		logger.Log.Warn("Pre-prune flush failed, pruning persisted rows only",
			zap.Error(err))
	}
	defer p.cache.Invalidate()

	horizon := p.now().AddDate(0, 0, -p.retentionDays)
	m := metrics.Get()

	events := p.db.WithContext(ctx).
		Where("created_at < ?", horizon).
		Delete(&models.AnalyticsEvent{})
	if events.Error != nil {
		return events.Error
	}
	m.EventsPruned.Add(float64(events.RowsAffected))

	sessions := p.db.WithContext(ctx).
		Where("started_at < ? AND (ended_at IS NULL OR ended_at < ?)", horizon, horizon).
		Delete(&models.AnalyticsSession{})
	if sessions.Error != nil {
		return sessions.Error
	}
	m.SessionsPruned.Add(float64(sessions.RowsAffected))

	logger.Log.Info("Retention prune completed",
		zap.Time("horizon", horizon),
		zap.Int64("events_deleted", events.RowsAffected),
		zap.Int64("sessions_deleted", sessions.RowsAffected))

	return nil
}

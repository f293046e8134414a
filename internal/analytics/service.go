package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/geo"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionEndEventType marks an event that signals the end of a session and
// triggers an immediate flush.
const SessionEndEventType = "session_end"

// IngestEvent is one event in an ingestion batch.
type IngestEvent struct {
	Type       string          `json:"type"`
	TargetType string          `json:"targetType,omitempty"`
	TargetID   string          `json:"targetId,omitempty"`
	DurationMs *int64          `json:"durationMs,omitempty"`
	Value      *float64        `json:"value,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Timestamp  *time.Time      `json:"timestamp,omitempty"`
	UserID     *string         `json:"userId,omitempty"`
}

// IngestRequest is the public payload of the analytics ingestion path.
type IngestRequest struct {
	SessionKey string        `json:"sessionKey,omitempty"`
	UserID     *string       `json:"userId,omitempty"`
	UserAgent  string        `json:"userAgent,omitempty"`
	IPAddress  string        `json:"-"`
	StartedAt  *time.Time    `json:"startedAt,omitempty"`
	EndedAt    *time.Time    `json:"endedAt,omitempty"`
	Events     []IngestEvent `json:"events"`
}

// IngestResponse reports how many events were accepted and, when a session
// key was supplied, the session row they were linked to.
type IngestResponse struct {
	Count     int     `json:"count"`
	SessionID *string `json:"sessionId,omitempty"`
}

// Service owns the analytics subsystem: the event buffer, session tracker,
// aggregator, summary cache and retention pruner, constructed once and
// passed to whatever request layer needs them.
type Service struct {
	db       *gorm.DB
	buffer   *EventBuffer
	sessions *SessionTracker
	cache    *SummaryCache
	pruner   *Pruner
}

// Options tunes the analytics service; zero values fall back to defaults.
type Options struct {
	FlushBatchSize int
	FlushInterval  time.Duration
	SummaryTTL     time.Duration
	RetentionDays  int
}

// NewService wires the analytics components together. A flush that persists
// at least one event invalidates the summary cache.
func NewService(db *gorm.DB, resolver geo.Resolver, opts Options) *Service {
	buffer := NewEventBuffer(db, opts.FlushBatchSize, opts.FlushInterval)
	aggregator := NewAggregator(db, resolver)
	cache := NewSummaryCache(aggregator, buffer, opts.SummaryTTL)
	buffer.OnFlush(func(persisted int) {
		if persisted > 0 {
			cache.Invalidate()
		}
	})

	return &Service{
		db:       db,
		buffer:   buffer,
		sessions: NewSessionTracker(db),
		cache:    cache,
		pruner:   NewPruner(db, buffer, cache, opts.RetentionDays),
	}
}

// Start launches the buffer's flush timer.
func (s *Service) Start() {
	s.buffer.Start()
}

// Stop shuts the buffer down, flushing anything still in memory.
func (s *Service) Stop(ctx context.Context) error {
	return s.buffer.Stop(ctx)
}

// Buffer exposes the event buffer (tests, shutdown wiring).
func (s *Service) Buffer() *EventBuffer { return s.buffer }

// Cache exposes the summary cache (warm scheduling, request-metric
// invalidation).
func (s *Service) Cache() *SummaryCache { return s.cache }

// Pruner exposes the retention pruner for schedule registration.
func (s *Service) Pruner() *Pruner { return s.pruner }

// GetSummary serves a summary for the requested window through the cache.
func (s *Service) GetSummary(ctx context.Context, rangeDays int) (*Summary, error) {
	return s.cache.Get(ctx, rangeDays)
}

// Ingest validates a batch payload, upserts its session, and enqueues the
// events. An explicit end timestamp or a session_end event flushes
// immediately; ordinary batches ride the timer or the batch threshold.
//
// An empty events array is acknowledged with count 0 and performs no
// persistence write at all.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResponse, error) {
	if len(req.Events) == 0 {
		return &IngestResponse{Count: 0}, nil
	}

	for i := range req.Events {
		if req.Events[i].Type == "" {
			return nil, errors.ValidationError("events", "event type is required")
		}
	}

	var sessionID *string
	if req.SessionKey != "" {
		patch := SessionPatch{
			UserID:    req.UserID,
			StartedAt: req.StartedAt,
			EndedAt:   req.EndedAt,
		}
		if req.UserAgent != "" {
			patch.UserAgent = &req.UserAgent
		}
		if req.IPAddress != "" {
			patch.IPAddress = &req.IPAddress
		}
		id, err := s.sessions.Upsert(ctx, req.SessionKey, patch)
		if err != nil {
			return nil, err
		}
		sessionID = &id
	}

	now := time.Now().UTC()
	records := make([]models.AnalyticsEvent, 0, len(req.Events))
	immediate := req.EndedAt != nil
	for _, ev := range req.Events {
		if ev.Type == SessionEndEventType {
			immediate = true
		}
		record := models.AnalyticsEvent{
			SessionID:  sessionID,
			UserID:     req.UserID,
			Type:       ev.Type,
			TargetType: ev.TargetType,
			TargetID:   ev.TargetID,
			Value:      ev.Value,
			DurationMs: ev.DurationMs,
			CreatedAt:  now,
		}
		if ev.UserID != nil {
			record.UserID = ev.UserID
		}
		if ev.Timestamp != nil {
			record.CreatedAt = ev.Timestamp.UTC()
		}
		if len(ev.Metadata) > 0 {
			record.Metadata = string(ev.Metadata)
		}
		records = append(records, record)
	}

	s.buffer.Enqueue(records)

	if immediate {
		if err := s.buffer.Flush(ctx); err != nil {
			// Analytics is best-effort: the batch stays buffered for retry
			// and the client still gets its acknowledgement.
			logger.Log.Warn("Immediate flush failed, batch will be retried",
				zap.Int("count", len(records)),
				zap.Error(err))
		}
	}

	return &IngestResponse{Count: len(records), SessionID: sessionID}, nil
}

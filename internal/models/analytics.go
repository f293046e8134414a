package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AnalyticsSession is one client session, upserted by SessionKey. EndedAt
// stays nil until the client reports the session closed; open sessions are
// still visible to aggregation.
type AnalyticsSession struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	SessionKey string  `gorm:"uniqueIndex;not null" json:"session_key"`
	UserID     *string `gorm:"index" json:"user_id,omitempty"`
	UserAgent  string  `json:"user_agent,omitempty"`
	IPAddress  string  `json:"ip_address,omitempty"`

	StartedAt time.Time  `gorm:"index" json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *AnalyticsSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return nil
}

// Duration returns the session length, treating an open session as ending
// now and flooring at zero.
func (s *AnalyticsSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// AnalyticsEvent is one client-reported event. Rows are created only through
// the buffered ingestion path, never mutated, and deleted only by retention
// pruning.
type AnalyticsEvent struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	SessionID  *string `gorm:"index" json:"session_id,omitempty"`
	UserID     *string `gorm:"index" json:"user_id,omitempty"`
	Type       string  `gorm:"not null;index" json:"type"`
	TargetType string  `json:"target_type,omitempty"`
	TargetID   string  `json:"target_id,omitempty"`

	Value      *float64 `json:"value,omitempty"`
	DurationMs *int64   `json:"duration_ms,omitempty"`
	Metadata   string   `gorm:"type:text" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (e *AnalyticsEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// RequestMetric is one completed HTTP request. Write-only from the
// middleware, read only by aggregation.
type RequestMetric struct {
	ID         string  `gorm:"primaryKey;type:uuid" json:"id"`
	Route      string  `gorm:"not null;index" json:"route"`
	Method     string  `gorm:"not null" json:"method"`
	StatusCode int     `gorm:"not null" json:"status_code"`
	DurationMs int64   `json:"duration_ms"`
	UserID     *string `json:"user_id,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (m *RequestMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

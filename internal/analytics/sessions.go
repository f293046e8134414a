package analytics

import (
	"context"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SessionPatch carries the fields a client supplied for a session upsert.
// Nil fields are left untouched on an existing row, not nulled out.
type SessionPatch struct {
	UserID    *string
	UserAgent *string
	IPAddress *string
	StartedAt *time.Time
	EndedAt   *time.Time
}

// SessionTracker upserts analytics sessions keyed by the client-supplied
// session key.
type SessionTracker struct {
	db *gorm.DB
}

// NewSessionTracker creates a session tracker backed by db.
func NewSessionTracker(db *gorm.DB) *SessionTracker {
	return &SessionTracker{db: db}
}

// Upsert creates the session row for key if unseen, otherwise patches only
// the supplied fields. Returns the session id for linking events.
//
// Two clients racing to create the same key both intend the same outcome, so
// a lost create race is downgraded to a warning and resolved by patching the
// winner's row. Other persistence failures propagate.
func (t *SessionTracker) Upsert(ctx context.Context, key string, patch SessionPatch) (string, error) {
	db := t.db.WithContext(ctx)

	var existing models.AnalyticsSession
	err := db.Where("session_key = ?", key).First(&existing).Error
	switch {
	case err == nil:
		return existing.ID, t.patch(db, &existing, patch)
	case err != gorm.ErrRecordNotFound:
		return "", err
	}

	session := models.AnalyticsSession{SessionKey: key}
	applyPatch(&session, patch)

	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_key"}},
		DoNothing: true,
	}).Create(&session)
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 1 {
		return session.ID, nil
	}

	// Someone else created this key between our lookup and insert.
	logger.Log.Warn("Concurrent session create, patching existing row",
		zap.String("session_key", key))
	if err := db.Where("session_key = ?", key).First(&existing).Error; err != nil {
		return "", err
	}
	return existing.ID, t.patch(db, &existing, patch)
}

func (t *SessionTracker) patch(db *gorm.DB, session *models.AnalyticsSession, patch SessionPatch) error {
	updates := map[string]interface{}{}
	if patch.UserID != nil {
		updates["user_id"] = *patch.UserID
	}
	if patch.UserAgent != nil {
		updates["user_agent"] = *patch.UserAgent
	}
	if patch.IPAddress != nil {
		updates["ip_address"] = *patch.IPAddress
	}
	if patch.StartedAt != nil {
		updates["started_at"] = *patch.StartedAt
	}
	if patch.EndedAt != nil {
		updates["ended_at"] = *patch.EndedAt
	}
	if len(updates) == 0 {
		return nil
	}
	return db.Model(session).Updates(updates).Error
}

func applyPatch(session *models.AnalyticsSession, patch SessionPatch) {
	if patch.UserID != nil {
		session.UserID = patch.UserID
	}
	if patch.UserAgent != nil {
		session.UserAgent = *patch.UserAgent
	}
	if patch.IPAddress != nil {
		session.IPAddress = *patch.IPAddress
	}
	if patch.StartedAt != nil {
		session.StartedAt = *patch.StartedAt
	}
	if patch.EndedAt != nil {
		session.EndedAt = patch.EndedAt
	}
}

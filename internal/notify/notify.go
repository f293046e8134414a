// Package notify delivers in-app notifications after engagement writes.
package notify

import (
	"context"

	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"gorm.io/gorm"
)

// Notifier is the notification collaborator. Implementations suppress
// self-notifications (recipient == actor); callers don't have to.
type Notifier interface {
	Notify(ctx context.Context, recipientID, actorID, eventType string, postID, commentID *string) error
}

// DBNotifier writes notification rows.
type DBNotifier struct {
	db *gorm.DB
}

// NewDBNotifier creates a database-backed notifier.
func NewDBNotifier(db *gorm.DB) *DBNotifier {
	return &DBNotifier{db: db}
}

// Notify inserts a notification row unless the actor is notifying
// themselves.
func (n *DBNotifier) Notify(ctx context.Context, recipientID, actorID, eventType string, postID, commentID *string) error {
	if recipientID == actorID {
		return nil
	}
	return n.db.WithContext(ctx).Create(&models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		EventType:   eventType,
		PostID:      postID,
		CommentID:   commentID,
	}).Error
}

// Noop discards notifications; used when the notification surface is
// disabled.
type Noop struct{}

func (Noop) Notify(ctx context.Context, recipientID, actorID, eventType string, postID, commentID *string) error {
	return nil
}

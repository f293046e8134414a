// Package interactions implements the per-user, per-post engagement state
// machine: LIKE toggles, SHARE and REPOST record once and conflict on
// repeat, REPOST additionally spawns a repost copy of the post.
package interactions

import (
	"context"
	"fmt"

	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/cbejar93/astroSocial-sub001/internal/notify"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptResult is the typed outcome of a conditional insert, so state
// transitions branch on a result instead of pattern-matching duplicate-key
// errors.
type AttemptResult int

const (
	Inserted AttemptResult = iota
	AlreadyExists
)

// ErrRepostCopyFailed distinguishes a failed repost-copy creation from a
// counter-update failure; the interaction and counter increment have already
// committed when this is returned.
var ErrRepostCopyFailed = fmt.Errorf("failed to create repost copy")

// Service runs the engagement state machine.
type Service struct {
	db       *gorm.DB
	notifier notify.Notifier
}

// NewService creates an interactions service.
func NewService(db *gorm.DB, notifier notify.Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// attemptInsert tries to create the (user, post, type) interaction row,
// reporting whether this call created it or it already existed.
func (s *Service) attemptInsert(ctx context.Context, userID, postID string, typ models.InteractionType) (AttemptResult, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}, {Name: "type"}},
			DoNothing: true,
		}).
		Create(&models.Interaction{UserID: userID, PostID: postID, Type: typ})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return AlreadyExists, nil
	}
	return Inserted, nil
}

// LikeResult is the outcome of a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// ToggleLike flips the viewer's like state on a post. Creating the like
// increments the counter and notifies the author; removing it decrements and
// stays silent. Two racers starting from not-liked resolve to one insert and
// one delete, never a double increment.
func (s *Service) ToggleLike(ctx context.Context, userID, postID string) (*LikeResult, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	result, err := s.attemptInsert(ctx, userID, postID, models.InteractionLike)
	if err != nil {
		return nil, err
	}

	liked := false
	switch result {
	case Inserted:
		liked = true
		if err := s.adjustCounter(ctx, postID, "like_count", +1); err != nil {
			return nil, err
		}
		if err := s.notifier.Notify(ctx, post.AuthorID, userID, "like", &post.ID, nil); err != nil {
			logger.Log.Warn("Like notification failed",
				zap.String("post_id", postID),
				zap.Error(err))
		}
	case AlreadyExists:
		res := s.db.WithContext(ctx).
			Where("user_id = ? AND post_id = ? AND type = ?", userID, postID, models.InteractionLike).
			Delete(&models.Interaction{})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected > 0 {
			if err := s.adjustCounter(ctx, postID, "like_count", -1); err != nil {
				return nil, err
			}
		}
	}

	count, err := s.readCounter(ctx, postID, "like_count")
	if err != nil {
		return nil, err
	}
	return &LikeResult{Liked: liked, LikeCount: count}, nil
}

// Share records a one-way share. A repeat attempt is a conflict, not a
// toggle.
func (s *Service) Share(ctx context.Context, userID, postID string) (int, error) {
	if _, err := s.getPost(ctx, postID); err != nil {
		return 0, err
	}

	result, err := s.attemptInsert(ctx, userID, postID, models.InteractionShare)
	if err != nil {
		return 0, err
	}
	if result == AlreadyExists {
		return 0, errors.Conflict("post already shared")
	}

	if err := s.adjustCounter(ctx, postID, "share_count", +1); err != nil {
		return 0, err
	}
	return s.readCounter(ctx, postID, "share_count")
}

// RepostResult is the outcome of a successful repost.
type RepostResult struct {
	RepostCount int          `json:"repost_count"`
	Copy        *models.Post `json:"copy"`
}

// Repost records a one-way repost and spawns the repost copy: a new post
// owned by the reposting user whose original_author_id points at the true
// author. The copy is created only after the counter increment commits and
// before the fresh count is re-read; its failure is reported distinctly from
// a counter failure.
func (s *Service) Repost(ctx context.Context, userID, postID string) (*RepostResult, error) {
	post, err := s.getPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	result, err := s.attemptInsert(ctx, userID, postID, models.InteractionRepost)
	if err != nil {
		return nil, err
	}
	if result == AlreadyExists {
		return nil, errors.Conflict("post already reposted")
	}

	if err := s.adjustCounter(ctx, postID, "repost_count", +1); err != nil {
		return nil, err
	}

	// Reposting a repost copy still credits the true author.
	originalAuthor := post.OriginalAuthorID
	if originalAuthor == "" {
		originalAuthor = post.AuthorID
	}
	copyRow := models.Post{
		AuthorID:         userID,
		OriginalAuthorID: originalAuthor,
		Body:             post.Body,
		Title:            post.Title,
		ImageURL:         post.ImageURL,
	}
	if err := s.db.WithContext(ctx).Create(&copyRow).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepostCopyFailed, err)
	}

	count, err := s.readCounter(ctx, postID, "repost_count")
	if err != nil {
		return nil, err
	}

	if err := s.notifier.Notify(ctx, post.AuthorID, userID, "repost", &post.ID, nil); err != nil {
		logger.Log.Warn("Repost notification failed",
			zap.String("post_id", postID),
			zap.Error(err))
	}

	return &RepostResult{RepostCount: count, Copy: &copyRow}, nil
}

// Save bookmarks a post for the user; saving twice is a quiet no-op.
func (s *Service) Save(ctx context.Context, userID, postID string) error {
	if _, err := s.getPost(ctx, postID); err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoNothing: true,
		}).
		Create(&models.SavedPost{UserID: userID, PostID: postID}).Error
}

// Unsave removes the user's bookmark if present.
func (s *Service) Unsave(ctx context.Context, userID, postID string) error {
	return s.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.SavedPost{}).Error
}

func (s *Service) getPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := s.db.WithContext(ctx).First(&post, "id = ?", postID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, errors.NotFound("post")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *Service) adjustCounter(ctx context.Context, postID, column string, delta int) error {
	return s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta)).Error
}

func (s *Service) readCounter(ctx context.Context, postID, column string) (int, error) {
	var count int
	err := s.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", postID).
		Select(column).
		Scan(&count).Error
	return count, err
}

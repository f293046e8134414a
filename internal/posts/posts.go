// Package posts creates posts, running each one past the moderation
// collaborator before commit.
package posts

import (
	"context"
	"strings"

	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/cbejar93/astroSocial-sub001/internal/moderation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CreateRequest is the validated body of a post-creation call.
type CreateRequest struct {
	Body        string  `json:"body"`
	Title       string  `json:"title,omitempty"`
	ImageURL    string  `json:"image_url,omitempty"`
	ImageBase64 string  `json:"image_base64,omitempty"`
	LoungeID    *string `json:"lounge_id,omitempty"`
}

// Service creates posts.
type Service struct {
	db      *gorm.DB
	checker moderation.Checker
}

// NewService creates a posts service with the given moderation checker.
func NewService(db *gorm.DB, checker moderation.Checker) *Service {
	return &Service{db: db, checker: checker}
}

// Create validates and persists a new post. The moderation check runs
// synchronously before commit; a flagged verdict still commits the row, for
// audit, but marks it hidden from the feed. A classifier outage never blocks
// posting.
func (s *Service) Create(ctx context.Context, authorID string, req CreateRequest) (*models.Post, error) {
	if strings.TrimSpace(req.Body) == "" {
		return nil, errors.ValidationError("body", "post body is required")
	}

	flagged := false
	texts := []string{req.Body}
	if req.Title != "" {
		texts = append(texts, req.Title)
	}
	var images []string
	if req.ImageBase64 != "" {
		images = append(images, req.ImageBase64)
	}

	results, err := s.checker.Check(ctx, texts, images)
	if err != nil {
		logger.Log.Warn("Moderation check failed, committing post unflagged",
			zap.String("author_id", authorID),
			zap.Error(err))
	} else {
		for _, result := range results {
			if result.Flagged {
				flagged = true
				logger.Log.Info("Post flagged by moderation",
					zap.String("author_id", authorID),
					zap.Strings("categories", result.Categories))
				break
			}
		}
	}

	post := models.Post{
		AuthorID: authorID,
		Body:     req.Body,
		Title:    req.Title,
		ImageURL: req.ImageURL,
		LoungeID: req.LoungeID,
		Flagged:  flagged,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

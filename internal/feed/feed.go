// Package feed produces relevance-ordered, paginated views of the public
// post stream. Ranking is a pure read-then-compute path: no mutation, no
// persistent rank state, safely concurrent with writes.
package feed

import (
	"context"
	"sort"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size when the caller doesn't give one.
	DefaultLimit = 20

	// overfetchFactor widens the candidate window past the requested page.
	overfetchFactor = 2

	// maxCandidateWindow bounds how many recent posts are fetched and
	// ranked per request. Pagination beyond the window is deliberately
	// bounded; see the total field note on Page.
	maxCandidateWindow = 500
)

// PostView is one ranked feed entry. For a repost copy the display identity
// (username, avatar) belongs to the original author while RepostedBy names
// the reposting user.
type PostView struct {
	ID       string `json:"id"`
	Body     string `json:"body"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	AuthorID  string `json:"author_id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`

	RepostedBy string `json:"reposted_by,omitempty"`

	CommentCount int `json:"comment_count"`
	LikeCount    int `json:"like_count"`
	ShareCount   int `json:"share_count"`
	RepostCount  int `json:"repost_count"`
	SaveCount    int `json:"save_count"`

	LikedByMe    bool `json:"liked_by_me"`
	RepostedByMe bool `json:"reposted_by_me"`
	SavedByMe    bool `json:"saved_by_me"`

	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is one page of the ranked feed. Total is the size of the fetched
// candidate window, not a full-table count: an exact count would cost a
// second full scan per request for a number nobody pages to.
type Page struct {
	Posts []PostView `json:"posts"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

// Service ranks and paginates the feed.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

// NewService creates a feed service over db.
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// GetFeed returns the requested page of the ranked feed, personalized by
// viewerID's like/repost/save state. viewerID may be empty for anonymous
// viewers.
func (s *Service) GetFeed(ctx context.Context, viewerID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Fetch past the requested page so posts that rank across the page
	// boundary are ordered against each other, not just within their page.
	window := page * limit * overfetchFactor
	if window > maxCandidateWindow {
		window = maxCandidateWindow
	}

	var posts []models.Post
	err := s.db.WithContext(ctx).
		Preload("Author").
		Where("flagged = ? AND lounge_id IS NULL", false).
		Order("created_at DESC").
		Limit(window).
		Find(&posts).Error
	if err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return &Page{Posts: []PostView{}, Total: 0, Page: page, Limit: limit}, nil
	}

	postIDs := make([]string, len(posts))
	for i := range posts {
		postIDs[i] = posts[i].ID
	}

	commentCounts, err := s.countByPost(ctx, &models.Comment{}, postIDs)
	if err != nil {
		return nil, err
	}
	saveCounts, err := s.countByPost(ctx, &models.SavedPost{}, postIDs)
	if err != nil {
		return nil, err
	}

	liked, reposted, saved, err := s.viewerFlags(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	originals, err := s.originalAuthors(ctx, posts)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]PostView, len(posts))
	for i := range posts {
		post := &posts[i]
		ageHours := now.Sub(post.CreatedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}
		comments := commentCounts[post.ID]

		view := PostView{
			ID:           post.ID,
			Body:         post.Body,
			Title:        post.Title,
			ImageURL:     post.ImageURL,
			AuthorID:     post.AuthorID,
			Username:     post.Author.Username,
			AvatarURL:    post.Author.AvatarURL,
			CommentCount: comments,
			LikeCount:    post.LikeCount,
			ShareCount:   post.ShareCount,
			RepostCount:  post.RepostCount,
			SaveCount:    saveCounts[post.ID],
			LikedByMe:    liked[post.ID],
			RepostedByMe: reposted[post.ID],
			SavedByMe:    saved[post.ID],
			Score:        Score(ageHours, comments, post.LikeCount, post.ShareCount, post.RepostCount),
			CreatedAt:    post.CreatedAt,
		}

		if post.IsRepost() {
			view.RepostedBy = post.Author.Handle
			if original, ok := originals[post.OriginalAuthorID]; ok {
				view.Username = original.Username
				view.AvatarURL = original.AvatarURL
			}
		}

		views[i] = view
	}

	// Stable sort keeps the newest-first fetch order among equal scores.
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Score > views[j].Score
	})

	start := (page - 1) * limit
	if start > len(views) {
		start = len(views)
	}
	end := start + limit
	if end > len(views) {
		end = len(views)
	}

	return &Page{
		Posts: views[start:end],
		Total: len(views),
		Page:  page,
		Limit: limit,
	}, nil
}

// countByPost counts rows per post_id for the given model.
func (s *Service) countByPost(ctx context.Context, model interface{}, postIDs []string) (map[string]int, error) {
	var rows []struct {
		PostID string
		Count  int
	}
	err := s.db.WithContext(ctx).Model(model).
		Select("post_id, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.PostID] = row.Count
	}
	return counts, nil
}

// viewerFlags loads the viewer's per-post like/repost/save state in two
// batched queries. Anonymous viewers get no flags.
func (s *Service) viewerFlags(ctx context.Context, viewerID string, postIDs []string) (liked, reposted, saved map[string]bool, err error) {
	liked = map[string]bool{}
	reposted = map[string]bool{}
	saved = map[string]bool{}
	if viewerID == "" {
		return liked, reposted, saved, nil
	}

	var interactions []models.Interaction
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Find(&interactions).Error
	if err != nil {
		return nil, nil, nil, err
	}
	for _, interaction := range interactions {
		switch interaction.Type {
		case models.InteractionLike:
			liked[interaction.PostID] = true
		case models.InteractionRepost:
			reposted[interaction.PostID] = true
		}
	}

	var savedRows []models.SavedPost
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND post_id IN ?", viewerID, postIDs).
		Find(&savedRows).Error
	if err != nil {
		return nil, nil, nil, err
	}
	for _, row := range savedRows {
		saved[row.PostID] = true
	}

	return liked, reposted, saved, nil
}

// originalAuthors batch-loads the true authors of repost copies in the
// candidate window.
func (s *Service) originalAuthors(ctx context.Context, posts []models.Post) (map[string]models.User, error) {
	ids := make([]string, 0)
	seen := make(map[string]struct{})
	for i := range posts {
		if !posts[i].IsRepost() {
			continue
		}
		if _, ok := seen[posts[i].OriginalAuthorID]; ok {
			continue
		}
		seen[posts[i].OriginalAuthorID] = struct{}{}
		ids = append(ids, posts[i].OriginalAuthorID)
	}
	if len(ids) == 0 {
		return map[string]models.User{}, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}
	return byID, nil
}

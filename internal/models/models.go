package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InteractionType enumerates the engagement actions a user can take on a post.
type InteractionType string

const (
	InteractionLike   InteractionType = "LIKE"
	InteractionShare  InteractionType = "SHARE"
	InteractionRepost InteractionType = "REPOST"
)

// User is the minimal identity record the engine needs for feed attribution
// and notifications. Account management lives outside this service.
type User struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Username  string `gorm:"uniqueIndex;not null" json:"username"`
	Handle    string `gorm:"uniqueIndex;not null" json:"handle"`
	AvatarURL string `json:"avatar_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Post is a feed entry. A repost copy is a Post whose OriginalAuthorID
// differs from AuthorID; the copy is owned by the reposting user while
// OriginalAuthorID points at the true author.
type Post struct {
	ID               string `gorm:"primaryKey;type:uuid" json:"id"`
	AuthorID         string `gorm:"not null;index" json:"author_id"`
	Author           User   `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	OriginalAuthorID string `gorm:"not null;index" json:"original_author_id"`

	Body     string  `gorm:"type:text;not null" json:"body"`
	Title    string  `json:"title,omitempty"`
	ImageURL string  `json:"image_url,omitempty"`
	LoungeID *string `gorm:"index" json:"lounge_id,omitempty"`

	// Engagement counters, maintained by the interaction state machine.
	LikeCount   int `gorm:"default:0" json:"like_count"`
	ShareCount  int `gorm:"default:0" json:"share_count"`
	RepostCount int `gorm:"default:0" json:"repost_count"`

	Flagged bool `gorm:"default:false;index" json:"flagged"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.OriginalAuthorID == "" {
		p.OriginalAuthorID = p.AuthorID
	}
	return nil
}

// IsRepost reports whether this row is a repost copy rather than an original.
func (p *Post) IsRepost() bool {
	return p.OriginalAuthorID != "" && p.OriginalAuthorID != p.AuthorID
}

// Comment on a post. ParentID is set for replies.
type Comment struct {
	ID       string  `gorm:"primaryKey;type:uuid" json:"id"`
	PostID   string  `gorm:"not null;index" json:"post_id"`
	AuthorID string  `gorm:"not null;index" json:"author_id"`
	Author   User    `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Body     string  `gorm:"type:text;not null" json:"body"`
	ParentID *string `gorm:"index" json:"parent_id,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CommentLike records a user liking a comment, at most once per pair.
type CommentLike struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string `gorm:"not null;uniqueIndex:idx_comment_likes_unique" json:"user_id"`
	CommentID string `gorm:"not null;uniqueIndex:idx_comment_likes_unique;index" json:"comment_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (cl *CommentLike) BeforeCreate(tx *gorm.DB) error {
	if cl.ID == "" {
		cl.ID = uuid.NewString()
	}
	return nil
}

// SavedPost is a user's bookmark of a post, at most once per pair.
type SavedPost struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"not null;uniqueIndex:idx_saved_posts_unique" json:"user_id"`
	PostID string `gorm:"not null;uniqueIndex:idx_saved_posts_unique;index" json:"post_id"`

	CreatedAt time.Time `json:"created_at"`
}

func (sp *SavedPost) BeforeCreate(tx *gorm.DB) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	return nil
}

// Interaction records a single engagement action. The (user, post, type)
// tuple is unique: LIKE rows are deleted on un-like, SHARE and REPOST rows
// are write-once.
type Interaction struct {
	ID     string          `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string          `gorm:"not null;uniqueIndex:idx_interactions_unique" json:"user_id"`
	PostID string          `gorm:"not null;uniqueIndex:idx_interactions_unique;index" json:"post_id"`
	Type   InteractionType `gorm:"not null;uniqueIndex:idx_interactions_unique" json:"type"`

	CreatedAt time.Time `json:"created_at"`
}

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// Notification is written by the notify collaborator after likes, comments
// and reposts. Self-notifications are suppressed before insert.
type Notification struct {
	ID          string  `gorm:"primaryKey;type:uuid" json:"id"`
	RecipientID string  `gorm:"not null;index" json:"recipient_id"`
	ActorID     string  `gorm:"not null" json:"actor_id"`
	EventType   string  `gorm:"not null" json:"event_type"`
	PostID      *string `json:"post_id,omitempty"`
	CommentID   *string `json:"comment_id,omitempty"`
	Read        bool    `gorm:"default:false" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

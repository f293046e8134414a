package handlers

import (
	"net/http"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/analytics"
	"github.com/cbejar93/astroSocial-sub001/internal/database"
	"github.com/cbejar93/astroSocial-sub001/internal/feed"
	"github.com/cbejar93/astroSocial-sub001/internal/interactions"
	"github.com/cbejar93/astroSocial-sub001/internal/posts"
	"github.com/gin-gonic/gin"
)

// Handlers bundles the engine services behind the HTTP surface. Auth is an
// external collaborator: whatever sits in front of this router sets
// "user_id" on the context for authenticated requests.
type Handlers struct {
	analytics    *analytics.Service
	feed         *feed.Service
	interactions *interactions.Service
	posts        *posts.Service
}

// NewHandlers creates the handler set.
func NewHandlers(a *analytics.Service, f *feed.Service, i *interactions.Service, p *posts.Service) *Handlers {
	return &Handlers{analytics: a, feed: f, interactions: i, posts: p}
}

// RegisterRoutes attaches all engine routes to the given group.
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup) {
	analyticsGroup := api.Group("/analytics")
	{
		analyticsGroup.POST("/events", h.IngestEvents)
		analyticsGroup.GET("/summary", h.GetSummary)
	}

	api.GET("/feed", h.GetFeed)

	postsGroup := api.Group("/posts")
	{
		postsGroup.POST("", h.CreatePost)
		postsGroup.POST("/:id/like", h.ToggleLike)
		postsGroup.POST("/:id/share", h.SharePost)
		postsGroup.POST("/:id/repost", h.RepostPost)
		postsGroup.POST("/:id/save", h.SavePost)
		postsGroup.DELETE("/:id/save", h.UnsavePost)
	}
}

// Health reports service and database health.
func Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "ok"
	if err := database.Health(); err != nil {
		status = http.StatusServiceUnavailable
		dbStatus = "unavailable"
	}
	c.JSON(status, gin.H{
		"status":    dbStatus,
		"timestamp": time.Now().UTC(),
		"service":   "astrosocial-engine",
	})
}

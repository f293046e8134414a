package handlers

import (
	"net/http"

	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/util"
	"github.com/gin-gonic/gin"
)

// ToggleLike flips the viewer's like on a post.
// POST /api/v1/posts/:id/like
func (h *Handlers) ToggleLike(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")
	if postID == "" {
		util.RespondWithAPIError(c, errors.BadRequest("post id is required"))
		return
	}

	result, err := h.interactions.ToggleLike(c.Request.Context(), userID, postID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// SharePost records a one-way share; repeating it is a conflict.
// POST /api/v1/posts/:id/share
func (h *Handlers) SharePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	count, err := h.interactions.Share(c.Request.Context(), userID, postID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"share_count": count})
}

// RepostPost records a one-way repost and creates the repost copy.
// POST /api/v1/posts/:id/repost
func (h *Handlers) RepostPost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	result, err := h.interactions.Repost(c.Request.Context(), userID, postID)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// SavePost bookmarks a post for the viewer.
// POST /api/v1/posts/:id/save
func (h *Handlers) SavePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	if err := h.interactions.Save(c.Request.Context(), userID, postID); err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": true})
}

// UnsavePost removes the viewer's bookmark.
// DELETE /api/v1/posts/:id/save
func (h *Handlers) UnsavePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	postID := c.Param("id")

	if err := h.interactions.Unsave(c.Request.Context(), userID, postID); err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"saved": false})
}

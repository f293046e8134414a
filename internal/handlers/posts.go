package handlers

import (
	"net/http"

	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/posts"
	"github.com/cbejar93/astroSocial-sub001/internal/util"
	"github.com/gin-gonic/gin"
)

// CreatePost creates a post after a synchronous moderation check.
// POST /api/v1/posts
func (h *Handlers) CreatePost(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	var req posts.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithAPIError(c, errors.BadRequest("invalid post payload"))
		return
	}

	post, err := h.posts.Create(c.Request.Context(), userID, req)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, post)
}

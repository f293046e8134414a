package handlers

import (
	"net/http"
	"strconv"

	"github.com/cbejar93/astroSocial-sub001/internal/util"
	"github.com/gin-gonic/gin"
)

// GetFeed serves a ranked, paginated feed page. Anonymous viewers get the
// same ranking without personalization flags.
// GET /api/v1/feed?page=1&limit=20
func (h *Handlers) GetFeed(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 || limit > 100 {
		limit = 20
	}

	viewerID := util.OptionalUserID(c)

	result, err := h.feed.GetFeed(c.Request.Context(), viewerID, page, limit)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

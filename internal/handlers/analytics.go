package handlers

import (
	"net/http"
	"strconv"

	"github.com/cbejar93/astroSocial-sub001/internal/analytics"
	"github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/util"
	"github.com/gin-gonic/gin"
)

// IngestEvents accepts a batch analytics payload.
// POST /api/v1/analytics/events
func (h *Handlers) IngestEvents(c *gin.Context) {
	var req analytics.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithAPIError(c, errors.BadRequest("invalid ingestion payload"))
		return
	}

	// Client-reported user agent wins over the transport's when supplied.
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}
	req.IPAddress = c.ClientIP()

	resp, err := h.analytics.Ingest(c.Request.Context(), req)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetSummary serves the rollup for a trailing window.
// GET /api/v1/analytics/summary?days=N
func (h *Handlers) GetSummary(c *gin.Context) {
	// Parsed as float so junk like "NaN" coerces to the default window
	// rather than erroring.
	days, err := strconv.ParseFloat(c.DefaultQuery("days", "7"), 64)
	if err != nil {
		days = 0
	}
	rangeDays := analytics.NormalizeRangeDays(days)

	summary, err := h.analytics.GetSummary(c.Request.Context(), rangeDays)
	if err != nil {
		util.RespondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

package middleware

import (
	"strconv"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/metrics"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestMetricsMiddleware records one RequestMetric row and the Prometheus
// counters for every completed request, then invalidates the summary cache
// since request metrics feed the rollups. The row write is best-effort.
func RequestMetricsMiddleware(db *gorm.DB, invalidate func()) gin.HandlerFunc {
	m := metrics.Get()

	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded; raw paths with
		// embedded ids would blow the metric up.
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		duration := time.Since(startTime)

		statusStr := strconv.Itoa(status)
		m.HTTPRequestsTotal.WithLabelValues(method, route, statusStr).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, route, statusStr).Observe(duration.Seconds())

		metric := models.RequestMetric{
			Route:      route,
			Method:     method,
			StatusCode: status,
			DurationMs: duration.Milliseconds(),
		}
		if userID, ok := c.Get("user_id"); ok {
			if id, ok := userID.(string); ok && id != "" {
				metric.UserID = &id
			}
		}

		if err := db.Create(&metric).Error; err != nil {
			logger.Log.Warn("Failed to record request metric",
				zap.String("route", route),
				zap.Error(err))
			return
		}
		if invalidate != nil {
			invalidate()
		}
	}
}

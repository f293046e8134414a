package analytics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ipResolver maps IPs straight to labels for deterministic assertions.
type ipResolver struct {
	byIP map[string]string
}

func (r *ipResolver) Resolve(ip, userAgent string) string {
	if label, ok := r.byIP[ip]; ok {
		return label
	}
	return "Unknown"
}

func TestNormalizeRangeDays(t *testing.T) {
	assert.Equal(t, 7, NormalizeRangeDays(math.NaN()))
	assert.Equal(t, 7, NormalizeRangeDays(math.Inf(1)))
	assert.Equal(t, 7, NormalizeRangeDays(math.Inf(-1)))
	assert.Equal(t, 7, NormalizeRangeDays(-5))
	assert.Equal(t, 7, NormalizeRangeDays(0))
	assert.Equal(t, 30, NormalizeRangeDays(30))
	assert.Equal(t, 2, NormalizeRangeDays(2.9))
}

func seedSummaryData(t *testing.T, db *gorm.DB, now time.Time) {
	t.Helper()

	userA, userB := "user-a", "user-b"
	events := []models.AnalyticsEvent{
		{Type: "page_view", UserID: &userA, CreatedAt: now.Add(-1 * time.Hour)},
		{Type: "page_view", UserID: &userA, CreatedAt: now.Add(-2 * time.Hour)},
		{Type: "page_view", UserID: &userB, CreatedAt: now.Add(-25 * time.Hour)},
		{Type: "click", UserID: &userB, CreatedAt: now.Add(-3 * time.Hour)},
		{Type: "click", UserID: nil, CreatedAt: now.Add(-4 * time.Hour)},
		// Outside the 7-day window, must not count.
		{Type: "page_view", UserID: &userA, CreatedAt: now.Add(-8 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&events).Error)

	endedAt := now.Add(-30 * time.Minute)
	sessions := []models.AnalyticsSession{
		{SessionKey: "s1", IPAddress: "10.0.0.1", StartedAt: now.Add(-1 * time.Hour), EndedAt: &endedAt},
		{SessionKey: "s2", IPAddress: "10.0.0.1", StartedAt: now.Add(-2 * time.Hour)},
		{SessionKey: "s3", IPAddress: "10.0.0.2", StartedAt: now.Add(-90 * time.Minute)},
		{SessionKey: "old", IPAddress: "10.0.0.3", StartedAt: now.Add(-9 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&sessions).Error)

	interactions := []models.Interaction{
		{UserID: userA, PostID: "p1", Type: models.InteractionLike, CreatedAt: now.Add(-time.Hour)},
		{UserID: userB, PostID: "p1", Type: models.InteractionLike, CreatedAt: now.Add(-time.Hour)},
		{UserID: userA, PostID: "p2", Type: models.InteractionRepost, CreatedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, db.Create(&interactions).Error)

	commentLikes := []models.CommentLike{
		{UserID: userA, CommentID: "c1", CreatedAt: now.Add(-time.Hour)},
	}
	require.NoError(t, db.Create(&commentLikes).Error)

	requestMetrics := []models.RequestMetric{
		{Route: "/api/v1/feed", Method: "GET", StatusCode: 200, DurationMs: 40, CreatedAt: now.Add(-time.Hour)},
		{Route: "/api/v1/posts", Method: "POST", StatusCode: 201, DurationMs: 80, CreatedAt: now.Add(-time.Hour)},
		// Outside the window, must not count.
		{Route: "/api/v1/feed", Method: "GET", StatusCode: 200, DurationMs: 900, CreatedAt: now.Add(-8 * 24 * time.Hour)},
	}
	require.NoError(t, db.Create(&requestMetrics).Error)
}

func TestComputeSummary(t *testing.T) {
	db := setupTestDB(t)
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	seedSummaryData(t, db, now)

	resolver := &ipResolver{byIP: map[string]string{
		"10.0.0.1": "United States",
		"10.0.0.2": "Germany",
	}}
	aggregator := NewAggregator(db, resolver)
	aggregator.now = func() time.Time { return now }

	summary, err := aggregator.ComputeSummary(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, summary.RangeDays)
	assert.Equal(t, int64(5), summary.TotalEvents)
	assert.Equal(t, int64(2), summary.UniqueUsers)
	assert.Equal(t, map[string]int64{"page_view": 3, "click": 2}, summary.EventsByType)

	assert.Equal(t, int64(3), summary.SessionCount)
	// s1 ran 30m; the open s2 and s3 count up to "now": 120m + 90m.
	assert.InDelta(t, (30*time.Minute + 120*time.Minute + 90*time.Minute).Seconds(), summary.TotalSessionSeconds, 0.1)
	assert.InDelta(t, summary.TotalSessionSeconds/3, summary.AvgSessionSeconds, 0.1)

	// Two calendar days saw activity: both users yesterday-hours, userB the day before.
	require.Len(t, summary.DailyActiveUsers, 2)
	assert.Equal(t, "2026-08-19", summary.DailyActiveUsers[0].Date)
	assert.Equal(t, int64(1), summary.DailyActiveUsers[0].Count)
	assert.Equal(t, "2026-08-20", summary.DailyActiveUsers[1].Date)
	assert.Equal(t, int64(2), summary.DailyActiveUsers[1].Count)

	assert.Equal(t, map[string]int64{"LIKE": 2, "REPOST": 1}, summary.InteractionsByType)
	assert.Equal(t, int64(1), summary.CommentLikes)

	require.Len(t, summary.TopLocations, 2)
	assert.Equal(t, LocationCount{Location: "United States", Visits: 2}, summary.TopLocations[0])
	assert.Equal(t, LocationCount{Location: "Germany", Visits: 1}, summary.TopLocations[1])

	assert.Equal(t, int64(2), summary.RequestCount)
	assert.InDelta(t, 60.0, summary.AvgRequestDurationMs, 0.1)
}

func TestComputeSummaryCoercesRange(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewAggregator(db, &ipResolver{})

	summary, err := aggregator.ComputeSummary(context.Background(), -3)
	require.NoError(t, err)
	assert.Equal(t, DefaultRangeDays, summary.RangeDays)
}

func TestComputeSummaryEmptyDatabase(t *testing.T) {
	db := setupTestDB(t)
	aggregator := NewAggregator(db, &ipResolver{})

	summary, err := aggregator.ComputeSummary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalEvents)
	assert.Equal(t, int64(0), summary.SessionCount)
	assert.Equal(t, float64(0), summary.AvgSessionSeconds)
	assert.Empty(t, summary.TopLocations)
	assert.Empty(t, summary.DailyActiveUsers)
	assert.Equal(t, int64(0), summary.RequestCount)
	assert.Equal(t, float64(0), summary.AvgRequestDurationMs)
}

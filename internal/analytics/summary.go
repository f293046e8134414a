package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/geo"
	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultRangeDays is the window used when the requested range is unusable.
const DefaultRangeDays = 7

// topLocationLimit caps the per-location visit breakdown.
const topLocationLimit = 20

// NormalizeRangeDays coerces a requested window to a usable positive day
// count. Non-finite and non-positive input falls back to the default.
func NormalizeRangeDays(days float64) int {
	if math.IsNaN(days) || math.IsInf(days, 0) || days <= 0 {
		return DefaultRangeDays
	}
	return int(days)
}

// DailyCount is one calendar day's distinct active user count (UTC buckets).
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// LocationCount is one resolved location's visit count.
type LocationCount struct {
	Location string `json:"location"`
	Visits   int64  `json:"visits"`
}

// Summary is a point-in-time rollup over a trailing window. It is built
// whole and never partially returned.
type Summary struct {
	RangeDays   int       `json:"range_days"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalEvents  int64            `json:"total_events"`
	UniqueUsers  int64            `json:"unique_users"`
	EventsByType map[string]int64 `json:"events_by_type"`

	SessionCount        int64   `json:"session_count"`
	TotalSessionSeconds float64 `json:"total_session_seconds"`
	AvgSessionSeconds   float64 `json:"avg_session_seconds"`

	DailyActiveUsers []DailyCount `json:"daily_active_users"`

	InteractionsByType map[string]int64 `json:"interactions_by_type"`
	CommentLikes       int64            `json:"comment_likes"`

	TopLocations []LocationCount `json:"top_locations"`

	RequestCount         int64   `json:"request_count"`
	AvgRequestDurationMs float64 `json:"avg_request_duration_ms"`
}

// Aggregator computes summary rollups from persisted events, sessions,
// interactions, comment likes and request metrics.
type Aggregator struct {
	db       *gorm.DB
	resolver geo.Resolver
	now      func() time.Time
}

// NewAggregator creates an aggregator. resolver maps session IPs and user
// agents to display locations for the visit breakdown.
func NewAggregator(db *gorm.DB, resolver geo.Resolver) *Aggregator {
	return &Aggregator{db: db, resolver: resolver, now: func() time.Time { return time.Now().UTC() }}
}

// ComputeSummary computes the rollup for the trailing rangeDays window. The
// sub-aggregations are read-only and touch disjoint data, so they run
// concurrently and are joined before the snapshot is assembled.
func (a *Aggregator) ComputeSummary(ctx context.Context, rangeDays int) (*Summary, error) {
	if rangeDays <= 0 {
		rangeDays = DefaultRangeDays
	}
	now := a.now()
	since := now.Add(-time.Duration(rangeDays) * 24 * time.Hour)

	summary := &Summary{
		RangeDays:   rangeDays,
		GeneratedAt: now,
	}

	type aggResult struct {
		name string
		err  error
	}

	tasks := []struct {
		name string
		run  func() error
	}{
		{"total_events", func() error {
			return a.db.WithContext(ctx).Model(&models.AnalyticsEvent{}).
				Where("created_at >= ?", since).
				Count(&summary.TotalEvents).Error
		}},
		{"unique_users", func() error {
			return a.db.WithContext(ctx).Model(&models.AnalyticsEvent{}).
				Where("created_at >= ? AND user_id IS NOT NULL", since).
				Distinct("user_id").
				Count(&summary.UniqueUsers).Error
		}},
		{"events_by_type", func() error {
			byType, err := a.groupCounts(ctx, &models.AnalyticsEvent{}, "type", since)
			summary.EventsByType = byType
			return err
		}},
		{"sessions", func() error {
			return a.aggregateSessions(ctx, since, now, summary)
		}},
		{"daily_active_users", func() error {
			daily, err := a.dailyActiveUsers(ctx, since)
			summary.DailyActiveUsers = daily
			return err
		}},
		{"interactions_by_type", func() error {
			byType, err := a.groupCounts(ctx, &models.Interaction{}, "type", since)
			summary.InteractionsByType = byType
			return err
		}},
		{"comment_likes", func() error {
			return a.db.WithContext(ctx).Model(&models.CommentLike{}).
				Where("created_at >= ?", since).
				Count(&summary.CommentLikes).Error
		}},
		{"request_metrics", func() error {
			var row struct {
				Count int64
				AvgMs float64
			}
			err := a.db.WithContext(ctx).Model(&models.RequestMetric{}).
				Select("COUNT(*) AS count, COALESCE(AVG(duration_ms), 0) AS avg_ms").
				Where("created_at >= ?", since).
				Scan(&row).Error
			summary.RequestCount = row.Count
			summary.AvgRequestDurationMs = row.AvgMs
			return err
		}},
	}

	results := make(chan aggResult, len(tasks))
	for _, task := range tasks {
		task := task
		go func() {
			results <- aggResult{name: task.name, err: task.run()}
		}()
	}

	var firstErr error
	for range tasks {
		res := <-results
		if res.err != nil {
			logger.Log.Error("Summary sub-aggregation failed",
				zap.String("aggregation", res.name),
				zap.Error(res.err))
			if firstErr == nil {
				firstErr = res.err
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return summary, nil
}

// groupCounts counts rows per value of column within the window.
func (a *Aggregator) groupCounts(ctx context.Context, model interface{}, column string, since time.Time) (map[string]int64, error) {
	var rows []struct {
		Key   string
		Count int64
	}
	err := a.db.WithContext(ctx).Model(model).
		Select(column+" AS key, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Key] = row.Count
	}
	return counts, nil
}

// aggregateSessions fills the session count, duration totals and the
// location breakdown in one pass over the window's sessions. Open sessions
// count as ending now; negative durations floor at zero.
func (a *Aggregator) aggregateSessions(ctx context.Context, since, now time.Time, summary *Summary) error {
	var sessions []models.AnalyticsSession
	err := a.db.WithContext(ctx).
		Where("started_at >= ?", since).
		Find(&sessions).Error
	if err != nil {
		return err
	}

	summary.SessionCount = int64(len(sessions))

	var total time.Duration
	visits := make(map[string]int64)
	for i := range sessions {
		total += sessions[i].Duration(now)
		location := a.resolver.Resolve(sessions[i].IPAddress, sessions[i].UserAgent)
		visits[location]++
	}

	summary.TotalSessionSeconds = total.Seconds()
	if len(sessions) > 0 {
		summary.AvgSessionSeconds = total.Seconds() / float64(len(sessions))
	}

	locations := make([]LocationCount, 0, len(visits))
	for location, count := range visits {
		locations = append(locations, LocationCount{Location: location, Visits: count})
	}
	sort.Slice(locations, func(i, j int) bool {
		if locations[i].Visits != locations[j].Visits {
			return locations[i].Visits > locations[j].Visits
		}
		return locations[i].Location < locations[j].Location
	})
	if len(locations) > topLocationLimit {
		locations = locations[:topLocationLimit]
	}
	summary.TopLocations = locations

	return nil
}

// dailyActiveUsers buckets distinct non-null event users by UTC calendar
// date. Bucketing happens in Go so the query stays dialect-neutral.
func (a *Aggregator) dailyActiveUsers(ctx context.Context, since time.Time) ([]DailyCount, error) {
	var rows []struct {
		UserID    string
		CreatedAt time.Time
	}
	err := a.db.WithContext(ctx).Model(&models.AnalyticsEvent{}).
		Select("user_id, created_at").
		Where("created_at >= ? AND user_id IS NOT NULL", since).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	perDay := make(map[string]map[string]struct{})
	for _, row := range rows {
		day := row.CreatedAt.UTC().Format("2006-01-02")
		if perDay[day] == nil {
			perDay[day] = make(map[string]struct{})
		}
		perDay[day][row.UserID] = struct{}{}
	}

	daily := make([]DailyCount, 0, len(perDay))
	for day, users := range perDay {
		daily = append(daily, DailyCount{Date: day, Count: int64(len(users))})
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return daily, nil
}

package analytics

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/geo"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	return NewService(db, geo.New(""), Options{
		FlushBatchSize: 50,
		FlushInterval:  time.Minute,
		SummaryTTL:     5 * time.Minute,
	})
}

func TestIngestEmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	resp, err := service.Ingest(context.Background(), IngestRequest{
		SessionKey: "sess-1",
		Events:     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Nil(t, resp.SessionID)

	// Acknowledged without touching the database, even for the session.
	var sessions int64
	require.NoError(t, db.Model(&models.AnalyticsSession{}).Count(&sessions).Error)
	assert.Equal(t, int64(0), sessions)
	assert.Equal(t, 0, service.Buffer().Len())
}

func TestIngestRejectsMissingEventType(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	_, err := service.Ingest(context.Background(), IngestRequest{
		Events: []IngestEvent{{Type: "page_view"}, {Type: ""}},
	})
	require.Error(t, err)

	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, apperrors.ErrValidation, apiErr.Code)

	assert.Equal(t, 0, service.Buffer().Len(), "nothing enqueued on validation failure")
}

func TestIngestBuffersOrdinaryBatch(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	resp, err := service.Ingest(context.Background(), IngestRequest{
		Events: []IngestEvent{{Type: "page_view"}, {Type: "click"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)

	assert.Equal(t, 2, service.Buffer().Len())
	var persisted int64
	require.NoError(t, db.Model(&models.AnalyticsEvent{}).Count(&persisted).Error)
	assert.Equal(t, int64(0), persisted, "ordinary batches wait for the timer or threshold")
}

func TestIngestLinksSession(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	userID := "user-1"
	resp, err := service.Ingest(context.Background(), IngestRequest{
		SessionKey: "sess-1",
		UserID:     &userID,
		UserAgent:  "Mozilla/5.0",
		IPAddress:  "203.0.113.7",
		Events:     []IngestEvent{{Type: "page_view"}},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.SessionID)

	var session models.AnalyticsSession
	require.NoError(t, db.Where("session_key = ?", "sess-1").First(&session).Error)
	assert.Equal(t, *resp.SessionID, session.ID)
	require.NotNil(t, session.UserID)
	assert.Equal(t, userID, *session.UserID)
	assert.Equal(t, "203.0.113.7", session.IPAddress)
}

func TestIngestFlushesImmediatelyOnEndedAt(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	endedAt := time.Now().UTC()
	resp, err := service.Ingest(context.Background(), IngestRequest{
		SessionKey: "sess-1",
		EndedAt:    &endedAt,
		Events:     []IngestEvent{{Type: "page_view"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Count)

	assert.Equal(t, 0, service.Buffer().Len())
	var persisted int64
	require.NoError(t, db.Model(&models.AnalyticsEvent{}).Count(&persisted).Error)
	assert.Equal(t, int64(1), persisted)
}

func TestIngestFlushesImmediatelyOnSessionEndEvent(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	_, err := service.Ingest(context.Background(), IngestRequest{
		Events: []IngestEvent{{Type: "page_view"}, {Type: SessionEndEventType}},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, service.Buffer().Len())
	var persisted int64
	require.NoError(t, db.Model(&models.AnalyticsEvent{}).Count(&persisted).Error)
	assert.Equal(t, int64(2), persisted)
}

func TestIngestEventLevelOverrides(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	batchUser := "batch-user"
	eventUser := "event-user"
	stamp := time.Date(2026, 8, 1, 9, 30, 0, 0, time.UTC)
	endedAt := time.Now().UTC()

	_, err := service.Ingest(context.Background(), IngestRequest{
		SessionKey: "sess-1",
		UserID:     &batchUser,
		EndedAt:    &endedAt,
		Events: []IngestEvent{
			{Type: "page_view"},
			{Type: "click", UserID: &eventUser, Timestamp: &stamp},
		},
	})
	require.NoError(t, err)

	var events []models.AnalyticsEvent
	require.NoError(t, db.Order("type").Find(&events).Error)
	require.Len(t, events, 2)

	require.NotNil(t, events[0].UserID)
	assert.Equal(t, eventUser, *events[0].UserID)
	assert.True(t, stamp.Equal(events[0].CreatedAt))

	require.NotNil(t, events[1].UserID)
	assert.Equal(t, batchUser, *events[1].UserID)
}

func TestFlushInvalidatesSummaryCache(t *testing.T) {
	db := setupTestDB(t)
	service := newTestService(t, db)

	first, err := service.GetSummary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.TotalEvents)

	endedAt := time.Now().UTC()
	_, err = service.Ingest(context.Background(), IngestRequest{
		EndedAt: &endedAt,
		Events:  []IngestEvent{{Type: "page_view"}},
	})
	require.NoError(t, err)

	second, err := service.GetSummary(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.TotalEvents, "flush of new events drops the cached summary")
}

package interactions

import (
	"context"
	"net/http"
	"sync"
	"testing"

	apperrors "github.com/cbejar93/astroSocial-sub001/internal/errors"
	"github.com/cbejar93/astroSocial-sub001/internal/models"
	"github.com/cbejar93/astroSocial-sub001/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptInsert(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.Noop{})

	first, err := service.attemptInsert(context.Background(), "viewer", post.ID, models.InteractionShare)
	require.NoError(t, err)
	assert.Equal(t, Inserted, first)

	second, err := service.attemptInsert(context.Background(), "viewer", post.ID, models.InteractionShare)
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, second)

	var count int64
	require.NoError(t, db.Model(&models.Interaction{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestToggleLike(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.NewDBNotifier(db))

	liked, err := service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	assert.True(t, liked.Liked)
	assert.Equal(t, 1, liked.LikeCount)

	unliked, err := service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	assert.False(t, unliked.Liked)
	assert.Equal(t, 0, unliked.LikeCount)

	// Two full toggle cycles land back at baseline, never negative.
	_, err = service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	final, err := service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, final.LikeCount)
}

func TestToggleLikeConcurrentFromNotLiked(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.Noop{})

	// Two racers starting from not-liked must resolve to one insert and one
	// delete: the counter lands back at zero, never at two and never
	// negative.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.ToggleLike(context.Background(), "viewer", post.ID)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var reread models.Post
	require.NoError(t, db.First(&reread, "id = ?", post.ID).Error)
	assert.Equal(t, 0, reread.LikeCount)

	var rows int64
	require.NoError(t, db.Model(&models.Interaction{}).
		Where("post_id = ? AND type = ?", post.ID, models.InteractionLike).
		Count(&rows).Error)
	assert.Equal(t, int64(0), rows)
}

func TestToggleLikeNotifiesAuthorOnce(t *testing.T) {
	db := setupTestDB(t)
	author, post := seedPost(t, db)
	service := NewService(db, notify.NewDBNotifier(db))

	_, err := service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	_, err = service.ToggleLike(context.Background(), "viewer", post.ID)
	require.NoError(t, err)

	var notifications []models.Notification
	require.NoError(t, db.Find(&notifications).Error)
	require.Len(t, notifications, 1, "only the like notifies, not the unlike")
	assert.Equal(t, author.ID, notifications[0].RecipientID)
	assert.Equal(t, "viewer", notifications[0].ActorID)
}

func TestToggleLikeSelfDoesNotNotify(t *testing.T) {
	db := setupTestDB(t)
	author, post := seedPost(t, db)
	service := NewService(db, notify.NewDBNotifier(db))

	_, err := service.ToggleLike(context.Background(), author.ID, post.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestToggleLikeMissingPost(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, notify.Noop{})

	_, err := service.ToggleLike(context.Background(), "viewer", "no-such-post")
	require.Error(t, err)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestShare(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.Noop{})

	count, err := service.Share(context.Background(), "viewer", post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = service.Share(context.Background(), "viewer", post.ID)
	require.Error(t, err)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	// The counter did not move on the conflicting attempt.
	var reread models.Post
	require.NoError(t, db.First(&reread, "id = ?", post.ID).Error)
	assert.Equal(t, 1, reread.ShareCount)
}

func TestRepostCreatesCopy(t *testing.T) {
	db := setupTestDB(t)
	author, post := seedPost(t, db)

	reposter := models.User{Username: "bob", Handle: "@bob"}
	require.NoError(t, db.Create(&reposter).Error)

	service := NewService(db, notify.Noop{})

	result, err := service.Repost(context.Background(), reposter.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RepostCount)

	require.NotNil(t, result.Copy)
	assert.Equal(t, reposter.ID, result.Copy.AuthorID)
	assert.Equal(t, author.ID, result.Copy.OriginalAuthorID)
	assert.Equal(t, post.Body, result.Copy.Body)
	assert.True(t, result.Copy.IsRepost())

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(2), posts)
}

func TestRepostOfRepostCreditsTrueAuthor(t *testing.T) {
	db := setupTestDB(t)
	author, post := seedPost(t, db)

	first := models.User{Username: "bob", Handle: "@bob"}
	second := models.User{Username: "carol", Handle: "@carol"}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&second).Error)

	service := NewService(db, notify.Noop{})

	firstResult, err := service.Repost(context.Background(), first.ID, post.ID)
	require.NoError(t, err)

	secondResult, err := service.Repost(context.Background(), second.ID, firstResult.Copy.ID)
	require.NoError(t, err)
	assert.Equal(t, author.ID, secondResult.Copy.OriginalAuthorID)
}

func TestRepostConflictOnRepeat(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.Noop{})

	_, err := service.Repost(context.Background(), "viewer", post.ID)
	require.NoError(t, err)

	_, err = service.Repost(context.Background(), "viewer", post.ID)
	require.Error(t, err)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestSaveIsIdempotentAndUnsaveRemoves(t *testing.T) {
	db := setupTestDB(t)
	_, post := seedPost(t, db)
	service := NewService(db, notify.Noop{})

	require.NoError(t, service.Save(context.Background(), "viewer", post.ID))
	require.NoError(t, service.Save(context.Background(), "viewer", post.ID))

	var count int64
	require.NoError(t, db.Model(&models.SavedPost{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, service.Unsave(context.Background(), "viewer", post.ID))
	require.NoError(t, db.Model(&models.SavedPost{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	// Unsaving when nothing is saved stays quiet.
	require.NoError(t, service.Unsave(context.Background(), "viewer", post.ID))
}

func TestSaveMissingPost(t *testing.T) {
	db := setupTestDB(t)
	service := NewService(db, notify.Noop{})

	err := service.Save(context.Background(), "viewer", "no-such-post")
	require.Error(t, err)
	apiErr := apperrors.AsAPIError(err)
	require.NotNil(t, apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

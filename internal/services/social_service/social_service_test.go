package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/handlers/slogdiscard"
	services "portfolio/internal/services/social_service"
	"portfolio/internal/storage"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSocialRepository struct {
	mock.Mock
}

func (m *MockSocialRepository) AddLike(ctx context.Context, photoID uuid.UUID, voterID string) error {
	return m.Called(ctx, photoID, voterID).Error(0)
}

func (m *MockSocialRepository) RemoveLike(ctx context.Context, photoID uuid.UUID, voterID string) error {
	return m.Called(ctx, photoID, voterID).Error(0)
}

func (m *MockSocialRepository) CountLikes(ctx context.Context, photoID uuid.UUID) (int64, error) {
	args := m.Called(ctx, photoID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSocialRepository) AddComment(ctx context.Context, comment *models.Comment) error {
	return m.Called(ctx, comment).Error(0)
}

func (m *MockSocialRepository) ListComments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error) {
	args := m.Called(ctx, photoID)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Error(1)
}

func (m *MockSocialRepository) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func newService() (*services.SocialService, *MockSocialRepository) {
	repo := new(MockSocialRepository)
	return services.NewSocialService(slogdiscard.NewDiscardLogger(), repo), repo
}

func TestLike(t *testing.T) {
	photoID := uuid.New()

	t.Run("first like", func(t *testing.T) {
		svc, repo := newService()
		repo.On("AddLike", mock.Anything, photoID, "v").Return(nil).Once()
		repo.On("CountLikes", mock.Anything, photoID).Return(int64(4), nil).Once()

		count, err := svc.Like(context.Background(), photoID, "v")
		require.NoError(t, err)
		assert.Equal(t, int64(4), count)
	})

	t.Run("duplicate like is reported with the current count", func(t *testing.T) {
		svc, repo := newService()
		repo.On("AddLike", mock.Anything, photoID, "v").Return(storage.ErrAlreadyLiked).Once()
		repo.On("CountLikes", mock.Anything, photoID).Return(int64(4), nil).Once()

		count, err := svc.Like(context.Background(), photoID, "v")
		assert.ErrorIs(t, err, storage.ErrAlreadyLiked)
		assert.Equal(t, int64(4), count)
	})

	t.Run("unknown photo", func(t *testing.T) {
		svc, repo := newService()
		repo.On("AddLike", mock.Anything, photoID, "v").Return(storage.ErrPhotoNotFound).Once()

		_, err := svc.Like(context.Background(), photoID, "v")
		assert.ErrorIs(t, err, storage.ErrPhotoNotFound)
	})

	t.Run("missing voter", func(t *testing.T) {
		svc, _ := newService()

		_, err := svc.Like(context.Background(), photoID, "")
		assert.True(t, models.IsValidationError(err))
	})
}

func TestUnlike(t *testing.T) {
	photoID := uuid.New()

	t.Run("missing like is tolerated", func(t *testing.T) {
		svc, repo := newService()
		repo.On("RemoveLike", mock.Anything, photoID, "v").Return(storage.ErrLikeNotFound).Once()
		repo.On("CountLikes", mock.Anything, photoID).Return(int64(0), nil).Once()

		count, err := svc.Unlike(context.Background(), photoID, "v")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo := newService()
		boom := errors.New("boom")
		repo.On("RemoveLike", mock.Anything, photoID, "v").Return(boom).Once()

		_, err := svc.Unlike(context.Background(), photoID, "v")
		assert.ErrorIs(t, err, boom)
	})
}

func TestComment(t *testing.T) {
	photoID := uuid.New()

	t.Run("trims text and defaults the name", func(t *testing.T) {
		svc, repo := newService()
		repo.On("AddComment", mock.Anything, mock.MatchedBy(func(c *models.Comment) bool {
			return c.Text == "nice" && c.UserName == models.AnonymousUserName && c.PhotoID == photoID
		})).Return(nil).Once()

		c, err := svc.Comment(context.Background(), photoID, "  ", "  nice \n")
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, c.ID)
		repo.AssertExpectations(t)
	})

	t.Run("keeps the given name", func(t *testing.T) {
		svc, repo := newService()
		name := gofakeit.FirstName()
		repo.On("AddComment", mock.Anything, mock.Anything).Return(nil).Once()

		c, err := svc.Comment(context.Background(), photoID, name, gofakeit.Sentence(6))
		require.NoError(t, err)
		assert.Equal(t, name, c.UserName)
	})

	for name, text := range map[string]string{
		"blank":    " \t ",
		"too long": strings.Repeat("ж", 1001),
	} {
		t.Run(name, func(t *testing.T) {
			svc, repo := newService()

			_, err := svc.Comment(context.Background(), photoID, "", text)
			assert.True(t, models.IsValidationError(err))
			repo.AssertNotCalled(t, "AddComment", mock.Anything, mock.Anything)
		})
	}

	t.Run("1000 characters is fine", func(t *testing.T) {
		svc, repo := newService()
		repo.On("AddComment", mock.Anything, mock.Anything).Return(nil).Once()

		_, err := svc.Comment(context.Background(), photoID, "", strings.Repeat("ж", 1000))
		assert.NoError(t, err)
	})
}

func TestDeleteComment(t *testing.T) {
	svc, repo := newService()
	id := uuid.New()
	repo.On("DeleteComment", mock.Anything, id).Return(storage.ErrCommentNotFound).Once()

	assert.ErrorIs(t, svc.DeleteComment(context.Background(), id), storage.ErrCommentNotFound)
}

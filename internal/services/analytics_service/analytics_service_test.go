package services_test

import (
	"context"
	"testing"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/handlers/slogdiscard"
	"portfolio/internal/repository"
	services "portfolio/internal/services/analytics_service"
	"portfolio/internal/storage"
	redisapp "portfolio/internal/storage/redis"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPhotoGetter struct {
	mock.Mock
}

func (m *MockPhotoGetter) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	args := m.Called(ctx, id)
	photo, _ := args.Get(0).(*models.Photo)
	return photo, args.Error(1)
}

func setup() (*services.AnalyticsService, *MockPhotoGetter, redismock.ClientMock) {
	db, mock := redismock.NewClientMock()
	photos := new(MockPhotoGetter)
	views := repository.NewViewRepository(&redisapp.Client{Client: db})

	return services.NewAnalyticsService(slogdiscard.NewDiscardLogger(), views, photos), photos, mock
}

func TestRecordView(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("counts a known photo", func(t *testing.T) {
		svc, photos, rmock := setup()
		photos.On("GetPhoto", mock.Anything, id).Return(&models.Photo{ID: id}, nil).Once()
		rmock.ExpectHIncrBy("portfolio:views", id.String(), 1).SetVal(12)

		n, err := svc.RecordView(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("unknown photo is not counted", func(t *testing.T) {
		svc, photos, rmock := setup()
		photos.On("GetPhoto", mock.Anything, id).Return(nil, storage.ErrPhotoNotFound).Once()

		_, err := svc.RecordView(ctx, id)
		assert.ErrorIs(t, err, storage.ErrPhotoNotFound)
		assert.NoError(t, rmock.ExpectationsWereMet())
	})

	t.Run("redis failure", func(t *testing.T) {
		svc, photos, rmock := setup()
		photos.On("GetPhoto", mock.Anything, id).Return(&models.Photo{ID: id}, nil).Once()
		rmock.ExpectHIncrBy("portfolio:views", id.String(), 1).SetErr(redis.ErrClosed)

		_, err := svc.RecordView(ctx, id)
		assert.ErrorIs(t, err, redis.ErrClosed)
	})
}

func TestViews(t *testing.T) {
	svc, _, rmock := setup()
	rmock.ExpectHGetAll("portfolio:views").SetVal(map[string]string{"a": "2"})

	stats, err := svc.Views(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.ViewStats{"a": 2}, stats)
}

func TestForget(t *testing.T) {
	svc, _, rmock := setup()
	id := uuid.New()
	rmock.ExpectHDel("portfolio:views", id.String()).SetVal(1)

	require.NoError(t, svc.Forget(context.Background(), id))
	assert.NoError(t, rmock.ExpectationsWereMet())
}

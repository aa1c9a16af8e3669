package services

import (
	"context"
	"fmt"
	"log/slog"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/repository"

	"github.com/google/uuid"
)

type PhotoGetter interface {
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
}

type AnalyticsService struct {
	log    *slog.Logger
	views  repository.ViewRepository
	photos PhotoGetter
}

func NewAnalyticsService(log *slog.Logger, views repository.ViewRepository, photos PhotoGetter) *AnalyticsService {
	return &AnalyticsService{
		log:    log,
		views:  views,
		photos: photos,
	}
}

// RecordView counts one view of an existing photo and returns its total.
func (s *AnalyticsService) RecordView(ctx context.Context, photoID uuid.UUID) (int64, error) {
	const op = "analytics_service.RecordView"

	if _, err := s.photos.GetPhoto(ctx, photoID); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	n, err := s.views.IncrementView(ctx, photoID)
	if err != nil {
		s.log.Error("failed to record view", slog.String("op", op), sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (s *AnalyticsService) Views(ctx context.Context) (models.ViewStats, error) {
	const op = "analytics_service.Views"

	stats, err := s.views.Views(ctx)
	if err != nil {
		s.log.Error("failed to read views", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return stats, nil
}

// Forget drops the view counter of a deleted photo.
func (s *AnalyticsService) Forget(ctx context.Context, photoID uuid.UUID) error {
	const op = "analytics_service.Forget"

	if err := s.views.DeleteViews(ctx, photoID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

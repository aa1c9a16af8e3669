package repository

import (
	"context"
	"fmt"
	"strconv"

	"portfolio/internal/domain/models"
	redisapp "portfolio/internal/storage/redis"

	"github.com/google/uuid"
)

const viewsKey = "portfolio:views"

// ViewRepo keeps one redis hash field per photo holding its view count.
type ViewRepo struct {
	Client *redisapp.Client
}

func NewViewRepository(client *redisapp.Client) *ViewRepo {
	return &ViewRepo{Client: client}
}

func (r *ViewRepo) IncrementView(ctx context.Context, photoID uuid.UUID) (int64, error) {
	n, err := r.Client.HIncrBy(ctx, viewsKey, photoID.String(), 1).Result()
	if err != nil {
		return 0, fmt.Errorf("repository.view_repository.IncrementView: %w", err)
	}

	return n, nil
}

func (r *ViewRepo) Views(ctx context.Context) (models.ViewStats, error) {
	const op = "repository.view_repository.Views"

	raw, err := r.Client.HGetAll(ctx, viewsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	stats := make(models.ViewStats, len(raw))
	for id, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad counter for %s: %w", op, id, err)
		}
		stats[id] = n
	}

	return stats, nil
}

func (r *ViewRepo) DeleteViews(ctx context.Context, photoID uuid.UUID) error {
	return r.Client.HDel(ctx, viewsKey, photoID.String()).Err()
}

package repository

import (
	"context"

	"portfolio/internal/domain/models"

	"github.com/google/uuid"
)

type PhotoRepository interface {
	CreatePhoto(ctx context.Context, photo *models.Photo) error
	ListPhotos(ctx context.Context) ([]models.Photo, error)
	GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	UpdatePhoto(ctx context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
	// ExistsByFilename reports whether any record's src ends in basename.
	ExistsByFilename(ctx context.Context, basename string) (bool, error)
}

type SocialRepository interface {
	AddLike(ctx context.Context, photoID uuid.UUID, voterID string) error
	RemoveLike(ctx context.Context, photoID uuid.UUID, voterID string) error
	CountLikes(ctx context.Context, photoID uuid.UUID) (int64, error)
	AddComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	UpsertAdmin(ctx context.Context, username string, passwordHash []byte) (uuid.UUID, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	TouchLogin(ctx context.Context, userID uuid.UUID) error
}

type ViewRepository interface {
	IncrementView(ctx context.Context, photoID uuid.UUID) (int64, error)
	Views(ctx context.Context) (models.ViewStats, error)
	DeleteViews(ctx context.Context, photoID uuid.UUID) error
}

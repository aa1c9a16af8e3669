package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/repository"
	"portfolio/internal/storage"

	"github.com/google/uuid"
)

const (
	maxCommentRunes  = 1000
	maxUserNameRunes = 80
)

type SocialService struct {
	log  *slog.Logger
	repo repository.SocialRepository
}

func NewSocialService(log *slog.Logger, repo repository.SocialRepository) *SocialService {
	return &SocialService{
		log:  log,
		repo: repo,
	}
}

// Like records voterID's like and returns the photo's like count. A repeated
// like returns the current count together with storage.ErrAlreadyLiked.
func (s *SocialService) Like(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error) {
	const op = "social_service.Like"

	log := s.log.With(
		slog.String("op", op),
		slog.String("photo_id", photoID.String()),
	)

	if voterID == "" {
		return 0, fmt.Errorf("%s: %w", op, models.NewValidationError("voter is required"))
	}

	err := s.repo.AddLike(ctx, photoID, voterID)
	switch {
	case errors.Is(err, storage.ErrAlreadyLiked):
		log.Info("duplicate like ignored")

		count, cerr := s.repo.CountLikes(ctx, photoID)
		if cerr != nil {
			return 0, fmt.Errorf("%s: %w", op, cerr)
		}

		return count, fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, storage.ErrPhotoNotFound):
		return 0, fmt.Errorf("%s: %w", op, err)
	case err != nil:
		log.Error("failed to add like", sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.repo.CountLikes(ctx, photoID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// Unlike removes voterID's like. Removing a like that does not exist is not
// an error.
func (s *SocialService) Unlike(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error) {
	const op = "social_service.Unlike"

	if voterID == "" {
		return 0, fmt.Errorf("%s: %w", op, models.NewValidationError("voter is required"))
	}

	if err := s.repo.RemoveLike(ctx, photoID, voterID); err != nil && !errors.Is(err, storage.ErrLikeNotFound) {
		s.log.Error("failed to remove like", slog.String("op", op), sl.Err(err))

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.repo.CountLikes(ctx, photoID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (s *SocialService) Comment(ctx context.Context, photoID uuid.UUID, userName, text string) (*models.Comment, error) {
	const op = "social_service.Comment"

	log := s.log.With(
		slog.String("op", op),
		slog.String("photo_id", photoID.String()),
	)

	text = strings.TrimSpace(text)
	userName = strings.TrimSpace(userName)
	if userName == "" {
		userName = models.AnonymousUserName
	}

	var validationErrors []string
	if text == "" {
		validationErrors = append(validationErrors, "text is required")
	}
	if utf8.RuneCountInString(text) > maxCommentRunes {
		validationErrors = append(validationErrors, fmt.Sprintf("text must be %d characters or less", maxCommentRunes))
	}
	if utf8.RuneCountInString(userName) > maxUserNameRunes {
		validationErrors = append(validationErrors, fmt.Sprintf("userName must be %d characters or less", maxUserNameRunes))
	}
	if len(validationErrors) > 0 {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError(validationErrors...))
	}

	comment := &models.Comment{
		ID:        uuid.New(),
		PhotoID:   photoID,
		Text:      text,
		UserName:  userName,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.AddComment(ctx, comment); err != nil {
		if !errors.Is(err, storage.ErrPhotoNotFound) {
			log.Error("failed to save comment", sl.Err(err))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("comment added", slog.String("comment_id", comment.ID.String()))

	return comment, nil
}

func (s *SocialService) Comments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error) {
	comments, err := s.repo.ListComments(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("social_service.Comments: %w", err)
	}

	return comments, nil
}

func (s *SocialService) DeleteComment(ctx context.Context, id uuid.UUID) error {
	const op = "social_service.DeleteComment"

	if err := s.repo.DeleteComment(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("comment deleted", slog.String("op", op), slog.String("comment_id", id.String()))

	return nil
}

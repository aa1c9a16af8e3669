package repository

import (
	"context"
	"fmt"

	"portfolio/internal/domain/models"
	"portfolio/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
)

type SocialRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewSocialRepository(db *pgxpool.Pool) *SocialRepo {
	return &SocialRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// AddLike relies on the (photo_id, voter_id) primary key: of two concurrent
// likes by the same voter exactly one succeeds and the other gets
// storage.ErrAlreadyLiked.
func (r *SocialRepo) AddLike(ctx context.Context, photoID uuid.UUID, voterID string) error {
	const op = "repository.social_repository.AddLike"

	query, args, err := r.sb.Insert("photo_likes").
		Columns("photo_id", "voter_id").
		Values(photoID, voterID).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		switch pgErrorName(err) {
		case "unique_violation":
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyLiked)
		case "foreign_key_violation":
			return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *SocialRepo) RemoveLike(ctx context.Context, photoID uuid.UUID, voterID string) error {
	const op = "repository.social_repository.RemoveLike"

	query, args, err := r.sb.Delete("photo_likes").
		Where(sq.Eq{"photo_id": photoID, "voter_id": voterID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrLikeNotFound)
	}

	return nil
}

func (r *SocialRepo) CountLikes(ctx context.Context, photoID uuid.UUID) (int64, error) {
	const op = "repository.social_repository.CountLikes"

	query, args, err := r.sb.Select("COUNT(*)").
		From("photo_likes").
		Where(sq.Eq{"photo_id": photoID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

func (r *SocialRepo) AddComment(ctx context.Context, comment *models.Comment) error {
	const op = "repository.social_repository.AddComment"

	query, args, err := r.sb.Insert("photo_comments").
		Columns("id", "photo_id", "text", "user_name", "created_at").
		Values(comment.ID, comment.PhotoID, comment.Text, comment.UserName, comment.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if pgErrorName(err) == "foreign_key_violation" {
			return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListComments returns a photo's comments, oldest first.
func (r *SocialRepo) ListComments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error) {
	const op = "repository.social_repository.ListComments"

	query, args, err := r.sb.Select("id", "photo_id", "text", "user_name", "created_at").
		From("photo_comments").
		Where(sq.Eq{"photo_id": photoID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PhotoID, &c.Text, &c.UserName, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return comments, nil
}

func (r *SocialRepo) DeleteComment(ctx context.Context, id uuid.UUID) error {
	const op = "repository.social_repository.DeleteComment"

	query, args, err := r.sb.Delete("photo_comments").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrCommentNotFound)
	}

	return nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio/internal/domain/models"
	"portfolio/internal/storage"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const likesSubquery = "(SELECT COUNT(*) FROM photo_likes l WHERE l.photo_id = photos.id) AS likes"

var photoColumns = []string{
	"id",
	"src",
	"title",
	"alt",
	"width",
	"height",
	"year",
	"location",
	"camera",
	"description",
	"created_at",
	"updated_at",
}

type scanner interface {
	Scan(dest ...interface{}) error
}

type PhotoRepo struct {
	db *pgxpool.Pool
	sb sq.StatementBuilderType
}

func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepo {
	return &PhotoRepo{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *PhotoRepo) CreatePhoto(ctx context.Context, photo *models.Photo) error {
	const op = "repository.photo_repository.CreatePhoto"

	query, args, err := r.sb.Insert("photos").
		Columns(photoColumns...).
		Values(
			photo.ID,
			photo.Src,
			photo.Title,
			photo.Alt,
			photo.Width,
			photo.Height,
			photo.Year,
			photo.Location,
			photo.Camera,
			photo.Description,
			photo.CreatedAt,
			photo.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if pgErrorName(err) == "unique_violation" {
			return fmt.Errorf("%s: %w", op, storage.ErrPhotoExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListPhotos returns every record, newest first, with like counts.
func (r *PhotoRepo) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	const op = "repository.photo_repository.ListPhotos"

	query, args, err := r.sb.Select(append(photoColumns, likesSubquery)...).
		From("photos").
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	photos := make([]models.Photo, 0)
	for rows.Next() {
		var p models.Photo
		if err := scanPhoto(rows, &p); err != nil {
			return nil, fmt.Errorf("%s: failed to scan row: %w", op, err)
		}
		photos = append(photos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows error: %w", op, err)
	}

	return photos, nil
}

func (r *PhotoRepo) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	const op = "repository.photo_repository.GetPhoto"

	query, args, err := r.sb.Select(append(photoColumns, likesSubquery)...).
		From("photos").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var p models.Photo
	if err := scanPhoto(r.db.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// UpdatePhoto applies the non-nil fields of patch. src is never written.
func (r *PhotoRepo) UpdatePhoto(ctx context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error) {
	const op = "repository.photo_repository.UpdatePhoto"

	builder := r.sb.Update("photos").
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id})

	if patch.Title != nil {
		builder = builder.Set("title", *patch.Title)
	}
	if patch.Alt != nil {
		builder = builder.Set("alt", *patch.Alt)
	}
	if patch.Width != nil {
		builder = builder.Set("width", *patch.Width)
	}
	if patch.Height != nil {
		builder = builder.Set("height", *patch.Height)
	}
	if patch.Year != nil {
		builder = builder.Set("year", *patch.Year)
	}
	if patch.Location != nil {
		builder = builder.Set("location", *patch.Location)
	}
	if patch.Camera != nil {
		builder = builder.Set("camera", *patch.Camera)
	}
	if patch.Description != nil {
		builder = builder.Set("description", *patch.Description)
	}

	returning := "RETURNING " + strings.Join(append(photoColumns, likesSubquery), ", ")

	query, args, err := builder.Suffix(returning).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var p models.Photo
	if err := scanPhoto(r.db.QueryRow(ctx, query, args...), &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &p, nil
}

// DeletePhoto removes the record together with its likes and comments.
func (r *PhotoRepo) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	const op = "repository.photo_repository.DeletePhoto"

	query, args, err := r.sb.Delete("photos").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrPhotoNotFound)
	}

	return nil
}

func (r *PhotoRepo) ExistsByFilename(ctx context.Context, basename string) (bool, error) {
	const op = "repository.photo_repository.ExistsByFilename"

	suffix := "/" + basename

	query, args, err := r.sb.Select("1").
		From("photos").
		Where(sq.Or{
			sq.Eq{"src": basename},
			sq.Expr("right(src, ?) = ?", utf8.RuneCountInString(suffix), suffix),
		}).
		Prefix("SELECT EXISTS (").
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("%s: can't build sql: %w", op, err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	return exists, nil
}

func scanPhoto(row scanner, p *models.Photo) error {
	return row.Scan(
		&p.ID,
		&p.Src,
		&p.Title,
		&p.Alt,
		&p.Width,
		&p.Height,
		&p.Year,
		&p.Location,
		&p.Camera,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.Likes,
	)
}

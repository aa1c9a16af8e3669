package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	redisapp "portfolio/internal/storage/redis"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

type Repository struct {
	db     *pgxpool.Pool
	Photo  PhotoRepository
	Social SocialRepository
	User   UserRepository
	View   ViewRepository
}

func NewRepository(ctx context.Context, dsn string, redis *redisapp.Client) (*Repository, error) {
	db, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{
		db:     db,
		Photo:  NewPhotoRepository(db),
		Social: NewSocialRepository(db),
		User:   NewUserRepository(db),
		View:   NewViewRepository(redis),
	}, nil
}

// EnsureSchema creates missing tables and indexes. It never alters existing
// ones.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("repository.EnsureSchema: %w", err)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *Repository) Close() {
	r.db.Close()
}

// pgErrorName returns the condition name of a postgres error, such as
// "unique_violation", or "" for other errors.
func pgErrorName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pq.ErrorCode(pgErr.Code).Name()
	}

	return ""
}

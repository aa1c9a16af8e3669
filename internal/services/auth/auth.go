package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/jwt"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("admin role required")
)

type UserStore interface {
	UpsertAdmin(ctx context.Context, username string, passwordHash []byte) (uuid.UUID, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	TouchLogin(ctx context.Context, userID uuid.UUID) error
}

type Auth struct {
	log         *slog.Logger
	users       UserStore
	tokenSecret string
	tokenTTL    time.Duration
}

func New(log *slog.Logger, users UserStore, tokenSecret string, tokenTTL time.Duration) *Auth {
	return &Auth{
		log:         log,
		users:       users,
		tokenSecret: tokenSecret,
		tokenTTL:    tokenTTL,
	}
}

// EnsureAdmin creates or refreshes the bootstrap admin account from
// configuration.
func (a *Auth) EnsureAdmin(ctx context.Context, username, password string) (uuid.UUID, error) {
	const op = "auth.EnsureAdmin"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	if strings.TrimSpace(username) == "" || password == "" {
		return uuid.Nil, fmt.Errorf("%s: %w", op, models.NewValidationError("admin username and password are required"))
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("failed to generate password hash", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	id, err := a.users.UpsertAdmin(ctx, username, passHash)
	if err != nil {
		log.Error("failed to save admin", sl.Err(err))

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("admin account ready")

	return id, nil
}

func (a *Auth) Login(ctx context.Context, username, password string) (models.TokenPair, models.User, error) {
	const op = "auth.Login"

	log := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)

	log.Info("attempting to login user")

	user, err := a.users.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			log.Warn("user not found", sl.Err(err))

			return models.TokenPair{}, models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		log.Error("failed to get user", sl.Err(err))

		return models.TokenPair{}, models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		log.Info("invalid credentials", sl.Err(err))

		return models.TokenPair{}, models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	token, expiresAt, err := jwt.NewToken(user, a.tokenSecret, a.tokenTTL)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return models.TokenPair{}, models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.users.TouchLogin(ctx, user.ID); err != nil {
		log.Warn("failed to record login time", sl.Err(err))
	}

	log.Info("user logged in successfully")

	return models.TokenPair{AccessToken: token, ExpiresAt: expiresAt}, user, nil
}

func (a *Auth) ParseToken(token string) (models.TokenClaims, error) {
	claims, err := jwt.ParseToken(token, a.tokenSecret)
	if err != nil {
		return models.TokenClaims{}, fmt.Errorf("auth.ParseToken: %w: %w", ErrUnauthenticated, err)
	}

	return claims, nil
}

// RequireAdmin checks the current admin flag of a signed-in user, so a
// demoted account loses access before its token expires.
func (a *Auth) RequireAdmin(ctx context.Context, userID string) error {
	const op = "auth.RequireAdmin"

	id, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}

	isAdmin, err := a.users.IsAdmin(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if !isAdmin {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	return nil
}

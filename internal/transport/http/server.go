package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/services/auth"
	photoservice "portfolio/internal/services/photo_service"
	resolver "portfolio/internal/services/resolver_service"
	"portfolio/internal/storage"
	"portfolio/internal/storage/blob"
	"portfolio/internal/transport/http/dto/response"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	_ "portfolio/docs"
)

const (
	SessionName = "session"

	sessionUserKey    = "user_id"
	sessionVisitorKey = "visitor_id"

	// ContextUserKey holds the admin id set by the admin guard.
	ContextUserKey = "admin_id"
)

type PhotoService interface {
	ListPhotos(ctx context.Context) ([]models.Photo, error)
	CreatePhoto(ctx context.Context, in photoservice.CreateInput) (*models.Photo, error)
	UpdatePhoto(ctx context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error)
	UploadPhoto(ctx context.Context, in photoservice.UploadInput) (*models.Photo, error)
	DeletePhoto(ctx context.Context, id uuid.UUID) error
	ListBlobs(ctx context.Context) ([]blob.Object, error)
}

type PhotoResolver interface {
	Resolve(ctx context.Context, raw string) (resolver.Result, error)
}

type SocialService interface {
	Like(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error)
	Unlike(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error)
	Comment(ctx context.Context, photoID uuid.UUID, userName, text string) (*models.Comment, error)
	Comments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error)
	DeleteComment(ctx context.Context, id uuid.UUID) error
}

type AnalyticsService interface {
	RecordView(ctx context.Context, photoID uuid.UUID) (int64, error)
	Views(ctx context.Context) (models.ViewStats, error)
	Forget(ctx context.Context, photoID uuid.UUID) error
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (models.TokenPair, models.User, error)
	ParseToken(token string) (models.TokenClaims, error)
	RequireAdmin(ctx context.Context, userID string) error
}

var errInvalidFormat = errors.New("invalid request format")

// HealthCheck reports whether one backing service is usable.
type HealthCheck func(ctx context.Context) error

type Options struct {
	PlaceholderURL string
	MaxUploadBytes int
	// Debug exposes internal error text in 500 responses.
	Debug bool
	// HealthChecks are run by /health, keyed by component name.
	HealthChecks map[string]HealthCheck
}

type Routers struct {
	log  *slog.Logger
	opts Options

	PhotoService     PhotoService
	Resolver         PhotoResolver
	SocialService    SocialService
	AnalyticsService AnalyticsService
	AuthService      AuthService
}

func NewRouter(
	log *slog.Logger,
	opts Options,
	photoService PhotoService,
	resolver PhotoResolver,
	socialService SocialService,
	analyticsService AnalyticsService,
	authService AuthService,
) *Routers {
	return &Routers{
		log:              log,
		opts:             opts,
		PhotoService:     photoService,
		Resolver:         resolver,
		SocialService:    socialService,
		AnalyticsService: analyticsService,
		AuthService:      authService,
	}
}

// Health godoc
// @Summary Liveness and dependency check
// @Tags system
// @Produce json
// @Success 200 {object} response.Response{data=map[string]string}
// @Failure 503 {object} response.Response{data=map[string]string}
// @Router /health [get]
func (r *Routers) Health(c echo.Context) error {
	const op = "http.routers.Health"

	status := make(map[string]string, len(r.opts.HealthChecks))
	healthy := true

	for name, check := range r.opts.HealthChecks {
		if err := check(c.Request().Context()); err != nil {
			r.log.Warn("health check failed", slog.String("op", op), slog.String("component", name), sl.Err(err))
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, response.Response{Data: status})
	}

	return c.JSON(http.StatusOK, response.Success(status))
}

// fail maps err onto the response envelope. Unknown errors become a generic
// 500 whose text is only exposed in debug mode.
func (r *Routers) fail(c echo.Context, log *slog.Logger, err error) error {
	var (
		ve *models.ValidationError
		pf *models.PartialFailureError
	)

	switch {
	case errors.Is(err, errInvalidFormat):
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, response.ErrorWithDetails(response.CodeValidation, "Validation failed", ve.Errors))
	case errors.Is(err, photopath.ErrInvalidReference):
		return c.JSON(http.StatusBadRequest, response.Error(response.CodeValidation, "Invalid photo reference"))
	case errors.Is(err, storage.ErrPhotoNotFound):
		return c.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "Photo not found"))
	case errors.Is(err, storage.ErrCommentNotFound):
		return c.JSON(http.StatusNotFound, response.Error(response.CodeNotFound, "Comment not found"))
	case errors.Is(err, storage.ErrPhotoExists), errors.Is(err, blob.ErrExists):
		return c.JSON(http.StatusConflict, response.Error(response.CodeConflict, "Photo already exists"))
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	case errors.Is(err, auth.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, response.ErrSessionRequired)
	case errors.Is(err, auth.ErrForbidden):
		return c.JSON(http.StatusForbidden, response.ErrAdminRequired)
	case errors.As(err, &pf):
		log.Error("partial failure, manual reconciliation needed",
			slog.String("failed_op", pf.Op),
			slog.String("filename", pf.Filename),
			slog.String("photo_id", pf.PhotoID.String()),
			sl.Err(err),
		)
		return c.JSON(http.StatusInternalServerError, response.Error(response.CodePartialFailure, pf.Error()))
	case errors.Is(err, blob.ErrTransport), errors.Is(err, blob.ErrUnauthorized):
		log.Error("blob store failure", sl.Err(err))
		return c.JSON(http.StatusBadGateway, r.internal(response.CodeStoreUnavailable, "Photo storage is unavailable", err))
	case errors.Is(err, context.Canceled):
		log.Info("request cancelled")
		return nil
	}

	log.Error("request failed", sl.Err(err))

	return c.JSON(http.StatusInternalServerError, r.internal(response.CodeInternal, "Internal server error", err))
}

func (r *Routers) internal(code, message string, err error) response.Response {
	if r.opts.Debug {
		return response.ErrorWithDetails(code, message, err.Error())
	}

	return response.Error(code, message)
}

// bind decodes the request into req and runs struct validation.
func (r *Routers) bind(c echo.Context, log *slog.Logger, req interface{}) error {
	if err := c.Bind(req); err != nil {
		log.Warn("failed to bind request", sl.Err(err))
		return errInvalidFormat
	}

	if err := c.Validate(req); err != nil {
		log.Info("validation failed", sl.Err(err))
		return validationError(err)
	}

	return nil
}

// validationError turns validator output into the domain validation error so
// both kinds render the same way.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.NewValidationError(err.Error())
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "uuid":
			msgs = append(msgs, field+" must be a UUID")
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param()+" characters")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}

	return models.NewValidationError(msgs...)
}

func parseID(raw, field string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, models.NewValidationError(field + " is required")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, models.NewValidationError(field + " must be a UUID")
	}

	return id, nil
}

// voterID identifies who is liking a photo: the signed-in admin, or an
// anonymous visitor id kept in the session cookie.
func (r *Routers) voterID(c echo.Context) (string, error) {
	if token := BearerToken(c); token != "" {
		if claims, err := r.AuthService.ParseToken(token); err == nil {
			return claims.UserID, nil
		}
	}

	sess, err := session.Get(SessionName, c)
	if err != nil {
		return "", err
	}

	if userID, ok := sess.Values[sessionUserKey].(string); ok && userID != "" {
		return userID, nil
	}

	if visitorID, ok := sess.Values[sessionVisitorKey].(string); ok && visitorID != "" {
		return visitorID, nil
	}

	visitorID := uuid.NewString()
	sess.Values[sessionVisitorKey] = visitorID
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return "", err
	}

	return visitorID, nil
}

// SessionUserID returns the admin id stored in the session, if any.
func SessionUserID(c echo.Context) string {
	sess, err := session.Get(SessionName, c)
	if err != nil {
		return ""
	}

	userID, _ := sess.Values[sessionUserKey].(string)

	return userID
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}

	return ""
}

package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/handlers/slogdiscard"
	"portfolio/internal/services/auth"
	photoservice "portfolio/internal/services/photo_service"
	resolver "portfolio/internal/services/resolver_service"
	"portfolio/internal/storage"
	"portfolio/internal/storage/blob"
	httprouters "portfolio/internal/transport/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPhotoService struct {
	mock.Mock
}

func (m *MockPhotoService) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	args := m.Called(ctx)
	photos, _ := args.Get(0).([]models.Photo)
	return photos, args.Error(1)
}

func (m *MockPhotoService) CreatePhoto(ctx context.Context, in photoservice.CreateInput) (*models.Photo, error) {
	args := m.Called(ctx, in)
	photo, _ := args.Get(0).(*models.Photo)
	return photo, args.Error(1)
}

func (m *MockPhotoService) UpdatePhoto(ctx context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error) {
	args := m.Called(ctx, id, patch)
	photo, _ := args.Get(0).(*models.Photo)
	return photo, args.Error(1)
}

func (m *MockPhotoService) UploadPhoto(ctx context.Context, in photoservice.UploadInput) (*models.Photo, error) {
	args := m.Called(ctx, in)
	photo, _ := args.Get(0).(*models.Photo)
	return photo, args.Error(1)
}

func (m *MockPhotoService) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockPhotoService) ListBlobs(ctx context.Context) ([]blob.Object, error) {
	args := m.Called(ctx)
	objects, _ := args.Get(0).([]blob.Object)
	return objects, args.Error(1)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, raw string) (resolver.Result, error) {
	args := m.Called(ctx, raw)
	return args.Get(0).(resolver.Result), args.Error(1)
}

type MockSocialService struct {
	mock.Mock
}

func (m *MockSocialService) Like(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error) {
	args := m.Called(ctx, photoID, voterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSocialService) Unlike(ctx context.Context, photoID uuid.UUID, voterID string) (int64, error) {
	args := m.Called(ctx, photoID, voterID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSocialService) Comment(ctx context.Context, photoID uuid.UUID, userName, text string) (*models.Comment, error) {
	args := m.Called(ctx, photoID, userName, text)
	comment, _ := args.Get(0).(*models.Comment)
	return comment, args.Error(1)
}

func (m *MockSocialService) Comments(ctx context.Context, photoID uuid.UUID) ([]models.Comment, error) {
	args := m.Called(ctx, photoID)
	comments, _ := args.Get(0).([]models.Comment)
	return comments, args.Error(1)
}

func (m *MockSocialService) DeleteComment(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) RecordView(ctx context.Context, photoID uuid.UUID) (int64, error) {
	args := m.Called(ctx, photoID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAnalyticsService) Views(ctx context.Context) (models.ViewStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(models.ViewStats)
	return stats, args.Error(1)
}

func (m *MockAnalyticsService) Forget(ctx context.Context, photoID uuid.UUID) error {
	return m.Called(ctx, photoID).Error(0)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (models.TokenPair, models.User, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(models.TokenPair), args.Get(1).(models.User), args.Error(2)
}

func (m *MockAuthService) ParseToken(token string) (models.TokenClaims, error) {
	args := m.Called(token)
	return args.Get(0).(models.TokenClaims), args.Error(1)
}

func (m *MockAuthService) RequireAdmin(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

type fixture struct {
	e         *echo.Echo
	photos    *MockPhotoService
	resolver  *MockResolver
	social    *MockSocialService
	analytics *MockAnalyticsService
	auth      *MockAuthService
}

func newFixture(t *testing.T, opts httprouters.Options) *fixture {
	t.Helper()

	f := &fixture{
		photos:    new(MockPhotoService),
		resolver:  new(MockResolver),
		social:    new(MockSocialService),
		analytics: new(MockAnalyticsService),
		auth:      new(MockAuthService),
	}

	if opts.PlaceholderURL == "" {
		opts.PlaceholderURL = "/images/placeholder.jpg"
	}

	r := httprouters.NewRouter(slogdiscard.NewDiscardLogger(), opts, f.photos, f.resolver, f.social, f.analytics, f.auth)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	e.Use(session.Middleware(sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))))

	e.GET("/health", r.Health)
	e.GET("/api/photos", r.ListPhotos)
	e.GET("/api/photos/*", r.ServePhoto)
	e.HEAD("/api/photos/*", r.ServePhoto)
	e.POST("/api/photos", r.CreatePhoto)
	e.PUT("/api/photos", r.UpdatePhoto)
	e.DELETE("/api/photos", r.DeletePhoto)
	e.GET("/api/admin/blobs", r.ListBlobs)
	e.POST("/api/social/like", r.LikePhoto)
	e.DELETE("/api/social/like", r.UnlikePhoto)
	e.POST("/api/social/comment", r.AddComment)
	e.GET("/api/social/comments", r.ListComments)
	e.DELETE("/api/social/comment", r.DeleteComment)
	e.POST("/api/analytics/view", r.RecordView)
	e.GET("/api/analytics/views", r.ListViews)
	e.POST("/api/auth/login", r.Login)
	e.POST("/api/auth/logout", r.Logout)

	f.e = e

	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)

	return rec
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	return req
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return env
}

func TestServePhoto(t *testing.T) {
	t.Run("bytes with immutable caching", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.resolver.On("Resolve", mock.Anything, "sunset.jpg").
			Return(resolver.Result{Data: []byte("jpeg-bytes"), ContentType: "image/jpeg", Source: resolver.SourceDirect}, nil).Once()

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos/sunset.jpg", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/jpeg", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, "public, max-age=31536000, immutable", rec.Header().Get(echo.HeaderCacheControl))
		assert.Equal(t, "jpeg-bytes", rec.Body.String())
	})

	t.Run("head has headers and no body", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.resolver.On("Resolve", mock.Anything, "a.png").
			Return(resolver.Result{Data: []byte("12345"), ContentType: "image/png"}, nil).Once()

		rec := f.do(httptest.NewRequest(http.MethodHead, "/api/photos/a.png", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get(echo.HeaderContentType))
		assert.Equal(t, "5", rec.Header().Get(echo.HeaderContentLength))
		assert.Empty(t, rec.Body.Bytes())
	})

	t.Run("unresolved redirects to placeholder", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{PlaceholderURL: "/static/missing.jpg"})
		f.resolver.On("Resolve", mock.Anything, "does-not-exist.jpg").
			Return(resolver.Result{Source: resolver.SourcePlaceholder}, resolver.ErrUnresolved).Once()

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos/does-not-exist.jpg", nil))

		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/static/missing.jpg", rec.Header().Get(echo.HeaderLocation))
		assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
	})

	t.Run("escaped and nested references reach the resolver decoded", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.resolver.On("Resolve", mock.Anything, "Portfolio/my sunset.jpg").
			Return(resolver.Result{Data: []byte("x"), ContentType: "image/jpeg"}, nil).Once()

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos/Portfolio/my%20sunset.jpg", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.resolver.AssertExpectations(t)
	})

	t.Run("escaped percent is decoded once", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.resolver.On("Resolve", mock.Anything, "a%41.jpg").
			Return(resolver.Result{Data: []byte("x"), ContentType: "image/jpeg"}, nil).Once()

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos/a%2541.jpg", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.resolver.AssertExpectations(t)
	})

	t.Run("escaped slash keeps the raw path decoded", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.resolver.On("Resolve", mock.Anything, "Portfolio/b.jpg").
			Return(resolver.Result{Data: []byte("x"), ContentType: "image/jpeg"}, nil).Once()

		rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos/Portfolio%2Fb.jpg", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.resolver.AssertExpectations(t)
	})
}

func TestListPhotos(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	f.photos.On("ListPhotos", mock.Anything).Return(nil, nil).Once()

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/photos", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestCreatePhoto_JSON(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		photo := &models.Photo{ID: uuid.New(), Src: "/api/photos/a.jpg", Title: "T", Alt: "A"}
		f.photos.On("CreatePhoto", mock.Anything, photoservice.CreateInput{Src: "/photos/a.jpg", Title: "T", Alt: "A"}).
			Return(photo, nil).Once()

		rec := f.do(jsonRequest(http.MethodPost, "/api/photos", `{"src":"/photos/a.jpg","title":"T","alt":"A"}`))

		require.Equal(t, http.StatusCreated, rec.Code)
		env := decode(t, rec)
		assert.True(t, env.Success)
		assert.Contains(t, string(env.Data), `"src":"/api/photos/a.jpg"`)
	})

	t.Run("missing src is rejected before the service", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})

		rec := f.do(jsonRequest(http.MethodPost, "/api/photos", `{"title":"T","alt":"A"}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decode(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Contains(t, string(env.Error.Details), "src is required")
		f.photos.AssertNotCalled(t, "CreatePhoto", mock.Anything, mock.Anything)
	})

	t.Run("empty alt is a validation error", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.photos.On("CreatePhoto", mock.Anything, mock.Anything).
			Return(nil, models.NewValidationError("alt is required")).Once()

		rec := f.do(jsonRequest(http.MethodPost, "/api/photos", `{"src":"a.jpg","title":"T","alt":""}`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, string(decode(t, rec).Error.Details), "alt is required")
	})

	t.Run("malformed body", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})

		rec := f.do(jsonRequest(http.MethodPost, "/api/photos", `{"src":`))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_request", decode(t, rec).Error.Code)
	})
}

func TestErrorMapping(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		err        error
		debug      bool
		wantStatus int
		wantCode   string
		wantDetail bool
	}{
		{name: "not found", err: storage.ErrPhotoNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "partial failure", err: &models.PartialFailureError{Op: "delete", Filename: "a.jpg", PhotoID: id, Err: blob.ErrTransport}, wantStatus: http.StatusInternalServerError, wantCode: "partial_failure"},
		{name: "store down", err: blob.ErrTransport, wantStatus: http.StatusBadGateway, wantCode: "store_unavailable"},
		{name: "forbidden", err: auth.ErrForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "unknown hides details", err: errors.New("pgx: secret dsn"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
		{name: "unknown with details in debug", err: errors.New("pgx: boom"), debug: true, wantStatus: http.StatusInternalServerError, wantCode: "internal_error", wantDetail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, httprouters.Options{Debug: tt.debug})
			f.photos.On("DeletePhoto", mock.Anything, id).Return(tt.err).Once()

			rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/photos?id="+id.String(), nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			env := decode(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			if tt.wantDetail {
				assert.NotEmpty(t, env.Error.Details)
			} else if tt.wantCode == "internal_error" {
				assert.Empty(t, env.Error.Details)
				assert.NotContains(t, rec.Body.String(), "secret")
			}
		})
	}
}

func TestDeletePhoto(t *testing.T) {
	t.Run("bad id", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})

		rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/photos?id=nope", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		f.photos.AssertNotCalled(t, "DeletePhoto", mock.Anything, mock.Anything)
	})

	t.Run("deleted and view counter dropped", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		id := uuid.New()
		f.photos.On("DeletePhoto", mock.Anything, id).Return(nil).Once()
		f.analytics.On("Forget", mock.Anything, id).Return(errors.New("redis down")).Once()

		rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/photos?id="+id.String(), nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		f.analytics.AssertExpectations(t)
	})
}

func TestUpdatePhoto(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	id := uuid.New()
	title := "New"
	f.photos.On("UpdatePhoto", mock.Anything, id, models.PhotoPatch{Title: &title}).
		Return(&models.Photo{ID: id, Title: title}, nil).Once()

	rec := f.do(jsonRequest(http.MethodPut, "/api/photos", `{"id":"`+id.String()+`","title":"New"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	f.photos.AssertExpectations(t)
}

func TestLike_VisitorSession(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	photoID := uuid.New()
	body := `{"photoId":"` + photoID.String() + `"}`

	var voters []string
	f.social.On("Like", mock.Anything, photoID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { voters = append(voters, args.String(2)) }).
		Return(int64(1), nil).Once()
	f.social.On("Like", mock.Anything, photoID, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { voters = append(voters, args.String(2)) }).
		Return(int64(1), storage.ErrAlreadyLiked).Once()

	first := f.do(jsonRequest(http.MethodPost, "/api/social/like", body))
	require.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{"photoId":"`+photoID.String()+`","likes":1}`, string(decode(t, first).Data))

	cookies := first.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := jsonRequest(http.MethodPost, "/api/social/like", body)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	second := f.do(req)

	assert.Equal(t, http.StatusConflict, second.Code)
	env := decode(t, second)
	assert.Equal(t, "already_liked", env.Error.Code)
	assert.Contains(t, string(env.Data), `"likes":1`)

	require.Len(t, voters, 2)
	assert.Equal(t, voters[0], voters[1])
	_, err := uuid.Parse(voters[0])
	assert.NoError(t, err)
}

func TestLike_BearerUsesAdminID(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	photoID := uuid.New()
	adminID := uuid.NewString()

	f.auth.On("ParseToken", "tok").Return(models.TokenClaims{UserID: adminID, IsAdmin: true}, nil).Once()
	f.social.On("Unlike", mock.Anything, photoID, adminID).Return(int64(0), nil).Once()

	req := jsonRequest(http.MethodDelete, "/api/social/like", `{"photoId":"`+photoID.String()+`"}`)
	req.Header.Set(echo.HeaderAuthorization, "Bearer tok")
	rec := f.do(req)

	assert.Equal(t, http.StatusOK, rec.Code)
	f.social.AssertExpectations(t)
}

func TestComments(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	photoID := uuid.New()

	f.social.On("Comment", mock.Anything, photoID, "", "nice").
		Return(&models.Comment{ID: uuid.New(), PhotoID: photoID, Text: "nice", UserName: models.AnonymousUserName}, nil).Once()
	f.social.On("Comments", mock.Anything, photoID).Return(nil, nil).Once()

	rec := f.do(jsonRequest(http.MethodPost, "/api/social/comment", `{"photoId":"`+photoID.String()+`","text":"nice"}`))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"userName":"Anonymous"`)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/social/comments?photoId="+photoID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(decode(t, rec).Data))

	rec = f.do(jsonRequest(http.MethodPost, "/api/social/comment", `{"photoId":"x","text":"nice"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordView(t *testing.T) {
	f := newFixture(t, httprouters.Options{})
	photoID := uuid.New()
	f.analytics.On("RecordView", mock.Anything, photoID).Return(int64(7), nil).Once()

	rec := f.do(jsonRequest(http.MethodPost, "/api/analytics/view", `{"photoId":"`+photoID.String()+`"}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(decode(t, rec).Data), `"views":7`)
}

func TestLogin(t *testing.T) {
	t.Run("sets session cookie", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		user := models.User{ID: uuid.New(), Username: "admin", IsAdmin: true}
		f.auth.On("Login", mock.Anything, "admin", "pw").
			Return(models.TokenPair{AccessToken: "tok"}, user, nil).Once()

		rec := f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"username":"admin","password":"pw"}`))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(decode(t, rec).Data), `"access_token":"tok"`)
		assert.NotEmpty(t, rec.Result().Cookies())
	})

	t.Run("bad credentials", func(t *testing.T) {
		f := newFixture(t, httprouters.Options{})
		f.auth.On("Login", mock.Anything, "admin", "nope").
			Return(models.TokenPair{}, models.User{}, auth.ErrInvalidCredentials).Once()

		rec := f.do(jsonRequest(http.MethodPost, "/api/auth/login", `{"username":"admin","password":"nope"}`))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "authentication_failed", decode(t, rec).Error.Code)
	})
}

func TestHealth(t *testing.T) {
	f := newFixture(t, httprouters.Options{HealthChecks: map[string]httprouters.HealthCheck{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("down") },
	}})

	rec := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"postgres":"up","redis":"down"}`, string(decode(t, rec).Data))
}

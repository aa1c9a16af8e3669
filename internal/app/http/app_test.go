package httpapp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	httpapp "portfolio/internal/app/http"
	"portfolio/internal/domain/models"
	"portfolio/internal/lib/jwt"
	"portfolio/internal/lib/logger/handlers/slogdiscard"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/services/auth"
	photoservice "portfolio/internal/services/photo_service"
	resolver "portfolio/internal/services/resolver_service"
	"portfolio/internal/storage"
	"portfolio/internal/storage/blob"
	"portfolio/internal/storage/blob/blobtest"
	httprouters "portfolio/internal/transport/http"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const tokenSecret = "test-token-secret-0123456789"

// memPhotos is an in-memory PhotoRepository.
type memPhotos struct {
	mu     sync.Mutex
	photos map[uuid.UUID]models.Photo
}

func (m *memPhotos) CreatePhoto(_ context.Context, photo *models.Photo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.photos {
		if p.Src == photo.Src {
			return storage.ErrPhotoExists
		}
	}
	m.photos[photo.ID] = *photo

	return nil
}

func (m *memPhotos) ListPhotos(_ context.Context) ([]models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	return out, nil
}

func (m *memPhotos) GetPhoto(_ context.Context, id uuid.UUID) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.photos[id]
	if !ok {
		return nil, storage.ErrPhotoNotFound
	}

	return &p, nil
}

func (m *memPhotos) UpdatePhoto(_ context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.photos[id]
	if !ok {
		return nil, storage.ErrPhotoNotFound
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Alt != nil {
		p.Alt = *patch.Alt
	}
	m.photos[id] = p

	return &p, nil
}

func (m *memPhotos) DeletePhoto(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.photos[id]; !ok {
		return storage.ErrPhotoNotFound
	}
	delete(m.photos, id)

	return nil
}

func (m *memPhotos) ExistsByFilename(_ context.Context, basename string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.photos {
		if strings.HasSuffix(p.Src, "/"+basename) || p.Src == basename {
			return true, nil
		}
	}

	return false, nil
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *memUsers) UpsertAdmin(_ context.Context, username string, hash []byte) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		u = models.User{ID: uuid.New(), Username: username, CreatedAt: time.Now()}
	}
	u.PasswordHash = hash
	u.IsAdmin = true
	m.users[username] = u

	return u.ID, nil
}

func (m *memUsers) UserByUsername(_ context.Context, username string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return models.User{}, storage.ErrUserNotFound
	}

	return u, nil
}

func (m *memUsers) IsAdmin(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			return u.IsAdmin, nil
		}
	}

	return false, storage.ErrUserNotFound
}

func (m *memUsers) TouchLogin(context.Context, uuid.UUID) error { return nil }

type noopSocial struct{}

func (noopSocial) Like(context.Context, uuid.UUID, string) (int64, error)   { return 1, nil }
func (noopSocial) Unlike(context.Context, uuid.UUID, string) (int64, error) { return 0, nil }
func (noopSocial) Comment(context.Context, uuid.UUID, string, string) (*models.Comment, error) {
	return &models.Comment{}, nil
}
func (noopSocial) Comments(context.Context, uuid.UUID) ([]models.Comment, error) { return nil, nil }
func (noopSocial) DeleteComment(context.Context, uuid.UUID) error                { return nil }

type noopAnalytics struct{}

func (noopAnalytics) RecordView(context.Context, uuid.UUID) (int64, error) { return 1, nil }
func (noopAnalytics) Views(context.Context) (models.ViewStats, error)      { return models.ViewStats{}, nil }
func (noopAnalytics) Forget(context.Context, uuid.UUID) error              { return nil }

type PortfolioSuite struct {
	suite.Suite

	server *httpapp.Server
	blobs  *blobtest.MemStore
	photos *memPhotos
	users  *memUsers
	token  string
}

func (s *PortfolioSuite) SetupTest() {
	log := slogdiscard.NewDiscardLogger()
	ctx := context.Background()

	s.blobs = blobtest.NewMemStore()
	s.photos = &memPhotos{photos: make(map[uuid.UUID]models.Photo)}
	s.users = &memUsers{users: make(map[string]models.User)}

	paths := photopath.New("/api/photos", "Photos/Site")
	blobs := blob.NewRetrying(log, s.blobs, blob.RetryPolicy{WriteRetries: 1, WriteInitial: time.Millisecond, WriteMaxBackoff: time.Millisecond}, nil)

	authService := auth.New(log, s.users, tokenSecret, time.Hour)
	_, err := authService.EnsureAdmin(ctx, "admin", "correct horse")
	s.Require().NoError(err)

	pair, _, err := authService.Login(ctx, "admin", "correct horse")
	s.Require().NoError(err)
	s.token = pair.AccessToken

	routers := httprouters.NewRouter(log, httprouters.Options{
		PlaceholderURL: "/images/placeholder.jpg",
		MaxUploadBytes: 1 << 20,
	},
		photoservice.NewPhotoService(log, s.photos, blobs, paths, nil, photoservice.Config{
			ResizeThreshold: 2 << 20,
			MaxUploadBytes:  1 << 20,
		}),
		resolver.New(log, blobs, s.photos, paths, 0),
		noopSocial{},
		noopAnalytics{},
		authService,
	)

	s.server = httpapp.New(log, httpapp.Options{
		APIPrefix:       "/api/photos",
		SessionSecret:   "test-session-secret-0123456789",
		SocialPerMinute: 1000,
		MaxBodyBytes:    1 << 20,
	}, routers)
	s.server.BuildRouters()
}

func (s *PortfolioSuite) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.server.Echo().ServeHTTP(rec, req)

	return rec
}

func (s *PortfolioSuite) asAdmin(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+s.token)
	return req
}

func (s *PortfolioSuite) upload(filename string, data []byte, fields map[string]string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	part, err := w.CreateFormFile("file", filename)
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)

	for k, v := range fields {
		s.Require().NoError(w.WriteField(k, v))
	}
	s.Require().NoError(w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/photos", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	return s.do(s.asAdmin(req))
}

func (s *PortfolioSuite) listPhotos() []models.Photo {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/photos", nil))
	s.Require().Equal(http.StatusOK, rec.Code)

	var env struct {
		Success bool           `json:"success"`
		Data    []models.Photo `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	s.Require().True(env.Success)

	return env.Data
}

func (s *PortfolioSuite) createJSON(body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/photos", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	return s.do(s.asAdmin(req))
}

var uploadedSrc = regexp.MustCompile(`^/api/photos/\d{13}-[0-9a-f]{8}-test\.gif$`)

// Upload a small file and read it back through the public path.
func (s *PortfolioSuite) TestScenarioA_UploadRoundTrip() {
	data := []byte("GIF89a\x01\x00\x01\x00")
	s.Require().Len(data, 10)

	rec := s.upload("test.gif", data, map[string]string{"title": "T", "alt": "A"})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var env struct {
		Success bool         `json:"success"`
		Data    models.Photo `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
	s.True(env.Success)
	s.Regexp(uploadedSrc, env.Data.Src)

	get := s.do(httptest.NewRequest(http.MethodGet, env.Data.Src, nil))
	s.Equal(http.StatusOK, get.Code)
	s.Equal("image/gif", get.Header().Get("Content-Type"))
	s.Equal(data, get.Body.Bytes())
}

// A reference nobody wrote resolves to the placeholder, never a 5xx.
func (s *PortfolioSuite) TestScenarioB_MissingPhotoPlaceholder() {
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/photos/does-not-exist.jpg", nil))

	s.Equal(http.StatusFound, rec.Code)
	s.Equal("/images/placeholder.jpg", rec.Header().Get("Location"))
	s.Equal("no-store", rec.Header().Get("Cache-Control"))
}

// Deleting a record whose blob is already gone still removes the record.
func (s *PortfolioSuite) TestScenarioC_DeleteWithMissingBlob() {
	rec := s.createJSON(`{"src":"/photos/gone.jpg","title":"Gone","alt":"Nothing here"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Require().Len(s.listPhotos(), 1)

	id := s.listPhotos()[0].ID
	s.Equal("/api/photos/gone.jpg", s.listPhotos()[0].Src)

	del := s.do(s.asAdmin(httptest.NewRequest(http.MethodDelete, "/api/photos?id="+id.String(), nil)))
	s.Equal(http.StatusOK, del.Code, del.Body.String())
	s.Empty(s.listPhotos())
}

// An empty alt is rejected and nothing is stored.
func (s *PortfolioSuite) TestScenarioD_EmptyAltRejected() {
	rec := s.createJSON(`{"src":"a.jpg","title":"T","alt":""}`)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), `"validation_error"`)
	s.Empty(s.listPhotos())

	up := s.upload("b.jpg", []byte("xx"), map[string]string{"title": "T"})
	s.Equal(http.StatusBadRequest, up.Code)
	s.Empty(s.blobs.Calls())
}

// Characters that mean something in a URL never reach the generated name.
func (s *PortfolioSuite) TestUploadWithUnsafeExtensionRoundTrips() {
	for _, name := range []string{"shot.j?g", "shot.a%zz", "shot.j#g"} {
		s.Run(name, func() {
			data := []byte("bytes of " + name)

			rec := s.upload(name, data, map[string]string{"title": "T", "alt": "A"})
			s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

			var env struct {
				Data models.Photo `json:"data"`
			}
			s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &env))
			s.Regexp(`^/api/photos/\d{13}-[0-9a-f]{8}-shot\.jpg$`, env.Data.Src)

			get := s.do(httptest.NewRequest(http.MethodGet, env.Data.Src, nil))
			s.Equal(http.StatusOK, get.Code)
			s.Equal(data, get.Body.Bytes())
		})
	}
}

// A percent sign in a stored name is decoded exactly once.
func (s *PortfolioSuite) TestEscapedPercentServedLiterally() {
	s.blobs.Put("Photos/Site/a%41.jpg", []byte("literal"))

	get := s.do(httptest.NewRequest(http.MethodGet, "/api/photos/a%2541.jpg", nil))
	s.Equal(http.StatusOK, get.Code)
	s.Equal("literal", get.Body.String())
}

func (s *PortfolioSuite) TestLegacyReferenceServedFromLegacyDir() {
	s.blobs.Put("Photos/Portfolio/old.jpg", []byte("old"))
	rec := s.createJSON(`{"src":"/photos/old.jpg","title":"Old","alt":"Old"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	get := s.do(httptest.NewRequest(http.MethodGet, "/api/photos/old.jpg", nil))
	s.Equal(http.StatusOK, get.Code)
	s.Equal("old", get.Body.String())
}

func (s *PortfolioSuite) TestAdminGuard() {
	s.Run("no credentials", func() {
		req := httptest.NewRequest(http.MethodDelete, "/api/photos?id="+uuid.NewString(), nil)
		s.Equal(http.StatusUnauthorized, s.do(req).Code)
	})

	s.Run("garbage token", func() {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/blobs", nil)
		req.Header.Set("Authorization", "Bearer nope")
		s.Equal(http.StatusUnauthorized, s.do(req).Code)
	})

	s.Run("non-admin user", func() {
		user := models.User{ID: uuid.New(), Username: "guest"}
		s.users.mu.Lock()
		s.users.users["guest"] = user
		s.users.mu.Unlock()

		token, _, err := jwt.NewToken(user, tokenSecret, time.Hour)
		s.Require().NoError(err)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/blobs", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		s.Equal(http.StatusForbidden, s.do(req).Code)
	})

	s.Run("session cookie from login", func() {
		login := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"username":"admin","password":"correct horse"}`))
		login.Header.Set("Content-Type", "application/json")
		rec := s.do(login)
		s.Require().Equal(http.StatusOK, rec.Code)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/blobs", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		s.Equal(http.StatusOK, s.do(req).Code)
	})
}

func (s *PortfolioSuite) TestPublicEndpoints() {
	s.Equal(http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Code)
	s.Equal(http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil)).Code)
}

func TestPortfolioSuite(t *testing.T) {
	suite.Run(t, new(PortfolioSuite))
}

func TestCustomValidator(t *testing.T) {
	type req struct {
		Name string `validate:"required"`
	}

	s := httpapp.New(slogdiscard.NewDiscardLogger(), httpapp.Options{SessionSecret: "0123456789abcdef"}, nil)

	require.Error(t, s.Echo().Validator.Validate(req{}))
	assert.NoError(t, s.Echo().Validator.Validate(req{Name: "x"}))
}

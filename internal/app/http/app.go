package httpapp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/middleware"
	"portfolio/internal/services/auth"
	httprouters "portfolio/internal/transport/http"
	"portfolio/internal/transport/http/dto/response"

	"github.com/arl/statsviz"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type Options struct {
	// Addr is the listen address, host:port.
	Addr            string
	APIPrefix       string
	SessionSecret   string
	SecureCookies   bool
	AllowOrigins    []string
	SocialPerMinute int
	// MaxBodyBytes caps request bodies; uploads get a little headroom for
	// the multipart framing.
	MaxBodyBytes    int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	m       *http.ServeMux
	log     *slog.Logger
	e       *echo.Echo
	routers *httprouters.Routers
	opts    Options
}

func New(log *slog.Logger, opts Options, routers *httprouters.Routers) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = opts.ReadTimeout
	e.Server.WriteTimeout = opts.WriteTimeout

	validate := validator.New()
	e.Validator = &CustomValidator{validator: validate}

	store := sessions.NewCookieStore([]byte(opts.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	e.Use(session.Middleware(store))

	if len(opts.AllowOrigins) > 0 {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     opts.AllowOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodDelete},
			AllowCredentials: true,
		}))
	} else {
		e.Use(echomw.CORS())
	}

	e.Use(echomw.Recover())
	e.Use(middleware.PrometheusMetrics)

	if opts.MaxBodyBytes > 0 {
		e.Use(echomw.BodyLimit(fmt.Sprintf("%dK", opts.MaxBodyBytes/1024+1024)))
	}

	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:      true,
		LogStatus:   true,
		LogRemoteIP: true,
		LogLatency:  true,
		LogMethod:   true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{
				slog.String("method", v.Method),
				slog.String("URI", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote ip", v.RemoteIP),
				slog.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, sl.Err(v.Error))
			}

			log.Info("request", attrs...)

			return nil
		},
	}))

	mux := http.NewServeMux()
	if err := statsviz.Register(mux); err != nil {
		log.Warn("statsviz register failed", sl.Err(err))
	}

	return &Server{
		m:       mux,
		log:     log,
		e:       e,
		routers: routers,
		opts:    opts,
	}
}

// Echo exposes the router, mostly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.e
}

func (s *Server) MustRun() {
	const op = "http.Server.MustRun"

	s.log.Info("starting http server", slog.String("op", op), slog.String("addr", s.opts.Addr))

	if err := s.Start(); err != nil {
		panic(err)
	}
}

func (s *Server) Start() error {
	const op = "http.Server.Start"

	if err := s.e.Start(s.opts.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server stopped: %w", op, err)
	}

	return nil
}

func (s *Server) Stop() error {
	const op = "http.Server.Stop"

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	optCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("stopping http server", slog.String("op", op))

	if err := s.e.Shutdown(optCtx); err != nil {
		return fmt.Errorf("%s could not shutdown server gracefully: %w", op, err)
	}

	return nil
}

// adminOnlyMiddleware accepts a bearer token or the session cookie set by
// login. No credentials is 401, a non-admin user is 403.
func (s *Server) adminOnlyMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID := ""

		if token := httprouters.BearerToken(c); token != "" {
			claims, err := s.routers.AuthService.ParseToken(token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, response.ErrSessionRequired)
			}
			userID = claims.UserID
		} else {
			userID = httprouters.SessionUserID(c)
		}

		if userID == "" {
			return c.JSON(http.StatusUnauthorized, response.ErrSessionRequired)
		}

		if err := s.routers.AuthService.RequireAdmin(c.Request().Context(), userID); err != nil {
			switch {
			case errors.Is(err, auth.ErrForbidden):
				return c.JSON(http.StatusForbidden, response.ErrAdminRequired)
			case errors.Is(err, auth.ErrUnauthenticated):
				return c.JSON(http.StatusUnauthorized, response.ErrSessionRequired)
			}

			s.log.Error("admin check failed", sl.Err(err))
			return c.JSON(http.StatusInternalServerError, response.ErrInternal)
		}

		c.Set(httprouters.ContextUserKey, userID)

		return next(c)
	}
}

func (s *Server) BuildRouters() {
	s.e.GET("/health", s.routers.Health)
	s.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	swagger := s.e.Group("/swagger")
	{
		swagger.GET("/*", echoSwagger.WrapHandler)
	}

	debug := s.e.Group("/debug", s.adminOnlyMiddleware)
	{
		debug.GET("/statsviz", echo.WrapHandler(s.m))
		debug.GET("/statsviz/*", echo.WrapHandler(s.m))
	}

	limited := echo.WrapMiddleware(httprate.Limit(
		s.socialLimit(),
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
	))

	photos := s.e.Group(photopath.New(s.opts.APIPrefix, "").APIPrefix())
	{
		photos.GET("", s.routers.ListPhotos)
		photos.GET("/*", s.routers.ServePhoto)
		photos.HEAD("/*", s.routers.ServePhoto)
		photos.POST("", s.routers.CreatePhoto, s.adminOnlyMiddleware)
		photos.PUT("", s.routers.UpdatePhoto, s.adminOnlyMiddleware)
		photos.DELETE("", s.routers.DeletePhoto, s.adminOnlyMiddleware)
	}

	api := s.e.Group("/api")
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/login", s.routers.Login, limited)
			authGroup.POST("/logout", s.routers.Logout)
		}

		social := api.Group("/social")
		{
			social.POST("/like", s.routers.LikePhoto, limited)
			social.DELETE("/like", s.routers.UnlikePhoto, limited)
			social.POST("/comment", s.routers.AddComment, limited)
			social.GET("/comments", s.routers.ListComments)
			social.DELETE("/comment", s.routers.DeleteComment, s.adminOnlyMiddleware)
		}

		analytics := api.Group("/analytics")
		{
			analytics.POST("/view", s.routers.RecordView, limited)
			analytics.GET("/views", s.routers.ListViews, s.adminOnlyMiddleware)
		}

		admin := api.Group("/admin", s.adminOnlyMiddleware)
		{
			admin.GET("/blobs", s.routers.ListBlobs)
		}
	}
}

func (s *Server) socialLimit() int {
	if s.opts.SocialPerMinute <= 0 {
		return 30
	}

	return s.opts.SocialPerMinute
}

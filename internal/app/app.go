package app

import (
	"context"
	"fmt"
	"log/slog"

	httpapp "portfolio/internal/app/http"
	"portfolio/internal/config"
	"portfolio/internal/lib/compress"
	"portfolio/internal/lib/compress/vips"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/metrics"
	"portfolio/internal/repository"
	analytics "portfolio/internal/services/analytics_service"
	"portfolio/internal/services/auth"
	photoservice "portfolio/internal/services/photo_service"
	resolver "portfolio/internal/services/resolver_service"
	social "portfolio/internal/services/social_service"
	"portfolio/internal/storage/blob"
	"portfolio/internal/storage/blob/localfs"
	"portfolio/internal/storage/blob/s3"
	"portfolio/internal/storage/blob/webdav"
	redisapp "portfolio/internal/storage/redis"
	httprouters "portfolio/internal/transport/http"
)

type App struct {
	log        *slog.Logger
	HTTPServer *httpapp.Server
	repo       *repository.Repository
	redis      *redisapp.Client
}

// New connects every backing service and wires the HTTP server. Any failure
// here is fatal: the process must not start half-configured.
func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	redis := redisapp.NewClient(cfg.Redis.RedisAddr, cfg.Redis.RedisPassword, cfg.Redis.RedisDB, cfg.Redis.Timeout)
	if err := redis.HealthCheck(ctx); err != nil {
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}

	repo, err := repository.NewRepository(ctx, cfg.DSN, redis)
	if err != nil {
		_ = redis.Close()
		return nil, fmt.Errorf("%s: postgres: %w", op, err)
	}

	store, err := newBlobStore(ctx, log, cfg)
	if err != nil {
		repo.Close()
		_ = redis.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	policy := blob.DefaultRetryPolicy()
	policy.WriteRetries = uint64(cfg.Blob.Retry.Attempts)
	policy.WriteInitial = cfg.Blob.Retry.Base
	policy.WriteMaxBackoff = cfg.Blob.Retry.MaxBackoff
	policy.ReadRetries = uint64(cfg.Blob.ReadAttempts - 1)

	blobs := blob.NewRetrying(log, store, policy, metrics.BlobRetry)
	paths := photopath.New(cfg.Photos.APIPrefix, cfg.Blob.Root)

	photoService := photoservice.NewPhotoService(log, repo.Photo, blobs, paths, vips.New(), photoservice.Config{
		ResizeThreshold: cfg.Photos.ResizeThreshold,
		MaxUploadBytes:  cfg.Photos.MaxUploadBytes,
		Compress: compress.Options{
			MaxWidth:     cfg.Photos.MaxWidth,
			MaxHeight:    cfg.Photos.MaxHeight,
			StartQuality: cfg.Photos.QualityStart,
			Step:         cfg.Photos.QualityStep,
			MinQuality:   cfg.Photos.QualityFloor,
		},
	})
	photoResolver := resolver.New(log, blobs, repo.Photo, paths, cfg.Photos.MetadataCacheTTL)
	socialService := social.NewSocialService(log, repo.Social)
	analyticsService := analytics.NewAnalyticsService(log, repo.View, repo.Photo)
	authService := auth.New(log, repo.User, cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)

	if _, err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		repo.Close()
		_ = redis.Close()
		return nil, fmt.Errorf("%s: bootstrap admin: %w", op, err)
	}

	routers := httprouters.NewRouter(log, httprouters.Options{
		PlaceholderURL: cfg.Photos.PlaceholderURL,
		MaxUploadBytes: cfg.Photos.MaxUploadBytes,
		Debug:          cfg.Env != config.EnvProd,
		HealthChecks: map[string]httprouters.HealthCheck{
			"postgres": repo.Ping,
			"redis":    redis.HealthCheck,
		},
	}, photoService, photoResolver, socialService, analyticsService, authService)

	server := httpapp.New(log, httpapp.Options{
		Addr:            cfg.Address(),
		APIPrefix:       cfg.Photos.APIPrefix,
		SessionSecret:   cfg.Auth.SessionSecret,
		SecureCookies:   cfg.Env == config.EnvProd,
		AllowOrigins:    cfg.HTTP.AllowOrigins,
		SocialPerMinute: cfg.RateLimit.SocialPerMinute,
		MaxBodyBytes:    cfg.Photos.MaxUploadBytes,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, routers)
	server.BuildRouters()

	return &App{
		log:        log,
		HTTPServer: server,
		repo:       repo,
		redis:      redis,
	}, nil
}

// Stop drains HTTP first so no request sees a closed pool.
func (a *App) Stop() {
	if err := a.HTTPServer.Stop(); err != nil {
		a.log.Error("failed to stop http server", sl.Err(err))
	}

	a.repo.Close()

	if err := a.redis.Close(); err != nil {
		a.log.Error("failed to close redis", sl.Err(err))
	}
}

func newBlobStore(ctx context.Context, log *slog.Logger, cfg *config.Config) (blob.Store, error) {
	switch cfg.Blob.Driver {
	case config.DriverS3:
		store, err := s3.New(ctx, log, s3.Config{
			Endpoint:        cfg.Blob.S3.Endpoint,
			Bucket:          cfg.Blob.S3.Bucket,
			Region:          cfg.Blob.S3.Region,
			AccessKeyID:     cfg.Blob.S3.AccessKeyID,
			SecretAccessKey: cfg.Blob.S3.SecretAccessKey,
			Root:            cfg.Blob.Root,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 blob store: %w", err)
		}

		return store, nil
	case config.DriverFS:
		store, err := localfs.New(log, cfg.Blob.FS.Dir, cfg.Blob.Root)
		if err != nil {
			return nil, fmt.Errorf("fs blob store: %w", err)
		}

		return store, nil
	default:
		store := webdav.New(log, webdav.Config{
			URL:      cfg.Blob.WebDAV.URL,
			User:     cfg.Blob.WebDAV.User,
			Password: cfg.Blob.WebDAV.Password,
			Root:     cfg.Blob.Root,
			Timeout:  cfg.Blob.Timeout,
		})
		if err := store.EnsureRoot(ctx); err != nil {
			return nil, fmt.Errorf("webdav blob store: %w", err)
		}

		return store, nil
	}
}

// Package webdav implements blob.Store on a WebDAV collection such as a
// Nextcloud files endpoint.
package webdav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/storage/blob"

	"github.com/studio-b12/gowebdav"
)

type Config struct {
	URL      string
	User     string
	Password string
	Root     string
	Timeout  time.Duration
}

type Store struct {
	log    *slog.Logger
	client *gowebdav.Client
	root   string
}

func New(log *slog.Logger, cfg Config) *Store {
	client := gowebdav.NewClient(cfg.URL, cfg.User, cfg.Password)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	return &Store{
		log:    log,
		client: client,
		root:   strings.Trim(cfg.Root, "/"),
	}
}

// EnsureRoot creates the configured root collection and its parents.
func (s *Store) EnsureRoot(ctx context.Context) error {
	const op = "webdav.EnsureRoot"

	if s.root == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.client.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	return nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	const op = "webdav.Exists"

	p, err := prepare(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.client.Stat(p); err != nil {
		if gowebdav.IsErrNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return true, nil
}

func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	const op = "webdav.Download"

	p, err := prepare(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := s.client.Read(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return data, nil
}

func (s *Store) Upload(ctx context.Context, path string, data []byte, opts blob.PutOptions) error {
	const op = "webdav.Upload"

	p, err := prepare(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if !opts.Overwrite {
		exists, err := s.Exists(ctx, p)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if exists {
			return fmt.Errorf("%s: %s: %w", op, p, blob.ErrExists)
		}
	}

	if err := s.client.Write(p, data, 0o644); err != nil {
		return fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	s.log.Debug("blob written", slog.String("op", op), slog.String("path", p), slog.Int("size", len(data)))

	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	const op = "webdav.Delete"

	p, err := prepare(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// gowebdav already treats 404 as success; the check covers servers that
	// answer 410.
	if err := s.client.Remove(p); err != nil {
		if gowebdav.IsErrNotFound(err) || gowebdav.IsErrCode(err, http.StatusGone) {
			return nil
		}
		s.log.Warn("blob delete failed", slog.String("op", op), slog.String("path", p), sl.Err(err))
		return fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return nil
}

// List returns the files directly under dir. An empty dir lists the root.
func (s *Store) List(ctx context.Context, dir string) ([]blob.Object, error) {
	const op = "webdav.List"

	if strings.Trim(dir, "/") == "" {
		dir = s.root
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	infos, err := s.client.ReadDir("/" + strings.Trim(dir, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, dir, classify(err))
	}

	objects := make([]blob.Object, 0, len(infos))
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		objects = append(objects, blob.Object{
			Name:         fi.Name(),
			Size:         fi.Size(),
			LastModified: fi.ModTime(),
		})
	}

	return objects, nil
}

func prepare(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return blob.CleanPath(path)
}

func classify(err error) error {
	switch {
	case gowebdav.IsErrNotFound(err):
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	case gowebdav.IsErrCode(err, http.StatusUnauthorized), gowebdav.IsErrCode(err, http.StatusForbidden):
		return fmt.Errorf("%w: %v", blob.ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %v", blob.ErrTransport, err)
	}
}

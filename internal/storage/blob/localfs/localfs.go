// Package localfs stores blobs as files under a local directory. It backs the
// "fs" driver used for development and single-host installs.
package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"portfolio/internal/storage/blob"
)

type Store struct {
	log     *slog.Logger
	baseDir string
	root    string
}

// New creates baseDir and root beneath it when they do not exist.
func New(log *slog.Logger, baseDir, root string) (*Store, error) {
	const op = "localfs.New"

	s := &Store{
		log:     log,
		baseDir: baseDir,
		root:    strings.Trim(root, "/"),
	}

	if err := os.MkdirAll(s.full(s.root), 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s, nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	const op = "localfs.Exists"

	p, err := prepare(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	fi, err := os.Stat(s.full(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return !fi.IsDir(), nil
}

func (s *Store) Download(ctx context.Context, path string) ([]byte, error) {
	const op = "localfs.Download"

	p, err := prepare(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data, err := os.ReadFile(s.full(p))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return data, nil
}

// Upload writes through a temporary file in the target directory so readers
// never see a partial image.
func (s *Store) Upload(ctx context.Context, path string, data []byte, opts blob.PutOptions) error {
	const op = "localfs.Upload"

	p, err := prepare(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	filePath := s.full(p)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("%s: failed to create directories: %w", op, classify(err))
	}

	tmp, err := os.CreateTemp(filepath.Dir(filePath), ".upload-*")
	if err != nil {
		return fmt.Errorf("%s: failed to create temp file: %w", op, classify(err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(tmp, bytes.NewReader(data))
		if cerr := tmp.Close(); err == nil {
			err = cerr
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: failed to write file: %w", op, classify(err))
		}
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}

	if opts.Overwrite {
		if err := os.Rename(tmpPath, filePath); err != nil {
			return fmt.Errorf("%s: %s: %w", op, p, classify(err))
		}
	} else {
		// Link fails when the target exists, which makes the check atomic.
		if err := os.Link(tmpPath, filePath); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%s: %s: %w", op, p, blob.ErrExists)
			}
			return fmt.Errorf("%s: %s: %w", op, p, classify(err))
		}
	}

	s.log.Debug("blob written", slog.String("op", op), slog.String("path", p), slog.Int("size", len(data)))

	return nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	const op = "localfs.Delete"

	p, err := prepare(ctx, path)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Remove(s.full(p)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s: %s: %w", op, p, classify(err))
	}

	return nil
}

// List returns the files directly under dir. An empty dir lists the root.
func (s *Store) List(ctx context.Context, dir string) ([]blob.Object, error) {
	const op = "localfs.List"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	dir = strings.Trim(dir, "/")
	if dir == "" {
		dir = s.root
	} else if _, err := blob.CleanPath(dir); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	entries, err := os.ReadDir(s.full(dir))
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", op, dir, classify(err))
	}

	objects := make([]blob.Object, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".upload-") {
			continue
		}

		fi, err := e.Info()
		if err != nil {
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

func (s *Store) full(p string) string {
	return filepath.Join(s.baseDir, filepath.FromSlash(p))
}

func prepare(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	return blob.CleanPath(path)
}

func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", blob.ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", blob.ErrUnauthorized, err)
	default:
		return fmt.Errorf("%w: %v", blob.ErrTransport, err)
	}
}

// Package blob defines the key-addressed store photo bytes live in.
//
// Every operation has three outcomes: success, ErrNotFound (expected control
// flow, never logged as an error) and a failure wrapping ErrTransport or
// ErrUnauthorized. Drivers must keep "absent" and "unreachable" apart.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("blob not found")
	ErrExists       = errors.New("blob already exists")
	ErrInvalidPath  = errors.New("invalid blob path")
	ErrUnauthorized = errors.New("blob store rejected credentials")
	ErrTransport    = errors.New("blob store unreachable")
)

type Object struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

type PutOptions struct {
	Overwrite   bool
	ContentType string
}

type Store interface {
	// Exists returns (false, nil) only when the store answered that the path
	// is absent. Transport failures come back as (false, err).
	Exists(ctx context.Context, path string) (bool, error)
	Download(ctx context.Context, path string) ([]byte, error)
	Upload(ctx context.Context, path string, data []byte, opts PutOptions) error
	// Delete treats an absent path as success.
	Delete(ctx context.Context, path string) error
	List(ctx context.Context, dir string) ([]Object, error)
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return errors.Is(err, ErrTransport)
}

// CleanPath trims surrounding slashes and rejects paths that could escape the
// store root. Drivers call it before any I/O.
func CleanPath(p string) (string, error) {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(p, '\\') {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}

	return p, nil
}

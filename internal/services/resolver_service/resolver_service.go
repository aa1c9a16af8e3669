// Package services resolves public photo references to image bytes.
//
// A request is answered from the configured-root location when possible.
// Legacy storage locations are probed only when a metadata record says the
// photo should exist, so arbitrary filenames never fan out into several
// blob-store reads. Every other outcome is ErrUnresolved, which the HTTP
// layer turns into the placeholder image.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/metrics"
	"portfolio/internal/storage/blob"

	"github.com/patrickmn/go-cache"
)

var ErrUnresolved = errors.New("photo could not be resolved")

type Source string

const (
	SourceDirect      Source = "direct"
	SourceLegacy      Source = "legacy"
	SourcePlaceholder Source = "placeholder"
)

type Result struct {
	Data        []byte
	ContentType string
	Filename    string
	// Path is the storage path the bytes were read from.
	Path   string
	Source Source
}

type MetadataChecker interface {
	ExistsByFilename(ctx context.Context, basename string) (bool, error)
}

type Resolver struct {
	log   *slog.Logger
	blobs blob.Store
	meta  MetadataChecker
	paths *photopath.Normalizer
	known *cache.Cache
}

// New builds a Resolver. Metadata lookups are cached for cacheTTL; a
// non-positive TTL disables the cache.
func New(log *slog.Logger, blobs blob.Store, meta MetadataChecker, paths *photopath.Normalizer, cacheTTL time.Duration) *Resolver {
	r := &Resolver{
		log:   log,
		blobs: blobs,
		meta:  meta,
		paths: paths,
	}
	if cacheTTL > 0 {
		r.known = cache.New(cacheTTL, 2*cacheTTL)
	}

	return r
}

// Resolve returns the bytes for raw, a percent-decoded path segment. Any
// error it returns wraps ErrUnresolved.
func (r *Resolver) Resolve(ctx context.Context, raw string) (Result, error) {
	res, err := r.resolve(ctx, raw)
	if err != nil {
		metrics.PhotoResolutions.WithLabelValues(string(SourcePlaceholder)).Inc()
		return Result{Source: SourcePlaceholder}, err
	}

	metrics.PhotoResolutions.WithLabelValues(string(res.Source)).Inc()
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, raw string) (Result, error) {
	const op = "resolver_service.Resolve"

	log := r.log.With(
		slog.String("op", op),
		slog.String("ref", raw),
	)

	ref, err := r.paths.Normalize(raw)
	if err != nil {
		log.Debug("rejected photo reference", sl.Err(err))

		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnresolved, err)
	}

	log = log.With(slog.String("filename", ref.Basename))

	data, err := r.blobs.Download(ctx, ref.Primary())
	switch {
	case err == nil:
		return r.result(ref, ref.Primary(), data, SourceDirect), nil
	case !errors.Is(err, blob.ErrNotFound):
		log.Warn("blob store read failed", slog.String("path", ref.Primary()), sl.Err(err))

		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnresolved, err)
	}

	known, err := r.isKnown(ctx, ref.Basename)
	if err != nil {
		log.Warn("metadata lookup failed", sl.Err(err))

		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnresolved, err)
	}
	if !known {
		log.Debug("photo not found and not in metadata")

		return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnresolved, blob.ErrNotFound)
	}

	lastErr := error(blob.ErrNotFound)
	for _, p := range ref.Legacy() {
		data, err := r.blobs.Download(ctx, p)
		if err == nil {
			log.Info("photo served from legacy location", slog.String("path", p))

			return r.result(ref, p, data, SourceLegacy), nil
		}
		if !errors.Is(err, blob.ErrNotFound) {
			log.Warn("blob store read failed", slog.String("path", p), sl.Err(err))
			lastErr = err
		}
		if ctx.Err() != nil {
			break
		}
	}

	log.Debug("photo has a record but no blob in any known location")

	return Result{}, fmt.Errorf("%s: %w: %w", op, ErrUnresolved, lastErr)
}

func (r *Resolver) isKnown(ctx context.Context, basename string) (bool, error) {
	if r.known != nil {
		if v, ok := r.known.Get(basename); ok {
			return v.(bool), nil
		}
	}

	known, err := r.meta.ExistsByFilename(ctx, basename)
	if err != nil {
		return false, err
	}

	if r.known != nil {
		r.known.SetDefault(basename, known)
	}

	return known, nil
}

func (r *Resolver) result(ref photopath.Reference, path string, data []byte, source Source) Result {
	return Result{
		Data:        data,
		ContentType: photopath.ContentType(ref.Basename),
		Filename:    ref.Basename,
		Path:        path,
		Source:      source,
	}
}

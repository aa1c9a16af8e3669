package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/compress"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/lib/photopath"
	"portfolio/internal/metrics"
	"portfolio/internal/repository"
	"portfolio/internal/storage"
	"portfolio/internal/storage/blob"

	"github.com/google/uuid"
)

type Config struct {
	// ResizeThreshold is the upload size in bytes above which images are
	// recompressed. Zero disables recompression.
	ResizeThreshold int
	MaxUploadBytes  int
	Compress        compress.Options
}

type PhotoService struct {
	log       *slog.Logger
	repo      repository.PhotoRepository
	blobs     blob.Store
	paths     *photopath.Normalizer
	processor compress.Processor
	cfg       Config
	now       func() time.Time
}

// NewPhotoService wires the service. processor may be nil, in which case
// uploads are stored as received and dimensions fall back to the defaults.
func NewPhotoService(
	log *slog.Logger,
	repo repository.PhotoRepository,
	blobs blob.Store,
	paths *photopath.Normalizer,
	processor compress.Processor,
	cfg Config,
) *PhotoService {
	return &PhotoService{
		log:       log,
		repo:      repo,
		blobs:     blobs,
		paths:     paths,
		processor: processor,
		cfg:       cfg,
		now:       time.Now,
	}
}

type UploadInput struct {
	Data        []byte
	Filename    string
	Title       string
	Alt         string
	Year        string
	Location    string
	Camera      string
	Description string
	Width       int
	Height      int
}

// CreateInput registers metadata for a blob that is already in the store.
type CreateInput struct {
	Src         string
	Title       string
	Alt         string
	Year        string
	Location    string
	Camera      string
	Description string
	Width       int
	Height      int
}

func (s *PhotoService) ListPhotos(ctx context.Context) ([]models.Photo, error) {
	const op = "photo_service.ListPhotos"

	photos, err := s.repo.ListPhotos(ctx)
	if err != nil {
		s.log.Error("failed to list photos", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photos, nil
}

func (s *PhotoService) GetPhoto(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	const op = "photo_service.GetPhoto"

	photo, err := s.repo.GetPhoto(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return photo, nil
}

func (s *PhotoService) CreatePhoto(ctx context.Context, in CreateInput) (*models.Photo, error) {
	const op = "photo_service.CreatePhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("src", in.Src),
	)

	ref, err := s.paths.Normalize(in.Src)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, models.NewValidationError("src is not a valid photo reference"))
	}

	photo := models.NewPhoto(ref.CanonicalPublicPath, in.Title, in.Alt, in.Width, in.Height)
	applyOptional(photo, in.Year, in.Location, in.Camera, in.Description)

	if err := photo.Validate(); err != nil {
		log.Info("photo validation failed", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		log.Error("failed to save photo", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("photo registered", slog.String("id", photo.ID.String()))

	return photo, nil
}

func (s *PhotoService) UpdatePhoto(ctx context.Context, id uuid.UUID, patch models.PhotoPatch) (*models.Photo, error) {
	const op = "photo_service.UpdatePhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("id", id.String()),
	)

	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Empty() {
		return s.GetPhoto(ctx, id)
	}

	trim(patch.Title)
	trim(patch.Alt)

	photo, err := s.repo.UpdatePhoto(ctx, id, patch)
	if err != nil {
		if !errors.Is(err, storage.ErrPhotoNotFound) {
			log.Error("failed to update photo", sl.Err(err))
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("photo updated")

	return photo, nil
}

// UploadPhoto runs the upload pipeline: validate, recompress when oversized,
// name, write the blob, then record metadata. The blob is always written
// before the record, so a failed write never leaves a record behind.
func (s *PhotoService) UploadPhoto(ctx context.Context, in UploadInput) (*models.Photo, error) {
	const op = "photo_service.UploadPhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("original_filename", in.Filename),
		slog.Int("size", len(in.Data)),
	)

	if err := s.validateUpload(in); err != nil {
		log.Info("upload rejected", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	data := in.Data
	recompressed := false

	if s.processor != nil && s.cfg.ResizeThreshold > 0 && len(data) > s.cfg.ResizeThreshold {
		opts := s.cfg.Compress
		opts.MaxBytes = s.cfg.ResizeThreshold

		res, err := compress.Compress(ctx, s.processor, data, opts)
		if err != nil {
			log.Error("failed to recompress image", sl.Err(err))

			return nil, fmt.Errorf("%s: %w", op, err)
		}

		log.Info("image recompressed",
			slog.Int("quality", res.Quality),
			slog.Int("new_size", len(res.Data)),
			slog.Bool("floor_reached", res.FloorReached),
		)

		data = res.Data
		recompressed = true
	}

	width, height := in.Width, in.Height
	if (width <= 0 || height <= 0) && s.processor != nil {
		w, h, err := s.processor.Size(data)
		if err != nil {
			log.Debug("could not read image size, using defaults", sl.Err(err))
		} else {
			width, height = w, h
		}
	}

	filename, err := photopath.GenerateFilename(in.Filename, in.Title, s.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if recompressed {
		filename = photopath.WithExtension(filename, ".jpg")
	}

	log = log.With(slog.String("filename", filename))

	err = s.blobs.Upload(ctx, s.paths.StoragePath(filename), data, blob.PutOptions{
		ContentType: photopath.ContentType(filename),
	})
	if err != nil {
		log.Error("failed to store photo", sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	photo := models.NewPhoto(s.paths.CanonicalPath(filename), in.Title, in.Alt, width, height)
	applyOptional(photo, in.Year, in.Location, in.Camera, in.Description)

	if err := s.repo.CreatePhoto(ctx, photo); err != nil {
		metrics.PartialFailures.WithLabelValues("upload").Inc()
		log.Error("photo uploaded but not recorded",
			slog.String("photo_id", photo.ID.String()),
			sl.Err(err),
		)

		return nil, fmt.Errorf("%s: %w", op, &models.PartialFailureError{
			Op:       "upload",
			Filename: filename,
			PhotoID:  photo.ID,
			Err:      err,
		})
	}

	log.Info("photo uploaded", slog.String("id", photo.ID.String()))

	return photo, nil
}

// DeletePhoto removes the blob first and the record last. If any blob
// removal fails the record is kept and a PartialFailureError is returned.
func (s *PhotoService) DeletePhoto(ctx context.Context, id uuid.UUID) error {
	const op = "photo_service.DeletePhoto"

	log := s.log.With(
		slog.String("op", op),
		slog.String("id", id.String()),
	)

	photo, err := s.repo.GetPhoto(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("src", photo.Src))

	ref, err := s.paths.Normalize(photo.Src)
	if err != nil {
		log.Warn("record has no usable src, deleting metadata only", sl.Err(err))
	} else {
		var present []string
		for _, p := range ref.CandidateStoragePaths {
			ok, err := s.blobs.Exists(ctx, p)
			if err != nil {
				log.Error("failed to probe blob store", slog.String("path", p), sl.Err(err))

				return fmt.Errorf("%s: %w", op, err)
			}
			if ok {
				present = append(present, p)
			}
		}

		if len(present) == 0 {
			log.Info("blob already absent")
		}

		for _, p := range present {
			if err := s.blobs.Delete(ctx, p); err != nil {
				metrics.PartialFailures.WithLabelValues("delete").Inc()
				log.Error("blob delete failed, photo record kept", slog.String("path", p), sl.Err(err))

				return fmt.Errorf("%s: %w", op, &models.PartialFailureError{
					Op:       "delete",
					Filename: p,
					PhotoID:  id,
					Err:      err,
				})
			}
		}
	}

	if err := s.repo.DeletePhoto(ctx, id); err != nil {
		log.Error("failed to delete photo record", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("photo deleted")

	return nil
}

// ListBlobs lists the upload root of the blob store.
func (s *PhotoService) ListBlobs(ctx context.Context) ([]blob.Object, error) {
	const op = "photo_service.ListBlobs"

	objects, err := s.blobs.List(ctx, s.paths.Root())
	if err != nil {
		s.log.Error("failed to list blobs", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return objects, nil
}

func (s *PhotoService) validateUpload(in UploadInput) error {
	var validationErrors []string

	// The src is not known yet; a stand-in lets the record rules run before
	// any I/O.
	draft := models.NewPhoto(s.paths.CanonicalPath("pending"), in.Title, in.Alt, in.Width, in.Height)
	draft.Description = strings.TrimSpace(in.Description)

	var ve *models.ValidationError
	if err := draft.Validate(); errors.As(err, &ve) {
		validationErrors = append(validationErrors, ve.Errors...)
	}

	if len(in.Data) == 0 {
		validationErrors = append(validationErrors, "file is required")
	}
	if s.cfg.MaxUploadBytes > 0 && len(in.Data) > s.cfg.MaxUploadBytes {
		validationErrors = append(validationErrors, fmt.Sprintf("file must be %d bytes or less", s.cfg.MaxUploadBytes))
	}

	if len(validationErrors) > 0 {
		return models.NewValidationError(validationErrors...)
	}

	return nil
}

func applyOptional(p *models.Photo, year, location, camera, description string) {
	p.Year = strings.TrimSpace(year)
	p.Location = strings.TrimSpace(location)
	p.Camera = strings.TrimSpace(camera)
	p.Description = strings.TrimSpace(description)
}

func trim(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

package http

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/sl"
	photoservice "portfolio/internal/services/photo_service"
	"portfolio/internal/transport/http/dto"
	"portfolio/internal/transport/http/dto/response"
)

const (
	immutableCache = "public, max-age=31536000, immutable"
	noStore        = "no-store"
)

// ListPhotos godoc
// @Summary List photos
// @Description Returns every photo record, newest first, with like counts.
// @Tags photos
// @Produce json
// @Success 200 {object} response.Response{data=[]models.Photo}
// @Failure 500 {object} response.Response
// @Router /api/photos [get]
func (r *Routers) ListPhotos(c echo.Context) error {
	const op = "http.routers.ListPhotos"

	log := r.log.With(
		slog.String("op", op),
	)

	photos, err := r.PhotoService.ListPhotos(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}
	if photos == nil {
		photos = []models.Photo{}
	}

	return c.JSON(http.StatusOK, response.Success(photos))
}

// ServePhoto godoc
// @Summary Serve photo bytes
// @Description Streams the image for any known form of a photo reference. Unknown or unreadable photos redirect to the placeholder image.
// @Tags photos
// @Produce image/jpeg,image/png,image/gif,image/webp,image/svg+xml
// @Param filename path string true "Photo filename or legacy path"
// @Success 200 {file} binary
// @Success 302 "Redirect to the placeholder image"
// @Router /api/photos/{filename} [get]
func (r *Routers) ServePhoto(c echo.Context) error {
	const op = "http.routers.ServePhoto"

	// echo matches on RawPath when the request has one, and the wildcard is
	// then still escaped. Otherwise it is already decoded.
	raw := c.Param("*")
	if c.Request().URL.RawPath != "" {
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
	}

	log := r.log.With(
		slog.String("op", op),
		slog.String("reference", raw),
	)

	res, err := r.Resolver.Resolve(c.Request().Context(), raw)
	if err != nil {
		// Not-found is the expected path for stale references.
		log.Debug("serving placeholder", sl.Err(err))

		c.Response().Header().Set(echo.HeaderCacheControl, noStore)
		return c.Redirect(http.StatusFound, r.opts.PlaceholderURL)
	}

	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, immutableCache)
	h.Set(echo.HeaderContentLength, strconv.Itoa(len(res.Data)))

	if c.Request().Method == http.MethodHead {
		h.Set(echo.HeaderContentType, res.ContentType)
		return c.NoContent(http.StatusOK)
	}

	return c.Blob(http.StatusOK, res.ContentType, res.Data)
}

// CreatePhoto godoc
// @Summary Upload or register a photo
// @Description A multipart body uploads the file and creates its record. A JSON body registers metadata for a blob that is already stored.
// @Tags photos
// @Accept multipart/form-data,json
// @Produce json
// @Param file formData file false "Image file (multipart only)"
// @Param title formData string false "Title"
// @Param alt formData string false "Alt text"
// @Param year formData string false "Year taken"
// @Param location formData string false "Location"
// @Param camera formData string false "Camera"
// @Param description formData string false "Description"
// @Param request body dto.CreatePhotoRequest false "Metadata (JSON only)"
// @Success 201 {object} response.Response{data=models.Photo}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 500 {object} response.Response
// @Security ApiKeyAuth
// @Router /api/photos [post]
func (r *Routers) CreatePhoto(c echo.Context) error {
	if dto.IsMultipart(c.Request().Header.Get(echo.HeaderContentType)) {
		return r.uploadPhoto(c)
	}

	const op = "http.routers.CreatePhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CreatePhotoRequest
	if err := r.bind(c, log, &req); err != nil {
		return r.fail(c, log, err)
	}

	photo, err := r.PhotoService.CreatePhoto(c.Request().Context(), photoservice.CreateInput{
		Src:         req.Src,
		Title:       req.Title,
		Alt:         req.Alt,
		Year:        req.Year,
		Location:    req.Location,
		Camera:      req.Camera,
		Description: req.Description,
		Width:       req.Width,
		Height:      req.Height,
	})
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("photo registered", slog.String("photo_id", photo.ID.String()), slog.String("src", photo.Src))

	return c.JSON(http.StatusCreated, response.Success(photo))
}

func (r *Routers) uploadPhoto(c echo.Context) error {
	const op = "http.routers.UploadPhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	startTime := time.Now()

	in := photoservice.UploadInput{
		Title:       c.FormValue("title"),
		Alt:         c.FormValue("alt"),
		Year:        c.FormValue("year"),
		Location:    c.FormValue("location"),
		Camera:      c.FormValue("camera"),
		Description: c.FormValue("description"),
		Width:       formInt(c, "width"),
		Height:      formInt(c, "height"),
	}

	file, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// The service reports the missing file with the other field errors.
	case err != nil:
		log.Warn("failed to read multipart form", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	default:
		in.Filename = file.Filename

		src, err := file.Open()
		if err != nil {
			return r.fail(c, log, err)
		}
		defer src.Close()

		limit := int64(r.opts.MaxUploadBytes)
		if limit <= 0 {
			limit = file.Size
		}

		// One byte past the limit is enough for the size check to fire.
		in.Data, err = io.ReadAll(io.LimitReader(src, limit+1))
		if err != nil {
			return r.fail(c, log, err)
		}
	}

	log.Debug("got file for upload",
		slog.String("filename", in.Filename),
		slog.Int("size", len(in.Data)),
	)

	photo, err := r.PhotoService.UploadPhoto(c.Request().Context(), in)
	if err != nil {
		return r.fail(c, log, err)
	}

	log.Info("upload successful",
		slog.String("photo_id", photo.ID.String()),
		slog.String("src", photo.Src),
		slog.Duration("duration", time.Since(startTime)),
	)

	return c.JSON(http.StatusCreated, response.Success(photo))
}

// UpdatePhoto godoc
// @Summary Update photo metadata
// @Description Changes metadata fields only; the stored image is never touched.
// @Tags photos
// @Accept json
// @Produce json
// @Param request body dto.UpdatePhotoRequest true "Fields to change"
// @Success 200 {object} response.Response{data=models.Photo}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Security ApiKeyAuth
// @Router /api/photos [put]
func (r *Routers) UpdatePhoto(c echo.Context) error {
	const op = "http.routers.UpdatePhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.UpdatePhotoRequest
	if err := r.bind(c, log, &req); err != nil {
		return r.fail(c, log, err)
	}

	id, err := parseID(req.ID, "id")
	if err != nil {
		return r.fail(c, log, err)
	}

	photo, err := r.PhotoService.UpdatePhoto(c.Request().Context(), id, req.Patch())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(photo))
}

// DeletePhoto godoc
// @Summary Delete a photo
// @Description Deletes the stored image first, then the record. The record is kept when the image cannot be removed.
// @Tags photos
// @Produce json
// @Param id query string true "Photo id" format(uuid)
// @Success 200 {object} response.Response{data=dto.DeletePhotoResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response "partial_failure when the record was kept"
// @Security ApiKeyAuth
// @Router /api/photos [delete]
func (r *Routers) DeletePhoto(c echo.Context) error {
	const op = "http.routers.DeletePhoto"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := parseID(c.QueryParam("id"), "id")
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.PhotoService.DeletePhoto(c.Request().Context(), id); err != nil {
		return r.fail(c, log, err)
	}

	log.Info("photo deleted", slog.String("photo_id", id.String()))

	if err := r.AnalyticsService.Forget(c.Request().Context(), id); err != nil {
		log.Warn("failed to drop view counter", sl.Err(err))
	}

	return c.JSON(http.StatusOK, response.Success(dto.DeletePhotoResponse{ID: id.String()}))
}

// ListBlobs godoc
// @Summary List stored images
// @Description Lists the objects under the configured blob-store root, for reconciling records with storage.
// @Tags admin
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.BlobResponse}
// @Failure 502 {object} response.Response
// @Security ApiKeyAuth
// @Router /api/admin/blobs [get]
func (r *Routers) ListBlobs(c echo.Context) error {
	const op = "http.routers.ListBlobs"

	log := r.log.With(
		slog.String("op", op),
	)

	objects, err := r.PhotoService.ListBlobs(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	out := make([]dto.BlobResponse, 0, len(objects))
	for _, o := range objects {
		b := dto.BlobResponse{Name: o.Name, Size: o.Size}
		if !o.LastModified.IsZero() {
			b.LastModified = o.LastModified.UTC().Format(time.RFC3339)
		}
		out = append(out, b)
	}

	return c.JSON(http.StatusOK, response.Success(out))
}

func formInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.FormValue(name))
	if err != nil {
		return 0
	}

	return n
}

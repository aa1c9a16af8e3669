package http

import (
	"log/slog"
	"net/http"

	"portfolio/internal/transport/http/dto"
	"portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// RecordView godoc
// @Summary Count a photo view
// @Tags analytics
// @Accept json
// @Produce json
// @Param request body dto.PhotoRefRequest true "Viewed photo"
// @Success 200 {object} response.Response{data=dto.ViewsResponse}
// @Failure 404 {object} response.Response
// @Router /api/analytics/view [post]
func (r *Routers) RecordView(c echo.Context) error {
	const op = "http.routers.RecordView"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.PhotoRefRequest
	if err := r.bind(c, log, &req); err != nil {
		return r.fail(c, log, err)
	}

	photoID, err := parseID(req.PhotoID, "photoId")
	if err != nil {
		return r.fail(c, log, err)
	}

	views, err := r.AnalyticsService.RecordView(c.Request().Context(), photoID)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(dto.ViewsResponse{PhotoID: photoID.String(), Views: views}))
}

// ListViews godoc
// @Summary View counts per photo
// @Tags analytics
// @Produce json
// @Success 200 {object} response.Response{data=map[string]int64}
// @Security ApiKeyAuth
// @Router /api/analytics/views [get]
func (r *Routers) ListViews(c echo.Context) error {
	const op = "http.routers.ListViews"

	log := r.log.With(
		slog.String("op", op),
	)

	stats, err := r.AnalyticsService.Views(c.Request().Context())
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(stats))
}

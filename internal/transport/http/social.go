package http

import (
	"errors"
	"log/slog"
	"net/http"

	"portfolio/internal/domain/models"
	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/storage"
	"portfolio/internal/transport/http/dto"
	"portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo/v4"
)

// LikePhoto godoc
// @Summary Like a photo
// @Description Records one like per visitor. A repeated like answers 409 with the current count.
// @Tags social
// @Accept json
// @Produce json
// @Param request body dto.PhotoRefRequest true "Photo to like"
// @Success 200 {object} response.Response{data=dto.LikesResponse}
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response{data=dto.LikesResponse}
// @Router /api/social/like [post]
func (r *Routers) LikePhoto(c echo.Context) error {
	const op = "http.routers.LikePhoto"

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

	voterID, err := r.voterID(c)
	if err != nil {
		log.Error("failed to resolve voter", sl.Err(err))
		return r.fail(c, log, err)
	}

	likes, err := r.SocialService.Like(c.Request().Context(), photoID, voterID)
	if errors.Is(err, storage.ErrAlreadyLiked) {
		resp := response.Error(response.CodeAlreadyLiked, "Photo already liked")
		resp.Data = dto.LikesResponse{PhotoID: photoID.String(), Likes: likes}

		return c.JSON(http.StatusConflict, resp)
	}
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(dto.LikesResponse{PhotoID: photoID.String(), Likes: likes}))
}

// UnlikePhoto godoc
// @Summary Remove a like
// @Description Removing a like that does not exist is not an error.
// @Tags social
// @Accept json
// @Produce json
// @Param request body dto.PhotoRefRequest true "Photo to unlike"
// @Success 200 {object} response.Response{data=dto.LikesResponse}
// @Failure 400 {object} response.Response
// @Router /api/social/like [delete]
func (r *Routers) UnlikePhoto(c echo.Context) error {
	const op = "http.routers.UnlikePhoto"

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

	voterID, err := r.voterID(c)
	if err != nil {
		return r.fail(c, log, err)
	}

	likes, err := r.SocialService.Unlike(c.Request().Context(), photoID, voterID)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(dto.LikesResponse{PhotoID: photoID.String(), Likes: likes}))
}

// AddComment godoc
// @Summary Comment on a photo
// @Tags social
// @Accept json
// @Produce json
// @Param request body dto.CommentRequest true "Comment"
// @Success 201 {object} response.Response{data=models.Comment}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/social/comment [post]
func (r *Routers) AddComment(c echo.Context) error {
	const op = "http.routers.AddComment"

	log := r.log.With(
		slog.String("op", op),
	)

	var req dto.CommentRequest
	if err := r.bind(c, log, &req); err != nil {
		return r.fail(c, log, err)
	}

	photoID, err := parseID(req.PhotoID, "photoId")
	if err != nil {
		return r.fail(c, log, err)
	}

	comment, err := r.SocialService.Comment(c.Request().Context(), photoID, req.UserName, req.Text)
	if err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.Success(comment))
}

// ListComments godoc
// @Summary List a photo's comments
// @Description Oldest first.
// @Tags social
// @Produce json
// @Param photoId query string true "Photo id" format(uuid)
// @Success 200 {object} response.Response{data=[]models.Comment}
// @Failure 400 {object} response.Response
// @Router /api/social/comments [get]
func (r *Routers) ListComments(c echo.Context) error {
	const op = "http.routers.ListComments"

	log := r.log.With(
		slog.String("op", op),
	)

	photoID, err := parseID(c.QueryParam("photoId"), "photoId")
	if err != nil {
		return r.fail(c, log, err)
	}

	comments, err := r.SocialService.Comments(c.Request().Context(), photoID)
	if err != nil {
		return r.fail(c, log, err)
	}
	if comments == nil {
		comments = []models.Comment{}
	}

	return c.JSON(http.StatusOK, response.Success(comments))
}

// DeleteComment godoc
// @Summary Delete a comment
// @Tags social
// @Produce json
// @Param id query string true "Comment id" format(uuid)
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Security ApiKeyAuth
// @Router /api/social/comment [delete]
func (r *Routers) DeleteComment(c echo.Context) error {
	const op = "http.routers.DeleteComment"

	log := r.log.With(
		slog.String("op", op),
	)

	id, err := parseID(c.QueryParam("id"), "id")
	if err != nil {
		return r.fail(c, log, err)
	}

	if err := r.SocialService.DeleteComment(c.Request().Context(), id); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(map[string]string{"id": id.String()}))
}

package http

import (
	"log/slog"
	"net/http"

	"portfolio/internal/lib/logger/sl"
	"portfolio/internal/transport/http/dto"
	"portfolio/internal/transport/http/dto/request"
	"portfolio/internal/transport/http/dto/response"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
)

// Login godoc
// @Summary Admin sign-in
// @Description Checks the credentials, returns a bearer token and stores the admin in the session cookie.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body request.LoginRequest true "Credentials"
// @Success 200 {object} response.Response{data=dto.LoginResponse}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/auth/login [post]
func (r *Routers) Login(c echo.Context) error {
	const op = "http.routers.Login"

	log := r.log.With(
		slog.String("op", op),
	)

	var req request.LoginRequest
	if err := r.bind(c, log, &req); err != nil {
		return r.fail(c, log, err)
	}

	token, user, err := r.AuthService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		log.Warn("login failed", slog.String("username", req.Username))
		return r.fail(c, log, err)
	}

	sess, err := session.Get(SessionName, c)
	if err != nil {
		return r.fail(c, log, err)
	}
	sess.Values[sessionUserKey] = user.ID.String()
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Error("failed to save session", sl.Err(err))
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(dto.LoginResponse{
		AccessToken: token.AccessToken,
		ExpiresAt:   token.ExpiresAt,
		User:        user,
	}))
}

// Logout godoc
// @Summary Sign out
// @Description Expires the session cookie. Bearer tokens stay valid until they expire.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	log := r.log.With(
		slog.String("op", op),
	)

	sess, err := session.Get(SessionName, c)
	if err != nil {
		return r.fail(c, log, err)
	}

	delete(sess.Values, sessionUserKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		return r.fail(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Success(nil))
}

package middleware

import (
	"strconv"
	"strings"
	"time"

	"portfolio/internal/metrics"

	"github.com/labstack/echo/v4"
)

// unobserved routes are scraped or polled by tooling and would drown the
// request metrics.
var unobserved = []string{"/metrics", "/debug/"}

func PrometheusMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Path()
		for _, p := range unobserved {
			if strings.HasPrefix(route, p) {
				return next(c)
			}
		}

		start := time.Now()
		err := next(c)
		elapsed := time.Since(start).Seconds()

		// Handlers that return an *echo.HTTPError leave the status to echo's
		// error handler, which runs after this middleware.
		status := c.Response().Status
		if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
			status = he.Code
		}

		if route == "" {
			route = "unmatched"
		}

		method := c.Request().Method
		metrics.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed)

		return err
	}
}

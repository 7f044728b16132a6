package api

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/labstack/echo/v4"

	"alert-systemv1/internal/logger"
)

// recoverPanics converts handler panics into 500 responses so one bad
// request cannot take the server down.
func recoverPanics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[api] panic serving %s %s: %v\n%s",
						c.Request().Method, c.Request().URL.Path, r, debug.Stack())
					err = c.JSON(http.StatusInternalServerError, map[string]string{
						"error": fmt.Sprintf("internal error: %v", r),
					})
				}
			}()
			return next(c)
		}
	}
}

// logRequests writes one structured line per request.
func logRequests() echo.MiddlewareFunc {
	zl := logger.With("api")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			zl.Info().
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("request")
			return err
		}
	}
}

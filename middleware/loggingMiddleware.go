package middleware

import (
	"time"

	"github.com/labstack/echo"
	"github.com/rs/zerolog"
)

// RequestLogging logs HTTP requests and hands a request scoped logger
// down through the request context.
func RequestLogging(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			reqLogger := logger.With().Str("method", req.Method).Str("uri", req.RequestURI).Logger()
			c.SetRequest(req.WithContext(reqLogger.WithContext(req.Context())))

			err := next(c)

			status := res.Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			event := reqLogger.Info()
			if err != nil {
				event = reqLogger.Warn().Err(err)
			}
			event.Int("status", status).
				Str("remote", req.RemoteAddr).
				Dur("latency", time.Since(start)).
				Msg("request")

			return err
		}
	}
}

package middleware

import (
	"time"

	"ScreenerView/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestLogging logs HTTP requests.
func RequestLogging(l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []logger.Field{
				logger.String("method", req.Method),
				logger.String("uri", req.RequestURI),
				logger.String("remote", c.RealIP()),
				logger.Int("status", res.Status),
				logger.Duration("duration_ms", time.Since(start)),
			}
			if res.Status >= 500 {
				l.Error("http request", append(fields, logger.Error(err))...)
			} else {
				l.Debug("http request", fields...)
			}

			return nil
		}
	}
}

package middleware

import (
	"strconv"
	"time"

	applogger "ScreenerView/pkg/logger"

	"github.com/labstack/echo/v4"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTPRequest(method, route, status string)
	RecordLatency(op string, seconds float64)
}

// Metrics records request metrics labelled by the route template, which keeps
// label cardinality low. Errors and slow requests are logged.
func Metrics(rec RequestRecorder, l *applogger.Logger, slowThreshold time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			route := routeLabel(c)
			method := c.Request().Method
			code := c.Response().Status
			status := strconv.Itoa(code)
			duration := time.Since(start)

			rec.RecordHTTPRequest(method, route, status)
			rec.RecordLatency("http "+statusClass(code), duration.Seconds())

			if code >= 500 {
				l.Error("http request failed",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", duration),
					applogger.Int64("bytes", c.Response().Size),
				)
			} else if slowThreshold > 0 && duration >= slowThreshold {
				l.Warn("http request slow",
					applogger.String("route", route),
					applogger.String("method", method),
					applogger.String("status", status),
					applogger.Duration("duration_ms", duration),
				)
			}
			return nil
		}
	}
}

// routeLabel prefers the matched route template over the raw path.
func routeLabel(c echo.Context) string {
	if p := c.Path(); p != "" {
		return p
	}
	return "unmatched"
}

func statusClass(code int) string {
	switch {
	case code >= 100 && code < 200:
		return "1xx"
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

package middleware

import (
	"strconv"
	"time"

	"talentMarket/pkg/logger"
	"talentMarket/pkg/metrics"
	"talentMarket/pkg/trace"

	"github.com/labstack/echo/v4"
)

const slowRequestThreshold = 500 * time.Millisecond

// RequestLogger puts the request id on the context as trace id, then logs
// and times every request. Place it after echo's RequestID middleware.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			traceID := c.Response().Header().Get(echo.HeaderXRequestID)
			if traceID == "" {
				traceID = req.Header.Get(echo.HeaderXRequestID)
			}
			c.SetRequest(req.WithContext(trace.WithTraceID(req.Context(), traceID)))

			start := time.Now()
			if err := next(c); err != nil {
				// commit the response so the status below is the real one
				c.Error(err)
			}
			elapsed := time.Since(start)

			status := c.Response().Status
			route := c.Path()
			metrics.HTTPRequestDuration.
				WithLabelValues(req.Method, route, strconv.Itoa(status)).
				Observe(elapsed.Seconds())

			args := []any{
				"method", req.Method,
				"path", req.URL.Path,
				"route", route,
				"status", status,
				"duration_ms", elapsed.Milliseconds(),
				"trace_id", traceID,
			}
			switch {
			case elapsed > slowRequestThreshold:
				logger.Warn("Slow request", args...)
			case status >= 500:
				logger.Error("Request completed", args...)
			default:
				logger.Info("Request completed", args...)
			}

			return nil
		}
	}
}

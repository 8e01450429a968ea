package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/guttosm/escrowd/internal/logger"
	"github.com/rs/zerolog"
)

// RequestLogger is a Gin middleware that logs method, route, status code,
// request latency, request ID and the authenticated account (if any).
//
// Server errors log at error level, client errors at warn, the rest at info.
//
// Usage:
//
//	router := gin.New()
//	router.Use(middleware.RequestID(), middleware.RequestLogger())
//
// Example log output:
//
//	request_id=123e4567-e89b-12d3-a456-426614174000 method=POST path=/api/v1/trades status=201 latency_ms=4
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		rid, _ := c.Get(RequestIDKey)
		account, _ := c.Get(AccountIDKey)

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logger.L().Error()
		case status >= 400:
			ev = logger.L().Warn()
		default:
			ev = logger.L().Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("request_id", toString(rid)).
			Str("account", toString(account)).
			Str("method", method).
			Str("path", path).
			Str("route", c.FullPath()).
			Int("status", status).
			Int64("latency_ms", latency.Milliseconds()).
			Str("client_ip", c.ClientIP()).
			Msg("http_request")
	}
}

func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

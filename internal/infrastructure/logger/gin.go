package logger

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Keys read from and written to the gin context
const (
	ginLoggerKey    = "logger"
	ginRequestIDKey = "request_id"
	ginSessionKey   = "session"
)

// AccessOption tunes GinMiddleware
type AccessOption func(*accessConfig)

type accessConfig struct {
	skip map[string]struct{}
}

// WithSkipPaths silences the access line for exact request paths such as
// load balancer probes. The request logger is still installed.
func WithSkipPaths(paths ...string) AccessOption {
	return func(c *accessConfig) {
		for _, p := range paths {
			c.skip[p] = struct{}{}
		}
	}
}

// GinMiddleware installs a request-scoped logger on the gin context and on
// the request context, then writes one access line per request. The level
// follows the status class.
func GinMiddleware(logger *zap.Logger, opts ...AccessOption) gin.HandlerFunc {
	cfg := &accessConfig{skip: make(map[string]struct{})}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		requestID := c.GetString(ginRequestIDKey)

		reqLogger := logger.With(
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set(ginLoggerKey, reqLogger)

		ctx := WithContext(c.Request.Context(), reqLogger)
		if requestID != "" {
			ctx = context.WithValue(ctx, requestIDKey, requestID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if _, ok := cfg.skip[path]; ok {
			return
		}

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if route := c.FullPath(); route != "" && route != path {
			fields = append(fields, zap.String("route", route))
		}
		if key := c.GetString(ginSessionKey); key != "" {
			fields = append(fields, zap.String("session", ShortSession(key)))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLogger.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			reqLogger.Warn("HTTP Request", fields...)
		default:
			reqLogger.Info("HTTP Request", fields...)
		}
	}
}

// Recovery turns a handler panic into a logged 500
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("Panic recovered",
					zap.String("request_id", c.GetString(ginRequestIDKey)),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger GinMiddleware installed, or a
// no-op logger
func GetGinLogger(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(ginLoggerKey); ok {
		if zl, ok := l.(*zap.Logger); ok {
			return zl
		}
	}
	return zap.NewNop()
}

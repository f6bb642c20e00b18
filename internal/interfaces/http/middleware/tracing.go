// Package middleware provides HTTP middleware for the storefront backend.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/storefront/backend/internal/infrastructure/logger"
)

// MaxUserIDLength bounds user ids copied from headers into spans
const MaxUserIDLength = 64

// TracingConfig configures Tracing
type TracingConfig struct {
	ServiceName string
	Enabled     bool
	// SkipPaths are exact request paths that never start a span
	SkipPaths []string
}

// Tracing starts a server span per request, named "METHOD route". Session
// attributes are added later by TracingAttributeInjector, once the session
// middleware has resolved the caller.
func Tracing(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(cfg.ServiceName, otelgin.WithFilter(func(r *http.Request) bool {
		_, skipped := skip[r.URL.Path]
		return !skipped
	}))
}

// SpanErrorMarker fails the request span on 4xx and 5xx responses. It
// must run inside Tracing.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}
		span.SetStatus(codes.Error, spanErrorMessage(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

func spanErrorMessage(status int) string {
	switch status {
	case http.StatusBadGateway:
		return "Commerce backend rejected request"
	case http.StatusServiceUnavailable:
		return "Commerce backend unavailable"
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	if status >= http.StatusInternalServerError {
		return "Server Error"
	}
	return "Client Error"
}

// TracingAttributeInjector tags the request span with the request id, the
// short session fingerprint and the caller's user id, if any. It must run
// after Session.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			span.SetAttributes(sessionAttributes(c)...)
		}
		c.Next()
	}
}

func sessionAttributes(c *gin.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	if id := GetRequestID(c); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	if key := c.GetString(SessionKey); key != "" {
		attrs = append(attrs, attribute.String("session", logger.ShortSession(key)))
	}
	if uid := GetUserID(c); uid != "" && len(uid) <= MaxUserIDLength {
		attrs = append(attrs, attribute.String("user_id", uid))
	}
	return attrs
}

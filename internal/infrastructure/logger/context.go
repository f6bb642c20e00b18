package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	sessionKey   contextKey = "session"
)

// shortSessionLen is how much of a session fingerprint reaches log lines
const shortSessionLen = 12

// WithContext attaches logger to ctx
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger attached to ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithSession records the session fingerprint on ctx and attaches a logger
// carrying its short form. The fingerprint is a hash, never the credential.
func WithSession(ctx context.Context, logger *zap.Logger, key string) (context.Context, *zap.Logger) {
	enriched := logger.With(zap.String("session", ShortSession(key)))
	ctx = context.WithValue(ctx, sessionKey, key)
	return WithContext(ctx, enriched), enriched
}

// GetRequestID returns the request id GinMiddleware stored on ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// GetSession returns the session fingerprint stored on ctx
func GetSession(ctx context.Context) string {
	key, _ := ctx.Value(sessionKey).(string)
	return key
}

// ShortSession trims a session fingerprint for log lines
func ShortSession(key string) string {
	if len(key) > shortSessionLen {
		return key[:shortSessionLen]
	}
	return key
}

// ContextLogger decorates a service logger with the request id, session
// and trace of the context it was built from.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// WithLogger binds a service's own logger to ctx
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, logger: logger}
}

// With adds fields to every entry of the returned logger
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) fields() []zap.Field {
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(cl.ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(cl.ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if key := GetSession(cl.ctx); key != "" {
		fields = append(fields, zap.String("session", ShortSession(key)))
	}
	return fields
}

func (cl *ContextLogger) log(level func(string, ...zap.Field), msg string, fields []zap.Field) {
	level(msg, append(cl.fields(), fields...)...)
}

// Debug logs at debug level
func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.log(cl.logger.Debug, msg, fields) }

// Info logs at info level
func (cl *ContextLogger) Info(msg string, fields ...zap.Field) { cl.log(cl.logger.Info, msg, fields) }

// Warn logs at warn level
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) { cl.log(cl.logger.Warn, msg, fields) }

// Error logs at error level
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.log(cl.logger.Error, msg, fields) }

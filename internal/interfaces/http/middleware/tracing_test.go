package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/infrastructure/logger"
)

// setupTestTracer sets up a test tracer provider and returns the span recorder.
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})

	return sr
}

func findSpan(t *testing.T, sr *tracetest.SpanRecorder, name string) sdktrace.ReadOnlySpan {
	t.Helper()
	for _, span := range sr.Ended() {
		if span.Name() == name {
			return span
		}
	}
	require.Failf(t, "span not found", "no ended span named %q", name)
	return nil
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (string, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == key {
			return attr.Value.Emit(), true
		}
	}
	return "", false
}

func TestTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := okRouter(Tracing(TracingConfig{Enabled: false, ServiceName: "test-service"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracing_SkipPaths(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service", SkipPaths: []string{"/health"}}))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, sr.Ended())

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	findSpan(t, sr, "GET /api/v1/cart")
}

func TestTracing_SessionAttributes(t *testing.T) {
	sr := setupTestTracer(t)
	registry := session.NewRegistry(time.Hour, zap.NewNop())

	router := gin.New()
	router.Use(RequestID())
	router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service"}))
	router.Use(Session(registry))
	router.Use(TracingAttributeInjector())
	router.GET("/api/v1/cart", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(RequestIDHeader, "test-request-id-123")
	req.Header.Set(TokenHeader, "secret-token")
	req.Header.Set(UserIDHeader, "user-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	span := findSpan(t, sr, "GET /api/v1/cart")

	requestID, ok := spanAttr(span, "request_id")
	assert.True(t, ok)
	assert.Equal(t, "test-request-id-123", requestID)

	sess, ok := spanAttr(span, "session")
	assert.True(t, ok)
	assert.Equal(t, logger.ShortSession(session.Fingerprint(Credential(ginContextFor(req)))), sess)
	assert.NotContains(t, sess, "secret-token")

	userID, ok := spanAttr(span, "user_id")
	assert.True(t, ok)
	assert.Equal(t, "user-42", userID)
}

func TestSpanErrorMarker(t *testing.T) {
	tests := []struct {
		status    int
		wantError bool
		message   string
	}{
		{http.StatusOK, false, ""},
		{http.StatusUnauthorized, true, "Unauthorized"},
		{http.StatusConflict, true, "Conflict"},
		{http.StatusUnprocessableEntity, true, "Unprocessable Entity"},
		{http.StatusBadGateway, true, "Commerce backend rejected request"},
		{http.StatusServiceUnavailable, true, "Commerce backend unavailable"},
		{http.StatusInternalServerError, true, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			sr := setupTestTracer(t)
			router := gin.New()
			router.Use(Tracing(TracingConfig{Enabled: true, ServiceName: "test-service"}))
			router.Use(SpanErrorMarker())
			router.GET("/test", func(c *gin.Context) {
				c.Status(tt.status)
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			span := findSpan(t, sr, "GET /test")
			if tt.wantError {
				assert.Equal(t, codes.Error, span.Status().Code)
				// otelgin sets its own status for 5xx after the marker ran
				if tt.status < http.StatusInternalServerError {
					assert.Equal(t, tt.message, span.Status().Description)
				}
			} else {
				assert.NotEqual(t, codes.Error, span.Status().Code)
			}
		})
	}
}

// ginContextFor builds a throwaway gin context around req
func ginContextFor(req *http.Request) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = req
	return c
}

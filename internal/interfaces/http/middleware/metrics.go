package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

const (
	attrStatusClass = attribute.Key("http.status_class")
	attrLongLived   = attribute.Key("http.long_lived")
	unmatchedRoute  = "unknown"
)

var sizeBuckets = []float64{100, 500, 1000, 5000, 10000, 50000, 100000, 500000, 1000000}

// HTTPMetricsConfig configures HTTPMetrics
type HTTPMetricsConfig struct {
	Telemetry *telemetry.Providers
	// LongLived lists route patterns whose duration is a connection
	// lifetime, not a latency. They are counted but kept out of the
	// duration histogram.
	LongLived []string
}

type httpMetrics struct {
	requests  *telemetry.Counter
	duration  *telemetry.Histogram
	reqSize   *telemetry.Histogram
	respSize  *telemetry.Histogram
	inFlight  metric.Int64UpDownCounter
	longLived map[string]struct{}
}

// HTTPMetrics records per-route request counts, latency, body sizes and
// in-flight requests. It is a pass-through when metrics export is off.
func HTTPMetrics(cfg HTTPMetricsConfig) gin.HandlerFunc {
	if cfg.Telemetry == nil || !cfg.Telemetry.Enabled() {
		return passThrough
	}
	return httpMetricsMiddleware(cfg.Telemetry.Meter("http.server"), cfg.LongLived)
}

func httpMetricsMiddleware(meter metric.Meter, longLived []string) gin.HandlerFunc {
	m, err := newHTTPMetrics(meter, longLived)
	if err != nil {
		return passThrough
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()

		m.inFlight.Add(ctx, 1)
		c.Next()
		m.inFlight.Add(ctx, -1)

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		m.record(ctx, c.Request.Method, route, c.Writer.Status(), time.Since(start), c.Request.ContentLength, c.Writer.Size())
	}
}

func newHTTPMetrics(meter metric.Meter, longLived []string) (*httpMetrics, error) {
	m := &httpMetrics{longLived: make(map[string]struct{}, len(longLived))}
	for _, route := range longLived {
		m.longLived[route] = struct{}{}
	}

	var err error
	if m.requests, err = telemetry.NewCounter(meter, "http_server_request_total", "Total number of HTTP requests", "{request}"); err != nil {
		return nil, err
	}
	histograms := []struct {
		dst  **telemetry.Histogram
		opts telemetry.HistogramOpts
	}{
		{&m.duration, telemetry.HistogramOpts{
			Name:        "http_server_request_duration_seconds",
			Description: "HTTP request latency in seconds",
			Unit:        "s",
			Boundaries:  telemetry.HTTPDurationBuckets,
		}},
		{&m.reqSize, telemetry.HistogramOpts{
			Name:        "http_server_request_size_bytes",
			Description: "Declared HTTP request body size in bytes",
			Unit:        "By",
			Boundaries:  sizeBuckets,
		}},
		{&m.respSize, telemetry.HistogramOpts{
			Name:        "http_server_response_size_bytes",
			Description: "HTTP response body size in bytes",
			Unit:        "By",
			Boundaries:  sizeBuckets,
		}},
	}
	for _, h := range histograms {
		if *h.dst, err = telemetry.NewHistogram(meter, h.opts); err != nil {
			return nil, err
		}
	}
	m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests currently being served, open cart streams included"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *httpMetrics) record(ctx context.Context, method, route string, status int, elapsed time.Duration, reqSize int64, respSize int) {
	_, streaming := m.longLived[route]

	// route and method only below, status would multiply the series
	base := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.requests.Inc(ctx, append(base,
		telemetry.AttrHTTPStatusCode.Int(status),
		attrStatusClass.String(statusClass(status)),
		attrLongLived.Bool(streaming),
	)...)

	if !streaming {
		m.duration.RecordDuration(ctx, elapsed, base...)
	}
	if reqSize > 0 {
		m.reqSize.Record(ctx, float64(reqSize), base...)
	}
	if respSize > 0 {
		m.respSize.Record(ctx, float64(respSize), base...)
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

func passThrough(c *gin.Context) {
	c.Next()
}

// Package commerce talks to the remote commerce REST API and normalizes its
// inconsistent response shapes into storefront types.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storefront/backend/internal/domain/storefront"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
)

// credentialHeader carries the bearer credential on every request
const credentialHeader = "token"

// Transport level errors, wrapped as the cause of a storefront.Failure
var (
	ErrUnavailable     = errors.New("commerce: backend unavailable")
	ErrInvalidResponse = errors.New("commerce: invalid response")
	ErrRequestFailed   = errors.New("commerce: request failed")
)

// Client implements the storefront gateway ports against the commerce API
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	translator *Translator
	logger     *zap.Logger
	metrics    *telemetry.CheckoutMetrics
	now        func() time.Time
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithMetrics records backend call latency
func WithMetrics(m *telemetry.CheckoutMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithTranslator replaces the default message translation table
func WithTranslator(t *Translator) Option {
	return func(c *Client) { c.translator = t }
}

// WithTransport replaces the base HTTP transport. It is still wrapped
// for tracing.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.httpClient.Transport = otelhttp.NewTransport(rt)
	}
}

// WithClock sets the time source used for snapshot timestamps
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a commerce client
func NewClient(config *Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.RateLimitPerSecond > 0 {
		limit = rate.Limit(config.RateLimitPerSecond)
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout:   time.Duration(config.TimeoutSeconds) * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter:    rate.NewLimiter(limit, config.RateLimitBurst),
		translator: NewTranslator(DefaultRules()...),
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// response is a raw backend answer
type response struct {
	operation string
	status    int
	body      []byte
}

func (r *response) ok() bool {
	return r.status >= 200 && r.status < 300
}

func (r *response) diagnostic() *storefront.Diagnostic {
	return &storefront.Diagnostic{
		Operation:  r.operation,
		StatusCode: r.status,
		Body:       rawBody(r.body),
	}
}

// rawBody keeps JSON bodies as-is and quotes anything else so the
// diagnostic always marshals
func rawBody(b []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return nil
	}
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed)
	}
	quoted, _ := json.Marshal(string(trimmed))
	return quoted
}

// request describes one call to the backend
type request struct {
	operation string
	method    string
	path      string
	query     url.Values
	payload   any
}

// do performs a request. Only transport failures and a missing credential
// are returned as errors; status handling is left to the caller because
// the backend's status codes are not reliable on every endpoint.
func (c *Client) do(ctx context.Context, cred storefront.Credential, r request) (*response, error) {
	if cred.IsZero() {
		return nil, storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "commerce", r.operation,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute(telemetry.SpanAttrOperation, r.operation),
	)
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		telemetry.RecordError(span, err)
		return nil, networkFailure(r.operation, fmt.Errorf("%w: rate limiter: %v", ErrUnavailable, err))
	}

	var body io.Reader
	if r.payload != nil {
		encoded, err := json.Marshal(r.payload)
		if err != nil {
			return nil, networkFailure(r.operation, fmt.Errorf("commerce: failed to encode request: %w", err))
		}
		body = bytes.NewReader(encoded)
	}

	endpoint := c.config.BaseURL + r.path
	if len(r.query) > 0 {
		endpoint += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, body)
	if err != nil {
		return nil, networkFailure(r.operation, fmt.Errorf("commerce: failed to create request: %w", err))
	}
	req.Header.Set(credentialHeader, cred.Token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		telemetry.RecordError(span, err)
		c.logger.Warn("Commerce request failed",
			zap.String("operation", r.operation),
			zap.String("token_suffix", cred.Masked()),
			zap.Error(err),
		)
		return nil, networkFailure(r.operation, fmt.Errorf("%w: %v", ErrUnavailable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, networkFailure(r.operation, fmt.Errorf("commerce: failed to read response: %w", err))
	}

	elapsed := c.now().Sub(started)
	c.metrics.RecordRemoteCall(ctx, r.operation, resp.StatusCode, elapsed)
	telemetry.SetAttribute(span, telemetry.SpanAttrHTTPStatus, resp.StatusCode)

	fields := []zap.Field{
		zap.String("operation", r.operation),
		zap.Int("status", resp.StatusCode),
		zap.String("token_suffix", cred.Masked()),
		zap.Duration("elapsed", elapsed),
	}
	if c.config.Debug {
		fields = append(fields, zap.ByteString("body", raw))
	}
	c.logger.Debug("Commerce response", fields...)

	return &response{operation: r.operation, status: resp.StatusCode, body: raw}, nil
}

// networkFailure maps a transport problem to a retryable failure
func networkFailure(operation string, cause error) *storefront.Failure {
	return storefront.NewFailure(storefront.ReasonNetworkOrParse, storefront.MsgGenericRetry).
		WithCause(cause).
		WithDiagnostic(&storefront.Diagnostic{Operation: operation, Detail: cause.Error()})
}

// parseFailure reports a body none of the known shapes matched
func parseFailure(resp *response, detail string) *storefront.Failure {
	d := resp.diagnostic()
	d.Detail = detail
	return storefront.NewFailure(storefront.ReasonNetworkOrParse, storefront.MsgGenericRetry).
		WithCause(fmt.Errorf("%w: %s", ErrInvalidResponse, detail)).
		WithDiagnostic(d)
}

// rejection builds the failure for a response that did not carry a usable
// result. fallback is used when the backend gave no message.
func (c *Client) rejection(resp *response, fallback storefront.MessageKey) *storefront.Failure {
	if resp.status == http.StatusUnauthorized {
		msg := backendMessage(resp.body)
		return storefront.NewFailure(storefront.ReasonNotAuthenticated, storefront.MsgNotAuthenticated).
			WithBackendMessage(msg).
			WithCause(fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.status)).
			WithDiagnostic(resp.diagnostic())
	}

	msg := backendMessage(resp.body)
	var f *storefront.Failure
	switch {
	case msg != "":
		f = c.translator.Translate(msg)
	case !isJSON(resp.body):
		return parseFailure(resp, "response body is not JSON")
	case resp.ok():
		return parseFailure(resp, "unrecognized response shape")
	default:
		f = storefront.NewFailure(storefront.ReasonBackendRejected, fallback)
	}
	return f.WithCause(fmt.Errorf("%w: HTTP %d", ErrRequestFailed, resp.status)).
		WithDiagnostic(resp.diagnostic())
}

// isJSON reports whether body is a JSON document. An empty body counts,
// since some endpoints answer errors with no content.
func isJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) == 0 || json.Valid(trimmed)
}

// backendMessage extracts the backend's free-text message from the usual
// message fields, falling back to errors.msg
func backendMessage(body []byte) string {
	root, ok := decodeObject(body)
	if !ok {
		return ""
	}
	for _, key := range []string{"message", "error", "statusMsg"} {
		if s, ok := stringField(root, key); ok && s != "" && !isStatusWord(s) {
			return s
		}
	}
	if raw, ok := root["errors"]; ok {
		var nested struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &nested) == nil && nested.Msg != "" {
			return nested.Msg
		}
	}
	return ""
}

// isStatusWord filters envelope status markers that are not messages
func isStatusWord(s string) bool {
	switch strings.ToLower(s) {
	case "success", "fail", "error":
		return true
	}
	return false
}

var (
	_ storefront.CartGateway        = (*Client)(nil)
	_ storefront.OrderGateway       = (*Client)(nil)
	_ storefront.AddressGateway     = (*Client)(nil)
	_ storefront.CatalogGateway     = (*Client)(nil)
	_ storefront.WishlistGateway    = (*Client)(nil)
	_ storefront.DiagnosticsGateway = (*Client)(nil)
)

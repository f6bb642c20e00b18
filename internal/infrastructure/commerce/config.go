package commerce

import (
	"errors"
	"fmt"
	"net/url"
)

// DefaultBaseURL is the public commerce API the storefront talks to
const DefaultBaseURL = "https://ecommerce.routemisr.com/api/v1"

const (
	defaultTimeoutSeconds   = 30
	defaultMaxResponseBytes = 10 * 1024 * 1024
	defaultUserAgent        = "storefront-backend/1.0"
)

// Errors for commerce configuration
var (
	ErrConfigMissingBaseURL = errors.New("commerce: base url is required")
	ErrConfigInvalidBaseURL = errors.New("commerce: base url must be an absolute http(s) url")
	ErrConfigInvalidRate    = errors.New("commerce: rate limit must not be negative")
)

// Config holds configuration for the commerce backend client
type Config struct {
	// BaseURL is the API root, without a trailing slash
	BaseURL string
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
	// RateLimitPerSecond caps outbound requests; zero disables limiting
	RateLimitPerSecond float64
	// RateLimitBurst is the limiter bucket size
	RateLimitBurst int
	// MaxResponseBytes bounds how much of a response body is read
	MaxResponseBytes int64
	// UserAgent is sent with every request
	UserAgent string
	// Debug logs raw response bodies
	Debug bool
}

// NewConfig creates a commerce configuration with defaults
func NewConfig(baseURL string) *Config {
	return &Config{
		BaseURL:          baseURL,
		TimeoutSeconds:   defaultTimeoutSeconds,
		MaxResponseBytes: defaultMaxResponseBytes,
		UserAgent:        defaultUserAgent,
	}
}

// Validate validates the configuration and fills in defaults
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrConfigInvalidBaseURL, c.BaseURL)
	}
	for len(c.BaseURL) > 0 && c.BaseURL[len(c.BaseURL)-1] == '/' {
		c.BaseURL = c.BaseURL[:len(c.BaseURL)-1]
	}
	if c.RateLimitPerSecond < 0 {
		return ErrConfigInvalidRate
	}
	if c.RateLimitPerSecond > 0 && c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = defaultMaxResponseBytes
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return nil
}

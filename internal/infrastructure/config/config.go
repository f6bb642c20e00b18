package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Commerce   CommerceConfig
	Checkout   CheckoutConfig
	Redis      RedisConfig
	OrderCache OrderCacheConfig
	Log        LogConfig
	HTTP       HTTPConfig
	Telemetry  TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool // exposes raw backend diagnostics and the debug endpoints
}

// IsProduction reports whether the app runs in production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

// CommerceConfig holds the remote commerce backend settings
type CommerceConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimitRPS     float64 // zero disables outbound limiting
	RateLimitBurst   int
	MaxResponseBytes int64
	UserAgent        string
}

// CheckoutConfig holds checkout orchestration settings
type CheckoutConfig struct {
	ReturnURL       string        // absolute URL of the order-confirmation view
	AllowSampleCart bool          // enables the fabricated sample-cart recovery
	SubmissionTTL   time.Duration // how long a submission claim blocks a second submit
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// OrderCacheConfig holds order list cache settings
type OrderCacheConfig struct {
	TTL time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration // zero would cut SSE streams, so streams clear it per request
	IdleTimeout         time.Duration
	ShutdownTimeout     time.Duration
	MaxHeaderBytes      int
	MaxBodySize         int64
	CORSAllowOrigins    []string
	CORSAllowMethods    []string
	CORSAllowHeaders    []string
	TrustedProxies      []string
	SSEHeartbeat        time.Duration
	SSEMaxClients       int
	DefaultLanguage     string
	SessionIdleLifetime time.Duration
	RequestTimeout      time.Duration // bounds backend work per request; streams are exempt
	RateLimitRPS        float64       // per-client inbound limit, zero disables it
	RateLimitBurst      int
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsInterval   time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOREFRONT_ prefix (e.g., STOREFRONT_COMMERCE_BASE_URL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name:  v.GetString("app.name"),
			Env:   v.GetString("app.env"),
			Port:  v.GetString("app.port"),
			Debug: v.GetBool("app.debug"),
		},
		Commerce: CommerceConfig{
			BaseURL:          v.GetString("commerce.base_url"),
			Timeout:          v.GetDuration("commerce.timeout"),
			RateLimitRPS:     v.GetFloat64("commerce.rate_limit_rps"),
			RateLimitBurst:   v.GetInt("commerce.rate_limit_burst"),
			MaxResponseBytes: v.GetInt64("commerce.max_response_bytes"),
			UserAgent:        v.GetString("commerce.user_agent"),
		},
		Checkout: CheckoutConfig{
			ReturnURL:       v.GetString("checkout.return_url"),
			AllowSampleCart: v.GetBool("checkout.allow_sample_cart"),
			SubmissionTTL:   v.GetDuration("checkout.submission_ttl"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		OrderCache: OrderCacheConfig{
			TTL: v.GetDuration("order_cache.ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:         v.GetDuration("http.read_timeout"),
			WriteTimeout:        v.GetDuration("http.write_timeout"),
			IdleTimeout:         v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:     v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:      v.GetInt("http.max_header_bytes"),
			MaxBodySize:         v.GetInt64("http.max_body_size"),
			CORSAllowOrigins:    v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:    v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:    v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:      v.GetStringSlice("http.trusted_proxies"),
			SSEHeartbeat:        v.GetDuration("http.sse_heartbeat"),
			SSEMaxClients:       v.GetInt("http.sse_max_clients"),
			DefaultLanguage:     v.GetString("http.default_language"),
			SessionIdleLifetime: v.GetDuration("http.session_idle_lifetime"),
			RequestTimeout:      v.GetDuration("http.request_timeout"),
			RateLimitRPS:        v.GetFloat64("http.rate_limit_rps"),
			RateLimitBurst:      v.GetInt("http.rate_limit_burst"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
		},
	}

	applyDefaults(cfg)
	// The sample cart is a diagnostic affordance: on unless configured,
	// except in production.
	if !v.IsSet("checkout.allow_sample_cart") {
		cfg.Checkout.AllowSampleCart = !cfg.App.IsProduction()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "storefront-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Commerce.BaseURL == "" {
		cfg.Commerce.BaseURL = "https://ecommerce.routemisr.com/api/v1"
	}
	if cfg.Commerce.Timeout == 0 {
		cfg.Commerce.Timeout = 30 * time.Second
	}
	if cfg.Commerce.RateLimitRPS > 0 && cfg.Commerce.RateLimitBurst == 0 {
		cfg.Commerce.RateLimitBurst = int(cfg.Commerce.RateLimitRPS) + 1
	}
	if cfg.Commerce.MaxResponseBytes == 0 {
		cfg.Commerce.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.Commerce.UserAgent == "" {
		cfg.Commerce.UserAgent = "storefront-backend/1.0"
	}
	if cfg.Checkout.ReturnURL == "" {
		cfg.Checkout.ReturnURL = "http://localhost:3000/allorders"
	}
	if cfg.Checkout.SubmissionTTL == 0 {
		cfg.Checkout.SubmissionTTL = 2 * time.Minute
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.OrderCache.TTL == 0 {
		cfg.OrderCache.TTL = time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		// Order creation waits on two backend calls
		cfg.HTTP.WriteTimeout = 75 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	// NOTE: CORS origins get no "*" fallback. An empty list allows no
	// cross-origin requests until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "Token", "X-Request-ID", "X-User-ID", "Accept-Language"}
	}
	if cfg.HTTP.SSEHeartbeat == 0 {
		cfg.HTTP.SSEHeartbeat = 30 * time.Second
	}
	if cfg.HTTP.SSEMaxClients == 0 {
		cfg.HTTP.SSEMaxClients = 1000
	}
	if cfg.HTTP.DefaultLanguage == "" {
		cfg.HTTP.DefaultLanguage = "en"
	}
	if cfg.HTTP.SessionIdleLifetime == 0 {
		cfg.HTTP.SessionIdleLifetime = 2 * time.Hour
	}
	if cfg.HTTP.RequestTimeout == 0 {
		cfg.HTTP.RequestTimeout = 70 * time.Second
	}
	if cfg.HTTP.RateLimitRPS > 0 && cfg.HTTP.RateLimitBurst == 0 {
		cfg.HTTP.RateLimitBurst = int(cfg.HTTP.RateLimitRPS) * 2
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "storefront-backend"
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 30 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	base, err := url.Parse(c.Commerce.BaseURL)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return fmt.Errorf("commerce.base_url must be an absolute http(s) URL, got %q", c.Commerce.BaseURL)
	}
	ret, err := url.Parse(c.Checkout.ReturnURL)
	if err != nil || !ret.IsAbs() || ret.Host == "" {
		return fmt.Errorf("checkout.return_url must be an absolute URL, got %q", c.Checkout.ReturnURL)
	}
	if c.Commerce.RateLimitRPS < 0 {
		return fmt.Errorf("commerce.rate_limit_rps cannot be negative")
	}
	if c.Checkout.SubmissionTTL < 0 {
		return fmt.Errorf("checkout.submission_ttl cannot be negative")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps cannot be negative")
	}
	if c.HTTP.SSEMaxClients < 0 {
		return fmt.Errorf("http.sse_max_clients cannot be negative")
	}

	if c.App.IsProduction() {
		if base.Scheme != "https" {
			return fmt.Errorf("commerce.base_url must use https in production")
		}
		if c.Checkout.AllowSampleCart {
			return fmt.Errorf("checkout.allow_sample_cart must be false in production")
		}
		if c.App.Debug {
			return fmt.Errorf("app.debug must be false in production, diagnostics would expose raw backend responses")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

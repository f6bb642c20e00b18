package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/application/address"
	"github.com/storefront/backend/internal/application/cart"
	"github.com/storefront/backend/internal/application/checkout"
	"github.com/storefront/backend/internal/application/order"
	"github.com/storefront/backend/internal/application/session"
	"github.com/storefront/backend/internal/infrastructure/cache"
	"github.com/storefront/backend/internal/infrastructure/commerce"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/event"
	"github.com/storefront/backend/internal/infrastructure/i18n"
	"github.com/storefront/backend/internal/infrastructure/logger"
	"github.com/storefront/backend/internal/infrastructure/telemetry"
	"github.com/storefront/backend/internal/interfaces/http/handler"
	"github.com/storefront/backend/internal/interfaces/http/middleware"
	"github.com/storefront/backend/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("commerce", cfg.Commerce.BaseURL),
	)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry
	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		ExportInterval: cfg.Telemetry.MetricsInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	metrics, err := telemetry.NewCheckoutMetrics(telemetry.CheckoutMetricsConfig{
		Meter:  tel.Meter(cfg.Telemetry.ServiceName),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize checkout metrics", zap.Error(err))
	}

	// Commerce backend client
	commerceCfg := commerce.NewConfig(cfg.Commerce.BaseURL)
	commerceCfg.TimeoutSeconds = int(cfg.Commerce.Timeout / time.Second)
	commerceCfg.RateLimitPerSecond = cfg.Commerce.RateLimitRPS
	commerceCfg.RateLimitBurst = cfg.Commerce.RateLimitBurst
	commerceCfg.MaxResponseBytes = cfg.Commerce.MaxResponseBytes
	commerceCfg.UserAgent = cfg.Commerce.UserAgent
	commerceCfg.Debug = cfg.App.Debug
	gateway, err := commerce.NewClient(commerceCfg,
		commerce.WithLogger(log),
		commerce.WithMetrics(metrics),
		commerce.WithTranslator(commerce.NewTranslator(commerce.DefaultRules()...)),
	)
	if err != nil {
		log.Fatal("Failed to create commerce client", zap.Error(err))
	}

	// Submission guard and order cache
	stores := cache.NewFactory(cfg.Redis, cfg.OrderCache.TTL,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err := stores.Connect(ctx); err != nil {
		log.Fatal("Failed to connect stores", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			log.Error("Error closing stores", zap.Error(err))
		}
	}()

	localizer, err := i18n.NewLocalizer(cfg.HTTP.DefaultLanguage)
	if err != nil {
		log.Fatal("Failed to load translations", zap.Error(err))
	}

	// Event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Application services
	carts := cart.NewService(gateway, cart.NewStore(), eventBus,
		cart.WithLogger(log),
		cart.WithMetrics(metrics),
	)
	book := address.NewBook(gateway, log)
	history := order.NewHistory(gateway, stores.OrderCache(), log)
	history.Subscribe(eventBus)
	defer history.Close()

	orchestrator := checkout.NewOrchestrator(checkout.Deps{
		Carts:     carts,
		Addresses: book,
		Orders:    gateway,
		Catalog:   gateway,
		Publisher: eventBus,
	}, checkout.Config{
		ReturnURL:       cfg.Checkout.ReturnURL,
		AllowSampleCart: cfg.Checkout.AllowSampleCart,
		SubmissionTTL:   cfg.Checkout.SubmissionTTL,
	},
		checkout.WithLogger(log),
		checkout.WithMetrics(metrics),
		checkout.WithSubmissionGuard(stores.SubmissionGuard()),
	)

	// Handlers
	base := []handler.Option{handler.WithDebug(cfg.App.Debug)}
	stream := handler.NewCartStreamHandler(carts, eventBus,
		handler.WithSSELogger(log),
		handler.WithSSEHeartbeat(cfg.HTTP.SSEHeartbeat),
		handler.WithSSEMaxClients(cfg.HTTP.SSEMaxClients),
		handler.WithSSEMetrics(metrics),
		handler.WithSSEBase(base...),
	)
	if err := stream.Start(); err != nil {
		log.Fatal("Failed to start cart stream", zap.Error(err))
	}

	// Sessions own every per-session cache; dropping one clears them all
	registry := session.NewRegistry(cfg.HTTP.SessionIdleLifetime, log)
	registry.OnDrop(carts.Discard)
	registry.OnDrop(book.Discard)
	registry.OnDrop(history.Discard)
	registry.OnDrop(orchestrator.Discard)
	registry.OnDrop(stream.Disconnect)
	go registry.Run(ctx, time.Minute)

	system := handler.NewSystemHandler(cfg.App.Name, version, handler.HealthCheck{
		Name:  "redis",
		Check: stores.Ping,
	}).WithSessionCount(registry.Len)

	handlers := router.Handlers{
		System:   system,
		Cart:     handler.NewCartHandler(carts, base...),
		Stream:   stream,
		Checkout: handler.NewCheckoutHandler(orchestrator, base...),
		Address:  handler.NewAddressHandler(book, base...),
		Order:    handler.NewOrderHandler(history, base...),
		Wishlist: handler.NewWishlistHandler(gateway, base...),
		Session:  handler.NewSessionHandler(registry, base...),
	}
	if cfg.App.Debug {
		handlers.Debug = handler.NewDebugHandler(gateway)
		log.Warn("Debug endpoints enabled")
	}

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Engine-wide middleware, outermost first
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log, logger.WithSkipPaths("/health")))
	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.App.IsProduction()
	engine.Use(middleware.SecureWithConfig(security))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Content-Language"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
		SkipPaths:   []string{"/health"},
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		Telemetry: tel,
		LongLived: []string{"/api/v1/cart/stream"},
	}))
	engine.Use(middleware.Language(localizer))

	// API-wide middleware
	apiMiddleware := []gin.HandlerFunc{
		middleware.Session(registry),
		middleware.TracingAttributeInjector(),
	}
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, 10*time.Minute)
		go limiter.Run(ctx, time.Minute)
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst),
		)
	}
	apiMiddleware = append(apiMiddleware, middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	r := router.NewRouter(engine,
		router.WithAPIVersion("v1"),
		router.WithMiddleware(apiMiddleware...),
	)
	groups := router.Storefront(handlers, router.Middleware{
		Shopper: []gin.HandlerFunc{middleware.RequireSession()},
		Request: []gin.HandlerFunc{middleware.Timeout(cfg.HTTP.RequestTimeout)},
	})
	for _, g := range groups {
		r.Register(g)
		log.Debug("Registered routes",
			zap.String("group", g.Name()),
			zap.String("base", r.BasePath()),
			zap.Strings("routes", g.Routes()),
		)
	}
	r.Setup()

	engine.GET("/health", system.Health)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// Streams hold their connections open, so they close before the server drains
	stream.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()

	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	_ = tel.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

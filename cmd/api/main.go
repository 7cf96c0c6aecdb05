package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	limiterstdlib "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/rasoiyaa/backend-store/internal/analytics"
	"github.com/rasoiyaa/backend-store/internal/auth"
	"github.com/rasoiyaa/backend-store/internal/cart"
	"github.com/rasoiyaa/backend-store/internal/catalog"
	"github.com/rasoiyaa/backend-store/internal/checkout"
	"github.com/rasoiyaa/backend-store/internal/common"
	"github.com/rasoiyaa/backend-store/internal/config"
	"github.com/rasoiyaa/backend-store/internal/health"
	"github.com/rasoiyaa/backend-store/internal/notify"
	"github.com/rasoiyaa/backend-store/internal/obs"
	"github.com/rasoiyaa/backend-store/internal/order"
	"github.com/rasoiyaa/backend-store/internal/pricing"
	"github.com/rasoiyaa/backend-store/internal/ratelimit"
	"github.com/rasoiyaa/backend-store/internal/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "rasoiyaa")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "rasoiyaa-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if envBool("AUTO_MIGRATE", true) {
		if err := order.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("run migrations")
		}
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "rasoiyaa-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url for task queue")
	}
	taskClient := asynq.NewClient(asynqOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	enqueuer := &notify.Enqueuer{Client: taskClient, Logger: logger}

	catalogStore, err := catalog.NewStore()
	if err != nil {
		logger.Fatal().Err(err).Msg("load catalog")
	}
	catalogHandler := &catalog.Handler{
		Store: catalogStore,
		Cache: catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
	}

	engine := cfg.PricingEngine(catalogStore)

	cartSvc := &cart.Service{
		R:       redisClient,
		Catalog: catalogStore,
		Engine:  engine,
		TTL:     cfg.CartTTL,
	}
	cartHandler := &cart.Handler{Svc: cartSvc}

	orders := order.NewPgStore(pool)

	checkoutSvc := &checkout.Service{
		Carts:    cartSvc,
		Orders:   orders,
		Catalog:  catalogStore,
		Engine:   engine,
		Validate: validator.New(),
		Mail:     enqueuer,
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	orderHandler := &order.Handler{Store: orders}
	orderAdmin := &order.AdminHandler{Store: orders}

	authSvc := &auth.Service{
		R:             redisClient,
		Limiter:       ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Mail:          enqueuer,
		Secret:        []byte(cfg.JWTSecret),
		OTPTTL:        cfg.OTPTTL,
		AccessTTL:     cfg.AccessTokenTTL,
		RequestLimit:  cfg.OTPRequestLimit,
		RequestWindow: cfg.OTPRequestWindow,
		IsAdmin:       cfg.IsAdmin,
	}
	authHandler := &auth.Handler{Svc: authSvc}
	authMiddleware := auth.Middleware{Service: authSvc}

	analyticsSvc := &analytics.Service{Orders: orders, R: redisClient, TTL: cfg.AnalyticsCacheTTL}
	analyticsHandler := &analytics.Handler{Svc: analyticsSvc, Coupons: pricing.NewCouponTable(cfg.Coupons)}

	idem := common.Idem{R: redisClient, TTL: cfg.IdempotencyTTL}

	otpLimit := ratelimit.Handler{
		Limiter: ratelimit.Limiter{Client: redisClient, Prefix: "rl:"},
		Config: ratelimit.Config{
			Key:    func(r *http.Request) string { return "otp-ip:" + clientIP(r) },
			Window: cfg.OTPRequestWindow,
			Max:    envInt("OTP_IP_LIMIT", 10),
		},
		OnError: func(err error) { logger.Error().Err(err).Msg("otp rate limit") },
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		Enable:     envBool("SECURE_HEADERS", true),
		EnableHSTS: envBool("SECURE_HSTS", false),
	}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if rate, err := limiter.NewRateFromFormatted(cfg.GlobalRateLimit); err == nil {
		store, err := limiterredis.NewStoreWithOptions(redisClient, limiter.StoreOptions{Prefix: "grl"})
		if err != nil {
			logger.Fatal().Err(err).Msg("initialise global rate limiter")
		}
		r.Use(limiterstdlib.NewMiddleware(limiter.New(store, rate)).Handler)
	} else {
		logger.Error().Err(err).Str("limit", cfg.GlobalRateLimit).Msg("parse global rate limit")
	}

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		r.Mount("/debug", middleware.Profiler())
	}

	healthHandler := health.Handler{
		Checker:      health.Probes{Pool: pool, Redis: redisClient},
		DBTimeout:    envDurationMillis("HEALTH_READY_DB_TIMEOUT_MS", 500),
		RedisTimeout: envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Get("/products/{id}/related", catalogHandler.Related)
		v.Get("/categories", catalogHandler.Categories)

		v.Route("/auth", func(a chi.Router) {
			a.With(otpLimit.Middleware).Post("/send-otp", authHandler.SendOTP)
			a.Post("/verify-otp", authHandler.VerifyOTP)
			a.Post("/logout", authHandler.Logout)
			a.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		v.Route("/carts", func(c chi.Router) {
			c.Get("/{id}", cartHandler.Get)
			c.Post("/{id}/quote", cartHandler.Quote)
			c.Group(func(g chi.Router) {
				g.Use(idem.Middleware)
				g.Post("/", cartHandler.Create)
				g.Post("/{id}/items", cartHandler.AddItem)
				g.Patch("/{id}/items/{productId}", cartHandler.UpdateItem)
				g.Delete("/{id}/items/{productId}", cartHandler.RemoveItem)
				g.Post("/{id}/apply-coupon", cartHandler.ApplyCoupon)
				g.Delete("/{id}/coupon", cartHandler.RemoveCoupon)
				g.With(authMiddleware.RequireAuth).Post("/merge", cartHandler.Merge)
			})
		})

		// Guests may check out; Authenticate attaches the contact when a
		// token is present without requiring one.
		v.With(idem.Middleware, authMiddleware.Authenticate).Post("/checkout", checkoutHandler.Place)

		v.Group(func(o chi.Router) {
			o.Use(authMiddleware.RequireAuth)
			o.Get("/orders", orderHandler.List)
			o.Get("/orders/{id}", orderHandler.Get)
			o.Get("/orders/{id}/track", orderHandler.Track)
			o.Post("/orders/{id}/cancel", orderHandler.Cancel)
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAuth)
			admin.Use(authMiddleware.RequireAdmin)
			admin.Get("/analytics/dashboard", analyticsHandler.Dashboard)
			admin.Post("/analytics/coupon-preview", analyticsHandler.CouponPreview)
			admin.Patch("/orders/{id}/status", orderAdmin.PatchStatus)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		errCh <- srv.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received")
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("graceful shutdown")
		}
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

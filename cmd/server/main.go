package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/auth247/pin-server-go/internal/clock"
	"github.com/auth247/pin-server-go/internal/config"
	"github.com/auth247/pin-server-go/internal/database"
	"github.com/auth247/pin-server-go/internal/handler"
	"github.com/auth247/pin-server-go/internal/jobs"
	"github.com/auth247/pin-server-go/internal/mail"
	"github.com/auth247/pin-server-go/internal/middleware"
	"github.com/auth247/pin-server-go/internal/redis"
	"github.com/auth247/pin-server-go/internal/repository"
	"github.com/auth247/pin-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if cfg.LogFormat == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	setLogLevel(cfg.LogLevel)

	if err := cfg.Validate(cfg.IsProduction()); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	clk := clock.New()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		pingCtx, cancel := context.WithTimeout(ctx, config.PingTimeout)
		redisClient, err = redis.NewClient(pingCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("redis connected")
	}

	var pinStore repository.PinRepository
	switch cfg.PinStore {
	case config.StoreRedis:
		pinStore = repository.NewRedisPinRepository(redisClient.Client, clk, config.PinExpiredRetention)
	default:
		pinStore = repository.NewMemoryPinRepository()
	}

	var issueLimiter, validateLimiter service.Limiter
	switch cfg.RateLimitStore {
	case config.StoreRedis:
		redisLimiter := service.NewRateLimiter(redisClient.Client, clk)
		issueLimiter, validateLimiter = redisLimiter, redisLimiter
	default:
		limiters := service.NewMemoryLimiters(
			config.RateLimitMaxKeys, cfg.PinIssueWindow(), config.ValidateIPWindow, clk,
		)
		issueLimiter, validateLimiter = limiters.Issue, limiters.Validate
	}

	mailer, err := newMailer(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.MailDriver).Msg("failed to create mailer")
	}
	defer mailer.Close()

	templates, err := mail.NewTemplates()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse email templates")
	}

	userRepo := repository.NewUserRepository(db.DB)
	pinSender := mail.NewPinSender(mailer, templates, cfg.PinTTL())

	pinService := service.NewPinService(pinStore, userRepo, pinSender, issueLimiter, clk, service.PinOptions{
		CodeLength:      cfg.PinCodeLength,
		TTL:             cfg.PinTTL(),
		MaxAttempts:     cfg.PinMaxAttempts,
		IssueLimit:      cfg.PinIssueLimit,
		IssueWindow:     cfg.PinIssueWindow(),
		DeliveryTimeout: cfg.DeliveryTimeout(),
		HashSecret:      cfg.PinHashSecret,
	})

	requestValidator, err := handler.NewRequestValidator()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create request validator")
	}

	adminMiddleware := middleware.NewAdminAuthMiddleware(cfg.AdminAPIKeyHash)
	validateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		validateLimiter, clk, cfg.ValidateIPLimit, config.ValidateIPWindow, "validate",
	)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(cfg.IsProduction())

	pinHandler := handler.NewPinHandler(pinService, requestValidator)

	healthDeps := map[string]handler.Pinger{"database": db}
	if redisClient != nil {
		healthDeps["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler := handler.NewHealthHandler(clk, healthDeps)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(securityHeadersMiddleware.Handler)
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route("/auth/otp", func(r chi.Router) {
		r.Mount("/", pinHandler.Routes(validateLimitMiddleware.Handler, adminMiddleware.Handler))
	})

	cleanupJob := jobs.NewCleanupJob(pinService, config.CleanupJobInterval)
	if err := cleanupJob.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start cleanup job")
	}
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("pin_store", cfg.PinStore).
			Str("rate_limit_store", cfg.RateLimitStore).
			Str("mail_driver", cfg.MailDriver).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func newMailer(cfg *config.Config) (mail.Mailer, error) {
	switch cfg.MailDriver {
	case config.MailDriverSMTP:
		return mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	case config.MailDriverAMQP:
		return mail.NewAMQPMailer(mail.AMQPConfig{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.MailAMQPExchange,
			RoutingKey: cfg.MailAMQPRoutingKey,
			From:       cfg.MailFrom,
		})
	default:
		log.Warn().Msg("MAIL_DRIVER=console: PIN emails are written to the log")
		return mail.NewConsoleMailer(), nil
	}
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

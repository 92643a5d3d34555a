package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/carevault/access-server-go/internal/audit"
	"github.com/carevault/access-server-go/internal/codec"
	"github.com/carevault/access-server-go/internal/config"
	"github.com/carevault/access-server-go/internal/database"
	"github.com/carevault/access-server-go/internal/handler"
	"github.com/carevault/access-server-go/internal/idle"
	"github.com/carevault/access-server-go/internal/jobs"
	"github.com/carevault/access-server-go/internal/middleware"
	"github.com/carevault/access-server-go/internal/model"
	"github.com/carevault/access-server-go/internal/redis"
	"github.com/carevault/access-server-go/internal/repository"
	"github.com/carevault/access-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("ENVIRONMENT") == "production"
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	tokenRepo := repository.NewAccessTokenRepository(db.DB)
	sessionRepo := repository.NewDoctorSessionRepository(db.DB)
	logRepo := repository.NewAccessLogRepository(db.DB)

	auditWriter := audit.NewWriter(logRepo)
	tokenCodec := codec.New(cfg.TokenSecret)
	rateLimiter := service.NewRateLimiter(redisClient.Client)

	tokenService := service.NewTokenService(db, tokenRepo, tokenCodec, auditWriter, cfg.TokenTTL())
	validator := service.NewValidator(tokenRepo, tokenCodec, auditWriter)
	sessionManager := service.NewSessionManager(
		db, sessionRepo, auditWriter, cfg.SessionTTL(), cfg.SessionLimit, cfg.IdleTimeout(),
	)
	defer sessionManager.Close()
	emergencyService := service.NewEmergencyService(tokenRepo, auditWriter, cfg.EmergencyTTL())

	autoLogout := idle.NewRegistry(
		idle.Config{
			Timeout:  cfg.AutoLogoutTimeout(),
			Warning:  cfg.AutoLogoutWarning(),
			Throttle: config.ActivityTouchThrottle,
		},
		func(patientID string) {
			log.Info().Str("patientId", patientID).Msg("inactivity warning")
		},
		func(patientID string) {
			auditWriter.Record(context.Background(), audit.Entry{
				Action:    audit.ActionAutoLogout,
				PatientID: patientID,
				Origin:    model.OriginSystem,
				Details: map[string]any{
					"timeoutMinutes": cfg.AutoLogoutMinutes,
					"reason":         "inactivity_timeout",
				},
			})
		},
	)
	defer autoLogout.Close()

	identityMiddleware := middleware.NewIdentityMiddleware(cfg.IdentityJWTSecret)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client)
	activityMiddleware := middleware.NewActivityMiddleware(autoLogout)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware(isProduction)

	tokenHandler := handler.NewTokenHandler(tokenService, cfg.PublicBaseURL)
	accessHandler := handler.NewAccessHandler(validator, sessionManager, logRepo, auditWriter)
	emergencyHandler := handler.NewEmergencyHandler(emergencyService, rateLimiter)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)
	r.Use(securityHeadersMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(identityMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)
		r.Use(activityMiddleware.Handler)
		r.Mount("/tokens", tokenHandler.Routes())
		r.Mount("/access", accessHandler.Routes())
	})

	r.Route("/public/emergency", func(r chi.Router) {
		r.Mount("/", emergencyHandler.Routes())
	})

	sweepJob := jobs.NewSweepJob(tokenRepo, sessionRepo, sessionManager, config.SweepInterval)
	sweepJob.Start()
	defer sweepJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
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

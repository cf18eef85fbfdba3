package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/config"
	"github.com/SebasRodMag/clinica-api/internal/email"
	appointmentHandler "github.com/SebasRodMag/clinica-api/internal/handler/appointment"
	auditHandler "github.com/SebasRodMag/clinica-api/internal/handler/audit"
	authHandler "github.com/SebasRodMag/clinica-api/internal/handler/auth"
	healthHandler "github.com/SebasRodMag/clinica-api/internal/handler/health"
	settingsHandler "github.com/SebasRodMag/clinica-api/internal/handler/settings"
	"github.com/SebasRodMag/clinica-api/internal/middleware"
	redisclient "github.com/SebasRodMag/clinica-api/internal/redis"
	"github.com/SebasRodMag/clinica-api/internal/repository/postgres"
	"github.com/SebasRodMag/clinica-api/internal/router"
	auditService "github.com/SebasRodMag/clinica-api/internal/service/audit"
	authService "github.com/SebasRodMag/clinica-api/internal/service/auth"
	notificationService "github.com/SebasRodMag/clinica-api/internal/service/notification"
	scheduleService "github.com/SebasRodMag/clinica-api/internal/service/schedule"
	settingsService "github.com/SebasRodMag/clinica-api/internal/service/settings"
	pkgauth "github.com/SebasRodMag/clinica-api/pkg/auth"
	"github.com/SebasRodMag/clinica-api/pkg/logger"
	messagingredis "github.com/SebasRodMag/clinica-api/pkg/messaging/redis"
	"github.com/SebasRodMag/clinica-api/pkg/metrics"
	"github.com/SebasRodMag/clinica-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redisclient.NewClient(context.Background(), cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Repositories
	base := postgres.NewBaseRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(base)
	specialistRepo := postgres.NewSpecialistRepository(base)
	patientRepo := postgres.NewPatientRepository(base)
	userRepo := postgres.NewUserRepository(base)
	settingRepo := postgres.NewSettingRepository(base)
	auditRepo := postgres.NewAuditRepository(base)

	// Infrastructure
	appLogger := logger.NewLogger(nil)
	slotLocker := redisclient.NewSlotLocker(redisClient, cfg.Redis.LockTTL)
	brokerLogger := appLogger.WithFields(map[string]interface{}{"component": "broker"})
	broker := messagingredis.NewRedisBroker(redisClient, brokerLogger.Zerolog())
	emailSvc := email.NewSMTPService(cfg.SMTP)
	appMetrics := metrics.NewMetrics("clinica", "schedule")
	jwtManager := pkgauth.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	hasher := security.NewBcryptHasher(security.DefaultBcryptCost)

	// Services
	auditSvc := auditService.NewService(auditRepo)
	settingsSvc := settingsService.NewService(settingRepo, cfg.Schedule.SettingsCacheTTL)
	notifierSvc := notificationService.NewService(emailSvc, broker)
	scheduleSvc := scheduleService.NewService(
		appointmentRepo,
		specialistRepo,
		patientRepo,
		userRepo,
		settingsSvc,
		slotLocker,
		notifierSvc,
		auditSvc,
		appMetrics,
	)
	authSvc := authService.NewService(userRepo, patientRepo, specialistRepo, jwtManager, hasher)

	// HTTP layer
	authMiddleware := middleware.NewAuthMiddleware(authSvc)
	r := router.NewRouter(
		authMiddleware,
		authHandler.NewHandler(authSvc),
		appointmentHandler.NewHandler(scheduleSvc),
		settingsHandler.NewHandler(settingsSvc),
		auditHandler.NewHandler(auditSvc),
		healthHandler.NewHandler(db),
		router.RouterConfig{
			RateLimit:     100,
			RateBurst:     200,
			Timeout:       time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "clinica_http",
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/SebasRodMag/clinica-api/internal/config"
	"github.com/SebasRodMag/clinica-api/internal/repository/postgres"
	"github.com/SebasRodMag/clinica-api/internal/worker"
)

// workerConfig is environment-driven: the worker runs as a sidecar job and
// carries no config file.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RetentionDays   int           `envconfig:"AUDIT_RETENTION_DAYS" default:"365"`
	CleanupInterval time.Duration `envconfig:"AUDIT_CLEANUP_INTERVAL" default:"24h"`
	HealthPort      string        `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	auditRepo := postgres.NewAuditRepository(postgres.NewBaseRepository(db))
	cleanup := worker.NewAuditCleanupWorker(auditRepo, cfg.RetentionDays, cfg.CleanupInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cleanup.Start(ctx)
	go serveHealth(cfg.HealthPort)

	log.Info().
		Int("retention_days", cfg.RetentionDays).
		Dur("interval", cfg.CleanupInterval).
		Msg("audit cleanup worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()
}

func serveHealth(port string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Error().Err(err).Msg("health server failed")
		os.Exit(1)
	}
}

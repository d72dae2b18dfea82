package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/kelseyhightower/envconfig"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/eventpool/lottery-api/internal/repository/postgres"
	"github.com/eventpool/lottery-api/pkg/logger"
	"github.com/eventpool/lottery-api/pkg/messaging/redis"
	"github.com/eventpool/lottery-api/pkg/metrics"
	"github.com/eventpool/lottery-api/pkg/worker"
)

// workerConfig is read from the environment; the worker runs in containers
// where a config file is not practical.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL          string        `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`
	RedisMaxRetries   int           `envconfig:"REDIS_MAX_RETRIES" default:"3"`
	RedisRetryBackoff time.Duration `envconfig:"REDIS_RETRY_BACKOFF" default:"100ms"`
	RedisPoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10"`
	RedisMinIdleConns int           `envconfig:"REDIS_MIN_IDLE_CONNS" default:"2"`

	BatchSize       int           `envconfig:"OUTBOX_BATCH_SIZE" default:"100"`
	PollInterval    time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"1s"`
	RetryAttempts   int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	RetryDelay      time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"500ms"`
	RetentionPeriod time.Duration `envconfig:"OUTBOX_RETENTION_PERIOD" default:"24h"`

	HealthPort int `envconfig:"HEALTH_PORT" default:"8081"`
}

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker configuration")
	}

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.RedisURL,
		MaxRetries:   cfg.RedisMaxRetries,
		RetryBackoff: cfg.RedisRetryBackoff,
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Redis broker")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(
		postgres.NewOutboxRepository(db),
		broker,
		worker.OutboxProcessorConfig{
			BatchSize:       cfg.BatchSize,
			PollInterval:    cfg.PollInterval,
			RetryAttempts:   cfg.RetryAttempts,
			RetryDelay:      cfg.RetryDelay,
			RetentionPeriod: cfg.RetentionPeriod,
		},
		logger.NewLogger(nil),
		metrics.NewMetrics("lottery", "worker"),
	)

	startHealthServer(cfg.HealthPort, db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down worker")
		cancel()
	}()

	processor.Start(ctx)
}

func startHealthServer(port int, db *sqlx.DB) {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
			log.Error().Err(err).Msg("health server failed")
			os.Exit(1)
		}
	}()
}

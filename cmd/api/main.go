package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	"github.com/eventpool/lottery-api/config"
	"github.com/eventpool/lottery-api/internal/email"
	auditHandler "github.com/eventpool/lottery-api/internal/handler/audit"
	authHandler "github.com/eventpool/lottery-api/internal/handler/auth"
	eventHandler "github.com/eventpool/lottery-api/internal/handler/event"
	healthHandler "github.com/eventpool/lottery-api/internal/handler/health"
	lotteryHandler "github.com/eventpool/lottery-api/internal/handler/lottery"
	notificationHandler "github.com/eventpool/lottery-api/internal/handler/notification"
	waitlistHandler "github.com/eventpool/lottery-api/internal/handler/waitlist"
	"github.com/eventpool/lottery-api/internal/repository/postgres"
	"github.com/eventpool/lottery-api/internal/router"
	auditService "github.com/eventpool/lottery-api/internal/service/audit"
	authService "github.com/eventpool/lottery-api/internal/service/auth"
	eventService "github.com/eventpool/lottery-api/internal/service/event"
	lotteryService "github.com/eventpool/lottery-api/internal/service/lottery"
	notificationService "github.com/eventpool/lottery-api/internal/service/notification"
	waitlistService "github.com/eventpool/lottery-api/internal/service/waitlist"
	"github.com/eventpool/lottery-api/pkg/auth"
	"github.com/eventpool/lottery-api/pkg/metrics"
)

func main() {
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	waitlistRepo := postgres.NewWaitlistRepository(db)
	lotteryRepo := postgres.NewLotteryRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)
	auditRepo := postgres.NewAuditRepository(db)

	// Shared infrastructure
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:      cfg.JWT.Secret,
		ExpiryHours: cfg.JWT.ExpiryHours,
	})
	m := metrics.NewMetrics("lottery", "api")

	var emailSvc email.Service
	if cfg.Email.Enabled {
		emailSvc = email.NewSMTPService(cfg.Email.ToEmailConfig())
	}

	auditSink, err := zap.NewProduction()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize audit sink")
	}
	defer auditSink.Sync()

	// Services
	auditSvc := auditService.NewService(auditRepo, auditSink)
	eventSvc := eventService.NewService(eventRepo)
	waitlistSvc := waitlistService.NewService(waitlistRepo, eventRepo, auditSvc, eventSvc)
	notificationSvc := notificationService.NewService(notificationRepo, userRepo, emailSvc)
	lotterySvc := lotteryService.NewService(lotteryRepo, eventRepo, notificationSvc, auditSvc, eventSvc, nil, m)
	authSvc := authService.NewService(userRepo, jwtSvc)

	// Router
	r := router.NewRouter(
		jwtSvc,
		healthHandler.NewHandler(db),
		authHandler.NewHandler(authSvc),
		eventHandler.NewHandler(eventSvc),
		waitlistHandler.NewHandler(waitlistSvc),
		lotteryHandler.NewHandler(lotterySvc),
		notificationHandler.NewHandler(notificationSvc),
		auditHandler.NewHandler(auditSvc),
		router.Config{
			RequestTimeout:    cfg.Server.RequestTimeout,
			RateLimitEnabled:  cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			RateBurst:         cfg.RateLimit.Burst,
			MetricsEnabled:    cfg.Monitoring.PrometheusEnabled,
			MetricsPath:       cfg.Monitoring.MetricsPath,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}

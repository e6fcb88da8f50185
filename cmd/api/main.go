package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/clinicore/scheduler-api/internal/config"
	appointmenthandler "github.com/clinicore/scheduler-api/internal/handler/appointment"
	schedulehandler "github.com/clinicore/scheduler-api/internal/handler/schedule"
	"github.com/clinicore/scheduler-api/internal/handler"
	"github.com/clinicore/scheduler-api/internal/middleware"
	"github.com/clinicore/scheduler-api/internal/repository/cached"
	"github.com/clinicore/scheduler-api/internal/repository/postgres"
	"github.com/clinicore/scheduler-api/internal/router"
	"github.com/clinicore/scheduler-api/internal/service/availability"
	"github.com/clinicore/scheduler-api/internal/service/booking"
	"github.com/clinicore/scheduler-api/internal/service/event"
	"github.com/clinicore/scheduler-api/internal/service/schedule"
	"github.com/clinicore/scheduler-api/pkg/auth"
	"github.com/clinicore/scheduler-api/pkg/locker"
	redisbroker "github.com/clinicore/scheduler-api/pkg/messaging/redis"
	"github.com/clinicore/scheduler-api/pkg/metrics"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	brokerLog := log.With().Str("component", "broker").Logger()
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &brokerLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	slotLocks := locker.NewRedisLocker(broker.(*redisbroker.RedisBroker).Client(), cfg.Redis.LockTTL)

	appMetrics := metrics.NewMetrics("scheduler")

	scheduleRepo := postgres.NewScheduleRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := cached.NewDoctorRepository(
		postgres.NewDoctorRepository(db),
		cfg.Scheduling.DoctorCacheTTL,
		10*time.Minute,
	)
	patientRepo := postgres.NewPatientRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	events := event.NewService(outboxRepo)
	scheduleSvc := schedule.NewService(scheduleRepo, doctorRepo)
	availabilitySvc := availability.NewService(scheduleRepo, appointmentRepo,
		availability.WithMaxRangeDays(cfg.Scheduling.MaxRangeDays),
		availability.WithMetrics(appMetrics))
	bookingSvc := booking.NewService(appointmentRepo, doctorRepo, patientRepo,
		availabilitySvc, events, slotLocks,
		booking.WithMetrics(appMetrics))

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)
	authMW := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMW,
		schedulehandler.NewHandler(scheduleSvc, availabilitySvc),
		appointmenthandler.NewHandler(bookingSvc),
		handler.NewHandler(),
		router.Config{
			RateLimit: rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst: cfg.RateLimit.Burst,
			Timeout:   cfg.Server.RequestTimeout,
			CORSConfig: middleware.CORSConfig{
				AllowOrigins: []string{"*"},
				AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
				AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
				MaxAge:       300,
			},
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
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}

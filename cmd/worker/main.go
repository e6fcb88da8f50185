package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/scheduler-api/internal/config"
	"github.com/clinicore/scheduler-api/internal/email"
	"github.com/clinicore/scheduler-api/internal/repository/postgres"
	"github.com/clinicore/scheduler-api/internal/service/event"
	intworker "github.com/clinicore/scheduler-api/internal/worker"
	"github.com/clinicore/scheduler-api/pkg/logger"
	redisbroker "github.com/clinicore/scheduler-api/pkg/messaging/redis"
	"github.com/clinicore/scheduler-api/pkg/metrics"
	"github.com/clinicore/scheduler-api/pkg/worker"
)

// workerConfig is read straight from the environment; the worker binary has
// no config file of its own.
type workerConfig struct {
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"scheduler"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisURL string `envconfig:"REDIS_URL" default:"redis://localhost:6379/0"`

	OutboxBatchSize     int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`
	OutboxPollInterval  time.Duration `envconfig:"OUTBOX_POLL_INTERVAL" default:"2s"`
	OutboxRetryAttempts int           `envconfig:"OUTBOX_RETRY_ATTEMPTS" default:"3"`
	OutboxRetryDelay    time.Duration `envconfig:"OUTBOX_RETRY_DELAY" default:"5s"`

	ReminderLeadTime time.Duration `envconfig:"REMINDER_LEAD_TIME" default:"24h"`
	ReminderInterval time.Duration `envconfig:"REMINDER_INTERVAL" default:"5m"`

	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@clinicore.example"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	var cfg workerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load worker config")
	}

	appLog := logger.NewLogger(nil)

	db, err := postgres.NewDB(config.DatabaseConfig{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Name:     cfg.DBName,
		SSLMode:  cfg.DBSSLMode,

		MaxOpenConns:           10,
		MaxIdleConns:           2,
		ConnMaxLifetimeMinutes: 30,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	brokerLog := log.With().Str("component", "broker").Logger()
	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{URL: cfg.RedisURL}, &brokerLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	appMetrics := metrics.NewMetrics("scheduler_worker")

	outboxRepo := postgres.NewOutboxRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	doctorRepo := postgres.NewDoctorRepository(db)
	patientRepo := postgres.NewPatientRepository(db)

	emailSvc := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.OutboxBatchSize,
		PollInterval:  cfg.OutboxPollInterval,
		RetryAttempts: cfg.OutboxRetryAttempts,
		RetryDelay:    cfg.OutboxRetryDelay,
	}, appLog, appMetrics)

	reminders := intworker.NewReminderScanner(
		appointmentRepo,
		event.NewService(outboxRepo),
		cfg.ReminderLeadTime,
		cfg.ReminderInterval,
		appLog,
	)

	notifier := intworker.NewNotifier(broker, emailSvc, doctorRepo, patientRepo, appLog)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go processor.Start(ctx)
	go reminders.Start(ctx)
	go func() {
		if err := notifier.Start(ctx); err != nil {
			appLog.Error(err, "notifier stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("shutting down worker")
	cancel()
	time.Sleep(time.Second)
}

package appServer

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/calendar-reminders/config"
	repository "github.com/ds124wfegd/calendar-reminders/internal/database/postgres"
	redisRepo "github.com/ds124wfegd/calendar-reminders/internal/database/redis"
	"github.com/ds124wfegd/calendar-reminders/internal/delivery"
	"github.com/ds124wfegd/calendar-reminders/internal/pkg/kafka"
	"github.com/ds124wfegd/calendar-reminders/internal/rabbitMQ"
	"github.com/ds124wfegd/calendar-reminders/internal/reminder"
	"github.com/ds124wfegd/calendar-reminders/internal/service"
	"github.com/ds124wfegd/calendar-reminders/internal/transport"
	"github.com/ds124wfegd/calendar-reminders/internal/worker"
	"github.com/ds124wfegd/calendar-reminders/pkg/postgres"
	"github.com/ds124wfegd/calendar-reminders/pkg/redis"

	"github.com/benbjohnson/clock"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const (
	statusTTL       = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},           // ban on outdate TLS certificate
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags), // os.Stderr can be replaced with ElsasticSearch in the feature
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Server.Env == "development" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clk := clock.New()
	location := cfg.Reminder.Location()

	// Initialize database
	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	userRepo := repository.NewUserRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	healthChecks := map[string]transport.HealthCheck{
		"postgres": postgresCheck(db),
	}

	// Redis: cross-instance claims and the last cron status
	var claimer reminder.Claimer
	var status service.StatusStore
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to connect to Redis: %v. Continuing with in-process claims...", err)
		} else {
			defer redisClient.Close()
			claimer = redisRepo.NewClaimRepository(redisClient)
			status = redisRepo.NewStatusRepository(redisClient, statusTTL)
			healthChecks["redis"] = redisCheck(redisClient)
			logrus.Info("Redis claims initialized")
		}
	}

	// Kafka audit of every delivery attempt
	var audit kafka.Producer
	if cfg.Kafka.Enabled {
		audit = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		audit = kafka.NewMockProducer()
	}
	defer audit.Close()

	// Delivery channels
	fanout := delivery.NewFanout(location)
	var pusher service.Pusher

	if cfg.Email.Enabled {
		emailSender, err := delivery.NewEmailSender(cfg.Email, clk)
		if err != nil {
			logrus.Errorf("Failed to initialize email sender: %v", err)
		} else {
			fanout.Register(delivery.ChannelEmail, emailSender)
		}
	}

	if cfg.Push.Enabled {
		pushSender := delivery.NewPushSender(subRepo, cfg.Push, cfg.Reminder.AppURL)
		fanout.Register(delivery.ChannelPush, pushSender)
		pusher = pushSender
	}

	if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
		telegramSender, err := delivery.NewTelegramSender(cfg.Telegram.BotToken, cfg.Reminder.DeliveryTimeout)
		if err != nil {
			logrus.Errorf("Failed to initialize Telegram bot: %v", err)
		} else {
			fanout.Register(delivery.ChannelTelegram, telegramSender)
		}
	}

	if len(fanout.Channels()) == 0 {
		logrus.Warn("No delivery channels configured, every reminder will fail and stay pending")
	} else {
		logrus.Infof("Delivery channels: %v", fanout.Channels())
	}

	engine := reminder.NewEngine(eventRepo, claimer, fanout, audit, clk, reminder.EngineConfig{
		CatchUpWindow:   cfg.Reminder.CatchUpWindow,
		DeliveryTimeout: cfg.Reminder.DeliveryTimeout,
		ClaimTTL:        cfg.Reminder.ClaimTTL,
	})

	// Per-event arming
	armer := newArmer(ctx, cfg, clk, engine, healthChecks)
	defer func() {
		if stopper, ok := armer.(interface{ Stop() }); ok {
			stopper.Stop()
		}
	}()

	scheduler := reminder.NewScheduler(armer, clk)
	sweeper := reminder.NewSweeper(eventRepo, engine, cfg.Reminder.CatchUpWindow, cfg.Reminder.SweepConcurrency)
	cleaner := reminder.NewCleaner(eventRepo, scheduler, cfg.Reminder.Retention())

	// Initialize services
	eventService := service.NewEventService(eventRepo, userRepo, scheduler, clk, location)
	reminderService := service.NewReminderService(sweeper, cleaner, status, clk)
	subscriptionService := service.NewSubscriptionService(userRepo, subRepo, pusher)

	// Initialize and start sweep worker
	reminderWorker := worker.NewReminderWorker(reminderService, cfg.Reminder.SweepSchedule, location)
	go func() {
		if err := reminderWorker.Start(ctx); err != nil {
			logrus.Errorf("Reminder worker error: %v", err)
		}
	}()
	logrus.Info("Reminder worker started")

	// Initialize handlers
	eventHandler := transport.NewEventHandler(eventService)
	reminderHandler := transport.NewReminderHandler(reminderService, eventService)
	notificationHandler := transport.NewNotificationHandler(subscriptionService, cfg.Push.VAPIDPublicKey)

	// Setup HTTP server
	if cfg.Server.Env == "production" || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(eventHandler, reminderHandler, notificationHandler, transport.RouterConfig{
		RequestTimeout: cfg.Server.Timeout,
		CronSecret:     cfg.Reminder.CronSecret,
		HealthChecks:   healthChecks,
	})

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}

// newArmer picks the per-event backend. RabbitMQ falls back to in-process
// timers when the broker is unreachable.
func newArmer(ctx context.Context, cfg *config.Config, clk clock.Clock, engine *reminder.Engine,
	healthChecks map[string]transport.HealthCheck) reminder.Armer {

	maxDelay := cfg.Reminder.MaxArmDelay

	if cfg.Reminder.ArmBackend == config.ArmBackendRabbitMQ {
		queue, err := rabbitMQ.NewRabbitMQ(rabbitMQ.RabbitMQConfig{
			URL:       cfg.Rabbit.DSN(),
			QueueName: cfg.Rabbit.QueueName,
		})
		if err == nil {
			queueArmer := rabbitMQ.NewQueueArmer(queue, clk, maxDelay, engine)
			go func() {
				if err := queueArmer.Start(ctx); err != nil {
					logrus.Errorf("Reminder queue consumer error: %v", err)
				}
			}()
			go func() {
				<-ctx.Done()
				if err := queue.Close(); err != nil {
					logrus.Warnf("Failed to close RabbitMQ: %v", err)
				}
			}()
			healthChecks["rabbitmq"] = func(context.Context) error { return queue.HealthCheck() }
			logrus.Info("Reminders armed through RabbitMQ delayed queues")
			return queueArmer
		}
		logrus.Errorf("Failed to initialize RabbitMQ: %v. Falling back to in-process timers...", err)
	}

	logrus.Info("Reminders armed with in-process timers")
	return reminder.NewTimerArmer(ctx, clk, maxDelay, engine)
}

func postgresCheck(db *sql.DB) transport.HealthCheck {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}

func redisCheck(client *goredis.Client) transport.HealthCheck {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}

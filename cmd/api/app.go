package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/api/http/handlers"
	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/messaging"
	"github.com/spec-kit/chatdesk/internal/notifier"
	"github.com/spec-kit/chatdesk/internal/observability"
	"github.com/spec-kit/chatdesk/internal/persistence"
	"github.com/spec-kit/chatdesk/internal/repository"
	"github.com/spec-kit/chatdesk/internal/service"
	"github.com/spec-kit/chatdesk/internal/worker"
)

// application holds the wired collaborators shared by the sub-commands.
type application struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics

	postgres *persistence.Postgres
	redis    *persistence.Redis
	nats     *persistence.NATS
	stream   *events.KafkaProducer

	repos         *repository.Store
	changes       *audit.QueueChangeLog
	resolution    *service.ResolutionService
	mutation      *service.MutationService
	cleanup       *service.CleanupService
	notifications *service.NotificationService
	cleanupWorker *worker.CleanupWorker
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	app.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.metrics = observability.NewMetrics(app.registry)
	reporter := observability.NewReporter(logger, app.metrics)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	app.postgres = pg
	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			app.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	repos := pg.Store(logger)
	app.repos = repos

	app.redis = persistence.NewRedis(cfg.Redis, logger)
	app.nats, err = persistence.NewNATS(cfg.NATS, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.stream = events.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)

	templates, err := config.LoadTemplates(cfg.Ticket.TemplatesPath, cfg.Ticket.RatingPromptPrefix)
	if err != nil {
		app.Close()
		return nil, err
	}
	rating := service.NewRatingPrompt(templates.RatingPromptPrefix)

	var changeLog audit.Log = audit.NewRingLog(cfg.Audit.Capacity)
	if cfg.Audit.Backend == "redis" {
		if app.redis.Enabled() {
			changeLog = audit.NewRedisLog(app.redis.Client, "", cfg.Audit.Capacity)
		} else {
			logger.Warn("AUDIT_BACKEND=redis without REDIS_ADDR; keeping queue changes in memory")
		}
	}
	app.changes = audit.NewQueueChangeLog(changeLog, logger, app.metrics, time.Now)

	var broadcaster events.Broadcaster = events.NewMemoryBroadcaster()
	if app.nats.Enabled() {
		broadcaster = events.NewNATSBroadcaster(app.nats.Conn, cfg.NATS.SubjectPrefix, logger)
	}

	var sender messaging.Sender = messaging.NopSender{}
	if cfg.WhatsApp.GatewayURL != "" {
		sender = messaging.NewGateway(cfg.WhatsApp.GatewayURL, cfg.WhatsApp.Timeout, logger)
	} else {
		logger.Warn("WHATSAPP_GATEWAY_URL not provided; automated messages are dropped")
	}

	dispatcher := events.NewInMemoryDispatcher()
	app.notifications = service.NewNotificationService(dispatcher, logger, app.stream)

	tracking := service.NewTrackingService(service.TrackingDependencies{TrackingRepo: repos.Tracking})
	app.cleanup = service.NewCleanupService(service.CleanupDependencies{
		TicketRepo: repos.Tickets,
		Tx:         repos.Tx,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    app.metrics,
		Rating:     rating,
	})
	app.cleanupWorker = worker.NewCleanupWorker(app.cleanup, cfg.Ticket.CleanupInterval, logger)
	app.resolution = service.NewResolutionService(service.ResolutionDependencies{
		Repos:       repos,
		Tracking:    tracking,
		Audit:       app.changes,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
		Logger:      logger,
		Metrics:     app.metrics,
		Rating:      rating,
		ReopenGrace: cfg.Ticket.ReopenGrace,
	})
	app.mutation = service.NewMutationService(service.MutationDependencies{
		Repos:       repos,
		Tracking:    tracking,
		Audit:       app.changes,
		Sender:      sender,
		Notifier:    notifier.NewTicketBot(cfg.TicketBot, logger, app.metrics, reporter),
		Scheduler:   app.cleanupWorker,
		Dispatcher:  dispatcher,
		Broadcaster: broadcaster,
		Logger:      logger,
		Metrics:     app.metrics,
		Reporter:    reporter,
		Templates:   templates,
		SweepDelay:  cfg.Ticket.CleanupAfterCloseDelay,
	})
	return app, nil
}

// healthChecks lists the configured backends only.
func (a *application) healthChecks() map[string]handlers.Check {
	checks := map[string]handlers.Check{}
	if a.postgres.Enabled() {
		checks["postgres"] = a.postgres.Ping
	}
	if a.redis.Enabled() {
		checks["redis"] = a.redis.Ping
	}
	if a.nats.Enabled() {
		checks["nats"] = func(context.Context) error { return a.nats.Ping() }
	}
	return checks
}

// Close releases every connection. It is safe on a partially built app. The
// event stream is closed by the notification worker.
func (a *application) Close() {
	if a.cleanupWorker != nil {
		a.cleanupWorker.Stop()
	}
	a.nats.Close()
	a.redis.Close()
	a.postgres.Close()
}

package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/spec-kit/chatdesk/internal/api/http"
	"github.com/spec-kit/chatdesk/internal/api/http/handlers"
	"github.com/spec-kit/chatdesk/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the cleanup worker",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	defer worker.StartNotificationWorker(app.notifications, app.stream, logger)()

	server := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		DisableStartupMessage: true,
	})
	httptransport.RegisterMiddlewares(server, logger, app.metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, app.healthChecks()),
		Webhooks:    handlers.NewWebhookHandler(app.resolution, app.repos.Contacts),
		Tickets:     handlers.NewTicketsHandler(app.mutation),
		Maintenance: handlers.NewMaintenanceHandler(app.cleanup, app.changes),
		Metrics:     promhttp.HandlerFor(app.registry, promhttp.HandlerOpts{}),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return server.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		return app.cleanupWorker.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.ShutdownWithContext(context.Background())
	})
	return g.Wait()
}

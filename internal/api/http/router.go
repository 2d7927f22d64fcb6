package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/chatdesk/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health      *handlers.HealthHandler
	Webhooks    *handlers.WebhookHandler
	Tickets     *handlers.TicketsHandler
	Maintenance *handlers.MaintenanceHandler
	// Metrics serves the Prometheus exposition; nil leaves /metrics out.
	Metrics nethttp.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics))
	}

	app.Post("/webhooks/messages", cfg.Webhooks.InboundMessage)

	app.Put("/tickets/:id", cfg.Tickets.UpdateTicket)
	app.Put("/tickets2/:id", cfg.Tickets.UpdateTicketSkipRating)

	app.Post("/maintenance/cleanup-rating-tickets", cfg.Maintenance.CleanupRatingTickets)

	debug := app.Group("/debug/queue-changes")
	debug.Get("/stats", cfg.Maintenance.QueueChangeStats)
	debug.Get("/:ticketId", cfg.Maintenance.QueueChangeHistory)
}

package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk/internal/api/dto"
	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/service"
)

// MaintenanceHandler exposes operator endpoints.
type MaintenanceHandler struct {
	cleanup *service.CleanupService
	changes *audit.QueueChangeLog
}

// NewMaintenanceHandler constructs handler.
func NewMaintenanceHandler(cleanup *service.CleanupService, changes *audit.QueueChangeLog) *MaintenanceHandler {
	return &MaintenanceHandler{cleanup: cleanup, changes: changes}
}

// CleanupRatingTickets POST /maintenance/cleanup-rating-tickets.
func (h *MaintenanceHandler) CleanupRatingTickets(c *fiber.Ctx) error {
	closed, err := h.cleanup.SweepFor(c.UserContext(), service.TriggerManual)
	if err != nil {
		return err
	}
	return c.JSON(dto.CleanupResponse{Closed: closed})
}

// QueueChangeHistory GET /debug/queue-changes/:ticketId.
func (h *MaintenanceHandler) QueueChangeHistory(c *fiber.Ctx) error {
	ticketID, err := paramID(c, "ticketId")
	if err != nil {
		return err
	}
	entries, err := h.changes.History(c.UserContext(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": entries})
}

// QueueChangeStats GET /debug/queue-changes/stats.
func (h *MaintenanceHandler) QueueChangeStats(c *fiber.Ctx) error {
	stats, err := h.changes.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": stats})
}

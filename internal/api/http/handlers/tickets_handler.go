package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk/internal/api/dto"
	"github.com/spec-kit/chatdesk/internal/service"
)

// TicketsHandler manages agent ticket updates.
type TicketsHandler struct {
	service *service.MutationService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(mutationService *service.MutationService) *TicketsHandler {
	return &TicketsHandler{service: mutationService}
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	return h.update(c, false)
}

// UpdateTicketSkipRating PUT /tickets2/:id. Closing through it never sends
// the rating invitation.
func (h *TicketsHandler) UpdateTicketSkipRating(c *fiber.Ctx) error {
	return h.update(c, true)
}

func (h *TicketsHandler) update(c *fiber.Ctx, skipRating bool) error {
	company, err := companyID(c)
	if err != nil {
		return err
	}
	ticketID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	result, err := h.service.Mutate(c.UserContext(), service.MutationInput{
		TicketID:   ticketID,
		CompanyID:  company,
		Changes:    req.Changes(),
		SkipRating: skipRating,
		Reason:     req.Reason,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result.Ticket})
}

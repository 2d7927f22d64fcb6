package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/chatdesk/internal/api/dto"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
	"github.com/spec-kit/chatdesk/internal/service"
	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

// WebhookHandler receives inbound channel messages.
type WebhookHandler struct {
	resolution *service.ResolutionService
	contacts   repository.ContactRepository
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(resolution *service.ResolutionService, contacts repository.ContactRepository) *WebhookHandler {
	return &WebhookHandler{resolution: resolution, contacts: contacts}
}

// InboundMessage POST /webhooks/messages.
func (h *WebhookHandler) InboundMessage(c *fiber.Ctx) error {
	company, err := companyID(c)
	if err != nil {
		return err
	}
	var req dto.InboundMessageRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	ctx := c.UserContext()
	contact, err := h.contact(c, req.ContactID, company)
	if err != nil {
		return err
	}
	input := service.ResolveInput{
		Contact:        contact,
		WhatsappID:     req.WhatsappID,
		UnreadMessages: req.UnreadMessages,
		CompanyID:      company,
		ForceOpen:      req.ForceOpen,
	}
	if req.GroupContactID != nil {
		group, err := h.contact(c, *req.GroupContactID, company)
		if err != nil {
			return err
		}
		input.GroupContact = group
	}
	if req.Message != nil {
		input.Message = &service.InboundMessage{Body: req.Message.Body, FromMe: req.Message.FromMe}
	}

	ticket, err := h.resolution.Resolve(ctx, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticket})
}

func (h *WebhookHandler) contact(c *fiber.Ctx, id, company int64) (*domain.Contact, error) {
	contact, err := h.contacts.GetByID(c.UserContext(), id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && contact.CompanyID != company) {
		return nil, apperrors.NewNotFound("contact", map[string]any{"contactId": id})
	}
	if err != nil {
		return nil, fmt.Errorf("load contact: %w", err)
	}
	return contact, nil
}

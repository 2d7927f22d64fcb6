package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated  EventType = "ticket_created"
	EventTicketUpdated  EventType = "ticket_updated"
	EventTicketClosed   EventType = "ticket_closed"
	EventTicketReopened EventType = "ticket_reopened"
	EventTicketsSwept   EventType = "tickets_swept"
)

// AllEventTypes lists every lifecycle event.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketClosed,
	EventTicketReopened,
	EventTicketsSwept,
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CompanyID int64     `json:"company_id"`
	TicketID  int64     `json:"ticket_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps a fresh id onto an event.
func NewEvent(eventType EventType, companyID, ticketID int64, at time.Time, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CompanyID: companyID,
		TicketID:  ticketID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketLifecyclePayload describes a ticket transition.
type TicketLifecyclePayload struct {
	ContactID      int64               `json:"contact_id"`
	WhatsappID     int64               `json:"whatsapp_id"`
	Status         domain.TicketStatus `json:"status"`
	PreviousStatus domain.TicketStatus `json:"previous_status,omitempty"`
	QueueID        *int64              `json:"queue_id,omitempty"`
	UserID         *int64              `json:"user_id,omitempty"`
	PreviousUserID *int64              `json:"previous_user_id,omitempty"`
	Reason         string              `json:"reason,omitempty"`
}

// TicketsSweptPayload reports a cleanup pass.
type TicketsSweptPayload struct {
	Closed    int     `json:"closed"`
	TicketIDs []int64 `json:"ticket_ids"`
	Trigger   string  `json:"trigger"`
}

// LifecyclePayload builds the payload for t.
func LifecyclePayload(t *domain.Ticket, previous domain.TicketStatus, previousUserID *int64, reason string) TicketLifecyclePayload {
	return TicketLifecyclePayload{
		ContactID:      t.ContactID,
		WhatsappID:     t.WhatsappID,
		Status:         t.Status,
		PreviousStatus: previous,
		QueueID:        t.QueueID,
		UserID:         t.UserID,
		PreviousUserID: previousUserID,
		Reason:         reason,
	}
}

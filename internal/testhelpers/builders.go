// Package testhelpers provides builders and recording fakes shared by the
// package tests.
package testhelpers

import (
	"time"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// ========================================
// Ticket Builder
// ========================================

// TicketBuilder builds Ticket instances for testing
type TicketBuilder struct {
	ticket domain.Ticket
}

// NewTicketBuilder creates a pending ticket of contact 1 on connection 1,
// company 1.
func NewTicketBuilder() *TicketBuilder {
	return &TicketBuilder{
		ticket: domain.Ticket{
			ContactID:  1,
			CompanyID:  1,
			WhatsappID: 1,
			Status:     domain.TicketStatusPending,
		},
	}
}

// WithID sets the ticket ID
func (b *TicketBuilder) WithID(id int64) *TicketBuilder {
	b.ticket.ID = id
	return b
}

// ForContact sets the contact
func (b *TicketBuilder) ForContact(id int64) *TicketBuilder {
	b.ticket.ContactID = id
	return b
}

// OnConnection sets the channel connection
func (b *TicketBuilder) OnConnection(id int64) *TicketBuilder {
	b.ticket.WhatsappID = id
	return b
}

// InCompany sets the company
func (b *TicketBuilder) InCompany(id int64) *TicketBuilder {
	b.ticket.CompanyID = id
	return b
}

// Open marks the ticket open
func (b *TicketBuilder) Open() *TicketBuilder {
	b.ticket.Status = domain.TicketStatusOpen
	return b
}

// Closed marks the ticket closed
func (b *TicketBuilder) Closed() *TicketBuilder {
	b.ticket.Status = domain.TicketStatusClosed
	return b
}

// WithQueue sets the queue
func (b *TicketBuilder) WithQueue(id int64) *TicketBuilder {
	b.ticket.QueueID = &id
	return b
}

// WithAgent sets the assigned agent
func (b *TicketBuilder) WithAgent(id int64) *TicketBuilder {
	b.ticket.UserID = &id
	return b
}

// WithLastMessage sets the stored last message
func (b *TicketBuilder) WithLastMessage(text string) *TicketBuilder {
	b.ticket.LastMessage = &text
	return b
}

// AsGroup marks the ticket as a group conversation
func (b *TicketBuilder) AsGroup() *TicketBuilder {
	b.ticket.IsGroup = true
	return b
}

// WithIntegration gives the ticket a running integration session
func (b *TicketBuilder) WithIntegration(integrationID, promptID int64, session string) *TicketBuilder {
	b.ticket.UseIntegration = true
	b.ticket.IntegrationID = &integrationID
	b.ticket.PromptID = &promptID
	b.ticket.TypebotStatus = true
	b.ticket.TypebotSessionID = &session
	return b
}

// UpdatedAt sets the last update time
func (b *TicketBuilder) UpdatedAt(at time.Time) *TicketBuilder {
	b.ticket.UpdatedAt = at
	if b.ticket.CreatedAt.IsZero() || b.ticket.CreatedAt.After(at) {
		b.ticket.CreatedAt = at
	}
	return b
}

// Build returns the constructed ticket
func (b *TicketBuilder) Build() domain.Ticket {
	return b.ticket
}

// ========================================
// Contact Builder
// ========================================

// ContactBuilder builds Contact instances for testing
type ContactBuilder struct {
	contact domain.Contact
}

// NewContactBuilder creates contact 1 of company 1
func NewContactBuilder() *ContactBuilder {
	return &ContactBuilder{
		contact: domain.Contact{
			ID:        1,
			CompanyID: 1,
			Name:      "Test Contact",
			Number:    "5511999990000",
		},
	}
}

// WithID sets the contact ID
func (b *ContactBuilder) WithID(id int64) *ContactBuilder {
	b.contact.ID = id
	return b
}

// WithNumber sets the channel number
func (b *ContactBuilder) WithNumber(number string) *ContactBuilder {
	b.contact.Number = number
	return b
}

// AsGroup marks the contact as a group
func (b *ContactBuilder) AsGroup() *ContactBuilder {
	b.contact.IsGroup = true
	return b
}

// BotDisabled turns off automated messages for the contact
func (b *ContactBuilder) BotDisabled() *ContactBuilder {
	b.contact.DisableBot = true
	return b
}

// Build returns the constructed contact
func (b *ContactBuilder) Build() domain.Contact {
	return b.contact
}

package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusPending TicketStatus = "pending"
	TicketStatusOpen    TicketStatus = "open"
	TicketStatusClosed  TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusOpen, TicketStatusClosed:
		return true
	}
	return false
}

// Live reports whether s counts towards the one-live-ticket-per-conversation rule.
func (s TicketStatus) Live() bool {
	return s == TicketStatusPending || s == TicketStatusOpen
}

// LiveStatuses are the non-terminal statuses.
var LiveStatuses = []TicketStatus{TicketStatusOpen, TicketStatusPending}

// Ticket is one conversation between a contact and the company over one
// channel connection.
type Ticket struct {
	ID               int64        `json:"id"`
	ContactID        int64        `json:"contactId"`
	CompanyID        int64        `json:"companyId"`
	WhatsappID       int64        `json:"whatsappId"`
	Status           TicketStatus `json:"status"`
	QueueID          *int64       `json:"queueId"`
	UserID           *int64       `json:"userId"`
	IsGroup          bool         `json:"isGroup"`
	UnreadMessages   int          `json:"unreadMessages"`
	LastMessage      *string      `json:"lastMessage"`
	Chatbot          bool         `json:"chatbot"`
	QueueOptionID    *int64       `json:"queueOptionId"`
	UseIntegration   bool         `json:"useIntegration"`
	IntegrationID    *int64       `json:"integrationId"`
	PromptID         *int64       `json:"promptId"`
	TypebotStatus    bool         `json:"typebotStatus"`
	TypebotSessionID *string      `json:"typebotSessionId"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`

	// Associations loaded by the services for callers.
	Contact  *Contact  `json:"contact,omitempty"`
	Queue    *Queue    `json:"queue,omitempty"`
	User     *User     `json:"user,omitempty"`
	Whatsapp *Whatsapp `json:"whatsapp,omitempty"`
}

// HasAgent reports whether an agent is assigned.
func (t *Ticket) HasAgent() bool {
	return t.UserID != nil
}

// LastMessageText returns the stored last message or "".
func (t *Ticket) LastMessageText() string {
	if t.LastMessage == nil {
		return ""
	}
	return *t.LastMessage
}

package dto

import (
	"bytes"
	"encoding/json"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// Nullable tracks whether a JSON field was present, and whether it was null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only invoked for keys present in the payload.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (n Nullable[T]) opt() domain.Opt[*T] {
	return domain.Opt[*T]{Set: n.Set, Value: n.Value}
}

// InboundMessage is the message carried by a webhook call.
type InboundMessage struct {
	Body   string `json:"body"`
	FromMe bool   `json:"fromMe"`
}

// InboundMessageRequest payload of POST /webhooks/messages.
type InboundMessageRequest struct {
	ContactID      int64           `json:"contactId" validate:"required,gt=0"`
	WhatsappID     int64           `json:"whatsappId" validate:"required,gt=0"`
	UnreadMessages int             `json:"unreadMessages" validate:"gte=0"`
	GroupContactID *int64          `json:"groupContactId" validate:"omitempty,gt=0"`
	ForceOpen      bool            `json:"forceOpen"`
	Message        *InboundMessage `json:"message"`
}

// UpdateTicketRequest payload of PUT /tickets/:id. Absent fields are left
// untouched; null clears queueId, userId and queueOptionId.
type UpdateTicketRequest struct {
	Status        *string          `json:"status" validate:"omitempty,oneof=open pending closed"`
	QueueID       Nullable[int64]  `json:"queueId"`
	UserID        Nullable[int64]  `json:"userId"`
	WhatsappID    *int64           `json:"whatsappId" validate:"omitempty,gt=0"`
	Chatbot       *bool            `json:"chatbot"`
	QueueOptionID Nullable[int64]  `json:"queueOptionId"`
	LastMessage   Nullable[string] `json:"lastMessage"`
	Reason        string           `json:"reason" validate:"max=200"`
}

// Changes converts the request into a partial ticket update.
func (r UpdateTicketRequest) Changes() domain.TicketChanges {
	var changes domain.TicketChanges
	if r.Status != nil {
		changes.Status = domain.Some(domain.TicketStatus(*r.Status))
	}
	changes.QueueID = r.QueueID.opt()
	changes.UserID = r.UserID.opt()
	if r.WhatsappID != nil {
		changes.WhatsappID = domain.Some(*r.WhatsappID)
	}
	if r.Chatbot != nil {
		changes.Chatbot = domain.Some(*r.Chatbot)
	}
	changes.QueueOptionID = r.QueueOptionID.opt()
	changes.LastMessage = r.LastMessage.opt()
	return changes
}

// CleanupResponse body of the maintenance sweep.
type CleanupResponse struct {
	Closed int `json:"closed"`
}

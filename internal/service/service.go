package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/repository"
)

// leftToRightMark is prepended by the channel to automated messages.
const leftToRightMark = "\u200e"

// RatingPrompt recognises the automated rating invitation by its prefix.
type RatingPrompt struct {
	prefix string
}

// NewRatingPrompt builds a matcher for prefix.
func NewRatingPrompt(prefix string) RatingPrompt {
	return RatingPrompt{prefix: strings.TrimPrefix(prefix, leftToRightMark)}
}

// Matches reports whether text is a rating invitation.
func (r RatingPrompt) Matches(text string) bool {
	if r.prefix == "" {
		return false
	}
	return strings.HasPrefix(strings.TrimPrefix(text, leftToRightMark), r.prefix)
}

// Prefixes lists the stored forms of the invitation, with and without the mark.
func (r RatingPrompt) Prefixes() []string {
	if r.prefix == "" {
		return nil
	}
	return []string{r.prefix, leftToRightMark + r.prefix}
}

// attachAssociations loads the contact, queue, agent and connection of t.
// Missing records are left nil.
func attachAssociations(ctx context.Context, repos *repository.Store, t *domain.Ticket) error {
	contact, err := repos.Contacts.GetByID(ctx, t.ContactID)
	if err = optional(err); err != nil {
		return err
	}
	t.Contact = contact

	whatsapp, err := repos.Whatsapps.GetByID(ctx, t.WhatsappID)
	if err = optional(err); err != nil {
		return err
	}
	t.Whatsapp = whatsapp

	t.Queue = nil
	if t.QueueID != nil {
		queue, err := repos.Queues.GetByID(ctx, *t.QueueID)
		if err = optional(err); err != nil {
			return err
		}
		t.Queue = queue
	}

	t.User = nil
	if t.UserID != nil {
		user, err := repos.Users.GetByID(ctx, *t.UserID)
		if err = optional(err); err != nil {
			return err
		}
		t.User = user
	}
	return nil
}

func optional(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	return err
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, event events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

// announce pushes a ticket change to connected clients. When the status or
// the assignee moved, the rooms of the previous state drop the ticket first.
func announce(ctx context.Context, broadcaster events.Broadcaster, logger *zap.Logger, t *domain.Ticket, before *events.TicketState) {
	if broadcaster == nil {
		return
	}
	name := events.TicketEventName(t.CompanyID)
	now := events.StateOf(t)

	var out []events.Broadcast
	var previousUserID *int64
	if before == nil {
		out = append(out, events.Broadcast{
			Rooms:   events.UpdateRooms(t.CompanyID, t.ID, now, nil),
			Event:   name,
			Payload: events.Payload{Action: events.ActionCreate, Ticket: t},
		})
	} else {
		previousUserID = before.UserID
		if before.Status != now.Status || !sameID(before.UserID, now.UserID) {
			out = append(out, events.Broadcast{
				Rooms:   events.StaleRooms(t.CompanyID, *before),
				Event:   name,
				Payload: events.Payload{Action: events.ActionDelete, TicketID: t.ID},
			})
		}
		out = append(out, events.Broadcast{
			Rooms:   events.UpdateRooms(t.CompanyID, t.ID, now, previousUserID),
			Event:   name,
			Payload: events.Payload{Action: events.ActionUpdate, Ticket: t},
		})
	}

	for _, b := range out {
		if err := broadcaster.Emit(ctx, b); err != nil {
			logger.Warn("broadcast failed",
				zap.Int64("ticket_id", t.ID),
				zap.String("action", string(b.Payload.Action)),
				zap.Error(err))
		}
	}
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

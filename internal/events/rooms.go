package events

import (
	"fmt"
	"strconv"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// TicketEventName is the event clients of a company listen on.
func TicketEventName(companyID int64) string {
	return fmt.Sprintf("company-%d-ticket", companyID)
}

func companyStatusRoom(companyID int64, status domain.TicketStatus) string {
	return fmt.Sprintf("company-%d-%s", companyID, status)
}

func companyNotificationRoom(companyID int64) string {
	return fmt.Sprintf("company-%d-notification", companyID)
}

func queueStatusRoom(queueID int64, status domain.TicketStatus) string {
	return fmt.Sprintf("queue-%d-%s", queueID, status)
}

func queueNotificationRoom(queueID int64) string {
	return fmt.Sprintf("queue-%d-notification", queueID)
}

func userRoom(userID int64) string {
	return fmt.Sprintf("user-%d", userID)
}

// TicketRoom is the room of clients watching one ticket.
func TicketRoom(ticketID int64) string {
	return strconv.FormatInt(ticketID, 10)
}

// TicketState is the room-relevant part of a ticket at one point in time.
type TicketState struct {
	Status  domain.TicketStatus
	QueueID *int64
	UserID  *int64
}

// StateOf captures the room-relevant state of t.
func StateOf(t *domain.Ticket) TicketState {
	return TicketState{Status: t.Status, QueueID: t.QueueID, UserID: t.UserID}
}

// StaleRooms lists the rooms that must drop a ticket that left state.
func StaleRooms(companyID int64, state TicketState) []string {
	rooms := []string{companyStatusRoom(companyID, state.Status)}
	if state.QueueID != nil {
		rooms = append(rooms, queueStatusRoom(*state.QueueID, state.Status))
	}
	if state.UserID != nil {
		rooms = append(rooms, userRoom(*state.UserID))
	}
	return rooms
}

// UpdateRooms lists the rooms interested in a ticket now in state. The
// previous assignee keeps receiving updates so its view can settle.
func UpdateRooms(companyID, ticketID int64, state TicketState, previousUserID *int64) []string {
	rooms := []string{
		companyStatusRoom(companyID, state.Status),
		companyNotificationRoom(companyID),
	}
	if state.QueueID != nil {
		rooms = append(rooms,
			queueStatusRoom(*state.QueueID, state.Status),
			queueNotificationRoom(*state.QueueID))
	}
	rooms = append(rooms, TicketRoom(ticketID))
	if state.UserID != nil {
		rooms = append(rooms, userRoom(*state.UserID))
	}
	if previousUserID != nil && (state.UserID == nil || *state.UserID != *previousUserID) {
		rooms = append(rooms, userRoom(*previousUserID))
	}
	return rooms
}

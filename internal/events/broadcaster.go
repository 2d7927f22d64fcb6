package events

import (
	"context"
	"sync"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// Action tells clients what to do with the ticket they receive.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Payload is the body delivered to every room.
type Payload struct {
	Action   Action         `json:"action"`
	Ticket   *domain.Ticket `json:"ticket,omitempty"`
	TicketID int64          `json:"ticketId,omitempty"`
}

// Broadcast is one fire-and-forget notification fanned out to rooms.
type Broadcast struct {
	Rooms   []string `json:"rooms"`
	Event   string   `json:"event"`
	Payload Payload  `json:"payload"`
}

// Broadcaster pushes ticket changes to connected clients.
type Broadcaster interface {
	Emit(ctx context.Context, b Broadcast) error
}

// MemoryBroadcaster keeps every broadcast in memory. It backs tests and
// single-process deployments without NATS.
type MemoryBroadcaster struct {
	mu   sync.Mutex
	sent []Broadcast
}

// NewMemoryBroadcaster returns an empty broadcaster.
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{}
}

// Emit records b.
func (m *MemoryBroadcaster) Emit(_ context.Context, b Broadcast) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, b)
	return nil
}

// Sent returns a copy of the recorded broadcasts.
func (m *MemoryBroadcaster) Sent() []Broadcast {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Broadcast(nil), m.sent...)
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the part of *nats.Conn the broadcaster needs.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSBroadcaster publishes each broadcast once per room on
// "<prefix>.<room>". The event name travels in the Event header so a socket
// gateway can re-emit it unchanged.
type NATSBroadcaster struct {
	pub    Publisher
	prefix string
	logger *zap.Logger
}

// NewNATSBroadcaster builds a broadcaster on pub.
func NewNATSBroadcaster(pub Publisher, prefix string, logger *zap.Logger) *NATSBroadcaster {
	return &NATSBroadcaster{pub: pub, prefix: prefix, logger: logger}
}

// Subject returns the subject of room.
func (n *NATSBroadcaster) Subject(room string) string {
	if n.prefix == "" {
		return room
	}
	return n.prefix + "." + room
}

// Emit publishes b to every room. Failed rooms are reported together.
func (n *NATSBroadcaster) Emit(_ context.Context, b Broadcast) error {
	body, err := json.Marshal(b.Payload)
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	var errs []error
	for _, room := range b.Rooms {
		msg := nats.NewMsg(n.Subject(room))
		msg.Header.Set("Event", b.Event)
		msg.Data = body
		if err := n.pub.PublishMsg(msg); err != nil {
			n.logger.Warn("broadcast publish failed", zap.String("room", room), zap.Error(err))
			errs = append(errs, fmt.Errorf("room %s: %w", room, err))
		}
	}
	return errors.Join(errs...)
}

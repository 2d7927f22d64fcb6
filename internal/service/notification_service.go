package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/events"
)

// EventSink receives lifecycle events for downstream consumers.
type EventSink interface {
	Enabled() bool
	Produce(ctx context.Context, event events.Event) error
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	sink       EventSink
}

// NewNotificationService creates the service. A nil sink only logs.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, sink EventSink) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		sink:       sink,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.String("event_id", event.ID),
		zap.Int64("company_id", event.CompanyID),
		zap.Int64("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.forward(ctx, event)
	return nil
}

// forward hands the event to the sink. Delivery failures are logged only;
// lifecycle operations never depend on the stream.
func (n *NotificationService) forward(ctx context.Context, event events.Event) {
	if n.sink == nil || !n.sink.Enabled() {
		return
	}
	if err := n.sink.Produce(ctx, event); err != nil {
		n.logger.Warn("forward event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

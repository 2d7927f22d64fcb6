package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/observability"
	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

// QueueChangeLog records queue/agent changes and validates them before they
// are written. One instance is shared by the resolution and mutation services.
type QueueChangeLog struct {
	log     Log
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewQueueChangeLog wraps log. A nil now defaults to time.Now.
func NewQueueChangeLog(log Log, logger *zap.Logger, metrics *observability.Metrics, now func() time.Time) *QueueChangeLog {
	if now == nil {
		now = time.Now
	}
	return &QueueChangeLog{log: log, logger: logger, metrics: metrics, now: now}
}

// Change describes a queue/agent move about to be applied to a ticket.
type Change struct {
	Ticket        *domain.Ticket
	ContactNumber string
	QueueID       domain.Opt[*int64]
	UserID        domain.Opt[*int64]
	Reason        string
}

func (c Change) touches() bool {
	return (c.QueueID.Set && !sameID(c.Ticket.QueueID, c.QueueID.Value)) ||
		(c.UserID.Set && !sameID(c.Ticket.UserID, c.UserID.Value))
}

// Check rejects a queue move on an open, assigned ticket unless the change
// is an explicit transfer: it reassigns the agent too, or its reason says so.
// Rejected attempts are recorded.
func (q *QueueChangeLog) Check(ctx context.Context, c Change) error {
	t := c.Ticket
	movesQueue := c.QueueID.Set && c.QueueID.Value != nil && !sameID(t.QueueID, c.QueueID.Value)
	if !movesQueue {
		return nil
	}

	explicit := c.UserID.Set || IsTransfer(c.Reason)
	if t.Status == domain.TicketStatusOpen && t.HasAgent() && !explicit {
		q.logger.Warn("queue change blocked on assigned ticket",
			zap.Int64("ticket_id", t.ID),
			zap.Int64p("user_id", t.UserID),
			zap.Int64p("queue_id", t.QueueID),
			zap.Int64p("new_queue_id", c.QueueID.Value),
			zap.String("reason", c.Reason))
		q.record(ctx, Entry{
			TicketID:      t.ID,
			ContactNumber: c.ContactNumber,
			OldQueueID:    t.QueueID,
			NewQueueID:    c.QueueID.Value,
			OldUserID:     t.UserID,
			NewUserID:     t.UserID,
			Reason:        blockedPrefix + c.Reason,
		})
		return apperrors.NewValidationError("queue change on an assigned ticket requires a transfer", map[string]any{
			"ticketId": t.ID,
			"queueId":  c.QueueID.Value,
		})
	}

	if t.QueueID != nil && !t.HasAgent() && !IsTransfer(c.Reason) {
		q.logger.Info("queue change on unassigned ticket",
			zap.Int64("ticket_id", t.ID),
			zap.Int64p("queue_id", t.QueueID),
			zap.Int64p("new_queue_id", c.QueueID.Value),
			zap.String("reason", c.Reason))
	}
	return nil
}

// Record stores the change when it actually moves the queue or the agent.
func (q *QueueChangeLog) Record(ctx context.Context, c Change) {
	if !c.touches() {
		return
	}
	e := Entry{
		TicketID:      c.Ticket.ID,
		ContactNumber: c.ContactNumber,
		OldQueueID:    c.Ticket.QueueID,
		NewQueueID:    c.QueueID.Or(c.Ticket.QueueID),
		OldUserID:     c.Ticket.UserID,
		NewUserID:     c.UserID.Or(c.Ticket.UserID),
		Reason:        c.Reason,
	}
	q.record(ctx, e)
}

func (q *QueueChangeLog) record(ctx context.Context, e Entry) {
	e.Timestamp = q.now()
	e.Suspicious = IsSuspicious(e)

	fields := []zap.Field{
		zap.Int64("ticket_id", e.TicketID),
		zap.String("contact", e.ContactNumber),
		zap.Int64p("old_queue_id", e.OldQueueID),
		zap.Int64p("new_queue_id", e.NewQueueID),
		zap.Int64p("old_user_id", e.OldUserID),
		zap.Int64p("new_user_id", e.NewUserID),
		zap.String("reason", e.Reason),
	}
	if e.Suspicious {
		q.logger.Error("suspicious queue change", fields...)
	} else {
		q.logger.Info("queue change", fields...)
	}
	q.metrics.RecordQueueChange(e.Suspicious)

	if err := q.log.Append(ctx, e); err != nil {
		q.logger.Warn("queue change log append failed", zap.Error(err))
	}
}

// History returns the entries of one ticket, oldest first.
func (q *QueueChangeLog) History(ctx context.Context, ticketID int64) ([]Entry, error) {
	entries, err := q.log.Entries(ctx)
	if err != nil {
		return nil, err
	}
	out := []Entry{}
	for _, e := range entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Stats summarises the held entries.
func (q *QueueChangeLog) Stats(ctx context.Context) (Stats, error) {
	entries, err := q.log.Entries(ctx)
	if err != nil {
		return Stats{}, err
	}
	return computeStats(entries), nil
}

// Clear drops every entry.
func (q *QueueChangeLog) Clear(ctx context.Context) error {
	return q.log.Clear(ctx)
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

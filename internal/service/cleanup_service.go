package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/observability"
	"github.com/spec-kit/chatdesk/internal/repository"
)

// Sweep triggers, recorded on the swept event.
const (
	TriggerInterval = "interval"
	TriggerClosure  = "closure"
	TriggerManual   = "manual"
)

// CleanupService closes pending tickets whose last message is the rating
// invitation, i.e. tickets reopened by trailing automated traffic.
type CleanupService struct {
	tickets    repository.TicketRepository
	tx         repository.Transactor
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	rating     RatingPrompt
	now        func() time.Time
}

// CleanupDependencies bundles collaborators for the cleanup service.
type CleanupDependencies struct {
	TicketRepo repository.TicketRepository
	Tx         repository.Transactor
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Rating     RatingPrompt
	Now        func() time.Time
}

// NewCleanupService constructs the service.
func NewCleanupService(deps CleanupDependencies) *CleanupService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &CleanupService{
		tickets:    deps.TicketRepo,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		rating:     deps.Rating,
		now:        now,
	}
}

// Sweep closes every matching ticket and returns how many were closed.
// Running it again right away closes nothing.
func (s *CleanupService) Sweep(ctx context.Context) (int, error) {
	return s.SweepFor(ctx, TriggerManual)
}

// SweepFor is Sweep with the trigger recorded on logs and events.
func (s *CleanupService) SweepFor(ctx context.Context, trigger string) (int, error) {
	prefixes := s.rating.Prefixes()
	if len(prefixes) == 0 {
		return 0, nil
	}
	filter := repository.TicketFilter{
		Statuses:            []domain.TicketStatus{domain.TicketStatusPending},
		LastMessagePrefixes: prefixes,
	}

	var (
		swept  []domain.Ticket
		closed int
	)
	err := s.withinTx(ctx, func(ctx context.Context) error {
		found, err := s.tickets.FindAll(ctx, filter)
		if err != nil {
			return fmt.Errorf("find rating tickets: %w", err)
		}
		if len(found) == 0 {
			return nil
		}
		ids := make([]int64, 0, len(found))
		for _, t := range found {
			ids = append(ids, t.ID)
		}
		target := filter
		target.IDs = ids
		n, err := s.tickets.BulkUpdate(ctx, target, domain.TicketChanges{
			Status:  domain.Some(domain.TicketStatusClosed),
			UserID:  domain.Null[int64](),
			QueueID: domain.Null[int64](),
		})
		if err != nil {
			return fmt.Errorf("close rating tickets: %w", err)
		}
		closed = int(n)
		if closed == len(found) {
			swept = found
			return nil
		}
		// A ticket reopened between the read and the update keeps its status;
		// report only the ones the update closed.
		swept, err = s.tickets.FindAll(ctx, repository.TicketFilter{
			IDs:      ids,
			Statuses: []domain.TicketStatus{domain.TicketStatusClosed},
		})
		if err != nil {
			return fmt.Errorf("reload swept tickets: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	byCompany := make(map[int64][]int64)
	var companies []int64
	for _, t := range swept {
		if _, ok := byCompany[t.CompanyID]; !ok {
			companies = append(companies, t.CompanyID)
		}
		byCompany[t.CompanyID] = append(byCompany[t.CompanyID], t.ID)
		s.logger.Info("closed ticket left pending by rating traffic",
			zap.Int64("ticket_id", t.ID),
			zap.Int64("company_id", t.CompanyID),
			zap.Int64("contact_id", t.ContactID),
			zap.String("last_message", t.LastMessageText()),
			zap.String("trigger", trigger))
	}
	s.metrics.RecordSweep(closed)
	for _, companyID := range companies {
		ids := byCompany[companyID]
		publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(events.EventTicketsSwept, companyID, 0, s.now(),
			events.TicketsSweptPayload{Closed: len(ids), TicketIDs: ids, Trigger: trigger}))
	}
	return closed, nil
}

func (s *CleanupService) withinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithinTx(ctx, fn)
}

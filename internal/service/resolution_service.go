package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/observability"
	"github.com/spec-kit/chatdesk/internal/repository"
	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

// Resolution outcomes, also used as metric labels.
const (
	OutcomeCreated      = "created"
	OutcomeReconciled   = "reconciled"
	OutcomeForceOpen    = "force-open"
	OutcomeKeptAssigned = "kept-assigned"
	OutcomeSuppressed   = "suppressed"
	OutcomeReopened     = "reopened"
	OutcomeReset        = "reset"
	OutcomeUpdated      = "updated"
)

// DefaultReopenGrace is used when neither the company setting nor the
// configuration provide a continuation window.
const DefaultReopenGrace = 2 * time.Hour

// ResolutionService maps inbound messages to the ticket of their conversation.
type ResolutionService struct {
	repos       *repository.Store
	tracking    *TrackingService
	audit       *audit.QueueChangeLog
	dispatcher  events.Dispatcher
	broadcaster events.Broadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
	rating      RatingPrompt
	grace       time.Duration
	now         func() time.Time
}

// ResolutionDependencies bundles collaborators for the resolution service.
type ResolutionDependencies struct {
	Repos       *repository.Store
	Tracking    *TrackingService
	Audit       *audit.QueueChangeLog
	Dispatcher  events.Dispatcher
	Broadcaster events.Broadcaster
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Rating      RatingPrompt
	ReopenGrace time.Duration
	Now         func() time.Time
}

// NewResolutionService constructs the service.
func NewResolutionService(deps ResolutionDependencies) *ResolutionService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	grace := deps.ReopenGrace
	if grace <= 0 {
		grace = DefaultReopenGrace
	}
	return &ResolutionService{
		repos:       deps.Repos,
		tracking:    deps.Tracking,
		audit:       deps.Audit,
		dispatcher:  deps.Dispatcher,
		broadcaster: deps.Broadcaster,
		logger:      logger,
		metrics:     deps.Metrics,
		rating:      deps.Rating,
		grace:       grace,
		now:         now,
	}
}

// InboundMessage is the message that triggered a resolution.
type InboundMessage struct {
	Body   string
	FromMe bool
}

// ResolveInput describes one inbound event.
type ResolveInput struct {
	Contact        *domain.Contact
	WhatsappID     int64
	UnreadMessages int
	CompanyID      int64
	// GroupContact is set when the message was posted in a group; the group
	// owns the conversation.
	GroupContact *domain.Contact
	ForceOpen    bool
	Message      *InboundMessage
}

func (in ResolveInput) subject() *domain.Contact {
	if in.GroupContact != nil {
		return in.GroupContact
	}
	return in.Contact
}

type resolution struct {
	ticket  *domain.Ticket
	outcome string
	// before is nil for a created ticket.
	before *events.TicketState
	reason string
}

// Resolve returns the ticket the inbound event belongs to, reusing, reopening
// or creating one. The returned ticket carries its associations.
func (s *ResolutionService) Resolve(ctx context.Context, in ResolveInput) (*domain.Ticket, error) {
	if in.Contact == nil {
		return nil, apperrors.NewValidationError("contact is required", nil)
	}

	res, err := s.resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	// A ticket that stays closed has no running pass to track.
	if res.outcome != OutcomeSuppressed {
		if _, err := s.tracking.Ensure(ctx, res.ticket); err != nil {
			return nil, fmt.Errorf("ensure tracking: %w", err)
		}
	}

	ticket, err := s.repos.Tickets.GetByID(ctx, res.ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("reload ticket: %w", err)
	}
	if err := attachAssociations(ctx, s.repos, ticket); err != nil {
		return nil, fmt.Errorf("load associations: %w", err)
	}

	s.metrics.RecordResolution(res.outcome)
	s.logger.Debug("ticket resolved",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("contact_id", ticket.ContactID),
		zap.Int64("whatsapp_id", ticket.WhatsappID),
		zap.String("status", string(ticket.Status)),
		zap.String("outcome", res.outcome))

	s.publish(ctx, ticket, res)
	announce(ctx, s.broadcaster, s.logger, ticket, res.before)
	return ticket, nil
}

func (s *ResolutionService) resolve(ctx context.Context, in ResolveInput) (resolution, error) {
	contactID := in.subject().ID
	companyID := in.CompanyID

	current, err := s.repos.Tickets.FindOne(ctx, repository.TicketFilter{
		ContactID:  &contactID,
		CompanyID:  &companyID,
		WhatsappID: &in.WhatsappID,
		Statuses:   []domain.TicketStatus{domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusClosed},
	}, repository.OrderByIDDesc)
	if err != nil {
		return resolution{}, fmt.Errorf("find conversation ticket: %w", err)
	}
	if current != nil {
		return s.reuse(ctx, current, in, false)
	}

	elsewhere, err := s.repos.Tickets.FindOne(ctx, repository.TicketFilter{
		ContactID:     &contactID,
		CompanyID:     &companyID,
		WhatsappIDNot: &in.WhatsappID,
		Statuses:      domain.LiveStatuses,
	}, repository.OrderByIDDesc)
	if err != nil {
		return resolution{}, fmt.Errorf("find ticket on other connection: %w", err)
	}

	if elsewhere == nil {
		candidate, err := s.continuation(ctx, in)
		if err != nil {
			return resolution{}, err
		}
		if candidate != nil {
			return s.reset(ctx, candidate, in)
		}
	} else {
		s.logger.Debug("contact has a live ticket on another connection",
			zap.Int64("contact_id", contactID),
			zap.Int64("ticket_id", elsewhere.ID),
			zap.Int64("whatsapp_id", elsewhere.WhatsappID))
	}

	return s.create(ctx, in)
}

// continuation finds an older ticket that the inbound event may take over:
// for groups any ticket of the group, otherwise a ticket of this connection
// touched within the grace window. The first lookup already covered this
// connection in every status, so for a single contact only a ticket written
// after that read can match here.
func (s *ResolutionService) continuation(ctx context.Context, in ResolveInput) (*domain.Ticket, error) {
	contactID := in.subject().ID
	companyID := in.CompanyID

	filter := repository.TicketFilter{ContactID: &contactID, CompanyID: &companyID}
	if in.GroupContact == nil {
		now := s.now()
		from := now.Add(-s.graceWindow(ctx, companyID))
		filter.WhatsappID = &in.WhatsappID
		filter.UpdatedFrom = &from
		filter.UpdatedTo = &now
	}
	t, err := s.repos.Tickets.FindOne(ctx, filter, repository.OrderByUpdatedDesc)
	if err != nil {
		return nil, fmt.Errorf("find continuation ticket: %w", err)
	}
	return t, nil
}

func (s *ResolutionService) graceWindow(ctx context.Context, companyID int64) time.Duration {
	raw, ok, err := s.repos.Settings.Get(ctx, companyID, domain.SettingTimeCreateNewTicket)
	if err != nil {
		s.logger.Warn("read grace window setting", zap.Int64("company_id", companyID), zap.Error(err))
		return s.grace
	}
	if !ok {
		return s.grace
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		return s.grace
	}
	return time.Duration(secs) * time.Second
}

func (s *ResolutionService) reuse(ctx context.Context, t *domain.Ticket, in ResolveInput, reconciling bool) (resolution, error) {
	changes := domain.TicketChanges{UnreadMessages: domain.Some(in.UnreadMessages)}
	if in.Message != nil {
		changes.LastMessage = domain.Some(&in.Message.Body)
	}

	var outcome, reason string
	switch {
	case in.ForceOpen:
		changes.Status = domain.Some(domain.TicketStatusOpen)
		changes.WhatsappID = domain.Some(in.WhatsappID)
		outcome = OutcomeForceOpen
	case t.Status == domain.TicketStatusOpen && t.HasAgent():
		changes.WhatsappID = domain.Some(in.WhatsappID)
		outcome = OutcomeKeptAssigned
	case t.Status == domain.TicketStatusClosed:
		if s.staysClosed(t, in) {
			outcome = OutcomeSuppressed
			break
		}
		changes.Status = domain.Some(domain.TicketStatusPending)
		changes.UserID = domain.Null[int64]()
		changes.WhatsappID = domain.Some(in.WhatsappID)
		outcome = OutcomeReopened
		reason = audit.ReasonInboundReopen
	default:
		changes.WhatsappID = domain.Some(in.WhatsappID)
		outcome = OutcomeUpdated
	}

	before := events.StateOf(t)
	if err := s.repos.Tickets.Update(ctx, t.ID, changes); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) && !reconciling {
			return s.reconcile(ctx, in)
		}
		return resolution{}, fmt.Errorf("update ticket %d: %w", t.ID, err)
	}

	if reason != "" {
		s.recordChange(ctx, t, in, changes, reason)
	}
	updated := *t
	changes.Apply(&updated)
	if reconciling {
		outcome = OutcomeReconciled
	}
	return resolution{ticket: &updated, outcome: outcome, before: &before, reason: reason}, nil
}

// staysClosed decides whether trailing rating traffic must leave a closed
// ticket alone. The inbound message decides when present, the stored last
// message otherwise. A customer's answer to the rating prompt is not the
// prompt itself, so it reopens the ticket.
func (s *ResolutionService) staysClosed(t *domain.Ticket, in ResolveInput) bool {
	if in.Message != nil {
		return s.rating.Matches(in.Message.Body)
	}
	return s.rating.Matches(t.LastMessageText())
}

func (s *ResolutionService) reset(ctx context.Context, t *domain.Ticket, in ResolveInput) (resolution, error) {
	changes := domain.TicketChanges{
		Status:         domain.Some(domain.TicketStatusPending),
		UserID:         domain.Null[int64](),
		QueueID:        domain.Null[int64](),
		UnreadMessages: domain.Some(in.UnreadMessages),
	}
	if in.Message != nil {
		changes.LastMessage = domain.Some(&in.Message.Body)
	}

	before := events.StateOf(t)
	if err := s.repos.Tickets.Update(ctx, t.ID, changes); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return s.reconcile(ctx, in)
		}
		return resolution{}, fmt.Errorf("reset ticket %d: %w", t.ID, err)
	}
	s.recordChange(ctx, t, in, changes, audit.ReasonInboundReset)

	updated := *t
	changes.Apply(&updated)
	if _, err := s.tracking.Restamp(ctx, &updated); err != nil {
		return resolution{}, fmt.Errorf("restamp tracking: %w", err)
	}
	return resolution{ticket: &updated, outcome: OutcomeReset, before: &before, reason: audit.ReasonInboundReset}, nil
}

func (s *ResolutionService) create(ctx context.Context, in ResolveInput) (resolution, error) {
	t := &domain.Ticket{
		ContactID:      in.subject().ID,
		CompanyID:      in.CompanyID,
		WhatsappID:     in.WhatsappID,
		Status:         domain.TicketStatusPending,
		UnreadMessages: in.UnreadMessages,
		IsGroup:        in.GroupContact != nil,
	}
	if in.Message != nil {
		body := in.Message.Body
		t.LastMessage = &body
	}

	err := s.repos.Tickets.Create(ctx, t)
	if errors.Is(err, repository.ErrUniqueViolation) {
		s.logger.Info("concurrent ticket creation, reconciling",
			zap.Int64("contact_id", t.ContactID),
			zap.Int64("whatsapp_id", t.WhatsappID))
		return s.reconcile(ctx, in)
	}
	if err != nil {
		return resolution{}, fmt.Errorf("create ticket: %w", err)
	}
	return resolution{ticket: t, outcome: OutcomeCreated}, nil
}

// reconcile adopts the live ticket that won a race on the conversation key.
func (s *ResolutionService) reconcile(ctx context.Context, in ResolveInput) (resolution, error) {
	contactID := in.subject().ID
	live, err := s.repos.Tickets.FindOne(ctx, repository.TicketFilter{
		ContactID:  &contactID,
		CompanyID:  &in.CompanyID,
		WhatsappID: &in.WhatsappID,
		Statuses:   domain.LiveStatuses,
	}, repository.OrderByIDDesc)
	if err != nil {
		return resolution{}, fmt.Errorf("find live ticket: %w", err)
	}
	if live == nil {
		return resolution{}, fmt.Errorf("reconcile contact %d: %w", contactID, repository.ErrUniqueViolation)
	}
	return s.reuse(ctx, live, in, true)
}

func (s *ResolutionService) recordChange(ctx context.Context, t *domain.Ticket, in ResolveInput, changes domain.TicketChanges, reason string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, audit.Change{
		Ticket:        t,
		ContactNumber: in.subject().Number,
		QueueID:       changes.QueueID,
		UserID:        changes.UserID,
		Reason:        reason,
	})
}

func (s *ResolutionService) publish(ctx context.Context, t *domain.Ticket, res resolution) {
	var eventType events.EventType
	switch res.outcome {
	case OutcomeCreated:
		eventType = events.EventTicketCreated
	case OutcomeReopened, OutcomeReset:
		eventType = events.EventTicketReopened
	default:
		return
	}
	var previous domain.TicketStatus
	var previousUserID *int64
	if res.before != nil {
		previous = res.before.Status
		previousUserID = res.before.UserID
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(eventType, t.CompanyID, t.ID, s.now(),
		events.LifecyclePayload(t, previous, previousUserID, res.reason)))
}

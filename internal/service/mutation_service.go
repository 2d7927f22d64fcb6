package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/messaging"
	"github.com/spec-kit/chatdesk/internal/notifier"
	"github.com/spec-kit/chatdesk/internal/observability"
	"github.com/spec-kit/chatdesk/internal/repository"
	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

// Mutation results, also used as metric labels.
const (
	mutationOK       = "ok"
	mutationConflict = "conflict"
	mutationNotFound = "not_found"
	mutationRejected = "rejected"
	mutationFailed   = "error"
)

// SweepScheduler enqueues a cleanup sweep to run after delay.
type SweepScheduler interface {
	ScheduleSweep(delay time.Duration)
}

// MutationService applies agent and system changes to tickets.
type MutationService struct {
	repos       *repository.Store
	tracking    *TrackingService
	audit       *audit.QueueChangeLog
	sender      messaging.Sender
	notifier    notifier.Notifier
	scheduler   SweepScheduler
	dispatcher  events.Dispatcher
	broadcaster events.Broadcaster
	logger      *zap.Logger
	metrics     *observability.Metrics
	reporter    *observability.Reporter
	templates   config.Templates
	sweepDelay  time.Duration
	now         func() time.Time
}

// MutationDependencies bundles collaborators for the mutation service.
type MutationDependencies struct {
	Repos       *repository.Store
	Tracking    *TrackingService
	Audit       *audit.QueueChangeLog
	Sender      messaging.Sender
	Notifier    notifier.Notifier
	Scheduler   SweepScheduler
	Dispatcher  events.Dispatcher
	Broadcaster events.Broadcaster
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	Reporter    *observability.Reporter
	Templates   config.Templates
	SweepDelay  time.Duration
	Now         func() time.Time
}

// NewMutationService constructs the service.
func NewMutationService(deps MutationDependencies) *MutationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	sender := deps.Sender
	if sender == nil {
		sender = messaging.NopSender{}
	}
	return &MutationService{
		repos:       deps.Repos,
		tracking:    deps.Tracking,
		audit:       deps.Audit,
		sender:      sender,
		notifier:    deps.Notifier,
		scheduler:   deps.Scheduler,
		dispatcher:  deps.Dispatcher,
		broadcaster: deps.Broadcaster,
		logger:      logger,
		metrics:     deps.Metrics,
		reporter:    deps.Reporter,
		templates:   deps.Templates,
		sweepDelay:  deps.SweepDelay,
		now:         now,
	}
}

// MutationInput describes a requested ticket change.
type MutationInput struct {
	TicketID   int64
	CompanyID  int64
	Changes    domain.TicketChanges
	SkipRating bool
	// Reason labels the change in the queue change log; a reason mentioning
	// a transfer allows moving an assigned ticket to another queue.
	Reason string
}

// MutationResult is the committed outcome of a mutation.
type MutationResult struct {
	Ticket         *domain.Ticket
	Tracking       *domain.TicketTracking
	PreviousStatus domain.TicketStatus
	PreviousUserID *int64
}

// postCommit holds the side effects of a mutation. They run in field order
// once the transaction has committed.
type postCommit struct {
	completion func(context.Context)
	transfer   func(context.Context)
	notify     func(context.Context)
	sweep      func()
	after      func(context.Context)
}

func (p postCommit) run(ctx context.Context) {
	for _, hook := range []func(context.Context){p.completion, p.transfer, p.notify} {
		if hook != nil {
			hook(ctx)
		}
	}
	if p.sweep != nil {
		p.sweep()
	}
	if p.after != nil {
		p.after(ctx)
	}
}

// Mutate applies in.Changes to a ticket inside one transaction and fires the
// resulting side effects after commit. Conflicts, missing records and
// rejected queue moves come back as DomainErrors; anything else is reported
// and returned as an internal error.
func (s *MutationService) Mutate(ctx context.Context, in MutationInput) (*MutationResult, error) {
	var (
		result *MutationResult
		hooks  postCommit
	)
	err := s.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		result, hooks, err = s.mutate(ctx, in)
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, in, err)
	}

	hooks.run(ctx)
	s.metrics.RecordMutation(mutationOK)
	return result, nil
}

func (s *MutationService) fail(ctx context.Context, in MutationInput, err error) error {
	switch {
	case apperrors.IsConflict(err):
		s.metrics.RecordMutation(mutationConflict)
	case apperrors.IsNotFound(err):
		s.metrics.RecordMutation(mutationNotFound)
	case apperrors.HasCode(err, apperrors.CodeValidation):
		s.metrics.RecordMutation(mutationRejected)
	default:
		s.metrics.RecordMutation(mutationFailed)
		s.reporter.Report(ctx, "mutation", err,
			zap.Int64("ticket_id", in.TicketID),
			zap.Int64("company_id", in.CompanyID))
		return apperrors.NewInternalError(err)
	}
	return err
}

func (s *MutationService) mutate(ctx context.Context, in MutationInput) (*MutationResult, postCommit, error) {
	var hooks postCommit
	now := s.now()

	ticket, err := s.repos.Tickets.GetByID(ctx, in.TicketID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && ticket.CompanyID != in.CompanyID) {
		return nil, hooks, apperrors.NewNotFound("ticket", map[string]any{"ticketId": in.TicketID})
	}
	if err != nil {
		return nil, hooks, fmt.Errorf("load ticket: %w", err)
	}
	tracking, err := s.tracking.Ensure(ctx, ticket)
	if err != nil {
		return nil, hooks, fmt.Errorf("ensure tracking: %w", err)
	}
	if _, err := s.repos.Messages.MarkTicketRead(ctx, ticket.ID); err != nil {
		return nil, hooks, fmt.Errorf("mark messages read: %w", err)
	}
	contact, err := s.repos.Contacts.GetByID(ctx, ticket.ContactID)
	if err != nil {
		return nil, hooks, missing("contact", ticket.ContactID, err)
	}

	changes := in.Changes
	queue, user, err := s.references(ctx, ticket, changes)
	if err != nil {
		return nil, hooks, err
	}

	change := audit.Change{
		Ticket:        ticket,
		ContactNumber: contact.Number,
		QueueID:       changes.QueueID,
		UserID:        changes.UserID,
		Reason:        in.Reason,
	}
	if s.audit != nil {
		if err := s.audit.Check(ctx, change); err != nil {
			return nil, hooks, err
		}
	}

	previousStatus := ticket.Status
	previousUserID := ticket.UserID
	before := events.StateOf(ticket)
	targetWhatsappID := changes.WhatsappID.Or(ticket.WhatsappID)

	if previousStatus == domain.TicketStatusClosed || targetWhatsappID != ticket.WhatsappID {
		if changes.Status.Or(ticket.Status).Live() {
			if err := s.checkOtherOpen(ctx, ticket, targetWhatsappID); err != nil {
				return nil, hooks, err
			}
		}
		changes.Chatbot = domain.Some(false)
		changes.QueueOptionID = domain.Null[int64]()
	}

	var trackingChanges domain.TrackingChanges
	closing := changes.Status.Set && changes.Status.Value == domain.TicketStatusClosed
	if closing {
		whatsapp, err := s.repos.Whatsapps.GetByID(ctx, ticket.WhatsappID)
		if err != nil {
			return nil, hooks, missing("whatsapp", ticket.WhatsappID, err)
		}
		if !contact.IsGroup && !contact.DisableBot && whatsapp.CompletionMessage != "" {
			hooks.completion = s.sendHook(contact, ticket, leftToRightMark+whatsapp.CompletionMessage, "completion")
		}
		changes.UseIntegration = domain.Some(false)
		changes.IntegrationID = domain.Null[int64]()
		changes.PromptID = domain.Null[int64]()
		changes.TypebotStatus = domain.Some(false)
		changes.TypebotSessionID = domain.Null[string]()

		trackingChanges.FinishedAt = domain.TimeOpt(now)
		trackingChanges.WhatsappID = domain.Some(targetWhatsappID)
		trackingChanges.UserID = domain.Some(changes.UserID.Or(ticket.UserID))
	}

	if changes.QueueID.Set && changes.QueueID.Value != nil {
		trackingChanges.QueuedAt = domain.TimeOpt(now)
	}

	text, err := s.transferText(ctx, ticket, changes, queue, user)
	if err != nil {
		return nil, hooks, err
	}
	if text != "" {
		hooks.transfer = s.sendHook(contact, ticket, text, "transfer")
	}

	if err := s.repos.Tickets.Update(ctx, ticket.ID, changes); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, hooks, apperrors.NewOtherOpenTicket(map[string]any{"ticketId": ticket.ID})
		}
		return nil, hooks, fmt.Errorf("update ticket: %w", err)
	}
	updated, err := s.repos.Tickets.GetByID(ctx, ticket.ID)
	if err != nil {
		return nil, hooks, fmt.Errorf("reload ticket: %w", err)
	}

	if changes.Status.Set {
		switch updated.Status {
		case domain.TicketStatusPending:
			trackingChanges.WhatsappID = domain.Some(updated.WhatsappID)
			trackingChanges.QueuedAt = domain.TimeOpt(now)
			trackingChanges.StartedAt = domain.Null[time.Time]()
			trackingChanges.UserID = domain.Null[int64]()
		case domain.TicketStatusOpen:
			trackingChanges.WhatsappID = domain.Some(updated.WhatsappID)
			trackingChanges.StartedAt = domain.TimeOpt(now)
			trackingChanges.RatingAt = domain.Null[time.Time]()
			trackingChanges.Rated = domain.Some(false)
			trackingChanges.UserID = domain.Some(updated.UserID)
		}
	}
	if err := s.tracking.Apply(ctx, tracking, trackingChanges); err != nil {
		return nil, hooks, fmt.Errorf("update tracking: %w", err)
	}

	if err := attachAssociations(ctx, s.repos, updated); err != nil {
		return nil, hooks, fmt.Errorf("load associations: %w", err)
	}

	if closing {
		if s.notifier != nil {
			hooks.notify = func(ctx context.Context) {
				s.notifier.NotifyClosure(ctx, updated, tracking, in.SkipRating)
			}
		}
		if s.scheduler != nil {
			hooks.sweep = func() {
				s.scheduler.ScheduleSweep(s.sweepDelay)
			}
		}
	}

	if change.Reason == "" {
		change.Reason = audit.ReasonAgentUpdate
	}
	hooks.after = func(ctx context.Context) {
		if s.audit != nil {
			s.audit.Record(ctx, change)
		}
		announce(ctx, s.broadcaster, s.logger, updated, &before)
		s.publish(ctx, updated, previousStatus, previousUserID, in.Reason)
	}

	s.logger.Info("ticket updated",
		zap.Int64("ticket_id", updated.ID),
		zap.String("previous_status", string(previousStatus)),
		zap.String("status", string(updated.Status)),
		zap.Int64p("queue_id", updated.QueueID),
		zap.Int64p("user_id", updated.UserID),
		zap.Bool("skip_rating", in.SkipRating))

	return &MutationResult{
		Ticket:         updated,
		Tracking:       tracking,
		PreviousStatus: previousStatus,
		PreviousUserID: previousUserID,
	}, hooks, nil
}

// references loads the queue and agent the change set points at.
func (s *MutationService) references(ctx context.Context, t *domain.Ticket, changes domain.TicketChanges) (*domain.Queue, *domain.User, error) {
	var (
		queue *domain.Queue
		user  *domain.User
		err   error
	)
	if queueID := changes.QueueID.Or(t.QueueID); queueID != nil {
		queue, err = s.repos.Queues.GetByID(ctx, *queueID)
		if err != nil && (changes.QueueID.Set || !errors.Is(err, repository.ErrNotFound)) {
			return nil, nil, missing("queue", *queueID, err)
		}
	}
	if userID := changes.UserID.Or(t.UserID); userID != nil {
		user, err = s.repos.Users.GetByID(ctx, *userID)
		if err != nil && (changes.UserID.Set || !errors.Is(err, repository.ErrNotFound)) {
			return nil, nil, missing("user", *userID, err)
		}
	}
	return queue, user, nil
}

func (s *MutationService) checkOtherOpen(ctx context.Context, t *domain.Ticket, whatsappID int64) error {
	other, err := s.repos.Tickets.FindOne(ctx, repository.TicketFilter{
		ContactID:  &t.ContactID,
		CompanyID:  &t.CompanyID,
		WhatsappID: &whatsappID,
		Statuses:   domain.LiveStatuses,
	}, repository.OrderByIDDesc)
	if err != nil {
		return fmt.Errorf("check open tickets: %w", err)
	}
	if other != nil && other.ID != t.ID {
		return apperrors.NewOtherOpenTicket(map[string]any{
			"ticketId":   other.ID,
			"whatsappId": whatsappID,
		})
	}
	return nil
}

// transferText picks the message telling the contact about a queue or agent
// move. Both sides of a pair must be set for it to count as a change.
func (s *MutationService) transferText(ctx context.Context, t *domain.Ticket, changes domain.TicketChanges, queue *domain.Queue, user *domain.User) (string, error) {
	value, ok, err := s.repos.Settings.Get(ctx, t.CompanyID, domain.SettingSendTransferMessage)
	if err != nil {
		return "", fmt.Errorf("read transfer setting: %w", err)
	}
	if !ok || value != domain.SettingEnabled {
		return "", nil
	}

	oldQueue, newQueue := t.QueueID, changes.QueueID.Or(t.QueueID)
	oldUser, newUser := t.UserID, changes.UserID.Or(t.UserID)
	queueMoved := oldQueue != nil && newQueue != nil && *oldQueue != *newQueue
	userMoved := oldUser != nil && newUser != nil && *oldUser != *newUser

	var queueName, agentName string
	if queue != nil {
		queueName = queue.Name
	}
	if user != nil {
		agentName = user.Name
	}

	switch {
	case queueMoved && sameID(oldUser, newUser):
		return config.Render(s.templates.QueueTransfer, queueName, agentName), nil
	case userMoved && sameID(oldQueue, newQueue):
		return config.Render(s.templates.AgentTransfer, queueName, agentName), nil
	case queueMoved && userMoved:
		return config.Render(s.templates.QueueAgentTransfer, queueName, agentName), nil
	case oldUser != nil && newUser == nil && newQueue != nil && !sameID(oldQueue, newQueue):
		return config.Render(s.templates.AgentRemoved, queueName, agentName), nil
	}
	return "", nil
}

func (s *MutationService) sendHook(contact *domain.Contact, t *domain.Ticket, text, kind string) func(context.Context) {
	address := messaging.ContactAddress(contact.Number, t.IsGroup)
	ticketID := t.ID
	return func(ctx context.Context) {
		if err := s.sender.SendText(ctx, address, text); err != nil {
			s.logger.Warn("send automated message failed",
				zap.Int64("ticket_id", ticketID),
				zap.String("kind", kind),
				zap.Error(err))
		}
	}
}

func (s *MutationService) publish(ctx context.Context, t *domain.Ticket, previous domain.TicketStatus, previousUserID *int64, reason string) {
	eventType := events.EventTicketUpdated
	switch {
	case t.Status == domain.TicketStatusClosed && previous != domain.TicketStatusClosed:
		eventType = events.EventTicketClosed
	case previous == domain.TicketStatusClosed && t.Status.Live():
		eventType = events.EventTicketReopened
	}
	publishEvent(ctx, s.dispatcher, s.logger, events.NewEvent(eventType, t.CompanyID, t.ID, s.now(),
		events.LifecyclePayload(t, previous, previousUserID, reason)))
}

func missing(resource string, id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{resource + "Id": id})
	}
	return fmt.Errorf("load %s: %w", resource, err)
}

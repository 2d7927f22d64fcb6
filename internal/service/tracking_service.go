package service

import (
	"context"
	"time"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
)

// TrackingService keeps the per-pass timestamps of tickets.
type TrackingService struct {
	tracking repository.TrackingRepository
	now      func() time.Time
}

// TrackingDependencies bundles the tracking collaborators.
type TrackingDependencies struct {
	TrackingRepo repository.TrackingRepository
	Now          func() time.Time
}

// NewTrackingService constructs the service.
func NewTrackingService(deps TrackingDependencies) *TrackingService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TrackingService{tracking: deps.TrackingRepo, now: now}
}

// Ensure returns the current pass of t, opening one when none is running.
func (s *TrackingService) Ensure(ctx context.Context, t *domain.Ticket) (*domain.TicketTracking, error) {
	return s.tracking.FindOrCreate(ctx, t.ID, t.CompanyID, t.WhatsappID)
}

// Restamp puts the current pass of t back in the queue with no agent.
func (s *TrackingService) Restamp(ctx context.Context, t *domain.Ticket) (*domain.TicketTracking, error) {
	tr, err := s.Ensure(ctx, t)
	if err != nil {
		return nil, err
	}
	err = s.Apply(ctx, tr, domain.TrackingChanges{
		WhatsappID: domain.Some(t.WhatsappID),
		UserID:     domain.Null[int64](),
		QueuedAt:   domain.TimeOpt(s.now()),
		StartedAt:  domain.Null[time.Time](),
	})
	if err != nil {
		return nil, err
	}
	return tr, nil
}

// Apply persists changes and mirrors them onto tr.
func (s *TrackingService) Apply(ctx context.Context, tr *domain.TicketTracking, changes domain.TrackingChanges) error {
	if err := s.tracking.Update(ctx, tr.ID, changes); err != nil {
		return err
	}
	changes.Apply(tr)
	return nil
}

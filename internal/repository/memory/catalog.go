package memory

import (
	"context"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
)

type trackingRepo struct{ s *Store }

func (r trackingRepo) FindOrCreate(ctx context.Context, ticketID, companyID, whatsappID int64) (*domain.TicketTracking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if tr, ok := r.s.unfinishedTracking(ticketID); ok {
		return &tr, nil
	}
	r.s.nextTrackingID++
	now := r.s.now()
	tr := domain.TicketTracking{
		ID:         r.s.nextTrackingID,
		TicketID:   ticketID,
		CompanyID:  companyID,
		WhatsappID: whatsappID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.s.touchTracking(ctx, tr.ID)
	r.s.tracking[tr.ID] = tr
	return &tr, nil
}

func (r trackingRepo) Update(ctx context.Context, id int64, changes domain.TrackingChanges) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	tr, ok := r.s.tracking[id]
	if !ok {
		return repository.ErrNotFound
	}
	changes.Apply(&tr)
	tr.UpdatedAt = r.s.now()
	r.s.touchTracking(ctx, id)
	r.s.tracking[id] = tr
	return nil
}

type contactRepo struct{ s *Store }

func (r contactRepo) GetByID(_ context.Context, id int64) (*domain.Contact, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.contacts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

type whatsappRepo struct{ s *Store }

func (r whatsappRepo) GetByID(_ context.Context, id int64) (*domain.Whatsapp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.whatsapps[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &w, nil
}

type queueRepo struct{ s *Store }

func (r queueRepo) GetByID(_ context.Context, id int64) (*domain.Queue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	q, ok := r.s.queues[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

type userRepo struct{ s *Store }

func (r userRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

type settingRepo struct{ s *Store }

func (r settingRepo) Get(_ context.Context, companyID int64, key string) (string, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.settings[settingKey{companyID, key}]
	return v, ok, nil
}

type messageRepo struct{ s *Store }

func (r messageRepo) MarkTicketRead(ctx context.Context, ticketID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.touchUnread(ctx, ticketID)
	n := r.s.unread[ticketID]
	delete(r.s.unread, ticketID)
	return n, nil
}

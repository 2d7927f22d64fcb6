package memory

import (
	"context"
	"sort"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (r ticketRepo) FindOne(_ context.Context, filter repository.TicketFilter, order repository.TicketOrder) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var best *domain.Ticket
	for _, t := range r.s.tickets {
		if !matches(t, filter) {
			continue
		}
		if best == nil || ahead(t, *best, order) {
			candidate := t
			best = &candidate
		}
	}
	return best, nil
}

func ahead(a, b domain.Ticket, order repository.TicketOrder) bool {
	if order == repository.OrderByUpdatedDesc && !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

func (r ticketRepo) FindAll(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []domain.Ticket
	for _, t := range r.s.tickets {
		if matches(t, filter) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	candidate := *ticket
	candidate.ID = 0
	if r.s.conflicting(candidate) {
		return repository.ErrUniqueViolation
	}
	r.s.nextTicketID++
	now := r.s.now()
	candidate.ID = r.s.nextTicketID
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	r.s.touchTicket(ctx, candidate.ID)
	r.s.tickets[candidate.ID] = candidate
	*ticket = candidate
	return nil
}

func (r ticketRepo) Update(ctx context.Context, id int64, changes domain.TicketChanges) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tickets[id]
	if !ok {
		return repository.ErrNotFound
	}
	changes.Apply(&t)
	if r.s.conflicting(t) {
		return repository.ErrUniqueViolation
	}
	t.UpdatedAt = r.s.now()
	r.s.touchTicket(ctx, id)
	r.s.tickets[id] = t
	return nil
}

func (r ticketRepo) BulkUpdate(ctx context.Context, filter repository.TicketFilter, changes domain.TicketChanges) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	updated := make(map[int64]domain.Ticket)
	for id, t := range r.s.tickets {
		if !matches(t, filter) {
			continue
		}
		changes.Apply(&t)
		updated[id] = t
	}
	now := r.s.now()
	for id, t := range updated {
		if r.s.conflicting(t) {
			return 0, repository.ErrUniqueViolation
		}
		t.UpdatedAt = now
		updated[id] = t
	}
	for id, t := range updated {
		r.s.touchTicket(ctx, id)
		r.s.tickets[id] = t
	}
	return int64(len(updated)), nil
}

package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// TicketFilter narrows ticket lookups. Nil fields are ignored.
type TicketFilter struct {
	ID            *int64
	IDs           []int64
	ContactID     *int64
	CompanyID     *int64
	WhatsappID    *int64
	WhatsappIDNot *int64
	Statuses      []domain.TicketStatus
	UpdatedFrom   *time.Time
	UpdatedTo     *time.Time
	// LastMessagePrefixes matches tickets whose last message starts with any
	// of the given strings.
	LastMessagePrefixes []string
}

// TicketOrder picks the tie-breaker for FindOne.
type TicketOrder int

const (
	OrderByIDDesc TicketOrder = iota
	OrderByUpdatedDesc
)

func (o TicketOrder) sql() string {
	if o == OrderByUpdatedDesc {
		return "updated_at DESC, id DESC"
	}
	return "id DESC"
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// FindOne returns the first match under order, or nil when none matches.
	FindOne(ctx context.Context, filter TicketFilter, order TicketOrder) (*domain.Ticket, error)
	FindAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, id int64, changes domain.TicketChanges) error
	BulkUpdate(ctx context.Context, filter TicketFilter, changes domain.TicketChanges) (int64, error)
}

const ticketColumns = `id, contact_id, company_id, whatsapp_id, status, queue_id, user_id, is_group,
       unread_messages, last_message, chatbot, queue_option_id, use_integration, integration_id,
       prompt_id, typebot_status, typebot_session_id, created_at, updated_at`

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (contact_id, company_id, whatsapp_id, status, queue_id, user_id, is_group,
            unread_messages, last_message, chatbot, queue_option_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		ticket.ContactID,
		ticket.CompanyID,
		ticket.WhatsappID,
		ticket.Status,
		ticket.QueueID,
		ticket.UserID,
		ticket.IsGroup,
		ticket.UnreadMessages,
		ticket.LastMessage,
		ticket.Chatbot,
		ticket.QueueOptionID,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, id int64, changes domain.TicketChanges) error {
	var b builder
	sets := b.set(changes)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id=%s", strings.Join(sets, ", "), b.arg(id))
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, b.args...)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) BulkUpdate(ctx context.Context, filter TicketFilter, changes domain.TicketChanges) (int64, error) {
	var b builder
	sets := b.set(changes)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE %s", strings.Join(sets, ", "), b.where(filter))
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, b.args...)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := "SELECT " + ticketColumns + " FROM tickets WHERE id=$1"
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) FindOne(ctx context.Context, filter TicketFilter, order TicketOrder) (*domain.Ticket, error) {
	var b builder
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE %s ORDER BY %s LIMIT 1",
		ticketColumns, b.where(filter), order.sql())
	ticket, err := scanTicket(conn(ctx, r.pool).QueryRow(ctx, query, b.args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	return ticket, nil
}

func (r *ticketRepository) FindAll(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var b builder
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE %s ORDER BY id ASC", ticketColumns, b.where(filter))
	rows, err := conn(ctx, r.pool).Query(ctx, query, b.args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.ContactID,
		&ticket.CompanyID,
		&ticket.WhatsappID,
		&ticket.Status,
		&ticket.QueueID,
		&ticket.UserID,
		&ticket.IsGroup,
		&ticket.UnreadMessages,
		&ticket.LastMessage,
		&ticket.Chatbot,
		&ticket.QueueOptionID,
		&ticket.UseIntegration,
		&ticket.IntegrationID,
		&ticket.PromptID,
		&ticket.TypebotStatus,
		&ticket.TypebotSessionID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository touches the message thread of a ticket.
type MessageRepository interface {
	// MarkTicketRead flags every unread message of the ticket as read.
	MarkTicketRead(ctx context.Context, ticketID int64) (int64, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

func (r *messageRepository) MarkTicketRead(ctx context.Context, ticketID int64) (int64, error) {
	const query = `UPDATE messages SET read=TRUE, updated_at=NOW() WHERE ticket_id=$1 AND read=FALSE`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, ticketID)
	if err != nil {
		return 0, translate(err)
	}
	return cmd.RowsAffected(), nil
}

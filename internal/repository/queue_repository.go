package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// QueueRepository reads queues.
type QueueRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository returns a Postgres-backed implementation.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) GetByID(ctx context.Context, id int64) (*domain.Queue, error) {
	const query = `SELECT id, company_id, name FROM queues WHERE id=$1`
	var q domain.Queue
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&q.ID, &q.CompanyID, &q.Name); err != nil {
		return nil, translate(err)
	}
	return &q, nil
}

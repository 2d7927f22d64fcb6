package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// ContactRepository reads contacts.
type ContactRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Contact, error)
}

type contactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a Postgres-backed implementation.
func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

func (r *contactRepository) GetByID(ctx context.Context, id int64) (*domain.Contact, error) {
	const query = `
        SELECT id, company_id, name, number, is_group, disable_bot
        FROM contacts WHERE id=$1`
	var c domain.Contact
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.CompanyID,
		&c.Name,
		&c.Number,
		&c.IsGroup,
		&c.DisableBot,
	); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// WhatsappRepository reads channel connections.
type WhatsappRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Whatsapp, error)
}

type whatsappRepository struct {
	pool *pgxpool.Pool
}

// NewWhatsappRepository returns a Postgres-backed implementation.
func NewWhatsappRepository(pool *pgxpool.Pool) WhatsappRepository {
	return &whatsappRepository{pool: pool}
}

func (r *whatsappRepository) GetByID(ctx context.Context, id int64) (*domain.Whatsapp, error) {
	const query = `
        SELECT id, company_id, name, completion_message, rating_message
        FROM whatsapps WHERE id=$1`
	var w domain.Whatsapp
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&w.ID,
		&w.CompanyID,
		&w.Name,
		&w.CompletionMessage,
		&w.RatingMessage,
	); err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

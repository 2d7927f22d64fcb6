package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// UserRepository defines persistence access for agents.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	const query = `SELECT id, company_id, name FROM users WHERE id=$1`
	var u domain.User
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(&u.ID, &u.CompanyID, &u.Name); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

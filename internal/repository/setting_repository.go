package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// SettingRepository reads per-company settings.
type SettingRepository interface {
	// Get returns the value and whether the key is configured.
	Get(ctx context.Context, companyID int64, key string) (string, bool, error)
}

type settingRepository struct {
	pool *pgxpool.Pool
}

// NewSettingRepository returns a Postgres-backed implementation.
func NewSettingRepository(pool *pgxpool.Pool) SettingRepository {
	return &settingRepository{pool: pool}
}

func (r *settingRepository) Get(ctx context.Context, companyID int64, key string) (string, bool, error) {
	const query = `SELECT company_id, key, value FROM settings WHERE company_id=$1 AND key=$2`
	var s domain.Setting
	err := conn(ctx, r.pool).QueryRow(ctx, query, companyID, key).Scan(&s.CompanyID, &s.Key, &s.Value)
	if err != nil {
		if err = translate(err); errors.Is(err, ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return s.Value, true, nil
}

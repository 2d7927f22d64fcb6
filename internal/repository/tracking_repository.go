package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// TrackingRepository stores per-pass ticket timestamps.
type TrackingRepository interface {
	// FindOrCreate returns the unfinished tracking record of a ticket, creating
	// one stamped with company and connection when every pass is finished.
	FindOrCreate(ctx context.Context, ticketID, companyID, whatsappID int64) (*domain.TicketTracking, error)
	Update(ctx context.Context, id int64, changes domain.TrackingChanges) error
}

const trackingColumns = `id, ticket_id, company_id, whatsapp_id, user_id, queued_at, started_at,
       finished_at, rating_at, rated, created_at, updated_at`

type trackingRepository struct {
	pool *pgxpool.Pool
}

// NewTrackingRepository builds repository.
func NewTrackingRepository(pool *pgxpool.Pool) TrackingRepository {
	return &trackingRepository{pool: pool}
}

func (r *trackingRepository) FindOrCreate(ctx context.Context, ticketID, companyID, whatsappID int64) (*domain.TicketTracking, error) {
	q := conn(ctx, r.pool)
	query := "SELECT " + trackingColumns + " FROM ticket_trackings WHERE ticket_id=$1 AND finished_at IS NULL ORDER BY id DESC LIMIT 1"
	tracking, err := scanTracking(q.QueryRow(ctx, query, ticketID))
	if err == nil {
		return tracking, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, translate(err)
	}

	const insert = `
        INSERT INTO ticket_trackings (ticket_id, company_id, whatsapp_id)
        VALUES ($1,$2,$3)
        RETURNING ` + trackingColumns
	tracking, err = scanTracking(q.QueryRow(ctx, insert, ticketID, companyID, whatsappID))
	if err != nil {
		return nil, translate(err)
	}
	return tracking, nil
}

func (r *trackingRepository) Update(ctx context.Context, id int64, changes domain.TrackingChanges) error {
	var b builder
	var sets []string
	add := func(column string, v any) {
		sets = append(sets, column+"="+b.arg(v))
	}
	if changes.UserID.Set {
		add("user_id", changes.UserID.Value)
	}
	if changes.WhatsappID.Set {
		add("whatsapp_id", changes.WhatsappID.Value)
	}
	if changes.QueuedAt.Set {
		add("queued_at", changes.QueuedAt.Value)
	}
	if changes.StartedAt.Set {
		add("started_at", changes.StartedAt.Value)
	}
	if changes.FinishedAt.Set {
		add("finished_at", changes.FinishedAt.Value)
	}
	if changes.RatingAt.Set {
		add("rating_at", changes.RatingAt.Value)
	}
	if changes.Rated.Set {
		add("rated", changes.Rated.Value)
	}
	sets = append(sets, "updated_at=NOW()")

	query := fmt.Sprintf("UPDATE ticket_trackings SET %s WHERE id=%s", strings.Join(sets, ", "), b.arg(id))
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, b.args...)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTracking(row pgx.Row) (*domain.TicketTracking, error) {
	var t domain.TicketTracking
	if err := row.Scan(
		&t.ID,
		&t.TicketID,
		&t.CompanyID,
		&t.WhatsappID,
		&t.UserID,
		&t.QueuedAt,
		&t.StartedAt,
		&t.FinishedAt,
		&t.RatingAt,
		&t.Rated,
		&t.CreatedAt,
		&t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &t, nil
}

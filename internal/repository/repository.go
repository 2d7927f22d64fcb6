package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when a lookup by id matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrUniqueViolation is returned when a write would create a second live
	// ticket for the same conversation.
	ErrUniqueViolation = errors.New("unique violation")
)

const uniqueViolationCode = "23505"

// Store bundles every repository the lifecycle services need.
type Store struct {
	Tickets   TicketRepository
	Tracking  TrackingRepository
	Contacts  ContactRepository
	Whatsapps WhatsappRepository
	Queues    QueueRepository
	Users     UserRepository
	Settings  SettingRepository
	Messages  MessageRepository
	Tx        Transactor
}

// NewPostgresStore wires the pgx-backed repositories onto one pool.
func NewPostgresStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Tickets:   NewTicketRepository(pool),
		Tracking:  NewTrackingRepository(pool),
		Contacts:  NewContactRepository(pool),
		Whatsapps: NewWhatsappRepository(pool),
		Queues:    NewQueueRepository(pool),
		Users:     NewUserRepository(pool),
		Settings:  NewSettingRepository(pool),
		Messages:  NewMessageRepository(pool),
		Tx:        NewTransactor(pool),
	}
}

// Transactor runs a function inside a store transaction. Repositories called
// with the context passed to fn take part in the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// conn returns the transaction in ctx, or the pool.
func conn(ctx context.Context, pool *pgxpool.Pool) querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return pool
}

type pgTransactor struct {
	pool *pgxpool.Pool
}

// NewTransactor builds a pgx transactor.
func NewTransactor(pool *pgxpool.Pool) Transactor {
	return &pgTransactor{pool: pool}
}

func (t *pgTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}
	tx, err := t.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// translate maps driver errors onto repository errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
		return ErrUniqueViolation
	}
	return err
}

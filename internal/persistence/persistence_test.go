package persistence

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/config"
)

func TestDisabledConnections(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	pg, err := NewPostgres(ctx, config.PostgresConfig{}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pg.Enabled() {
		t.Error("postgres should be disabled without DSN")
	}
	if err := pg.Ping(ctx); err == nil {
		t.Error("expected ping error for disabled postgres")
	}
	store := pg.Store(logger)
	if store == nil || store.Tickets == nil || store.Tx == nil {
		t.Error("expected the in-memory fallback store")
	}
	pg.Close()

	rd := NewRedis(config.RedisConfig{}, logger)
	if rd.Enabled() {
		t.Error("redis should be disabled without address")
	}
	if err := rd.Ping(ctx); err == nil {
		t.Error("expected ping error for disabled redis")
	}
	rd.Close()

	nc, err := NewNATS(config.NATSConfig{}, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if nc.Enabled() || nc.Ping() == nil {
		t.Error("nats should be disabled without URL")
	}
	nc.Close()

	if err := RunMigrations(ctx, nil, logger); err != nil {
		t.Errorf("migrations without pool should be skipped, got %v", err)
	}
}

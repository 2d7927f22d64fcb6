package persistence

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/config"
)

// NATS wraps the connection used by the room broadcaster.
type NATS struct {
	Conn *nats.Conn
}

// NewNATS connects when a URL is configured; otherwise the wrapper is empty.
func NewNATS(cfg config.NATSConfig, logger *zap.Logger) (*NATS, error) {
	if cfg.URL == "" {
		logger.Warn("NATS_URL not provided; broadcasting in-process only")
		return &NATS{}, nil
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name("chatdesk"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	logger.Info("connected to nats")
	return &NATS{Conn: nc}, nil
}

// Enabled reports whether a connection was opened.
func (n *NATS) Enabled() bool {
	return n != nil && n.Conn != nil
}

// Ping reports the connection state.
func (n *NATS) Ping() error {
	if !n.Enabled() {
		return errors.New("nats not configured")
	}
	if !n.Conn.IsConnected() {
		return errors.New("nats not connected")
	}
	return nil
}

// Close drains the connection.
func (n *NATS) Close() {
	if n.Enabled() {
		_ = n.Conn.Drain()
	}
}

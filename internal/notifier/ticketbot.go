// Package notifier tells the external rating automation that a ticket was
// closed.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/observability"
)

const userAgent = "chatdesk/1.0"

// Notifier is called once per closure.
type Notifier interface {
	NotifyClosure(ctx context.Context, ticket *domain.Ticket, tracking *domain.TicketTracking, skipRating bool)
}

// Payload is the body posted to the automation endpoint.
type Payload struct {
	TicketTrackingID int64  `json:"ticketTrackingId"`
	WaID             int64  `json:"wa_id"`
	GroupWaJID       string `json:"group_wa_jid,omitempty"`
	SkipRating       bool   `json:"skipRating,omitempty"`
}

// TicketBot posts closure notifications. Failures are logged and reported,
// never returned.
type TicketBot struct {
	cfg      config.TicketBotConfig
	client   *http.Client
	logger   *zap.Logger
	metrics  *observability.Metrics
	reporter *observability.Reporter
}

// NewTicketBot builds the notifier.
func NewTicketBot(cfg config.TicketBotConfig, logger *zap.Logger, metrics *observability.Metrics, reporter *observability.Reporter) *TicketBot {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TicketBot{
		cfg:      cfg,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
		metrics:  metrics,
		reporter: reporter,
	}
}

// BuildPayload assembles the notification body for a closure.
func BuildPayload(ticket *domain.Ticket, tracking *domain.TicketTracking, skipRating bool) Payload {
	p := Payload{
		TicketTrackingID: tracking.ID,
		WaID:             ticket.WhatsappID,
		SkipRating:       skipRating,
	}
	if ticket.IsGroup && ticket.Contact != nil && ticket.Contact.Number != "" {
		p.GroupWaJID = ticket.Contact.Number
	}
	return p
}

func (b *TicketBot) NotifyClosure(ctx context.Context, ticket *domain.Ticket, tracking *domain.TicketTracking, skipRating bool) {
	url := b.cfg.URLFor(ticket.CompanyID)
	if url == "" {
		b.logger.Debug("ticketbot webhook not configured", zap.Int64("company_id", ticket.CompanyID))
		return
	}

	payload := BuildPayload(ticket, tracking, skipRating)
	if err := b.post(ctx, url, payload); err != nil {
		b.metrics.RecordNotifierFailure()
		b.reporter.Report(ctx, "notifier", err,
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("tracking_id", tracking.ID),
			zap.Int64("whatsapp_id", ticket.WhatsappID),
			zap.Bool("is_group", ticket.IsGroup),
			zap.Bool("skip_rating", skipRating))
		return
	}
	b.logger.Info("ticketbot notified",
		zap.Int64("ticket_id", ticket.ID),
		zap.Int64("tracking_id", tracking.ID),
		zap.Bool("skip_rating", skipRating))
}

func (b *TicketBot) post(ctx context.Context, url string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, b.client.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("post ticketbot: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ticketbot returned %d", resp.StatusCode)
	}
	return nil
}

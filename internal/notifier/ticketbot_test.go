package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/observability"
)

func TestBuildPayload(t *testing.T) {
	tracking := &domain.TicketTracking{ID: 77}
	tests := []struct {
		name       string
		ticket     *domain.Ticket
		skipRating bool
		want       string
	}{
		{
			"plain contact",
			&domain.Ticket{WhatsappID: 3},
			false,
			`{"ticketTrackingId":77,"wa_id":3}`,
		},
		{
			"group with skip",
			&domain.Ticket{WhatsappID: 3, IsGroup: true, Contact: &domain.Contact{Number: "1203630@g.us"}},
			true,
			`{"ticketTrackingId":77,"wa_id":3,"group_wa_jid":"1203630@g.us","skipRating":true}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(BuildPayload(tt.ticket, tracking, tt.skipRating))
			if string(raw) != tt.want {
				t.Errorf("expected %s, got %s", tt.want, raw)
			}
		})
	}
}

func TestNotifyClosurePosts(t *testing.T) {
	var (
		got     Payload
		headers http.Header
		calls   int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer srv.Close()

	bot := NewTicketBot(config.TicketBotConfig{
		WebhookURL:  "http://127.0.0.1:1/unused",
		CompanyURLs: map[int64]string{5: srv.URL},
	}, zap.NewNop(), nil, nil)

	bot.NotifyClosure(context.Background(), &domain.Ticket{ID: 1, CompanyID: 5, WhatsappID: 2}, &domain.TicketTracking{ID: 9}, false)

	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
	if got.TicketTrackingID != 9 || got.WaID != 2 || got.SkipRating {
		t.Errorf("unexpected payload %+v", got)
	}
	if headers.Get("User-Agent") != "chatdesk/1.0" || headers.Get("Content-Type") != "application/json" {
		t.Errorf("unexpected headers %v", headers)
	}
}

func TestNotifyClosureWithoutEndpointIsNoop(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	bot := NewTicketBot(config.TicketBotConfig{}, zap.New(core), nil, nil)
	bot.NotifyClosure(context.Background(), &domain.Ticket{ID: 1}, &domain.TicketTracking{ID: 1}, true)
	if logs.Len() != 0 {
		t.Errorf("expected silent no-op, got %v", logs.All())
	}
}

func TestNotifyClosureSwallowsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	core, logs := observer.New(zap.ErrorLevel)
	logger := zap.New(core)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	bot := NewTicketBot(config.TicketBotConfig{WebhookURL: srv.URL, Timeout: 20 * time.Millisecond},
		logger, metrics, observability.NewReporter(logger, metrics))

	start := time.Now()
	bot.NotifyClosure(context.Background(), &domain.Ticket{ID: 1}, &domain.TicketTracking{ID: 1}, false)
	if time.Since(start) > 150*time.Millisecond {
		t.Error("expected the call to be bounded by the timeout")
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["component"] != "notifier" {
		t.Errorf("expected failure reported, got %v", logs.All())
	}
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/api/http/handlers"
	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/observability"
	"github.com/spec-kit/chatdesk/internal/repository/memory"
	"github.com/spec-kit/chatdesk/internal/service"
	"github.com/spec-kit/chatdesk/internal/testhelpers"
)

type testServer struct {
	app      *fiber.App
	store    *memory.Store
	notifier *testhelpers.RecordingNotifier
}

func newTestServer(t *testing.T, checks map[string]handlers.Check) *testServer {
	t.Helper()
	clock := testhelpers.NewClock(time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC))
	store := memory.New(clock.Now)
	store.PutContact(testhelpers.NewContactBuilder().Build())
	store.PutContact(testhelpers.NewContactBuilder().WithID(2).WithNumber("5511999990001").Build())
	store.PutWhatsapp(domain.Whatsapp{ID: 1, CompanyID: 1, Name: "main"})
	store.PutQueue(domain.Queue{ID: 5, CompanyID: 1, Name: "Sales"})
	store.PutUser(domain.User{ID: 3, CompanyID: 1, Name: "Ana"})
	repos := store.Repositories()

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	changes := audit.NewQueueChangeLog(audit.NewRingLog(audit.DefaultCapacity), zap.NewNop(), metrics, clock.Now)
	rating := service.NewRatingPrompt("Rate us:")
	tracking := service.NewTrackingService(service.TrackingDependencies{TrackingRepo: repos.Tracking, Now: clock.Now})
	notifier := &testhelpers.RecordingNotifier{}

	resolution := service.NewResolutionService(service.ResolutionDependencies{
		Repos: repos, Tracking: tracking, Audit: changes, Metrics: metrics, Rating: rating, Now: clock.Now,
	})
	mutation := service.NewMutationService(service.MutationDependencies{
		Repos: repos, Tracking: tracking, Audit: changes, Notifier: notifier,
		Metrics: metrics, Templates: config.DefaultTemplates(), Now: clock.Now,
	})
	cleanup := service.NewCleanupService(service.CleanupDependencies{
		TicketRepo: repos.Tickets, Tx: repos.Tx, Metrics: metrics, Rating: rating, Now: clock.Now,
	})

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:      handlers.NewHealthHandler("chatdesk", "test", checks),
		Webhooks:    handlers.NewWebhookHandler(resolution, repos.Contacts),
		Tickets:     handlers.NewTicketsHandler(mutation),
		Maintenance: handlers.NewMaintenanceHandler(cleanup, changes),
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})
	return &testServer{app: app, store: store, notifier: notifier}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func (s *testServer) do(t *testing.T, method, path, body string, company string) (int, envelope, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if company != "" {
		req.Header.Set(handlers.CompanyHeader, company)
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return resp.StatusCode, env, raw
}

func decodeTicket(t *testing.T, env envelope) domain.Ticket {
	t.Helper()
	var ticket domain.Ticket
	if err := json.Unmarshal(env.Data, &ticket); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	return ticket
}

func TestInboundMessageCreatesTicket(t *testing.T) {
	s := newTestServer(t, nil)

	status, env, raw := s.do(t, nethttp.MethodPost, "/webhooks/messages",
		`{"contactId":1,"whatsappId":1,"unreadMessages":1,"message":{"body":"hello"}}`, "1")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	ticket := decodeTicket(t, env)
	if ticket.ID == 0 || ticket.Status != domain.TicketStatusPending || ticket.Contact == nil {
		t.Errorf("unexpected ticket %+v", ticket)
	}
	if len(s.store.Tickets()) != 1 {
		t.Errorf("expected one stored ticket")
	}
}

func TestInboundMessageRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		company string
		status  int
		code    string
	}{
		{"missing company", `{"contactId":1,"whatsappId":1}`, "", nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"invalid json", `{"contactId":`, "1", nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"missing contact id", `{"whatsappId":1}`, "1", nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"unknown contact", `{"contactId":42,"whatsappId":1}`, "1", nethttp.StatusNotFound, "NOT_FOUND"},
		{"contact of another company", `{"contactId":1,"whatsappId":1}`, "2", nethttp.StatusNotFound, "NOT_FOUND"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			status, env, raw := s.do(t, nethttp.MethodPost, "/webhooks/messages", tt.body, tt.company)
			if status != tt.status || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("expected %d %s, got %d: %s", tt.status, tt.code, status, raw)
			}
		})
	}
}

func TestUpdateTicket(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(7).WithQueue(5).Build())

	status, env, raw := s.do(t, nethttp.MethodPut, "/tickets/7", `{"status":"open","userId":3}`, "1")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	ticket := decodeTicket(t, env)
	if ticket.Status != domain.TicketStatusOpen || ticket.UserID == nil || *ticket.UserID != 3 {
		t.Errorf("unexpected ticket %+v", ticket)
	}
	if ticket.QueueID == nil || *ticket.QueueID != 5 {
		t.Errorf("absent queueId must be kept, got %v", ticket.QueueID)
	}

	status, env, raw = s.do(t, nethttp.MethodPut, "/tickets/7", `{"queueId":null}`, "1")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	if ticket = decodeTicket(t, env); ticket.QueueID != nil {
		t.Errorf("expected queue cleared, got %v", *ticket.QueueID)
	}
}

func TestCloseThroughBothRoutes(t *testing.T) {
	tests := []struct {
		path       string
		skipRating bool
	}{
		{"/tickets/7", false},
		{"/tickets2/7", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(7).Open().WithAgent(3).Build())

			status, _, raw := s.do(t, nethttp.MethodPut, tt.path, `{"status":"closed"}`, "1")
			if status != nethttp.StatusOK {
				t.Fatalf("expected 200, got %d: %s", status, raw)
			}
			calls := s.notifier.Calls()
			if len(calls) != 1 || calls[0].SkipRating != tt.skipRating {
				t.Errorf("expected one notification with skipRating=%v, got %+v", tt.skipRating, calls)
			}
		})
	}
}

func TestUpdateTicketErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{"other open ticket", "/tickets/7", `{"status":"open","userId":3}`, nethttp.StatusConflict, "ERR_OTHER_OPEN_TICKET"},
		{"unknown ticket", "/tickets/99", `{"status":"open"}`, nethttp.StatusNotFound, "NOT_FOUND"},
		{"bad id", "/tickets/abc", `{}`, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad status", "/tickets/7", `{"status":"archived"}`, nethttp.StatusBadRequest, "VALIDATION_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(7).Closed().Build())
			s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(8).Build())

			status, env, raw := s.do(t, nethttp.MethodPut, tt.path, tt.body, "1")
			if status != tt.status || env.Error == nil || env.Error.Code != tt.code {
				t.Fatalf("expected %d %s, got %d: %s", tt.status, tt.code, status, raw)
			}
		})
	}
}

func TestCleanupRatingTicketsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(1).WithLastMessage("\u200eRate us: 1-5").Build())

	status, _, raw := s.do(t, nethttp.MethodPost, "/maintenance/cleanup-rating-tickets", "", "")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	var body struct {
		Closed int `json:"closed"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Closed != 1 {
		t.Errorf("expected closed=1, got %s", raw)
	}
}

func TestQueueChangeDebugEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	s.store.SeedTicket(testhelpers.NewTicketBuilder().WithID(7).Build())
	if status, _, raw := s.do(t, nethttp.MethodPut, "/tickets/7", `{"queueId":5}`, "1"); status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}

	status, env, raw := s.do(t, nethttp.MethodGet, "/debug/queue-changes/7", "", "")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	var entries []audit.Entry
	if err := json.Unmarshal(env.Data, &entries); err != nil || len(entries) != 1 {
		t.Fatalf("expected one entry, got %s", raw)
	}

	status, env, raw = s.do(t, nethttp.MethodGet, "/debug/queue-changes/stats", "", "")
	if status != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", status, raw)
	}
	var stats audit.Stats
	if err := json.Unmarshal(env.Data, &stats); err != nil || stats.TotalChanges != 1 {
		t.Errorf("expected one change in stats, got %s", raw)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, map[string]handlers.Check{
		"postgres": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	})

	if status, _, raw := s.do(t, nethttp.MethodGet, "/health/live", "", ""); status != nethttp.StatusOK {
		t.Errorf("expected live 200, got %d: %s", status, raw)
	}
	status, env, raw := s.do(t, nethttp.MethodGet, "/health/ready", "", "")
	if status != nethttp.StatusServiceUnavailable || env.Error == nil || env.Error.Details["redis"] != "connection refused" {
		t.Errorf("expected 503 naming redis, got %d: %s", status, raw)
	}

	status, _, raw = s.do(t, nethttp.MethodGet, "/metrics", "", "")
	if status != nethttp.StatusOK || !strings.Contains(string(raw), "chatdesk_http_requests_total") {
		t.Errorf("expected prometheus exposition, got %d", status)
	}

	if status, env, _ := s.do(t, nethttp.MethodGet, "/nope", "", ""); status != nethttp.StatusNotFound || env.Error == nil {
		t.Errorf("expected 404 for unknown route, got %d", status)
	}
}

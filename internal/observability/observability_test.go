package observability

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/chatdesk/internal/config"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordResolution("created")
	m.RecordMutation("ok")
	m.RecordSweep(3)
	m.RecordNotifierFailure()
	m.RecordQueueChange(true)
	m.RecordFailure("x")

	var r *Reporter
	r.Report(context.Background(), "x", errors.New("boom"))
}

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordResolution("created")
	m.RecordResolution("created")
	m.RecordSweep(2)
	m.RecordSweep(0)
	m.RecordQueueChange(true)

	if got := testutil.ToFloat64(m.resolutions.WithLabelValues("created")); got != 2 {
		t.Errorf("expected 2 resolutions, got %v", got)
	}
	if got := testutil.ToFloat64(m.sweepClosed); got != 2 {
		t.Errorf("expected 2 swept, got %v", got)
	}
	if got := testutil.ToFloat64(m.queueChanges.WithLabelValues("true")); got != 1 {
		t.Errorf("expected 1 suspicious change, got %v", got)
	}
}

func TestReporterLogsAndCounts(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	m := NewMetrics(prometheus.NewRegistry())
	r := NewReporter(zap.New(core), m)

	r.Report(context.Background(), "mutation", errors.New("db down"), zap.Int64("ticket_id", 4))
	r.Report(context.Background(), "mutation", nil)

	if logs.Len() != 1 {
		t.Fatalf("expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.ContextMap()["component"] != "mutation" || entry.ContextMap()["ticket_id"] != int64(4) {
		t.Errorf("unexpected fields %v", entry.ContextMap())
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("mutation")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
}

func TestRequestLoggerUsesRouteTemplate(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewMetrics(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), m))
	app.Get("/tickets/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/tickets/42", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/tickets/:id", "204")); got != 1 {
		t.Errorf("expected templated path counter, got %v", got)
	}
	if logs.Len() != 1 || logs.All()[0].ContextMap()["path"] != "/tickets/42" {
		t.Errorf("unexpected logs %v", logs.All())
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "nonsense", Format: "console", Service: "chatdesk"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zap.InfoLevel) || logger.Core().Enabled(zap.DebugLevel) {
		t.Error("expected info level fallback")
	}
}

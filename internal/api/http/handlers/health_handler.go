package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/chatdesk/pkg/util/errorutil"
)

const readinessTimeout = 2 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler answers the liveness and readiness probes. Only backends
// that were configured are probed.
type HealthHandler struct {
	service string
	version string
	started time.Time
	checks  map[string]Check
}

// NewHealthHandler constructs handler.
func NewHealthHandler(service, version string, checks map[string]Check) *HealthHandler {
	return &HealthHandler{service: service, version: version, started: time.Now(), checks: checks}
}

// Live GET /health/live.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.service,
		"version": h.version,
		"uptime":  time.Since(h.started).Truncate(time.Second).String(),
	})
}

// Ready GET /health/ready. A failing backend turns the probe into a 503 with
// the per-backend results as details.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	results, ok := h.probe(ctx)
	if !ok {
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE",
			"one or more dependencies unavailable", http.StatusServiceUnavailable, results)
	}
	return c.JSON(fiber.Map{"status": "ready", "dependencies": results})
}

func (h *HealthHandler) probe(ctx context.Context) (map[string]any, bool) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]any, len(names))
	ok := true
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			ok = false
			continue
		}
		results[name] = "ok"
	}
	return results, ok
}

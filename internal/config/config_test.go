package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TICKET_REOPEN_GRACE", "")
	t.Setenv("TICKETBOT_TIMEOUT", "")
	t.Setenv("CLEANUP_AFTER_CLOSE_DELAY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ticket.ReopenGrace != 2*time.Hour {
		t.Errorf("expected 2h grace, got %v", cfg.Ticket.ReopenGrace)
	}
	if cfg.TicketBot.Timeout != 10*time.Second {
		t.Errorf("expected 10s notifier timeout, got %v", cfg.TicketBot.Timeout)
	}
	if cfg.Ticket.CleanupAfterCloseDelay != 2*time.Second {
		t.Errorf("expected 2s cleanup delay, got %v", cfg.Ticket.CleanupAfterCloseDelay)
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		val  string
		want time.Duration
	}{
		{"", time.Minute},
		{"90", 90 * time.Second},
		{"1h30m", 90 * time.Minute},
		{"garbage", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.val)
		if got := getEnvAsDuration("TEST_DURATION", time.Minute); got != tt.want {
			t.Errorf("%q: expected %v, got %v", tt.val, tt.want, got)
		}
	}
}

func TestTicketBotURLFor(t *testing.T) {
	overrides := companyOverrides("TICKETBOT_WEBHOOK_URL_", []string{
		"TICKETBOT_WEBHOOK_URL_7=https://bot.example/7",
		"TICKETBOT_WEBHOOK_URL_x=https://ignored",
		"OTHER=1",
	})
	cfg := TicketBotConfig{WebhookURL: "https://bot.example/default", CompanyURLs: overrides}

	if got := cfg.URLFor(7); got != "https://bot.example/7" {
		t.Errorf("expected company override, got %s", got)
	}
	if got := cfg.URLFor(8); got != "https://bot.example/default" {
		t.Errorf("expected default url, got %s", got)
	}
	if len(overrides) != 1 {
		t.Errorf("expected 1 override, got %d", len(overrides))
	}
}

func TestLoadTemplates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "templates.yaml")
	content := "queue_transfer: \"Now in {{queue}}\"\nrating_prompt_prefix: \"Rate us:\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tpl, err := LoadTemplates(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tpl.QueueTransfer != "Now in {{queue}}" {
		t.Errorf("expected override, got %q", tpl.QueueTransfer)
	}
	if tpl.RatingPromptPrefix != "Rate us:" {
		t.Errorf("expected rating prefix override, got %q", tpl.RatingPromptPrefix)
	}
	if tpl.AgentTransfer != DefaultTemplates().AgentTransfer {
		t.Error("expected missing field to keep its default")
	}
	if got := Render(tpl.QueueTransfer, "Sales", ""); got != "Now in Sales" {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestLoadTemplatesMissingFile(t *testing.T) {
	if _, err := LoadTemplates(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Error("expected error for missing file")
	}
}

// Package audit keeps a bounded trail of queue and agent changes and guards
// ticket mutations against unexplained queue moves.
package audit

import (
	"context"
	"strings"
	"time"
)

// Reasons recorded by the lifecycle services.
const (
	ReasonTransfer      = "transfer"
	ReasonInboundReopen = "inbound-reopen"
	ReasonInboundReset  = "inbound-reset"
	ReasonAgentUpdate   = "agent-update"
	ReasonSweep         = "rating-cleanup"
	blockedPrefix       = "blocked: "
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 100

// Entry is one recorded queue/agent change.
type Entry struct {
	TicketID      int64     `json:"ticketId"`
	ContactNumber string    `json:"contactNumber"`
	OldQueueID    *int64    `json:"oldQueueId"`
	NewQueueID    *int64    `json:"newQueueId"`
	OldUserID     *int64    `json:"oldUserId"`
	NewUserID     *int64    `json:"newUserId"`
	Reason        string    `json:"reason"`
	Suspicious    bool      `json:"suspicious"`
	Timestamp     time.Time `json:"timestamp"`
}

// Stats summarises the entries currently held.
type Stats struct {
	TotalChanges         int     `json:"totalChanges"`
	SuspiciousChanges    int     `json:"suspiciousChanges"`
	SuspiciousPercentage float64 `json:"suspiciousPercentage"`
}

// Log is an append-only ring of entries. The oldest entry is evicted once
// capacity is reached.
type Log interface {
	Append(ctx context.Context, e Entry) error
	Entries(ctx context.Context) ([]Entry, error)
	Clear(ctx context.Context) error
}

// IsTransfer reports whether reason marks an explicit transfer.
func IsTransfer(reason string) bool {
	r := strings.ToLower(reason)
	return strings.Contains(r, "transfer") || strings.Contains(r, "transferência")
}

// IsSuspicious flags a queue move between two real queues that nobody
// declared as a transfer.
func IsSuspicious(e Entry) bool {
	if e.OldQueueID == nil || e.NewQueueID == nil || *e.OldQueueID == *e.NewQueueID {
		return false
	}
	return !IsTransfer(e.Reason)
}

func computeStats(entries []Entry) Stats {
	stats := Stats{TotalChanges: len(entries)}
	for _, e := range entries {
		if e.Suspicious {
			stats.SuspiciousChanges++
		}
	}
	if stats.TotalChanges > 0 {
		pct := float64(stats.SuspiciousChanges) / float64(stats.TotalChanges) * 100
		stats.SuspiciousPercentage = float64(int(pct*100+0.5)) / 100
	}
	return stats
}

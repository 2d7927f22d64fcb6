package testhelpers

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// ========================================
// Clock
// ========================================

// Clock is a manually advanced time source
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a clock stopped at start
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// ========================================
// Messaging
// ========================================

// SentMessage is one text handed to a RecordingSender
type SentMessage struct {
	Address string
	Text    string
}

// RecordingSender records outbound messages instead of sending them
type RecordingSender struct {
	mu   sync.Mutex
	sent []SentMessage
	Err  error
}

// SendText records the message and returns Err
func (s *RecordingSender) SendText(_ context.Context, address, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentMessage{Address: address, Text: text})
	return s.Err
}

// Sent returns the recorded messages
func (s *RecordingSender) Sent() []SentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SentMessage(nil), s.sent...)
}

// ========================================
// Closure Notifier
// ========================================

// Notification is one recorded closure notification
type Notification struct {
	TicketID   int64
	TrackingID int64
	SkipRating bool
}

// RecordingNotifier records closure notifications
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

// NotifyClosure records the call
func (n *RecordingNotifier) NotifyClosure(_ context.Context, ticket *domain.Ticket, tracking *domain.TicketTracking, skipRating bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Notification{TicketID: ticket.ID, TrackingID: tracking.ID, SkipRating: skipRating})
}

// Calls returns the recorded notifications
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.calls...)
}

// ========================================
// Sweep Scheduler
// ========================================

// RecordingScheduler records requested sweep delays
type RecordingScheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

// ScheduleSweep records delay
func (s *RecordingScheduler) ScheduleSweep(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, delay)
}

// Delays returns the recorded delays
func (s *RecordingScheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/chatdesk/internal/audit"
	"github.com/spec-kit/chatdesk/internal/config"
	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/events"
	"github.com/spec-kit/chatdesk/internal/repository"
	"github.com/spec-kit/chatdesk/internal/repository/memory"
	"github.com/spec-kit/chatdesk/internal/testhelpers"
)

const (
	ratingPrefix = "Rate us:"
	sweepDelay   = 2 * time.Second
)

type fixture struct {
	store       *memory.Store
	repos       *repository.Store
	clock       *testhelpers.Clock
	sender      *testhelpers.RecordingSender
	notifier    *testhelpers.RecordingNotifier
	scheduler   *testhelpers.RecordingScheduler
	broadcaster *events.MemoryBroadcaster
	dispatcher  events.Dispatcher
	published   *eventLog
	audit       *audit.QueueChangeLog
	tracking    *TrackingService
	resolution  *ResolutionService
	mutation    *MutationService
	cleanup     *CleanupService
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := testhelpers.NewClock(time.Date(2024, 5, 10, 14, 0, 0, 0, time.UTC))
	store := memory.New(clock.Now)
	store.PutContact(testhelpers.NewContactBuilder().Build())
	store.PutWhatsapp(domain.Whatsapp{ID: 1, CompanyID: 1, Name: "main", CompletionMessage: "Thanks for reaching out!"})
	store.PutWhatsapp(domain.Whatsapp{ID: 2, CompanyID: 1, Name: "second"})
	store.PutQueue(domain.Queue{ID: 5, CompanyID: 1, Name: "Sales"})
	store.PutQueue(domain.Queue{ID: 6, CompanyID: 1, Name: "Support"})
	store.PutUser(domain.User{ID: 3, CompanyID: 1, Name: "Ana"})
	store.PutUser(domain.User{ID: 4, CompanyID: 1, Name: "Bruno"})

	f := &fixture{
		store:       store,
		repos:       store.Repositories(),
		clock:       clock,
		sender:      &testhelpers.RecordingSender{},
		notifier:    &testhelpers.RecordingNotifier{},
		scheduler:   &testhelpers.RecordingScheduler{},
		broadcaster: events.NewMemoryBroadcaster(),
		dispatcher:  events.NewInMemoryDispatcher(),
		published:   &eventLog{},
	}
	for _, eventType := range events.AllEventTypes {
		f.dispatcher.Subscribe(eventType, f.published.handle)
	}
	f.audit = audit.NewQueueChangeLog(audit.NewRingLog(audit.DefaultCapacity), zap.NewNop(), nil, clock.Now)
	f.build()
	return f
}

// build wires the services onto the fixture's current collaborators.
func (f *fixture) build() {
	rating := NewRatingPrompt(ratingPrefix)
	f.tracking = NewTrackingService(TrackingDependencies{TrackingRepo: f.repos.Tracking, Now: f.clock.Now})
	f.resolution = NewResolutionService(ResolutionDependencies{
		Repos:       f.repos,
		Tracking:    f.tracking,
		Audit:       f.audit,
		Dispatcher:  f.dispatcher,
		Broadcaster: f.broadcaster,
		Rating:      rating,
		Now:         f.clock.Now,
	})
	f.mutation = NewMutationService(MutationDependencies{
		Repos:       f.repos,
		Tracking:    f.tracking,
		Audit:       f.audit,
		Sender:      f.sender,
		Notifier:    f.notifier,
		Scheduler:   f.scheduler,
		Dispatcher:  f.dispatcher,
		Broadcaster: f.broadcaster,
		Templates:   config.DefaultTemplates(),
		SweepDelay:  sweepDelay,
		Now:         f.clock.Now,
	})
	f.cleanup = NewCleanupService(CleanupDependencies{
		TicketRepo: f.repos.Tickets,
		Tx:         f.repos.Tx,
		Dispatcher: f.dispatcher,
		Rating:     rating,
		Now:        f.clock.Now,
	})
}

func (f *fixture) seed(b *testhelpers.TicketBuilder) domain.Ticket {
	return f.store.SeedTicket(b.Build())
}

func (f *fixture) ticket(t *testing.T, id int64) domain.Ticket {
	t.Helper()
	got, ok := f.store.Ticket(id)
	if !ok {
		t.Fatalf("ticket %d not stored", id)
	}
	return got
}

func (f *fixture) contact() *domain.Contact {
	c := testhelpers.NewContactBuilder().Build()
	return &c
}

func message(body string) *InboundMessage {
	return &InboundMessage{Body: body}
}

func idp(v int64) *int64 { return &v }

func equalID(p *int64, want int64) bool {
	return p != nil && *p == want
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newStore() (*Store, *repository.Store, *clock) {
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	s := New(c.Now)
	return s, s.Repositories(), c
}

func int64p(v int64) *int64 { return &v }

func TestCreateRejectsSecondLiveTicket(t *testing.T) {
	ctx := context.Background()
	_, repos, _ := newStore()

	first := &domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusPending}
	if err := repos.Tickets.Create(ctx, first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("expected id to be assigned")
	}

	dup := &domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusOpen}
	if err := repos.Tickets.Create(ctx, dup); !errors.Is(err, repository.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	otherConn := &domain.Ticket{ContactID: 1, WhatsappID: 5, CompanyID: 3, Status: domain.TicketStatusPending}
	if err := repos.Tickets.Create(ctx, otherConn); err != nil {
		t.Fatalf("different connection should be allowed: %v", err)
	}

	closed := &domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusClosed}
	if err := repos.Tickets.Create(ctx, closed); err != nil {
		t.Fatalf("closed tickets never conflict: %v", err)
	}
}

func TestUpdateRejectsReopenOverLiveTicket(t *testing.T) {
	ctx := context.Background()
	s, repos, _ := newStore()

	old := s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusClosed})
	s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusOpen})

	err := repos.Tickets.Update(ctx, old.ID, domain.TicketChanges{Status: domain.Some(domain.TicketStatusPending)})
	if !errors.Is(err, repository.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	got, _ := s.Ticket(old.ID)
	if got.Status != domain.TicketStatusClosed {
		t.Errorf("rejected update must not be applied, got %s", got.Status)
	}
}

func TestUpdateMissingTicket(t *testing.T) {
	_, repos, _ := newStore()
	err := repos.Tickets.Update(context.Background(), 99, domain.TicketChanges{Chatbot: domain.Some(true)})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestFindOneOrdering(t *testing.T) {
	ctx := context.Background()
	s, repos, c := newStore()

	a := s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusClosed})
	c.advance(time.Minute)
	b := s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 2, CompanyID: 3, Status: domain.TicketStatusClosed})
	c.advance(time.Minute)
	if err := repos.Tickets.Update(ctx, a.ID, domain.TicketChanges{UnreadMessages: domain.Some(1)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	filter := repository.TicketFilter{ContactID: int64p(1), CompanyID: int64p(3)}

	byID, err := repos.Tickets.FindOne(ctx, filter, repository.OrderByIDDesc)
	if err != nil || byID == nil || byID.ID != b.ID {
		t.Fatalf("expected ticket %d by id, got %+v (%v)", b.ID, byID, err)
	}
	byUpdated, err := repos.Tickets.FindOne(ctx, filter, repository.OrderByUpdatedDesc)
	if err != nil || byUpdated == nil || byUpdated.ID != a.ID {
		t.Fatalf("expected ticket %d by updatedAt, got %+v (%v)", a.ID, byUpdated, err)
	}

	none, err := repos.Tickets.FindOne(ctx, repository.TicketFilter{ContactID: int64p(42)}, repository.OrderByIDDesc)
	if err != nil || none != nil {
		t.Fatalf("expected no match, got %+v (%v)", none, err)
	}
}

func TestFindAllFilters(t *testing.T) {
	ctx := context.Background()
	s, repos, c := newStore()
	prompt := "Rate us: https://x"
	lrm := "\u200eRate us: https://y"
	hello := "hello"

	s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending, LastMessage: &prompt})
	s.SeedTicket(domain.Ticket{ContactID: 2, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending, LastMessage: &lrm})
	s.SeedTicket(domain.Ticket{ContactID: 3, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending, LastMessage: &hello})
	s.SeedTicket(domain.Ticket{ContactID: 4, WhatsappID: 2, CompanyID: 1, Status: domain.TicketStatusOpen, LastMessage: &prompt})
	s.SeedTicket(domain.Ticket{ContactID: 5, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending})

	got, err := repos.Tickets.FindAll(ctx, repository.TicketFilter{
		Statuses:            []domain.TicketStatus{domain.TicketStatusPending},
		LastMessagePrefixes: []string{"Rate us:", "\u200eRate us:"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ContactID != 1 || got[1].ContactID != 2 {
		t.Fatalf("unexpected matches: %+v", got)
	}

	from := c.now.Add(-time.Second)
	notConn, _ := repos.Tickets.FindAll(ctx, repository.TicketFilter{WhatsappIDNot: int64p(1), UpdatedFrom: &from})
	if len(notConn) != 1 || notConn[0].ContactID != 4 {
		t.Fatalf("expected only the other-connection ticket, got %+v", notConn)
	}
}

func TestBulkUpdate(t *testing.T) {
	ctx := context.Background()
	s, repos, _ := newStore()
	queue := int64(7)
	s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending, QueueID: &queue})
	s.SeedTicket(domain.Ticket{ContactID: 2, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending})
	s.SeedTicket(domain.Ticket{ContactID: 3, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusOpen})

	n, err := repos.Tickets.BulkUpdate(ctx,
		repository.TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusPending}},
		domain.TicketChanges{Status: domain.Some(domain.TicketStatusClosed), QueueID: domain.Null[int64]()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 updated, got %d", n)
	}
	for _, tk := range s.Tickets() {
		if tk.ContactID == 3 && tk.Status != domain.TicketStatusOpen {
			t.Error("open ticket must be untouched")
		}
		if tk.ContactID != 3 && (tk.Status != domain.TicketStatusClosed || tk.QueueID != nil) {
			t.Errorf("ticket %d not closed: %+v", tk.ID, tk)
		}
	}
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s, repos, _ := newStore()
	seeded := s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusOpen})
	s.AddUnreadMessages(seeded.ID, 3)

	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Tickets.Update(ctx, seeded.ID, domain.TicketChanges{Status: domain.Some(domain.TicketStatusClosed)}); err != nil {
			return err
		}
		if _, err := repos.Messages.MarkTicketRead(ctx, seeded.ID); err != nil {
			return err
		}
		if _, err := repos.Tracking.FindOrCreate(ctx, seeded.ID, 1, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Ticket(seeded.ID)
	if got.Status != domain.TicketStatusOpen {
		t.Errorf("expected rollback to open, got %s", got.Status)
	}
	if s.UnreadMessages(seeded.ID) != 3 {
		t.Error("expected unread messages restored")
	}
	if _, ok := s.TrackingFor(seeded.ID); ok {
		t.Error("expected tracking creation rolled back")
	}
}

func TestRollbackKeepsWritesOutsideTheTransaction(t *testing.T) {
	ctx := context.Background()
	s, repos, _ := newStore()
	seeded := s.SeedTicket(domain.Ticket{ContactID: 1, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusOpen})

	inTx := make(chan struct{})
	created := make(chan *domain.Ticket)
	errs := make(chan error, 1)
	go func() {
		<-inTx
		other := &domain.Ticket{ContactID: 2, WhatsappID: 1, CompanyID: 1, Status: domain.TicketStatusPending}
		errs <- repos.Tickets.Create(context.Background(), other)
		created <- other
	}()

	boom := errors.New("boom")
	err := repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := repos.Tickets.Update(ctx, seeded.ID, domain.TicketChanges{Status: domain.Some(domain.TicketStatusClosed)}); err != nil {
			return err
		}
		close(inTx)
		<-created
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-errs; err != nil {
		t.Fatalf("concurrent create failed: %v", err)
	}

	got, _ := s.Ticket(seeded.ID)
	if got.Status != domain.TicketStatusOpen {
		t.Errorf("expected the transaction's write reverted, got %s", got.Status)
	}
	other, err := repos.Tickets.FindOne(ctx, repository.TicketFilter{ContactID: int64p(2)}, repository.OrderByUpdatedDesc)
	if err != nil || other == nil {
		t.Fatalf("ticket created outside the transaction was lost: %v", err)
	}
	if other.Status != domain.TicketStatusPending {
		t.Errorf("expected pending ticket kept, got %s", other.Status)
	}
}

func TestTrackingFindOrCreateIsStable(t *testing.T) {
	ctx := context.Background()
	_, repos, c := newStore()

	first, err := repos.Tracking.FindOrCreate(ctx, 10, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := repos.Tracking.FindOrCreate(ctx, 10, 1, 3)
	if first.ID != second.ID {
		t.Fatal("expected the existing record to be returned")
	}
	if second.WhatsappID != 2 {
		t.Error("find must not restamp the connection")
	}

	started := c.now
	if err := repos.Tracking.Update(ctx, first.ID, domain.TrackingChanges{StartedAt: domain.TimeOpt(started)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	again, _ := repos.Tracking.FindOrCreate(ctx, 10, 1, 2)
	if again.StartedAt == nil || !again.StartedAt.Equal(started) {
		t.Error("expected startedAt persisted")
	}
}

func TestCatalogLookups(t *testing.T) {
	ctx := context.Background()
	s, repos, _ := newStore()
	s.PutContact(domain.Contact{ID: 1, Number: "5511"})
	s.PutSetting(1, domain.SettingSendTransferMessage, domain.SettingEnabled)

	if c, err := repos.Contacts.GetByID(ctx, 1); err != nil || c.Number != "5511" {
		t.Fatalf("unexpected contact %+v (%v)", c, err)
	}
	if _, err := repos.Queues.GetByID(ctx, 1); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if v, ok, _ := repos.Settings.Get(ctx, 1, domain.SettingSendTransferMessage); !ok || v != domain.SettingEnabled {
		t.Error("expected setting")
	}
	if _, ok, _ := repos.Settings.Get(ctx, 2, domain.SettingSendTransferMessage); ok {
		t.Error("setting is per company")
	}
}

func TestTrackingStartsNewPassAfterFinish(t *testing.T) {
	ctx := context.Background()
	_, repos, c := newStore()

	first, _ := repos.Tracking.FindOrCreate(ctx, 10, 1, 2)
	if err := repos.Tracking.Update(ctx, first.ID, domain.TrackingChanges{FinishedAt: domain.TimeOpt(c.now)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	next, err := repos.Tracking.FindOrCreate(ctx, 10, 1, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ID == first.ID {
		t.Fatal("expected a new tracking record once the previous pass finished")
	}
	if next.FinishedAt != nil {
		t.Error("new pass must start unfinished")
	}
}

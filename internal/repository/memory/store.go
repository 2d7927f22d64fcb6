// Package memory is an in-process implementation of the repository
// interfaces, used by tests and when no database is configured.
package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/chatdesk/internal/domain"
	"github.com/spec-kit/chatdesk/internal/repository"
)

type settingKey struct {
	companyID int64
	key       string
}

// Store keeps every record in maps guarded by one mutex. The mutex plays the
// role of the database's row-level atomicity. Transactions are serialized and
// keep an undo log of the records they write, so a rollback reverts only
// those records. Ids are never reused, like a database sequence.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	now  func() time.Time
	undo *undoLog

	nextTicketID   int64
	nextTrackingID int64

	tickets   map[int64]domain.Ticket
	tracking  map[int64]domain.TicketTracking
	contacts  map[int64]domain.Contact
	whatsapps map[int64]domain.Whatsapp
	queues    map[int64]domain.Queue
	users     map[int64]domain.User
	settings  map[settingKey]string
	unread    map[int64]int64
}

// New creates an empty store. A nil now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:       now,
		tickets:   make(map[int64]domain.Ticket),
		tracking:  make(map[int64]domain.TicketTracking),
		contacts:  make(map[int64]domain.Contact),
		whatsapps: make(map[int64]domain.Whatsapp),
		queues:    make(map[int64]domain.Queue),
		users:     make(map[int64]domain.User),
		settings:  make(map[settingKey]string),
		unread:    make(map[int64]int64),
	}
}

// Repositories exposes the store through the repository interfaces.
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Tickets:   ticketRepo{s},
		Tracking:  trackingRepo{s},
		Contacts:  contactRepo{s},
		Whatsapps: whatsappRepo{s},
		Queues:    queueRepo{s},
		Users:     userRepo{s},
		Settings:  settingRepo{s},
		Messages:  messageRepo{s},
		Tx:        s,
	}
}

// PutContact stores or replaces a contact.
func (s *Store) PutContact(c domain.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = c
}

// PutWhatsapp stores or replaces a channel connection.
func (s *Store) PutWhatsapp(w domain.Whatsapp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.whatsapps[w.ID] = w
}

// PutQueue stores or replaces a queue.
func (s *Store) PutQueue(q domain.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queues[q.ID] = q
}

// PutUser stores or replaces an agent.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// PutSetting stores a company setting.
func (s *Store) PutSetting(companyID int64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[settingKey{companyID, key}] = value
}

// AddUnreadMessages records n unread messages on a ticket.
func (s *Store) AddUnreadMessages(ticketID int64, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread[ticketID] += n
}

// UnreadMessages returns the unread message count of a ticket.
func (s *Store) UnreadMessages(ticketID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unread[ticketID]
}

// SeedTicket inserts a ticket as-is, bypassing the uniqueness check. Zero
// ids and timestamps are filled in.
func (s *Store) SeedTicket(t domain.Ticket) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.nextTicketID++
		t.ID = s.nextTicketID
	} else if t.ID > s.nextTicketID {
		s.nextTicketID = t.ID
	}
	now := s.now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = now
	}
	s.tickets[t.ID] = t
	return t
}

// Ticket returns a stored ticket by id.
func (s *Store) Ticket(id int64) (domain.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	return t, ok
}

// Tickets returns every stored ticket ordered by id.
func (s *Store) Tickets() []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TrackingFor returns the latest tracking record of a ticket.
func (s *Store) TrackingFor(ticketID int64) (domain.TicketTracking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestTracking(ticketID)
}

func (s *Store) latestTracking(ticketID int64) (domain.TicketTracking, bool) {
	var (
		found domain.TicketTracking
		ok    bool
	)
	for _, tr := range s.tracking {
		if tr.TicketID == ticketID && (!ok || tr.ID > found.ID) {
			found, ok = tr, true
		}
	}
	return found, ok
}

func (s *Store) unfinishedTracking(ticketID int64) (domain.TicketTracking, bool) {
	var (
		found domain.TicketTracking
		ok    bool
	)
	for _, tr := range s.tracking {
		if tr.TicketID == ticketID && tr.FinishedAt == nil && (!ok || tr.ID > found.ID) {
			found, ok = tr, true
		}
	}
	return found, ok
}

type txMarker struct{}

// WithinTx serializes fn against other transactions and reverts the records
// fn wrote when it fails. Writes made outside the transaction are kept.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	undo := newUndoLog()
	s.mu.Lock()
	s.undo = undo
	s.mu.Unlock()

	err := fn(context.WithValue(ctx, txMarker{}, undo))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo = nil
	if err != nil {
		undo.revert(s)
		return err
	}
	return nil
}

// undoLog holds the value each record had before the transaction first
// wrote it; a nil entry means the record did not exist.
type undoLog struct {
	tickets  map[int64]*domain.Ticket
	tracking map[int64]*domain.TicketTracking
	unread   map[int64]*int64
}

func newUndoLog() *undoLog {
	return &undoLog{
		tickets:  make(map[int64]*domain.Ticket),
		tracking: make(map[int64]*domain.TicketTracking),
		unread:   make(map[int64]*int64),
	}
}

// txLog returns the undo log of the transaction ctx belongs to. Must be
// called with mu held.
func (s *Store) txLog(ctx context.Context) *undoLog {
	undo, _ := ctx.Value(txMarker{}).(*undoLog)
	if undo == nil || undo != s.undo {
		return nil
	}
	return undo
}

// The touch helpers save a record's prior value before a write. Must be
// called with mu held.

func (s *Store) touchTicket(ctx context.Context, id int64) {
	undo := s.txLog(ctx)
	if undo == nil {
		return
	}
	if _, seen := undo.tickets[id]; seen {
		return
	}
	undo.tickets[id] = priorValue(s.tickets, id)
}

func (s *Store) touchTracking(ctx context.Context, id int64) {
	undo := s.txLog(ctx)
	if undo == nil {
		return
	}
	if _, seen := undo.tracking[id]; seen {
		return
	}
	undo.tracking[id] = priorValue(s.tracking, id)
}

func (s *Store) touchUnread(ctx context.Context, ticketID int64) {
	undo := s.txLog(ctx)
	if undo == nil {
		return
	}
	if _, seen := undo.unread[ticketID]; seen {
		return
	}
	undo.unread[ticketID] = priorValue(s.unread, ticketID)
}

func priorValue[V any](m map[int64]V, id int64) *V {
	v, ok := m[id]
	if !ok {
		return nil
	}
	return &v
}

func (u *undoLog) revert(s *Store) {
	restore(s.tickets, u.tickets)
	restore(s.tracking, u.tracking)
	restore(s.unread, u.unread)
}

func restore[V any](m map[int64]V, prior map[int64]*V) {
	for id, v := range prior {
		if v == nil {
			delete(m, id)
			continue
		}
		m[id] = *v
	}
}

// conflicting reports whether t would be a second live ticket of its
// conversation. Must be called with mu held.
func (s *Store) conflicting(t domain.Ticket) bool {
	if !t.Status.Live() {
		return false
	}
	for id, other := range s.tickets {
		if id == t.ID || !other.Status.Live() {
			continue
		}
		if other.ContactID == t.ContactID && other.WhatsappID == t.WhatsappID && other.CompanyID == t.CompanyID {
			return true
		}
	}
	return false
}

func matches(t domain.Ticket, f repository.TicketFilter) bool {
	if f.ID != nil && t.ID != *f.ID {
		return false
	}
	if f.IDs != nil && !slices.Contains(f.IDs, t.ID) {
		return false
	}
	if f.ContactID != nil && t.ContactID != *f.ContactID {
		return false
	}
	if f.CompanyID != nil && t.CompanyID != *f.CompanyID {
		return false
	}
	if f.WhatsappID != nil && t.WhatsappID != *f.WhatsappID {
		return false
	}
	if f.WhatsappIDNot != nil && t.WhatsappID == *f.WhatsappIDNot {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if t.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.UpdatedFrom != nil && t.UpdatedAt.Before(*f.UpdatedFrom) {
		return false
	}
	if f.UpdatedTo != nil && t.UpdatedAt.After(*f.UpdatedTo) {
		return false
	}
	if len(f.LastMessagePrefixes) > 0 {
		if t.LastMessage == nil {
			return false
		}
		found := false
		for _, prefix := range f.LastMessagePrefixes {
			if strings.HasPrefix(*t.LastMessage, prefix) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

package audit

import (
	"context"
	"sync"
)

// RingLog is the in-memory Log.
type RingLog struct {
	mu       sync.Mutex
	capacity int
	entries  []Entry
	start    int
}

// NewRingLog builds a ring holding at most capacity entries.
func NewRingLog(capacity int) *RingLog {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingLog{capacity: capacity, entries: make([]Entry, 0, capacity)}
}

func (r *RingLog) Append(_ context.Context, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) < r.capacity {
		r.entries = append(r.entries, e)
		return nil
	}
	r.entries[r.start] = e
	r.start = (r.start + 1) % r.capacity
	return nil
}

// Entries returns the held entries, oldest first.
func (r *RingLog) Entries(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, 0, len(r.entries))
	out = append(out, r.entries[r.start:]...)
	out = append(out, r.entries[:r.start]...)
	return out, nil
}

func (r *RingLog) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
	r.start = 0
	return nil
}

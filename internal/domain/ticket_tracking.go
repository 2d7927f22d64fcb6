package domain

import "time"

// TicketTracking records the timestamps of a ticket's current service pass.
type TicketTracking struct {
	ID         int64      `json:"id"`
	TicketID   int64      `json:"ticketId"`
	CompanyID  int64      `json:"companyId"`
	WhatsappID int64      `json:"whatsappId"`
	UserID     *int64     `json:"userId"`
	QueuedAt   *time.Time `json:"queuedAt"`
	StartedAt  *time.Time `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt"`
	RatingAt   *time.Time `json:"ratingAt"`
	Rated      bool       `json:"rated"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// TrackingChanges is a partial tracking update.
type TrackingChanges struct {
	UserID     Opt[*int64]
	WhatsappID Opt[int64]
	QueuedAt   Opt[*time.Time]
	StartedAt  Opt[*time.Time]
	FinishedAt Opt[*time.Time]
	RatingAt   Opt[*time.Time]
	Rated      Opt[bool]
}

// Apply writes the set fields onto t.
func (c TrackingChanges) Apply(t *TicketTracking) {
	if c.UserID.Set {
		t.UserID = c.UserID.Value
	}
	if c.WhatsappID.Set {
		t.WhatsappID = c.WhatsappID.Value
	}
	if c.QueuedAt.Set {
		t.QueuedAt = c.QueuedAt.Value
	}
	if c.StartedAt.Set {
		t.StartedAt = c.StartedAt.Value
	}
	if c.FinishedAt.Set {
		t.FinishedAt = c.FinishedAt.Value
	}
	if c.RatingAt.Set {
		t.RatingAt = c.RatingAt.Value
	}
	if c.Rated.Set {
		t.Rated = c.Rated.Value
	}
}

// TimeOpt returns a set Opt pointing at ts.
func TimeOpt(ts time.Time) Opt[*time.Time] {
	return Opt[*time.Time]{Set: true, Value: &ts}
}

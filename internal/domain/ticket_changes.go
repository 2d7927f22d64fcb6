package domain

// TicketChanges is a partial ticket update. Unset fields are left untouched.
type TicketChanges struct {
	Status           Opt[TicketStatus]
	QueueID          Opt[*int64]
	UserID           Opt[*int64]
	WhatsappID       Opt[int64]
	UnreadMessages   Opt[int]
	LastMessage      Opt[*string]
	Chatbot          Opt[bool]
	QueueOptionID    Opt[*int64]
	UseIntegration   Opt[bool]
	IntegrationID    Opt[*int64]
	PromptID         Opt[*int64]
	TypebotStatus    Opt[bool]
	TypebotSessionID Opt[*string]
}

// Empty reports whether no field is set.
func (c TicketChanges) Empty() bool {
	return !c.Status.Set && !c.QueueID.Set && !c.UserID.Set && !c.WhatsappID.Set &&
		!c.UnreadMessages.Set && !c.LastMessage.Set && !c.Chatbot.Set && !c.QueueOptionID.Set &&
		!c.UseIntegration.Set && !c.IntegrationID.Set && !c.PromptID.Set &&
		!c.TypebotStatus.Set && !c.TypebotSessionID.Set
}

// Apply writes the set fields onto t.
func (c TicketChanges) Apply(t *Ticket) {
	if c.Status.Set {
		t.Status = c.Status.Value
	}
	if c.QueueID.Set {
		t.QueueID = c.QueueID.Value
	}
	if c.UserID.Set {
		t.UserID = c.UserID.Value
	}
	if c.WhatsappID.Set {
		t.WhatsappID = c.WhatsappID.Value
	}
	if c.UnreadMessages.Set {
		t.UnreadMessages = c.UnreadMessages.Value
	}
	if c.LastMessage.Set {
		t.LastMessage = c.LastMessage.Value
	}
	if c.Chatbot.Set {
		t.Chatbot = c.Chatbot.Value
	}
	if c.QueueOptionID.Set {
		t.QueueOptionID = c.QueueOptionID.Value
	}
	if c.UseIntegration.Set {
		t.UseIntegration = c.UseIntegration.Value
	}
	if c.IntegrationID.Set {
		t.IntegrationID = c.IntegrationID.Value
	}
	if c.PromptID.Set {
		t.PromptID = c.PromptID.Value
	}
	if c.TypebotStatus.Set {
		t.TypebotStatus = c.TypebotStatus.Value
	}
	if c.TypebotSessionID.Set {
		t.TypebotSessionID = c.TypebotSessionID.Value
	}
}

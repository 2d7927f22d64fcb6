package repository

import (
	"fmt"
	"strings"

	"github.com/spec-kit/chatdesk/internal/domain"
)

// builder accumulates positional arguments for dynamic statements.
type builder struct {
	args []any
}

func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) where(filter TicketFilter) string {
	clauses := []string{"1=1"}

	if filter.ID != nil {
		clauses = append(clauses, "id="+b.arg(*filter.ID))
	}
	if filter.IDs != nil {
		clauses = append(clauses, "id = ANY("+b.arg(filter.IDs)+")")
	}
	if filter.ContactID != nil {
		clauses = append(clauses, "contact_id="+b.arg(*filter.ContactID))
	}
	if filter.CompanyID != nil {
		clauses = append(clauses, "company_id="+b.arg(*filter.CompanyID))
	}
	if filter.WhatsappID != nil {
		clauses = append(clauses, "whatsapp_id="+b.arg(*filter.WhatsappID))
	}
	if filter.WhatsappIDNot != nil {
		clauses = append(clauses, "whatsapp_id<>"+b.arg(*filter.WhatsappIDNot))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = b.arg(status)
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.UpdatedFrom != nil {
		clauses = append(clauses, "updated_at >= "+b.arg(*filter.UpdatedFrom))
	}
	if filter.UpdatedTo != nil {
		clauses = append(clauses, "updated_at <= "+b.arg(*filter.UpdatedTo))
	}
	if len(filter.LastMessagePrefixes) > 0 {
		likes := make([]string, len(filter.LastMessagePrefixes))
		for i, prefix := range filter.LastMessagePrefixes {
			likes[i] = "last_message LIKE " + b.arg(escapeLike(prefix)+"%")
		}
		clauses = append(clauses, "("+strings.Join(likes, " OR ")+")")
	}
	return strings.Join(clauses, " AND ")
}

// set renders the SET list for the fields present in changes.
func (b *builder) set(changes domain.TicketChanges) []string {
	var sets []string
	add := func(column string, v any) {
		sets = append(sets, column+"="+b.arg(v))
	}
	if changes.Status.Set {
		add("status", changes.Status.Value)
	}
	if changes.QueueID.Set {
		add("queue_id", changes.QueueID.Value)
	}
	if changes.UserID.Set {
		add("user_id", changes.UserID.Value)
	}
	if changes.WhatsappID.Set {
		add("whatsapp_id", changes.WhatsappID.Value)
	}
	if changes.UnreadMessages.Set {
		add("unread_messages", changes.UnreadMessages.Value)
	}
	if changes.LastMessage.Set {
		add("last_message", changes.LastMessage.Value)
	}
	if changes.Chatbot.Set {
		add("chatbot", changes.Chatbot.Value)
	}
	if changes.QueueOptionID.Set {
		add("queue_option_id", changes.QueueOptionID.Value)
	}
	if changes.UseIntegration.Set {
		add("use_integration", changes.UseIntegration.Value)
	}
	if changes.IntegrationID.Set {
		add("integration_id", changes.IntegrationID.Value)
	}
	if changes.PromptID.Set {
		add("prompt_id", changes.PromptID.Value)
	}
	if changes.TypebotStatus.Set {
		add("typebot_status", changes.TypebotStatus.Value)
	}
	if changes.TypebotSessionID.Set {
		add("typebot_session_id", changes.TypebotSessionID.Value)
	}
	return append(sets, "updated_at=NOW()")
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

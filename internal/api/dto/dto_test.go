package dto

import (
	"encoding/json"
	"testing"
)

func TestUpdateTicketRequestChanges(t *testing.T) {
	var req UpdateTicketRequest
	body := `{"status":"open","userId":3,"queueId":null,"reason":"transfer"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	changes := req.Changes()

	if !changes.Status.Set || changes.Status.Value != "open" {
		t.Errorf("expected status set to open, got %+v", changes.Status)
	}
	if !changes.UserID.Set || changes.UserID.Value == nil || *changes.UserID.Value != 3 {
		t.Errorf("expected userId 3, got %+v", changes.UserID)
	}
	if !changes.QueueID.Set || changes.QueueID.Value != nil {
		t.Errorf("expected queueId cleared, got %+v", changes.QueueID)
	}
	if changes.WhatsappID.Set || changes.Chatbot.Set || changes.QueueOptionID.Set || changes.LastMessage.Set {
		t.Errorf("absent fields must stay unset, got %+v", changes)
	}
}

func TestValidate(t *testing.T) {
	status := "archived"
	tests := []struct {
		name   string
		input  any
		fields []string
	}{
		{"valid inbound", InboundMessageRequest{ContactID: 1, WhatsappID: 1}, nil},
		{"missing ids", InboundMessageRequest{UnreadMessages: -1}, []string{"contactId", "whatsappId", "unreadMessages"}},
		{"valid update", UpdateTicketRequest{}, nil},
		{"bad status", UpdateTicketRequest{Status: &status}, []string{"status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(tt.input)
			if len(errs) != len(tt.fields) {
				t.Fatalf("expected %d errors, got %v", len(tt.fields), errs)
			}
			for _, field := range tt.fields {
				if _, ok := errs[field]; !ok {
					t.Errorf("expected error on %s, got %v", field, errs)
				}
			}
		})
	}
}

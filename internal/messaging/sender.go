// Package messaging delivers outbound text to contacts over the channel
// gateway.
package messaging

import (
	"context"
	"strings"
)

// Sender delivers a text message to a channel address.
type Sender interface {
	SendText(ctx context.Context, address, text string) error
}

// ContactAddress encodes a contact number as a channel address.
func ContactAddress(number string, isGroup bool) string {
	number = strings.TrimSpace(number)
	if isGroup {
		return number + "@g.us"
	}
	return number + "@s.whatsapp.net"
}

// NopSender drops every message. It is used when no gateway is configured.
type NopSender struct{}

func (NopSender) SendText(context.Context, string, string) error { return nil }

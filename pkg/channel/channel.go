package channel

import (
	"fmt"
	"strings"
)

// Channel identifies a message delivery channel.
type Channel string

const (
	Email    Channel = "EMAIL"
	SMS      Channel = "SMS"
	WhatsApp Channel = "WHATSAPP"
)

// DefaultPriority is the order in which channels are preferred when a play
// allows more than one and the member can receive several of them.
var DefaultPriority = []Channel{Email, SMS, WhatsApp}

// Parse converts a string into a Channel.
// Returns an error for unknown channel names.
func Parse(s string) (Channel, error) {
	switch Channel(strings.ToUpper(strings.TrimSpace(s))) {
	case Email:
		return Email, nil
	case SMS:
		return SMS, nil
	case WhatsApp:
		return WhatsApp, nil
	default:
		return "", fmt.Errorf("unknown channel: %q", s)
	}
}

// ParsePriority parses a comma-separated channel list into a priority order.
// An empty string yields the default priority.
func ParsePriority(s string) ([]Channel, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultPriority, nil
	}

	var order []Channel
	seen := make(map[Channel]bool)
	for _, part := range strings.Split(s, ",") {
		ch, err := Parse(part)
		if err != nil {
			return nil, err
		}
		if seen[ch] {
			return nil, fmt.Errorf("duplicate channel in priority order: %s", ch)
		}
		seen[ch] = true
		order = append(order, ch)
	}

	return order, nil
}

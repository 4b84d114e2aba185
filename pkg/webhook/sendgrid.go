package webhook

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// SendGridAdapter parses SendGrid event webhooks (JSON array, batched).
// Used for the email channel.
type SendGridAdapter struct{}

// NewSendGridAdapter creates the adapter.
func NewSendGridAdapter() *SendGridAdapter {
	return &SendGridAdapter{}
}

// Provider returns the provider key.
func (a *SendGridAdapter) Provider() string {
	return "sendgrid"
}

type sendGridEvent struct {
	MessageID string `json:"sg_message_id"`
	Event     string `json:"event"`
	Email     string `json:"email"`
	Timestamp int64  `json:"timestamp"`
}

// Parse extracts trackable events from the batch. Events the engine does not
// track (processed, open, click...) are dropped; if nothing trackable
// remains the whole batch is ErrEventIgnored.
func (a *SendGridAdapter) Parse(r *http.Request) ([]Delivery, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var events []sendGridEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: empty event batch", ErrMalformedPayload)
	}

	var deliveries []Delivery
	for _, ev := range events {
		if ev.MessageID == "" {
			continue
		}

		var eventType intervention.EventType
		switch ev.Event {
		case "delivered":
			eventType = intervention.EventDelivered
		case "bounce", "dropped":
			eventType = intervention.EventFailed
		default:
			continue
		}

		raw, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		deliveries = append(deliveries, Delivery{
			ProviderMessageID: ev.MessageID,
			Type:              eventType,
			Raw:               raw,
		})
	}

	if len(deliveries) == 0 {
		return nil, ErrEventIgnored
	}
	return deliveries, nil
}

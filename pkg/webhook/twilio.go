package webhook

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

// TwilioAdapter parses Twilio status callbacks (form-encoded, one event per
// request). Used for the SMS and WhatsApp channels.
type TwilioAdapter struct{}

// NewTwilioAdapter creates the adapter.
func NewTwilioAdapter() *TwilioAdapter {
	return &TwilioAdapter{}
}

// Provider returns the provider key.
func (a *TwilioAdapter) Provider() string {
	return "twilio"
}

// Parse extracts the message sid and status from the form body.
// Intermediate statuses (queued, sending, sent) are ignored; only terminal
// delivery outcomes advance intervention state.
func (a *TwilioAdapter) Parse(r *http.Request) ([]Delivery, error) {
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	sid := r.PostForm.Get("MessageSid")
	if sid == "" {
		sid = r.PostForm.Get("SmsSid")
	}
	status := r.PostForm.Get("MessageStatus")
	if status == "" {
		status = r.PostForm.Get("SmsStatus")
	}
	if sid == "" || status == "" {
		return nil, fmt.Errorf("%w: missing MessageSid or MessageStatus", ErrMalformedPayload)
	}

	var eventType intervention.EventType
	switch status {
	case "delivered", "read":
		eventType = intervention.EventDelivered
	case "failed", "undelivered":
		eventType = intervention.EventFailed
	default:
		return nil, ErrEventIgnored
	}

	// Flatten the form into JSON for the audit payload.
	fields := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		fields[key] = r.PostForm.Get(key)
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return []Delivery{{
		ProviderMessageID: sid,
		Type:              eventType,
		Raw:               raw,
	}}, nil
}

// Package webhook normalizes asynchronous provider delivery callbacks and
// reconciles them into the intervention state machine.
package webhook

import (
	"errors"
	"net/http"

	"encoding/json"

	"github.com/gymkeeper/retention-engine/pkg/intervention"
)

var (
	// ErrMalformedPayload means the request body is not a valid payload
	// for the provider; the handler answers 400.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrEventIgnored means the payload parsed but carries an event type
	// the engine does not track (queued, sent, opened-but-untracked...);
	// the handler answers 200 with no state change.
	ErrEventIgnored = errors.New("webhook event type ignored")
)

// Delivery is the provider-agnostic form of one delivery callback.
// The reconciler never sees provider payload shapes, only this.
type Delivery struct {
	ProviderMessageID string
	Type              intervention.EventType
	Raw               json.RawMessage // opaque provider payload, audit only
}

// Adapter parses one provider's native webhook payload into deliveries.
// A single request may carry multiple events (batching providers).
type Adapter interface {
	// Provider returns the provider key used in the webhook URL.
	Provider() string

	// Parse extracts deliveries from the request. Returns
	// ErrMalformedPayload for unparseable bodies and ErrEventIgnored when
	// the payload holds no trackable events.
	Parse(r *http.Request) ([]Delivery, error)
}
